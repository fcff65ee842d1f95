// Package formula implements the ${i} placeholder micro-language shared by
// the combine, interpolate and calculate transformations, plus the cached
// arithmetic evaluator behind calculate.
package formula

import (
	"strconv"
	"strings"
)

// Substitute replaces ${i} placeholders in format with values[i]. A
// placeholder whose index has no corresponding value is left verbatim, so a
// partially configured format stays visibly unfinished instead of erroring.
// Tokens that are not a well-formed numeric placeholder also stay verbatim.
func Substitute(format string, values []string) string {
	return substitute(format, values, nil)
}

// SubstituteOrDefault behaves like Substitute but replaces out-of-range
// placeholders with the given default instead of leaving them literal. The
// calculate pre-pass uses this with "0" so unresolved operands stay numeric.
func SubstituteOrDefault(format string, values []string, def string) string {
	return substitute(format, values, &def)
}

func substitute(format string, values []string, missing *string) string {
	var result strings.Builder
	result.Grow(len(format))

	i := 0
	for i < len(format) {
		idx := strings.Index(format[i:], "${")
		if idx == -1 {
			result.WriteString(format[i:])
			break
		}

		result.WriteString(format[i : i+idx])
		start := i + idx + 2 // skip "${"

		end := strings.IndexByte(format[start:], '}')
		if end == -1 {
			// Unterminated token: everything left is literal.
			result.WriteString(format[i+idx:])
			break
		}
		end += start

		token := format[start:end]
		n, err := strconv.Atoi(token)
		if err != nil || n < 0 {
			// Not a positional placeholder; keep it verbatim.
			result.WriteString(format[i+idx : end+1])
			i = end + 1
			continue
		}

		switch {
		case n < len(values):
			result.WriteString(values[n])
		case missing != nil:
			result.WriteString(*missing)
		default:
			result.WriteString(format[i+idx : end+1])
		}

		i = end + 1
	}

	return result.String()
}
