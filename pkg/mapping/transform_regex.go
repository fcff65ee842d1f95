package mapping

import (
	"context"
	"regexp"
	"sync"

	"github.com/rowmap/rowmap/pkg/schema"
)

// regexPatterns caches compiled patterns process-wide; rules are shared
// across row goroutines so the cache is guarded.
var regexPatterns = struct {
	mu    sync.RWMutex
	cache map[string]*regexp.Regexp
}{cache: make(map[string]*regexp.Regexp)}

// regexCompile returns a cached compiled pattern or compiles and caches a new
// one. An unresolvable pattern is a configuration error.
func regexCompile(pattern string) (*regexp.Regexp, error) {
	regexPatterns.mu.RLock()
	if re, ok := regexPatterns.cache[pattern]; ok {
		regexPatterns.mu.RUnlock()
		return re, nil
	}
	regexPatterns.mu.RUnlock()

	regexPatterns.mu.Lock()
	defer regexPatterns.mu.Unlock()

	// Double-check after acquiring write lock.
	if re, ok := regexPatterns.cache[pattern]; ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeConfiguration,
			"invalid regex pattern %q", pattern).WithCause(err)
	}

	regexPatterns.cache[pattern] = re
	return re, nil
}

// RegexMatchTransformation extracts pattern matches from the current scalar
// value. One match yields a scalar string, several yield a collection of the
// match strings, none yields an empty string. A no-match is never a failure;
// an unresolvable pattern is a configuration error.
type RegexMatchTransformation struct {
	Pattern string `json:"pattern"`
}

// NewRegexMatchTransformation creates a regex extraction step.
func NewRegexMatchTransformation(pattern string) *RegexMatchTransformation {
	return &RegexMatchTransformation{Pattern: pattern}
}

func (t *RegexMatchTransformation) TypeID() string { return TypeIDRegexMatch }

func (t *RegexMatchTransformation) Info() TypeInfo {
	return TypeInfo{
		DisplayName: "Regex Match",
		ShortName:   "Regex",
		Description: "Extracts the substring(s) matching a regular expression.",
	}
}

func (t *RegexMatchTransformation) Apply(_ context.Context, _ schema.Row, in schema.TransformationResult) (schema.TransformationResult, error) {
	if in.Failed() {
		return in, nil
	}
	if in.IsCollection() {
		return in.Fail(MsgInvalidInputCollection), nil
	}

	re, err := regexCompile(t.Pattern)
	if err != nil {
		return in, err
	}

	matches := re.FindAllString(in.String(), -1)
	switch len(matches) {
	case 0:
		return in.Next("", schema.TypeString), nil
	case 1:
		return in.Next(matches[0], schema.TypeString), nil
	default:
		return in.Next(matches, schema.TypeCollection), nil
	}
}

func (t *RegexMatchTransformation) Clone() Transformation {
	cp := *t
	return &cp
}

func (t *RegexMatchTransformation) ToDetail() (string, error) {
	return detailString(t)
}

func (t *RegexMatchTransformation) FromDetail(detail string) error {
	return detailParse(detail, t)
}

func (t *RegexMatchTransformation) MarshalJSON() ([]byte, error) {
	type alias RegexMatchTransformation
	return marshalEnvelope(t.TypeID(), (*alias)(t))
}
