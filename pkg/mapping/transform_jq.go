package mapping

import (
	"context"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/rowmap/rowmap/pkg/schema"
)

// jqPrograms caches compiled jq code process-wide; rules are shared across
// row goroutines so the cache is guarded.
var jqPrograms = struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}{cache: make(map[string]*gojq.Code)}

// JQQueryTransformation applies a jq expression to the current value. One
// output becomes the new scalar, several become a collection, none becomes
// an explicitly empty value. An invalid query is a configuration error;
// query runtime errors fail the cell.
type JQQueryTransformation struct {
	Query string `json:"query"`
}

// NewJQQueryTransformation creates a jq step.
func NewJQQueryTransformation(query string) *JQQueryTransformation {
	return &JQQueryTransformation{Query: query}
}

func (t *JQQueryTransformation) TypeID() string { return TypeIDJQQuery }

func (t *JQQueryTransformation) Info() TypeInfo {
	return TypeInfo{
		DisplayName: "JQ Query",
		ShortName:   "JQ",
		Description: "Filters or reshapes the current value with a jq expression.",
	}
}

func (t *JQQueryTransformation) Apply(ctx context.Context, _ schema.Row, in schema.TransformationResult) (schema.TransformationResult, error) {
	if in.Failed() {
		return in, nil
	}

	code, err := jqCompile(t.Query)
	if err != nil {
		return in, err
	}

	iter := code.RunWithContext(ctx, jqValue(in.CurrentValue()))

	var results []any
	for {
		val, ok := iter.Next()
		if !ok {
			break
		}
		if runErr, isErr := val.(error); isErr {
			return in.Fail(runErr.Error()), nil
		}
		results = append(results, val)
	}

	switch len(results) {
	case 0:
		return in.Next(nil, schema.TypeEmpty), nil
	case 1:
		return in.Next(results[0], schema.DetectType(results[0])), nil
	default:
		return in.Next(results, schema.TypeCollection), nil
	}
}

func (t *JQQueryTransformation) Clone() Transformation {
	cp := *t
	return &cp
}

func (t *JQQueryTransformation) ToDetail() (string, error) {
	return detailString(t)
}

func (t *JQQueryTransformation) FromDetail(detail string) error {
	return detailParse(detail, t)
}

func (t *JQQueryTransformation) MarshalJSON() ([]byte, error) {
	type alias JQQueryTransformation
	return marshalEnvelope(t.TypeID(), (*alias)(t))
}

// jqCompile returns a cached compiled query or compiles and caches a new one.
func jqCompile(query string) (*gojq.Code, error) {
	if query == "" {
		return nil, schema.NewError(schema.ErrCodeConfiguration, "empty jq query")
	}

	jqPrograms.mu.RLock()
	if code, ok := jqPrograms.cache[query]; ok {
		jqPrograms.mu.RUnlock()
		return code, nil
	}
	jqPrograms.mu.RUnlock()

	jqPrograms.mu.Lock()
	defer jqPrograms.mu.Unlock()

	// Double-check after acquiring write lock.
	if code, ok := jqPrograms.cache[query]; ok {
		return code, nil
	}

	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeConfiguration,
			"invalid jq query %q: %s", query, err.Error()).WithCause(err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeConfiguration,
			"invalid jq query %q: %s", query, err.Error()).WithCause(err)
	}

	jqPrograms.cache[query] = code
	return code, nil
}

// jqValue converts a pipeline value into the JSON-typed shape gojq expects.
func jqValue(v any) any {
	switch val := v.(type) {
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	default:
		return val
	}
}
