package mapping

import (
	"context"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rowmap/rowmap/pkg/schema"
)

// celPrograms caches compiled CEL programs process-wide behind a shared
// sandboxed environment exposing the row as `row: map(string, dyn)`.
var celPrograms = struct {
	once sync.Once
	env  *cel.Env
	err  error

	mu    sync.RWMutex
	cache map[string]cel.Program
}{cache: make(map[string]cel.Program)}

// CelComparison evaluates a CEL expression over the row. The expression must
// produce a boolean; anything else is a configuration error. It is the
// escape hatch for predicates the built-in operators cannot express.
type CelComparison struct {
	Expression string `json:"expression"`
}

// NewCelComparison creates a CEL predicate.
func NewCelComparison(expression string) *CelComparison {
	return &CelComparison{Expression: expression}
}

func (c *CelComparison) TypeID() string { return TypeIDCelExpression }

func (c *CelComparison) Info() TypeInfo {
	return comparisonInfo(TypeIDCelExpression)
}

func (c *CelComparison) Evaluate(_ context.Context, row schema.Row) (bool, error) {
	prg, err := celCompile(c.Expression)
	if err != nil {
		return false, err
	}

	data := make(map[string]any, len(row))
	for k, v := range row {
		data[k] = v
	}

	out, _, err := prg.Eval(map[string]any{"row": data})
	if err != nil {
		return false, schema.NewErrorf(schema.ErrCodeOperandFailed,
			"CEL evaluation failed for %q: %s", c.Expression, err.Error()).WithCause(err)
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, schema.NewErrorf(schema.ErrCodeConfiguration,
			"CEL expression %q did not produce a boolean", c.Expression)
	}
	return b, nil
}

func (c *CelComparison) Clone() Comparison {
	cp := *c
	return &cp
}

func (c *CelComparison) MarshalJSON() ([]byte, error) {
	type alias CelComparison
	return marshalEnvelope(c.TypeID(), (*alias)(c))
}

// celCompile returns a cached compiled program or compiles and caches a new one.
func celCompile(expression string) (cel.Program, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeConfiguration, "empty CEL expression")
	}

	celPrograms.once.Do(func() {
		celPrograms.env, celPrograms.err = cel.NewEnv(
			cel.Variable("row", cel.MapType(cel.StringType, cel.DynType)),
		)
	})
	if celPrograms.err != nil {
		return nil, schema.NewError(schema.ErrCodeConfiguration, "create CEL environment").WithCause(celPrograms.err)
	}

	celPrograms.mu.RLock()
	if prg, ok := celPrograms.cache[expression]; ok {
		celPrograms.mu.RUnlock()
		return prg, nil
	}
	celPrograms.mu.RUnlock()

	celPrograms.mu.Lock()
	defer celPrograms.mu.Unlock()

	// Double-check after acquiring write lock.
	if prg, ok := celPrograms.cache[expression]; ok {
		return prg, nil
	}

	ast, issues := celPrograms.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, schema.NewErrorf(schema.ErrCodeConfiguration,
			"CEL compile error in %q: %s", expression, issues.Err().Error()).WithCause(issues.Err())
	}
	prg, err := celPrograms.env.Program(ast)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeConfiguration,
			"CEL program error in %q: %s", expression, err.Error()).WithCause(err)
	}

	celPrograms.cache[expression] = prg
	return prg, nil
}
