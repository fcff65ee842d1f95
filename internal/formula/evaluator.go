package formula

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/spf13/cast"

	"github.com/rowmap/rowmap/pkg/schema"
)

// Evaluator evaluates arithmetic formulas after placeholder substitution.
// Thread-safe: compiled *vm.Program objects are cached and reused across
// goroutines.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewEvaluator creates a new arithmetic formula evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		cache: make(map[string]*vm.Program),
	}
}

// Evaluate compiles (or retrieves from cache) a formula and evaluates it to a
// number. The formula must be fully substituted: no variables are in scope.
func (e *Evaluator) Evaluate(formulaText string) (float64, error) {
	if formulaText == "" {
		return 0, schema.NewError(schema.ErrCodeExpression, "empty formula")
	}

	prg, err := e.getOrCompile(formulaText)
	if err != nil {
		return 0, err
	}

	out, err := vm.Run(prg, map[string]any{})
	if err != nil {
		return 0, schema.NewErrorf(schema.ErrCodeExpression,
			"formula evaluation failed for %q: %s", formulaText, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"formula": formulaText})
	}

	n, err := cast.ToFloat64E(out)
	if err != nil {
		return 0, schema.NewErrorf(schema.ErrCodeExpression,
			"formula %q produced non-numeric result %v", formulaText, out).
			WithCause(err)
	}

	return n, nil
}

// getOrCompile returns a cached compiled program or compiles and caches a new one.
func (e *Evaluator) getOrCompile(formulaText string) (*vm.Program, error) {
	e.mu.RLock()
	if prg, ok := e.cache[formulaText]; ok {
		e.mu.RUnlock()
		return prg, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double-check after acquiring write lock.
	if prg, ok := e.cache[formulaText]; ok {
		return prg, nil
	}

	prg, err := expr.Compile(formulaText)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExpression,
			"formula compile error in %q: %s", formulaText, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"formula": formulaText})
	}

	e.cache[formulaText] = prg
	return prg, nil
}
