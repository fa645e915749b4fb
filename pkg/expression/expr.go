package expression

import (
	"context"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprEvaluator implements Evaluator on expr-lang/expr. Expressions run inside
// the expr VM with no host bindings, so they cannot reach process, filesystem
// or network capabilities. Compiled programs are cached and reused; the cache
// is safe for concurrent runs.
type ExprEvaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewExprEvaluator creates an evaluator with an empty program cache.
func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{
		cache: make(map[string]*vm.Program),
	}
}

// Name returns the evaluator identifier.
func (e *ExprEvaluator) Name() string {
	return "expr"
}

// Evaluate compiles (or retrieves from cache) the source and runs it with the
// given variables bound as the environment.
func (e *ExprEvaluator) Evaluate(_ context.Context, source string, vars map[string]any) (any, error) {
	if source == "" {
		return nil, fmt.Errorf("empty expression")
	}

	program, err := e.getOrCompile(source)
	if err != nil {
		return nil, err
	}

	env := vars
	if env == nil {
		env = map[string]any{}
	}

	out, err := vm.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("expression %q failed: %w", source, err)
	}

	return out, nil
}

func (e *ExprEvaluator) getOrCompile(source string) (*vm.Program, error) {
	e.mu.RLock()
	if program, ok := e.cache[source]; ok {
		e.mu.RUnlock()

		return program, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if program, ok := e.cache[source]; ok {
		return program, nil
	}

	// Variables are bound per evaluation, so compile against an open
	// environment instead of a concrete one.
	program, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("expression %q does not compile: %w", source, err)
	}

	e.cache[source] = program

	return program, nil
}

var _ Evaluator = (*ExprEvaluator)(nil)
