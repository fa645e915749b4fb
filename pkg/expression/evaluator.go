// Package expression provides the sandboxed evaluator used for edge guards
// and transform expressions.
package expression

import "context"

// Evaluator evaluates expression source text against a variable-binding map.
// Implementations must be side-effect free: no process, filesystem or network
// access from within an expression.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, source string, vars map[string]any) (any, error)
}
