// Package transform provides the expression-based data transformation
// executor.
package transform

import (
	"context"

	"github.com/tbragan/graphion/pkg/models"
	"github.com/tbragan/graphion/pkg/reference"
)

const Type = "transform"

type Executor struct {
	resolver *reference.Resolver
}

func NewExecutor(resolver *reference.Resolver) *Executor {
	return &Executor{resolver: resolver}
}

// Execute evaluates the configured expression against the context and returns
// it under "result". Expression failures degrade to a nil result rather than
// an error envelope, matching the resolver's graceful-degradation policy.
func (e *Executor) Execute(ctx context.Context, node *models.NodeDef, ectx *models.ExecutionContext) *models.ResultEnvelope {
	source, ok := node.Input["expression"].(string)
	if !ok || source == "" {
		return models.NewErrorResult(node, models.ErrTypeBadInput,
			"missing required field 'expression'")
	}

	result := e.resolver.Evaluate(ctx, ectx, node.ID, source)

	envelope := models.NewResult(node, map[string]any{"result": result})
	envelope.Meta[models.MetaProvider] = Type

	return envelope
}
