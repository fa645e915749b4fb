// Package template provides the executor that renders a string template by
// substituting resolved reference paths.
package template

import (
	"context"

	"github.com/tbragan/graphion/pkg/models"
	"github.com/tbragan/graphion/pkg/reference"
)

const Type = "template"

type Executor struct {
	resolver *reference.Resolver
}

func NewExecutor(resolver *reference.Resolver) *Executor {
	return &Executor{resolver: resolver}
}

// Execute interpolates every reference occurrence in the configured template.
// Unresolvable references render as empty strings, never as errors.
func (e *Executor) Execute(_ context.Context, node *models.NodeDef, ectx *models.ExecutionContext) *models.ResultEnvelope {
	source, ok := node.Input["template"].(string)
	if !ok || source == "" {
		return models.NewErrorResult(node, models.ErrTypeBadInput,
			"missing required field 'template'")
	}

	rendered := e.resolver.Interpolate(ectx, node.ID, source)

	envelope := models.NewResult(node, map[string]any{"rendered": rendered})
	envelope.Meta[models.MetaProvider] = Type

	return envelope
}
