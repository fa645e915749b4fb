// Package trigger provides the start-node executor that passes the seed
// event through as its output.
package trigger

import (
	"context"

	"github.com/tbragan/graphion/pkg/models"
)

// Type is the node type this executor serves.
const Type = "trigger"

type Executor struct{}

func NewExecutor() *Executor {
	return &Executor{}
}

// Execute exposes the run's seed event as the trigger node's output so that
// downstream references can read it as "#<triggerId>.<path>".
func (e *Executor) Execute(_ context.Context, node *models.NodeDef, ectx *models.ExecutionContext) *models.ResultEnvelope {
	output := ectx.Event
	if output == nil {
		output = map[string]any{}
	}

	envelope := models.NewResult(node, output)
	envelope.Meta[models.MetaProvider] = Type

	return envelope
}
