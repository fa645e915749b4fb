// Package protocol defines the contract node executors must satisfy.
package protocol

import (
	"context"

	"github.com/tbragan/graphion/pkg/models"
)

// NodeExecutor executes one node against the shared execution context.
//
// Contract: read configuration from the node's input mapping, resolving any
// reference-valued entries before use; treat the context as read-only (only
// the engine writes results back); report failures in-band by returning an
// envelope with Error set, never by panicking across this boundary. The
// engine still safety-nets panics and converts them into error envelopes.
type NodeExecutor interface {
	Execute(ctx context.Context, node *models.NodeDef, ectx *models.ExecutionContext) *models.ResultEnvelope
}
