// Package registry maps node type strings to their executor implementations.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tbragan/graphion/pkg/models"
	"github.com/tbragan/graphion/pkg/protocol"
)

// Registry resolves a node's declared type to an executor. Lookup never
// returns nil: unknown types get a fallback that yields an executor_missing
// error envelope, and types registered as placeholders get a not_implemented
// stub. The registry is read-only after setup and safe to share across
// concurrent runs.
type Registry struct {
	logger    *slog.Logger
	executors map[string]protocol.NodeExecutor
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		executors: make(map[string]protocol.NodeExecutor),
	}
}

// Register binds a node type to its executor. Types are case-insensitive.
func (r *Registry) Register(nodeType string, executor protocol.NodeExecutor) {
	r.executors[strings.ToLower(nodeType)] = executor
}

// RegisterNotImplemented reserves a known node type whose executor is an
// external collaborator not wired into this process.
func (r *Registry) RegisterNotImplemented(nodeType string) {
	r.executors[strings.ToLower(nodeType)] = notImplementedExecutor{}
}

// ExecutorFor returns the executor for a node type, falling back to the
// executor-missing stub for unknown types.
func (r *Registry) ExecutorFor(nodeType string) protocol.NodeExecutor {
	if executor, ok := r.executors[strings.ToLower(nodeType)]; ok {
		return executor
	}

	r.logger.Warn("no executor registered for node type", "node_type", nodeType)

	return missingExecutor{}
}

// Types returns the registered node types.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.executors))
	for nodeType := range r.executors {
		types = append(types, nodeType)
	}

	return types
}

type notImplementedExecutor struct{}

func (notImplementedExecutor) Execute(_ context.Context, node *models.NodeDef, _ *models.ExecutionContext) *models.ResultEnvelope {
	return models.NewErrorResult(node, models.ErrTypeNotImplemented,
		fmt.Sprintf("node type %q is registered but not implemented in this process", node.Type))
}

type missingExecutor struct{}

func (missingExecutor) Execute(_ context.Context, node *models.NodeDef, _ *models.ExecutionContext) *models.ResultEnvelope {
	return models.NewErrorResult(node, models.ErrTypeExecutorMissing,
		fmt.Sprintf("no executor registered for node type %q", node.Type))
}
