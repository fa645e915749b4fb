// Package log provides the structured-logging executor.
package log

import (
	"context"
	"log/slog"

	"github.com/tbragan/graphion/pkg/models"
	"github.com/tbragan/graphion/pkg/reference"
)

const Type = "log"

type Executor struct {
	resolver *reference.Resolver
	logger   *slog.Logger
}

func NewExecutor(resolver *reference.Resolver, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{resolver: resolver, logger: logger}
}

// Execute logs the interpolated message at the configured level.
func (e *Executor) Execute(_ context.Context, node *models.NodeDef, ectx *models.ExecutionContext) *models.ResultEnvelope {
	source, ok := node.Input["message"].(string)
	if !ok {
		return models.NewErrorResult(node, models.ErrTypeBadInput,
			"missing required field 'message'")
	}

	level := "info"
	if lvl, ok := node.Input["level"].(string); ok {
		level = lvl
	}

	message := e.resolver.Interpolate(ectx, node.ID, source)

	logger := e.logger.With("node_id", node.ID, "node_type", Type, "execution_id", ectx.ID)

	switch level {
	case "debug":
		logger.Debug(message)
	case "warn":
		logger.Warn(message)
	case "error":
		logger.Error(message)
	default:
		logger.Info(message)
	}

	envelope := models.NewResult(node, map[string]any{
		"message": message,
		"level":   level,
		"logged":  true,
	})
	envelope.Meta[models.MetaProvider] = Type

	return envelope
}
