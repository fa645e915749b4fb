package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbragan/graphion/pkg/expression"
	"github.com/tbragan/graphion/pkg/models"
	"github.com/tbragan/graphion/pkg/reference"
)

func TestExecutor_Execute(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, nil))
	resolver := reference.NewResolver(expression.NewExprEvaluator())
	executor := NewExecutor(resolver, logger)

	ectx := models.NewExecutionContext("exec-test", "wf", nil, models.DefaultRunOptions())
	ectx.Nodes.Set("who", &models.ResultEnvelope{
		Output: map[string]any{"name": "dana"},
	})

	node := &models.NodeDef{
		ID:    "notify",
		Type:  Type,
		Input: map[string]any{"message": "hello #who.name", "level": "warn"},
	}

	envelope := executor.Execute(context.Background(), node, ectx)
	require.True(t, envelope.OK())

	output := envelope.Output.(map[string]any)
	assert.Equal(t, "hello dana", output["message"])
	assert.Equal(t, "warn", output["level"])
	assert.Equal(t, true, output["logged"])

	assert.Contains(t, buf.String(), "hello dana")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestExecutor_Execute_MissingMessage(t *testing.T) {
	resolver := reference.NewResolver(expression.NewExprEvaluator())
	executor := NewExecutor(resolver, nil)

	ectx := models.NewExecutionContext("exec-test", "wf", nil, models.DefaultRunOptions())

	node := &models.NodeDef{ID: "notify", Type: Type, Input: map[string]any{"level": "info"}}

	envelope := executor.Execute(context.Background(), node, ectx)
	require.False(t, envelope.OK())
	assert.Equal(t, models.ErrTypeBadInput, envelope.Error.Type)
}
