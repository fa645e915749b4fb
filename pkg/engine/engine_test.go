package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbragan/graphion/pkg/expression"
	"github.com/tbragan/graphion/pkg/log"
	"github.com/tbragan/graphion/pkg/models"
	"github.com/tbragan/graphion/pkg/reference"
	"github.com/tbragan/graphion/pkg/registry"
)

// stubExecutor returns a fixed output, error or panic per node id.
type stubExecutor struct {
	outputs map[string]any
	errors  map[string]string
	panics  map[string]string
}

func (s stubExecutor) Execute(_ context.Context, node *models.NodeDef, _ *models.ExecutionContext) *models.ResultEnvelope {
	if message, ok := s.panics[node.ID]; ok {
		panic(message)
	}

	if message, ok := s.errors[node.ID]; ok {
		return models.NewErrorResult(node, models.ErrTypeBadInput, message)
	}

	return models.NewResult(node, s.outputs[node.ID])
}

func newTestEngine(t *testing.T, stub stubExecutor, types ...string) *Engine {
	t.Helper()

	resolver := reference.NewResolver(expression.NewExprEvaluator())
	reg := registry.NewRegistry(log.WithModule("test"))

	if len(types) == 0 {
		types = []string{"trigger", "task"}
	}

	for _, nodeType := range types {
		reg.Register(nodeType, stub)
	}

	return NewEngine(reg, resolver)
}

func node(id, nodeType string, edges ...models.Edge) *models.NodeDef {
	return &models.NodeDef{ID: id, Type: nodeType, Edges: edges}
}

func edge(target string) models.Edge {
	return models.Edge{NextNodeID: target}
}

func conditionalEdge(target, condition string) models.Edge {
	return models.Edge{NextNodeID: target, InvokeCondition: condition}
}

func TestEngine_Run_EmptyWorkflow(t *testing.T) {
	eng := newTestEngine(t, stubExecutor{})

	wf := &models.Workflow{Name: "empty"}

	result, err := eng.Run(context.Background(), wf, map[string]any{"seed": true}, models.DefaultRunOptions())
	require.NoError(t, err)

	assert.Empty(t, result.Visited)
	assert.Empty(t, result.StartNodeID)
	assert.Zero(t, result.Context.Nodes.Len())
	assert.Empty(t, result.Context.Logs)
	assert.Equal(t, map[string]any{"seed": true}, result.Context.Event)
}

func TestEngine_Run_StartNodeSelection(t *testing.T) {
	tests := []struct {
		name     string
		nodes    []*models.NodeDef
		expected string
	}{
		{
			name: "first trigger node wins even when not first",
			nodes: []*models.NodeDef{
				node("worker", "task"),
				node("entry", "TRIGGER"),
			},
			expected: "entry",
		},
		{
			name: "first node in declaration order otherwise",
			nodes: []*models.NodeDef{
				node("alpha", "task"),
				node("beta", "task"),
			},
			expected: "alpha",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newTestEngine(t, stubExecutor{})

			wf := &models.Workflow{Name: "starts", Nodes: tt.nodes}

			result, err := eng.Run(context.Background(), wf, nil, models.DefaultRunOptions())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.StartNodeID)
			assert.Equal(t, []string{tt.expected}, result.Visited)
		})
	}
}

// Converging edges must not re-execute a node: the visited set dedups and the
// second dequeue is recorded as a skipped log entry.
func TestEngine_Run_VisitsNodeAtMostOnce(t *testing.T) {
	eng := newTestEngine(t, stubExecutor{})

	wf := &models.Workflow{
		Name: "diamond",
		Nodes: []*models.NodeDef{
			node("a", "trigger", edge("b"), edge("c")),
			node("b", "task", edge("d")),
			node("c", "task", edge("d")),
			node("d", "task"),
		},
	}

	result, err := eng.Run(context.Background(), wf, nil, models.DefaultRunOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d"}, result.Visited)
	assert.Equal(t, 4, result.Context.Nodes.Len())

	skipped := 0
	for _, entry := range result.Context.Logs {
		if entry.Status == models.NodeStatusSkipped {
			skipped++
			assert.Equal(t, "d", entry.NodeID)
		}
	}

	assert.Equal(t, 1, skipped)
}

func TestEngine_Run_ErrorHaltsTraversal(t *testing.T) {
	eng := newTestEngine(t, stubExecutor{
		errors: map[string]string{"broken": "config missing"},
	})

	wf := &models.Workflow{
		Name: "halts",
		Nodes: []*models.NodeDef{
			node("start", "trigger", edge("broken")),
			node("broken", "task", edge("after")),
			node("after", "task"),
		},
	}

	result, err := eng.Run(context.Background(), wf, nil, models.DefaultRunOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "broken"}, result.Visited)
	assert.True(t, result.Failed())

	errInfo, indexed := result.Context.Errors["broken"]
	require.True(t, indexed)
	assert.Equal(t, models.ErrTypeBadInput, errInfo.Type)
	assert.Equal(t, "config missing", errInfo.Message)

	_, executed := result.Context.Nodes.Get("after")
	assert.False(t, executed)
}

// With StopOnError disabled the failed node still evaluates no edges, but
// nodes already queued keep executing.
func TestEngine_Run_ContinueOnError(t *testing.T) {
	eng := newTestEngine(t, stubExecutor{
		errors: map[string]string{"broken": "boom"},
	})

	wf := &models.Workflow{
		Name: "continues",
		Nodes: []*models.NodeDef{
			node("start", "trigger", edge("broken"), edge("healthy")),
			node("broken", "task", edge("unreached")),
			node("healthy", "task"),
			node("unreached", "task"),
		},
	}

	options := models.RunOptions{StopOnError: false}

	result, err := eng.Run(context.Background(), wf, nil, options)
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "broken", "healthy"}, result.Visited)
	assert.True(t, result.Failed())

	_, executed := result.Context.Nodes.Get("unreached")
	assert.False(t, executed)
}

func TestEngine_Run_UnknownExecutorHaltsRun(t *testing.T) {
	eng := newTestEngine(t, stubExecutor{})

	wf := &models.Workflow{
		Name: "unknown-type",
		Nodes: []*models.NodeDef{
			node("start", "trigger", edge("weird")),
			node("weird", "does-not-exist", edge("after")),
			node("after", "task"),
		},
	}

	result, err := eng.Run(context.Background(), wf, nil, models.DefaultRunOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "weird"}, result.Visited)

	errInfo, indexed := result.Context.Errors["weird"]
	require.True(t, indexed)
	assert.Equal(t, models.ErrTypeExecutorMissing, errInfo.Type)
}

// The engine safety-nets executor panics: the recovered value becomes an
// internal error envelope carrying its kind and message.
func TestEngine_Run_PanicConvertedToErrorEnvelope(t *testing.T) {
	eng := newTestEngine(t, stubExecutor{
		panics: map[string]string{"wild": "executor exploded"},
	})

	wf := &models.Workflow{
		Name: "panics",
		Nodes: []*models.NodeDef{
			node("wild", "task"),
		},
	}

	result, err := eng.Run(context.Background(), wf, nil, models.DefaultRunOptions())
	require.NoError(t, err)

	errInfo, indexed := result.Context.Errors["wild"]
	require.True(t, indexed)
	assert.Equal(t, models.ErrTypeInternal, errInfo.Type)
	assert.Contains(t, errInfo.Message, "executor exploded")
	assert.Equal(t, "string", errInfo.Cause)
	assert.NotEmpty(t, errInfo.Trace)
}

func TestEngine_Run_QueuedNodeWithoutDefinition(t *testing.T) {
	eng := newTestEngine(t, stubExecutor{})

	wf := &models.Workflow{
		Name: "dangling-edge",
		Nodes: []*models.NodeDef{
			node("start", "trigger", edge("ghost"), edge("real")),
			node("real", "task"),
		},
	}

	result, err := eng.Run(context.Background(), wf, nil, models.DefaultRunOptions())
	require.NoError(t, err)

	// The dangling target is skipped with a warning, not recorded as visited.
	assert.Equal(t, []string{"start", "real"}, result.Visited)
}

func TestEngine_Run_DuplicateNodeIDs(t *testing.T) {
	eng := newTestEngine(t, stubExecutor{})

	wf := &models.Workflow{
		Name: "dupes",
		Nodes: []*models.NodeDef{
			node("a", "task"),
			node("a", "task"),
		},
	}

	_, err := eng.Run(context.Background(), wf, nil, models.DefaultRunOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node id")
}

// End-to-end scenario: a document mention pipeline whose tail is gated on
// "#has_mentions.ok". With ok=true the run reaches add_comment and
// comment_text's input resolves from the mentions list; with ok=false the run
// stops after has_mentions.
func TestEngine_Run_MentionPipeline(t *testing.T) {
	mentionWorkflow := func() *models.Workflow {
		return &models.Workflow{
			Name: "mention-comment",
			Nodes: []*models.NodeDef{
				node("t1", "trigger", edge("pick_ids")),
				node("pick_ids", "task", edge("get_attachment")),
				node("get_attachment", "task", edge("extract")),
				node("extract", "task", edge("has_mentions")),
				node("has_mentions", "task", conditionalEdge("comment_text", "#has_mentions.ok")),
				{
					ID:   "comment_text",
					Type: "task",
					Input: map[string]any{
						"mentions": "#has_mentions.mentions",
					},
					Edges: []models.Edge{edge("add_comment")},
				},
				node("add_comment", "task"),
			},
		}
	}

	t.Run("mentions present", func(t *testing.T) {
		eng := newTestEngine(t, stubExecutor{
			outputs: map[string]any{
				"has_mentions": map[string]any{
					"ok":       true,
					"mentions": []any{"ABC-1"},
				},
			},
		})

		options := models.RunOptions{StopOnError: true, RetainInputSnapshots: true}

		result, err := eng.Run(context.Background(), mentionWorkflow(), nil, options)
		require.NoError(t, err)

		require.NotEmpty(t, result.Visited)
		assert.Equal(t, "add_comment", result.Visited[len(result.Visited)-1])
		assert.Equal(t, []string{
			"t1", "pick_ids", "get_attachment", "extract",
			"has_mentions", "comment_text", "add_comment",
		}, result.Visited)

		var commentEntry *models.ExecutionLogEntry
		for _, entry := range result.Context.Logs {
			if entry.NodeID == "comment_text" {
				commentEntry = entry
			}
		}

		require.NotNil(t, commentEntry)
		require.NotNil(t, commentEntry.ResolvedInput)
		assert.Equal(t, []any{"ABC-1"}, commentEntry.ResolvedInput["mentions"])
	})

	t.Run("no mentions", func(t *testing.T) {
		eng := newTestEngine(t, stubExecutor{
			outputs: map[string]any{
				"has_mentions": map[string]any{"ok": false},
			},
		})

		result, err := eng.Run(context.Background(), mentionWorkflow(), nil, models.DefaultRunOptions())
		require.NoError(t, err)

		assert.Equal(t, []string{
			"t1", "pick_ids", "get_attachment", "extract", "has_mentions",
		}, result.Visited)
		assert.NotContains(t, result.Visited, "comment_text")
		assert.NotContains(t, result.Visited, "add_comment")
		assert.False(t, result.Failed())
	})
}

func TestEngine_Run_BlankEdgeTargetIgnored(t *testing.T) {
	eng := newTestEngine(t, stubExecutor{})

	wf := &models.Workflow{
		Name: "blank-target",
		Nodes: []*models.NodeDef{
			node("start", "trigger", edge(""), edge("next")),
			node("next", "task"),
		},
	}

	result, err := eng.Run(context.Background(), wf, nil, models.DefaultRunOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "next"}, result.Visited)
}

func TestEngine_Run_SeedsWorkflowVariables(t *testing.T) {
	eng := newTestEngine(t, stubExecutor{})

	wf := &models.Workflow{
		Name:      "vars",
		Variables: map[string]any{"region": "eu"},
		Nodes: []*models.NodeDef{
			node("only", "task"),
		},
	}

	result, err := eng.Run(context.Background(), wf, nil, models.DefaultRunOptions())
	require.NoError(t, err)
	assert.Equal(t, "eu", result.Context.Variables["region"])
}
