// Package engine drives the traversal of workflow graphs: start-node
// selection, executor dispatch, conditional-edge evaluation and the
// termination and error policy.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbragan/graphion/pkg/eventbus"
	"github.com/tbragan/graphion/pkg/events"
	"github.com/tbragan/graphion/pkg/log"
	"github.com/tbragan/graphion/pkg/models"
	"github.com/tbragan/graphion/pkg/otelhelper"
	"github.com/tbragan/graphion/pkg/reference"
	"github.com/tbragan/graphion/pkg/registry"
)

// triggerType marks the preferred start node, matched case-insensitively.
const triggerType = "trigger"

// Engine executes one workflow per Run call. It holds no per-run state, so a
// single Engine may serve concurrent runs as long as the registered executors
// are reentrant. Node execution within a run is strictly sequential.
type Engine struct {
	registry *registry.Registry
	resolver *reference.Resolver
	bus      eventbus.EventBus
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewEngine creates an engine over the given executor registry and resolver.
func NewEngine(reg *registry.Registry, resolver *reference.Resolver) *Engine {
	return &Engine{
		registry: reg,
		resolver: resolver,
		tracer:   otel.Tracer("graphion/engine"),
		logger:   log.WithModule("engine"),
	}
}

// WithEventBus attaches a lifecycle event publisher. Optional.
func (e *Engine) WithEventBus(bus eventbus.EventBus) *Engine {
	e.bus = bus

	return e
}

// WithTracer overrides the default tracer.
func (e *Engine) WithTracer(tracer trace.Tracer) *Engine {
	e.tracer = tracer

	return e
}

// Run executes the workflow against a fresh execution context seeded with the
// given event payload. Node errors are recorded in-band on the result; the
// returned error is reserved for a workflow the engine cannot traverse at all.
func (e *Engine) Run(ctx context.Context, wf *models.Workflow, event map[string]any, options models.RunOptions) (*RunResult, error) {
	if wf == nil {
		return nil, fmt.Errorf("nil workflow")
	}

	nodesByID, err := indexNodes(wf)
	if err != nil {
		return nil, err
	}

	ectx := models.NewExecutionContext(generateExecutionID(), wf.Name, event, options)
	for key, value := range wf.Variables {
		ectx.Variables[key] = value
	}

	logger := e.logger.With("workflow", wf.Name, "execution_id", ectx.ID)

	result := &RunResult{
		Context: ectx,
		Visited: make([]string, 0, len(wf.Nodes)),
	}

	start := startNode(wf)
	if start == nil {
		logger.Info("workflow has no nodes to execute")

		return result, nil
	}

	result.StartNodeID = start.ID

	runCtx, runSpan := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowNameKey, wf.Name),
		attribute.String(otelhelper.ExecutionIDKey, ectx.ID),
		attribute.String(otelhelper.StartNodeKey, start.ID),
	)
	defer runSpan.End()

	startedAt := time.Now()

	logger.Info("starting workflow run", "start_node", start.ID)
	e.publish(runCtx, ectx, events.RunStarted{
		BaseEvent:   e.baseEvent(events.RunStartedEvent, ectx),
		StartNodeID: start.ID,
	})

	queue := []string{start.ID}
	visited := make(map[string]struct{}, len(wf.Nodes))

	var failedNodeID string

	for len(queue) > 0 {
		nodeID := queue[0]
		queue = queue[1:]

		node, defined := nodesByID[nodeID]
		if !defined {
			// Data inconsistency in the document, non-fatal.
			logger.Warn("queued node has no definition, skipping", "node_id", nodeID)

			continue
		}

		if _, done := visited[nodeID]; done {
			ectx.AppendLog(models.SkippedLogEntry(nodeID, "already visited"))
			e.publish(runCtx, ectx, events.NodeSkipped{
				BaseEvent: e.baseEvent(events.NodeSkippedEvent, ectx),
				NodeID:    nodeID,
				Reason:    "already visited",
			})

			continue
		}

		entry := models.StartLogEntry(node)
		if options.RetainInputSnapshots {
			entry.ResolvedInput = e.snapshotInputs(node, ectx)
		}

		envelope := e.executeNode(runCtx, node, ectx)

		ectx.RecordResult(node.ID, envelope)
		entry.Finalize(envelope)
		ectx.AppendLog(entry)

		visited[node.ID] = struct{}{}
		result.Visited = append(result.Visited, node.ID)

		e.publish(runCtx, ectx, events.NodeFinished{
			BaseEvent:  e.baseEvent(events.NodeFinishedEvent, ectx),
			NodeID:     node.ID,
			NodeType:   node.Type,
			Status:     entry.Status,
			Error:      entry.ErrorSummary,
			DurationMs: entry.Duration.Milliseconds(),
		})

		if !envelope.OK() {
			failedNodeID = node.ID

			logger.Error("node execution failed",
				"node_id", node.ID,
				"node_type", node.Type,
				"error_type", envelope.Error.Type,
				"error", envelope.Error.Message)

			if ectx.Options.StopOnError {
				// Conservative default: abandon the queue as-is.
				break
			}

			continue
		}

		logger.Info("node executed",
			"node_id", node.ID, "node_type", node.Type, "duration", entry.Duration)

		queue = e.enqueueNext(runCtx, node, ectx, visited, queue, logger)
	}

	duration := time.Since(startedAt)

	if failedNodeID != "" && ectx.Options.StopOnError {
		err := fmt.Errorf("node %s failed: %s", failedNodeID, ectx.Errors[failedNodeID].Message)
		otelhelper.SetError(runSpan, err)
		logger.Error("workflow run halted", "failed_node", failedNodeID, "duration", duration)
		e.publish(runCtx, ectx, events.RunFailed{
			BaseEvent:    e.baseEvent(events.RunFailedEvent, ectx),
			FailedNodeID: failedNodeID,
			Error:        ectx.Errors[failedNodeID].Message,
			Duration:     duration,
		})

		return result, nil
	}

	logger.Info("workflow run completed", "visited", len(result.Visited), "duration", duration)
	e.publish(runCtx, ectx, events.RunCompleted{
		BaseEvent: e.baseEvent(events.RunCompletedEvent, ectx),
		Visited:   result.Visited,
		Duration:  duration,
	})

	return result, nil
}

// executeNode dispatches to the registry-selected executor under a tracing
// span and a panic safety net. Executors return errors in-band by contract;
// a panic across the boundary is converted into an internal error envelope
// carrying the recovered value's kind and message.
func (e *Engine) executeNode(ctx context.Context, node *models.NodeDef, ectx *models.ExecutionContext) (envelope *models.ResultEnvelope) {
	nodeCtx, span := otelhelper.StartSpan(ctx, e.tracer, "node.execute",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, node.Type),
	)
	defer span.End()

	defer func() {
		if recovered := recover(); recovered != nil {
			envelope = models.NewErrorResult(node, models.ErrTypeInternal,
				fmt.Sprintf("executor panicked: %v", recovered))
			envelope.Error.Cause = fmt.Sprintf("%T", recovered)
			envelope.Error.Trace = models.Summarize(string(debug.Stack()))
		}

		if envelope == nil {
			envelope = models.NewErrorResult(node, models.ErrTypeInternal,
				"executor returned no envelope")
		}

		if envelope.Error != nil {
			otelhelper.SetError(span, fmt.Errorf("%s: %s", envelope.Error.Type, envelope.Error.Message))
		}
	}()

	return e.registry.ExecutorFor(node.Type).Execute(nodeCtx, node, ectx)
}

// enqueueNext evaluates the node's outgoing edges in declaration order and
// returns the queue with passing, unvisited, non-blank targets appended.
func (e *Engine) enqueueNext(ctx context.Context, node *models.NodeDef, ectx *models.ExecutionContext, visited map[string]struct{}, queue []string, logger *slog.Logger) []string {
	for _, edge := range node.Edges {
		if !edge.Unconditional() {
			value := e.resolver.Evaluate(ctx, ectx, node.ID, edge.InvokeCondition)
			if !reference.Truthy(value) {
				logger.Debug("edge condition not met",
					"node_id", node.ID, "target", edge.NextNodeID, "condition", edge.InvokeCondition)

				continue
			}
		}

		if edge.NextNodeID == "" {
			logger.Debug("edge has blank target", "node_id", node.ID)

			continue
		}

		if _, done := visited[edge.NextNodeID]; done {
			logger.Debug("edge target already visited", "node_id", node.ID, "target", edge.NextNodeID)

			continue
		}

		queue = append(queue, edge.NextNodeID)
	}

	return queue
}

// snapshotInputs resolves the node's input for debugging. Resolution here
// must never raise; any failure is swallowed and recorded as an absent
// snapshot.
func (e *Engine) snapshotInputs(node *models.NodeDef, ectx *models.ExecutionContext) (snapshot map[string]any) {
	defer func() {
		if recover() != nil {
			snapshot = nil
		}
	}()

	resolved, ok := e.resolver.ResolveDeep(ectx, node.ID, node.Input).(map[string]any)
	if !ok {
		return nil
	}

	return resolved
}

func (e *Engine) publish(ctx context.Context, ectx *models.ExecutionContext, event events.Event) {
	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, ectx.ID, event); err != nil {
		e.logger.Debug("failed to publish lifecycle event", "event", event.GetType(), "error", err)
	}
}

func (e *Engine) baseEvent(eventType events.EventType, ectx *models.ExecutionContext) events.BaseEvent {
	return events.BaseEvent{
		ID:           uuid.New().String(),
		Type:         eventType,
		Timestamp:    time.Now().UTC(),
		ExecutionID:  ectx.ID,
		WorkflowName: ectx.WorkflowName,
	}
}

// startNode selects the first trigger-typed node, else the first node in
// declaration order. Nil when the workflow has no nodes.
func startNode(wf *models.Workflow) *models.NodeDef {
	for _, node := range wf.Nodes {
		if strings.EqualFold(node.Type, triggerType) {
			return node
		}
	}

	if len(wf.Nodes) == 0 {
		return nil
	}

	return wf.Nodes[0]
}

// indexNodes builds the id lookup, failing gracefully on duplicate ids
// instead of leaving traversal undefined.
func indexNodes(wf *models.Workflow) (map[string]*models.NodeDef, error) {
	nodesByID := make(map[string]*models.NodeDef, len(wf.Nodes))

	for _, node := range wf.Nodes {
		if _, duplicate := nodesByID[node.ID]; duplicate {
			return nil, fmt.Errorf("workflow %s has duplicate node id %q", wf.Name, node.ID)
		}

		nodesByID[node.ID] = node
	}

	return nodesByID, nil
}

func generateExecutionID() string {
	return fmt.Sprintf("exec-%s", uuid.New().String()[:8])
}
