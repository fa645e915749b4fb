package models

import "encoding/json"

// RunOptions is the run-scoped configuration for a single execution.
type RunOptions struct {
	// StopOnError halts traversal at the first error envelope. This is the
	// default policy; continue-on-error is an explicit opt-out.
	StopOnError bool `json:"stop_on_error"`
	// RetainInputSnapshots records each node's resolved input on its log
	// entry for debugging.
	RetainInputSnapshots bool `json:"retain_input_snapshots"`
}

// DefaultRunOptions returns the conservative defaults: stop on the first
// node error, no input snapshots.
func DefaultRunOptions() RunOptions {
	return RunOptions{StopOnError: true}
}

// ExecutionContext is the shared blackboard for one run: the seed event,
// per-node result envelopes, the error index and the trace log. Owned
// exclusively by one run; only the engine writes to it.
type ExecutionContext struct {
	ID           string                `json:"id"`
	WorkflowName string                `json:"workflow_name"`
	Event        map[string]any        `json:"event,omitempty"`
	Variables    map[string]any        `json:"variables,omitempty"`
	Nodes        *NodeResults          `json:"nodes"`
	Errors       map[string]*ErrorInfo `json:"errors,omitempty"`
	Logs         []*ExecutionLogEntry  `json:"logs,omitempty"`
	Options      RunOptions            `json:"options"`
}

// NewExecutionContext creates a context seeded with the given event payload.
func NewExecutionContext(id, workflowName string, event map[string]any, options RunOptions) *ExecutionContext {
	return &ExecutionContext{
		ID:           id,
		WorkflowName: workflowName,
		Event:        event,
		Variables:    make(map[string]any),
		Nodes:        NewNodeResults(),
		Errors:       make(map[string]*ErrorInfo),
		Logs:         make([]*ExecutionLogEntry, 0),
		Options:      options,
	}
}

// RecordResult appends a node's envelope and indexes its error, if any.
func (c *ExecutionContext) RecordResult(nodeID string, envelope *ResultEnvelope) {
	c.Nodes.Set(nodeID, envelope)

	if envelope.Error != nil {
		c.Errors[nodeID] = envelope.Error
	}
}

// AppendLog appends a finalized or in-flight log entry.
func (c *ExecutionContext) AppendLog(entry *ExecutionLogEntry) {
	c.Logs = append(c.Logs, entry)
}

// NodeResults is an insertion-ordered, append-only mapping from node id to its
// result envelope. Insertion order equals execution order.
type NodeResults struct {
	order   []string
	results map[string]*ResultEnvelope
}

// NewNodeResults creates an empty result map.
func NewNodeResults() *NodeResults {
	return &NodeResults{
		order:   make([]string, 0),
		results: make(map[string]*ResultEnvelope),
	}
}

// Set records the envelope for a node id, preserving first-insertion order.
func (n *NodeResults) Set(nodeID string, envelope *ResultEnvelope) {
	if _, exists := n.results[nodeID]; !exists {
		n.order = append(n.order, nodeID)
	}

	n.results[nodeID] = envelope
}

// Get returns the envelope for a node id, if one was recorded.
func (n *NodeResults) Get(nodeID string) (*ResultEnvelope, bool) {
	envelope, ok := n.results[nodeID]

	return envelope, ok
}

// Len returns the number of recorded envelopes.
func (n *NodeResults) Len() int {
	return len(n.order)
}

// IDs returns node ids in execution order.
func (n *NodeResults) IDs() []string {
	ids := make([]string, len(n.order))
	copy(ids, n.order)

	return ids
}

// MarshalJSON emits envelopes keyed by node id.
func (n *NodeResults) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.results)
}

// AsMap returns a plain map view of the recorded outputs, keyed by node id.
// Used by the reference resolver for absolute-context paths.
func (n *NodeResults) AsMap() map[string]any {
	out := make(map[string]any, len(n.order))
	for id, envelope := range n.results {
		out[id] = envelope.Output
	}

	return out
}
