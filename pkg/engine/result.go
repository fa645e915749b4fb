package engine

import "github.com/tbragan/graphion/pkg/models"

// RunResult is everything a caller needs to render a trace or DAG view of one
// run without re-running it: the final context with its node-output history,
// error index and log, plus the chosen start node and visit order.
type RunResult struct {
	Context     *models.ExecutionContext `json:"context"`
	StartNodeID string                   `json:"start_node_id,omitempty"`
	Visited     []string                 `json:"visited"`
}

// Failed reports whether any node recorded an error.
func (r *RunResult) Failed() bool {
	return len(r.Context.Errors) > 0
}
