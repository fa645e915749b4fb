package models

import (
	"fmt"
	"time"
)

// NodeStatus is the terminal status recorded on a log entry.
type NodeStatus string

const (
	NodeStatusOK      NodeStatus = "OK"
	NodeStatusError   NodeStatus = "ERROR"
	NodeStatusSkipped NodeStatus = "SKIPPED"
)

// summaryLimit bounds textual output/error summaries on log entries.
const summaryLimit = 512

// ExecutionLogEntry records one node lifecycle event. Append-only; the only
// mutation allowed is finalizing the in-flight entry.
type ExecutionLogEntry struct {
	NodeID        string         `json:"node_id"`
	NodeType      string         `json:"node_type,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at,omitempty"`
	Duration      time.Duration  `json:"duration,omitempty"`
	Status        NodeStatus     `json:"status"`
	OutputSummary string         `json:"output_summary,omitempty"`
	ErrorSummary  string         `json:"error_summary,omitempty"`
	ResolvedInput map[string]any `json:"resolved_input,omitempty"`
}

// StartLogEntry opens an in-flight entry for a node about to execute.
func StartLogEntry(node *NodeDef) *ExecutionLogEntry {
	return &ExecutionLogEntry{
		NodeID:    node.ID,
		NodeType:  node.Type,
		StartedAt: time.Now().UTC(),
	}
}

// Finalize completes the entry from the node's envelope.
func (e *ExecutionLogEntry) Finalize(envelope *ResultEnvelope) {
	e.FinishedAt = time.Now().UTC()
	e.Duration = e.FinishedAt.Sub(e.StartedAt)

	if envelope.Error != nil {
		e.Status = NodeStatusError
		e.ErrorSummary = Summarize(envelope.Error.Message)

		return
	}

	e.Status = NodeStatusOK
	e.OutputSummary = Summarize(fmt.Sprintf("%v", envelope.Output))
}

// SkippedLogEntry records a node that was dequeued but not executed.
func SkippedLogEntry(nodeID, reason string) *ExecutionLogEntry {
	now := time.Now().UTC()

	return &ExecutionLogEntry{
		NodeID:        nodeID,
		StartedAt:     now,
		FinishedAt:    now,
		Status:        NodeStatusSkipped,
		OutputSummary: Summarize(reason),
	}
}

// Summarize truncates a string to the log summary bound.
func Summarize(s string) string {
	if len(s) <= summaryLimit {
		return s
	}

	return s[:summaryLimit] + "..."
}
