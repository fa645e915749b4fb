// Package events defines lifecycle notifications emitted during workflow runs.
package events

import (
	"time"

	"github.com/tbragan/graphion/pkg/models"
)

type EventType string

// Topic carries every run and node lifecycle event.
const Topic = "graphion.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent   EventType = "run.started"
	RunCompletedEvent EventType = "run.completed"
	RunFailedEvent    EventType = "run.failed"

	NodeFinishedEvent EventType = "node.finished"
	NodeSkippedEvent  EventType = "node.skipped"
)

// Event is implemented by every lifecycle notification.
type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	ExecutionID  string    `json:"execution_id"`
	WorkflowName string    `json:"workflow_name"`
}

type RunStarted struct {
	BaseEvent

	StartNodeID string `json:"start_node_id"`
}

func (r RunStarted) GetType() EventType {
	return RunStartedEvent
}

type RunCompleted struct {
	BaseEvent

	Visited  []string      `json:"visited"`
	Duration time.Duration `json:"duration"`
}

func (r RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

type RunFailed struct {
	BaseEvent

	FailedNodeID string        `json:"failed_node_id"`
	Error        string        `json:"error"`
	Duration     time.Duration `json:"duration"`
}

func (r RunFailed) GetType() EventType {
	return RunFailedEvent
}

type NodeFinished struct {
	BaseEvent

	NodeID     string            `json:"node_id"`
	NodeType   string            `json:"node_type"`
	Status     models.NodeStatus `json:"status"`
	Error      string            `json:"error,omitempty"`
	DurationMs int64             `json:"duration_ms"`
}

func (n NodeFinished) GetType() EventType {
	return NodeFinishedEvent
}

type NodeSkipped struct {
	BaseEvent

	NodeID string `json:"node_id"`
	Reason string `json:"reason"`
}

func (n NodeSkipped) GetType() EventType {
	return NodeSkippedEvent
}
