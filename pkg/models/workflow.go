// Package models defines the core domain models for graph-shaped agent workflow execution.
package models

// Workflow is the immutable-after-parse representation of an agent workflow:
// an ordered list of typed nodes connected by conditional edges.
type Workflow struct {
	Name      string         `json:"name"      validate:"required"`
	Version   string         `json:"version,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
	Nodes     []*NodeDef     `json:"nodes"     validate:"dive"`
}

// NodeByID returns the node with the given id, or nil when absent.
// Node ids are unique within a workflow; the parser rejects duplicates.
func (w *Workflow) NodeByID(id string) *NodeDef {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// NodeDef is one unit of work in a workflow. Type selects the executor,
// Input carries its configuration, Edges its outgoing transitions.
// Read-only during execution.
type NodeDef struct {
	ID          string         `json:"id"          validate:"required"`
	Type        string         `json:"type"        validate:"required"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Input       map[string]any `json:"input,omitempty"`
	Edges       []Edge         `json:"edges,omitempty"`
}

// Edge is a directed, optionally guarded transition to a candidate next node.
// An absent or empty InvokeCondition means the edge always passes.
type Edge struct {
	NextNodeID      string `json:"nextNodeId"                    validate:"required"`
	Relation        string `json:"relationDescription,omitempty"`
	InvokeCondition string `json:"invokeCondition,omitempty"`
}

// Unconditional reports whether the edge passes without evaluating a guard.
func (e Edge) Unconditional() bool {
	return e.InvokeCondition == ""
}
