package models

// Error type tags used across the engine. Short taxonomy tags, not Go type names.
const (
	ErrTypeBadInput        = "bad_input"
	ErrTypeExecutorMissing = "executor_missing"
	ErrTypeNotImplemented  = "not_implemented"
	ErrTypeInternal        = "internal"
)

// Meta keys attached to envelopes for attributable diagnostics.
const (
	MetaNodeID   = "node_id"
	MetaNodeType = "node_type"
	MetaProvider = "provider"
)

// ResultEnvelope is the standard success/error wrapper returned by every node
// execution. Immutable once produced; the engine's visited set guarantees one
// envelope per node per run.
type ResultEnvelope struct {
	Output any            `json:"output,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
	Error  *ErrorInfo     `json:"error,omitempty"`
}

// OK reports whether the execution succeeded.
func (r *ResultEnvelope) OK() bool {
	return r.Error == nil
}

// ErrorInfo describes a node execution failure.
type ErrorInfo struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Trace   string `json:"trace,omitempty"`
	Cause   string `json:"cause,omitempty"`
}

// NewResult builds a success envelope with node diagnostics attached.
func NewResult(node *NodeDef, output any) *ResultEnvelope {
	return &ResultEnvelope{
		Output: output,
		Meta:   nodeMeta(node),
	}
}

// NewErrorResult builds an error envelope with node diagnostics attached.
func NewErrorResult(node *NodeDef, errType, message string) *ResultEnvelope {
	return &ResultEnvelope{
		Meta: nodeMeta(node),
		Error: &ErrorInfo{
			Message: message,
			Type:    errType,
		},
	}
}

func nodeMeta(node *NodeDef) map[string]any {
	if node == nil {
		return map[string]any{}
	}

	return map[string]any{
		MetaNodeID:   node.ID,
		MetaNodeType: node.Type,
	}
}
