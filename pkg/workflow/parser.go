// Package workflow parses workflow documents into the immutable graph model.
package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"

	"github.com/tbragan/graphion/pkg/models"
)

// ErrInvalidWorkflow wraps every structured parse failure.
var ErrInvalidWorkflow = errors.New("invalid workflow document")

// shortcutKeys are root-level aliases for common input parameters. They are
// promoted into the canonical input mapping at parse time when the mapping
// does not already carry them.
var shortcutKeys = []string{"operation", "expression", "template", "message"}

// rawNode accepts both historical configuration keys. "input" and "params"
// are synonyms; Parse merges them into one canonical mapping with "input"
// winning per key.
type rawNode struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Input       map[string]any `json:"input"`
	Params      map[string]any `json:"params"`
	Edges       []models.Edge  `json:"edges"`

	Operation  any `json:"operation"`
	Expression any `json:"expression"`
	Template   any `json:"template"`
	Message    any `json:"message"`
}

type rawWorkflow struct {
	Name      string         `json:"name"`
	Version   string         `json:"version"`
	Variables map[string]any `json:"variables"`
	Nodes     []rawNode      `json:"nodes"`
}

// Parse turns a JSON workflow document into a Workflow value or fails with a
// structured error. Unknown fields at any level are tolerated. Parsing is a
// pure function: it never touches an execution context.
func Parse(document []byte) (*models.Workflow, error) {
	if err := validateDocument(document); err != nil {
		return nil, err
	}

	var raw rawWorkflow
	if err := json.Unmarshal(document, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWorkflow, err)
	}

	wf := &models.Workflow{
		Name:      raw.Name,
		Version:   raw.Version,
		Variables: raw.Variables,
		Nodes:     make([]*models.NodeDef, 0, len(raw.Nodes)),
	}

	seen := make(map[string]struct{}, len(raw.Nodes))

	for _, node := range raw.Nodes {
		if _, duplicate := seen[node.ID]; duplicate {
			return nil, fmt.Errorf("%w: duplicate node id %q", ErrInvalidWorkflow, node.ID)
		}

		seen[node.ID] = struct{}{}

		wf.Nodes = append(wf.Nodes, &models.NodeDef{
			ID:          node.ID,
			Type:        node.Type,
			Name:        node.Name,
			Description: node.Description,
			Input:       canonicalInput(node),
			Edges:       node.Edges,
		})
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(wf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWorkflow, err)
	}

	return wf, nil
}

// validateDocument checks the document against the embedded JSON schema and
// reports every violation at once.
func validateDocument(document []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(documentSchema),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWorkflow, err)
	}

	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, issue := range result.Errors() {
		issues = append(issues, issue.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidWorkflow, strings.Join(issues, "; "))
}

// canonicalInput merges the two accepted configuration keys and the root-level
// shortcut fields into one mapping.
func canonicalInput(node rawNode) map[string]any {
	input := make(map[string]any, len(node.Input)+len(node.Params))

	for key, value := range node.Params {
		input[key] = value
	}

	for key, value := range node.Input {
		input[key] = value
	}

	shortcuts := map[string]any{
		"operation":  node.Operation,
		"expression": node.Expression,
		"template":   node.Template,
		"message":    node.Message,
	}

	for _, key := range shortcutKeys {
		value := shortcuts[key]
		if value == nil {
			continue
		}

		if _, exists := input[key]; !exists {
			input[key] = value
		}
	}

	return input
}
