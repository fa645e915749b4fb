// Package reference resolves symbolic reference strings against an execution
// context and evaluates composite guard expressions that embed them.
//
// Two reference roots are recognized: "#nodeId" paths read a prior node's
// recorded output, "$." paths read the context root (seed event, variables,
// node outputs). Each dot-separated segment may carry a name, one or more
// bracketed indices, or both, applied in written order.
package reference

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/tbragan/graphion/pkg/expression"
	"github.com/tbragan/graphion/pkg/models"
)

const (
	// SelfMarker lets a condition refer to the node currently executing
	// without knowing its id. Normalized by textual substitution before
	// parsing.
	SelfMarker = "#self"

	// OutputSegment is skippable as the first path segment, so that
	// "#n.output.x" and "#n.x" are equivalent.
	OutputSegment = "output"
)

var (
	nodeRefPattern    = regexp.MustCompile(`#[A-Za-z_][A-Za-z0-9_-]*(?:\.[A-Za-z_]\w*(?:\[\d+\])*)*`)
	contextRefPattern = regexp.MustCompile(`\$\.[A-Za-z_]\w*(?:\[\d+\])*(?:\.[A-Za-z_]\w*(?:\[\d+\])*)*`)
	anyRefPattern     = regexp.MustCompile(nodeRefPattern.String() + `|` + contextRefPattern.String())
	selfPattern       = regexp.MustCompile(SelfMarker + `\b`)
	segmentPattern    = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_-]*)?((?:\[\d+\])*)$`)
)

// Resolver translates references into context lookups and delegates composite
// expressions to the sandboxed evaluator. Resolution degrades gracefully:
// anything that cannot be determined yields nil rather than an error, since
// references guard control flow, not correctness-critical computation.
type Resolver struct {
	evaluator expression.Evaluator
	logger    *slog.Logger
}

// NewResolver creates a resolver backed by the given expression evaluator.
func NewResolver(evaluator expression.Evaluator) *Resolver {
	return &Resolver{
		evaluator: evaluator,
		logger:    slog.With("module", "reference"),
	}
}

// Evaluate resolves the source string against the context. A source that is
// exactly one reference returns the referenced value unmodified, including
// non-boolean values; anything else is rewritten with generated variables and
// evaluated in the expression sandbox. Failures yield nil.
func (r *Resolver) Evaluate(ctx context.Context, ectx *models.ExecutionContext, currentNodeID, source string) any {
	source = NormalizeSelf(source, currentNodeID)

	trimmed := strings.TrimSpace(source)
	if isSingleReference(trimmed) {
		return r.ResolveReference(ectx, trimmed)
	}

	refs := distinctReferences(trimmed)

	vars := make(map[string]any, len(refs))
	names := make(map[string]string, len(refs))

	for i, ref := range refs {
		name := fmt.Sprintf("_ref%d", i)
		names[ref] = name
		vars[name] = r.ResolveReference(ectx, ref)
	}

	rewritten := substituteReferences(trimmed, names)
	rewritten = strings.TrimSuffix(strings.TrimSpace(rewritten), ";")
	rewritten = strings.TrimPrefix(rewritten, "return ")

	out, err := r.evaluator.Evaluate(ctx, rewritten, vars)
	if err != nil {
		r.logger.Debug("expression evaluation failed, degrading to nil",
			"source", source, "error", err)

		return nil
	}

	return out
}

// ResolveReference resolves a single reference token. Missing envelopes,
// missing properties and out-of-range indices all yield nil.
func (r *Resolver) ResolveReference(ectx *models.ExecutionContext, ref string) any {
	if strings.HasPrefix(ref, "$.") {
		return resolvePath(contextRoot(ectx), strings.Split(ref[2:], "."), false)
	}

	if !strings.HasPrefix(ref, "#") {
		return nil
	}

	segments := strings.Split(ref[1:], ".")

	idName, idIndices, ok := parseSegment(segments[0])
	if !ok || idName == "" {
		return nil
	}

	envelope, found := ectx.Nodes.Get(idName)
	if !found {
		return nil
	}

	value := applyIndices(envelope.Output, idIndices)

	return resolvePath(value, segments[1:], true)
}

// Interpolate replaces every reference occurrence in s with the stringified
// resolved value. Unresolvable references become the empty string.
func (r *Resolver) Interpolate(ectx *models.ExecutionContext, currentNodeID, s string) string {
	s = NormalizeSelf(s, currentNodeID)

	return anyRefPattern.ReplaceAllStringFunc(s, func(ref string) string {
		return stringify(r.ResolveReference(ectx, ref))
	})
}

// ResolveDeep resolves reference-valued entries recursively through nested
// mappings and sequences. A string that is exactly one reference becomes the
// referenced value; a string embedding references is interpolated; everything
// else passes through unchanged.
func (r *Resolver) ResolveDeep(ectx *models.ExecutionContext, currentNodeID string, value any) any {
	switch v := value.(type) {
	case string:
		normalized := NormalizeSelf(v, currentNodeID)
		if isSingleReference(strings.TrimSpace(normalized)) {
			return r.ResolveReference(ectx, strings.TrimSpace(normalized))
		}

		if anyRefPattern.MatchString(normalized) {
			return r.Interpolate(ectx, currentNodeID, v)
		}

		return v
	case map[string]any:
		resolved := make(map[string]any, len(v))
		for key, entry := range v {
			resolved[key] = r.ResolveDeep(ectx, currentNodeID, entry)
		}

		return resolved
	case []any:
		resolved := make([]any, len(v))
		for i, entry := range v {
			resolved[i] = r.ResolveDeep(ectx, currentNodeID, entry)
		}

		return resolved
	default:
		return value
	}
}

// NormalizeSelf rewrites the self-reference marker into an explicit reference
// to the node currently executing.
func NormalizeSelf(source, currentNodeID string) string {
	if currentNodeID == "" || !strings.Contains(source, SelfMarker) {
		return source
	}

	return selfPattern.ReplaceAllString(source, "#"+currentNodeID)
}

// Truthy reports the truthiness used for edge gating: nil, false, zero
// numbers, empty strings and empty collections are falsy.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func isSingleReference(s string) bool {
	match := anyRefPattern.FindString(s)

	return match != "" && match == s
}

func distinctReferences(source string) []string {
	seen := make(map[string]struct{})
	refs := make([]string, 0)

	for _, ref := range anyRefPattern.FindAllString(source, -1) {
		if _, ok := seen[ref]; ok {
			continue
		}

		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}

	return refs
}

// substituteReferences replaces longest references first so that a reference
// that prefixes another is never clobbered.
func substituteReferences(source string, names map[string]string) string {
	ordered := make([]string, 0, len(names))
	for ref := range names {
		ordered = append(ordered, ref)
	}

	for i := range ordered {
		for j := i + 1; j < len(ordered); j++ {
			if len(ordered[j]) > len(ordered[i]) {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}

	for _, ref := range ordered {
		source = strings.ReplaceAll(source, ref, names[ref])
	}

	return source
}

func contextRoot(ectx *models.ExecutionContext) map[string]any {
	return map[string]any{
		"event": ectx.Event,
		"vars":  ectx.Variables,
		"nodes": ectx.Nodes.AsMap(),
	}
}

// resolvePath walks dot segments left to right. When skipOutput is set, a
// leading bare "output" segment is consumed without a property lookup.
func resolvePath(value any, segments []string, skipOutput bool) any {
	for i, segment := range segments {
		name, indices, ok := parseSegment(segment)
		if !ok {
			return nil
		}

		if !(i == 0 && skipOutput && name == OutputSegment) && name != "" {
			value = access(value, name)
		}

		value = applyIndices(value, indices)

		if value == nil {
			return nil
		}
	}

	return value
}

// parseSegment splits one path segment into its name and bracketed indices.
func parseSegment(segment string) (string, []int, bool) {
	match := segmentPattern.FindStringSubmatch(segment)
	if match == nil {
		return "", nil, false
	}

	name := match[1]

	var indices []int

	raw := match[2]
	for raw != "" {
		end := strings.IndexByte(raw, ']')
		idx, err := strconv.Atoi(raw[1:end])
		if err != nil {
			return "", nil, false
		}

		indices = append(indices, idx)
		raw = raw[end+1:]
	}

	return name, indices, true
}

func access(value any, name string) any {
	container, ok := value.(map[string]any)
	if !ok {
		return nil
	}

	return container[name]
}

func applyIndices(value any, indices []int) any {
	for _, idx := range indices {
		list, ok := value.([]any)
		if !ok || idx < 0 || idx >= len(list) {
			return nil
		}

		value = list[idx]
	}

	return value
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
