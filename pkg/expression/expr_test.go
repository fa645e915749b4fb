package expression

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExprEvaluator_Evaluate(t *testing.T) {
	evaluator := NewExprEvaluator()

	tests := []struct {
		name     string
		source   string
		vars     map[string]any
		expected any
	}{
		{
			name:     "arithmetic",
			source:   "1 + 2 * 3",
			vars:     nil,
			expected: 7,
		},
		{
			name:     "bound variables",
			source:   "_ref0 + _ref1",
			vars:     map[string]any{"_ref0": 10, "_ref1": 20},
			expected: 30,
		},
		{
			name:     "boolean logic",
			source:   "_ref0 && !_ref1",
			vars:     map[string]any{"_ref0": true, "_ref1": false},
			expected: true,
		},
		{
			name:     "string operations",
			source:   `_ref0 + "-suffix"`,
			vars:     map[string]any{"_ref0": "value"},
			expected: "value-suffix",
		},
		{
			name:     "array methods",
			source:   "len(filter(_ref0, # > 1))",
			vars:     map[string]any{"_ref0": []any{1, 2, 3}},
			expected: 2,
		},
		{
			name:     "undefined variables evaluate to nil",
			source:   "unknown == nil",
			vars:     map[string]any{},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := evaluator.Evaluate(context.Background(), tt.source, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestExprEvaluator_Evaluate_Errors(t *testing.T) {
	evaluator := NewExprEvaluator()

	_, err := evaluator.Evaluate(context.Background(), "", nil)
	require.Error(t, err)

	_, err = evaluator.Evaluate(context.Background(), "1 +", nil)
	require.Error(t, err)
}

func TestExprEvaluator_CachesCompiledPrograms(t *testing.T) {
	evaluator := NewExprEvaluator()

	first, err := evaluator.Evaluate(context.Background(), "_ref0 * 2", map[string]any{"_ref0": 2})
	require.NoError(t, err)
	assert.Equal(t, 4, first)

	require.Len(t, evaluator.cache, 1)

	second, err := evaluator.Evaluate(context.Background(), "_ref0 * 2", map[string]any{"_ref0": 5})
	require.NoError(t, err)
	assert.Equal(t, 10, second)

	assert.Len(t, evaluator.cache, 1)
}

func TestExprEvaluator_Name(t *testing.T) {
	assert.Equal(t, "expr", NewExprEvaluator().Name())
}
