package ai

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
)

func TestExtractJSONArray(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare_array", input: `[1,2]`, expected: `[1,2]`},
		{name: "prose_and_fences", input: "Sure! ```json\n[{\"a\":1}]\n``` Enjoy.", expected: `[{"a":1}]`},
		{name: "nested_arrays_use_outer_bounds", input: `x [[1],[2]] y`, expected: `[[1],[2]]`},
		{name: "empty_array", input: `[]`, expected: `[]`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ExtractJSONArray(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExtractJSONArray_Failures(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "no json here", "[ unterminated", "closing only ]", "] reversed ["} {
		_, err := ExtractJSONArray(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, domain.ErrMalformedUpstream), in)
		assert.True(t, errors.Is(err, domain.ErrUpstreamFormat), in)
	}
}

func questionJSON(n int) string {
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, fmt.Sprintf(`{"id":"q%d","question":"Question %d?","options":[{"text":"A","value":1.0},{"text":"B","value":0.7},{"text":"C","value":0.4},{"text":"D","value":0.1}]}`, i+1, i+1))
	}
	return "[" + strings.Join(items, ",") + "]"
}

func TestParseQuestions_ProseAndFences(t *testing.T) {
	t.Parallel()

	raw := "Here are your questions:\n```json\n" + questionJSON(7) + "\n```\nLet me know if you need more."
	qs, err := ParseQuestions(raw)
	require.NoError(t, err)
	require.Len(t, qs, 7)
	for i, q := range qs {
		assert.Equal(t, fmt.Sprintf("dynamic_question_%d", i+1), q.ID)
		assert.Equal(t, fmt.Sprintf("Question %d?", i+1), q.Question)
		require.Len(t, q.Options, 4)
		assert.Equal(t, 1.0, q.Options[0].Value)
		assert.Equal(t, 0.1, q.Options[3].Value)
	}
}

func TestParseQuestions_RenumbersIDs(t *testing.T) {
	t.Parallel()

	raw := `[{"id":"zzz","question":"one","options":[]},{"question":"two","options":[]}]`
	qs, err := ParseQuestions(raw)
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "dynamic_question_1", qs[0].ID)
	assert.Equal(t, "dynamic_question_2", qs[1].ID)
}

func TestParseQuestions_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "no_array", input: "I cannot help with that."},
		{name: "invalid_json", input: `[{"question": "a",}]`},
		{name: "single_quotes_not_coerced", input: `[{'question': 'a'}]`},
		{name: "wrong_item_type", input: `["just a string"]`},
		{name: "missing_option_value", input: `[{"question":"a","options":[{"text":"x"}]}]`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			qs, err := ParseQuestions(tt.input)
			require.Error(t, err)
			assert.Nil(t, qs)
			assert.True(t, errors.Is(err, domain.ErrMalformedUpstream))
			assert.Equal(t, domain.CodeMalformedUpstream, domain.KindOf(err))
		})
	}
}
