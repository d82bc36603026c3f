// Package ai turns loosely structured model output into dynamic questions.
package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
)

// QuestionIDPrefix prefixes the ids assigned to parsed questions.
const QuestionIDPrefix = "dynamic_question_"

// ExtractJSONArray returns raw from its first '[' to its last ']' inclusive.
// Prose and code fences around the array are dropped; nothing inside is touched.
func ExtractJSONArray(raw string) (string, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("op=ai.extract_json_array: %w: no json array found", domain.ErrMalformedUpstream)
	}
	return raw[start : end+1], nil
}

type wireOption struct {
	Text  string   `json:"text"`
	Value *float64 `json:"value"`
}

type wireQuestion struct {
	ID       string       `json:"id"`
	Question string       `json:"question"`
	Options  []wireOption `json:"options"`
}

// ParseQuestions extracts the array from raw and decodes it. Ids are rewritten to
// dynamic_question_1..N in array order regardless of what the model produced.
// Any decode failure is reported as ErrMalformedUpstream with no partial result.
func ParseQuestions(raw string) ([]domain.DynamicQuestion, error) {
	payload, err := ExtractJSONArray(raw)
	if err != nil {
		return nil, err
	}
	var items []wireQuestion
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("op=ai.parse_questions: %w: %v", domain.ErrMalformedUpstream, err)
	}
	out := make([]domain.DynamicQuestion, 0, len(items))
	for i, it := range items {
		q := domain.DynamicQuestion{
			ID:       fmt.Sprintf("%s%d", QuestionIDPrefix, i+1),
			Question: strings.TrimSpace(it.Question),
			Options:  make([]domain.QuestionOption, 0, len(it.Options)),
		}
		for j, o := range it.Options {
			if o.Value == nil {
				return nil, fmt.Errorf("op=ai.parse_questions: %w: item %d option %d has no value", domain.ErrMalformedUpstream, i+1, j+1)
			}
			q.Options = append(q.Options, domain.QuestionOption{Text: strings.TrimSpace(o.Text), Value: *o.Value})
		}
		out = append(out, q)
	}
	return out, nil
}
