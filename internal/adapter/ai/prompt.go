package ai

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fairyhunter13/ai-credit-assessor/internal/config"
)

const (
	// QuestionCount is the number of items requested per generation.
	QuestionCount = 7
	// OptionsPerQuestion is the number of options every item must carry.
	OptionsPerQuestion = 4
)

// ResponsibilityScale is the weight of each option, from the most to the least
// responsible behaviour.
var ResponsibilityScale = [OptionsPerQuestion]float64{1.0, 0.7, 0.4, 0.1}

// BuildQuestionPrompt renders the generation instruction for the given language
// name and excluded topics.
func BuildQuestionPrompt(policy config.QuestionPolicy, languageName string, excludedTopicIDs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are designing a behavioral finance questionnaire used to assess the credit responsibility of loan applicants in India.\n")
	fmt.Fprintf(&b, "Generate exactly %d multiple-choice questions.\n", QuestionCount)
	fmt.Fprintf(&b, "Write every question and every option text in %s.\n", languageName)
	fmt.Fprintf(&b, "Each question must have exactly %d options ordered from the most responsible to the least responsible behaviour, with values %s in that order.\n",
		OptionsPerQuestion, scaleList())

	if topics := excludedTopics(policy, excludedTopicIDs); len(topics) > 0 {
		b.WriteString("Do not ask about any of these topics, they are already covered:\n")
		for _, t := range topics {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}

	b.WriteString("Respond with a JSON array only, no explanations, in this shape:\n")
	b.WriteString(`[{"id":"q1","question":"...","options":[{"text":"...","value":1.0},{"text":"...","value":0.7},{"text":"...","value":0.4},{"text":"...","value":0.1}]}]`)
	b.WriteString("\n")
	return b.String()
}

func scaleList() string {
	parts := make([]string, len(ResponsibilityScale))
	for i, v := range ResponsibilityScale {
		parts[i] = fmt.Sprintf("%.1f", v)
	}
	return strings.Join(parts, ", ")
}

// excludedTopics returns sorted, de-duplicated topic descriptions.
func excludedTopics(policy config.QuestionPolicy, ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		label := policy.TopicLabel(id)
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}
