package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// QuestionPolicy holds the tunable vocabulary used when prompting for dynamic questions.
type QuestionPolicy struct {
	// Languages maps a language code to the name written into the prompt.
	Languages map[string]string `yaml:"languages"`
	// Topics maps a topic id (as sent by clients in the exclusion list) to a description.
	Topics map[string]string `yaml:"topics"`
}

// DefaultQuestionPolicy returns the built-in policy.
func DefaultQuestionPolicy() QuestionPolicy {
	return QuestionPolicy{
		Languages: map[string]string{
			"en": "English",
			"hi": "Hindi",
			"te": "Telugu",
			"ta": "Tamil",
			"kn": "Kannada",
			"ml": "Malayalam",
			"mr": "Marathi",
			"bn": "Bengali",
			"gu": "Gujarati",
			"pa": "Punjabi",
		},
		Topics: map[string]string{
			"savings_habit":      "monthly saving habits",
			"emi_discipline":     "paying loan EMIs on time",
			"impulse_spending":   "impulse purchases",
			"emergency_fund":     "keeping an emergency fund",
			"budgeting":          "planning a household budget",
			"credit_card_usage":  "credit card repayment behaviour",
			"borrowing_friends":  "borrowing money from friends or family",
			"financial_goals":    "long-term financial goals",
			"bill_payments":      "paying utility bills on time",
			"investment_risk":    "attitude to investment risk",
			"income_stability":   "handling irregular income",
			"debt_consolidation": "consolidating multiple debts",
		},
	}
}

// LoadQuestionPolicy returns the default policy merged with the YAML file at path.
// An empty path yields the defaults.
func LoadQuestionPolicy(path string) (QuestionPolicy, error) {
	policy := DefaultQuestionPolicy()
	if strings.TrimSpace(path) == "" {
		return policy, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return QuestionPolicy{}, fmt.Errorf("op=config.LoadQuestionPolicy: %w", err)
	}
	// #nosec G304 -- operator supplied configuration file
	content, err := os.ReadFile(absPath)
	if err != nil {
		return QuestionPolicy{}, fmt.Errorf("op=config.LoadQuestionPolicy: %w", err)
	}
	var override QuestionPolicy
	if err := yaml.Unmarshal(content, &override); err != nil {
		return QuestionPolicy{}, fmt.Errorf("op=config.LoadQuestionPolicy: parse %s: %w", absPath, err)
	}
	for code, name := range override.Languages {
		code = strings.ToLower(strings.TrimSpace(code))
		if code != "" && strings.TrimSpace(name) != "" {
			policy.Languages[code] = strings.TrimSpace(name)
		}
	}
	for id, desc := range override.Topics {
		id = strings.TrimSpace(id)
		if id != "" && strings.TrimSpace(desc) != "" {
			policy.Topics[id] = strings.TrimSpace(desc)
		}
	}
	return policy, nil
}

// ResolveLanguage returns the supported code and its name, falling back to English.
func (p QuestionPolicy) ResolveLanguage(code string) (string, string) {
	c := strings.ToLower(strings.TrimSpace(code))
	if name, ok := p.Languages[c]; ok {
		return c, name
	}
	if name, ok := p.Languages["en"]; ok {
		return "en", name
	}
	return "en", "English"
}

// TopicLabel describes a topic id; unknown ids are returned unchanged.
func (p QuestionPolicy) TopicLabel(id string) string {
	if desc, ok := p.Topics[id]; ok {
		return desc
	}
	return id
}
