package consult

import (
	"strings"

	"MindEase/internal/model"
)

// Default symptom rule table. Order is priority: the first matching
// rule wins regardless of how many keywords other rules would hit.
// Confidence is static per branch, a deliberate heuristic rather than a
// classifier.
const (
	DefaultMatchedConfidence  = "85%"
	DefaultFallbackSpecialty  = "General Mental Health Expert"
	DefaultFallbackConfidence = "55%"
)

func DefaultRules() []model.SpecialtyRule {
	return []model.SpecialtyRule{
		{Keywords: []string{"sad", "hopeless"}, Specialty: "Therapist (Depression)"},
		{Keywords: []string{"anxiety", "panic"}, Specialty: "Anxiety Specialist"},
		{Keywords: []string{"insomnia", "sleep"}, Specialty: "Sleep Specialist"},
		{Keywords: []string{"stress", "overwhelmed"}, Specialty: "Counseling Psychologist"},
	}
}

// RuleEngine maps free-text symptom descriptions to a suggested
// specialty. Pure and side-effect free; results are never persisted.
type RuleEngine struct {
	rules              []model.SpecialtyRule
	matchedConfidence  string
	fallbackSpecialty  string
	fallbackConfidence string
}

// NewRuleEngine builds an engine from configuration data. Zero values
// fall back to the defaults above.
func NewRuleEngine(rules []model.SpecialtyRule, matchedConfidence, fallbackSpecialty, fallbackConfidence string) *RuleEngine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	if matchedConfidence == "" {
		matchedConfidence = DefaultMatchedConfidence
	}
	if fallbackSpecialty == "" {
		fallbackSpecialty = DefaultFallbackSpecialty
	}
	if fallbackConfidence == "" {
		fallbackConfidence = DefaultFallbackConfidence
	}
	return &RuleEngine{
		rules:              rules,
		matchedConfidence:  matchedConfidence,
		fallbackSpecialty:  fallbackSpecialty,
		fallbackConfidence: fallbackConfidence,
	}
}

// Analyze evaluates the rule table against the lowercased input. A rule
// matches when any of its keywords is a substring of the text.
func (e *RuleEngine) Analyze(text string) model.SymptomReport {
	low := strings.ToLower(text)

	for _, rule := range e.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(low, kw) {
				return model.SymptomReport{
					Input:      text,
					Suggestion: rule.Specialty,
					Confidence: e.matchedConfidence,
				}
			}
		}
	}

	return model.SymptomReport{
		Input:      text,
		Suggestion: e.fallbackSpecialty,
		Confidence: e.fallbackConfidence,
	}
}
