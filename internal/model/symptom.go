package model

// SpecialtyRule maps a keyword set to a suggested specialty. Rules are
// configuration data: order in the table is priority, and a rule
// matches when any of its keywords appears in the normalized input.
type SpecialtyRule struct {
	Keywords  []string `json:"keywords"`
	Specialty string   `json:"specialty"`
}

// SymptomReport is the result of a symptom analysis. It is ephemeral:
// held in session-local state only, never persisted.
type SymptomReport struct {
	Input      string `json:"input"`
	Suggestion string `json:"suggestion"`
	Confidence string `json:"confidence"`
}
