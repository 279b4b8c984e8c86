package models

// Rule is a named pattern deciding whether content is kept
type Rule struct {
	ID      string `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	Pattern string `json:"pattern" db:"pattern"`
}

// RuleCreate is the registration request for a rule
type RuleCreate struct {
	Name    string `json:"name" yaml:"name"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

// RuleIDs returns the ids of the given rules in order
func RuleIDs(rules []Rule) []string {
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	return ids
}
