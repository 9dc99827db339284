package advisor

import (
	"fmt"
	"strings"
)

// Diagnosis is the structured DIY advice for a reported symptom.
type Diagnosis struct {
	LikelyCause     string   `json:"likely_cause"`
	DifficultyLevel string   `json:"difficulty_level"`
	EstimatedTime   string   `json:"estimated_time"`
	Steps           []string `json:"steps"`
	SafetyWarning   string   `json:"safety_warning"`
}

// Message renders the diagnosis as the opening assistant message of a chat.
func (d *Diagnosis) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Diagnosis:** %s\n\n", d.LikelyCause)
	if d.DifficultyLevel != "" || d.EstimatedTime != "" {
		fmt.Fprintf(&b, "**Difficulty:** %s (%s)\n\n", orDash(d.DifficultyLevel), orDash(d.EstimatedTime))
	}
	b.WriteString("**Steps:**\n")
	for _, step := range d.Steps {
		fmt.Fprintf(&b, "- %s\n", step)
	}
	if d.SafetyWarning != "" {
		fmt.Fprintf(&b, "\n**Safety:** %s", d.SafetyWarning)
	}
	return strings.TrimRight(b.String(), "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// parseDiagnosis reads model output loosely. When no JSON object can be found
// the whole text becomes the likely cause so the user still sees the answer.
func parseDiagnosis(text string) *Diagnosis {
	m, err := extractJSON(text)
	if err != nil {
		return &Diagnosis{LikelyCause: strings.TrimSpace(text)}
	}

	d := &Diagnosis{
		LikelyCause:     stringField(m, "likely_cause"),
		DifficultyLevel: stringField(m, "difficulty_level"),
		EstimatedTime:   stringField(m, "estimated_time"),
		SafetyWarning:   stringField(m, "safety_warning"),
	}
	switch steps := m["steps"].(type) {
	case []any:
		for _, s := range steps {
			if str, ok := s.(string); ok && strings.TrimSpace(str) != "" {
				d.Steps = append(d.Steps, strings.TrimSpace(str))
			}
		}
	case string:
		for _, line := range strings.Split(steps, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				d.Steps = append(d.Steps, line)
			}
		}
	}
	return d
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}
