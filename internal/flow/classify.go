package flow

import (
	"encoding/json"
	"strings"
)

// classifierInstruction is sent as the system message of every
// classification call.
const classifierInstruction = "You are a Power Systems Dispatcher. " +
	"Categorize the input into: 'emergency', 'technical_fault', or 'energy_advice'. " +
	"Return ONLY a JSON object: {'category': '...'}"

// ClassifierMessages builds the role-tagged conversation sent to a Classifier.
func ClassifierMessages(text string) []ChatMessage {
	return []ChatMessage{
		{Role: RoleSystem, Content: classifierInstruction},
		{Role: RoleUser, Content: text},
	}
}

// ParseClassifierReply extracts a category from either representation a
// classifier may return: a structured object with a "category" field, or
// free text holding JSON, single-quoted pseudo-JSON, or a bare label.
func ParseClassifierReply(r ClassifierReply) (Category, bool) {
	if v, ok := r.Fields["category"]; ok {
		if s, ok := v.(string); ok {
			if c, ok := ParseCategory(s); ok {
				return c, true
			}
		}
	}

	text := stripCodeFence(strings.TrimSpace(r.Text))
	if text == "" {
		return "", false
	}
	if obj := jsonObject(text); obj != "" {
		for _, cand := range []string{obj, strings.ReplaceAll(obj, "'", `"`)} {
			var m map[string]any
			if err := json.Unmarshal([]byte(cand), &m); err != nil {
				continue
			}
			if s, ok := m["category"].(string); ok {
				return ParseCategory(s)
			}
			return "", false
		}
	}
	return ParseCategory(text)
}

// jsonObject returns the outermost {...} span of s, if any.
func jsonObject(s string) string {
	i := strings.IndexByte(s, '{')
	j := strings.LastIndexByte(s, '}')
	if i < 0 || j <= i {
		return ""
	}
	return s[i : j+1]
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
