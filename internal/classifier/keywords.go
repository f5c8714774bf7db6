package classifier

import (
	"context"
	"strings"

	"golang.org/x/text/cases"

	"github.com/tbourn/powerpulse-backend/internal/flow"
)

// Keywords classifies by substring match on the last user message. Emergency
// terms are checked first.
type Keywords struct {
	Rules []Rule
}

// Rule maps any of Terms to Category.
type Rule struct {
	Category flow.Category
	Terms    []string
}

var _ flow.Classifier = (*Keywords)(nil)

// DefaultRules are the offline rules used in development.
var DefaultRules = []Rule{
	{Category: flow.Emergency, Terms: []string{
		"spark", "fire", "smoke", "burning", "burnt", "flame", "shock", "electrocut",
		"explosion", "exploded", "melting", "fallen wire", "live wire", "danger",
	}},
	{Category: flow.TechnicalFault, Terms: []string{
		"outage", "no power", "power cut", "blackout", "meter", "breaker", "tripp",
		"fault", "flicker", "voltage", "not working", "broken", "error code", "fuse",
	}},
}

// NewKeywords returns a Keywords classifier with DefaultRules.
func NewKeywords() *Keywords { return &Keywords{Rules: DefaultRules} }

var fold = cases.Fold()

// Classify never fails. Messages matching no rule get flow.DefaultCategory.
func (k *Keywords) Classify(_ context.Context, msgs []flow.ChatMessage) (flow.ClassifierReply, error) {
	var text string
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == flow.RoleUser {
			text = fold.String(msgs[i].Content)
			break
		}
	}
	category := flow.DefaultCategory
outer:
	for _, r := range k.Rules {
		for _, term := range r.Terms {
			if strings.Contains(text, term) {
				category = r.Category
				break outer
			}
		}
	}
	return flow.ClassifierReply{Fields: map[string]any{"category": string(category)}}, nil
}
