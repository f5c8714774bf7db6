// Package classifier provides flow.Classifier implementations: one backed by
// a language model and an offline keyword matcher used when no provider is
// configured.
package classifier

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tbourn/powerpulse-backend/internal/flow"
	"github.com/tbourn/powerpulse-backend/internal/llm"
)

// LLM asks a Completer for the category. The reply is returned as text and,
// when it is a JSON object, also as structured fields.
type LLM struct {
	Completer llm.Completer
}

var _ flow.Classifier = (*LLM)(nil)

// NewLLM wraps c as a classifier.
func NewLLM(c llm.Completer) *LLM { return &LLM{Completer: c} }

// Classify sends msgs in JSON mode and returns the raw reply.
func (l *LLM) Classify(ctx context.Context, msgs []flow.ChatMessage) (flow.ClassifierReply, error) {
	var system []string
	turns := make([]flow.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == flow.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}

	text, err := l.Completer.Complete(ctx, llm.Request{
		System:   strings.Join(system, "\n\n"),
		Messages: turns,
		JSON:     true,
	})
	if err != nil {
		return flow.ClassifierReply{}, err
	}

	reply := flow.ClassifierReply{Text: text}
	var fields map[string]any
	if json.Unmarshal([]byte(strings.TrimSpace(text)), &fields) == nil {
		reply.Fields = fields
	}
	return reply, nil
}
