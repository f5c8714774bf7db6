package strategy

import (
	"context"
	"strings"

	"github.com/tbourn/powerpulse-backend/internal/flow"
	"github.com/tbourn/powerpulse-backend/internal/knowledge"
)

// Knowledge answers from the local knowledge base without calling a model.
// It is used when no provider is configured.
type Knowledge struct {
	Base knowledge.Base
	// Tips is the maximum number of paragraphs quoted.
	Tips int
	// Intro heads every reply.
	Intro string
}

var _ flow.Strategy = (*Knowledge)(nil)

const (
	defaultIntro = "⚡ *PowerPulse tips for you*"
	noMatchReply = "Thanks for contacting PowerPulse. We could not find guidance for your message, " +
		"so a specialist will review it and get back to you. For any danger such as sparks or smoke, " +
		"switch off the main breaker and call emergency services."
)

// Generate never fails.
func (k *Knowledge) Generate(_ context.Context, query string) (flow.GenerationResult, error) {
	n := k.Tips
	if n <= 0 {
		n = 2
	}
	var tips []knowledge.Tip
	if k.Base != nil {
		tips = k.Base.Search(query, n)
	}
	if len(tips) == 0 {
		return flow.GenerationResult{Text: noMatchReply}, nil
	}

	intro := k.Intro
	if intro == "" {
		intro = defaultIntro
	}
	var b strings.Builder
	b.WriteString(intro)
	for _, t := range tips {
		b.WriteString("\n\n• ")
		b.WriteString(t.Text)
	}
	return flow.GenerationResult{Text: b.String()}, nil
}
