package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/powerpulse-backend/internal/flow"
	"github.com/tbourn/powerpulse-backend/internal/knowledge"
	"github.com/tbourn/powerpulse-backend/internal/llm"
)

// Archiver copies a generated image to storage the transport can reach and
// returns the new URL.
type Archiver interface {
	Archive(ctx context.Context, url string) (string, error)
}

// Crew answers faults and energy questions in three sequential model calls:
// a planner outlines the answer, an advisor drafts it, and a technical
// specialist produces the final WhatsApp reply. When the specialist asks for
// an illustration and Images is set, one image is generated and returned as
// the structured media reference.
type Crew struct {
	LLM       llm.Completer
	Images    llm.ImageGenerator
	Archiver  Archiver
	Knowledge knowledge.Base

	// ContextTips is the number of knowledge paragraphs given to the advisor.
	ContextTips int
}

var _ flow.Strategy = (*Crew)(nil)

// illustrationTag starts the line the specialist uses to request an image.
const illustrationTag = "ILLUSTRATION:"

type crewStep struct {
	name   string
	system string
	prompt func(query, plan, draft, tips string) string
}

var crewSteps = []crewStep{
	{
		name: "planning",
		system: "You are the PowerPulse Energy Planner at an electricity utility. " +
			"Read the consumer's message and write a short plan (at most 5 bullet points) " +
			"of what the reply must cover. Do not answer the consumer directly.",
		prompt: func(q, _, _, _ string) string {
			return "Consumer message:\n" + q
		},
	},
	{
		name: "consultation",
		system: "You are the PowerPulse Energy Advisor. Write practical, friendly guidance " +
			"for the consumer following the plan. Prefer concrete steps and numbers. " +
			"Use the reference notes when they are relevant.",
		prompt: func(q, plan, _, tips string) string {
			var b strings.Builder
			b.WriteString("Consumer message:\n" + q + "\n\nPlan:\n" + plan)
			if tips != "" {
				b.WriteString("\n\nReference notes:\n" + tips)
			}
			return b.String()
		},
	},
	{
		name: "diagnosis",
		system: "You are the PowerPulse Technical Specialist. Check the advisor's draft for " +
			"technical accuracy and safety, then write the final WhatsApp reply: plain text, " +
			"short paragraphs, WhatsApp *bold* only, under 1200 characters. " +
			"If a diagram would clearly help, add one last line starting with '" + illustrationTag +
			"' followed by a one-sentence description of the image. Otherwise do not add it.",
		prompt: func(q, _, draft, _ string) string {
			return "Consumer message:\n" + q + "\n\nAdvisor draft:\n" + draft
		},
	},
}

// Generate runs the three steps in order. Any step failure fails the whole
// generation; an image failure only drops the media.
func (c *Crew) Generate(ctx context.Context, query string) (flow.GenerationResult, error) {
	tr := otel.Tracer("strategy/Crew")
	ctx, span := tr.Start(ctx, "Generate")
	defer span.End()

	tips := c.referenceNotes(query)

	var plan, draft, final string
	for _, step := range crewSteps {
		out, err := c.runStep(ctx, step, step.prompt(query, plan, draft, tips))
		if err != nil {
			span.RecordError(err)
			return flow.GenerationResult{}, fmt.Errorf("crew %s step: %w", step.name, err)
		}
		switch step.name {
		case "planning":
			plan = out
		case "consultation":
			draft = out
		default:
			final = out
		}
	}

	text, illustration := splitIllustration(final)
	res := flow.GenerationResult{Text: text}
	if illustration != "" && c.Images != nil {
		res.MediaReference = c.illustrate(ctx, illustration)
	}
	span.SetAttributes(attribute.Bool("crew.media", res.MediaReference != ""))
	return res, nil
}

func (c *Crew) runStep(ctx context.Context, step crewStep, prompt string) (string, error) {
	ctx, span := otel.Tracer("strategy/Crew").Start(ctx, step.name,
		trace.WithAttributes(attribute.Int("prompt.runes", len([]rune(prompt)))),
	)
	defer span.End()

	out, err := c.LLM.Complete(ctx, llm.Request{
		System:   step.system,
		Messages: []flow.ChatMessage{{Role: flow.RoleUser, Content: prompt}},
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (c *Crew) referenceNotes(query string) string {
	if c.Knowledge == nil {
		return ""
	}
	k := c.ContextTips
	if k <= 0 {
		k = 3
	}
	var b strings.Builder
	for _, t := range c.Knowledge.Search(query, k) {
		b.WriteString("- ")
		if t.Section != "" {
			b.WriteString(t.Section + ": ")
		}
		b.WriteString(t.Text)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

// illustrate returns "" when the image could not be produced.
func (c *Crew) illustrate(ctx context.Context, description string) string {
	lg := log.Ctx(ctx)
	prompt := "Professional technical illustration of: " + description +
		". Minimalist, safe, and educational style."
	url, err := c.Images.GenerateImage(ctx, prompt)
	if err != nil {
		lg.Warn().Err(err).Msg("illustration failed; replying with text only")
		return ""
	}
	if c.Archiver == nil {
		return url
	}
	local, err := c.Archiver.Archive(ctx, url)
	if err != nil {
		lg.Warn().Err(err).Msg("image archive failed; using provider url")
		return url
	}
	return local
}

// splitIllustration removes the illustration request line from text and
// returns its description.
func splitIllustration(text string) (string, string) {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	var desc string
	for _, l := range lines {
		t := strings.TrimSpace(strings.Trim(strings.TrimSpace(l), "*_"))
		if len(t) >= len(illustrationTag) && strings.EqualFold(t[:len(illustrationTag)], illustrationTag) {
			if desc == "" {
				desc = strings.TrimSpace(t[len(illustrationTag):])
			}
			continue
		}
		kept = append(kept, l)
	}
	return strings.TrimSpace(strings.Join(kept, "\n")), desc
}
