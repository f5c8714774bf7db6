package strategy

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/tbourn/powerpulse-backend/internal/knowledge"
	"github.com/tbourn/powerpulse-backend/internal/llm"
)

// scriptedLLM answers each call with the next reply and records requests.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	failAt  int // 1-based call index that fails; 0 never
	reqs    []llm.Request
}

func (s *scriptedLLM) Complete(_ context.Context, r llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, r)
	n := len(s.reqs)
	if n == s.failAt {
		return "", errors.New("provider down")
	}
	if n-1 < len(s.replies) {
		return s.replies[n-1], nil
	}
	return "", errors.New("unexpected call")
}

type fakeImages struct {
	url    string
	err    error
	prompt string
}

func (f *fakeImages) GenerateImage(_ context.Context, p string) (string, error) {
	f.prompt = p
	return f.url, f.err
}

type fakeArchiver struct {
	out string
	err error
}

func (f fakeArchiver) Archive(context.Context, string) (string, error) { return f.out, f.err }

func TestEmergency(t *testing.T) {
	res, err := Emergency{}.Generate(context.Background(), "sparks")
	if err != nil || res.Text != EmergencyAdvisory || res.MediaReference != "" {
		t.Fatalf("unexpected result: %+v err=%v", res, err)
	}
	if !strings.Contains(res.Text, "SHUT OFF the main circuit breaker") {
		t.Fatalf("advisory text changed")
	}
}

func TestCrew_SequentialSteps(t *testing.T) {
	m := &scriptedLLM{replies: []string{"- check breaker", "Draft: reset the breaker", "Final: reset the breaker once."}}
	c := &Crew{LLM: m, Knowledge: knowledge.Default()}

	res, err := c.Generate(context.Background(), "my breaker keeps tripping")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Text != "Final: reset the breaker once." || res.MediaReference != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(m.reqs) != 3 {
		t.Fatalf("expected 3 model calls, got %d", len(m.reqs))
	}
	consult := m.reqs[1].Messages[0].Content
	if !strings.Contains(consult, "- check breaker") || !strings.Contains(consult, "Reference notes") {
		t.Fatalf("advisor prompt must include plan and notes: %q", consult)
	}
	if !strings.Contains(m.reqs[2].Messages[0].Content, "Draft: reset the breaker") {
		t.Fatalf("specialist prompt must include the draft")
	}
}

func TestCrew_StepFailureFailsGeneration(t *testing.T) {
	m := &scriptedLLM{replies: []string{"plan", "draft", "final"}, failAt: 2}
	_, err := (&Crew{LLM: m}).Generate(context.Background(), "q")
	if err == nil || !strings.Contains(err.Error(), "consultation") {
		t.Fatalf("expected consultation step error, got %v", err)
	}
	if len(m.reqs) != 2 {
		t.Fatalf("later steps must not run")
	}
}

func TestCrew_Illustration(t *testing.T) {
	final := "Reset the RCD.\n\n*ILLUSTRATION: a residential RCD panel with the test button*"
	m := &scriptedLLM{replies: []string{"p", "d", final}}
	img := &fakeImages{url: "https://images.test/rcd.png"}
	c := &Crew{LLM: m, Images: img, Archiver: fakeArchiver{out: "https://pp.test/media/generated_images/rcd.png"}}

	res, err := c.Generate(context.Background(), "rcd trips")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Text != "Reset the RCD." {
		t.Fatalf("illustration line must be removed, got %q", res.Text)
	}
	if res.MediaReference != "https://pp.test/media/generated_images/rcd.png" {
		t.Fatalf("unexpected media %q", res.MediaReference)
	}
	if !strings.Contains(img.prompt, "a residential RCD panel") || !strings.HasPrefix(img.prompt, "Professional technical illustration of:") {
		t.Fatalf("unexpected image prompt %q", img.prompt)
	}
}

func TestCrew_IllustrationFallbacks(t *testing.T) {
	final := "Text.\nILLUSTRATION: meter"

	// archive failure keeps the provider URL
	m := &scriptedLLM{replies: []string{"p", "d", final}}
	c := &Crew{LLM: m, Images: &fakeImages{url: "https://images.test/m.png"}, Archiver: fakeArchiver{err: errors.New("disk")}}
	res, _ := c.Generate(context.Background(), "q")
	if res.MediaReference != "https://images.test/m.png" {
		t.Fatalf("expected provider url, got %q", res.MediaReference)
	}

	// image failure drops the media but keeps the text
	m = &scriptedLLM{replies: []string{"p", "d", final}}
	c = &Crew{LLM: m, Images: &fakeImages{err: errors.New("content policy")}}
	res, err := c.Generate(context.Background(), "q")
	if err != nil || res.Text != "Text." || res.MediaReference != "" {
		t.Fatalf("unexpected result: %+v err=%v", res, err)
	}

	// images disabled: line removed, no media
	m = &scriptedLLM{replies: []string{"p", "d", final}}
	res, _ = (&Crew{LLM: m}).Generate(context.Background(), "q")
	if res.Text != "Text." || res.MediaReference != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestSplitIllustration(t *testing.T) {
	text, desc := splitIllustration("a\nillustration: one\nb\nILLUSTRATION: two")
	if text != "a\nb" || desc != "one" {
		t.Fatalf("got %q / %q", text, desc)
	}
	text, desc = splitIllustration("no request here")
	if text != "no request here" || desc != "" {
		t.Fatalf("got %q / %q", text, desc)
	}
}

func TestKnowledgeStrategy(t *testing.T) {
	k := &Knowledge{Base: knowledge.Default()}
	res, err := k.Generate(context.Background(), "how can I save energy with my water heater")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(res.Text, defaultIntro) || !strings.Contains(strings.ToLower(res.Text), "water heater") {
		t.Fatalf("unexpected reply %q", res.Text)
	}

	res, _ = k.Generate(context.Background(), "zxqv")
	if res.Text != noMatchReply {
		t.Fatalf("expected fallback reply, got %q", res.Text)
	}

	res, _ = (&Knowledge{}).Generate(context.Background(), "anything")
	if res.Text != noMatchReply {
		t.Fatalf("nil base must fall back")
	}
}
