package knowledge

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type boomReader struct{}

func (boomReader) Read(_ []byte) (int, error) { return 0, errors.New("boom") }

const sample = `# Tips

## Water heating

Set the water heater thermostat to 60 degrees and use a timer to avoid heating water all day.

## Lighting

Replace old bulbs with LED lamps to cut lighting costs by 80 percent.

short
`

func TestSearch_RanksRelevantParagraph(t *testing.T) {
	b, err := FromReader(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("FromReader: %v", err)
	}
	got := b.Search("How do I save on my water heater?", 2)
	if len(got) == 0 {
		t.Fatalf("expected results")
	}
	if got[0].Section != "Water heating" {
		t.Fatalf("expected water heating first, got %+v", got[0])
	}
	if got[0].Score <= 0 {
		t.Fatalf("score must be positive")
	}
}

func TestSearch_HeadingBonusAndStemming(t *testing.T) {
	b, _ := FromReader(strings.NewReader(sample))
	got := b.Search("lighting bulbs", 1)
	if len(got) != 1 || got[0].Section != "Lighting" {
		t.Fatalf("expected lighting section, got %+v", got)
	}
}

func TestSearch_EmptyAndUnknown(t *testing.T) {
	b, _ := FromReader(strings.NewReader(sample))
	if got := b.Search("   ", 3); got != nil {
		t.Fatalf("blank query must return nil")
	}
	if got := b.Search("the and of", 3); got != nil {
		t.Fatalf("stop-word-only query must return nil")
	}
	if got := b.Search("quantum chromodynamics", 3); len(got) != 0 {
		t.Fatalf("unrelated query must return nothing, got %+v", got)
	}
}

func TestFromReader_DropsShortParagraphs(t *testing.T) {
	b, _ := FromReader(strings.NewReader(sample))
	for _, tip := range b.Search("short", 5) {
		if tip.Text == "short" {
			t.Fatalf("paragraph below the minimum length must be dropped")
		}
	}
	b, _ = FromReader(strings.NewReader(sample), WithMinParagraphRunes(0))
	if got := b.Search("short", 5); len(got) != 1 {
		t.Fatalf("expected short paragraph when limit disabled, got %+v", got)
	}
}

func TestFromReader_ReaderError(t *testing.T) {
	b, err := FromReader(boomReader{})
	if err == nil {
		t.Fatalf("expected reader error")
	}
	if got := b.Search("anything", 3); got != nil {
		t.Fatalf("empty base must return nil")
	}
}

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tips.md")
	if err := os.WriteFile(p, []byte(sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDefault_CoversCategories(t *testing.T) {
	b := Default()
	for _, q := range []string{"sparks from socket", "breaker keeps tripping", "reduce my bill water heater", "meter display blank"} {
		if got := b.Search(q, 1); len(got) == 0 {
			t.Fatalf("default knowledge has nothing for %q", q)
		}
	}
}

func TestFlattenTables(t *testing.T) {
	in := "intro\n\n| Appliance | Monthly use |\n|---|:---:|\n| Fridge | 60 kWh |\n| Heater |  |\n\nafter\n"
	out := string(flattenTables([]byte(in)))
	if !strings.Contains(out, "Fridge: Monthly use 60 kWh") {
		t.Fatalf("row not flattened: %q", out)
	}
	if !strings.Contains(out, "Heater\n") {
		t.Fatalf("row with empty cells should keep its first cell: %q", out)
	}
	if strings.Contains(out, "---") || strings.Contains(out, "| Appliance") {
		t.Fatalf("header and separator rows must be removed: %q", out)
	}
	if !strings.HasPrefix(out, "intro") || !strings.Contains(out, "after") {
		t.Fatalf("surrounding text lost: %q", out)
	}

	plain := []byte("no tables here\n")
	if got := flattenTables(plain); string(got) != string(plain) {
		t.Fatalf("input without tables must be unchanged")
	}
}

func TestOptions(t *testing.T) {
	cfg := defaultConfig()
	WithMinParagraphRunes(-1)(&cfg)
	if cfg.minParagraphRunes != 20 {
		t.Fatalf("negative min runes should be ignored")
	}
	WithStopwords(nil)(&cfg)
	if len(cfg.stopwords) != 0 {
		t.Fatalf("empty stop-word list should disable removal")
	}
	WithHeadingBonus(1.5)(&cfg)
	if cfg.headingBonus != 1.5 {
		t.Fatalf("WithHeadingBonus failed")
	}
}
