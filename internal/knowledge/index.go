// Package knowledge provides the in-memory energy knowledge base the content
// strategies draw on. Tips are loaded from a Markdown file, split into
// paragraphs and tagged with the heading they appear under, then ranked
// against a consumer's question by token overlap.
//
// The index is immutable after construction and safe for concurrent use. It
// does no logging; callers decide what to report.
//
// Scoring is Jaccard similarity between the query tokens and the paragraph
// tokens, plus a bonus when query tokens also appear in the section heading.
package knowledge

import (
	"bytes"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Tip is a ranked paragraph with the section it came from.
type Tip struct {
	Section string
	Text    string
	Score   float64
}

// Base is the query interface implemented by the index.
type Base interface {
	Search(query string, k int) []Tip
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	minParagraphRunes int
	stopwords         map[string]struct{}
	headingBonus      float64
}

func defaultConfig() config {
	return config{
		minParagraphRunes: 20,
		stopwords:         setOf(defaultStopwords),
		headingBonus:      0.25,
	}
}

// WithMinParagraphRunes drops paragraphs shorter than n runes.
func WithMinParagraphRunes(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minParagraphRunes = n
		}
	}
}

// WithStopwords replaces the default stop-word list. An empty list disables
// stop-word removal.
func WithStopwords(words []string) Option {
	return func(c *config) {
		c.stopwords = setOf(words)
	}
}

// WithHeadingBonus sets the weight of heading matches.
func WithHeadingBonus(w float64) Option {
	return func(c *config) {
		if w >= 0 {
			c.headingBonus = w
		}
	}
}

var defaultStopwords = []string{
	"a", "an", "and", "are", "at", "be", "can", "do", "does", "for", "from", "how",
	"i", "in", "is", "it", "me", "my", "of", "on", "or", "should", "the", "to",
	"what", "when", "why", "with", "you", "your",
}

// ----------------------------------------------------------------------------
// Implementation

type entry struct {
	section    string
	text       string
	tokens     map[string]struct{}
	headTokens map[string]struct{}
}

type index struct {
	cfg     config
	entries []entry
}

// Load builds a Base from the Markdown file at path.
func Load(path string, opts ...Option) (Base, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return &index{cfg: defaultConfig()}, err
	}
	return FromReader(bytes.NewReader(b), opts...)
}

// FromReader builds a Base from Markdown read from r.
func FromReader(r io.Reader, opts ...Option) (Base, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	all, err := io.ReadAll(r)
	if err != nil {
		return &index{cfg: cfg}, err
	}
	return build(sections(flattenTables(all)), cfg), nil
}

// Default returns the knowledge base compiled into the binary.
func Default() Base {
	b, _ := FromReader(strings.NewReader(defaultTips))
	return b
}

type section struct {
	heading string
	paras   []string
}

var headingRE = regexp.MustCompile(`^#{1,6}\s+(.*)$`)

// sections splits Markdown into blank-line separated paragraphs, each owned
// by the nearest preceding heading.
func sections(src []byte) []section {
	var out []section
	cur := section{}
	var para []string
	flush := func() {
		if len(para) > 0 {
			cur.paras = append(cur.paras, strings.Join(para, " "))
			para = nil
		}
	}
	for _, line := range strings.Split(string(src), "\n") {
		line = strings.TrimSpace(line)
		if m := headingRE.FindStringSubmatch(line); m != nil {
			flush()
			if len(cur.paras) > 0 {
				out = append(out, cur)
			}
			cur = section{heading: strings.TrimSpace(m[1])}
			continue
		}
		if line == "" {
			flush()
			continue
		}
		para = append(para, strings.TrimLeft(line, "-*• "))
	}
	flush()
	if len(cur.paras) > 0 {
		out = append(out, cur)
	}
	return out
}

func build(secs []section, cfg config) *index {
	var entries []entry
	for _, s := range secs {
		head := tokenize(s.heading, cfg.stopwords)
		for _, p := range s.paras {
			t := strings.TrimSpace(collapseSpaces(p))
			if t == "" || utf8.RuneCountInString(t) < cfg.minParagraphRunes {
				continue
			}
			toks := tokenize(t, cfg.stopwords)
			if len(toks) == 0 {
				continue
			}
			entries = append(entries, entry{section: s.heading, text: t, tokens: toks, headTokens: head})
		}
	}
	return &index{cfg: cfg, entries: entries}
}

// Search returns up to k tips ranked by relevance to query. Ties prefer the
// shorter paragraph, then lexical order, so results are deterministic.
func (ix *index) Search(query string, k int) []Tip {
	if len(ix.entries) == 0 || strings.TrimSpace(query) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	q := tokenize(query, ix.cfg.stopwords)
	if len(q) == 0 {
		return nil
	}

	out := make([]Tip, 0, k*2)
	for _, e := range ix.entries {
		over := overlap(q, e.tokens)
		headOver := overlap(q, e.headTokens)
		if over == 0 && headOver == 0 {
			continue
		}
		score := float64(over) / float64(len(q)+len(e.tokens)-over)
		if headOver > 0 {
			score += ix.cfg.headingBonus * float64(headOver) / float64(len(q))
		}
		out = append(out, Tip{Section: e.section, Text: e.text, Score: score})
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		la, lb := utf8.RuneCountInString(out[a].Text), utf8.RuneCountInString(out[b].Text)
		if la != lb {
			return la < lb
		}
		return out[a].Text < out[b].Text
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*|\p{N}+`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(strings.ToLower(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, skip := stop[w]; skip {
			continue
		}
		out[stem(w)] = struct{}{}
	}
	return out
}

// stem trims a plural "s" so "appliances" matches "appliance".
func stem(w string) string {
	if len(w) > 4 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
		return w[:len(w)-1]
	}
	return w
}

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func setOf(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			m[w] = struct{}{}
		}
	}
	return m
}

var spaceRE = regexp.MustCompile(`[ \t\r]+`)

func collapseSpaces(s string) string { return spaceRE.ReplaceAllString(s, " ") }
