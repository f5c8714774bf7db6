package flow

import (
	"regexp"
	"strings"
)

var (
	// Sentence punctuation ends an image URL only when followed by
	// whitespace or the end of the text, so "a.png.html" is not an image.
	imageURLRe = regexp.MustCompile(`(?i)(https?://\S+?\.(?:png|jpe?g|gif|webp)(?:\?[^\s)\]}>]*)?)(?:[\s)\]}>'"]|[.,!;:](?:\s|$)|$)`)
	anyURLRe   = regexp.MustCompile(`(?i)https?://\S+`)
)

// urlTrim are characters that commonly wrap a URL in prose or markdown.
const urlTrim = "()[]{},. <>"

// ExtractMedia picks the media reference for a generation result. A
// structured reference wins; otherwise the first image URL in the text is
// used, then the first URL of any kind.
func ExtractMedia(res GenerationResult) string {
	if m := strings.TrimSpace(res.MediaReference); m != "" {
		return m
	}
	return scrapeMediaURL(res.Text)
}

func scrapeMediaURL(text string) string {
	if m := imageURLRe.FindStringSubmatch(text); m != nil {
		return strings.Trim(m[1], urlTrim)
	}
	if m := anyURLRe.FindString(text); m != "" {
		return strings.Trim(m, urlTrim)
	}
	return ""
}
