package flow

import (
	"net/netip"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxBodyRunes is the largest body the WhatsApp channel accepts.
const DefaultMaxBodyRunes = 1600

// ShortenedMarker ends every truncated body.
const ShortenedMarker = "...\n\n(Content shortened to fit WhatsApp limits)"

// Truncate returns s unchanged when it fits in limit runes. Longer text is cut
// and suffixed with ShortenedMarker so that the result is at most limit runes.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	marker := []rune(ShortenedMarker)
	keep := limit - len(marker)
	if keep <= 0 {
		return string(marker[:limit])
	}
	head := strings.TrimRightFunc(string([]rune(s)[:keep]), unicode.IsSpace)
	return head + ShortenedMarker
}

// PublicMediaURL reports whether raw is an absolute http(s) URL the transport
// can fetch. Loopback, unspecified and localhost hosts are rejected.
func PublicMediaURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	if s := strings.ToLower(u.Scheme); s != "http" && s != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return false
	}
	if ip, err := netip.ParseAddr(host); err == nil {
		ip = ip.Unmap()
		if ip.IsLoopback() || ip.IsUnspecified() {
			return false
		}
	}
	return true
}
