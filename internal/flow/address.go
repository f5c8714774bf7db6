package flow

import (
	"strings"
	"unicode/utf8"
)

// WhatsAppPrefix is the channel prefix the transport expects on addresses.
const WhatsAppPrefix = "whatsapp:"

// NormalizePhone strips any channel prefix ("whatsapp:", "sms:", "tel:") and
// surrounding whitespace from an address.
func NormalizePhone(addr string) string {
	addr = strings.TrimSpace(addr)
	if i := strings.IndexByte(addr, ':'); i >= 0 && isChannel(addr[:i]) {
		addr = addr[i+1:]
	}
	return strings.Join(strings.Fields(addr), "")
}

func isChannel(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// ChannelAddress returns phone in the transport's addressing scheme.
func ChannelAddress(phone string) string {
	if phone == "" {
		return ""
	}
	return WhatsAppPrefix + phone
}

// MaskPhone hides the middle of a phone number for logs.
func MaskPhone(phone string) string {
	n := utf8.RuneCountInString(phone)
	if n <= 6 {
		return strings.Repeat("*", n)
	}
	r := []rune(phone)
	return string(r[:n-7]) + "***" + string(r[n-4:])
}
