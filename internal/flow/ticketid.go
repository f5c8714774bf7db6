package flow

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// TicketPrefix marks ticket references shown to consumers.
const TicketPrefix = "TIC-"

// NewTicketID returns a short random reference such as "TIC-3FA9C1".
func NewTicketID() (string, error) {
	var b [3]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return TicketPrefix + strings.ToUpper(hex.EncodeToString(b[:])), nil
}

// RefPrefix is prepended to a reply once its ticket has been stored.
func RefPrefix(ticketID string) string {
	return "*Ref ID: " + ticketID + "*\n\n"
}
