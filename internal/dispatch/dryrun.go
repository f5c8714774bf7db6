package dispatch

import (
	"context"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/powerpulse-backend/internal/flow"
)

// DryRun logs messages instead of sending them and returns a synthetic id.
type DryRun struct{}

var _ flow.Dispatcher = DryRun{}

// Send logs m at info level.
func (DryRun) Send(ctx context.Context, m flow.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := "DRY" + uuid.NewString()
	log.Ctx(ctx).Info().
		Str("delivery_id", id).
		Str("to", flow.MaskPhone(flow.NormalizePhone(m.To))).
		Int("body_runes", utf8.RuneCountInString(m.Body)).
		Str("media", m.MediaURL).
		Msg("dry-run dispatch")
	return id, nil
}
