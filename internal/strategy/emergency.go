// Package strategy implements the content strategies selected by the router:
// a fixed safety advisory for emergencies, a multi-step language-model crew
// for faults and advice, and an offline knowledge-base responder.
package strategy

import (
	"context"

	"github.com/tbourn/powerpulse-backend/internal/flow"
)

// EmergencyAdvisory is sent verbatim for every emergency.
const EmergencyAdvisory = "🚨 *URGENT WARNING FROM POWERPULSE AI* 🚨\n\n" +
	"Dangerous electrical condition detected!\n" +
	"1. SHUT OFF the main circuit breaker immediately.\n" +
	"2. Evacuate the area.\n" +
	"3. Contact emergency services or a certified electrician."

// Emergency returns EmergencyAdvisory without calling any provider.
type Emergency struct{}

var _ flow.Strategy = Emergency{}

// Generate never fails and never returns media.
func (Emergency) Generate(context.Context, string) (flow.GenerationResult, error) {
	return flow.GenerationResult{Text: EmergencyAdvisory}, nil
}
