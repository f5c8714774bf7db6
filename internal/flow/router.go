package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "flow/Router"

// Config holds router limits. Zero durations disable the matching stage
// timeout.
type Config struct {
	ClassifyTimeout time.Duration
	GenerateTimeout time.Duration
	PersistTimeout  time.Duration
	DispatchTimeout time.Duration

	// MaxBodyRunes caps the outbound body, ShortenedMarker included.
	MaxBodyRunes int

	// DefaultDestination is used when a request carries no address.
	DefaultDestination string

	// MaxTicketAttempts bounds retries on ticket id collisions.
	MaxTicketAttempts int

	// NewTicketID generates ticket references. Defaults to NewTicketID.
	NewTicketID func() (string, error)
}

// DefaultConfig returns the production limits.
func DefaultConfig() Config {
	return Config{
		ClassifyTimeout:   20 * time.Second,
		GenerateTimeout:   120 * time.Second,
		PersistTimeout:    5 * time.Second,
		DispatchTimeout:   30 * time.Second,
		MaxBodyRunes:      DefaultMaxBodyRunes,
		MaxTicketAttempts: 5,
		NewTicketID:       NewTicketID,
	}
}

// Deps are the router's collaborators. Strategies must cover every Category.
type Deps struct {
	Classifier Classifier
	Strategies map[Category]Strategy
	Store      Store
	Dispatcher Dispatcher
}

// Router runs the request lifecycle. It holds no per-request state and is
// safe for concurrent use.
type Router struct {
	cfg        Config
	classifier Classifier
	strategies map[Category]Strategy
	store      Store
	dispatcher Dispatcher
}

// NewRouter validates deps and returns a Router.
func NewRouter(cfg Config, d Deps) (*Router, error) {
	if d.Classifier == nil || d.Store == nil || d.Dispatcher == nil {
		return nil, errors.New("flow: classifier, store and dispatcher are required")
	}
	strategies := make(map[Category]Strategy, len(Categories))
	for _, c := range Categories {
		s, ok := d.Strategies[c]
		if !ok || s == nil {
			return nil, fmt.Errorf("%w: %s", ErrStrategyMissing, c)
		}
		strategies[c] = s
	}
	if cfg.NewTicketID == nil {
		cfg.NewTicketID = NewTicketID
	}
	if cfg.MaxTicketAttempts <= 0 {
		cfg.MaxTicketAttempts = 1
	}
	if cfg.MaxBodyRunes <= 0 {
		cfg.MaxBodyRunes = DefaultMaxBodyRunes
	}
	return &Router{
		cfg:        cfg,
		classifier: d.Classifier,
		strategies: strategies,
		store:      d.Store,
		dispatcher: d.Dispatcher,
	}, nil
}

// Handle takes req through classify, generate, persist and dispatch.
//
// Classification and persistence failures are absorbed: the category falls
// back to DefaultCategory and the reply goes out without a ticket reference.
// A strategy failure ends the request in StateFailed with FailedStage
// StateGenerating; nothing is stored or sent and the error wraps
// ErrGenerationFailed. A dispatch failure is reported in Outcome.Delivery
// with a nil error. The dispatcher is called at most once.
func (r *Router) Handle(ctx context.Context, req Request) (Outcome, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Handle",
		trace.WithAttributes(attribute.String("message.id", req.MessageID)),
	)
	defer span.End()

	dest := strings.TrimSpace(req.Destination)
	if dest == "" {
		dest = r.cfg.DefaultDestination
	}
	phone := NormalizePhone(dest)

	lg := loggerFrom(ctx).With().
		Str("message_id", req.MessageID).
		Str("to", MaskPhone(phone)).
		Logger()
	ctx = lg.WithContext(ctx)

	out := Outcome{Trail: make([]State, 0, 9)}
	out.advance(StateReceived)
	defer func() {
		flowOutcomes.WithLabelValues(out.Category.String(), string(out.State)).Inc()
		span.SetAttributes(attribute.String("flow.state", string(out.State)))
	}()

	// 1. Classify
	out.Category, out.ClassificationDegraded = r.classify(ctx, req.RawText)
	out.advance(StateClassified)
	span.SetAttributes(
		attribute.String("flow.category", out.Category.String()),
		attribute.Bool("flow.classification_degraded", out.ClassificationDegraded),
	)
	lg = lg.With().Str("category", out.Category.String()).Logger()
	ctx = lg.WithContext(ctx)

	// 2-3. Route and generate
	out.advance(StateGenerating)
	res, err := r.generate(ctx, r.strategies[out.Category], req.RawText)
	if err != nil {
		out.fail(StateGenerating)
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		lg.Error().Err(err).Str("stage", "generate").Msg("strategy failed; no reply sent")
		return out, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	out.Text = res.Text
	out.MediaReference = ExtractMedia(res)
	out.advance(StateGenerated)

	// 4. Persist
	contentID, ticketID, err := r.persist(ctx, phone, req.RawText, out)
	if err != nil {
		out.PersistError = err.Error()
		flowDegradations.WithLabelValues(degradePersistence).Inc()
		lg.Error().Err(err).Str("stage", "persist").Msg("interaction not stored; replying without reference")
	} else {
		out.TicketID = ticketID
		out.advance(StatePersisted)
		lg = lg.With().Str("ticket_id", ticketID).Logger()
		ctx = lg.WithContext(ctx)
	}

	// 5. Dispatch
	out.advance(StateDispatching)
	var sent Message
	out.Delivery, sent = r.dispatch(ctx, phone, out)
	out.MediaReference = sent.MediaURL
	out.Body = sent.Body
	switch out.Delivery.Status {
	case DeliverySent:
		out.advance(StateDispatched)
		if contentID != "" {
			r.attachDelivery(ctx, contentID, out.Delivery.ID)
		}
		out.advance(StateDone)
	case DeliverySkipped:
		out.advance(StateDone)
	default:
		out.fail(StateDispatching)
		span.SetStatus(codes.Error, "dispatch failed")
	}
	return out, nil
}

func (r *Router) classify(ctx context.Context, text string) (Category, bool) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "classify")
	defer span.End()
	defer observeStage("classify", time.Now())

	ctx, cancel := withTimeout(ctx, r.cfg.ClassifyTimeout)
	defer cancel()

	lg := loggerFrom(ctx)
	reply, err := r.classifier.Classify(ctx, ClassifierMessages(text))
	if err != nil {
		span.RecordError(err)
		flowDegradations.WithLabelValues(degradeClassification).Inc()
		lg.Warn().Err(err).Str("stage", "classify").Msg("classifier failed; using default category")
		return DefaultCategory, true
	}
	c, ok := ParseClassifierReply(reply)
	if !ok {
		flowDegradations.WithLabelValues(degradeClassification).Inc()
		lg.Warn().Str("stage", "classify").Str("reply", clip(reply.Text, 120)).
			Msg("unparseable classification; using default category")
		return DefaultCategory, true
	}
	return c, false
}

func (r *Router) generate(ctx context.Context, s Strategy, query string) (res GenerationResult, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "generate")
	defer span.End()
	defer observeStage("generate", time.Now())

	ctx, cancel := withTimeout(ctx, r.cfg.GenerateTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("strategy panic: %v", p)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()
	return s.Generate(ctx, query)
}

// persist stores the consumer, ticket and content. It returns the content id
// and the ticket id that was stored.
func (r *Router) persist(ctx context.Context, phone, query string, out Outcome) (contentID, ticketID string, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "persist")
	defer span.End()
	defer observeStage("persist", time.Now())
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "persist failed")
		}
	}()

	if phone == "" {
		return "", "", ErrNoDestination
	}

	ctx, cancel := withTimeout(ctx, r.cfg.PersistTimeout)
	defer cancel()

	consumerID, err := r.store.GetOrCreateConsumer(ctx, phone)
	if err != nil {
		return "", "", fmt.Errorf("resolve consumer: %w", err)
	}

	in := Interaction{
		Query:          query,
		Category:       out.Category,
		Urgency:        out.Category.Urgency(),
		Text:           out.Text,
		MediaReference: out.MediaReference,
	}
	for attempt := 1; attempt <= r.cfg.MaxTicketAttempts; attempt++ {
		if in.TicketID, err = r.cfg.NewTicketID(); err != nil {
			return "", "", fmt.Errorf("ticket id: %w", err)
		}
		contentID, err = r.store.CreateInteraction(ctx, consumerID, in)
		if err == nil {
			span.SetAttributes(attribute.String("ticket.id", in.TicketID), attribute.Int("ticket.attempts", attempt))
			return contentID, in.TicketID, nil
		}
		if !errors.Is(err, ErrDuplicateTicketID) {
			return "", "", fmt.Errorf("create interaction: %w", err)
		}
		loggerFrom(ctx).Debug().Str("ticket_id", in.TicketID).Int("attempt", attempt).Msg("ticket id collision")
	}
	return "", "", fmt.Errorf("create interaction after %d attempts: %w", r.cfg.MaxTicketAttempts, err)
}

// dispatch sends the reply and returns the message as handed to the
// dispatcher. The message is empty when nothing was sent.
func (r *Router) dispatch(ctx context.Context, phone string, out Outcome) (Delivery, Message) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "dispatch")
	defer span.End()
	defer observeStage("dispatch", time.Now())

	lg := loggerFrom(ctx)

	media := out.MediaReference
	if media != "" && !PublicMediaURL(media) {
		flowDegradations.WithLabelValues(degradeMedia).Inc()
		lg.Warn().Str("media", media).Msg("media reference is not publicly reachable; sending text only")
		media = ""
	}

	if strings.TrimSpace(out.Text) == "" && media == "" {
		dispatchResults.WithLabelValues(string(DeliverySkipped)).Inc()
		lg.Info().Str("stage", "dispatch").Msg("nothing to send; dispatch skipped")
		return Delivery{Status: DeliverySkipped, Err: ErrEmptyPayload, Cause: ErrEmptyPayload.Error()}, Message{}
	}

	if phone == "" {
		dispatchResults.WithLabelValues(string(DeliveryFailed)).Inc()
		lg.Error().Str("stage", "dispatch").Msg("no destination address")
		return Delivery{Status: DeliveryFailed, Err: ErrNoDestination, Cause: ErrNoDestination.Error()}, Message{}
	}

	body := out.Text
	if out.TicketID != "" {
		body = RefPrefix(out.TicketID) + body
	}
	msg := Message{
		To:       ChannelAddress(phone),
		Body:     Truncate(body, r.cfg.MaxBodyRunes),
		MediaURL: media,
	}

	ctx, cancel := withTimeout(ctx, r.cfg.DispatchTimeout)
	defer cancel()

	id, err := r.dispatcher.Send(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
		dispatchResults.WithLabelValues(string(DeliveryFailed)).Inc()
		lg.Error().Err(err).Str("stage", "dispatch").Msg("reply not delivered")
		return Delivery{Status: DeliveryFailed, Err: err, Cause: err.Error()}, msg
	}
	span.SetAttributes(attribute.String("delivery.id", id))
	dispatchResults.WithLabelValues(string(DeliverySent)).Inc()
	lg.Info().Str("delivery_id", id).Bool("media", media != "").Msg("reply sent")
	return Delivery{Status: DeliverySent, ID: id}, msg
}

func (r *Router) attachDelivery(ctx context.Context, contentID, deliveryID string) {
	ctx, cancel := withTimeout(ctx, r.cfg.PersistTimeout)
	defer cancel()
	if err := r.store.AttachDelivery(ctx, contentID, deliveryID); err != nil {
		flowDegradations.WithLabelValues(degradeDeliveryRecord).Inc()
		loggerFrom(ctx).Error().Err(err).Str("stage", "persist").Msg("delivery id not recorded")
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// loggerFrom returns the logger carried by ctx, or the global logger.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

func clip(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "…"
	}
	return s
}
