package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeClassifier struct {
	reply ClassifierReply
	err   error

	mu  sync.Mutex
	got []ChatMessage
}

func (f *fakeClassifier) Classify(_ context.Context, msgs []ChatMessage) (ClassifierReply, error) {
	f.mu.Lock()
	f.got = msgs
	f.mu.Unlock()
	return f.reply, f.err
}

func labelled(c Category) *fakeClassifier {
	return &fakeClassifier{reply: ClassifierReply{Fields: map[string]any{"category": string(c)}}}
}

type fakeStrategy struct {
	res   GenerationResult
	err   error
	calls atomic.Int32
}

func (f *fakeStrategy) Generate(context.Context, string) (GenerationResult, error) {
	f.calls.Add(1)
	return f.res, f.err
}

type storedInteraction struct {
	ConsumerID string
	ContentID  string
	DeliveryID string
	Interaction
}

// memStore is an in-memory Store. Ticket ids in taken are rejected as
// duplicates.
type memStore struct {
	mu           sync.Mutex
	consumers    map[string]string
	interactions []*storedInteraction
	taken        map[string]bool

	consumerErr error
	createErr   error
	attachErr   error
}

func newMemStore() *memStore {
	return &memStore{consumers: map[string]string{}, taken: map[string]bool{}}
}

func (s *memStore) GetOrCreateConsumer(_ context.Context, phone string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.consumerErr != nil {
		return "", s.consumerErr
	}
	if id, ok := s.consumers[phone]; ok {
		return id, nil
	}
	id := fmt.Sprintf("c-%d", len(s.consumers)+1)
	s.consumers[phone] = id
	return id, nil
}

func (s *memStore) CreateInteraction(_ context.Context, consumerID string, in Interaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	if s.taken[in.TicketID] {
		return "", ErrDuplicateTicketID
	}
	s.taken[in.TicketID] = true
	rec := &storedInteraction{
		ConsumerID:  consumerID,
		ContentID:   fmt.Sprintf("gc-%d", len(s.interactions)+1),
		Interaction: in,
	}
	s.interactions = append(s.interactions, rec)
	return rec.ContentID, nil
}

func (s *memStore) AttachDelivery(_ context.Context, contentID, deliveryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attachErr != nil {
		return s.attachErr
	}
	for _, it := range s.interactions {
		if it.ContentID == contentID {
			it.DeliveryID = deliveryID
			return nil
		}
	}
	return errors.New("content not found")
}

type fakeDispatcher struct {
	mu    sync.Mutex
	sent  []Message
	id    string
	err   error
	block bool
}

func (d *fakeDispatcher) Send(ctx context.Context, m Message) (string, error) {
	d.mu.Lock()
	d.sent = append(d.sent, m)
	d.mu.Unlock()
	if d.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if d.err != nil {
		return "", d.err
	}
	if d.id == "" {
		return "SM0001", nil
	}
	return d.id, nil
}

// fixedIDs returns ids in order, then fails.
func fixedIDs(ids ...string) func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(ids) {
			return "", errors.New("out of ids")
		}
		id := ids[i]
		i++
		return id, nil
	}
}

type harness struct {
	classifier *fakeClassifier
	strategies map[Category]*fakeStrategy
	store      *memStore
	dispatcher *fakeDispatcher
	router     *Router
}

func newHarness(t testing.TB, c *fakeClassifier, mutate func(*Config)) *harness {
	t.Helper()
	h := &harness{
		classifier: c,
		strategies: map[Category]*fakeStrategy{
			Emergency:      {res: GenerationResult{Text: "emergency advisory"}},
			TechnicalFault: {res: GenerationResult{Text: "fault diagnosis"}},
			EnergyAdvice:   {res: GenerationResult{Text: "energy tip"}},
		},
		store:      newMemStore(),
		dispatcher: &fakeDispatcher{},
	}
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	strategies := make(map[Category]Strategy, len(h.strategies))
	for k, v := range h.strategies {
		strategies[k] = v
	}
	r, err := NewRouter(cfg, Deps{
		Classifier: h.classifier,
		Strategies: strategies,
		Store:      h.store,
		Dispatcher: h.dispatcher,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	h.router = r
	return h
}
