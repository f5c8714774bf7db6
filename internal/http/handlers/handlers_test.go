package handlers

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/powerpulse-backend/internal/flow"
	"github.com/tbourn/powerpulse-backend/internal/repo"
	"github.com/tbourn/powerpulse-backend/internal/services"
	"github.com/tbourn/powerpulse-backend/internal/worker"
)

// ---------- test DB ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// seedTicket stores one interaction for phone and returns the ticket id.
func seedTicket(t *testing.T, db *gorm.DB, phone, id string, c flow.Category) string {
	t.Helper()
	ctx := context.Background()
	rs := services.NewRecordService(db)
	cid, err := rs.GetOrCreateConsumer(ctx, phone)
	if err != nil {
		t.Fatalf("consumer: %v", err)
	}
	if _, err := rs.CreateInteraction(ctx, cid, flow.Interaction{
		TicketID: id,
		Query:    "question " + id,
		Category: c,
		Urgency:  c.Urgency(),
		Text:     "answer " + id,
	}); err != nil {
		t.Fatalf("interaction: %v", err)
	}
	return id
}

// ---------- stubs ----------

type stubFlow struct {
	mu    sync.Mutex
	reqs  []flow.Request
	out   flow.Outcome
	err   error
	calls int
}

func (s *stubFlow) Handle(_ context.Context, req flow.Request) (flow.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.reqs = append(s.reqs, req)
	return s.out, s.err
}

type stubTasks struct {
	mu    sync.Mutex
	names []string
	tasks []worker.Task
	ctxs  []context.Context
	err   error
}

func (s *stubTasks) Submit(ctx context.Context, name string, task worker.Task) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	s.tasks = append(s.tasks, task)
	s.ctxs = append(s.ctxs, ctx)
	return nil
}

// newTestEngine wires every handler on a bare gin engine.
func newTestEngine(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/whatsapp/message", h.WhatsAppWebhook)
	api := r.Group("/api")
	api.GET("/tickets", h.ListTickets)
	api.GET("/tickets/:id", h.GetTicket)
	api.PUT("/tickets/:id/status", h.UpdateTicketStatus)
	api.GET("/consumers/:phone", h.GetConsumer)
	api.POST("/flow/run", h.RunFlow)
	return r
}

func newDBHandlers(t *testing.T) (*Handlers, *gorm.DB) {
	t.Helper()
	db := newHandlerDB(t)
	h := New(services.NewTicketService(db), services.NewConsumerService(db), &stubFlow{}, &stubTasks{}, Options{})
	return h, db
}
