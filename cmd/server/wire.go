package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/powerpulse-backend/internal/classifier"
	"github.com/tbourn/powerpulse-backend/internal/config"
	"github.com/tbourn/powerpulse-backend/internal/dedupe"
	"github.com/tbourn/powerpulse-backend/internal/dispatch"
	"github.com/tbourn/powerpulse-backend/internal/flow"
	httpapi "github.com/tbourn/powerpulse-backend/internal/http"
	"github.com/tbourn/powerpulse-backend/internal/knowledge"
	"github.com/tbourn/powerpulse-backend/internal/llm"
	"github.com/tbourn/powerpulse-backend/internal/media"
	"github.com/tbourn/powerpulse-backend/internal/repo"
	"github.com/tbourn/powerpulse-backend/internal/services"
	"github.com/tbourn/powerpulse-backend/internal/strategy"
	"github.com/tbourn/powerpulse-backend/internal/worker"
)

// app is the wired service without its HTTP server.
type app struct {
	DB      *gorm.DB
	Router  *flow.Router
	Runner  *worker.Runner
	Claimer dedupe.Claimer

	closers []io.Closer
}

// HTTP returns the collaborators the HTTP layer needs.
func (a *app) HTTP() httpapi.App {
	return httpapi.App{Flow: a.Router, Tasks: a.Runner, Claimer: a.Claimer}
}

// Close releases connections opened by newApp.
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}

// newApp opens storage and builds the routing pipeline from cfg.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	a := &app{DB: db}

	kb, err := loadKnowledge(cfg.KnowledgePath)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	cls, strategies, err := buildStrategies(ctx, cfg, kb)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	disp, err := buildDispatcher(cfg.Twilio)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	fc := flow.DefaultConfig()
	fc.ClassifyTimeout = cfg.Flow.ClassifyTimeout
	fc.GenerateTimeout = cfg.Flow.GenerateTimeout
	fc.PersistTimeout = cfg.Flow.PersistTimeout
	fc.DispatchTimeout = cfg.Flow.DispatchTimeout
	if cfg.Flow.MaxBodyRunes > 0 {
		fc.MaxBodyRunes = cfg.Flow.MaxBodyRunes
	}
	fc.DefaultDestination = cfg.Twilio.DefaultTo

	a.Router, err = flow.NewRouter(fc, flow.Deps{
		Classifier: cls,
		Strategies: strategies,
		Store:      services.NewRecordService(db),
		Dispatcher: disp,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.RedisURL != "" {
		rc, err := dedupe.NewRedis(cfg.RedisURL)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Claimer = rc
		a.closers = append(a.closers, rc)
	} else {
		a.Claimer = dedupe.NewDB(db)
	}

	a.Runner = worker.NewRunner(cfg.Worker.MaxInflight, cfg.Worker.TaskTimeout)

	log.Info().
		Str("llm_provider", cfg.LLM.Provider).
		Bool("dispatch_dry_run", cfg.Twilio.DryRun).
		Bool("redis_dedupe", cfg.RedisURL != "").
		Int("worker_max_inflight", cfg.Worker.MaxInflight).
		Msg("pipeline ready")
	return a, nil
}

func loadKnowledge(path string) (knowledge.Base, error) {
	if path == "" {
		return knowledge.Default(), nil
	}
	kb, err := knowledge.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load knowledge %s: %w", path, err)
	}
	return kb, nil
}

// buildStrategies selects the classifier and the per-category strategies for
// the configured provider. Emergencies always get the fixed advisory.
func buildStrategies(ctx context.Context, cfg config.Config, kb knowledge.Base) (flow.Classifier, map[flow.Category]flow.Strategy, error) {
	var (
		completer llm.Completer
		images    llm.ImageGenerator
	)
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		oa, err := llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:     cfg.LLM.OpenAIKey,
			Model:      cfg.LLM.OpenAIModel,
			ImageModel: cfg.LLM.OpenAIImageModel,
			BaseURL:    cfg.LLM.OpenAIBaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		completer = oa
		if cfg.LLM.ImagesEnabled {
			images = oa
		}
	case config.ProviderGemini:
		gm, err := llm.NewGemini(ctx, llm.GeminiConfig{
			APIKey: cfg.LLM.GeminiKey,
			Model:  cfg.LLM.GeminiModel,
		})
		if err != nil {
			return nil, nil, err
		}
		completer = gm
	default:
		offline := &strategy.Knowledge{Base: kb}
		return classifier.NewKeywords(), map[flow.Category]flow.Strategy{
			flow.Emergency:      strategy.Emergency{},
			flow.TechnicalFault: offline,
			flow.EnergyAdvice:   offline,
		}, nil
	}

	crew := &strategy.Crew{LLM: completer, Knowledge: kb, ContextTips: 3}
	if images != nil {
		crew.Images = images
		crew.Archiver = media.NewArchiver(cfg.MediaRoot, cfg.PublicBaseURL)
	}
	return classifier.NewLLM(completer), map[flow.Category]flow.Strategy{
		flow.Emergency:      strategy.Emergency{},
		flow.TechnicalFault: crew,
		flow.EnergyAdvice:   crew,
	}, nil
}

func buildDispatcher(tc config.TwilioConfig) (flow.Dispatcher, error) {
	if tc.DryRun {
		return dispatch.DryRun{}, nil
	}
	tw, err := dispatch.NewTwilio(tc.AccountSID, tc.AuthToken, tc.WhatsAppFrom)
	if err != nil {
		return nil, err
	}
	return tw, nil
}

// runPurge removes expired inbound claims every interval until ctx ends.
func runPurge(ctx context.Context, d *dedupe.DB, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := d.Purge(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("inbound purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("removed", n).Msg("expired inbound claims purged")
			}
		}
	}
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
