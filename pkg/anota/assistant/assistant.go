// Package assistant wires the anota process: store, transport, extractor,
// scheduler, the two firing services, the command router, and the ingress.
// Every dependency is injected explicitly here; nothing in the tree holds
// process-wide singletons.
package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dcastillocr/anota/pkg/anota/channels/whatsapp"
	"github.com/dcastillocr/anota/pkg/anota/commands"
	"github.com/dcastillocr/anota/pkg/anota/config"
	"github.com/dcastillocr/anota/pkg/anota/digest"
	"github.com/dcastillocr/anota/pkg/anota/extractor"
	"github.com/dcastillocr/anota/pkg/anota/ingress"
	"github.com/dcastillocr/anota/pkg/anota/reminder"
	"github.com/dcastillocr/anota/pkg/anota/scheduler"
	"github.com/dcastillocr/anota/pkg/anota/store"
)

// Assistant is the assembled process.
type Assistant struct {
	cfg    config.Config
	logger *slog.Logger

	store     *store.SQLite
	sched     *scheduler.Scheduler
	reminders *reminder.Service
	digests   *digest.Service
	ingress   *ingress.Ingress
}

// New builds every component. The context is only used for client setup.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Assistant, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	transport := whatsapp.NewClient(whatsapp.Config{
		BaseURL:       cfg.GraphBaseURL,
		APIVersion:    cfg.GraphAPIVersion,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		AccessToken:   cfg.WhatsAppAccessToken,
		Timeout:       cfg.SendTimeout,
	}, logger)

	gemini, err := extractor.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, loc, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("create extractor: %w", err)
	}

	a := &Assistant{cfg: cfg, logger: logger, store: st}

	// The scheduler's fire handler dispatches to the two firing consumers
	// by payload kind.
	a.sched = scheduler.New(loc, func(ctx context.Context, id string, p scheduler.Payload) {
		switch p.Kind {
		case scheduler.FiringReminder, scheduler.FiringRecurring:
			a.reminders.Fire(ctx, p)
		case scheduler.FiringDigest:
			a.digests.Fire(ctx, p)
		default:
			logger.Warn("firing with unknown payload kind", "trigger_id", id)
		}
	}, logger)

	a.reminders = reminder.New(st, transport, a.sched, loc, logger)
	a.digests = digest.New(st, transport, a.sched, loc, logger)
	router := commands.New(st, transport, a.digests, loc, logger)
	processor := ingress.NewProcessor(st, transport, gemini, a.reminders, a.digests, router, loc, logger)
	a.ingress = ingress.New(ingress.Config{
		Addr:        cfg.HTTPAddr,
		VerifyToken: cfg.WhatsAppVerifyToken,
		Workers:     cfg.Workers,
		QueueSize:   cfg.QueueSize,
	}, processor, logger)

	return a, nil
}

// Run starts everything, rebuilds the trigger table from the store, and
// blocks until ctx is cancelled. Shutdown drains in reverse order within
// the configured grace period.
func (a *Assistant) Run(ctx context.Context) error {
	a.sched.Start(ctx)

	// Triggers live only in memory; reconstruct them from persistent
	// state so reminders survive restarts.
	if err := a.reminders.RestoreAll(ctx); err != nil {
		a.logger.Error("trigger restore failed", "error", err)
	}
	if err := a.digests.ScheduleAllActive(ctx); err != nil {
		a.logger.Error("digest scheduling failed", "error", err)
	}

	a.ingress.Start(ctx)
	a.logger.Info("anota is up", "addr", a.cfg.HTTPAddr, "timezone", a.cfg.Timezone)

	<-ctx.Done()
	a.logger.Info("shutting down")

	a.ingress.Stop(a.cfg.ShutdownGrace)
	a.sched.Stop(a.cfg.ShutdownGrace)
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close", "error", err)
	}
	a.logger.Info("shutdown complete")
	return nil
}
