// Package reminder schedules and fires user reminders. Scheduling turns an
// entry into a trigger; firing re-reads the entry, composes the message, and
// completes one-shot reminders after a successful send.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dcastillocr/anota/pkg/anota/channels"
	"github.com/dcastillocr/anota/pkg/anota/domain"
	"github.com/dcastillocr/anota/pkg/anota/scheduler"
	"github.com/dcastillocr/anota/pkg/anota/store"
)

// Service owns the reminder side of the trigger table.
type Service struct {
	store     store.Store
	transport channels.Transport
	sched     *scheduler.Scheduler
	loc       *time.Location
	logger    *slog.Logger
}

// New creates the reminder service.
func New(st store.Store, tr channels.Transport, sched *scheduler.Scheduler, loc *time.Location, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     st,
		transport: tr,
		sched:     sched,
		loc:       loc,
		logger:    logger.With("component", "reminder"),
	}
}

// Schedule arms the trigger for an entry. One-shot reminders at a moment
// that is not in the future are rejected with scheduler.ErrPastTime so the
// caller can tell the user. Returns the trigger id.
//
// Trigger ids are deterministic per user, moment, and cadence, so
// re-scheduling the same reminder replaces instead of accumulating.
func (s *Service) Schedule(ctx context.Context, entry *domain.Entry, user *domain.User) (string, error) {
	if entry.ScheduledAt == nil {
		return "", fmt.Errorf("entry %q has no scheduled moment", entry.ID)
	}
	at := entry.ScheduledAt.In(s.loc)
	epoch := at.Unix()

	if entry.Recurrence == domain.RecurrenceNone || entry.Recurrence == "" {
		id := fmt.Sprintf("reminder:%s:%d", user.ID, epoch)
		err := s.sched.ScheduleOnce(id, at, scheduler.Payload{
			Kind:    scheduler.FiringReminder,
			UserID:  user.ID,
			EntryID: entry.ID,
		})
		if err != nil {
			return "", err
		}
		return id, nil
	}

	spec, err := scheduler.CronSpecFrom(entry.Recurrence, at, s.loc)
	if err != nil {
		return "", err
	}
	id := fmt.Sprintf("recurring:%s:%s:%d", user.ID, entry.Recurrence, epoch)
	err = s.sched.ScheduleRecurring(id, spec, scheduler.Payload{
		Kind:    scheduler.FiringRecurring,
		UserID:  user.ID,
		EntryID: entry.ID,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Fire handles one firing. It re-reads the entry so a reminder completed or
// cancelled since arming is skipped silently. Send failures are logged and
// not retried; a recurring trigger covers the miss at its next cadence.
func (s *Service) Fire(ctx context.Context, payload scheduler.Payload) {
	entry, err := s.store.GetEntry(ctx, payload.EntryID)
	if err != nil {
		s.logger.Error("firing could not read entry", "entry_id", payload.EntryID, "error", err)
		return
	}
	if !entry.IsPending() {
		s.logger.Debug("firing skipped, entry no longer pending",
			"entry_id", entry.ID, "status", entry.Status)
		return
	}
	user, err := s.store.GetUser(ctx, payload.UserID)
	if err != nil {
		s.logger.Error("firing could not read user", "user_id", payload.UserID, "error", err)
		return
	}

	recurring := payload.Kind == scheduler.FiringRecurring
	body := s.compose(entry, recurring)
	if err := s.transport.SendText(ctx, user.Phone, body); err != nil {
		s.logger.Error("reminder send failed", "entry_id", entry.ID, "error", err)
		return
	}

	if !recurring {
		now := time.Now().UTC()
		completed := domain.StatusCompleted
		err := s.store.UpdateEntry(ctx, entry.ID, store.Patch{Status: &completed, CompletedAt: &now})
		if err != nil {
			s.logger.Error("could not complete one-shot reminder", "entry_id", entry.ID, "error", err)
			return
		}
	}
	s.logger.Info("reminder fired", "entry_id", entry.ID, "recurring", recurring)
}

// compose builds the outbound reminder message.
func (s *Service) compose(entry *domain.Entry, recurring bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *Recordatorio*\n\n%s\n", entry.Priority.Glyph(), entry.Description)
	fmt.Fprintf(&b, "\n🕐 Programado para ahora (%s)",
		time.Now().In(s.loc).Format("3:04 PM"))
	if recurring {
		fmt.Fprintf(&b, "\n🔁 Se repite %s", entry.Recurrence.Word())
	}
	fmt.Fprintf(&b, "\nPrioridad: %s", entry.Priority.Label())
	return b.String()
}

// RestoreAll rebuilds the reminder triggers after a restart: every pending
// reminder that recurs or is still in the future is re-armed. Other kinds
// never fire, so they are never re-armed. One-shots whose
// moment passed while the process was down are left pending; the store keeps
// them visible in digests but they no longer fire.
func (s *Service) RestoreAll(ctx context.Context) error {
	entries, err := s.store.PendingScheduled(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("load resumable entries: %w", err)
	}

	restored := 0
	for _, entry := range entries {
		user, err := s.store.GetUser(ctx, entry.UserID)
		if err != nil {
			s.logger.Error("restore skipped entry, user unreadable",
				"entry_id", entry.ID, "user_id", entry.UserID, "error", err)
			continue
		}
		if _, err := s.Schedule(ctx, entry, user); err != nil {
			// A one-shot can slip into the past between the query and
			// this call; anything else is worth logging loudly.
			if errors.Is(err, scheduler.ErrPastTime) {
				s.logger.Warn("restore skipped entry, moment passed", "entry_id", entry.ID)
			} else {
				s.logger.Error("restore failed for entry", "entry_id", entry.ID, "error", err)
			}
			continue
		}
		restored++
	}
	s.logger.Info("reminder triggers restored", "count", restored)
	return nil
}
