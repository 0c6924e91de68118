// Package digest builds and delivers the daily morning summary. Each active
// user gets a recurring daily trigger at their personal optimal time; the
// firing composes a one-message view of today's pending entries.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dcastillocr/anota/pkg/anota/channels"
	"github.com/dcastillocr/anota/pkg/anota/domain"
	"github.com/dcastillocr/anota/pkg/anota/scheduler"
	"github.com/dcastillocr/anota/pkg/anota/store"
)

const (
	// activityWindow bounds the active-user predicate.
	activityWindow = 7 * 24 * time.Hour

	// sampleWindow bounds the optimal-time estimator's samples.
	sampleWindow = 30 * 24 * time.Hour
)

// TriggerID is the deterministic digest trigger id for a user.
func TriggerID(userID string) string {
	return "good_morning:" + userID
}

// Service owns the digest side of the trigger table.
type Service struct {
	store     store.Store
	transport channels.Transport
	sched     *scheduler.Scheduler
	loc       *time.Location
	logger    *slog.Logger
}

// New creates the digest service.
func New(st store.Store, tr channels.Transport, sched *scheduler.Scheduler, loc *time.Location, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     st,
		transport: tr,
		sched:     sched,
		loc:       loc,
		logger:    logger.With("component", "digest"),
	}
}

// ScheduleAllActive registers a digest trigger for every user with activity
// in the last seven days. Runs at startup; it only touches the
// activity-indexed subset, never the whole user table.
func (s *Service) ScheduleAllActive(ctx context.Context) error {
	ids, err := s.store.ActivityUserIDs(ctx, time.Now().Add(-activityWindow))
	if err != nil {
		return fmt.Errorf("list active users: %w", err)
	}
	for _, id := range ids {
		user, err := s.store.GetUser(ctx, id)
		if err != nil {
			s.logger.Error("digest scheduling skipped user", "user_id", id, "error", err)
			continue
		}
		if err := s.ScheduleForUser(ctx, user); err != nil {
			s.logger.Error("digest scheduling failed", "user_id", id, "error", err)
		}
	}
	s.logger.Info("morning digests scheduled", "users", len(ids))
	return nil
}

// ScheduleForUser computes the user's optimal time and (re)arms their daily
// trigger. Safe to call again after new activity; the deterministic id
// replaces the previous registration.
func (s *Service) ScheduleForUser(ctx context.Context, user *domain.User) error {
	since := time.Now().Add(-sampleWindow)
	entries, err := s.store.ListEntries(ctx, user.ID, store.Filter{CreatedFrom: &since})
	if err != nil {
		return fmt.Errorf("load activity samples: %w", err)
	}
	samples := make([]time.Time, len(entries))
	for i, e := range entries {
		samples[i] = e.CreatedAt
	}

	hour, minute := OptimalTime(samples, s.loc)
	err = s.sched.ScheduleRecurring(TriggerID(user.ID), scheduler.Daily(hour, minute), scheduler.Payload{
		Kind:   scheduler.FiringDigest,
		UserID: user.ID,
	})
	if err != nil {
		return err
	}
	s.logger.Debug("morning digest armed",
		"user_id", user.ID, "at", fmt.Sprintf("%02d:%02d", hour, minute))
	return nil
}

// Fire sends one morning digest.
func (s *Service) Fire(ctx context.Context, payload scheduler.Payload) {
	user, err := s.store.GetUser(ctx, payload.UserID)
	if err != nil {
		s.logger.Error("digest firing could not read user", "user_id", payload.UserID, "error", err)
		return
	}

	entries, err := s.EntriesForDay(ctx, user.ID, time.Now().In(s.loc))
	if err != nil {
		s.logger.Error("digest firing could not list entries", "user_id", user.ID, "error", err)
		return
	}

	body := ComposeMorning(user, entries, s.loc)
	if err := s.transport.SendText(ctx, user.Phone, body); err != nil {
		s.logger.Error("digest send failed", "user_id", user.ID, "error", err)
		return
	}
	s.logger.Info("morning digest sent", "user_id", user.ID, "entries", len(entries))
}

// EntriesForDay returns the user's pending entries scheduled within the
// local calendar day containing at.
func (s *Service) EntriesForDay(ctx context.Context, userID string, at time.Time) ([]*domain.Entry, error) {
	from, until := DayBounds(at, s.loc)
	return s.store.ListEntries(ctx, userID, store.Filter{
		Status:         domain.StatusPending,
		ScheduledFrom:  &from,
		ScheduledUntil: &until,
	})
}

// DayBounds returns the half-open [midnight, next midnight) window of the
// local calendar day containing at.
func DayBounds(at time.Time, loc *time.Location) (from, until time.Time) {
	local := at.In(loc)
	from = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 0, 1)
}
