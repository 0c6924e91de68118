// Package scheduler is the time engine of anota. It holds the live trigger
// table: one-shot triggers (a single future instant) and recurring triggers
// (cron fields derived from an instant and a recurrence). All firing is
// anchored to one configured timezone. Uses robfig/cron for the recurring
// side; one-shots run on their own timer goroutines.
//
// Triggers live only in memory. Persistence belongs to the entry store; the
// services that consume firings re-register their triggers at startup.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrPastTime is returned when a one-shot trigger is scheduled at an instant
// that is not strictly in the future.
var ErrPastTime = errors.New("scheduled moment is in the past")

// FiringKind tells the fire handler which service the payload belongs to.
type FiringKind string

const (
	FiringReminder  FiringKind = "reminder"
	FiringRecurring FiringKind = "recurring"
	FiringDigest    FiringKind = "digest"
)

// Payload is what a trigger carries to its firing. It references the user
// and entry by id; the handler re-reads the entry so a firing never acts on
// a stale status.
type Payload struct {
	Kind    FiringKind
	UserID  string
	EntryID string
}

// Handler is invoked once per firing. A panic or error inside the handler is
// logged and never tears down the scheduler.
type Handler func(ctx context.Context, triggerID string, payload Payload)

// trigger is one live entry in the table.
type trigger struct {
	id      string
	payload Payload

	// oneShot triggers own a stop channel; closing it disarms the timer
	// goroutine. Recurring triggers own a cron entry id instead.
	oneShot bool
	fireAt  time.Time
	stop    chan struct{}
	cronID  cron.EntryID
}

// Scheduler owns the trigger table. All firing moments are interpreted in
// the configured location.
type Scheduler struct {
	loc     *time.Location
	handler Handler
	logger  *slog.Logger

	cron     *cron.Cron
	triggers map[string]*trigger
	running  map[string]bool

	mu     sync.Mutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler anchored to loc. The handler receives every
// firing; it must be set before Start.
func New(loc *time.Location, handler Handler, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		loc:      loc,
		handler:  handler,
		logger:   logger.With("component", "scheduler"),
		cron:     cron.New(cron.WithLocation(loc)),
		triggers: make(map[string]*trigger),
		running:  make(map[string]bool),
	}
}

// Start brings up the cron engine. Triggers may be registered before or
// after Start: one-shots arm their timers immediately, recurring entries
// sit in the cron table until the engine runs.
// The scheduler detaches from ctx's cancellation so that in-flight firings
// survive a shutdown signal until Stop's grace period runs out.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.cron.Start()
	s.logger.Info("scheduler started", "timezone", s.loc.String())
}

// Stop disarms every trigger and waits for in-flight firings up to grace.
// Firings still running after the grace period are abandoned; their entries
// stay pending and are reconsidered at next startup.
func (s *Scheduler) Stop(grace time.Duration) {
	s.mu.Lock()
	cronDone := s.cron.Stop()
	for _, t := range s.triggers {
		if t.oneShot {
			close(t.stop)
		}
	}
	s.triggers = make(map[string]*trigger)
	cancel := s.cancel
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("scheduler stopped")
	case <-time.After(grace):
		s.logger.Warn("scheduler stop timed out, abandoning in-flight firings")
	}
	if cancel != nil {
		cancel()
	}
}

// ScheduleOnce arms a one-shot trigger at fireAt. The instant is interpreted
// in the scheduler's location; naïve callers pass local wall-clock times and
// aware instants are converted. Returns ErrPastTime unless fireAt is
// strictly in the future. Re-registering an existing id replaces it.
func (s *Scheduler) ScheduleOnce(id string, fireAt time.Time, payload Payload) error {
	at := fireAt.In(s.loc)
	if !at.After(time.Now().In(s.loc)) {
		return fmt.Errorf("%w: %s", ErrPastTime, at.Format(time.RFC3339))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)

	t := &trigger{
		id:      id,
		payload: payload,
		oneShot: true,
		fireAt:  at,
		stop:    make(chan struct{}),
	}
	s.triggers[id] = t

	s.wg.Add(1)
	go s.runOneShot(t)

	s.logger.Info("one-shot trigger armed", "id", id, "fires_at", at.Format(time.RFC3339))
	return nil
}

// ScheduleRecurring arms a recurring trigger. The cron fields may describe
// an instant already past; only future matches fire. Re-registering an
// existing id replaces it.
func (s *Scheduler) ScheduleRecurring(id string, spec CronSpec, payload Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)

	t := &trigger{id: id, payload: payload}
	cronID, err := s.cron.AddFunc(spec.String(), func() {
		s.fire(t)
	})
	if err != nil {
		return fmt.Errorf("register recurring trigger %q: %w", id, err)
	}
	t.cronID = cronID
	s.triggers[id] = t

	s.logger.Info("recurring trigger armed", "id", id, "cron", spec.String())
	return nil
}

// Cancel disarms a trigger. Cancelling an unknown id is a no-op.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeLocked(id) {
		s.logger.Info("trigger cancelled", "id", id)
	}
}

// List returns the ids of all armed triggers, sorted.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.triggers))
	for id := range s.triggers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// removeLocked disarms and forgets a trigger. Caller holds s.mu.
func (s *Scheduler) removeLocked(id string) bool {
	t, ok := s.triggers[id]
	if !ok {
		return false
	}
	if t.oneShot {
		close(t.stop)
	} else {
		s.cron.Remove(t.cronID)
	}
	delete(s.triggers, id)
	return true
}

// runOneShot waits out the timer and fires once. The trigger self-removes
// after its firing, whether the handler succeeded or not.
func (s *Scheduler) runOneShot(t *trigger) {
	defer s.wg.Done()

	timer := time.NewTimer(time.Until(t.fireAt))
	defer timer.Stop()

	var ctxDone <-chan struct{}
	s.mu.Lock()
	if s.ctx != nil {
		ctxDone = s.ctx.Done()
	}
	s.mu.Unlock()

	select {
	case <-timer.C:
	case <-t.stop:
		return
	case <-ctxDone:
		return
	}

	// The trigger may have been replaced while the timer ran; only the
	// live registration fires.
	s.mu.Lock()
	current, live := s.triggers[t.id]
	if live && current == t {
		delete(s.triggers, t.id)
	}
	s.mu.Unlock()
	if !live || current != t {
		return
	}

	s.fire(t)
}

// fire runs the handler for one firing with max_instances=1 semantics: if a
// previous firing of the same trigger is still running, this one is dropped.
func (s *Scheduler) fire(t *trigger) {
	s.mu.Lock()
	if s.running[t.id] {
		s.mu.Unlock()
		s.logger.Warn("firing dropped, previous still running", "id", t.id)
		return
	}
	s.running[t.id] = true
	ctx := s.ctx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, t.id)
		s.mu.Unlock()
		if r := recover(); r != nil {
			s.logger.Error("firing handler panicked", "id", t.id, "panic", r)
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	s.logger.Debug("trigger firing", "id", t.id, "kind", t.payload.Kind)
	s.handler(ctx, t.id, t.payload)
}
