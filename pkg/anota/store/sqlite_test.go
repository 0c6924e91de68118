package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dcastillocr/anota/pkg/anota/domain"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustUser(t *testing.T, s *SQLite, phone string) *domain.User {
	t.Helper()
	u, err := s.GetOrCreateUser(context.Background(), phone)
	if err != nil {
		t.Fatalf("get or create user: %v", err)
	}
	return u
}

func mustInsert(t *testing.T, s *SQLite, e *domain.Entry) *domain.Entry {
	t.Helper()
	if err := s.InsertEntry(context.Background(), e); err != nil {
		t.Fatalf("insert entry: %v", err)
	}
	return e
}

func TestGetOrCreateUserIsStable(t *testing.T) {
	s := openTestStore(t)

	first := mustUser(t, s, "50688881234")
	if first.ID == "" {
		t.Fatal("new user has no id")
	}
	second := mustUser(t, s, "50688881234")
	if second.ID != first.ID {
		t.Fatalf("same phone produced two users: %q and %q", first.ID, second.ID)
	}

	other := mustUser(t, s, "50688885678")
	if other.ID == first.ID {
		t.Fatal("distinct phones share a user")
	}
}

func TestSetUserName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u := mustUser(t, s, "50688881234")
	if err := s.SetUserName(ctx, u.ID, "Daniela"); err != nil {
		t.Fatalf("set name: %v", err)
	}
	got, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Name != "Daniela" {
		t.Fatalf("name = %q, want Daniela", got.Name)
	}
}

func TestInsertEntryValidates(t *testing.T) {
	s := openTestStore(t)
	u := mustUser(t, s, "50688881234")

	err := s.InsertEntry(context.Background(), &domain.Entry{
		UserID:      u.ID,
		Kind:        domain.KindReminder,
		Description: "tomar agua",
		Recurrence:  domain.RecurrenceDaily,
		// ScheduledAt missing: invariant violation.
	})
	if err == nil {
		t.Fatal("recurring reminder without scheduled moment was accepted")
	}
}

func TestCompletionIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "50688881234")
	e := mustInsert(t, s, &domain.Entry{
		UserID:      u.ID,
		Kind:        domain.KindTask,
		Description: "Llamar al doctor",
		Priority:    domain.PriorityMedium,
	})

	completed := domain.StatusCompleted
	first := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	if err := s.UpdateEntry(ctx, e.ID, Patch{Status: &completed, CompletedAt: &first}); err != nil {
		t.Fatalf("first completion: %v", err)
	}

	second := first.Add(2 * time.Hour)
	if err := s.UpdateEntry(ctx, e.ID, Patch{Status: &completed, CompletedAt: &second}); err != nil {
		t.Fatalf("second completion: %v", err)
	}

	got, err := s.GetEntry(ctx, e.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.Status != domain.StatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(first) {
		t.Fatalf("completed_at = %v, want the first completion time %v", got.CompletedAt, first)
	}
}

func TestUpdateUnknownEntry(t *testing.T) {
	s := openTestStore(t)
	status := domain.StatusCancelled
	err := s.UpdateEntry(context.Background(), "missing", Patch{Status: &status})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestListEntriesFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "50688881234")

	morning := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 5, 20, 0, 0, 0, time.UTC)
	nextDay := time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC)

	mustInsert(t, s, &domain.Entry{UserID: u.ID, Kind: domain.KindEvent, Description: "dentista", ScheduledAt: &morning})
	mustInsert(t, s, &domain.Entry{UserID: u.ID, Kind: domain.KindTask, Description: "comprar leche", ScheduledAt: &evening})
	mustInsert(t, s, &domain.Entry{UserID: u.ID, Kind: domain.KindTask, Description: "pagar recibo", ScheduledAt: &nextDay})
	mustInsert(t, s, &domain.Entry{UserID: u.ID, Kind: domain.KindNote, Description: "idea para regalo"})

	dayStart := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	today, err := s.ListEntries(ctx, u.ID, Filter{
		Status:         domain.StatusPending,
		ScheduledFrom:  &dayStart,
		ScheduledUntil: &dayEnd,
	})
	if err != nil {
		t.Fatalf("list today: %v", err)
	}
	if len(today) != 2 {
		t.Fatalf("today = %d entries, want 2", len(today))
	}
	if today[0].Description != "dentista" {
		t.Errorf("expected scheduled order, got %q first", today[0].Description)
	}

	tasks, err := s.ListEntries(ctx, u.ID, Filter{Kind: domain.KindTask})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(tasks))
	}
}

func TestPendingScheduled(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "50688881234")

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	mustInsert(t, s, &domain.Entry{UserID: u.ID, Kind: domain.KindReminder, Description: "futuro", ScheduledAt: &future})
	mustInsert(t, s, &domain.Entry{UserID: u.ID, Kind: domain.KindReminder, Description: "pasado", ScheduledAt: &past})
	mustInsert(t, s, &domain.Entry{UserID: u.ID, Kind: domain.KindReminder, Description: "diario",
		ScheduledAt: &past, Recurrence: domain.RecurrenceDaily})

	// Events and tasks never fire, whatever their scheduled moment.
	mustInsert(t, s, &domain.Entry{UserID: u.ID, Kind: domain.KindEvent, Description: "reunión", ScheduledAt: &future})
	mustInsert(t, s, &domain.Entry{UserID: u.ID, Kind: domain.KindTask, Description: "pendiente", ScheduledAt: &future})

	done := mustInsert(t, s, &domain.Entry{UserID: u.ID, Kind: domain.KindReminder, Description: "hecho", ScheduledAt: &future})
	completed := domain.StatusCompleted
	if err := s.UpdateEntry(ctx, done.ID, Patch{Status: &completed, CompletedAt: &now}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := s.PendingScheduled(ctx, now)
	if err != nil {
		t.Fatalf("pending scheduled: %v", err)
	}
	want := map[string]bool{"futuro": true, "diario": true}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for _, e := range got {
		if !want[e.Description] {
			t.Errorf("unexpected entry %q in rebuild set", e.Description)
		}
	}
}

func TestActivityUserIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	active := mustUser(t, s, "50688881111")
	idle := mustUser(t, s, "50688882222")

	mustInsert(t, s, &domain.Entry{UserID: active.ID, Kind: domain.KindTask, Description: "algo"})

	ids, err := s.ActivityUserIDs(ctx, time.Now().Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("activity user ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != active.ID {
		t.Fatalf("ids = %v, want only %q", ids, active.ID)
	}
	for _, id := range ids {
		if id == idle.ID {
			t.Fatal("idle user reported as active")
		}
	}
}
