package digest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dcastillocr/anota/pkg/anota/domain"
	"github.com/dcastillocr/anota/pkg/anota/scheduler"
	"github.com/dcastillocr/anota/pkg/anota/store"
)

func cr(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Costa_Rica")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

// at builds a sample at the given local fractional hour on an arbitrary day.
func at(loc *time.Location, hours float64) time.Time {
	h := int(hours)
	m := int((hours - float64(h)) * 60)
	return time.Date(2026, 3, 5, h, m, 0, 0, loc)
}

func TestOptimalTime(t *testing.T) {
	loc := cr(t)

	tests := []struct {
		name       string
		samples    []float64
		wantHour   int
		wantMinute int
	}{
		{"no samples defaults to 0830", nil, 8, 30},
		{"morning mean nine gives seven", []float64{9, 9, 9}, 7, 0},
		{"morning mean clamps low to six", []float64{7, 7.5}, 6, 0},
		{"no morning samples uses overall mean", []float64{16, 18}, 10, 0},
		{"early-only samples clamp low", []float64{4, 4}, 6, 0},
		{"late-only samples clamp high", []float64{22, 23}, 10, 0},
		{"rounds to quarter hour", []float64{9.46}, 7, 30},
		{"rounds to three quarters", []float64{9.7}, 7, 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var samples []time.Time
			for _, h := range tt.samples {
				samples = append(samples, at(loc, h))
			}
			hour, minute := OptimalTime(samples, loc)
			if hour != tt.wantHour || minute != tt.wantMinute {
				t.Errorf("OptimalTime(%v) = %02d:%02d, want %02d:%02d",
					tt.samples, hour, minute, tt.wantHour, tt.wantMinute)
			}
		})
	}
}

func TestOptimalTimeMinuteCarry(t *testing.T) {
	loc := cr(t)
	// Mean 9.95 − 2 = 7.95 → 57 minutes → rounds to 60 → must carry to 8:00.
	hour, minute := OptimalTime([]time.Time{at(loc, 9.95)}, loc)
	if hour != 8 || minute != 0 {
		t.Fatalf("got %02d:%02d, want 08:00", hour, minute)
	}
}

func entry(kind domain.Kind, desc string, pri domain.Priority, when *time.Time) *domain.Entry {
	return &domain.Entry{
		Kind: kind, Description: desc, Priority: pri,
		Status: domain.StatusPending, ScheduledAt: when,
	}
}

func TestComposeDayBuckets(t *testing.T) {
	loc := cr(t)
	nine := time.Date(2026, 3, 5, 9, 0, 0, 0, loc)
	two := time.Date(2026, 3, 5, 14, 0, 0, 0, loc)

	entries := []*domain.Entry{
		entry(domain.KindEvent, "dentista", "", &nine),
		entry(domain.KindEvent, "reunión", "", &two),
		entry(domain.KindTask, "pagar recibo", domain.PriorityHigh, nil),
	}
	got := ComposeDay(entries, loc)

	for _, want := range []string{"2 evento(s)", "1 tarea(s)", "9:00 AM", "2:00 PM", "🔴", "pagar recibo"} {
		if !strings.Contains(got, want) {
			t.Errorf("digest missing %q:\n%s", want, got)
		}
	}
}

func TestComposeDayOverflow(t *testing.T) {
	loc := cr(t)
	var entries []*domain.Entry
	for _, d := range []string{"una", "dos", "tres", "cuatro"} {
		entries = append(entries, entry(domain.KindTask, d, domain.PriorityLow, nil))
	}
	got := ComposeDay(entries, loc)

	if !strings.Contains(got, "… y 1 más") {
		t.Fatalf("four tasks must fold to three plus overflow:\n%s", got)
	}
	if strings.Contains(got, "cuatro") {
		t.Errorf("fourth task should be folded:\n%s", got)
	}
}

func TestComposeDayFree(t *testing.T) {
	loc := cr(t)
	got := ComposeDay(nil, loc)
	if !strings.Contains(got, "libre") {
		t.Fatalf("empty day must use the free-day variant, got %q", got)
	}

	// Expenses and notes never appear in a day view.
	got = ComposeDay([]*domain.Entry{entry(domain.KindExpense, "5000 super", "", nil)}, loc)
	if !strings.Contains(got, "libre") {
		t.Fatalf("expense-only day must read as free, got %q", got)
	}
}

func TestScheduleAllActiveSkipsIdleUsers(t *testing.T) {
	loc := cr(t)
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	sched := scheduler.New(loc, func(context.Context, string, scheduler.Payload) {}, nil)
	svc := New(st, nil, sched, loc, nil)

	active, err := st.GetOrCreateUser(ctx, "50688881111")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	idle, err := st.GetOrCreateUser(ctx, "50688882222")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	stale := time.Now().UTC().Add(-8 * 24 * time.Hour)
	for _, e := range []*domain.Entry{
		{UserID: active.ID, Kind: domain.KindTask, Description: "reciente"},
		{UserID: idle.ID, Kind: domain.KindTask, Description: "vieja", CreatedAt: stale},
	} {
		if err := st.InsertEntry(ctx, e); err != nil {
			t.Fatalf("insert entry: %v", err)
		}
	}

	if err := svc.ScheduleAllActive(ctx); err != nil {
		t.Fatalf("schedule all active: %v", err)
	}

	ids := sched.List()
	if len(ids) != 1 || ids[0] != TriggerID(active.ID) {
		t.Fatalf("triggers = %v, want only %q", ids, TriggerID(active.ID))
	}
}

func TestComposeMorningGreeting(t *testing.T) {
	loc := cr(t)
	user := &domain.User{Name: "Daniela"}
	got := ComposeMorning(user, nil, loc)
	if !strings.Contains(got, "Daniela") {
		t.Fatalf("morning digest must greet the user by name: %q", got)
	}
}
