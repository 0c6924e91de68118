package extractor

import (
	"testing"
	"time"

	"github.com/dcastillocr/anota/pkg/anota/domain"
)

func TestParseExtraction(t *testing.T) {
	loc, _ := time.LoadLocation("America/Costa_Rica")

	t.Run("reminder with moment", func(t *testing.T) {
		x, err := ParseExtraction(`{
			"found": true, "kind": "reminder",
			"description": "llamar al doctor",
			"scheduled_at": "2026-03-06 09:00",
			"priority": "medium", "recurrence": "none"
		}`, loc)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if x.Kind != domain.KindReminder || x.Description != "llamar al doctor" {
			t.Errorf("got %+v", x)
		}
		want := time.Date(2026, 3, 6, 9, 0, 0, 0, loc)
		if x.ScheduledAt == nil || !x.ScheduledAt.Equal(want) {
			t.Errorf("scheduled_at = %v, want %v", x.ScheduledAt, want)
		}
	})

	t.Run("nothing found", func(t *testing.T) {
		x, err := ParseExtraction(`{"found": false}`, loc)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if x != nil {
			t.Fatalf("got %+v, want nil", x)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		x, err := ParseExtraction(`{"found": true, "kind": "note", "description": "una idea"}`, loc)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if x.Priority != domain.PriorityMedium {
			t.Errorf("priority = %q, want medium", x.Priority)
		}
		if x.Recurrence != domain.RecurrenceNone {
			t.Errorf("recurrence = %q, want none", x.Recurrence)
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		for _, raw := range []string{
			`not json`,
			`{"found": true, "kind": "party", "description": "x"}`,
			`{"found": true, "kind": "task", "description": "   "}`,
			`{"found": true, "kind": "task", "description": "x", "scheduled_at": "mañana"}`,
		} {
			if _, err := ParseExtraction(raw, loc); err == nil {
				t.Errorf("ParseExtraction(%q) accepted", raw)
			}
		}
	})
}

func TestExtractionEntry(t *testing.T) {
	at := time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC)
	x := &Extraction{Kind: domain.KindReminder, Description: "tomar agua", ScheduledAt: &at, Recurrence: domain.RecurrenceDaily}
	e := x.Entry("u1")
	if e.UserID != "u1" || e.Status != domain.StatusPending {
		t.Fatalf("entry = %+v", e)
	}
	if err := e.Validate(); err != nil {
		t.Fatalf("entry from extraction must validate: %v", err)
	}
}
