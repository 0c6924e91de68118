package domain

import (
	"testing"
	"time"
)

func TestEntryValidate(t *testing.T) {
	when := time.Now()

	tests := []struct {
		name  string
		entry Entry
		ok    bool
	}{
		{"plain task", Entry{UserID: "u1", Kind: KindTask, Description: "x"}, true},
		{"recurring reminder with moment", Entry{UserID: "u1", Kind: KindReminder, Description: "x",
			Recurrence: RecurrenceDaily, ScheduledAt: &when}, true},
		{"recurring reminder without moment", Entry{UserID: "u1", Kind: KindReminder, Description: "x",
			Recurrence: RecurrenceDaily}, false},
		{"no user", Entry{Kind: KindTask, Description: "x"}, false},
		{"no description", Entry{UserID: "u1", Kind: KindTask}, false},
		{"bad kind", Entry{UserID: "u1", Kind: "party", Description: "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestPriorityGlyph(t *testing.T) {
	pairs := map[Priority]string{
		PriorityHigh:   "🔴",
		PriorityMedium: "🟡",
		PriorityLow:    "🟢",
	}
	for p, want := range pairs {
		if got := p.Glyph(); got != want {
			t.Errorf("Glyph(%q) = %q, want %q", p, got, want)
		}
	}
}

func TestRecurrenceWord(t *testing.T) {
	if got := RecurrenceDaily.Word(); got != "cada día" {
		t.Errorf("daily word = %q", got)
	}
	if got := RecurrenceNone.Word(); got != "" {
		t.Errorf("none should have no cadence word, got %q", got)
	}
}
