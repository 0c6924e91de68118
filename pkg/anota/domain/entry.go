// Package domain defines the core types shared by every anota component:
// users, entries, and the enumerations that describe them.
package domain

import (
	"fmt"
	"time"
)

// Kind categorizes what an entry represents.
type Kind string

const (
	KindTask     Kind = "task"
	KindEvent    Kind = "event"
	KindReminder Kind = "reminder"
	KindExpense  Kind = "expense"
	KindNote     Kind = "note"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindTask, KindEvent, KindReminder, KindExpense, KindNote:
		return true
	}
	return false
}

// Priority is the urgency level of an entry.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Glyph returns the colored circle shown next to an entry in outbound
// messages.
func (p Priority) Glyph() string {
	switch p {
	case PriorityHigh:
		return "🔴"
	case PriorityMedium:
		return "🟡"
	case PriorityLow:
		return "🟢"
	}
	return "⚪"
}

// Label returns the Spanish priority label used in reminder messages.
func (p Priority) Label() string {
	switch p {
	case PriorityHigh:
		return "alta"
	case PriorityMedium:
		return "media"
	case PriorityLow:
		return "baja"
	}
	return "normal"
}

// Recurrence describes how often a reminder repeats.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceYearly  Recurrence = "yearly"
)

// Word returns the localized cadence phrase shown on recurring reminders.
func (r Recurrence) Word() string {
	switch r {
	case RecurrenceDaily:
		return "cada día"
	case RecurrenceWeekly:
		return "cada semana"
	case RecurrenceMonthly:
		return "cada mes"
	case RecurrenceYearly:
		return "cada año"
	}
	return ""
}

// Status is the lifecycle state of an entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Entry is a user-scoped record of something to remember, do, or note.
type Entry struct {
	ID          string
	UserID      string
	Kind        Kind
	Description string

	// ScheduledAt is the moment the entry refers to. Required for
	// recurring reminders; nil for undated tasks and notes.
	ScheduledAt *time.Time

	Priority   Priority
	Recurrence Recurrence
	Status     Status

	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Validate checks the entry invariants before persistence.
func (e *Entry) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("entry requires a user")
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown entry kind %q", e.Kind)
	}
	if e.Description == "" {
		return fmt.Errorf("entry requires a description")
	}
	if e.Kind == KindReminder && e.Recurrence != RecurrenceNone && e.Recurrence != "" && e.ScheduledAt == nil {
		return fmt.Errorf("recurring reminder requires a scheduled moment")
	}
	return nil
}

// IsPending reports whether the entry can still fire or be completed.
func (e *Entry) IsPending() bool {
	return e.Status == StatusPending
}
