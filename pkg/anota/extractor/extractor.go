// Package extractor converts free-form text into a structured entry through
// a language model. The classifier guarantees only non-trivial texts reach
// this package.
package extractor

import (
	"context"
	"time"

	"github.com/dcastillocr/anota/pkg/anota/domain"
)

// Extraction is what the model pulled out of a text. A nil *Extraction from
// Extract means the text carried nothing worth persisting.
type Extraction struct {
	Kind        domain.Kind
	Description string
	ScheduledAt *time.Time
	Priority    domain.Priority
	Recurrence  domain.Recurrence
}

// Extractor turns a user's raw text into a structured entry.
type Extractor interface {
	Extract(ctx context.Context, user *domain.User, text string) (*Extraction, error)
}

// Entry builds the domain entry an extraction describes, owned by userID.
func (x *Extraction) Entry(userID string) *domain.Entry {
	rec := x.Recurrence
	if rec == "" {
		rec = domain.RecurrenceNone
	}
	pri := x.Priority
	if pri == "" {
		pri = domain.PriorityMedium
	}
	return &domain.Entry{
		UserID:      userID,
		Kind:        x.Kind,
		Description: x.Description,
		ScheduledAt: x.ScheduledAt,
		Priority:    pri,
		Recurrence:  rec,
		Status:      domain.StatusPending,
	}
}
