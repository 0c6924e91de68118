// Package store persists users and entries. The interface is what the rest
// of anota consumes; the SQLite implementation lives alongside it. The store
// is the sole mutator of entry status, which makes it the serialisation
// point between firings and concurrently arriving webhooks.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dcastillocr/anota/pkg/anota/domain"
)

// ErrNotFound is returned when a user or entry does not exist.
var ErrNotFound = errors.New("not found")

// Filter narrows ListEntries. Zero values mean "any".
type Filter struct {
	Status domain.Status
	Kind   domain.Kind

	// Scheduled-moment window, half-open [From, Until).
	ScheduledFrom  *time.Time
	ScheduledUntil *time.Time

	// Creation window.
	CreatedFrom *time.Time

	Limit int
}

// Patch is a partial entry update. Nil fields are left untouched. Setting
// Status to completed is idempotent: an already-set completed_at survives.
type Patch struct {
	Description *string
	ScheduledAt *time.Time
	Status      *domain.Status
	CompletedAt *time.Time
}

// Store is the persistence surface consumed by the core.
type Store interface {
	// GetOrCreateUser returns the user registered under the channel
	// address, creating one on first contact.
	GetOrCreateUser(ctx context.Context, phone string) (*domain.User, error)

	GetUser(ctx context.Context, id string) (*domain.User, error)

	// SetUserName records the display name supplied by the channel.
	SetUserName(ctx context.Context, id, name string) error

	InsertEntry(ctx context.Context, entry *domain.Entry) error
	GetEntry(ctx context.Context, id string) (*domain.Entry, error)
	UpdateEntry(ctx context.Context, id string, patch Patch) error
	ListEntries(ctx context.Context, userID string, filter Filter) ([]*domain.Entry, error)

	// PendingScheduled returns every pending reminder that either recurs
	// or has a scheduled moment after the given instant. Only reminders
	// ever fire, so only reminders come back. Used to rebuild the trigger
	// table at startup.
	PendingScheduled(ctx context.Context, after time.Time) ([]*domain.Entry, error)

	// ActivityUserIDs returns the ids of users with at least one entry
	// created at or after since. It never enumerates all users.
	ActivityUserIDs(ctx context.Context, since time.Time) ([]string, error)

	Close() error
}
