package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dcastillocr/anota/pkg/anota/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	phone      TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL DEFAULT '',
	profile    TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL REFERENCES users(id),
	kind         TEXT NOT NULL,
	description  TEXT NOT NULL,
	scheduled_at TEXT,
	priority     TEXT NOT NULL DEFAULT '',
	recurrence   TEXT NOT NULL DEFAULT 'none',
	status       TEXT NOT NULL DEFAULT 'pending',
	created_at   TEXT NOT NULL,
	completed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_entries_user_status_sched
	ON entries(user_id, status, scheduled_at);
CREATE INDEX IF NOT EXISTS idx_entries_created_at
	ON entries(created_at);
`

// SQLite implements Store on a local SQLite database.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for tests.
func Open(path string) (*SQLite, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) GetOrCreateUser(ctx context.Context, phone string) (*domain.User, error) {
	u, err := s.userByPhone(ctx, phone)
	if err == nil {
		return u, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	u = &domain.User{
		ID:        uuid.NewString(),
		Phone:     phone,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, phone, name, profile, created_at) VALUES (?, ?, '', '{}', ?)`,
		u.ID, u.Phone, u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		// A concurrent intake worker may have created the user first; the
		// unique phone index makes the insert lose, so read again.
		if existing, readErr := s.userByPhone(ctx, phone); readErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create user for %q: %w", phone, err)
	}
	return u, nil
}

func (s *SQLite) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, phone, name, profile, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *SQLite) userByPhone(ctx context.Context, phone string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, phone, name, profile, created_at FROM users WHERE phone = ?`, phone)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u         domain.User
		profile   string
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.Phone, &u.Name, &profile, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if profile != "" {
		_ = json.Unmarshal([]byte(profile), &u.Profile)
	}
	return &u, nil
}

func (s *SQLite) SetUserName(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("set user name: %w", err)
	}
	return nil
}

// InsertEntry validates the entry, assigns its id and creation time, and
// persists it.
func (s *SQLite) InsertEntry(ctx context.Context, e *domain.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Status == "" {
		e.Status = domain.StatusPending
	}
	if e.Recurrence == "" {
		e.Recurrence = domain.RecurrenceNone
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries
			(id, user_id, kind, description, scheduled_at,
			 priority, recurrence, status, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		e.ID, e.UserID, string(e.Kind), e.Description, nullTime(e.ScheduledAt),
		string(e.Priority), string(e.Recurrence), string(e.Status),
		e.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *SQLite) GetEntry(ctx context.Context, id string) (*domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		entrySelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanEntry(rows)
}

// UpdateEntry applies a partial update. Completion is idempotent: when the
// patch sets completed_at, an existing value wins.
func (s *SQLite) UpdateEntry(ctx context.Context, id string, p Patch) error {
	var (
		sets []string
		args []any
	)
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.ScheduledAt != nil {
		sets = append(sets, "scheduled_at = ?")
		args = append(args, p.ScheduledAt.UTC().Format(time.RFC3339))
	}
	if p.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*p.Status))
	}
	if p.CompletedAt != nil {
		sets = append(sets, "completed_at = COALESCE(completed_at, ?)")
		args = append(args, p.CompletedAt.UTC().Format(time.RFC3339))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE entries SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update entry %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const entrySelect = `
	SELECT id, user_id, kind, description, scheduled_at,
	       priority, recurrence, status, created_at, completed_at
	FROM entries`

func (s *SQLite) ListEntries(ctx context.Context, userID string, f Filter) ([]*domain.Entry, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}

	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.ScheduledFrom != nil {
		where = append(where, "scheduled_at >= ?")
		args = append(args, f.ScheduledFrom.UTC().Format(time.RFC3339))
	}
	if f.ScheduledUntil != nil {
		where = append(where, "scheduled_at < ?")
		args = append(args, f.ScheduledUntil.UTC().Format(time.RFC3339))
	}
	if f.CreatedFrom != nil {
		where = append(where, "created_at >= ?")
		args = append(args, f.CreatedFrom.UTC().Format(time.RFC3339))
	}

	q := entrySelect + " WHERE " + strings.Join(where, " AND ") +
		" ORDER BY scheduled_at IS NULL, scheduled_at, created_at"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (s *SQLite) PendingScheduled(ctx context.Context, after time.Time) ([]*domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, entrySelect+`
		WHERE status = 'pending'
		  AND kind = 'reminder'
		  AND (recurrence != 'none' OR scheduled_at > ?)`,
		after.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("pending scheduled entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (s *SQLite) ActivityUserIDs(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM entries WHERE created_at >= ?`,
		since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("activity user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func collectEntries(rows *sql.Rows) ([]*domain.Entry, error) {
	var entries []*domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (*domain.Entry, error) {
	var (
		e                        domain.Entry
		scheduledAt, completedAt sql.NullString
		createdAt                string
	)
	if err := rows.Scan(&e.ID, &e.UserID, (*string)(&e.Kind), &e.Description,
		&scheduledAt, (*string)(&e.Priority), (*string)(&e.Recurrence),
		(*string)(&e.Status), &createdAt, &completedAt); err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if scheduledAt.Valid {
		if t, err := time.Parse(time.RFC3339, scheduledAt.String); err == nil {
			e.ScheduledAt = &t
		}
	}
	if completedAt.Valid {
		if t, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
			e.CompletedAt = &t
		}
	}
	return &e, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
