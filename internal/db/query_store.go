package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrSearchNotFound is returned when no saved search matches
var ErrSearchNotFound = errors.New("saved search not found")

// SavedSearch is a named search query bound to a mailbox and category
type SavedSearch struct {
	ID          int64  `json:"id"`
	MailboxID   string `json:"mailbox_id"`
	Name        string `json:"name"`
	Query       string `json:"query"`
	Category    string `json:"category"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"`
	LastUsed    int64  `json:"last_used"`
	UseCount    int    `json:"use_count"`
}

const savedSearchColumns = `id, mailbox_id, name, query, category, description, created_at, last_used, use_count`

// QueryStore handles database operations for saved searches
type QueryStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewQueryStore creates a new query store
func NewQueryStore(store *Store) *QueryStore {
	return &QueryStore{
		db:  store.DB(),
		now: time.Now,
	}
}

// Save inserts a search or, when the name already exists for the mailbox, replaces its query
func (s *QueryStore) Save(ctx context.Context, mailboxID, name, query, category, description string) (*SavedSearch, error) {
	if strings.TrimSpace(mailboxID) == "" || strings.TrimSpace(name) == "" || strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("mailbox_id, name, and query cannot be empty")
	}

	now := s.now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO saved_searches (mailbox_id, name, query, category, description, created_at, last_used, use_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(mailbox_id, name) DO UPDATE SET
			query = excluded.query,
			category = excluded.category,
			description = excluded.description,
			last_used = excluded.last_used`,
		mailboxID, name, query, category, description, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to save search: %w", err)
	}

	return s.GetByName(ctx, mailboxID, name)
}

// GetByName retrieves a saved search by name
func (s *QueryStore) GetByName(ctx context.Context, mailboxID, name string) (*SavedSearch, error) {
	if strings.TrimSpace(mailboxID) == "" || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("mailbox_id and name cannot be empty")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+savedSearchColumns+`
		FROM saved_searches
		WHERE mailbox_id = ? AND name = ?`,
		mailboxID, name)
	return scanSavedSearch(row)
}

// GetByID retrieves a saved search by ID
func (s *QueryStore) GetByID(ctx context.Context, mailboxID string, id int64) (*SavedSearch, error) {
	if strings.TrimSpace(mailboxID) == "" || id <= 0 {
		return nil, fmt.Errorf("mailbox_id cannot be empty and id must be positive")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+savedSearchColumns+`
		FROM saved_searches
		WHERE mailbox_id = ? AND id = ?`,
		mailboxID, id)
	return scanSavedSearch(row)
}

// List returns a mailbox's saved searches, most recently used first.
// An empty category lists every search.
func (s *QueryStore) List(ctx context.Context, mailboxID, category string) ([]*SavedSearch, error) {
	if strings.TrimSpace(mailboxID) == "" {
		return nil, fmt.Errorf("mailbox_id cannot be empty")
	}

	var rows *sql.Rows
	var err error
	if strings.TrimSpace(category) == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+savedSearchColumns+`
			FROM saved_searches
			WHERE mailbox_id = ?
			ORDER BY last_used DESC, use_count DESC, name ASC`,
			mailboxID)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+savedSearchColumns+`
			FROM saved_searches
			WHERE mailbox_id = ? AND category = ?
			ORDER BY last_used DESC, use_count DESC, name ASC`,
			mailboxID, category)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}
	defer rows.Close()

	var out []*SavedSearch
	for rows.Next() {
		ss, err := scanSavedSearch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return out, nil
}

// MarkUsed increments use count and refreshes the last used timestamp
func (s *QueryStore) MarkUsed(ctx context.Context, mailboxID string, id int64) error {
	if strings.TrimSpace(mailboxID) == "" || id <= 0 {
		return fmt.Errorf("mailbox_id cannot be empty and id must be positive")
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE saved_searches
		SET use_count = use_count + 1, last_used = ?
		WHERE mailbox_id = ? AND id = ?`,
		s.now().Unix(), mailboxID, id)
	if err != nil {
		return fmt.Errorf("failed to update search usage: %w", err)
	}
	return requireAffected(result)
}

// Delete removes a saved search
func (s *QueryStore) Delete(ctx context.Context, mailboxID string, id int64) error {
	if strings.TrimSpace(mailboxID) == "" || id <= 0 {
		return fmt.Errorf("mailbox_id cannot be empty and id must be positive")
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM saved_searches
		WHERE mailbox_id = ? AND id = ?`,
		mailboxID, id)
	if err != nil {
		return fmt.Errorf("failed to delete search: %w", err)
	}
	return requireAffected(result)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSavedSearch(row rowScanner) (*SavedSearch, error) {
	ss := &SavedSearch{}
	err := row.Scan(&ss.ID, &ss.MailboxID, &ss.Name, &ss.Query, &ss.Category,
		&ss.Description, &ss.CreatedAt, &ss.LastUsed, &ss.UseCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSearchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read saved search: %w", err)
	}
	return ss, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrSearchNotFound
	}
	return nil
}
