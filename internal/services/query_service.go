package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ajramos/mailtui/internal/db"
)

// QueryServiceImpl implements QueryService for the active mailbox
type QueryServiceImpl struct {
	store     *db.QueryStore
	mailboxID string
}

// NewQueryService creates a new query service; store may be nil when no database is configured
func NewQueryService(store *db.QueryStore) *QueryServiceImpl {
	return &QueryServiceImpl{store: store}
}

// SetMailboxID scopes saved searches to a mailbox, called on account switch
func (s *QueryServiceImpl) SetMailboxID(mailboxID string) {
	s.mailboxID = strings.TrimSpace(mailboxID)
}

// GetMailboxID returns the current mailbox scope
func (s *QueryServiceImpl) GetMailboxID() string {
	return s.mailboxID
}

func (s *QueryServiceImpl) ready() error {
	if s.store == nil {
		return ErrStoreUnavailable
	}
	if s.mailboxID == "" {
		return ErrMissingMailbox
	}
	return nil
}

// SaveQuery saves a new query or updates an existing one with the same name
func (s *QueryServiceImpl) SaveQuery(ctx context.Context, name, query, category, description string) (*SavedQueryInfo, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := s.ValidateQueryName(ctx, name); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}

	c, err := ParseCategory(category)
	if err != nil {
		return nil, err
	}

	saved, err := s.store.Save(ctx, s.mailboxID, name, strings.TrimSpace(query), string(c), description)
	if err != nil {
		return nil, fmt.Errorf("failed to save query: %w", err)
	}
	return convertSavedSearch(saved), nil
}

// GetQuery retrieves a saved query by name
func (s *QueryServiceImpl) GetQuery(ctx context.Context, name string) (*SavedQueryInfo, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: query name cannot be empty", ErrInvalidInput)
	}

	saved, err := s.store.GetByName(ctx, s.mailboxID, strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("failed to get query: %w", err)
	}
	return convertSavedSearch(saved), nil
}

// GetQueryByID retrieves a saved query by ID
func (s *QueryServiceImpl) GetQueryByID(ctx context.Context, id int64) (*SavedQueryInfo, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid query ID", ErrInvalidInput)
	}

	saved, err := s.store.GetByID(ctx, s.mailboxID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get query: %w", err)
	}
	return convertSavedSearch(saved), nil
}

// ListQueries returns saved queries, most recently used first, optionally filtered by category
func (s *QueryServiceImpl) ListQueries(ctx context.Context, category string) ([]*SavedQueryInfo, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if category != "" {
		c, err := ParseCategory(category)
		if err != nil {
			return nil, err
		}
		category = string(c)
	}

	list, err := s.store.List(ctx, s.mailboxID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	out := make([]*SavedQueryInfo, 0, len(list))
	for _, sq := range list {
		out = append(out, convertSavedSearch(sq))
	}
	return out, nil
}

// DeleteQuery removes a saved query
func (s *QueryServiceImpl) DeleteQuery(ctx context.Context, id int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	if id <= 0 {
		return fmt.Errorf("%w: invalid query ID", ErrInvalidInput)
	}
	if err := s.store.Delete(ctx, s.mailboxID, id); err != nil {
		return fmt.Errorf("failed to delete query: %w", err)
	}
	return nil
}

// DeleteQueryByName removes a saved query by name
func (s *QueryServiceImpl) DeleteQueryByName(ctx context.Context, name string) error {
	q, err := s.GetQuery(ctx, name)
	if err != nil {
		return err
	}
	return s.DeleteQuery(ctx, q.ID)
}

// RecordQueryUsage bumps the use count and last-used time
func (s *QueryServiceImpl) RecordQueryUsage(ctx context.Context, id int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	if id <= 0 {
		return fmt.Errorf("%w: invalid query ID", ErrInvalidInput)
	}
	if err := s.store.MarkUsed(ctx, s.mailboxID, id); err != nil {
		return fmt.Errorf("failed to record query usage: %w", err)
	}
	return nil
}

// IsNotFound reports whether err means the saved query does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, db.ErrSearchNotFound)
}

func convertSavedSearch(sq *db.SavedSearch) *SavedQueryInfo {
	return &SavedQueryInfo{
		ID:          sq.ID,
		Name:        sq.Name,
		Query:       sq.Query,
		Description: sq.Description,
		Category:    sq.Category,
		UseCount:    sq.UseCount,
		LastUsed:    sq.LastUsed,
		CreatedAt:   sq.CreatedAt,
	}
}

// ValidateQueryName checks if a query name is valid
func (s *QueryServiceImpl) ValidateQueryName(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: query name cannot be empty", ErrInvalidInput)
	}

	if len(name) > 100 {
		return fmt.Errorf("%w: query name cannot exceed 100 characters", ErrInvalidInput)
	}

	if strings.ContainsAny(name, "\n\r\t") {
		return fmt.Errorf("%w: query name cannot contain newlines or tabs", ErrInvalidInput)
	}

	return nil
}

// GenerateQueryName generates a default name for a query based on its content
func (s *QueryServiceImpl) GenerateQueryName(query string) string {
	words := strings.Fields(query)
	if len(words) == 0 {
		return "Untitled Search"
	}

	if len(words) > 3 {
		words = words[:3]
	}
	name := strings.Join(words, " ")
	name = strings.ToUpper(name[:1]) + name[1:]

	if len(name) > 50 {
		name = name[:47] + "..."
	}
	return name
}

// GetMostUsedQueries returns up to limit queries ordered by use count
func (s *QueryServiceImpl) GetMostUsedQueries(ctx context.Context, limit int) ([]*SavedQueryInfo, error) {
	if limit <= 0 {
		limit = 10
	}
	queries, err := s.ListQueries(ctx, "")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(queries, func(i, j int) bool {
		return queries[i].UseCount > queries[j].UseCount
	})
	if len(queries) > limit {
		queries = queries[:limit]
	}
	return queries, nil
}

// GetRecentQueries returns up to limit queries that have been used, most recent first
func (s *QueryServiceImpl) GetRecentQueries(ctx context.Context, limit int) ([]*SavedQueryInfo, error) {
	if limit <= 0 {
		limit = 10
	}
	queries, err := s.ListQueries(ctx, "")
	if err != nil {
		return nil, err
	}

	var recent []*SavedQueryInfo
	for _, q := range queries {
		if q.UseCount > 0 {
			recent = append(recent, q)
		}
		if len(recent) >= limit {
			break
		}
	}
	return recent, nil
}
