package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/waraqa-store/api/internal/database"
	"github.com/waraqa-store/api/internal/enum"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryInUse    = errors.New("category has products")
	ErrNameRequired     = errors.New("name is required")
)

// CategoryQuerier is satisfied by *database.Queries.
type CategoryQuerier interface {
	ListCategories(ctx context.Context) ([]database.Category, error)
	CreateCategory(ctx context.Context, name string) (database.Category, error)
	UpdateCategory(ctx context.Context, arg database.UpdateCategoryParams) (database.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	CountProductsByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
}

// CategoryStore caches categories ordered by creation time. Mutators only
// write to the database; the cache follows through the change feed.
type CategoryStore struct {
	q CategoryQuerier

	mu    sync.RWMutex
	items []database.Category
	byID  map[uuid.UUID]database.Category

	f *follower
}

// NewCategoryStore loads the categories and subscribes to their changes.
func NewCategoryStore(ctx context.Context, q CategoryQuerier, feed Feed) (*CategoryStore, error) {
	s := &CategoryStore{q: q}
	if err := s.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	s.f = follow(feed, "categories", s.Refresh, enum.TableCategories)
	return s, nil
}

// Refresh refetches the full list. On failure the previous list is kept.
func (s *CategoryStore) Refresh(ctx context.Context) error {
	rows, err := s.q.ListCategories(ctx)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]database.Category, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}

	s.mu.Lock()
	s.items = rows
	s.byID = byID
	s.mu.Unlock()
	return nil
}

// List returns a copy of the cached categories.
func (s *CategoryStore) List() []database.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]database.Category, len(s.items))
	copy(out, s.items)
	return out
}

func (s *CategoryStore) Get(id uuid.UUID) (database.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	return c, ok
}

func (s *CategoryStore) Add(ctx context.Context, name string) (database.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return database.Category{}, ErrNameRequired
	}
	return s.q.CreateCategory(ctx, name)
}

func (s *CategoryStore) Update(ctx context.Context, id uuid.UUID, name string) (database.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return database.Category{}, ErrNameRequired
	}
	c, err := s.q.UpdateCategory(ctx, database.UpdateCategoryParams{ID: id, Name: name})
	if errors.Is(err, pgx.ErrNoRows) {
		return database.Category{}, ErrCategoryNotFound
	}
	return c, err
}

// Delete refuses while any product references the category.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.q.CountProductsByCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if n > 0 {
		return ErrCategoryInUse
	}

	_, err = s.q.DeleteCategory(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrCategoryNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		// A product was assigned between the count and the delete.
		return ErrCategoryInUse
	}
	return err
}

// Close stops following the change feed.
func (s *CategoryStore) Close() {
	s.f.close()
}
