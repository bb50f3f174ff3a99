// Package store provides owner-scoped persistence for the user-owned entities.
//
// Every query carries a user_id condition: a row owned by someone else is
// indistinguishable from a missing row and reported as NotFound.
package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
)

// Entity constrains P to be a pointer to T implementing models.Ownable.
type Entity[T any] interface {
	*T
	models.Ownable
}

// ListOptions filters and pages a listing. Filters are column = value pairs
// chosen by the caller, never raw user input.
type ListOptions struct {
	Limit   int
	Offset  int
	Order   string
	Filters map[string]any
}

const (
	DefaultLimit = 50
	MaxLimit     = 200
	defaultOrder = "created_at DESC, id DESC"
)

type Store[T any, P Entity[T]] struct {
	db       *gorm.DB
	entity   string
	preloads []string
}

// New creates a store for T. entity names T in error codes ("client_not_found").
func New[T any, P Entity[T]](db *gorm.DB, entity string, preloads ...string) *Store[T, P] {
	return &Store[T, P]{db: db, entity: entity, preloads: preloads}
}

// WithDB returns a copy of the store running on db, typically a transaction.
func (s *Store[T, P]) WithDB(db *gorm.DB) *Store[T, P] {
	clone := *s
	clone.db = db
	return &clone
}

func (s *Store[T, P]) Entity() string { return s.entity }

func (s *Store[T, P]) owned(ctx context.Context, ownerID uint) *gorm.DB {
	return s.db.WithContext(ctx).Model(new(T)).Where("user_id = ?", ownerID)
}

func (s *Store[T, P]) List(ctx context.Context, ownerID uint, opts ListOptions) ([]T, int64, error) {
	q := s.owned(ctx, ownerID)
	if len(opts.Filters) > 0 {
		q = q.Where(opts.Filters)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, Translate(err, s.entity)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)
	order := opts.Order
	if order == "" {
		order = defaultOrder
	}

	items := []T{}
	find := q.Order(order).Limit(limit).Offset(max(opts.Offset, 0))
	for _, p := range s.preloads {
		find = find.Preload(p)
	}
	if err := find.Find(&items).Error; err != nil {
		return nil, 0, Translate(err, s.entity)
	}
	return items, total, nil
}

func (s *Store[T, P]) Get(ctx context.Context, ownerID, id uint) (P, error) {
	q := s.owned(ctx, ownerID)
	for _, p := range s.preloads {
		q = q.Preload(p)
	}
	var e T
	if err := q.Where("id = ?", id).First(&e).Error; err != nil {
		return nil, Translate(err, s.entity)
	}
	return &e, nil
}

func (s *Store[T, P]) Exists(ctx context.Context, ownerID, id uint) (bool, error) {
	var n int64
	if err := s.owned(ctx, ownerID).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, Translate(err, s.entity)
	}
	return n > 0, nil
}

func (s *Store[T, P]) Count(ctx context.Context, ownerID uint, filters map[string]any) (int64, error) {
	q := s.owned(ctx, ownerID)
	if len(filters) > 0 {
		q = q.Where(filters)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, Translate(err, s.entity)
	}
	return n, nil
}

// Create inserts e as owned by ownerID, whatever user id e carried.
// Associations are never written through the parent.
func (s *Store[T, P]) Create(ctx context.Context, ownerID uint, e P) error {
	e.SetUserID(ownerID)
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(e).Error; err != nil {
		return Translate(err, s.entity)
	}
	return nil
}

// Update applies column changes to the owner's row and returns the fresh entity.
// The id and owner columns cannot be changed.
func (s *Store[T, P]) Update(ctx context.Context, ownerID, id uint, changes map[string]any) (P, error) {
	delete(changes, "id")
	delete(changes, "user_id")
	if len(changes) > 0 {
		res := s.owned(ctx, ownerID).Where("id = ?", id).Updates(changes)
		if res.Error != nil {
			return nil, Translate(res.Error, s.entity)
		}
		if res.RowsAffected == 0 {
			return nil, apperr.NotFound(s.entity)
		}
	}
	return s.Get(ctx, ownerID, id)
}

func (s *Store[T, P]) Delete(ctx context.Context, ownerID, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).Delete(new(T))
	if res.Error != nil {
		return Translate(res.Error, s.entity)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(s.entity)
	}
	return nil
}
