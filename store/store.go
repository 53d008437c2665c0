// Package store holds the generic record helpers shared by the service
// packages. Every helper maps gorm's sentinel errors onto apperrors kinds.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vnkhanh/podcastr-backend/apperrors"
)

// Get loads one record by id.
func Get[T any](ctx context.Context, db *gorm.DB, resource string, id uuid.UUID) (*T, error) {
	var out T
	if err := db.WithContext(ctx).First(&out, "id = ?", id).Error; err != nil {
		return nil, Translate(resource, err)
	}
	return &out, nil
}

// Insert stores a new record. Ids and creation timestamps are filled by the
// model hooks and gorm.
func Insert[T any](ctx context.Context, db *gorm.DB, resource string, record *T) error {
	if err := db.WithContext(ctx).Create(record).Error; err != nil {
		return Translate(resource, err)
	}
	return nil
}

// Patch updates only the given columns. Columns missing from fields keep
// their stored values.
func Patch[T any](ctx context.Context, db *gorm.DB, resource string, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		_, err := Get[T](ctx, db, resource, id)
		return err
	}
	res := db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return Translate(resource, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound(resource)
	}
	return nil
}

// ListBy returns every record whose column equals value, sorted by order.
func ListBy[T any](ctx context.Context, db *gorm.DB, resource, column string, value interface{}, order string) ([]T, error) {
	var out []T
	q := db.WithContext(ctx).Where(clause.Eq{Column: clause.Column{Name: column}, Value: value})
	if order != "" {
		q = q.Order(order)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, Translate(resource, err)
	}
	return out, nil
}

// Delete removes a record permanently.
func Delete[T any](ctx context.Context, db *gorm.DB, resource string, id uuid.UUID) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return Translate(resource, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound(resource)
	}
	return nil
}

// Translate converts a gorm error into a domain error.
func Translate(resource string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound(resource)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Duplicate(resource)
	case apperrors.KindOf(err) != apperrors.KindInternal:
		return err
	default:
		return apperrors.Internal(fmt.Errorf("%s: %w", resource, err))
	}
}
