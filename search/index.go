// Package search matches podcasts by author, title or description.
package search

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/store"
)

// Field is a searchable podcast attribute.
type Field string

const (
	FieldAuthor      Field = "author_name"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
)

// Index finds podcasts whose field matches a free-text query. language, when
// non-empty, restricts matches to podcasts in that language.
type Index interface {
	Match(ctx context.Context, field Field, query, language string, limit int) ([]uuid.UUID, error)
	Upsert(ctx context.Context, podcast *models.Podcast) error
	Remove(ctx context.Context, id uuid.UUID) error
}

// DBIndex searches the podcasts table directly. Writes are no-ops since the
// table is its own index.
type DBIndex struct {
	db *gorm.DB
}

func NewDBIndex(db *gorm.DB) *DBIndex {
	return &DBIndex{db: db}
}

// likeEscaper escapes LIKE wildcards with '!', which needs no quoting on
// postgres, mysql or sqlite.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (i *DBIndex) Match(ctx context.Context, field Field, query, language string, limit int) ([]uuid.UUID, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	q := i.db.WithContext(ctx).Model(&models.Podcast{}).
		Where("LOWER("+string(field)+") LIKE ? ESCAPE '!'", pattern)
	if language != "" {
		q = q.Where("language = ?", language)
	}

	var ids []uuid.UUID
	if err := q.Order("created_at DESC").Limit(limit).Pluck("id", &ids).Error; err != nil {
		return nil, store.Translate("podcast", err)
	}
	return ids, nil
}

func (i *DBIndex) Upsert(ctx context.Context, podcast *models.Podcast) error { return nil }

func (i *DBIndex) Remove(ctx context.Context, id uuid.UUID) error { return nil }
