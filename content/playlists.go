package content

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/podcastr-backend/apperrors"
	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/playlist"
	"github.com/vnkhanh/podcastr-backend/store"
	"github.com/vnkhanh/podcastr-backend/users"
)

// CreatePlaylist creates a playlist for ident with an optional initial list
// of items.
func (s *Service) CreatePlaylist(ctx context.Context, ident users.Identity, name string, items []playlist.Item) (*models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("name", "playlist name is required")
	}
	if err := playlist.ValidateItems(items); err != nil {
		return nil, err
	}
	owner, err := s.users.EnsureUser(ctx, ident)
	if err != nil {
		return nil, err
	}

	now := s.now()
	pl := &models.Playlist{UserID: owner.ID, Name: name, CreatedAt: now, UpdatedAt: now}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(pl).Error; err != nil {
			return store.Translate("playlist", err)
		}
		return playlist.ReplaceItems(tx, pl.ID, items)
	})
	if err != nil {
		return nil, err
	}
	return s.loadPlaylist(ctx, pl.ID)
}

// EditPlaylist renames the playlist and/or replaces its whole item list.
func (s *Service) EditPlaylist(ctx context.Context, ident users.Identity, id uuid.UUID, name *string, items *[]playlist.Item) (*models.Playlist, error) {
	pl, err := store.Get[models.Playlist](ctx, s.db, "playlist", id)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.Authorize(ctx, ident, pl.UserID); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{"updated_at": s.now()}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, apperrors.Validation("name", "playlist name cannot be empty")
		}
		fields["name"] = trimmed
	}
	if items != nil {
		if err := playlist.ValidateItems(*items); err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Playlist{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return store.Translate("playlist", err)
		}
		if items == nil {
			return nil
		}
		return playlist.ReplaceItems(tx, id, *items)
	})
	if err != nil {
		return nil, err
	}
	return s.loadPlaylist(ctx, id)
}

// DeletePlaylist removes a playlist and its items.
func (s *Service) DeletePlaylist(ctx context.Context, ident users.Identity, id uuid.UUID) error {
	pl, err := store.Get[models.Playlist](ctx, s.db, "playlist", id)
	if err != nil {
		return err
	}
	if _, err := s.users.Authorize(ctx, ident, pl.UserID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := playlist.ReplaceItems(tx, id, nil); err != nil {
			return err
		}
		return store.Delete[models.Playlist](ctx, tx, "playlist", id)
	})
}

func (s *Service) loadPlaylist(ctx context.Context, id uuid.UUID) (*models.Playlist, error) {
	var pl models.Playlist
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&pl, "id = ?", id).Error
	if err != nil {
		return nil, store.Translate("playlist", err)
	}
	return &pl, nil
}
