// Package playlist implements membership of podcasts and episodes in a
// user's playlists.
package playlist

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/podcastr-backend/apperrors"
	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/store"
	"github.com/vnkhanh/podcastr-backend/users"
)

// Outcome reports what AddItem did.
type Outcome string

const (
	Added     Outcome = "added"
	Duplicate Outcome = "duplicate"
)

// Item is the caller-facing reference to a podcast or an episode.
type Item struct {
	Kind models.ItemKind `json:"kind" binding:"required,oneof=podcast episode"`
	ID   uuid.UUID       `json:"id" binding:"required"`
}

func (i Item) model(playlistID uuid.UUID, position int) models.PlaylistItem {
	return models.PlaylistItem{PlaylistID: playlistID, Kind: i.Kind, ItemID: i.ID, Position: position}
}

// ValidateItems rejects unknown kinds and repeated references.
func ValidateItems(items []Item) error {
	seen := make(map[Item]struct{}, len(items))
	for _, it := range items {
		if !it.Kind.Valid() {
			return apperrors.Validation("items", "item kind must be podcast or episode")
		}
		if it.ID == uuid.Nil {
			return apperrors.Validation("items", "item id is required")
		}
		if _, dup := seen[it]; dup {
			return apperrors.Validation("items", "playlist items must be unique")
		}
		seen[it] = struct{}{}
	}
	return nil
}

// ReplaceItems overwrites the stored items of a playlist with items, in
// order. It must run inside the caller's transaction.
func ReplaceItems(tx *gorm.DB, playlistID uuid.UUID, items []Item) error {
	if err := tx.Where("playlist_id = ?", playlistID).Delete(&models.PlaylistItem{}).Error; err != nil {
		return store.Translate("playlist item", err)
	}
	if len(items) == 0 {
		return nil
	}
	rows := make([]models.PlaylistItem, 0, len(items))
	for pos, it := range items {
		rows = append(rows, it.model(playlistID, pos))
	}
	if err := tx.Create(&rows).Error; err != nil {
		return store.Translate("playlist item", err)
	}
	return nil
}

type Service struct {
	db    *gorm.DB
	users *users.Service
	now   func() time.Time
}

func NewService(db *gorm.DB, userSvc *users.Service) *Service {
	return &Service{db: db, users: userSvc, now: time.Now}
}

// loadOwned loads a playlist with its ordered items after checking ident
// owns it.
func (s *Service) loadOwned(ctx context.Context, tx *gorm.DB, ident users.Identity, playlistID uuid.UUID) (*models.Playlist, error) {
	var pl models.Playlist
	err := tx.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&pl, "id = ?", playlistID).Error
	if err != nil {
		return nil, store.Translate("playlist", err)
	}
	if _, err := s.users.Authorize(ctx, ident, pl.UserID); err != nil {
		return nil, err
	}
	return &pl, nil
}

// AddItem appends item unless the playlist already holds it, in which case
// the playlist is left untouched and Duplicate is returned.
func (s *Service) AddItem(ctx context.Context, ident users.Identity, playlistID uuid.UUID, item Item) (Outcome, error) {
	if err := ValidateItems([]Item{item}); err != nil {
		return "", err
	}
	pl, err := s.loadOwned(ctx, s.db, ident, playlistID)
	if err != nil {
		return "", err
	}

	candidate := item.model(pl.ID, 0)
	for _, existing := range pl.Items {
		if existing.Same(candidate) {
			return Duplicate, nil
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos int
		if err := tx.Model(&models.PlaylistItem{}).
			Where("playlist_id = ?", pl.ID).
			Select("COALESCE(MAX(position), -1)").
			Scan(&maxPos).Error; err != nil {
			return err
		}
		row := item.model(pl.ID, maxPos+1)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Model(&models.Playlist{}).Where("id = ?", pl.ID).Update("updated_at", s.now()).Error
	})
	if err != nil {
		// A concurrent add of the same item loses on the unique index.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Duplicate, nil
		}
		return "", store.Translate("playlist item", err)
	}
	return Added, nil
}

// CreateWithItem creates a playlist that already contains item.
func (s *Service) CreateWithItem(ctx context.Context, ident users.Identity, name string, item Item) (*models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("name", "playlist name is required")
	}
	if err := ValidateItems([]Item{item}); err != nil {
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
		return ReplaceItems(tx, pl.ID, []Item{item})
	})
	if err != nil {
		return nil, err
	}
	pl.Items = []models.PlaylistItem{item.model(pl.ID, 0)}
	return pl, nil
}

// RemoveAt removes the item at index. When expected is non-nil and the
// stored item at index differs, the call fails with Conflict so a stale
// client never removes the wrong entry.
func (s *Service) RemoveAt(ctx context.Context, ident users.Identity, playlistID uuid.UUID, index int, expected *Item) (*models.Playlist, error) {
	pl, err := s.loadOwned(ctx, s.db, ident, playlistID)
	if err != nil {
		return nil, err
	}
	return s.removeAt(ctx, pl, index, expected)
}

func (s *Service) removeAt(ctx context.Context, pl *models.Playlist, index int, expected *Item) (*models.Playlist, error) {
	return s.remove(ctx, pl, func(tx *gorm.DB) (*models.PlaylistItem, error) {
		if index < 0 {
			return nil, apperrors.Validation("index", "index is out of range")
		}
		var target models.PlaylistItem
		err := tx.Where("playlist_id = ?", pl.ID).Order("position ASC").Offset(index).Take(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Validation("index", "index is out of range")
		}
		if err != nil {
			return nil, err
		}
		if expected != nil && !target.Same(expected.model(pl.ID, 0)) {
			return nil, apperrors.Conflict("playlist changed, reload and try again")
		}
		return &target, nil
	})
}

// RemoveItem removes item wherever it sits in the playlist.
func (s *Service) RemoveItem(ctx context.Context, ident users.Identity, playlistID uuid.UUID, item Item) (*models.Playlist, error) {
	pl, err := s.loadOwned(ctx, s.db, ident, playlistID)
	if err != nil {
		return nil, err
	}
	return s.remove(ctx, pl, func(tx *gorm.DB) (*models.PlaylistItem, error) {
		var target models.PlaylistItem
		err := tx.Where("playlist_id = ? AND kind = ? AND item_id = ?", pl.ID, item.Kind, item.ID).Take(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("playlist item")
		}
		if err != nil {
			return nil, err
		}
		return &target, nil
	})
}

// remove deletes the row chosen by pick and closes the gap behind it. The
// choice is made inside the transaction against the stored rows, so items
// added after pl was loaded survive.
func (s *Service) remove(ctx context.Context, pl *models.Playlist, pick func(tx *gorm.DB) (*models.PlaylistItem, error)) (*models.Playlist, error) {
	now := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := pick(tx)
		if err != nil {
			return err
		}
		res := tx.Where("id = ?", target.ID).Delete(&models.PlaylistItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("playlist changed, reload and try again")
		}
		if err := tx.Model(&models.PlaylistItem{}).
			Where("playlist_id = ? AND position > ?", pl.ID, target.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.Playlist{}).Where("id = ?", pl.ID).Update("updated_at", now).Error
	})
	if err != nil {
		return nil, store.Translate("playlist", err)
	}

	var items []models.PlaylistItem
	if err := s.db.WithContext(ctx).Where("playlist_id = ?", pl.ID).Order("position ASC").Find(&items).Error; err != nil {
		return nil, store.Translate("playlist item", err)
	}
	pl.Items = items
	pl.UpdatedAt = now
	return pl, nil
}
