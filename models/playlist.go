package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemKind tags what a playlist item, download or history row points at.
type ItemKind string

const (
	ItemPodcast ItemKind = "podcast"
	ItemEpisode ItemKind = "episode"
)

func (k ItemKind) Valid() bool {
	return k == ItemPodcast || k == ItemEpisode
}

type Playlist struct {
	ID        uuid.UUID      `gorm:"size:36;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"size:36;not null;index" json:"user_id"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Items     []PlaylistItem `gorm:"foreignKey:PlaylistID" json:"items"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (p *Playlist) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PlaylistItem is one entry of a playlist. Items are not foreign keys: the
// referenced podcast or episode may be gone and is resolved at read time.
type PlaylistItem struct {
	ID         uuid.UUID `gorm:"size:36;primaryKey" json:"-"`
	PlaylistID uuid.UUID `gorm:"size:36;not null;uniqueIndex:idx_playlist_item;index:idx_playlist_position" json:"-"`
	Kind       ItemKind  `gorm:"size:16;not null;uniqueIndex:idx_playlist_item" json:"kind"`
	ItemID     uuid.UUID `gorm:"size:36;not null;uniqueIndex:idx_playlist_item" json:"id"`
	Position   int       `gorm:"not null;index:idx_playlist_position" json:"-"`
}

func (i *PlaylistItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Same reports whether two items reference the same podcast or episode.
func (i PlaylistItem) Same(other PlaylistItem) bool {
	return i.Kind == other.Kind && i.ItemID == other.ItemID
}
