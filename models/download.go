package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Download counts downloads of one item by one user. Anonymous downloads
// share the empty UserKey so the unique index still holds.
type Download struct {
	ID        uuid.UUID `gorm:"size:36;primaryKey" json:"id"`
	ItemKind  ItemKind  `gorm:"size:16;not null;uniqueIndex:idx_download_item_user" json:"item_type"`
	ItemID    uuid.UUID `gorm:"size:36;not null;uniqueIndex:idx_download_item_user" json:"item_id"`
	UserKey   string    `gorm:"size:36;not null;default:'';uniqueIndex:idx_download_item_user" json:"user_id,omitempty"`
	Count     int64     `gorm:"column:download_count;not null;default:0" json:"download_count"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (d *Download) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
