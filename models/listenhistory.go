package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListeningHistory keeps the last known position of a user on one item.
type ListeningHistory struct {
	ID uuid.UUID `gorm:"size:36;primaryKey" json:"id"`

	UserID   uuid.UUID `gorm:"size:36;not null;uniqueIndex:idx_history_user_item" json:"user_id"`
	ItemKind ItemKind  `gorm:"size:16;not null;uniqueIndex:idx_history_user_item" json:"item_type"`
	ItemID   uuid.UUID `gorm:"size:36;not null;uniqueIndex:idx_history_user_item" json:"item_id"`

	LastPosition    float64    `json:"last_position"` // seconds
	Duration        float64    `json:"duration"`      // seconds, 0 when unknown
	Completed       bool       `gorm:"default:false" json:"completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	LastListenedAt  time.Time  `gorm:"autoUpdateTime" json:"last_listened_at"`
	FirstListenedAt time.Time  `gorm:"autoCreateTime" json:"first_listened_at"`
}

func (h *ListeningHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
