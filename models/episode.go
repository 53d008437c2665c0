package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Episode numbers start at 1 and are unique within a podcast.
type Episode struct {
	ID              uuid.UUID                   `gorm:"size:36;primaryKey" json:"id"`
	PodcastID       uuid.UUID                   `gorm:"size:36;not null;uniqueIndex:idx_episode_number" json:"podcast_id"`
	Number          int                         `gorm:"not null;uniqueIndex:idx_episode_number" json:"episode_number"`
	Title           string                      `gorm:"size:255;not null" json:"title"`
	Description     string                      `gorm:"type:text" json:"description"`
	AudioURL        string                      `gorm:"type:text" json:"audio_url,omitempty"`
	AudioStorageRef string                      `gorm:"size:512" json:"audio_storage_ref,omitempty"`
	Language        string                      `gorm:"size:50;index" json:"language,omitempty"`
	Tags            datatypes.JSONSlice[string] `json:"tags,omitempty"`
	CreatedAt       time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

func (e *Episode) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
