package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Podcast is a published show. Author fields are copied from the owner at
// creation time; only the avatar is refreshed when the profile changes.
type Podcast struct {
	ID              uuid.UUID                   `gorm:"size:36;primaryKey" json:"id"`
	OwnerID         uuid.UUID                   `gorm:"size:36;not null;index" json:"owner_id"`
	Title           string                      `gorm:"size:255;not null;index" json:"title"`
	Description     string                      `gorm:"type:text" json:"description"`
	AudioURL        string                      `gorm:"type:text" json:"audio_url"`
	AudioStorageRef string                      `gorm:"size:512" json:"audio_storage_ref"`
	ImageURL        string                      `gorm:"type:text" json:"image_url"`
	ImageStorageRef string                      `gorm:"size:512" json:"image_storage_ref"`
	AuthorName      string                      `gorm:"size:150;index" json:"author"`
	AuthorAvatarURL string                      `gorm:"type:text" json:"author_image_url"`
	AuthorIdentity  string                      `gorm:"size:191;index" json:"author_id"`
	VoicePrompt     string                      `gorm:"type:text" json:"voice_prompt"`
	ImagePrompt     string                      `gorm:"type:text" json:"image_prompt"`
	VoiceType       string                      `gorm:"size:50;index" json:"voice_type"`
	AudioDuration   float64                     `json:"audio_duration"`
	ViewCount       int64                       `gorm:"not null;default:0" json:"views"`
	Tags            datatypes.JSONSlice[string] `json:"tags,omitempty"`
	Language        string                      `gorm:"size:50;index" json:"language,omitempty"`
	CreatedAt       time.Time                   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Podcast) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
