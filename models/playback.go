package models

import (
	"time"

	"github.com/google/uuid"
)

// PlaybackTrack is what the player shows while something is playing.
type PlaybackTrack struct {
	Kind         ItemKind  `gorm:"size:16" json:"kind"`
	ItemID       uuid.UUID `gorm:"size:36" json:"id"`
	Title        string    `gorm:"size:255" json:"title"`
	AudioURL     string    `gorm:"type:text" json:"audio_url"`
	Author       string    `gorm:"size:150" json:"author"`
	ImageURL     string    `gorm:"type:text" json:"image_url"`
	Duration     float64   `json:"duration,omitempty"` // seconds, 0 when unknown
	PodcastID    uuid.UUID `gorm:"size:36" json:"podcast_id"`
	PodcastTitle string    `gorm:"size:255" json:"podcast_title,omitempty"`
	EpisodeTitle string    `gorm:"size:255" json:"episode_title,omitempty"`
	PlaylistName string    `gorm:"size:255" json:"playlist_name,omitempty"`
}

// PlaybackState is the persisted "now playing" record of one user.
type PlaybackState struct {
	UserID    uuid.UUID     `gorm:"size:36;primaryKey" json:"user_id"`
	Track     PlaybackTrack `gorm:"embedded;embeddedPrefix:track_" json:"track"`
	Position  float64       `json:"position"`
	Playing   bool          `json:"playing"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// All returns every model managed by migrations.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Podcast{},
		&Episode{},
		&Playlist{},
		&PlaylistItem{},
		&Download{},
		&ListeningHistory{},
		&PlaybackState{},
	}
}
