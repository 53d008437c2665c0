package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleViewer  UserRole = "viewer"  // listens, builds playlists
	RoleCreator UserRole = "creator" // may use the AI generation tools
)

func (r UserRole) Valid() bool {
	return r == RoleViewer || r == RoleCreator
}

// User is the local profile of an identity from the external provider.
type User struct {
	ID          uuid.UUID `gorm:"size:36;primaryKey" json:"id"`
	IdentityKey string    `gorm:"size:191;uniqueIndex;not null" json:"identity_key"`
	DisplayName string    `gorm:"size:150;not null" json:"display_name"`
	AvatarURL   string    `gorm:"type:text" json:"avatar_url"`
	Email       string    `gorm:"size:150" json:"email"`
	Role        UserRole  `gorm:"size:20;not null" json:"role"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleViewer
	}
	return nil
}
