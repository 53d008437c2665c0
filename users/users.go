// Package users provisions local profiles for identities issued by the
// external identity provider.
package users

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vnkhanh/podcastr-backend/apperrors"
	"github.com/vnkhanh/podcastr-backend/logger"
	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/store"
)

// DefaultDisplayName is used for profiles provisioned before the identity
// provider has told us anything about the user.
const DefaultDisplayName = "User"

// Identity is the caller as asserted by the identity provider.
type Identity struct {
	Key       string
	Name      string
	Email     string
	AvatarURL string
}

func (i Identity) Anonymous() bool { return i.Key == "" }

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// EnsureUser returns the profile for ident, creating a stub profile on first
// sight. Concurrent first calls for the same identity converge on one row.
func (s *Service) EnsureUser(ctx context.Context, ident Identity) (*models.User, error) {
	return ensureUser(ctx, s.db, ident)
}

func ensureUser(ctx context.Context, db *gorm.DB, ident Identity) (*models.User, error) {
	if ident.Anonymous() {
		return nil, apperrors.Unauthenticated("sign in required")
	}

	stub := models.User{
		IdentityKey: ident.Key,
		DisplayName: DefaultDisplayName,
		Role:        models.RoleViewer,
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "identity_key"}}, DoNothing: true}).
		Create(&stub).Error
	if err != nil {
		return nil, store.Translate("user", err)
	}

	var user models.User
	if err := db.WithContext(ctx).Where("identity_key = ?", ident.Key).First(&user).Error; err != nil {
		return nil, store.Translate("user", err)
	}
	return &user, nil
}

// FindByIdentity loads an existing profile without provisioning one.
func (s *Service) FindByIdentity(ctx context.Context, key string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("identity_key = ?", key).First(&user).Error; err != nil {
		return nil, store.Translate("user", err)
	}
	return &user, nil
}

// Authorize checks that ident is the owner recorded as ownerID. Identities
// without a profile own nothing.
func (s *Service) Authorize(ctx context.Context, ident Identity, ownerID uuid.UUID) (*models.User, error) {
	if ident.Anonymous() {
		return nil, apperrors.Unauthenticated("sign in required")
	}
	user, err := s.FindByIdentity(ctx, ident.Key)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, apperrors.Forbidden("only the owner can change this")
		}
		return nil, err
	}
	if user.ID != ownerID {
		return nil, apperrors.Forbidden("only the owner can change this")
	}
	return user, nil
}

// SyncProfile applies profile data pushed by the identity provider. A new
// avatar is also copied onto every podcast authored by the user.
func (s *Service) SyncProfile(ctx context.Context, ident Identity) (*models.User, error) {
	var synced *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := ensureUser(ctx, tx, ident)
		if err != nil {
			return err
		}

		fields := map[string]interface{}{
			"email":      ident.Email,
			"avatar_url": ident.AvatarURL,
		}
		if ident.Name != "" {
			fields["display_name"] = ident.Name
		}
		if err := store.Patch[models.User](ctx, tx, "user", user.ID, fields); err != nil {
			return err
		}

		if user.AvatarURL != ident.AvatarURL {
			err := tx.Model(&models.Podcast{}).
				Where("author_identity = ?", ident.Key).
				Update("author_avatar_url", ident.AvatarURL).Error
			if err != nil {
				return store.Translate("podcast", err)
			}
		}

		synced, err = store.Get[models.User](ctx, tx, "user", user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return synced, nil
}

// DeleteUser removes the profile only. Podcasts and playlists owned by the
// user are left in place.
func (s *Service) DeleteUser(ctx context.Context, key string) error {
	res := s.db.WithContext(ctx).Where("identity_key = ?", key).Delete(&models.User{})
	if res.Error != nil {
		return store.Translate("user", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("user")
	}
	logger.Log.Info("User deleted", zap.String("identity_key", key))
	return nil
}

// GetRole returns the role of key, defaulting to viewer for unknown users.
func (s *Service) GetRole(ctx context.Context, key string) (models.UserRole, error) {
	user, err := s.FindByIdentity(ctx, key)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return models.RoleViewer, nil
		}
		return "", err
	}
	if user.Role == "" {
		return models.RoleViewer, nil
	}
	return user.Role, nil
}

// SetRole provisions the user if needed and switches its role.
func (s *Service) SetRole(ctx context.Context, ident Identity, role models.UserRole) (*models.User, error) {
	if !role.Valid() {
		return nil, apperrors.Validation("role", "role must be viewer or creator")
	}
	user, err := s.EnsureUser(ctx, ident)
	if err != nil {
		return nil, err
	}
	if err := store.Patch[models.User](ctx, s.db, "user", user.ID, map[string]interface{}{"role": role}); err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}
