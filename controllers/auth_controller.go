package controllers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"cloud.google.com/go/auth/credentials/idtoken"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vnkhanh/podcastr-backend/apperrors"
	"github.com/vnkhanh/podcastr-backend/logger"
	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/users"
	"github.com/vnkhanh/podcastr-backend/utils"
)

// GoogleTokenValidator checks a Google ID token for audience.
type GoogleTokenValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

type GoogleLoginInput struct {
	IDToken string `json:"id_token" binding:"required"`
}

// GoogleLogin exchanges a Google ID token for a session token and syncs the
// caller profile.
func GoogleLogin(validate GoogleTokenValidator, userSvc *users.Service, secret []byte, clientID string, ttl time.Duration) gin.HandlerFunc {
	if validate == nil {
		validate = idtoken.Validate
	}
	return func(c *gin.Context) {
		var input GoogleLoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}

		payload, err := validate(c.Request.Context(), input.IDToken, clientID)
		if err != nil {
			logger.Log.Warn("Google token rejected", zap.Error(err))
			respondError(c, apperrors.Unauthenticated("invalid Google token"))
			return
		}

		ident := users.Identity{Key: "google|" + payload.Subject}
		ident.Email, _ = payload.Claims["email"].(string)
		ident.Name, _ = payload.Claims["name"].(string)
		ident.AvatarURL, _ = payload.Claims["picture"].(string)

		user, err := userSvc.SyncProfile(c.Request.Context(), ident)
		if err != nil {
			respondError(c, err)
			return
		}
		token, err := utils.GenerateToken(secret, ident, ttl)
		if err != nil {
			respondError(c, apperrors.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
	}
}

// IdentityEvent is a profile change pushed by the identity provider.
type IdentityEvent struct {
	Type string `json:"type" binding:"required,oneof=user.created user.updated user.deleted"`
	Data struct {
		ID       string `json:"id" binding:"required"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		ImageURL string `json:"image_url"`
	} `json:"data"`
}

// IdentityWebhook applies user.created, user.updated and user.deleted events.
// Requests must carry the shared secret in X-Webhook-Secret.
func IdentityWebhook(userSvc *users.Service, sharedSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Webhook-Secret")
		if sharedSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(sharedSecret)) != 1 {
			respondError(c, apperrors.Unauthenticated("invalid webhook secret"))
			return
		}

		var ev IdentityEvent
		if err := c.ShouldBindJSON(&ev); err != nil {
			respondBindError(c, err)
			return
		}
		ctx := c.Request.Context()

		switch ev.Type {
		case "user.deleted":
			err := userSvc.DeleteUser(ctx, ev.Data.ID)
			if err != nil && !apperrors.Is(err, apperrors.KindNotFound) {
				respondError(c, err)
				return
			}
		default:
			ident := users.Identity{
				Key:       ev.Data.ID,
				Name:      ev.Data.Name,
				Email:     ev.Data.Email,
				AvatarURL: ev.Data.ImageURL,
			}
			if _, err := userSvc.SyncProfile(ctx, ident); err != nil {
				respondError(c, err)
				return
			}
		}

		logger.Log.Info("Identity event applied", zap.String("type", ev.Type), logger.WithUserID(ev.Data.ID))
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	}
}

// GetMe returns the caller profile, provisioning it on first call.
func GetMe(userSvc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, userSvc)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

type SetRoleInput struct {
	Role models.UserRole `json:"role" binding:"required,oneof=viewer creator"`
}

// SetMyRole switches the caller between viewer and creator.
func SetMyRole(userSvc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input SetRoleInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		user, err := userSvc.SetRole(c.Request.Context(), identity(c), input.Role)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
