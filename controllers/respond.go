package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vnkhanh/podcastr-backend/apperrors"
	"github.com/vnkhanh/podcastr-backend/logger"
	"github.com/vnkhanh/podcastr-backend/middleware"
	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/users"
)

// respondError writes err as {"error": message}. Server-side failures are
// logged with details and answered with a generic message.
func respondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	status := kind.StatusCode()

	fields := []zap.Field{
		zap.String("kind", string(kind)),
		zap.String("path", c.Request.URL.Path),
		logger.WithRequestID(c.GetString("request_id")),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Log.Error("Request failed", fields...)
	} else {
		logger.Log.Debug("Request rejected", fields...)
	}

	body := gin.H{"error": apperrors.PublicMessage(err)}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Field != "" {
		body["field"] = appErr.Field
	}
	c.JSON(status, body)
}

// respondBindError turns a gin binding failure into a validation response
// naming the first offending field.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := strings.ToLower(verrs[0].Field())
		respondError(c, apperrors.Validation(field, field+" is invalid ("+verrs[0].Tag()+")"))
		return
	}
	respondError(c, apperrors.Validation("body", "request body is invalid"))
}

// paramID parses a uuid path parameter, answering 404 when malformed.
func paramID(c *gin.Context, name, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apperrors.NotFound(resource))
		return uuid.Nil, false
	}
	return id, true
}

func identity(c *gin.Context) users.Identity {
	return middleware.IdentityFrom(c)
}

// currentUser provisions and returns the caller profile.
func currentUser(c *gin.Context, userSvc *users.Service) (*models.User, bool) {
	user, err := userSvc.EnsureUser(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return user, true
}
