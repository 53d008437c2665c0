package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vnkhanh/podcastr-backend/apperrors"
	"github.com/vnkhanh/podcastr-backend/engagement"
	"github.com/vnkhanh/podcastr-backend/metrics"
	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/users"
)

type DownloadInput struct {
	ItemType models.ItemKind `json:"item_type" binding:"required,oneof=podcast episode"`
	ItemID   uuid.UUID       `json:"item_id" binding:"required"`
}

// RecordDownload counts one download. Signed-in callers get their own
// counter; anonymous downloads share one.
func RecordDownload(eng *engagement.Service, userSvc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in DownloadInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBindError(c, err)
			return
		}

		userID := uuid.Nil
		if !identity(c).Anonymous() {
			user, ok := currentUser(c, userSvc)
			if !ok {
				return
			}
			userID = user.ID
		}

		count, err := eng.IncrementDownload(c.Request.Context(), in.ItemType, in.ItemID, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		metrics.Get().DownloadsRecordedTotal.WithLabelValues(string(in.ItemType)).Inc()
		c.JSON(http.StatusOK, gin.H{"download_count": count})
	}
}

func DownloadCount(eng *engagement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind := models.ItemKind(c.Param("kind"))
		if !kind.Valid() {
			respondError(c, apperrors.Validation("item_type", "item type must be podcast or episode"))
			return
		}
		id, ok := paramID(c, "id", string(kind))
		if !ok {
			return
		}
		total, err := eng.DownloadCount(c.Request.Context(), kind, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"item_type": kind, "item_id": id, "download_count": total})
	}
}
