package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/player"
	"github.com/vnkhanh/podcastr-backend/users"
)

// CurrentPlayback answers {"state": null} when nothing is loaded.
func CurrentPlayback(store *player.Store, userSvc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, userSvc)
		if !ok {
			return
		}
		state, err := store.Current(c.Request.Context(), user.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": state})
	}
}

type PlayInput struct {
	Track models.PlaybackTrack `json:"track"`
	Start *float64             `json:"start" binding:"omitempty,min=0"`
}

func Play(store *player.Store, userSvc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in PlayInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBindError(c, err)
			return
		}
		user, ok := currentUser(c, userSvc)
		if !ok {
			return
		}
		state, err := store.Play(c.Request.Context(), user.ID, in.Track, in.Start)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": state})
	}
}

func Pause(store *player.Store, userSvc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, userSvc)
		if !ok {
			return
		}
		state, err := store.Pause(c.Request.Context(), user.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": state})
	}
}

type SeekInput struct {
	Position *float64 `json:"position" binding:"required"`
}

func Seek(store *player.Store, userSvc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in SeekInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBindError(c, err)
			return
		}
		user, ok := currentUser(c, userSvc)
		if !ok {
			return
		}
		state, err := store.Seek(c.Request.Context(), user.ID, *in.Position)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": state})
	}
}

func Stop(store *player.Store, userSvc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, userSvc)
		if !ok {
			return
		}
		if err := store.Stop(c.Request.Context(), user.ID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": nil})
	}
}

// ListeningHistory lists where the caller left each track, newest first.
func ListeningHistory(store *player.Store, userSvc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, userSvc)
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		rows, err := store.History(c.Request.Context(), user.ID, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}
