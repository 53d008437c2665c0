package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vnkhanh/podcastr-backend/apperrors"
	"github.com/vnkhanh/podcastr-backend/catalog"
	"github.com/vnkhanh/podcastr-backend/content"
	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/playlist"
	"github.com/vnkhanh/podcastr-backend/users"
)

// ListMyPlaylists returns the caller's playlists, newest first.
func ListMyPlaylists(cat *catalog.Service, userSvc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, userSvc)
		if !ok {
			return
		}
		playlists, err := cat.Playlists(c.Request.Context(), user.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, playlists)
	}
}

type CreatePlaylistInput struct {
	Name  string          `json:"name" binding:"required,max=255"`
	Items []playlist.Item `json:"items" binding:"dive"`
}

func CreatePlaylist(svc *content.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in CreatePlaylistInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBindError(c, err)
			return
		}
		pl, err := svc.CreatePlaylist(c.Request.Context(), identity(c), in.Name, in.Items)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, pl)
	}
}

// EditPlaylistInput renames and/or replaces the whole item list.
type EditPlaylistInput struct {
	Name  *string          `json:"name" binding:"omitempty,max=255"`
	Items *[]playlist.Item `json:"items"`
}

func EditPlaylist(svc *content.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", "playlist")
		if !ok {
			return
		}
		var in EditPlaylistInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBindError(c, err)
			return
		}
		pl, err := svc.EditPlaylist(c.Request.Context(), identity(c), id, in.Name, in.Items)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, pl)
	}
}

func DeletePlaylist(svc *content.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", "playlist")
		if !ok {
			return
		}
		if err := svc.DeletePlaylist(c.Request.Context(), identity(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Playlist deleted"})
	}
}

func ResolvedPlaylist(svc *playlist.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", "playlist")
		if !ok {
			return
		}
		resolved, err := svc.Resolve(c.Request.Context(), identity(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resolved)
	}
}

// AddPlaylistItem answers {"outcome": "added"|"duplicate"}. A duplicate is
// not an error.
func AddPlaylistItem(svc *playlist.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", "playlist")
		if !ok {
			return
		}
		var item playlist.Item
		if err := c.ShouldBindJSON(&item); err != nil {
			respondBindError(c, err)
			return
		}
		outcome, err := svc.AddItem(c.Request.Context(), identity(c), id, item)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"outcome": outcome})
	}
}

type CreateWithItemInput struct {
	Name string        `json:"name" binding:"required,max=255"`
	Item playlist.Item `json:"item"`
}

func CreatePlaylistWithItem(svc *playlist.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in CreateWithItemInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBindError(c, err)
			return
		}
		pl, err := svc.CreateWithItem(c.Request.Context(), identity(c), in.Name, in.Item)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, pl)
	}
}

// RemovePlaylistItemAt removes the item at :index. When ?kind= and ?item_id=
// are given the stored item must match them, otherwise 409 is returned and
// nothing is removed.
func RemovePlaylistItemAt(svc *playlist.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", "playlist")
		if !ok {
			return
		}
		index, err := strconv.Atoi(c.Param("index"))
		if err != nil {
			respondError(c, apperrors.Validation("index", "index must be a number"))
			return
		}

		var expected *playlist.Item
		if kind, itemID := c.Query("kind"), c.Query("item_id"); kind != "" || itemID != "" {
			parsed, err := uuid.Parse(itemID)
			if err != nil || !models.ItemKind(kind).Valid() {
				respondError(c, apperrors.Validation("item", "expected item is invalid"))
				return
			}
			expected = &playlist.Item{Kind: models.ItemKind(kind), ID: parsed}
		}

		pl, err := svc.RemoveAt(c.Request.Context(), identity(c), id, index, expected)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, pl)
	}
}

func RemovePlaylistItem(svc *playlist.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", "playlist")
		if !ok {
			return
		}
		var item playlist.Item
		if err := c.ShouldBindJSON(&item); err != nil {
			respondBindError(c, err)
			return
		}
		pl, err := svc.RemoveItem(c.Request.Context(), identity(c), id, item)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, pl)
	}
}
