package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/podcastr-backend/catalog"
	"github.com/vnkhanh/podcastr-backend/content"
)

// ListEpisodes lists a podcast's episodes, optionally only one ?language=.
func ListEpisodes(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", "podcast")
		if !ok {
			return
		}
		episodes, err := cat.Episodes(c.Request.Context(), id, c.Query("language"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, episodes)
	}
}

type CreateEpisodeInput struct {
	Title           string   `json:"title" binding:"required,max=200"`
	Description     string   `json:"description"`
	AudioURL        string   `json:"audio_url"`
	AudioStorageRef string   `json:"audio_storage_ref"`
	Language        string   `json:"language"`
	Tags            []string `json:"tags" binding:"max=20,dive,max=40"`
}

func CreateEpisode(svc *content.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		podcastID, ok := paramID(c, "id", "podcast")
		if !ok {
			return
		}
		var in CreateEpisodeInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBindError(c, err)
			return
		}
		episode, err := svc.CreateEpisode(c.Request.Context(), identity(c), podcastID, content.EpisodeInput{
			Title:           in.Title,
			Description:     in.Description,
			AudioURL:        in.AudioURL,
			AudioStorageRef: in.AudioStorageRef,
			Language:        in.Language,
			Tags:            in.Tags,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, episode)
	}
}

type EditEpisodeInput struct {
	Title           *string   `json:"title"`
	Description     *string   `json:"description"`
	AudioURL        *string   `json:"audio_url"`
	AudioStorageRef *string   `json:"audio_storage_ref"`
	Language        *string   `json:"language"`
	Tags            *[]string `json:"tags"`
}

func EditEpisode(svc *content.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", "episode")
		if !ok {
			return
		}
		var in EditEpisodeInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBindError(c, err)
			return
		}
		episode, err := svc.EditEpisode(c.Request.Context(), identity(c), id, content.EpisodePatch{
			Title:           in.Title,
			Description:     in.Description,
			AudioURL:        in.AudioURL,
			AudioStorageRef: in.AudioStorageRef,
			Language:        in.Language,
			Tags:            in.Tags,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, episode)
	}
}

func DeleteEpisode(svc *content.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", "episode")
		if !ok {
			return
		}
		if err := svc.DeleteEpisode(c.Request.Context(), identity(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Episode deleted"})
	}
}
