package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/podcastr-backend/catalog"
	"github.com/vnkhanh/podcastr-backend/content"
	"github.com/vnkhanh/podcastr-backend/engagement"
	"github.com/vnkhanh/podcastr-backend/metrics"
)

func ListPodcasts(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		podcasts, err := cat.ListAll(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, podcasts)
	}
}

func TrendingPodcasts(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		podcasts, err := cat.Trending(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, podcasts)
	}
}

// SearchPodcasts handles ?q= and the optional ?language= filter.
func SearchPodcasts(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		podcasts, err := cat.Search(c.Request.Context(), c.Query("q"), c.Query("language"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, podcasts)
	}
}

func TopCreators(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		creators, err := cat.TopCreators(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, creators)
	}
}

func AuthorPodcasts(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := cat.ByAuthor(c.Request.Context(), c.Param("identity"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func GetPodcast(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", "podcast")
		if !ok {
			return
		}
		podcast, err := cat.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, podcast)
	}
}

// SimilarPodcasts lists other podcasts using the same voice.
func SimilarPodcasts(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", "podcast")
		if !ok {
			return
		}
		podcasts, err := cat.ByVoiceType(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, podcasts)
	}
}

func RecordView(eng *engagement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", "podcast")
		if !ok {
			return
		}
		if err := eng.IncrementViews(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		metrics.Get().PodcastViewsRecordedTotal.Inc()
		c.Status(http.StatusNoContent)
	}
}

// CreatePodcastInput is the publish form. Audio and image must both have
// been generated or uploaded before publishing.
type CreatePodcastInput struct {
	Title           string   `json:"title" binding:"required,max=255"`
	Description     string   `json:"description" binding:"required"`
	AudioURL        string   `json:"audio_url" binding:"required"`
	AudioStorageRef string   `json:"audio_storage_ref"`
	ImageURL        string   `json:"image_url" binding:"required"`
	ImageStorageRef string   `json:"image_storage_ref"`
	VoicePrompt     string   `json:"voice_prompt"`
	ImagePrompt     string   `json:"image_prompt"`
	VoiceType       string   `json:"voice_type"`
	AudioDuration   float64  `json:"audio_duration" binding:"min=0"`
	Tags            []string `json:"tags" binding:"max=20,dive,max=40"`
	Language        string   `json:"language"`
}

func CreatePodcast(svc *content.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in CreatePodcastInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBindError(c, err)
			return
		}
		podcast, err := svc.CreatePodcast(c.Request.Context(), identity(c), content.PodcastInput{
			Title:           in.Title,
			Description:     in.Description,
			AudioURL:        in.AudioURL,
			AudioStorageRef: in.AudioStorageRef,
			ImageURL:        in.ImageURL,
			ImageStorageRef: in.ImageStorageRef,
			VoicePrompt:     in.VoicePrompt,
			ImagePrompt:     in.ImagePrompt,
			VoiceType:       in.VoiceType,
			AudioDuration:   in.AudioDuration,
			Tags:            in.Tags,
			Language:        in.Language,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, podcast)
	}
}

type EditPodcastInput struct {
	Title           *string   `json:"title" binding:"omitempty,max=255"`
	Description     *string   `json:"description"`
	ImageURL        *string   `json:"image_url"`
	ImageStorageRef *string   `json:"image_storage_ref"`
	Tags            *[]string `json:"tags"`
	Language        *string   `json:"language"`
}

func EditPodcast(svc *content.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", "podcast")
		if !ok {
			return
		}
		var in EditPodcastInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBindError(c, err)
			return
		}
		podcast, err := svc.EditPodcast(c.Request.Context(), identity(c), id, content.PodcastPatch{
			Title:           in.Title,
			Description:     in.Description,
			ImageURL:        in.ImageURL,
			ImageStorageRef: in.ImageStorageRef,
			Tags:            in.Tags,
			Language:        in.Language,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, podcast)
	}
}

func DeletePodcast(svc *content.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", "podcast")
		if !ok {
			return
		}
		if err := svc.DeletePodcast(c.Request.Context(), identity(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Podcast deleted"})
	}
}
