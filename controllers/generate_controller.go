package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/podcastr-backend/apperrors"
	"github.com/vnkhanh/podcastr-backend/services"
)

// maxImageUpload bounds thumbnails uploaded by creators.
const maxImageUpload = 10 << 20

type ScriptInput struct {
	Keywords string `json:"keywords" binding:"required,max=1000"`
	Template string `json:"template" binding:"max=50"`
	Language string `json:"language" binding:"max=50"`
	Minutes  int    `json:"minutes" binding:"min=0,max=60"`
}

func GenerateScript(gen *services.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in ScriptInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBindError(c, err)
			return
		}
		script, err := gen.GenerateScript(c.Request.Context(), services.ScriptRequest{
			Keywords: in.Keywords,
			Template: in.Template,
			Language: in.Language,
			Minutes:  in.Minutes,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"script": script})
	}
}

type ThumbnailPromptInput struct {
	Script   string `json:"script" binding:"required"`
	Title    string `json:"title"`
	Keywords string `json:"keywords"`
}

func GenerateThumbnailPrompt(gen *services.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in ThumbnailPromptInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBindError(c, err)
			return
		}
		prompt, err := gen.GenerateThumbnailPrompt(c.Request.Context(), in.Script, in.Title, in.Keywords)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"prompt": prompt})
	}
}

type AudioInput struct {
	Voice string `json:"voice" binding:"required"`
	Text  string `json:"text" binding:"required"`
	Title string `json:"title"`
}

// GenerateAudio answers {url, storage_ref, duration} for the publish form.
func GenerateAudio(gen *services.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in AudioInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBindError(c, err)
			return
		}
		asset, err := gen.GenerateAudio(c.Request.Context(), in.Voice, in.Text, in.Title)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, asset)
	}
}

type ThumbnailInput struct {
	Prompt string `json:"prompt" binding:"required"`
	Title  string `json:"title"`
}

func GenerateThumbnail(gen *services.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in ThumbnailInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBindError(c, err)
			return
		}
		asset, err := gen.GenerateThumbnail(c.Request.Context(), in.Prompt, in.Title)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, asset)
	}
}

// UploadImage stores the multipart "file" as a thumbnail.
func UploadImage(gen *services.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			respondError(c, apperrors.Validation("file", "file is required"))
			return
		}
		if fileHeader.Size > maxImageUpload {
			respondError(c, apperrors.Validation("file", "file is too large"))
			return
		}
		f, err := fileHeader.Open()
		if err != nil {
			respondError(c, apperrors.Internal(err))
			return
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			respondError(c, apperrors.Internal(err))
			return
		}
		asset, err := gen.UploadImage(c.Request.Context(), data, fileHeader.Filename)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, asset)
	}
}

// GenerationOptions lists the voices, templates and languages the create
// page offers.
func GenerationOptions() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"voices":    services.Voices,
			"templates": services.Templates,
			"languages": services.Languages,
		})
	}
}
