package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vnkhanh/podcastr-backend/apperrors"
	"github.com/vnkhanh/podcastr-backend/logger"
	"github.com/vnkhanh/podcastr-backend/metrics"
	"github.com/vnkhanh/podcastr-backend/storage"
)

const DefaultGenerationTimeout = 60 * time.Second

// Asset is a generated or uploaded file ready to be attached to a podcast.
type Asset struct {
	URL        string  `json:"url"`
	StorageRef string  `json:"storage_ref"`
	Duration   float64 `json:"duration,omitempty"`
}

// Generator runs the AI steps of podcast creation and stores their output.
// Each call gets its own timeout and is never retried.
type Generator struct {
	text    TextGenerator
	speech  SpeechSynthesizer
	images  ImageGenerator
	blobs   storage.BlobStore
	timeout time.Duration
}

func NewGenerator(text TextGenerator, speech SpeechSynthesizer, images ImageGenerator, blobs storage.BlobStore, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	return &Generator{text: text, speech: speech, images: images, blobs: blobs, timeout: timeout}
}

// call runs fn under the generation timeout and records it in metrics.
func (g *Generator) call(ctx context.Context, kind, provider string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	metrics.ObserveGeneration(kind, provider, time.Since(start).Seconds(), err)
	if err != nil {
		logger.Log.Error("Generation call failed",
			zap.String("kind", kind),
			zap.String("provider", provider),
			zap.Error(err),
		)
		return apperrors.ExternalService(provider, err)
	}
	return nil
}

func (g *Generator) GenerateScript(ctx context.Context, req ScriptRequest) (string, error) {
	if strings.TrimSpace(req.Keywords) == "" {
		return "", apperrors.Validation("keywords", "keywords are required")
	}
	if req.Minutes < 0 {
		return "", apperrors.Validation("minutes", "minutes must not be negative")
	}

	var script string
	err := g.call(ctx, "script", g.text.Name(), func(ctx context.Context) error {
		out, err := g.text.GenerateText(ctx, ScriptPrompt(req))
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			return errors.New("empty script")
		}
		script = out
		return nil
	})
	return script, err
}

func (g *Generator) GenerateThumbnailPrompt(ctx context.Context, script, title, keywords string) (string, error) {
	if strings.TrimSpace(script) == "" {
		return "", apperrors.Validation("script", "script is required")
	}

	var prompt string
	err := g.call(ctx, "thumbnail_prompt", g.text.Name(), func(ctx context.Context) error {
		out, err := g.text.GenerateText(ctx, ThumbnailPrompt(script, title, keywords))
		if err != nil {
			return err
		}
		prompt = FirstLine(out)
		if prompt == "" {
			return errors.New("empty image prompt")
		}
		return nil
	})
	return prompt, err
}

// GenerateAudio synthesizes text with voice, measures it and uploads the
// MP3. title only names the stored object.
func (g *Generator) GenerateAudio(ctx context.Context, voice, text, title string) (*Asset, error) {
	if !ValidVoice(voice) {
		return nil, apperrors.Validation("voice", "unknown voice")
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.Validation("text", "text is required")
	}

	var audio []byte
	err := g.call(ctx, "audio", g.speech.Name(), func(ctx context.Context) error {
		var err error
		audio, err = g.speech.Synthesize(ctx, text, voice)
		if err == nil && len(audio) == 0 {
			err = errors.New("empty audio")
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	duration, err := MP3DurationBytes(audio)
	if err != nil {
		logger.Log.Warn("Could not measure generated audio", zap.Error(err))
		duration = 0
	}

	asset, err := g.upload(ctx, "audio", audio, storage.ObjectPath("audio", title, ".mp3"), "audio/mpeg")
	if err != nil {
		return nil, err
	}
	asset.Duration = duration
	return asset, nil
}

func (g *Generator) GenerateThumbnail(ctx context.Context, prompt, title string) (*Asset, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, apperrors.Validation("prompt", "prompt is required")
	}

	var image []byte
	err := g.call(ctx, "thumbnail", g.images.Name(), func(ctx context.Context) error {
		var err error
		image, err = g.images.GenerateImage(ctx, prompt)
		if err == nil && len(image) == 0 {
			err = errors.New("empty image")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return g.upload(ctx, "thumbnail", image, storage.ObjectPath("images", title, ".png"), "image/png")
}

// UploadImage stores a user supplied thumbnail.
func (g *Generator) UploadImage(ctx context.Context, data []byte, filename string) (*Asset, error) {
	if len(data) == 0 {
		return nil, apperrors.Validation("file", "file is empty")
	}
	contentType := storage.ContentTypeFor(filename)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperrors.Validation("file", "only png, jpeg and webp images are accepted")
	}
	ext := filepath.Ext(filename)
	title := strings.TrimSuffix(filepath.Base(filename), ext)
	return g.upload(ctx, "upload", data, storage.ObjectPath("images", title, ext), contentType)
}

func (g *Generator) upload(ctx context.Context, kind string, data []byte, objectPath, contentType string) (*Asset, error) {
	ref, err := g.blobs.Upload(ctx, data, objectPath, contentType)
	if err != nil {
		logger.Log.Error("Failed to store generated file", zap.String("path", objectPath), zap.Error(err))
		return nil, apperrors.ExternalService("blob storage", err)
	}
	metrics.Get().GeneratedBytesUploaded.WithLabelValues(kind).Add(float64(len(data)))
	return &Asset{URL: g.blobs.URL(ref), StorageRef: ref}, nil
}
