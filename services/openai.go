package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/vnkhanh/podcastr-backend/logger"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	openAISpeechModel = "tts-1"
	openAIImageModel  = "dall-e-3"
	openAIImageSize   = "1024x1024"
	openAIChatModel   = "gpt-4o-mini"
)

// ImageGenerator renders a prompt into PNG bytes.
type ImageGenerator interface {
	Name() string
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// OpenAI talks to the OpenAI REST API for speech, images and chat
// completions.
type OpenAI struct {
	client *resty.Client
}

func NewOpenAI(apiKey, baseURL string, timeout time.Duration) *OpenAI {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")

	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.Log.Debug("OpenAI response",
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("latency", resp.Time()),
		)
		return nil
	})

	return &OpenAI{client: client}
}

func (o *OpenAI) Name() string { return "openai" }

type openAIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func responseError(op string, resp *resty.Response) error {
	if apiErr, ok := resp.Error().(*openAIError); ok && apiErr.Error.Message != "" {
		return fmt.Errorf("openai %s: %d %s", op, resp.StatusCode(), apiErr.Error.Message)
	}
	return fmt.Errorf("openai %s: unexpected status %d", op, resp.StatusCode())
}

// Synthesize returns MP3 audio for text.
func (o *OpenAI) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is empty")
	}
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"model":           openAISpeechModel,
			"voice":           voice,
			"input":           text,
			"response_format": "mp3",
		}).
		SetError(&openAIError{}).
		Post("/audio/speech")
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	if resp.IsError() {
		return nil, responseError("speech", resp)
	}
	return resp.Body(), nil
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
}

// GenerateImage renders prompt at 1024x1024 and returns the image bytes.
func (o *OpenAI) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	var out imageResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"model":           openAIImageModel,
			"prompt":          prompt,
			"size":            openAIImageSize,
			"quality":         "standard",
			"n":               1,
			"response_format": "b64_json",
		}).
		SetResult(&out).
		SetError(&openAIError{}).
		Post("/images/generations")
	if err != nil {
		return nil, fmt.Errorf("openai image: %w", err)
	}
	if resp.IsError() {
		return nil, responseError("image", resp)
	}
	if len(out.Data) == 0 {
		return nil, errors.New("openai image: empty response")
	}

	img := out.Data[0]
	if img.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("openai image: decode: %w", err)
		}
		return data, nil
	}
	if img.URL == "" {
		return nil, errors.New("openai image: no image returned")
	}

	dl, err := o.client.R().SetContext(ctx).Get(img.URL)
	if err != nil {
		return nil, fmt.Errorf("openai image: fetch: %w", err)
	}
	if dl.IsError() {
		return nil, fmt.Errorf("openai image: fetch status %d", dl.StatusCode())
	}
	return dl.Body(), nil
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateText runs prompt as a single user message through chat
// completions.
func (o *OpenAI) GenerateText(ctx context.Context, prompt string) (string, error) {
	var out chatResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"model":       openAIChatModel,
			"temperature": 0.7,
			"messages": []map[string]string{
				{"role": "user", "content": prompt},
			},
		}).
		SetResult(&out).
		SetError(&openAIError{}).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if resp.IsError() {
		return "", responseError("chat", resp)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai chat: no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
