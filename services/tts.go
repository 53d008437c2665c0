package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/vnkhanh/podcastr-backend/logger"
)

// Voices offered to creators.
var Voices = []string{"alloy", "shimmer", "nova", "echo", "fable", "onyx"}

func ValidVoice(voice string) bool {
	for _, v := range Voices {
		if v == voice {
			return true
		}
	}
	return false
}

// SpeechSynthesizer turns text into MP3 audio.
type SpeechSynthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Google Cloud voices standing in for the creator-facing voice names.
var googleVoices = map[string]string{
	"alloy":   "en-US-Neural2-C",
	"shimmer": "en-US-Neural2-F",
	"nova":    "en-US-Neural2-H",
	"echo":    "en-US-Neural2-D",
	"fable":   "en-GB-Neural2-B",
	"onyx":    "en-US-Neural2-J",
}

// Google Cloud Text-to-Speech rejects inputs over 5000 bytes.
const googleChunkBytes = 4500

type GoogleSpeech struct {
	credentialsFile string
	rate            float64
}

func NewGoogleSpeech(credentialsFile string, rate float64) *GoogleSpeech {
	if rate <= 0 {
		rate = 1.0
	}
	return &GoogleSpeech{credentialsFile: credentialsFile, rate: rate}
}

func (g *GoogleSpeech) Name() string { return "google-tts" }

func (g *GoogleSpeech) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is empty")
	}
	if g.credentialsFile == "" {
		return nil, errors.New("GOOGLE_CREDENTIALS_JSON is not set")
	}
	name, ok := googleVoices[voice]
	if !ok {
		name = voice
	}
	languageCode := "en-US"
	if parts := strings.SplitN(name, "-", 3); len(parts) == 3 {
		languageCode = parts[0] + "-" + parts[1]
	}

	client, err := texttospeech.NewClient(ctx, option.WithCredentialsFile(g.credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("create tts client: %w", err)
	}
	defer client.Close()

	chunks := splitTextToChunksByByte(text, googleChunkBytes)
	var audio []byte
	for idx, chunk := range chunks {
		logger.Log.Debug("Synthesizing chunk",
			zap.Int("chunk", idx+1),
			zap.Int("chunks", len(chunks)),
			zap.Int("bytes", len(chunk)),
		)

		req := &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
			},
			Voice: &texttospeechpb.VoiceSelectionParams{
				LanguageCode: languageCode,
				Name:         name,
			},
			AudioConfig: &texttospeechpb.AudioConfig{
				AudioEncoding: texttospeechpb.AudioEncoding_MP3,
				SpeakingRate:  g.rate,
			},
		}
		resp, err := client.SynthesizeSpeech(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("synthesize chunk %d/%d: %w", idx+1, len(chunks), err)
		}
		audio = append(audio, resp.AudioContent...)
	}
	return audio, nil
}

// splitTextToChunksByByte cuts text into pieces of at most maxBytes, preferring
// to end on sentence punctuation and never splitting a UTF-8 sequence.
func splitTextToChunksByByte(text string, maxBytes int) []string {
	var chunks []string
	remaining := text

	for len(remaining) > 0 {
		if len(remaining) <= maxBytes {
			chunks = append(chunks, remaining)
			break
		}

		cutPos := maxBytes
		for i := cutPos; i > 0; i-- {
			c := remaining[i-1]
			if c == '.' || c == '!' || c == '?' || c == '\n' {
				cutPos = i
				break
			}
		}

		// back off to a rune boundary
		for cutPos > 0 && (remaining[cutPos]&0xC0) == 0x80 {
			cutPos--
		}
		if cutPos == 0 {
			cutPos = maxBytes
		}

		chunks = append(chunks, remaining[:cutPos])
		remaining = remaining[cutPos:]
	}

	return chunks
}
