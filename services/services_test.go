package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/podcastr-backend/apperrors"
	"github.com/vnkhanh/podcastr-backend/storage"
)

// mp3Frames builds n silent MPEG-1 Layer III frames at 128 kbps / 44.1 kHz.
func mp3Frames(n int) []byte {
	const frameSize = 417
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		frame := make([]byte, frameSize)
		frame[0], frame[1], frame[2], frame[3] = 0xFF, 0xFB, 0x90, 0x00
		buf.Write(frame)
	}
	return buf.Bytes()
}

type fakeText struct {
	out     string
	err     error
	prompts []string
}

func (f *fakeText) Name() string { return "fake-text" }

func (f *fakeText) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.out, f.err
}

type fakeSpeech struct {
	audio []byte
	err   error
	voice string
}

func (f *fakeSpeech) Name() string { return "fake-speech" }

func (f *fakeSpeech) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	f.voice = voice
	return f.audio, f.err
}

type fakeImages struct {
	image []byte
	err   error
}

func (f *fakeImages) Name() string { return "fake-images" }

func (f *fakeImages) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	return f.image, f.err
}

type slowText struct{}

func (slowText) Name() string { return "slow" }

func (slowText) GenerateText(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestScriptPromptDefaults(t *testing.T) {
	prompt := ScriptPrompt(ScriptRequest{Keywords: "black holes"})

	assert.Contains(t, prompt, "Generate a Explainer style podcast script in English based on these keywords: black holes.")
	assert.Contains(t, prompt, "about 2-4 minutes of spoken audio")
}

func TestScriptPromptOptions(t *testing.T) {
	prompt := ScriptPrompt(ScriptRequest{Keywords: "cricket", Template: "News Recap", Language: "Hindi", Minutes: 5})
	assert.Contains(t, prompt, "News Recap style podcast script in Hindi")
	assert.Contains(t, prompt, "about 5 minutes")

	assert.Contains(t, ScriptPrompt(ScriptRequest{Keywords: "x", Minutes: 1}), "about 1 minute of")
}

func TestThumbnailPromptDefaultsTitle(t *testing.T) {
	prompt := ThumbnailPrompt("A story about the sea.", "", "ocean")
	assert.Contains(t, prompt, "Title: Podcast\nKeywords: ocean\nScript:\nA story about the sea.")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "A lighthouse at dusk", FirstLine("\n  \"A lighthouse at dusk\"  \nsecond line"))
	assert.Equal(t, "", FirstLine(" \n\n"))
}

func TestSplitTextToChunksByByte(t *testing.T) {
	text := strings.Repeat("Hello world. ", 10)
	chunks := splitTextToChunksByByte(text, 30)

	assert.Equal(t, text, strings.Join(chunks, ""))
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 30)
	}
	assert.True(t, strings.HasSuffix(chunks[0], "."), "cuts after punctuation")
}

func TestSplitTextKeepsRunesWhole(t *testing.T) {
	text := strings.Repeat("ñ", 50)
	chunks := splitTextToChunksByByte(text, 7)

	assert.Equal(t, text, strings.Join(chunks, ""))
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c))
		assert.LessOrEqual(t, len(c), 7)
	}
}

func TestMP3Duration(t *testing.T) {
	dur, err := MP3DurationBytes(mp3Frames(100))
	require.NoError(t, err)
	assert.InDelta(t, 100*1152.0/44100.0, dur, 0.05)

	_, err = MP3DurationBytes(nil)
	assert.Error(t, err)
}

func TestValidVoice(t *testing.T) {
	assert.True(t, ValidVoice("alloy"))
	assert.True(t, ValidVoice("onyx"))
	assert.False(t, ValidVoice("robot"))
}

func TestGenerateScript(t *testing.T) {
	text := &fakeText{out: "Welcome to the show."}
	g := NewGenerator(text, &fakeSpeech{}, &fakeImages{}, storage.NewMemory(""), time.Second)

	script, err := g.GenerateScript(context.Background(), ScriptRequest{Keywords: "mars", Language: "Tamil"})
	require.NoError(t, err)
	assert.Equal(t, "Welcome to the show.", script)
	require.Len(t, text.prompts, 1)
	assert.Contains(t, text.prompts[0], "in Tamil")

	_, err = g.GenerateScript(context.Background(), ScriptRequest{})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestGenerateScriptProviderFailure(t *testing.T) {
	g := NewGenerator(&fakeText{err: errors.New("quota exceeded")}, &fakeSpeech{}, &fakeImages{}, storage.NewMemory(""), time.Second)

	_, err := g.GenerateScript(context.Background(), ScriptRequest{Keywords: "mars"})
	assert.True(t, apperrors.Is(err, apperrors.KindExternalService))
	assert.NotContains(t, apperrors.PublicMessage(err), "quota")
}

func TestGenerateScriptTimesOut(t *testing.T) {
	g := NewGenerator(slowText{}, &fakeSpeech{}, &fakeImages{}, storage.NewMemory(""), 20*time.Millisecond)

	_, err := g.GenerateScript(context.Background(), ScriptRequest{Keywords: "mars"})
	assert.True(t, apperrors.Is(err, apperrors.KindExternalService))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerateThumbnailPromptSingleLine(t *testing.T) {
	g := NewGenerator(&fakeText{out: "Neon city skyline at night\nExtra commentary"}, &fakeSpeech{}, &fakeImages{}, storage.NewMemory(""), time.Second)

	prompt, err := g.GenerateThumbnailPrompt(context.Background(), "script body", "City", "")
	require.NoError(t, err)
	assert.Equal(t, "Neon city skyline at night", prompt)
}

func TestGenerateAudioUploads(t *testing.T) {
	blobs := storage.NewMemory("https://cdn.test")
	speech := &fakeSpeech{audio: mp3Frames(40)}
	g := NewGenerator(&fakeText{}, speech, &fakeImages{}, blobs, time.Second)

	asset, err := g.GenerateAudio(context.Background(), "nova", "Hello there.", "My Show")
	require.NoError(t, err)
	assert.Equal(t, "nova", speech.voice)
	assert.True(t, strings.HasPrefix(asset.StorageRef, "audio/my-show-"))
	assert.True(t, strings.HasSuffix(asset.StorageRef, ".mp3"))
	assert.Equal(t, "https://cdn.test/"+asset.StorageRef, asset.URL)
	assert.Greater(t, asset.Duration, 0.0)
	assert.True(t, blobs.Has(asset.StorageRef))

	_, err = g.GenerateAudio(context.Background(), "robot", "Hello", "x")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestGenerateThumbnailFailureStoresNothing(t *testing.T) {
	blobs := storage.NewMemory("")
	g := NewGenerator(&fakeText{}, &fakeSpeech{}, &fakeImages{err: errors.New("content policy")}, blobs, time.Second)

	_, err := g.GenerateThumbnail(context.Background(), "a cat", "Cats")
	assert.True(t, apperrors.Is(err, apperrors.KindExternalService))
}

func TestUploadImage(t *testing.T) {
	blobs := storage.NewMemory("")
	g := NewGenerator(&fakeText{}, &fakeSpeech{}, &fakeImages{}, blobs, time.Second)

	asset, err := g.UploadImage(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "cover art.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(asset.StorageRef, "images/cover-art-"))
	assert.True(t, blobs.Has(asset.StorageRef))

	_, err = g.UploadImage(context.Background(), []byte("text"), "notes.txt")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestOpenAISpeechAndImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Path {
		case "/audio/speech":
			assert.Equal(t, "tts-1", body["model"])
			assert.Equal(t, "echo", body["voice"])
			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write([]byte("mp3-bytes"))
		case "/images/generations":
			assert.Equal(t, "dall-e-3", body["model"])
			assert.Equal(t, "1024x1024", body["size"])
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(png)}},
			})
		case "/chat/completions":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{{"message": map[string]string{"content": " A script. "}}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewOpenAI("sk-test", srv.URL, 5*time.Second)
	ctx := context.Background()

	audio, err := client.Synthesize(ctx, "hello", "echo")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), audio)

	image, err := client.GenerateImage(ctx, "a cat")
	require.NoError(t, err)
	assert.Equal(t, png, image)

	text, err := client.GenerateText(ctx, "write")
	require.NoError(t, err)
	assert.Equal(t, "A script.", text)
}

func TestOpenAIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI("sk-test", srv.URL, 5*time.Second).Synthesize(context.Background(), "hello", "alloy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "Rate limit reached")
}
