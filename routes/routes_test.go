package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/auth/credentials/idtoken"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/vnkhanh/podcastr-backend/catalog"
	"github.com/vnkhanh/podcastr-backend/content"
	"github.com/vnkhanh/podcastr-backend/engagement"
	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/player"
	"github.com/vnkhanh/podcastr-backend/playlist"
	"github.com/vnkhanh/podcastr-backend/routes"
	"github.com/vnkhanh/podcastr-backend/search"
	"github.com/vnkhanh/podcastr-backend/services"
	"github.com/vnkhanh/podcastr-backend/storage"
	"github.com/vnkhanh/podcastr-backend/testutil"
	"github.com/vnkhanh/podcastr-backend/users"
	"github.com/vnkhanh/podcastr-backend/utils"
	"github.com/vnkhanh/podcastr-backend/ws"
)

var secret = []byte("router-secret")

const webhookSecret = "hook-secret"

type stubText struct{}

func (stubText) Name() string { return "stub" }
func (stubText) GenerateText(ctx context.Context, prompt string) (string, error) {
	return "A calm look at tides.\nSecond line", nil
}

type stubSpeech struct{}

func (stubSpeech) Name() string { return "stub" }
func (stubSpeech) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	frame := make([]byte, 417)
	frame[0], frame[1], frame[2], frame[3] = 0xFF, 0xFB, 0x90, 0x00
	return bytes.Repeat(frame, 40), nil
}

type stubImages struct{}

func (stubImages) Name() string { return "stub" }
func (stubImages) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	return []byte("\x89PNG fake"), nil
}

func validGoogleToken(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
	if token != "good-google-token" || audience != "client-123" {
		return nil, errors.New("bad token")
	}
	return &idtoken.Payload{
		Subject: "1001",
		Claims:  map[string]interface{}{"email": "ada@example.com", "name": "Ada", "picture": "https://img/ada.png"},
	}, nil
}

type APISuite struct {
	suite.Suite
	db     *gorm.DB
	blobs  *storage.Memory
	router *gin.Engine
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.db = testutil.NewDB(s.T())
	s.blobs = storage.NewMemory("https://cdn.test")

	index := search.NewDBIndex(s.db)
	userSvc := users.NewService(s.db)
	hub := ws.NewHub()

	s.router = routes.SetupRouter(gin.New(), routes.Deps{
		DB:              s.db,
		JWTSecret:       secret,
		TokenTTL:        time.Hour,
		GoogleClientID:  "client-123",
		GoogleValidator: validGoogleToken,
		WebhookSecret:   webhookSecret,
		Users:           userSvc,
		Catalog:         catalog.NewService(s.db, index),
		Content:         content.NewService(s.db, userSvc, s.blobs, index, hub),
		Playlists:       playlist.NewService(s.db, userSvc),
		Engagement:      engagement.NewService(s.db),
		Player:          player.NewStore(s.db, player.NewDBPersister(s.db)),
		Generator:       services.NewGenerator(stubText{}, stubSpeech{}, stubImages{}, s.blobs, time.Second),
		Hub:             hub,
	})
}

func (s *APISuite) token(key string) string {
	tok, err := utils.GenerateToken(secret, users.Identity{Key: key, Name: key}, time.Hour)
	s.Require().NoError(err)
	return tok
}

func (s *APISuite) do(method, path, key string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(key))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *APISuite) decode(w *httptest.ResponseRecorder, out interface{}) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func (s *APISuite) publish(key, title string) models.Podcast {
	w := s.do(http.MethodPost, "/api/podcasts", key, gin.H{
		"title":       title,
		"description": "about " + title,
		"audio_url":   "https://cdn.test/audio/" + title + ".mp3",
		"image_url":   "https://cdn.test/images/" + title + ".png",
		"voice_type":  "alloy",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var p models.Podcast
	s.decode(w, &p)
	return p
}

func (s *APISuite) TestPingAndHealth() {
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/ping", "", nil).Code)

	w := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"db":"ok"`)
}

func (s *APISuite) TestPublishRequiresAuthAndBothAssets() {
	s.Equal(http.StatusUnauthorized, s.do(http.MethodPost, "/api/podcasts", "", gin.H{"title": "x"}).Code)

	w := s.do(http.MethodPost, "/api/podcasts", "alice", gin.H{
		"title": "Tides", "description": "d", "audio_url": "https://cdn.test/a.mp3",
	})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Contains(w.Body.String(), `"field":"imageurl"`)
}

func (s *APISuite) TestPodcastLifecycle() {
	p := s.publish("alice", "Tides")
	s.Equal("alice", p.AuthorIdentity)

	s.Equal(http.StatusNoContent, s.do(http.MethodPost, "/api/podcasts/"+p.ID.String()+"/views", "", nil).Code)
	var got models.Podcast
	w := s.do(http.MethodGet, "/api/podcasts/"+p.ID.String(), "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &got)
	s.EqualValues(1, got.ViewCount)

	s.Equal(http.StatusForbidden, s.do(http.MethodPatch, "/api/podcasts/"+p.ID.String(), "mallory", gin.H{"title": "mine"}).Code)

	w = s.do(http.MethodPatch, "/api/podcasts/"+p.ID.String(), "alice", gin.H{"title": "Tides II"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &got)
	s.Equal("Tides II", got.Title)
	s.Equal("about Tides", got.Description)

	w = s.do(http.MethodGet, "/api/podcasts/search?q=Tides", "", nil)
	var found []models.Podcast
	s.decode(w, &found)
	s.Len(found, 1)

	s.Equal(http.StatusOK, s.do(http.MethodDelete, "/api/podcasts/"+p.ID.String(), "alice", nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/podcasts/"+p.ID.String(), "", nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/podcasts/not-a-uuid", "", nil).Code)
}

func (s *APISuite) TestEpisodesAreNumbered() {
	p := s.publish("alice", "Tides")
	path := "/api/podcasts/" + p.ID.String() + "/episodes"

	s.Equal(http.StatusForbidden, s.do(http.MethodPost, path, "bob", gin.H{"title": "Intro"}).Code)

	w := s.do(http.MethodPost, path, "alice", gin.H{"title": "Intro"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	w = s.do(http.MethodPost, path, "alice", gin.H{"title": "Deep water", "language": "French"})
	s.Require().Equal(http.StatusCreated, w.Code)
	var second models.Episode
	s.decode(w, &second)
	s.Equal(2, second.Number)
	s.Equal("EP-2: Deep water", second.Title)

	var list []models.Episode
	s.decode(s.do(http.MethodGet, path+"?language=French", "", nil), &list)
	s.Len(list, 1)

	s.Equal(http.StatusOK, s.do(http.MethodDelete, "/api/episodes/"+second.ID.String(), "alice", nil).Code)
}

func (s *APISuite) TestPlaylistMembership() {
	p := s.publish("alice", "Tides")
	item := gin.H{"kind": "podcast", "id": p.ID}

	w := s.do(http.MethodPost, "/api/playlists/with-item", "bob", gin.H{"name": "Later", "item": item})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var pl models.Playlist
	s.decode(w, &pl)
	s.Require().Len(pl.Items, 1)

	var outcome struct{ Outcome string }
	s.decode(s.do(http.MethodPost, "/api/playlists/"+pl.ID.String()+"/items", "bob", item), &outcome)
	s.Equal("duplicate", outcome.Outcome)

	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/api/playlists/"+pl.ID.String()+"/resolved", "alice", nil).Code)

	var resolved playlist.ResolvedPlaylist
	s.decode(s.do(http.MethodGet, "/api/playlists/"+pl.ID.String()+"/resolved", "bob", nil), &resolved)
	s.Require().Len(resolved.Items, 1)
	s.Equal("Tides", resolved.Items[0].Title)

	stale := "/api/playlists/" + pl.ID.String() + "/items/0?kind=episode&item_id=" + uuid.NewString()
	s.Equal(http.StatusConflict, s.do(http.MethodDelete, stale, "bob", nil).Code)

	w = s.do(http.MethodDelete, "/api/playlists/"+pl.ID.String()+"/items/0", "bob", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &pl)
	s.Empty(pl.Items)

	var mine []models.Playlist
	s.decode(s.do(http.MethodGet, "/api/playlists", "bob", nil), &mine)
	s.Len(mine, 1)
}

func (s *APISuite) TestDownloadsCountAnonymousAndSignedIn() {
	p := s.publish("alice", "Tides")
	body := gin.H{"item_type": "podcast", "item_id": p.ID}

	s.Equal(http.StatusOK, s.do(http.MethodPost, "/api/downloads", "", body).Code)
	var res struct {
		DownloadCount int64 `json:"download_count"`
	}
	s.decode(s.do(http.MethodPost, "/api/downloads", "", body), &res)
	s.EqualValues(2, res.DownloadCount)
	s.decode(s.do(http.MethodPost, "/api/downloads", "bob", body), &res)
	s.EqualValues(1, res.DownloadCount)

	s.decode(s.do(http.MethodGet, "/api/downloads/podcast/"+p.ID.String(), "", nil), &res)
	s.EqualValues(3, res.DownloadCount)

	s.Equal(http.StatusUnprocessableEntity, s.do(http.MethodPost, "/api/downloads", "", gin.H{"item_type": "song", "item_id": p.ID}).Code)
}

func (s *APISuite) TestPlayerRoundTrip() {
	track := gin.H{"kind": "podcast", "id": uuid.New(), "title": "Tides", "audio_url": "https://cdn.test/a.mp3", "duration": 120}

	s.Equal(http.StatusConflict, s.do(http.MethodPost, "/api/player/pause", "bob", nil).Code)

	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, "/api/player/play", "bob", gin.H{"track": track}).Code)
	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, "/api/player/seek", "bob", gin.H{"position": 30}).Code)

	var res struct{ State *models.PlaybackState }
	s.decode(s.do(http.MethodGet, "/api/player", "bob", nil), &res)
	s.Require().NotNil(res.State)
	s.Equal(30.0, res.State.Position)
	s.True(res.State.Playing)

	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, "/api/player/stop", "bob", nil).Code)
	s.decode(s.do(http.MethodGet, "/api/player", "bob", nil), &res)
	s.Nil(res.State)

	var history []models.ListeningHistory
	s.decode(s.do(http.MethodGet, "/api/me/history", "bob", nil), &history)
	s.Require().Len(history, 1)
	s.Equal(30.0, history[0].LastPosition)
}

func (s *APISuite) TestGenerationNeedsCreatorRole() {
	s.Equal(http.StatusForbidden, s.do(http.MethodPost, "/api/generate/script", "carol", gin.H{"keywords": "tides"}).Code)

	s.Require().Equal(http.StatusOK, s.do(http.MethodPut, "/api/me/role", "carol", gin.H{"role": "creator"}).Code)

	var script struct{ Script string }
	s.decode(s.do(http.MethodPost, "/api/generate/script", "carol", gin.H{"keywords": "tides"}), &script)
	s.NotEmpty(script.Script)

	var prompt struct{ Prompt string }
	s.decode(s.do(http.MethodPost, "/api/generate/thumbnail-prompt", "carol", gin.H{"script": script.Script}), &prompt)
	s.Equal("A calm look at tides.", prompt.Prompt)

	var audio services.Asset
	w := s.do(http.MethodPost, "/api/generate/audio", "carol", gin.H{"voice": "alloy", "text": script.Script, "title": "Tides"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.decode(w, &audio)
	s.True(s.blobs.Has(audio.StorageRef))

	s.Equal(http.StatusUnprocessableEntity, s.do(http.MethodPost, "/api/generate/audio", "carol", gin.H{"voice": "robot", "text": "x"}).Code)

	var image services.Asset
	s.decode(s.do(http.MethodPost, "/api/generate/thumbnail", "carol", gin.H{"prompt": prompt.Prompt}), &image)
	s.True(s.blobs.Has(image.StorageRef))
}

func (s *APISuite) TestUploadImage() {
	_, err := users.NewService(s.db).SetRole(context.Background(), users.Identity{Key: "carol"}, models.RoleCreator)
	s.Require().NoError(err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "cover.png")
	s.Require().NoError(err)
	_, _ = fw.Write([]byte("\x89PNG data"))
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token("carol"))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var asset services.Asset
	s.decode(w, &asset)
	s.True(s.blobs.Has(asset.StorageRef))
}

func (s *APISuite) TestGoogleLogin() {
	s.Equal(http.StatusUnauthorized, s.do(http.MethodPost, "/api/auth/google", "", gin.H{"id_token": "forged"}).Code)

	w := s.do(http.MethodPost, "/api/auth/google", "", gin.H{"id_token": "good-google-token"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var res struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	s.decode(w, &res)
	s.Equal("google|1001", res.User.IdentityKey)
	s.Equal("Ada", res.User.DisplayName)

	claims, err := utils.VerifyToken(secret, res.Token)
	s.Require().NoError(err)
	s.Equal("google|1001", claims.Subject)
}

func (s *APISuite) TestIdentityWebhook() {
	event := gin.H{"type": "user.created", "data": gin.H{"id": "ext-7", "name": "Grace", "email": "g@example.com"}}

	req := func(secretHeader string, body interface{}) int {
		var buf bytes.Buffer
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
		r := httptest.NewRequest(http.MethodPost, "/api/webhooks/identity", &buf)
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("X-Webhook-Secret", secretHeader)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, r)
		return w.Code
	}

	s.Equal(http.StatusUnauthorized, req("wrong", event))
	s.Equal(http.StatusOK, req(webhookSecret, event))

	user, err := users.NewService(s.db).FindByIdentity(context.Background(), "ext-7")
	s.Require().NoError(err)
	s.Equal("Grace", user.DisplayName)

	s.Equal(http.StatusOK, req(webhookSecret, gin.H{"type": "user.deleted", "data": gin.H{"id": "ext-7"}}))
	s.Equal(http.StatusOK, req(webhookSecret, gin.H{"type": "user.deleted", "data": gin.H{"id": "ext-7"}}))
	s.Equal(http.StatusUnprocessableEntity, req(webhookSecret, gin.H{"type": "user.renamed", "data": gin.H{"id": "x"}}))
}
