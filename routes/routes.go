package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/vnkhanh/podcastr-backend/catalog"
	"github.com/vnkhanh/podcastr-backend/content"
	"github.com/vnkhanh/podcastr-backend/controllers"
	"github.com/vnkhanh/podcastr-backend/engagement"
	"github.com/vnkhanh/podcastr-backend/middleware"
	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/player"
	"github.com/vnkhanh/podcastr-backend/playlist"
	"github.com/vnkhanh/podcastr-backend/services"
	"github.com/vnkhanh/podcastr-backend/users"
	"github.com/vnkhanh/podcastr-backend/ws"
)

// Deps is everything the router hands to controllers.
type Deps struct {
	DB *gorm.DB

	JWTSecret       []byte
	TokenTTL        time.Duration
	GoogleClientID  string
	GoogleValidator controllers.GoogleTokenValidator // nil means idtoken.Validate
	WebhookSecret   string

	Users      *users.Service
	Catalog    *catalog.Service
	Content    *content.Service
	Playlists  *playlist.Service
	Engagement *engagement.Service
	Player     *player.Store
	Generator  *services.Generator

	Hub      *ws.Hub
	Upgrader *websocket.Upgrader
}

func SetupRouter(r *gin.Engine, d Deps) *gin.Engine {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", middleware.DBMiddleware(d.DB), controllers.HealthCheck(d.Hub))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	upgrader := d.Upgrader
	if upgrader == nil {
		upgrader = ws.NewUpgrader(nil)
	}
	r.GET("/ws/catalog", ws.HandleCatalogWebSocket(d.Hub, upgrader, d.JWTSecret))

	authRequired := middleware.AuthMiddleware(d.JWTSecret)
	creatorOnly := middleware.RequireRoles(d.Users, models.RoleCreator)

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/google", controllers.GoogleLogin(d.GoogleValidator, d.Users, d.JWTSecret, d.GoogleClientID, d.TokenTTL))
	}

	api.POST("/webhooks/identity", controllers.IdentityWebhook(d.Users, d.WebhookSecret))

	me := api.Group("/me", authRequired)
	{
		me.GET("", controllers.GetMe(d.Users))
		me.PUT("/role", controllers.SetMyRole(d.Users))
		me.GET("/history", controllers.ListeningHistory(d.Player, d.Users))
	}

	podcasts := api.Group("/podcasts")
	{
		podcasts.GET("", controllers.ListPodcasts(d.Catalog))
		podcasts.GET("/trending", controllers.TrendingPodcasts(d.Catalog))
		podcasts.GET("/search", controllers.SearchPodcasts(d.Catalog))
		podcasts.GET("/top-creators", controllers.TopCreators(d.Catalog))
		podcasts.GET("/author/:identity", controllers.AuthorPodcasts(d.Catalog))
		podcasts.GET("/:id", controllers.GetPodcast(d.Catalog))
		podcasts.GET("/:id/similar", controllers.SimilarPodcasts(d.Catalog))
		podcasts.POST("/:id/views", controllers.RecordView(d.Engagement))
		podcasts.GET("/:id/episodes", controllers.ListEpisodes(d.Catalog))

		podcasts.POST("", authRequired, controllers.CreatePodcast(d.Content))
		podcasts.PATCH("/:id", authRequired, controllers.EditPodcast(d.Content))
		podcasts.DELETE("/:id", authRequired, controllers.DeletePodcast(d.Content))
		podcasts.POST("/:id/episodes", authRequired, controllers.CreateEpisode(d.Content))
	}

	episodes := api.Group("/episodes", authRequired)
	{
		episodes.PATCH("/:id", controllers.EditEpisode(d.Content))
		episodes.DELETE("/:id", controllers.DeleteEpisode(d.Content))
	}

	playlists := api.Group("/playlists", authRequired)
	{
		playlists.GET("", controllers.ListMyPlaylists(d.Catalog, d.Users))
		playlists.POST("", controllers.CreatePlaylist(d.Content))
		playlists.POST("/with-item", controllers.CreatePlaylistWithItem(d.Playlists))
		playlists.PATCH("/:id", controllers.EditPlaylist(d.Content))
		playlists.DELETE("/:id", controllers.DeletePlaylist(d.Content))
		playlists.GET("/:id/resolved", controllers.ResolvedPlaylist(d.Playlists))
		playlists.POST("/:id/items", controllers.AddPlaylistItem(d.Playlists))
		playlists.POST("/:id/items/remove", controllers.RemovePlaylistItem(d.Playlists))
		playlists.DELETE("/:id/items/:index", controllers.RemovePlaylistItemAt(d.Playlists))
	}

	downloads := api.Group("/downloads")
	{
		downloads.POST("", middleware.OptionalAuthMiddleware(d.JWTSecret), controllers.RecordDownload(d.Engagement, d.Users))
		downloads.GET("/:kind/:id", controllers.DownloadCount(d.Engagement))
	}

	playerGroup := api.Group("/player", authRequired)
	{
		playerGroup.GET("", controllers.CurrentPlayback(d.Player, d.Users))
		playerGroup.POST("/play", controllers.Play(d.Player, d.Users))
		playerGroup.POST("/pause", controllers.Pause(d.Player, d.Users))
		playerGroup.POST("/seek", controllers.Seek(d.Player, d.Users))
		playerGroup.POST("/stop", controllers.Stop(d.Player, d.Users))
	}

	api.GET("/generate/options", controllers.GenerationOptions())

	generate := api.Group("/generate", authRequired, creatorOnly)
	{
		generate.POST("/script", controllers.GenerateScript(d.Generator))
		generate.POST("/thumbnail-prompt", controllers.GenerateThumbnailPrompt(d.Generator))
		generate.POST("/audio", controllers.GenerateAudio(d.Generator))
		generate.POST("/thumbnail", controllers.GenerateThumbnail(d.Generator))
	}

	uploads := api.Group("/uploads", authRequired, creatorOnly)
	{
		uploads.POST("/image", controllers.UploadImage(d.Generator))
	}

	return r
}
