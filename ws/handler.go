package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vnkhanh/podcastr-backend/logger"
	"github.com/vnkhanh/podcastr-backend/utils"
)

// NewUpgrader accepts any origin when allowed is empty, otherwise only the
// listed origins.
func NewUpgrader(allowed []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowed {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
}

// HandleCatalogWebSocket streams change signals. With ?podcast_id= the
// client hears about that podcast's episodes, otherwise about the podcast
// list. ?token= is optional; a bad one is rejected.
func HandleCatalogWebSocket(hub *Hub, upgrader *websocket.Upgrader, jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := ""
		if token := c.Query("token"); token != "" {
			claims, err := utils.VerifyToken(jwtSecret, token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
				return
			}
			identity = claims.Subject
		}

		// Keyed by the canonical form so any spelling of the id hears
		// EpisodesChanged.
		podcastID := ""
		if raw := c.Query("podcast_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid podcast id"})
				return
			}
			podcastID = id.String()
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Log.Warn("WebSocket upgrade failed", zap.Error(err))
			return
		}

		var client *Client
		if podcastID != "" {
			client = hub.Register(podcastID, conn)
			defer hub.Unregister(podcastID, conn)
		} else {
			client = hub.RegisterGlobal(conn)
			defer hub.UnregisterGlobal(conn)
		}

		client.Send <- encode(Event{Type: TypeConnected, PodcastID: podcastID, Message: "Connected to catalog updates"})
		logger.Log.Debug("Catalog WS connected",
			zap.String("identity", identity),
			zap.String("podcast_id", podcastID),
		)

		// reads only detect the close
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		logger.Log.Debug("Catalog WS disconnected", zap.String("identity", identity))
	}
}
