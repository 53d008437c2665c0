package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vnkhanh/podcastr-backend/logger"
	"github.com/vnkhanh/podcastr-backend/metrics"
)

const (
	sendBuffer = 256
	writeWait  = 10 * time.Second
)

// Message types pushed to clients. They only say that something changed;
// clients refetch what they show.
const (
	TypeConnected          = "connected"
	TypePodcastListChanged = "podcast_list_changed"
	TypeEpisodesChanged    = "episodes_changed"
)

type Event struct {
	Type      string `json:"type"`
	PodcastID string `json:"podcast_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

// Hub fans change signals out to websocket clients. Global clients watch
// the podcast list; the others watch the episodes of one podcast.
type Hub struct {
	Clients       map[string]map[*websocket.Conn]*Client
	GlobalClients map[*websocket.Conn]*Client
	Mutex         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		Clients:       make(map[string]map[*websocket.Conn]*Client),
		GlobalClients: make(map[*websocket.Conn]*Client),
	}
}

// Register subscribes conn to the episodes of podcastID.
func (h *Hub) Register(podcastID string, conn *websocket.Conn) *Client {
	client := &Client{Conn: conn, Send: make(chan []byte, sendBuffer)}

	h.Mutex.Lock()
	if _, ok := h.Clients[podcastID]; !ok {
		h.Clients[podcastID] = make(map[*websocket.Conn]*Client)
	}
	h.Clients[podcastID][conn] = client
	h.Mutex.Unlock()

	metrics.Get().WebsocketClients.Inc()
	go writePump(client)
	return client
}

// RegisterGlobal subscribes conn to podcast list changes.
func (h *Hub) RegisterGlobal(conn *websocket.Conn) *Client {
	client := &Client{Conn: conn, Send: make(chan []byte, sendBuffer)}

	h.Mutex.Lock()
	h.GlobalClients[conn] = client
	h.Mutex.Unlock()

	metrics.Get().WebsocketClients.Inc()
	go writePump(client)
	return client
}

func (h *Hub) Unregister(podcastID string, conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if clients, ok := h.Clients[podcastID]; ok {
		if client, ok := clients[conn]; ok {
			close(client.Send)
			delete(clients, conn)
			metrics.Get().WebsocketClients.Dec()
		}
		if len(clients) == 0 {
			delete(h.Clients, podcastID)
		}
	}
}

func (h *Hub) UnregisterGlobal(conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if client, ok := h.GlobalClients[conn]; ok {
		close(client.Send)
		delete(h.GlobalClients, conn)
		metrics.Get().WebsocketClients.Dec()
	}
}

// Broadcast queues data for every client of podcastID. Slow clients whose
// buffer is full miss the message.
func (h *Hub) Broadcast(podcastID string, data []byte) {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	for _, client := range h.Clients[podcastID] {
		select {
		case client.Send <- data:
		default:
		}
	}
}

func (h *Hub) BroadcastGlobal(data []byte) {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	for _, client := range h.GlobalClients {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// PodcastsChanged tells list screens to refetch.
func (h *Hub) PodcastsChanged() {
	h.BroadcastGlobal(encode(Event{Type: TypePodcastListChanged}))
	metrics.Get().CatalogBroadcastsTotal.WithLabelValues(TypePodcastListChanged).Inc()
}

// EpisodesChanged tells watchers of one podcast to refetch its episodes.
func (h *Hub) EpisodesChanged(podcastID uuid.UUID) {
	id := podcastID.String()
	h.Broadcast(id, encode(Event{Type: TypeEpisodesChanged, PodcastID: id}))
	metrics.Get().CatalogBroadcastsTotal.WithLabelValues(TypeEpisodesChanged).Inc()
}

type Stats struct {
	GlobalClients  int `json:"global_clients"`
	PodcastClients int `json:"podcast_clients"`
	Podcasts       int `json:"podcasts_watched"`
}

func (h *Hub) GetStats() Stats {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	stats := Stats{GlobalClients: len(h.GlobalClients), Podcasts: len(h.Clients)}
	for _, clients := range h.Clients {
		stats.PodcastClients += len(clients)
	}
	return stats
}

func encode(ev Event) []byte {
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Log.Error("Failed to encode websocket event", zap.Error(err))
		return nil
	}
	return data
}

// writePump drains client.Send until the hub closes it.
func writePump(client *Client) {
	defer func() {
		_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
		client.Conn.Close()
	}()
	for msg := range client.Send {
		_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
