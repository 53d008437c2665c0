// Package content implements every write to podcasts, episodes and
// playlists. Each mutation receives the caller identity and checks
// ownership itself.
package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/podcastr-backend/search"
	"github.com/vnkhanh/podcastr-backend/storage"
	"github.com/vnkhanh/podcastr-backend/users"
)

// Notifier is told when catalog data changes so open list screens can
// refresh.
type Notifier interface {
	PodcastsChanged()
	EpisodesChanged(podcastID uuid.UUID)
}

type nopNotifier struct{}

func (nopNotifier) PodcastsChanged()                    {}
func (nopNotifier) EpisodesChanged(podcastID uuid.UUID) {}

type Service struct {
	db       *gorm.DB
	users    *users.Service
	blobs    storage.BlobStore
	index    search.Index
	notifier Notifier
	now      func() time.Time
}

// NewService wires the mutation layer. notifier may be nil.
func NewService(db *gorm.DB, userSvc *users.Service, blobs storage.BlobStore, index search.Index, notifier Notifier) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{
		db:       db,
		users:    userSvc,
		blobs:    blobs,
		index:    index,
		notifier: notifier,
		now:      time.Now,
	}
}
