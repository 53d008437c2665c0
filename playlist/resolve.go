package playlist

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/store"
	"github.com/vnkhanh/podcastr-backend/users"
)

// ResolvedItem carries the display data of a playlist entry. Missing is set
// when the referenced podcast or episode no longer exists.
type ResolvedItem struct {
	Kind          models.ItemKind `json:"kind"`
	ID            uuid.UUID       `json:"id"`
	Missing       bool            `json:"missing"`
	Title         string          `json:"title,omitempty"`
	Author        string          `json:"author,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	AudioURL      string          `json:"audio_url,omitempty"`
	AudioDuration float64         `json:"audio_duration,omitempty"`
	PodcastID     uuid.UUID       `json:"podcast_id,omitempty"`
	PodcastTitle  string          `json:"podcast_title,omitempty"`
}

type ResolvedPlaylist struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Items     []ResolvedItem `json:"items"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Resolve loads a playlist and looks up every item it references.
func (s *Service) Resolve(ctx context.Context, ident users.Identity, playlistID uuid.UUID) (*ResolvedPlaylist, error) {
	pl, err := s.loadOwned(ctx, s.db, ident, playlistID)
	if err != nil {
		return nil, err
	}

	var podcastIDs, episodeIDs []uuid.UUID
	for _, it := range pl.Items {
		switch it.Kind {
		case models.ItemPodcast:
			podcastIDs = append(podcastIDs, it.ItemID)
		case models.ItemEpisode:
			episodeIDs = append(episodeIDs, it.ItemID)
		}
	}

	episodes := map[uuid.UUID]models.Episode{}
	if len(episodeIDs) > 0 {
		var found []models.Episode
		if err := s.db.WithContext(ctx).Where("id IN ?", episodeIDs).Find(&found).Error; err != nil {
			return nil, store.Translate("episode", err)
		}
		for _, ep := range found {
			episodes[ep.ID] = ep
			podcastIDs = append(podcastIDs, ep.PodcastID)
		}
	}

	podcasts := map[uuid.UUID]models.Podcast{}
	if len(podcastIDs) > 0 {
		var found []models.Podcast
		if err := s.db.WithContext(ctx).Where("id IN ?", podcastIDs).Find(&found).Error; err != nil {
			return nil, store.Translate("podcast", err)
		}
		for _, p := range found {
			podcasts[p.ID] = p
		}
	}

	out := &ResolvedPlaylist{
		ID:        pl.ID,
		Name:      pl.Name,
		Items:     make([]ResolvedItem, 0, len(pl.Items)),
		CreatedAt: pl.CreatedAt,
		UpdatedAt: pl.UpdatedAt,
	}
	for _, it := range pl.Items {
		out.Items = append(out.Items, resolveItem(it, podcasts, episodes))
	}
	return out, nil
}

func resolveItem(it models.PlaylistItem, podcasts map[uuid.UUID]models.Podcast, episodes map[uuid.UUID]models.Episode) ResolvedItem {
	r := ResolvedItem{Kind: it.Kind, ID: it.ItemID}

	switch it.Kind {
	case models.ItemPodcast:
		p, ok := podcasts[it.ItemID]
		if !ok {
			r.Missing = true
			return r
		}
		r.Title = p.Title
		r.Author = p.AuthorName
		r.ImageURL = p.ImageURL
		r.AudioURL = p.AudioURL
		r.AudioDuration = p.AudioDuration
		r.PodcastID = p.ID
		r.PodcastTitle = p.Title
	case models.ItemEpisode:
		ep, ok := episodes[it.ItemID]
		if !ok {
			r.Missing = true
			return r
		}
		r.Title = ep.Title
		r.AudioURL = ep.AudioURL
		r.PodcastID = ep.PodcastID
		if p, ok := podcasts[ep.PodcastID]; ok {
			r.Author = p.AuthorName
			r.ImageURL = p.ImageURL
			r.PodcastTitle = p.Title
		}
	}
	return r
}
