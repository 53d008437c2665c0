// Package catalog serves the read side of the podcast catalog.
package catalog

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/search"
	"github.com/vnkhanh/podcastr-backend/store"
)

const (
	TrendingLimit    = 8
	SearchStageLimit = 10
)

// searchStages is the order in which fields are tried; the first stage with
// any match wins.
var searchStages = []search.Field{
	search.FieldAuthor,
	search.FieldTitle,
	search.FieldDescription,
}

type Service struct {
	db    *gorm.DB
	index search.Index
}

func NewService(db *gorm.DB, index search.Index) *Service {
	return &Service{db: db, index: index}
}

// AuthorPodcasts is the author page payload.
type AuthorPodcasts struct {
	Podcasts  []models.Podcast `json:"podcasts"`
	Listeners int64            `json:"listeners"`
}

// CreatorPodcast is the compact podcast entry shown under a top creator.
type CreatorPodcast struct {
	ID    uuid.UUID `json:"podcast_id"`
	Title string    `json:"title"`
	Views int64     `json:"views"`
}

type Creator struct {
	User          models.User      `json:"user"`
	TotalPodcasts int              `json:"total_podcasts"`
	TotalViews    int64            `json:"total_views"`
	Podcasts      []CreatorPodcast `json:"podcasts"`
}

// ListAll returns every podcast, newest first.
func (s *Service) ListAll(ctx context.Context) ([]models.Podcast, error) {
	var podcasts []models.Podcast
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&podcasts).Error; err != nil {
		return nil, store.Translate("podcast", err)
	}
	return podcasts, nil
}

// Trending returns at most TrendingLimit podcasts by view count. It sorts the
// whole table in memory, which is fine while the catalog stays small.
func (s *Service) Trending(ctx context.Context) ([]models.Podcast, error) {
	podcasts, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(podcasts, func(i, j int) bool {
		return podcasts[i].ViewCount > podcasts[j].ViewCount
	})
	if len(podcasts) > TrendingLimit {
		podcasts = podcasts[:TrendingLimit]
	}
	return podcasts, nil
}

// Search returns every podcast (optionally filtered by language) for an
// empty query. Otherwise it tries author, title and description in turn and
// returns the first non-empty result, capped at SearchStageLimit.
func (s *Service) Search(ctx context.Context, query, language string) ([]models.Podcast, error) {
	if query == "" {
		q := s.db.WithContext(ctx).Order("created_at DESC")
		if language != "" {
			q = q.Where("language = ?", language)
		}
		var podcasts []models.Podcast
		if err := q.Find(&podcasts).Error; err != nil {
			return nil, store.Translate("podcast", err)
		}
		return podcasts, nil
	}

	for _, field := range searchStages {
		ids, err := s.index.Match(ctx, field, query, language, SearchStageLimit)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			continue
		}
		podcasts, err := s.loadInOrder(ctx, ids)
		if err != nil {
			return nil, err
		}
		if len(podcasts) > 0 {
			return podcasts, nil
		}
	}
	return []models.Podcast{}, nil
}

// loadInOrder fetches podcasts by id keeping the order of ids. Ids the
// index knows but the table does not are skipped.
func (s *Service) loadInOrder(ctx context.Context, ids []uuid.UUID) ([]models.Podcast, error) {
	var found []models.Podcast
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, store.Translate("podcast", err)
	}
	byID := make(map[uuid.UUID]models.Podcast, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	ordered := make([]models.Podcast, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// Get returns one podcast.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Podcast, error) {
	return store.Get[models.Podcast](ctx, s.db, "podcast", id)
}

// ByVoiceType returns the other podcasts narrated with the same voice.
func (s *Service) ByVoiceType(ctx context.Context, podcastID uuid.UUID) ([]models.Podcast, error) {
	podcast, err := s.Get(ctx, podcastID)
	if err != nil {
		return nil, err
	}
	var similar []models.Podcast
	err = s.db.WithContext(ctx).
		Where("voice_type = ? AND id <> ?", podcast.VoiceType, podcast.ID).
		Order("created_at DESC").
		Find(&similar).Error
	if err != nil {
		return nil, store.Translate("podcast", err)
	}
	return similar, nil
}

// ByAuthor returns the podcasts of one author and their summed views.
func (s *Service) ByAuthor(ctx context.Context, authorIdentity string) (*AuthorPodcasts, error) {
	podcasts, err := store.ListBy[models.Podcast](ctx, s.db, "podcast", "author_identity", authorIdentity, "created_at DESC")
	if err != nil {
		return nil, err
	}

	out := &AuthorPodcasts{Podcasts: podcasts}
	for _, p := range podcasts {
		out.Listeners += p.ViewCount
	}
	return out, nil
}

// TopCreators lists every user with their podcasts, most prolific first.
func (s *Service) TopCreators(ctx context.Context) ([]Creator, error) {
	var allUsers []models.User
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&allUsers).Error; err != nil {
		return nil, store.Translate("user", err)
	}
	var podcasts []models.Podcast
	if err := s.db.WithContext(ctx).Find(&podcasts).Error; err != nil {
		return nil, store.Translate("podcast", err)
	}

	byAuthor := make(map[string][]models.Podcast)
	for _, p := range podcasts {
		byAuthor[p.AuthorIdentity] = append(byAuthor[p.AuthorIdentity], p)
	}

	creators := make([]Creator, 0, len(allUsers))
	for _, u := range allUsers {
		owned := byAuthor[u.IdentityKey]
		sort.SliceStable(owned, func(i, j int) bool { return owned[i].ViewCount > owned[j].ViewCount })

		c := Creator{User: u, TotalPodcasts: len(owned), Podcasts: make([]CreatorPodcast, 0, len(owned))}
		for _, p := range owned {
			c.TotalViews += p.ViewCount
			c.Podcasts = append(c.Podcasts, CreatorPodcast{ID: p.ID, Title: p.Title, Views: p.ViewCount})
		}
		creators = append(creators, c)
	}

	sort.SliceStable(creators, func(i, j int) bool {
		return creators[i].TotalPodcasts > creators[j].TotalPodcasts
	})
	return creators, nil
}

// Episodes lists the episodes of a podcast, newest first.
func (s *Service) Episodes(ctx context.Context, podcastID uuid.UUID, language string) ([]models.Episode, error) {
	if _, err := s.Get(ctx, podcastID); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Where("podcast_id = ?", podcastID)
	if language != "" {
		q = q.Where("language = ?", language)
	}
	var episodes []models.Episode
	if err := q.Order("created_at DESC").Order("number DESC").Find(&episodes).Error; err != nil {
		return nil, store.Translate("episode", err)
	}
	return episodes, nil
}

// Playlists lists the playlists of a user, newest first, items in order.
func (s *Service) Playlists(ctx context.Context, userID uuid.UUID) ([]models.Playlist, error) {
	var playlists []models.Playlist
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&playlists).Error
	if err != nil {
		return nil, store.Translate("playlist", err)
	}
	return playlists, nil
}
