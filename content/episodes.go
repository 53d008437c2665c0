package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vnkhanh/podcastr-backend/apperrors"
	"github.com/vnkhanh/podcastr-backend/logger"
	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/store"
	"github.com/vnkhanh/podcastr-backend/users"
)

// maxNumberAttempts bounds the retries when two creates race for the same
// episode number.
const maxNumberAttempts = 5

type EpisodeInput struct {
	Title           string
	Description     string
	AudioURL        string
	AudioStorageRef string
	Language        string
	Tags            []string
}

type EpisodePatch struct {
	Title           *string
	Description     *string
	AudioURL        *string
	AudioStorageRef *string
	Language        *string
	Tags            *[]string
}

// EpisodeTitle formats the stored title of episode n.
func EpisodeTitle(n int, title string) string {
	return fmt.Sprintf("EP-%d: %s", n, title)
}

// CreateEpisode appends an episode to a podcast owned by ident. The number is
// allocated inside a transaction and guarded by a unique index, so
// concurrent creates never share a number.
func (s *Service) CreateEpisode(ctx context.Context, ident users.Identity, podcastID uuid.UUID, in EpisodeInput) (*models.Episode, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.Validation("title", "title is required")
	}
	podcast, err := store.Get[models.Podcast](ctx, s.db, "podcast", podcastID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.Authorize(ctx, ident, podcast.OwnerID); err != nil {
		return nil, err
	}

	var episode *models.Episode
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		episode, err = s.insertNextEpisode(ctx, podcastID, title, in)
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, store.Translate("episode", err)
		}
		logger.Log.Debug("Episode number taken, retrying",
			logger.WithPodcastID(podcastID.String()),
			zap.Int("attempt", attempt),
		)
	}
	if err != nil {
		return nil, apperrors.Conflict("could not allocate an episode number, try again")
	}

	s.notifier.EpisodesChanged(podcastID)
	return episode, nil
}

func (s *Service) insertNextEpisode(ctx context.Context, podcastID uuid.UUID, title string, in EpisodeInput) (*models.Episode, error) {
	var episode *models.Episode
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int
		if err := tx.Model(&models.Episode{}).
			Where("podcast_id = ?", podcastID).
			Select("COALESCE(MAX(number), 0)").
			Scan(&last).Error; err != nil {
			return err
		}

		now := s.now()
		number := last + 1
		episode = &models.Episode{
			PodcastID:       podcastID,
			Number:          number,
			Title:           EpisodeTitle(number, title),
			Description:     in.Description,
			AudioURL:        in.AudioURL,
			AudioStorageRef: in.AudioStorageRef,
			Language:        in.Language,
			Tags:            in.Tags,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return tx.Create(episode).Error
	})
	return episode, err
}

// loadOwnedEpisode returns the episode after checking ident owns its parent
// podcast. Episodes whose podcast is gone can no longer be changed.
func (s *Service) loadOwnedEpisode(ctx context.Context, ident users.Identity, id uuid.UUID) (*models.Episode, error) {
	episode, err := store.Get[models.Episode](ctx, s.db, "episode", id)
	if err != nil {
		return nil, err
	}
	podcast, err := store.Get[models.Podcast](ctx, s.db, "podcast", episode.PodcastID)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, apperrors.Forbidden("episode has no owning podcast")
		}
		return nil, err
	}
	if _, err := s.users.Authorize(ctx, ident, podcast.OwnerID); err != nil {
		return nil, err
	}
	return episode, nil
}

// EditEpisode applies patch and stamps updated_at.
func (s *Service) EditEpisode(ctx context.Context, ident users.Identity, id uuid.UUID, patch EpisodePatch) (*models.Episode, error) {
	episode, err := s.loadOwnedEpisode(ctx, ident, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{"updated_at": s.now()}
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, apperrors.Validation("title", "title cannot be empty")
		}
		fields["title"] = *patch.Title
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.AudioURL != nil {
		fields["audio_url"] = *patch.AudioURL
	}
	if patch.AudioStorageRef != nil {
		fields["audio_storage_ref"] = *patch.AudioStorageRef
	}
	if patch.Language != nil {
		fields["language"] = *patch.Language
	}
	if patch.Tags != nil {
		tags := *patch.Tags
		if tags == nil {
			tags = []string{}
		}
		fields["tags"] = datatypes.JSONSlice[string](tags)
	}

	if err := store.Patch[models.Episode](ctx, s.db, "episode", id, fields); err != nil {
		return nil, err
	}
	updated, err := store.Get[models.Episode](ctx, s.db, "episode", id)
	if err != nil {
		return nil, err
	}

	if oldRef := episode.AudioStorageRef; oldRef != "" && oldRef != updated.AudioStorageRef {
		if err := s.blobs.Delete(ctx, oldRef); err != nil {
			logger.Log.Warn("Failed to release replaced episode audio", zap.String("ref", oldRef), zap.Error(err))
		}
	}

	s.notifier.EpisodesChanged(updated.PodcastID)
	return updated, nil
}

// DeleteEpisode releases the episode audio, if any, then deletes the record.
func (s *Service) DeleteEpisode(ctx context.Context, ident users.Identity, id uuid.UUID) error {
	episode, err := s.loadOwnedEpisode(ctx, ident, id)
	if err != nil {
		return err
	}

	if episode.AudioStorageRef != "" {
		if err := s.blobs.Delete(ctx, episode.AudioStorageRef); err != nil {
			return apperrors.ExternalService("blob storage", err)
		}
	}
	if err := store.Delete[models.Episode](ctx, s.db, "episode", id); err != nil {
		return err
	}

	s.notifier.EpisodesChanged(episode.PodcastID)
	return nil
}
