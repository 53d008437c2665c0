package content

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/vnkhanh/podcastr-backend/apperrors"
	"github.com/vnkhanh/podcastr-backend/logger"
	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/store"
	"github.com/vnkhanh/podcastr-backend/users"
)

const DefaultVoiceType = "default"

// PodcastInput is the data needed to publish a podcast. The AI fields may be
// empty; defaults are applied instead of rejecting the record.
type PodcastInput struct {
	Title           string
	Description     string
	AudioURL        string
	AudioStorageRef string
	ImageURL        string
	ImageStorageRef string
	VoicePrompt     string
	ImagePrompt     string
	VoiceType       string
	AudioDuration   float64
	Tags            []string
	Language        string
}

// PodcastPatch lists the editable fields. Nil means "keep the stored value".
type PodcastPatch struct {
	Title           *string
	Description     *string
	ImageURL        *string
	ImageStorageRef *string
	Tags            *[]string
	Language        *string
}

// CreatePodcast publishes a podcast for ident, provisioning its profile on
// first use. Author fields are copied from the profile.
func (s *Service) CreatePodcast(ctx context.Context, ident users.Identity, in PodcastInput) (*models.Podcast, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperrors.Validation("title", "title is required")
	}
	owner, err := s.users.EnsureUser(ctx, ident)
	if err != nil {
		return nil, err
	}

	voiceType := in.VoiceType
	if voiceType == "" {
		voiceType = DefaultVoiceType
	}
	podcast := &models.Podcast{
		OwnerID:         owner.ID,
		Title:           in.Title,
		Description:     in.Description,
		AudioURL:        in.AudioURL,
		AudioStorageRef: in.AudioStorageRef,
		ImageURL:        in.ImageURL,
		ImageStorageRef: in.ImageStorageRef,
		AuthorName:      owner.DisplayName,
		AuthorAvatarURL: owner.AvatarURL,
		AuthorIdentity:  owner.IdentityKey,
		VoicePrompt:     in.VoicePrompt,
		ImagePrompt:     in.ImagePrompt,
		VoiceType:       voiceType,
		AudioDuration:   in.AudioDuration,
		ViewCount:       0,
		Tags:            in.Tags,
		Language:        in.Language,
	}
	if err := store.Insert(ctx, s.db, "podcast", podcast); err != nil {
		return nil, err
	}

	s.reindex(ctx, podcast)
	s.notifier.PodcastsChanged()
	logger.Log.Info("Podcast created",
		logger.WithPodcastID(podcast.ID.String()),
		logger.WithUserID(owner.ID.String()),
	)
	return podcast, nil
}

// EditPodcast applies patch to a podcast owned by ident. Concurrent edits of
// the same field are last-write-wins.
func (s *Service) EditPodcast(ctx context.Context, ident users.Identity, id uuid.UUID, patch PodcastPatch) (*models.Podcast, error) {
	podcast, err := store.Get[models.Podcast](ctx, s.db, "podcast", id)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.Authorize(ctx, ident, podcast.OwnerID); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, apperrors.Validation("title", "title cannot be empty")
		}
		fields["title"] = *patch.Title
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.ImageURL != nil {
		fields["image_url"] = *patch.ImageURL
	}
	if patch.ImageStorageRef != nil {
		fields["image_storage_ref"] = *patch.ImageStorageRef
	}
	if patch.Tags != nil {
		tags := *patch.Tags
		if tags == nil {
			tags = []string{}
		}
		fields["tags"] = datatypes.JSONSlice[string](tags)
	}
	if patch.Language != nil {
		fields["language"] = *patch.Language
	}

	if err := store.Patch[models.Podcast](ctx, s.db, "podcast", id, fields); err != nil {
		return nil, err
	}
	updated, err := store.Get[models.Podcast](ctx, s.db, "podcast", id)
	if err != nil {
		return nil, err
	}

	if oldRef := podcast.ImageStorageRef; oldRef != "" && oldRef != updated.ImageStorageRef {
		if err := s.blobs.Delete(ctx, oldRef); err != nil {
			logger.Log.Warn("Failed to release replaced image",
				logger.WithPodcastID(id.String()),
				zap.String("ref", oldRef),
				zap.Error(err),
			)
		}
	}

	s.reindex(ctx, updated)
	s.notifier.PodcastsChanged()
	return updated, nil
}

// DeletePodcast releases the image blob, then the audio blob, then deletes
// the record. A failing step stops the sequence; earlier steps are not
// rolled back.
func (s *Service) DeletePodcast(ctx context.Context, ident users.Identity, id uuid.UUID) error {
	podcast, err := store.Get[models.Podcast](ctx, s.db, "podcast", id)
	if err != nil {
		return err
	}
	if _, err := s.users.Authorize(ctx, ident, podcast.OwnerID); err != nil {
		return err
	}

	for _, ref := range []string{podcast.ImageStorageRef, podcast.AudioStorageRef} {
		if ref == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, ref); err != nil {
			logger.Log.Error("Failed to release podcast blob",
				logger.WithPodcastID(id.String()),
				zap.String("ref", ref),
				zap.Error(err),
			)
			return apperrors.ExternalService("blob storage", err)
		}
	}

	if err := store.Delete[models.Podcast](ctx, s.db, "podcast", id); err != nil {
		return err
	}

	if err := s.index.Remove(ctx, id); err != nil {
		logger.Log.Warn("Failed to remove podcast from search index", logger.WithPodcastID(id.String()), zap.Error(err))
	}
	s.notifier.PodcastsChanged()
	logger.Log.Info("Podcast deleted", logger.WithPodcastID(id.String()))
	return nil
}

func (s *Service) reindex(ctx context.Context, podcast *models.Podcast) {
	if err := s.index.Upsert(ctx, podcast); err != nil {
		logger.Log.Warn("Failed to index podcast",
			logger.WithPodcastID(podcast.ID.String()),
			zap.Error(err),
		)
	}
}
