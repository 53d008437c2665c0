// Package player keeps the per-user "now playing" state: which track is
// loaded, where it is, and whether it is playing.
package player

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vnkhanh/podcastr-backend/apperrors"
	"github.com/vnkhanh/podcastr-backend/logger"
	"github.com/vnkhanh/podcastr-backend/models"
)

// Store serializes operations per user and writes every change through its
// Persister. Positions of tracks that are left behind go to listening
// history so a later Play can resume them.
type Store struct {
	db        *gorm.DB
	persister Persister
	now       func() time.Time

	locks [lockStripes]sync.Mutex
}

// lockStripes is the number of mutexes users are spread over. Two users may
// share a stripe; one user always maps to the same one.
const lockStripes = 64

func NewStore(db *gorm.DB, persister Persister) *Store {
	return &Store{
		db:        db,
		persister: persister,
		now:       time.Now,
	}
}

func (s *Store) stripe(userID uuid.UUID) *sync.Mutex {
	return &s.locks[binary.BigEndian.Uint64(userID[8:])%lockStripes]
}

func (s *Store) lock(userID uuid.UUID) func() {
	l := s.stripe(userID)
	l.Lock()
	return l.Unlock
}

// Current returns the stored state, or nil when nothing is loaded.
func (s *Store) Current(ctx context.Context, userID uuid.UUID) (*models.PlaybackState, error) {
	defer s.lock(userID)()
	return s.load(ctx, userID)
}

// Play loads track and starts it. Switching away from another track first
// records where that one stopped. Without start the track resumes from
// history, or from the current position when it is already loaded.
func (s *Store) Play(ctx context.Context, userID uuid.UUID, track models.PlaybackTrack, start *float64) (*models.PlaybackState, error) {
	if !track.Kind.Valid() || track.ItemID == uuid.Nil {
		return nil, apperrors.Validation("track", "track kind and id are required")
	}
	if track.AudioURL == "" {
		return nil, apperrors.Validation("audio_url", "track has no audio")
	}
	if start != nil && *start < 0 {
		return nil, apperrors.Validation("start", "start must not be negative")
	}
	defer s.lock(userID)()

	current, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	sameTrack := current != nil && sameItem(current.Track, track)
	if current != nil && !sameTrack {
		if err := s.recordHistory(ctx, current); err != nil {
			return nil, err
		}
	}

	var position float64
	switch {
	case start != nil:
		position = *start
	case sameTrack:
		position = current.Position
	default:
		position, err = s.resumePosition(ctx, userID, track)
		if err != nil {
			return nil, err
		}
	}

	state := &models.PlaybackState{
		UserID:    userID,
		Track:     track,
		Position:  position,
		Playing:   true,
		UpdatedAt: s.now(),
	}
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Pause stops playback and keeps the position.
func (s *Store) Pause(ctx context.Context, userID uuid.UUID) (*models.PlaybackState, error) {
	defer s.lock(userID)()

	state, err := s.loadRequired(ctx, userID)
	if err != nil {
		return nil, err
	}
	state.Playing = false
	state.UpdatedAt = s.now()
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	if err := s.recordHistory(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Seek moves the loaded track to position seconds, clamped to its duration
// when known.
func (s *Store) Seek(ctx context.Context, userID uuid.UUID, position float64) (*models.PlaybackState, error) {
	if position < 0 {
		return nil, apperrors.Validation("position", "position must not be negative")
	}
	defer s.lock(userID)()

	state, err := s.loadRequired(ctx, userID)
	if err != nil {
		return nil, err
	}
	if d := state.Track.Duration; d > 0 && position > d {
		position = d
	}
	state.Position = position
	state.UpdatedAt = s.now()
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Stop unloads the track and clears the persisted state. Stopping with
// nothing loaded is a no-op.
func (s *Store) Stop(ctx context.Context, userID uuid.UUID) error {
	defer s.lock(userID)()

	state, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}
	if err := s.recordHistory(ctx, state); err != nil {
		return err
	}
	if err := s.persister.Clear(ctx, userID); err != nil {
		return apperrors.Internal(err)
	}
	logger.Log.Debug("Playback stopped", logger.WithUserID(userID.String()))
	return nil
}

func (s *Store) load(ctx context.Context, userID uuid.UUID) (*models.PlaybackState, error) {
	state, err := s.persister.Load(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return state, nil
}

func (s *Store) loadRequired(ctx context.Context, userID uuid.UUID) (*models.PlaybackState, error) {
	state, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, apperrors.Conflict("nothing is playing")
	}
	return state, nil
}

func (s *Store) save(ctx context.Context, state *models.PlaybackState) error {
	if err := s.persister.Save(ctx, state); err != nil {
		logger.Log.Error("Failed to persist playback state", logger.WithUserID(state.UserID.String()), zap.Error(err))
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Store) resumePosition(ctx context.Context, userID uuid.UUID, track models.PlaybackTrack) (float64, error) {
	var h models.ListeningHistory
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND item_kind = ? AND item_id = ?", userID, track.Kind, track.ItemID).
		First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	if h.Completed {
		return 0, nil
	}
	return h.LastPosition, nil
}

// recordHistory upserts the listening history row of the state's track.
func (s *Store) recordHistory(ctx context.Context, state *models.PlaybackState) error {
	now := s.now()
	h := models.ListeningHistory{
		UserID:         state.UserID,
		ItemKind:       state.Track.Kind,
		ItemID:         state.Track.ItemID,
		LastPosition:   state.Position,
		Duration:       state.Track.Duration,
		LastListenedAt: now,
	}
	if h.Duration > 0 && h.LastPosition >= h.Duration {
		h.Completed = true
		h.CompletedAt = &now
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "item_kind"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_position", "duration", "completed", "completed_at", "last_listened_at",
		}),
	}).Create(&h).Error
	if err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func sameItem(a, b models.PlaybackTrack) bool {
	return a.Kind == b.Kind && a.ItemID == b.ItemID
}

// History lists the user's listening history, most recently played first.
func (s *Store) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.ListeningHistory, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []models.ListeningHistory
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_listened_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return rows, nil
}
