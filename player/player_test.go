package player_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/vnkhanh/podcastr-backend/apperrors"
	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/player"
	"github.com/vnkhanh/podcastr-backend/testutil"
)

type PlayerSuite struct {
	suite.Suite
	db        *gorm.DB
	persister *player.DBPersister
	store     *player.Store
	ctx       context.Context
	user      uuid.UUID
}

func TestPlayerSuite(t *testing.T) {
	suite.Run(t, new(PlayerSuite))
}

func (s *PlayerSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())
	s.persister = player.NewDBPersister(s.db)
	s.store = player.NewStore(s.db, s.persister)
	s.ctx = context.Background()
	s.user = uuid.New()
}

func track(title string) models.PlaybackTrack {
	return models.PlaybackTrack{
		Kind:     models.ItemPodcast,
		ItemID:   uuid.New(),
		Title:    title,
		AudioURL: "https://cdn.example.com/" + title + ".mp3",
		Duration: 300,
	}
}

func seconds(v float64) *float64 { return &v }

func (s *PlayerSuite) history(item uuid.UUID) models.ListeningHistory {
	var h models.ListeningHistory
	s.Require().NoError(s.db.First(&h, "user_id = ? AND item_id = ?", s.user, item).Error)
	return h
}

func (s *PlayerSuite) TestPlayPersistsState() {
	a := track("a")

	state, err := s.store.Play(s.ctx, s.user, a, nil)
	s.Require().NoError(err)
	s.True(state.Playing)
	s.Zero(state.Position)

	stored, err := s.persister.Load(s.ctx, s.user)
	s.Require().NoError(err)
	s.Require().NotNil(stored)
	s.Equal(a.ItemID, stored.Track.ItemID)
	s.Equal("a", stored.Track.Title)
	s.True(stored.Playing)
}

func (s *PlayerSuite) TestPauseAndSeek() {
	a := track("a")
	_, err := s.store.Play(s.ctx, s.user, a, nil)
	s.Require().NoError(err)

	state, err := s.store.Seek(s.ctx, s.user, 42)
	s.Require().NoError(err)
	s.Equal(42.0, state.Position)

	state, err = s.store.Pause(s.ctx, s.user)
	s.Require().NoError(err)
	s.False(state.Playing)
	s.Equal(42.0, state.Position)
	s.Equal(42.0, s.history(a.ItemID).LastPosition)

	state, err = s.store.Seek(s.ctx, s.user, 1000)
	s.Require().NoError(err)
	s.Equal(300.0, state.Position, "seek clamps to the track duration")

	// playing the same track again continues from the current position
	state, err = s.store.Play(s.ctx, s.user, a, nil)
	s.Require().NoError(err)
	s.True(state.Playing)
	s.Equal(300.0, state.Position)
}

func (s *PlayerSuite) TestSwitchTrackRecordsPreviousAndResumes() {
	a, b := track("a"), track("b")

	_, err := s.store.Play(s.ctx, s.user, a, seconds(90))
	s.Require().NoError(err)

	state, err := s.store.Play(s.ctx, s.user, b, nil)
	s.Require().NoError(err)
	s.Equal(b.ItemID, state.Track.ItemID)
	s.Zero(state.Position)
	s.Equal(90.0, s.history(a.ItemID).LastPosition)

	_, err = s.store.Seek(s.ctx, s.user, 10)
	s.Require().NoError(err)

	state, err = s.store.Play(s.ctx, s.user, a, nil)
	s.Require().NoError(err)
	s.Equal(90.0, state.Position, "a resumes where it was left")
	s.Equal(10.0, s.history(b.ItemID).LastPosition)
}

func (s *PlayerSuite) TestCompletedTrackStartsOver() {
	a, b := track("a"), track("b")

	_, err := s.store.Play(s.ctx, s.user, a, seconds(300))
	s.Require().NoError(err)
	_, err = s.store.Play(s.ctx, s.user, b, nil)
	s.Require().NoError(err)

	h := s.history(a.ItemID)
	s.True(h.Completed)
	s.NotNil(h.CompletedAt)

	state, err := s.store.Play(s.ctx, s.user, a, nil)
	s.Require().NoError(err)
	s.Zero(state.Position)
}

func (s *PlayerSuite) TestStopClearsState() {
	a := track("a")
	_, err := s.store.Play(s.ctx, s.user, a, seconds(30))
	s.Require().NoError(err)

	s.Require().NoError(s.store.Stop(s.ctx, s.user))

	current, err := s.store.Current(s.ctx, s.user)
	s.Require().NoError(err)
	s.Nil(current)
	s.Equal(30.0, s.history(a.ItemID).LastPosition)

	s.NoError(s.store.Stop(s.ctx, s.user), "stop with nothing loaded is a no-op")
}

func (s *PlayerSuite) TestPauseWithoutTrackConflicts() {
	_, err := s.store.Pause(s.ctx, s.user)
	s.True(apperrors.Is(err, apperrors.KindConflict))

	_, err = s.store.Seek(s.ctx, s.user, 5)
	s.True(apperrors.Is(err, apperrors.KindConflict))
}

func (s *PlayerSuite) TestPlayValidation() {
	noAudio := track("a")
	noAudio.AudioURL = ""
	_, err := s.store.Play(s.ctx, s.user, noAudio, nil)
	s.True(apperrors.Is(err, apperrors.KindValidation))

	_, err = s.store.Play(s.ctx, s.user, track("b"), seconds(-1))
	s.True(apperrors.Is(err, apperrors.KindValidation))

	_, err = s.store.Seek(s.ctx, s.user, -3)
	s.True(apperrors.Is(err, apperrors.KindValidation))
}

func (s *PlayerSuite) TestUsersAreIndependent() {
	other := uuid.New()
	_, err := s.store.Play(s.ctx, s.user, track("a"), nil)
	s.Require().NoError(err)

	current, err := s.store.Current(s.ctx, other)
	s.Require().NoError(err)
	s.Nil(current)
}

func (s *PlayerSuite) TestHistoryListsLeftTracks() {
	a, b := track("a"), track("b")
	_, err := s.store.Play(s.ctx, s.user, a, seconds(12))
	s.Require().NoError(err)
	_, err = s.store.Play(s.ctx, s.user, b, nil)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Stop(s.ctx, s.user))

	rows, err := s.store.History(s.ctx, s.user, 0)
	s.Require().NoError(err)
	s.Len(rows, 2)

	others, err := s.store.History(s.ctx, uuid.New(), 10)
	s.Require().NoError(err)
	s.Empty(others)
}
