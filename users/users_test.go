package users_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/vnkhanh/podcastr-backend/apperrors"
	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/testutil"
	"github.com/vnkhanh/podcastr-backend/users"
)

type UsersTestSuite struct {
	suite.Suite
	db  *gorm.DB
	svc *users.Service
	ctx context.Context
}

func (s *UsersTestSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())
	s.svc = users.NewService(s.db)
	s.ctx = context.Background()
}

func TestUsersTestSuite(t *testing.T) {
	suite.Run(t, new(UsersTestSuite))
}

func (s *UsersTestSuite) TestEnsureUserProvisionsStub() {
	user, err := s.svc.EnsureUser(s.ctx, users.Identity{Key: "idp|alice"})
	s.Require().NoError(err)

	s.Equal("User", user.DisplayName)
	s.Equal(models.RoleViewer, user.Role)
	s.Empty(user.Email)
	s.Empty(user.AvatarURL)
}

func (s *UsersTestSuite) TestEnsureUserIsIdempotent() {
	first, err := s.svc.EnsureUser(s.ctx, users.Identity{Key: "idp|alice"})
	s.Require().NoError(err)
	second, err := s.svc.EnsureUser(s.ctx, users.Identity{Key: "idp|alice"})
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)

	var count int64
	s.Require().NoError(s.db.Model(&models.User{}).Where("identity_key = ?", "idp|alice").Count(&count).Error)
	s.Equal(int64(1), count)
}

func (s *UsersTestSuite) TestEnsureUserRejectsAnonymous() {
	_, err := s.svc.EnsureUser(s.ctx, users.Identity{})
	s.True(apperrors.Is(err, apperrors.KindUnauthenticated))
}

func (s *UsersTestSuite) TestGetRoleDefaultsToViewer() {
	role, err := s.svc.GetRole(s.ctx, "idp|nobody")
	s.Require().NoError(err)
	s.Equal(models.RoleViewer, role)
}

func (s *UsersTestSuite) TestSetRoleProvisionsAndSwitches() {
	user, err := s.svc.SetRole(s.ctx, users.Identity{Key: "idp|bob"}, models.RoleCreator)
	s.Require().NoError(err)
	s.Equal(models.RoleCreator, user.Role)

	role, err := s.svc.GetRole(s.ctx, "idp|bob")
	s.Require().NoError(err)
	s.Equal(models.RoleCreator, role)

	_, err = s.svc.SetRole(s.ctx, users.Identity{Key: "idp|bob"}, models.UserRole("admin"))
	s.True(apperrors.Is(err, apperrors.KindValidation))
}

func (s *UsersTestSuite) TestSyncProfileRefreshesPodcastAvatars() {
	user, err := s.svc.EnsureUser(s.ctx, users.Identity{Key: "idp|carol"})
	s.Require().NoError(err)

	podcast := &models.Podcast{OwnerID: user.ID, Title: "Carol's show", AuthorIdentity: "idp|carol"}
	s.Require().NoError(s.db.Create(podcast).Error)
	other := &models.Podcast{OwnerID: uuid.New(), Title: "Not Carol", AuthorIdentity: "idp|dave", AuthorAvatarURL: "dave.png"}
	s.Require().NoError(s.db.Create(other).Error)

	synced, err := s.svc.SyncProfile(s.ctx, users.Identity{
		Key:       "idp|carol",
		Name:      "Carol",
		Email:     "carol@example.com",
		AvatarURL: "https://img.example.com/carol.png",
	})
	s.Require().NoError(err)
	s.Equal("Carol", synced.DisplayName)
	s.Equal("carol@example.com", synced.Email)

	var reloaded models.Podcast
	s.Require().NoError(s.db.First(&reloaded, "id = ?", podcast.ID).Error)
	s.Equal("https://img.example.com/carol.png", reloaded.AuthorAvatarURL)

	s.Require().NoError(s.db.First(&reloaded, "id = ?", other.ID).Error)
	s.Equal("dave.png", reloaded.AuthorAvatarURL)
}

func (s *UsersTestSuite) TestDeleteUser() {
	_, err := s.svc.EnsureUser(s.ctx, users.Identity{Key: "idp|erin"})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.DeleteUser(s.ctx, "idp|erin"))

	err = s.svc.DeleteUser(s.ctx, "idp|erin")
	s.True(apperrors.Is(err, apperrors.KindNotFound))

	_, err = s.svc.FindByIdentity(s.ctx, "idp|erin")
	s.True(apperrors.Is(err, apperrors.KindNotFound))
}

func (s *UsersTestSuite) TestAuthorize() {
	owner, err := s.svc.EnsureUser(s.ctx, users.Identity{Key: "idp|owner"})
	s.Require().NoError(err)
	_, err = s.svc.EnsureUser(s.ctx, users.Identity{Key: "idp|other"})
	s.Require().NoError(err)

	got, err := s.svc.Authorize(s.ctx, users.Identity{Key: "idp|owner"}, owner.ID)
	s.Require().NoError(err)
	s.Equal(owner.ID, got.ID)

	_, err = s.svc.Authorize(s.ctx, users.Identity{Key: "idp|other"}, owner.ID)
	s.True(apperrors.Is(err, apperrors.KindForbidden))

	_, err = s.svc.Authorize(s.ctx, users.Identity{Key: "idp|stranger"}, owner.ID)
	s.True(apperrors.Is(err, apperrors.KindForbidden))

	_, err = s.svc.Authorize(s.ctx, users.Identity{}, owner.ID)
	s.True(apperrors.Is(err, apperrors.KindUnauthenticated))
}

func TestIdentityAnonymous(t *testing.T) {
	assert.True(t, users.Identity{}.Anonymous())
	require.False(t, users.Identity{Key: "k"}.Anonymous())
}
