package playlist

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/testutil"
	"github.com/vnkhanh/podcastr-backend/users"
)

func TestRemoveKeepsItemsAddedAfterLoad(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db, users.NewService(db))
	ctx := context.Background()
	owner := users.Identity{Key: "idp|owner"}

	a := Item{Kind: models.ItemPodcast, ID: uuid.New()}
	b := Item{Kind: models.ItemEpisode, ID: uuid.New()}
	c := Item{Kind: models.ItemPodcast, ID: uuid.New()}
	pl, err := svc.CreateWithItem(ctx, owner, "Queue", a)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, owner, pl.ID, b)
	require.NoError(t, err)

	loaded, err := svc.loadOwned(ctx, db, owner, pl.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)

	outcome, err := svc.AddItem(ctx, owner, pl.ID, c)
	require.NoError(t, err)
	require.Equal(t, Added, outcome)

	updated, err := svc.removeAt(ctx, loaded, 0, &a)
	require.NoError(t, err)

	var stored []models.PlaylistItem
	require.NoError(t, db.Where("playlist_id = ?", pl.ID).Order("position ASC").Find(&stored).Error)
	require.Len(t, stored, 2)
	assert.Equal(t, b.ID, stored[0].ItemID)
	assert.Equal(t, 0, stored[0].Position)
	assert.Equal(t, c.ID, stored[1].ItemID)
	assert.Equal(t, 1, stored[1].Position)
	assert.Len(t, updated.Items, 2)
}

func TestRemoveItemClosesGap(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db, users.NewService(db))
	ctx := context.Background()
	owner := users.Identity{Key: "idp|owner"}

	a := Item{Kind: models.ItemPodcast, ID: uuid.New()}
	b := Item{Kind: models.ItemEpisode, ID: uuid.New()}
	pl, err := svc.CreateWithItem(ctx, owner, "Queue", a)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, owner, pl.ID, b)
	require.NoError(t, err)

	_, err = svc.RemoveItem(ctx, owner, pl.ID, b)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, owner, pl.ID, b)
	require.NoError(t, err)

	_, err = svc.RemoveItem(ctx, owner, pl.ID, a)
	require.NoError(t, err)

	var stored []models.PlaylistItem
	require.NoError(t, db.Where("playlist_id = ?", pl.ID).Order("position ASC").Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, b.ID, stored[0].ItemID)
	assert.Equal(t, 0, stored[0].Position)
}
