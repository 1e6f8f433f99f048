package service_test

import (
	"context"
	"sync"
	"testing"

	"anoa.com/fandomspace/internal/entity"
	notifRepo "anoa.com/fandomspace/internal/modules/notification/repository"
	notifService "anoa.com/fandomspace/internal/modules/notification/service"
	"anoa.com/fandomspace/internal/modules/social/repository"
	socialService "anoa.com/fandomspace/internal/modules/social/service"
	"anoa.com/fandomspace/internal/testutil"
	"anoa.com/fandomspace/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	svc    socialService.SocialService
	notifs notifService.NotificationService
}

func setup(t *testing.T) fixture {
	db := testutil.NewDB(t)
	hub := testutil.NewHub(t)
	notifs := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), nil, hub)
	return fixture{
		db:     db,
		svc:    socialService.NewSocialService(db, repository.NewSocialRepository(db), notifs, hub, nil),
		notifs: notifs,
	}
}

func TestToggleFollowIsIdempotentPair(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	artist := testutil.CreateArtist(t, f.db, "artist")
	fan := testutil.CreateFan(t, f.db, "fan")

	on, err := f.svc.ToggleFollow(ctx, fan.ID, artist.ID)
	require.NoError(t, err)
	assert.True(t, on)

	following, err := f.svc.IsFollowing(ctx, fan.ID, artist.ID)
	require.NoError(t, err)
	assert.True(t, following)

	off, err := f.svc.ToggleFollow(ctx, fan.ID, artist.ID)
	require.NoError(t, err)
	assert.False(t, off)

	following, err = f.svc.IsFollowing(ctx, fan.ID, artist.ID)
	require.NoError(t, err)
	assert.False(t, following)

	unread, err := f.notifs.UnreadCount(ctx, artist.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestConcurrentTogglesKeepEveryFlip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	artist := testutil.CreateArtist(t, f.db, "artist")
	fan := testutil.CreateFan(t, f.db, "fan")

	const flips = 9
	var wg sync.WaitGroup
	errs := make(chan error, flips)
	for i := 0; i < flips; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ToggleFollow(ctx, fan.ID, artist.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	following, err := f.svc.IsFollowing(ctx, fan.ID, artist.ID)
	require.NoError(t, err)
	assert.True(t, following, "an odd number of flips ends followed")
}

func TestToggleFollowRejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	artist := testutil.CreateArtist(t, f.db, "artist")
	fan := testutil.CreateFan(t, f.db, "fan")
	otherFan := testutil.CreateFan(t, f.db, "other")

	_, err := f.svc.ToggleFollow(ctx, fan.ID, fan.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)

	_, err = f.svc.ToggleFollow(ctx, fan.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.svc.ToggleFollow(ctx, uuid.New(), artist.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.svc.ToggleFollow(ctx, fan.ID, otherFan.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)

	require.NoError(t, f.db.Model(&entity.User{}).Where("id = ?", artist.ID).Update("is_fandom_active", false).Error)
	_, err = f.svc.ToggleFollow(ctx, fan.ID, artist.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)
}

func TestBlockKeepsFollowEdgeButStopsNewFollows(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	artist := testutil.CreateArtist(t, f.db, "artist")
	fan := testutil.CreateFan(t, f.db, "fan")
	lurker := testutil.CreateFan(t, f.db, "lurker")

	_, err := f.svc.ToggleFollow(ctx, fan.ID, artist.ID)
	require.NoError(t, err)

	blocked, err := f.svc.ToggleBlock(ctx, artist.ID, fan.ID)
	require.NoError(t, err)
	assert.True(t, blocked)

	following, err := f.svc.IsFollowing(ctx, fan.ID, artist.ID)
	require.NoError(t, err)
	assert.True(t, following)

	_, err = f.svc.ToggleBlock(ctx, lurker.ID, lurker.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)

	_, err = f.svc.ToggleBlock(ctx, artist.ID, lurker.ID)
	require.NoError(t, err)
	_, err = f.svc.ToggleFollow(ctx, lurker.ID, artist.ID)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	list, err := f.svc.GetBlockedUsers(ctx, artist.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	unblocked, err := f.svc.ToggleBlock(ctx, artist.ID, lurker.ID)
	require.NoError(t, err)
	assert.False(t, unblocked)
}

func TestObserveFollowers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	artist := testutil.CreateArtist(t, f.db, "artist")
	a := testutil.CreateFan(t, f.db, "a")
	b := testutil.CreateFan(t, f.db, "b")

	sub, err := f.svc.ObserveFollowers(ctx, artist.ID)
	require.NoError(t, err)
	defer sub.Close()
	testutil.Await(t, sub, func(users []entity.User) bool { return len(users) == 0 })

	_, err = f.svc.ToggleFollow(ctx, a.ID, artist.ID)
	require.NoError(t, err)
	_, err = f.svc.ToggleFollow(ctx, b.ID, artist.ID)
	require.NoError(t, err)
	testutil.Await(t, sub, func(users []entity.User) bool { return len(users) == 2 })

	_, err = f.svc.ToggleFollow(ctx, a.ID, artist.ID)
	require.NoError(t, err)
	got := testutil.Await(t, sub, func(users []entity.User) bool { return len(users) == 1 })
	assert.Equal(t, b.ID, got[0].ID)

	artists, err := f.svc.GetFollowedArtists(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, artist.ID, artists[0].ID)
}
