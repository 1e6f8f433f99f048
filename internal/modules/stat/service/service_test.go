package service_test

import (
	"context"
	"testing"
	"time"

	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/internal/modules/stat/dto"
	"anoa.com/fandomspace/internal/modules/stat/repository"
	statService "anoa.com/fandomspace/internal/modules/stat/service"
	"anoa.com/fandomspace/internal/testutil"
	"anoa.com/fandomspace/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard(t *testing.T) {
	db := testutil.NewDB(t)
	hub := testutil.NewHub(t)
	svc := statService.NewStatService(db, repository.NewStatRepository(db), hub, time.Now)
	ctx := context.Background()

	artist := testutil.CreateArtist(t, db, "artist")
	fan := testutil.CreateFan(t, db, "fan")
	admin := testutil.CreateAdmin(t, db, "admin")

	empty, err := svc.GetArtistDashboard(ctx, artist.ID, artist.ID, 7)
	require.NoError(t, err)
	assert.Len(t, empty.Series, 7)
	assert.Zero(t, empty.TotalFollowers)
	assert.Empty(t, empty.TopFans)

	testutil.Follow(t, db, fan.ID, artist.ID)
	post := testutil.CreatePost(t, db, artist.ID, artist.ID, "hello", false)
	require.NoError(t, db.Create(&entity.Like{UserID: fan.ID, ReferenceID: post.ID, ReferenceType: entity.LikeTargetPost}).Error)

	dash, err := svc.GetArtistDashboard(ctx, admin.ID, artist.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dash.TotalFollowers)
	assert.Equal(t, int64(1), dash.Posts)
	assert.Equal(t, int64(1), dash.Engagement)
	require.Len(t, dash.TopFans, 1)
	assert.Equal(t, "fan", dash.TopFans[0].Username)

	_, err = svc.GetArtistDashboard(ctx, fan.ID, artist.ID, 7)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)
	_, err = svc.GetArtistDashboard(ctx, fan.ID, fan.ID, 7)
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)
	_, err = svc.GetArtistDashboard(ctx, artist.ID, artist.ID, 0)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestObserveDashboardRefreshes(t *testing.T) {
	db := testutil.NewDB(t)
	hub := testutil.NewHub(t)
	svc := statService.NewStatService(db, repository.NewStatRepository(db), hub, time.Now)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	artist := testutil.CreateArtist(t, db, "artist")
	fan := testutil.CreateFan(t, db, "fan")

	sub, err := svc.ObserveDashboard(ctx, artist.ID, artist.ID, 30)
	require.NoError(t, err)
	defer sub.Close()

	testutil.Follow(t, db, fan.ID, artist.ID)
	hub.Notify(entity.TableFollows)

	testutil.Await(t, sub, func(d *dto.Dashboard) bool { return d.TotalFollowers == 1 })
}

func TestPlatformSummaryIsAdminOnly(t *testing.T) {
	db := testutil.NewDB(t)
	svc := statService.NewStatService(db, repository.NewStatRepository(db), nil, time.Now)
	ctx := context.Background()

	admin := testutil.CreateAdmin(t, db, "admin")
	fan := testutil.CreateFan(t, db, "fan")
	testutil.CreateArtist(t, db, "artist")

	summary, err := svc.GetPlatformSummary(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Users)
	assert.Equal(t, int64(1), summary.Artists)

	_, err = svc.GetPlatformSummary(ctx, fan.ID)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)
}
