package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/internal/modules/moderation/dto"
	"anoa.com/fandomspace/internal/modules/moderation/repository"
	moderationService "anoa.com/fandomspace/internal/modules/moderation/service"
	notifRepo "anoa.com/fandomspace/internal/modules/notification/repository"
	notifService "anoa.com/fandomspace/internal/modules/notification/service"
	"anoa.com/fandomspace/internal/testutil"
	"anoa.com/fandomspace/pkg/apperror"
	"anoa.com/fandomspace/pkg/ratelimiter"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	db     *gorm.DB
	svc    moderationService.ModerationService
	clock  *clock
	admin  *entity.User
	artist *entity.User
	fan    *entity.User
}

func setup(t *testing.T) fixture {
	return setupWithLimiter(t, nil)
}

func setupWithLimiter(t *testing.T, limiter *ratelimiter.Limiter) fixture {
	db := testutil.NewDB(t)
	hub := testutil.NewHub(t)
	notifs := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), nil, hub)
	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := moderationService.NewModerationService(db, repository.NewModerationRepository(db), limiter, time.Minute, nil, notifs, hub, clk.Now)

	admin := testutil.CreateAdmin(t, db, "admin")
	artist := testutil.CreateArtist(t, db, "artist")
	fan := testutil.CreateFan(t, db, "fan")
	testutil.Follow(t, db, fan.ID, artist.ID)
	return fixture{db: db, svc: svc, clock: clk, admin: admin, artist: artist, fan: fan}
}

func TestReportDeduplicates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	post := testutil.CreatePost(t, f.db, f.artist.ID, f.artist.ID, "hello", false)
	input := dto.ReportInput{Type: entity.ReportPost, ReferenceID: post.ID, Reason: "spam"}

	ok, err := f.svc.ReportUser(ctx, f.fan.ID, input)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.ReportUser(ctx, f.fan.ID, input)
	require.NoError(t, err)
	assert.False(t, ok)

	other := testutil.CreateFan(t, f.db, "other")
	testutil.Follow(t, f.db, other.ID, f.artist.ID)
	ok, err = f.svc.ReportUser(ctx, other.ID, input)
	require.NoError(t, err)
	assert.True(t, ok)

	reports, err := f.svc.GetReports(ctx, f.admin.ID, entity.ReportStatusPending)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, f.artist.ID, reports[0].ReportedID)
	assert.Equal(t, "hello", reports[0].ContentSnapshot)
}

func TestRepeatReportDoesNotHitCooldown(t *testing.T) {
	rdb, _ := testutil.NewRedis(t)
	f := setupWithLimiter(t, ratelimiter.New(rdb))
	ctx := context.Background()
	first := testutil.CreatePost(t, f.db, f.artist.ID, f.artist.ID, "first", false)
	second := testutil.CreatePost(t, f.db, f.artist.ID, f.artist.ID, "second", false)
	input := dto.ReportInput{Type: entity.ReportPost, ReferenceID: first.ID, Reason: "spam"}

	ok, err := f.svc.ReportUser(ctx, f.fan.ID, input)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.ReportUser(ctx, f.fan.ID, input)
	require.NoError(t, err)
	assert.False(t, ok)

	input.ReferenceID = second.ID
	_, err = f.svc.ReportUser(ctx, f.fan.ID, input)
	assert.ErrorIs(t, err, apperror.ErrRateLimitExceeded)
}

func TestRejectedReportLeavesNoCooldown(t *testing.T) {
	rdb, _ := testutil.NewRedis(t)
	f := setupWithLimiter(t, ratelimiter.New(rdb))
	ctx := context.Background()
	post := testutil.CreatePost(t, f.db, f.artist.ID, f.artist.ID, "hello", false)

	_, err := f.svc.ReportUser(ctx, f.fan.ID, dto.ReportInput{Type: entity.ReportPost, ReferenceID: uuid.New(), Reason: "spam"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	ok, err := f.svc.ReportUser(ctx, f.fan.ID, dto.ReportInput{Type: entity.ReportPost, ReferenceID: post.ID, Reason: "spam"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReportRules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	post := testutil.CreatePost(t, f.db, f.artist.ID, f.artist.ID, "hello", false)
	stranger := testutil.CreateFan(t, f.db, "stranger")

	_, err := f.svc.ReportUser(ctx, stranger.ID, dto.ReportInput{Type: entity.ReportPost, ReferenceID: post.ID, Reason: "spam"})
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	// Users can be reported without following anybody.
	ok, err := f.svc.ReportUser(ctx, stranger.ID, dto.ReportInput{Type: entity.ReportUser, ReferenceID: f.fan.ID, Reason: "rude"})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.svc.ReportUser(ctx, f.fan.ID, dto.ReportInput{Type: entity.ReportUser, ReferenceID: f.fan.ID, Reason: "me"})
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)

	_, err = f.svc.ReportUser(ctx, f.artist.ID, dto.ReportInput{Type: entity.ReportFandom, ReferenceID: f.fan.ID, Reason: "not an artist"})
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)

	_, err = f.svc.ReportUser(ctx, f.fan.ID, dto.ReportInput{Type: entity.ReportPost, ReferenceID: f.fan.ID, Reason: "missing"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.svc.ReportUser(ctx, f.fan.ID, dto.ReportInput{Type: entity.ReportPost, ReferenceID: post.ID})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestResolveReportOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.svc.ReportUser(ctx, f.fan.ID, dto.ReportInput{Type: entity.ReportFandom, ReferenceID: f.artist.ID, Reason: "spam"})
	require.NoError(t, err)
	reports, err := f.svc.GetReports(ctx, f.admin.ID, "")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	id := reports[0].ID

	_, err = f.svc.ResolveReport(ctx, f.fan.ID, id, entity.ReportStatusResolved)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	report, err := f.svc.ResolveReport(ctx, f.admin.ID, id, entity.ReportStatusDismissed)
	require.NoError(t, err)
	assert.Equal(t, entity.ReportStatusDismissed, report.Status)
	require.NotNil(t, report.ResolvedBy)
	assert.Equal(t, f.admin.ID, *report.ResolvedBy)

	_, err = f.svc.ResolveReport(ctx, f.admin.ID, id, entity.ReportStatusResolved)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	pending, err := f.svc.GetReports(ctx, f.admin.ID, entity.ReportStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTimedSuspensionExpires(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	user, err := f.svc.SuspendUserDirect(ctx, f.admin.ID, f.fan.ID, 24*time.Hour, "spam")
	require.NoError(t, err)
	assert.True(t, user.IsSuspended)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour).UnixMilli(), user.SuspendedUntil)

	// Suspended users cannot act.
	_, err = f.svc.ReportUser(ctx, f.fan.ID, dto.ReportInput{Type: entity.ReportUser, ReferenceID: f.artist.ID, Reason: "x"})
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	lifted, err := f.svc.SweepExpiredSuspensions(ctx, f.clock.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, lifted)

	f.clock.Advance(25 * time.Hour)
	lifted, err = f.svc.SweepExpiredSuspensions(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), lifted)

	reloaded := testutil.Reload[entity.User](t, f.db, "id = ?", f.fan.ID)
	assert.False(t, reloaded.IsSuspended)
	assert.Zero(t, reloaded.SuspendedUntil)
}

func TestPermanentSuspensionSurvivesSweep(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.SuspendUserPermanently(ctx, f.admin.ID, f.fan.ID, "ban")
	require.NoError(t, err)

	f.clock.Advance(1000 * time.Hour)
	lifted, err := f.svc.SweepExpiredSuspensions(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, lifted)

	user, err := f.svc.UnsuspendUser(ctx, f.admin.ID, f.fan.ID)
	require.NoError(t, err)
	assert.False(t, user.IsSuspended)
	assert.False(t, user.SuspensionPermanent)
}

func TestModerationTargets(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	other := testutil.CreateAdmin(t, f.db, "admin2")

	_, err := f.svc.SuspendUserDirect(ctx, f.admin.ID, f.fan.ID, 0, "x")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = f.svc.SuspendUserDirect(ctx, f.admin.ID, other.ID, time.Hour, "x")
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)

	_, err = f.svc.WarnUserDirect(ctx, f.admin.ID, f.admin.ID, "x")
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)

	_, err = f.svc.WarnUserDirect(ctx, f.fan.ID, f.artist.ID, "x")
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	assert.ErrorIs(t, f.svc.DeleteUserDirect(ctx, f.admin.ID, other.ID), apperror.ErrInvalidOperation)
}

func TestWarningIsRecordedAndNotified(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.WarnUserDirect(ctx, f.admin.ID, f.fan.ID, "be nice")
	require.NoError(t, err)

	warnings, err := f.svc.GetWarnings(ctx, f.fan.ID)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "be nice", warnings[0].Reason)

	var n int64
	require.NoError(t, f.db.Model(&entity.Notification{}).
		Where("user_id = ? AND type = ?", f.fan.ID, entity.NotifyWarning).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestDeleteUserKeepsAuditTrail(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	post := testutil.CreatePost(t, f.db, f.artist.ID, f.artist.ID, "official", false)
	comment := &entity.Comment{PostID: post.ID, UserID: f.artist.ID, Content: "first"}
	require.NoError(t, f.db.Create(comment).Error)
	require.NoError(t, f.db.Create(&entity.Like{UserID: f.fan.ID, ReferenceID: comment.ID, ReferenceType: entity.LikeTargetComment}).Error)
	require.NoError(t, f.db.Model(comment).UpdateColumn("like_count", 1).Error)
	thread := testutil.CreatePost(t, f.db, f.fan.ID, f.artist.ID, "fan thread", true)

	root := &entity.Comment{PostID: post.ID, UserID: f.fan.ID, Content: "fan root"}
	require.NoError(t, f.db.Create(root).Error)
	other := testutil.CreateFan(t, f.db, "other")
	reply := &entity.Comment{PostID: post.ID, UserID: other.ID, ParentID: &root.ID, Content: "reply"}
	require.NoError(t, f.db.Create(reply).Error)
	nested := &entity.Comment{PostID: post.ID, UserID: f.artist.ID, ParentID: &reply.ID, Content: "nested"}
	require.NoError(t, f.db.Create(nested).Error)
	require.NoError(t, f.db.Create(&entity.Like{UserID: f.artist.ID, ReferenceID: reply.ID, ReferenceType: entity.LikeTargetComment}).Error)
	require.NoError(t, f.db.Create(&entity.Order{
		UserID: f.fan.ID, ArtistID: f.artist.ID, Status: entity.OrderPending,
		ShippingAddress: "Jl. X", PaymentMethod: "E-Wallet", ItemsJSON: []byte("[]"),
	}).Error)
	_, err := f.svc.ReportUser(ctx, f.fan.ID, dto.ReportInput{Type: entity.ReportPost, ReferenceID: post.ID, Reason: "spam"})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteUserDirect(ctx, f.admin.ID, f.fan.ID))

	count := func(model interface{}, where string, args ...interface{}) int64 {
		var n int64
		require.NoError(t, f.db.Model(model).Where(where, args...).Count(&n).Error)
		return n
	}
	assert.Zero(t, count(&entity.User{}, "id = ?", f.fan.ID))
	assert.Zero(t, count(&entity.Post{}, "id = ?", thread.ID))
	assert.Zero(t, count(&entity.Follow{}, "follower_id = ?", f.fan.ID))
	assert.Zero(t, count(&entity.Like{}, "user_id = ?", f.fan.ID))
	assert.Equal(t, int64(1), count(&entity.Post{}, "id = ?", post.ID))
	assert.Equal(t, int64(1), count(&entity.Order{}, "user_id = ?", f.fan.ID))
	assert.Equal(t, int64(1), count(&entity.Report{}, "reporter_id = ?", f.fan.ID))

	assert.Zero(t, count(&entity.Comment{}, "id IN ?", []uuid.UUID{root.ID, reply.ID, nested.ID}))
	assert.Zero(t, count(&entity.Like{}, "reference_id = ?", reply.ID))
	assert.Zero(t, count(&entity.Comment{}, "parent_id IS NOT NULL AND parent_id NOT IN (?)", f.db.Model(&entity.Comment{}).Select("id")))

	reloaded := testutil.Reload[entity.Comment](t, f.db, "id = ?", comment.ID)
	assert.Zero(t, reloaded.LikeCount)
}
