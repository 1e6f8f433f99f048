package service_test

import (
	"context"
	"testing"

	"anoa.com/fandomspace/internal/entity"
	notifRepo "anoa.com/fandomspace/internal/modules/notification/repository"
	notifService "anoa.com/fandomspace/internal/modules/notification/service"
	"anoa.com/fandomspace/internal/testutil"
	"anoa.com/fandomspace/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	hub := testutil.NewHub(t)
	ctx := context.Background()
	svc := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), nil, hub)

	artist := testutil.CreateArtist(t, db, "artist")
	fan := testutil.CreateFan(t, db, "fan")
	other := testutil.CreateFan(t, db, "other")

	unread, err := svc.ObserveUnreadCount(ctx, artist.ID)
	require.NoError(t, err)
	defer unread.Close()
	testutil.Await(t, unread, func(n int64) bool { return n == 0 })

	n := &entity.Notification{UserID: artist.ID, ActorID: fan.ID, EntityType: "user", Type: entity.NotifyFollow, Message: "fan followed you"}
	require.NoError(t, svc.CreateNotification(ctx, n))
	testutil.Await(t, unread, func(n int64) bool { return n == 1 })

	list, err := svc.GetNotifications(ctx, artist.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Actor)
	assert.Equal(t, "fan", list[0].Actor.Username)

	// someone else cannot mark it
	assert.ErrorIs(t, svc.MarkAsRead(ctx, other.ID, n.ID), apperror.ErrNotFound)
	require.NoError(t, svc.MarkAsRead(ctx, artist.ID, n.ID))
	testutil.Await(t, unread, func(n int64) bool { return n == 0 })
}

func TestSendSkipsSelfNotifications(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	svc := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), nil, nil)
	user := testutil.CreateFan(t, db, "self")

	notifService.Send(ctx, svc, &entity.Notification{UserID: user.ID, ActorID: user.ID, EntityType: "post", Type: entity.NotifyLike})
	notifService.Send(ctx, nil, &entity.Notification{UserID: user.ID})

	count, err := svc.UnreadCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, svc.MarkAllAsRead(ctx, user.ID))
}
