package service

import (
	"context"
	"encoding/json"
	"fmt"

	"anoa.com/fandomspace/internal/entity"
	notifRepo "anoa.com/fandomspace/internal/modules/notification/repository"
	"anoa.com/fandomspace/pkg/apperror"
	"anoa.com/fandomspace/pkg/live"
	"anoa.com/fandomspace/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultPageSize = 20

type NotificationService interface {
	CreateNotification(ctx context.Context, notification *entity.Notification) error
	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error)
	ObserveNotifications(ctx context.Context, userID uuid.UUID) (*live.Subscription[[]entity.Notification], error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	ObserveUnreadCount(ctx context.Context, userID uuid.UUID) (*live.Subscription[int64], error)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	redisClient *redis.Client
	hub         *live.Hub
}

func NewNotificationService(repo notifRepo.NotificationRepository, redisClient *redis.Client, hub *live.Hub) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
		hub:         hub,
	}
}

// Channel is the Redis Pub/Sub channel carrying a user's notifications.
func Channel(userID uuid.UUID) string {
	return fmt.Sprintf("user_notifications:%s", userID.String())
}

func (s *notificationService) CreateNotification(ctx context.Context, notification *entity.Notification) error {
	// 1. Save to DB
	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}
	s.hub.Notify(entity.TableNotifications)

	// 2. Publish to Redis if Redis is available
	if s.redisClient != nil {
		payload, err := json.Marshal(notification)
		if err == nil {
			if err := s.redisClient.Publish(ctx, Channel(notification.UserID), payload).Err(); err != nil {
				logger.Log.WithError(err).WithField("user_id", notification.UserID).Warn("notification publish failed")
			}
		}
	}

	return nil
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.GetByUserID(ctx, userID, limit, offset)
}

func (s *notificationService) ObserveNotifications(ctx context.Context, userID uuid.UUID) (*live.Subscription[[]entity.Notification], error) {
	return live.Observe(ctx, s.hub, []string{entity.TableNotifications}, func(ctx context.Context) ([]entity.Notification, error) {
		return s.repo.GetByUserID(ctx, userID, defaultPageSize, 0)
	})
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	ok, err := s.repo.MarkAsRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("notification %s: %w", id, apperror.ErrNotFound)
	}
	s.hub.Notify(entity.TableNotifications)
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.MarkAllAsRead(ctx, userID); err != nil {
		return err
	}
	s.hub.Notify(entity.TableNotifications)
	return nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) ObserveUnreadCount(ctx context.Context, userID uuid.UUID) (*live.Subscription[int64], error) {
	return live.Observe(ctx, s.hub, []string{entity.TableNotifications}, func(ctx context.Context) (int64, error) {
		return s.repo.CountUnread(ctx, userID)
	})
}

// Send delivers a notification as a side effect of a committed command.
// Failures are logged, never returned: the command already succeeded.
func Send(ctx context.Context, svc NotificationService, n *entity.Notification) {
	if svc == nil || n == nil || n.UserID == n.ActorID {
		return
	}
	if err := svc.CreateNotification(ctx, n); err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"user_id": n.UserID,
			"type":    n.Type,
		}).Warn("failed to create notification")
	}
}
