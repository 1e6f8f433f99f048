// Package store assembles every domain component over one database handle.
// Build it once at startup and pass it by reference.
package store

import (
	"time"

	attachmentService "anoa.com/fandomspace/internal/modules/attachment/service"
	commerceRepo "anoa.com/fandomspace/internal/modules/commerce/repository"
	commerceService "anoa.com/fandomspace/internal/modules/commerce/service"
	feedRepo "anoa.com/fandomspace/internal/modules/feed/repository"
	feedService "anoa.com/fandomspace/internal/modules/feed/service"
	moderationRepo "anoa.com/fandomspace/internal/modules/moderation/repository"
	moderationService "anoa.com/fandomspace/internal/modules/moderation/service"
	notifRepo "anoa.com/fandomspace/internal/modules/notification/repository"
	notifService "anoa.com/fandomspace/internal/modules/notification/service"
	socialRepo "anoa.com/fandomspace/internal/modules/social/repository"
	socialService "anoa.com/fandomspace/internal/modules/social/service"
	statRepo "anoa.com/fandomspace/internal/modules/stat/repository"
	statService "anoa.com/fandomspace/internal/modules/stat/service"
	userRepo "anoa.com/fandomspace/internal/modules/user/repository"
	userService "anoa.com/fandomspace/internal/modules/user/service"
	"anoa.com/fandomspace/pkg/live"
	"anoa.com/fandomspace/pkg/ratelimiter"
	"anoa.com/fandomspace/pkg/storage"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the optional collaborators of the store. Zero values disable
// rate limiting, Redis fan-out and image storage.
type Deps struct {
	Redis       *redis.Client
	Images      storage.ImageStorage
	Clock       func() time.Time
	FeedLimits  feedService.Limits
	ReportLimit time.Duration
	Commerce    commerceService.Options
}

type Store struct {
	DB  *gorm.DB
	Hub *live.Hub

	UserRepo userRepo.UserRepository

	Notifications notifService.NotificationService
	Users         userService.UserService
	Social        socialService.SocialService
	Feed          feedService.FeedService
	Commerce      commerceService.CommerceService
	Moderation    moderationService.ModerationService
	Stats         statService.StatService
	Attachments   attachmentService.AttachmentService
}

func New(db *gorm.DB, deps Deps) *Store {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	opts := deps.Commerce
	if opts == (commerceService.Options{}) {
		opts = commerceService.DefaultOptions()
	}

	hub := live.NewHub()
	limiter := ratelimiter.New(deps.Redis)
	users := userRepo.NewUserRepository(db)
	notifications := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), deps.Redis, hub)

	return &Store{
		DB:            db,
		Hub:           hub,
		UserRepo:      users,
		Notifications: notifications,
		Users:         userService.NewUserService(db, users, deps.Images, notifications, hub, clock),
		Social:        socialService.NewSocialService(db, socialRepo.NewSocialRepository(db), notifications, hub, clock),
		Feed:          feedService.NewFeedService(db, feedRepo.NewFeedRepository(db), limiter, deps.FeedLimits, deps.Images, notifications, hub, clock),
		Commerce:      commerceService.NewCommerceService(db, commerceRepo.NewCommerceRepository(db), deps.Images, notifications, hub, clock, opts),
		Moderation:    moderationService.NewModerationService(db, moderationRepo.NewModerationRepository(db), limiter, deps.ReportLimit, deps.Images, notifications, hub, clock),
		Stats:         statService.NewStatService(db, statRepo.NewStatRepository(db), hub, clock),
		Attachments:   attachmentService.NewAttachmentService(db, deps.Images, clock),
	}
}

// Close ends every live subscription. The database handle stays open.
func (s *Store) Close() error {
	return s.Hub.Close()
}
