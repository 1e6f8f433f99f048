package service

import (
	"context"
	"fmt"
	"time"

	"anoa.com/fandomspace/internal/entity"
	notifService "anoa.com/fandomspace/internal/modules/notification/service"
	"anoa.com/fandomspace/internal/modules/policy"
	"anoa.com/fandomspace/internal/modules/social/repository"
	"anoa.com/fandomspace/pkg/apperror"
	"anoa.com/fandomspace/pkg/live"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SocialService interface {
	// ToggleFollow flips the edge from current truth and returns the new state.
	ToggleFollow(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error)
	// ToggleBlock flips the block edge and returns the new state. Follow edges
	// are left in place; access checks combine both.
	ToggleBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error)

	IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error)
	ObserveIsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (*live.Subscription[bool], error)
	IsBlocked(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error)
	ObserveIsBlocked(ctx context.Context, blockerID, blockedID uuid.UUID) (*live.Subscription[bool], error)

	GetFollowers(ctx context.Context, userID uuid.UUID) ([]entity.User, error)
	ObserveFollowers(ctx context.Context, userID uuid.UUID) (*live.Subscription[[]entity.User], error)
	GetFollowedArtists(ctx context.Context, userID uuid.UUID) ([]entity.User, error)
	ObserveFollowedArtists(ctx context.Context, userID uuid.UUID) (*live.Subscription[[]entity.User], error)
	GetBlockedUsers(ctx context.Context, userID uuid.UUID) ([]entity.User, error)
	ObserveBlockedUsers(ctx context.Context, userID uuid.UUID) (*live.Subscription[[]entity.User], error)
	CountFollowers(ctx context.Context, userID uuid.UUID) (int64, error)
}

type socialService struct {
	db           *gorm.DB
	repo         repository.SocialRepository
	notification notifService.NotificationService
	hub          *live.Hub
	policy       *policy.Policy
}

func NewSocialService(db *gorm.DB, repo repository.SocialRepository, notification notifService.NotificationService, hub *live.Hub, clock func() time.Time) SocialService {
	return &socialService{
		db:           db,
		repo:         repo,
		notification: notification,
		hub:          hub,
		policy:       policy.New(clock),
	}
}

func (s *socialService) ToggleFollow(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	if followerID == followeeID {
		return false, fmt.Errorf("cannot follow yourself: %w", apperror.ErrInvalidOperation)
	}

	var following bool
	var follower *entity.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if follower, err = s.policy.LockActor(ctx, tx, followerID); err != nil {
			return err
		}
		followee, err := policy.LoadUser(ctx, tx, followeeID)
		if err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		removed, err := repo.DeleteFollow(ctx, followerID, followeeID)
		if err != nil {
			return err
		}
		if removed {
			following = false
			return nil
		}

		if !followee.IsArtist() {
			return fmt.Errorf("%s is not an artist: %w", followee.Username, apperror.ErrInvalidOperation)
		}
		if !followee.IsFandomActive {
			return fmt.Errorf("fandom space of %s is not active: %w", followee.Username, apperror.ErrInvalidOperation)
		}
		blocked, err := policy.EitherBlocked(ctx, tx, followerID, followeeID)
		if err != nil {
			return err
		}
		if blocked {
			return fmt.Errorf("blocked: %w", apperror.ErrPermissionDenied)
		}

		if err := repo.InsertFollow(ctx, followerID, followeeID); err != nil {
			return err
		}
		following = true
		return nil
	})
	if err != nil {
		return false, err
	}

	s.hub.Notify(entity.TableFollows)
	if following {
		notifService.Send(ctx, s.notification, &entity.Notification{
			UserID:     followeeID,
			ActorID:    followerID,
			EntityID:   followerID,
			EntityType: "user",
			Type:       entity.NotifyFollow,
			Message:    fmt.Sprintf("%s joined your fandom", follower.Username),
		})
	}
	return following, nil
}

func (s *socialService) ToggleBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	if blockerID == blockedID {
		return false, fmt.Errorf("cannot block yourself: %w", apperror.ErrInvalidOperation)
	}

	var blocking bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.policy.LockActor(ctx, tx, blockerID); err != nil {
			return err
		}
		target, err := policy.LoadUser(ctx, tx, blockedID)
		if err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		removed, err := repo.DeleteBlock(ctx, blockerID, blockedID)
		if err != nil {
			return err
		}
		if removed {
			blocking = false
			return nil
		}
		if target.IsAdmin() {
			return fmt.Errorf("admins cannot be blocked: %w", apperror.ErrInvalidOperation)
		}
		if err := repo.InsertBlock(ctx, blockerID, blockedID); err != nil {
			return err
		}
		blocking = true
		return nil
	})
	if err != nil {
		return false, err
	}

	s.hub.Notify(entity.TableBlocks)
	return blocking, nil
}

func (s *socialService) IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	return policy.IsFollowing(ctx, s.db, followerID, followeeID)
}

func (s *socialService) ObserveIsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (*live.Subscription[bool], error) {
	return live.Observe(ctx, s.hub, []string{entity.TableFollows}, func(ctx context.Context) (bool, error) {
		return s.IsFollowing(ctx, followerID, followeeID)
	})
}

func (s *socialService) IsBlocked(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	return policy.IsBlocked(ctx, s.db, blockerID, blockedID)
}

func (s *socialService) ObserveIsBlocked(ctx context.Context, blockerID, blockedID uuid.UUID) (*live.Subscription[bool], error) {
	return live.Observe(ctx, s.hub, []string{entity.TableBlocks}, func(ctx context.Context) (bool, error) {
		return s.IsBlocked(ctx, blockerID, blockedID)
	})
}

func (s *socialService) GetFollowers(ctx context.Context, userID uuid.UUID) ([]entity.User, error) {
	return s.repo.FindFollowers(ctx, userID)
}

func (s *socialService) ObserveFollowers(ctx context.Context, userID uuid.UUID) (*live.Subscription[[]entity.User], error) {
	return live.Observe(ctx, s.hub, []string{entity.TableFollows, entity.TableUsers}, func(ctx context.Context) ([]entity.User, error) {
		return s.repo.FindFollowers(ctx, userID)
	})
}

func (s *socialService) GetFollowedArtists(ctx context.Context, userID uuid.UUID) ([]entity.User, error) {
	return s.repo.FindFollowedArtists(ctx, userID)
}

func (s *socialService) ObserveFollowedArtists(ctx context.Context, userID uuid.UUID) (*live.Subscription[[]entity.User], error) {
	return live.Observe(ctx, s.hub, []string{entity.TableFollows, entity.TableUsers}, func(ctx context.Context) ([]entity.User, error) {
		return s.repo.FindFollowedArtists(ctx, userID)
	})
}

func (s *socialService) GetBlockedUsers(ctx context.Context, userID uuid.UUID) ([]entity.User, error) {
	return s.repo.FindBlockedUsers(ctx, userID)
}

func (s *socialService) ObserveBlockedUsers(ctx context.Context, userID uuid.UUID) (*live.Subscription[[]entity.User], error) {
	return live.Observe(ctx, s.hub, []string{entity.TableBlocks, entity.TableUsers}, func(ctx context.Context) ([]entity.User, error) {
		return s.repo.FindBlockedUsers(ctx, userID)
	})
}

func (s *socialService) CountFollowers(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountFollowers(ctx, userID)
}
