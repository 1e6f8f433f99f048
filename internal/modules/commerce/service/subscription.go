package service

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/internal/modules/commerce/dto"
	"anoa.com/fandomspace/internal/modules/policy"
	"anoa.com/fandomspace/pkg/apperror"
	"anoa.com/fandomspace/pkg/live"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *commerceService) GetSubscription(ctx context.Context, artistID, userID uuid.UUID) (*dto.SubscriptionView, error) {
	sub, err := s.repo.FindSubscription(ctx, artistID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &dto.SubscriptionView{}, nil
	}
	if err != nil {
		return nil, err
	}
	now := s.policy.NowMs()
	return &dto.SubscriptionView{
		Subscription: sub,
		Active:       sub.Active(now),
		CanAccess:    sub.CanAccess(now),
	}, nil
}

func (s *commerceService) ObserveSubscription(ctx context.Context, artistID, userID uuid.UUID) (*live.Subscription[*dto.SubscriptionView], error) {
	return live.Observe(ctx, s.hub, []string{entity.TableSubscriptions}, func(ctx context.Context) (*dto.SubscriptionView, error) {
		return s.GetSubscription(ctx, artistID, userID)
	})
}

func (s *commerceService) GetUserSubscriptions(ctx context.Context, userID uuid.UUID) ([]entity.Subscription, error) {
	return s.repo.FindSubscriptionsByUser(ctx, userID)
}

func (s *commerceService) ToggleCancel(ctx context.Context, userID, artistID uuid.UUID) (bool, error) {
	var cancelled bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.policy.Actor(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		cancelled, err = s.repo.WithTx(tx).FlipSubscriptionCancel(ctx, artistID, userID)
		return notFound(err, "subscription")
	})
	if err != nil {
		return false, err
	}

	s.hub.Notify(entity.TableSubscriptions)
	return cancelled, nil
}

func (s *commerceService) RenewSubscription(ctx context.Context, userID, artistID uuid.UUID) (*entity.Subscription, error) {
	if userID == artistID {
		return nil, fmt.Errorf("cannot subscribe to yourself: %w", apperror.ErrInvalidOperation)
	}

	var sub *entity.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := s.policy.Actor(ctx, tx, userID)
		if err != nil {
			return err
		}
		artist, err := policy.LoadUser(ctx, tx, artistID)
		if err != nil {
			return err
		}
		if !artist.IsArtist() {
			return fmt.Errorf("%s is not an artist: %w", artist.Username, apperror.ErrInvalidOperation)
		}
		if err := s.policy.Authorize(ctx, tx, actor, artist, uuid.Nil, 0); err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		period := s.opts.SubscriptionPeriod.Milliseconds()
		if err := repo.ExtendSubscription(ctx, artistID, userID, s.policy.NowMs(), period); err != nil {
			return err
		}
		sub, err = repo.FindSubscription(ctx, artistID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.hub.Notify(entity.TableSubscriptions)
	return sub, nil
}

// CanDirectMessage reports whether the user may open a DM with the artist:
// DMs must be on and the paid window still open. Cancelled subscriptions keep
// access until they expire.
func (s *commerceService) CanDirectMessage(ctx context.Context, userID, artistID uuid.UUID) (bool, error) {
	artist, err := policy.LoadUser(ctx, s.db, artistID)
	if err != nil {
		return false, err
	}
	if !artist.IsArtist() || !artist.IsDmActive {
		return false, nil
	}
	blocked, err := policy.EitherBlocked(ctx, s.db, userID, artistID)
	if err != nil || blocked {
		return false, err
	}

	sub, err := s.repo.FindSubscription(ctx, artistID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sub.CanAccess(s.policy.NowMs()), nil
}
