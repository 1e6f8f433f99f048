// Package policy holds the access rules shared by every command: who may act
// at all, and who may interact inside an artist's fandom space.
package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Requirement selects which fandom-space gates apply to a command.
type Requirement int

const (
	// RequireFollow: the actor must follow the space's artist.
	RequireFollow Requirement = 1 << iota
	// RequireInteraction: the artist must have interaction enabled.
	RequireInteraction
	// RequireActiveFandom: the artist's fandom space must be active.
	RequireActiveFandom
)

type Policy struct {
	now func() time.Time
}

func New(now func() time.Time) *Policy {
	if now == nil {
		now = time.Now
	}
	return &Policy{now: now}
}

func (p *Policy) NowMs() int64 {
	return p.now().UnixMilli()
}

// LoadUser fetches a user, mapping absence to ErrNotFound.
func LoadUser(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, apperror.ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

// Actor loads the user performing a command. Suspended users may not act.
func (p *Policy) Actor(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.User, error) {
	user, err := LoadUser(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if user.SuspensionActive(p.NowMs()) {
		return nil, fmt.Errorf("account is suspended: %w", apperror.ErrPermissionDenied)
	}
	return user, nil
}

// LockActor is Actor for toggles. On postgres it holds the actor's row until
// the transaction ends, so two flips by the same user cannot both read the
// old state. SQLite already serializes writers.
func (p *Policy) LockActor(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*entity.User, error) {
	if tx.Dialector.Name() == "postgres" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return p.Actor(ctx, tx, id)
}

// Admin loads an actor and requires the ADMIN role.
func (p *Policy) Admin(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.User, error) {
	user, err := p.Actor(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, fmt.Errorf("admin role required: %w", apperror.ErrPermissionDenied)
	}
	return user, nil
}

func IsFollowing(ctx context.Context, db *gorm.DB, followerID, followeeID uuid.UUID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&entity.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	return count > 0, err
}

func IsBlocked(ctx context.Context, db *gorm.DB, blockerID, blockedID uuid.UUID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&entity.Block{}).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Count(&count).Error
	return count > 0, err
}

// EitherBlocked reports a block edge in any direction between a and b.
func EitherBlocked(ctx context.Context, db *gorm.DB, a, b uuid.UUID) (bool, error) {
	if a == b {
		return false, nil
	}
	var count int64
	err := db.WithContext(ctx).Model(&entity.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// Authorize checks that actor may act inside artist's fandom space on content
// owned by ownerID (uuid.Nil when there is no separate owner). Admins bypass
// every gate; the artist always passes in their own space.
func (p *Policy) Authorize(ctx context.Context, db *gorm.DB, actor, artist *entity.User, ownerID uuid.UUID, req Requirement) error {
	if actor.IsAdmin() || actor.ID == artist.ID {
		return nil
	}

	blocked, err := EitherBlocked(ctx, db, actor.ID, artist.ID)
	if err != nil {
		return err
	}
	if !blocked && ownerID != uuid.Nil && ownerID != artist.ID {
		if blocked, err = EitherBlocked(ctx, db, actor.ID, ownerID); err != nil {
			return err
		}
	}
	if blocked {
		return fmt.Errorf("blocked: %w", apperror.ErrPermissionDenied)
	}

	if req&RequireActiveFandom != 0 && !artist.IsFandomActive {
		return fmt.Errorf("fandom space of %s is not active: %w", artist.Username, apperror.ErrPermissionDenied)
	}
	if req&RequireInteraction != 0 && !artist.IsInteractionEnabled {
		return fmt.Errorf("%s has disabled interaction: %w", artist.Username, apperror.ErrPermissionDenied)
	}
	if req&RequireFollow != 0 {
		following, err := IsFollowing(ctx, db, actor.ID, artist.ID)
		if err != nil {
			return err
		}
		if !following {
			return fmt.Errorf("follow %s to interact: %w", artist.Username, apperror.ErrPermissionDenied)
		}
	}
	return nil
}
