package repository

import (
	"context"

	"anoa.com/fandomspace/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SocialRepository interface {
	WithTx(tx *gorm.DB) SocialRepository

	// Delete* report whether an edge existed; Insert* are no-ops on duplicates.
	DeleteFollow(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error)
	InsertFollow(ctx context.Context, followerID, followeeID uuid.UUID) error
	DeleteBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error)
	InsertBlock(ctx context.Context, blockerID, blockedID uuid.UUID) error

	FindFollowers(ctx context.Context, userID uuid.UUID) ([]entity.User, error)
	FindFollowedArtists(ctx context.Context, userID uuid.UUID) ([]entity.User, error)
	FindBlockedUsers(ctx context.Context, userID uuid.UUID) ([]entity.User, error)
	CountFollowers(ctx context.Context, userID uuid.UUID) (int64, error)
}

type socialRepository struct {
	db *gorm.DB
}

func NewSocialRepository(db *gorm.DB) SocialRepository {
	return &socialRepository{db: db}
}

func (r *socialRepository) WithTx(tx *gorm.DB) SocialRepository {
	return &socialRepository{db: tx}
}

func (r *socialRepository) DeleteFollow(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&entity.Follow{})
	return res.RowsAffected > 0, res.Error
}

func (r *socialRepository) InsertFollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.Follow{FollowerID: followerID, FolloweeID: followeeID}).Error
}

func (r *socialRepository) DeleteBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&entity.Block{})
	return res.RowsAffected > 0, res.Error
}

func (r *socialRepository) InsertBlock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.Block{BlockerID: blockerID, BlockedID: blockedID}).Error
}

func (r *socialRepository) FindFollowers(ctx context.Context, userID uuid.UUID) ([]entity.User, error) {
	users := []entity.User{}
	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.followee_id = ?", userID).
		Order("follows.created_at desc").
		Find(&users).Error
	return users, err
}

func (r *socialRepository) FindFollowedArtists(ctx context.Context, userID uuid.UUID) ([]entity.User, error) {
	users := []entity.User{}
	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.followee_id = users.id").
		Where("follows.follower_id = ? AND users.role = ?", userID, entity.RoleArtist).
		Order("follows.created_at desc").
		Find(&users).Error
	return users, err
}

func (r *socialRepository) FindBlockedUsers(ctx context.Context, userID uuid.UUID) ([]entity.User, error) {
	users := []entity.User{}
	err := r.db.WithContext(ctx).
		Joins("JOIN blocks ON blocks.blocked_id = users.id").
		Where("blocks.blocker_id = ?", userID).
		Order("blocks.created_at desc").
		Find(&users).Error
	return users, err
}

func (r *socialRepository) CountFollowers(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Follow{}).Where("followee_id = ?", userID).Count(&count).Error
	return count, err
}
