package repository

import (
	"context"
	"time"

	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/internal/modules/stat/dto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatRepository interface {
	FindFollows(ctx context.Context, artistID uuid.UUID) ([]entity.Follow, error)
	FindPostsSince(ctx context.Context, artistID uuid.UUID, since time.Time) ([]entity.Post, error)
	FindPostLikesSince(ctx context.Context, artistID uuid.UUID, since time.Time) ([]entity.Like, error)
	FindCommentsSince(ctx context.Context, artistID uuid.UUID, since time.Time) ([]entity.Comment, error)
	FindOrdersSince(ctx context.Context, artistID uuid.UUID, since time.Time) ([]entity.Order, error)
	FindUsernames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	Summary(ctx context.Context) (*dto.PlatformSummary, error)
}

type statRepository struct {
	db *gorm.DB
}

func NewStatRepository(db *gorm.DB) StatRepository {
	return &statRepository{db: db}
}

func (r *statRepository) FindFollows(ctx context.Context, artistID uuid.UUID) ([]entity.Follow, error) {
	var follows []entity.Follow
	err := r.db.WithContext(ctx).Where("followee_id = ?", artistID).Find(&follows).Error
	return follows, err
}

func (r *statRepository) FindPostsSince(ctx context.Context, artistID uuid.UUID, since time.Time) ([]entity.Post, error) {
	var posts []entity.Post
	err := r.db.WithContext(ctx).
		Select("id", "author_id", "artist_id", "is_thread", "created_at").
		Where("artist_id = ? AND created_at >= ?", artistID, since).
		Find(&posts).Error
	return posts, err
}

func (r *statRepository) artistPosts(ctx context.Context, artistID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&entity.Post{}).Select("id").Where("artist_id = ?", artistID)
}

func (r *statRepository) FindPostLikesSince(ctx context.Context, artistID uuid.UUID, since time.Time) ([]entity.Like, error) {
	var likes []entity.Like
	err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id IN (?) AND created_at >= ?",
			entity.LikeTargetPost, r.artistPosts(ctx, artistID), since).
		Find(&likes).Error
	return likes, err
}

func (r *statRepository) FindCommentsSince(ctx context.Context, artistID uuid.UUID, since time.Time) ([]entity.Comment, error) {
	var comments []entity.Comment
	err := r.db.WithContext(ctx).
		Select("id", "post_id", "user_id", "created_at").
		Where("post_id IN (?) AND created_at >= ?", r.artistPosts(ctx, artistID), since).
		Find(&comments).Error
	return comments, err
}

func (r *statRepository) FindOrdersSince(ctx context.Context, artistID uuid.UUID, since time.Time) ([]entity.Order, error) {
	var orders []entity.Order
	err := r.db.WithContext(ctx).
		Where("artist_id = ? AND created_at >= ?", artistID, since).
		Find(&orders).Error
	return orders, err
}

func (r *statRepository) FindUsernames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var users []entity.User
	if err := r.db.WithContext(ctx).Select("id", "username").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names, nil
}

func (r *statRepository) Summary(ctx context.Context) (*dto.PlatformSummary, error) {
	db := r.db.WithContext(ctx)
	var s dto.PlatformSummary
	counts := []struct {
		into  *int64
		model interface{}
		query string
		args  []interface{}
	}{
		{&s.Users, &entity.User{}, "1 = 1", nil},
		{&s.Artists, &entity.User{}, "role = ?", []interface{}{entity.RoleArtist}},
		{&s.Suspended, &entity.User{}, "is_suspended = ?", []interface{}{true}},
		{&s.Orders, &entity.Order{}, "1 = 1", nil},
		{&s.PendingReports, &entity.Report{}, "status = ?", []interface{}{entity.ReportStatusPending}},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where(c.query, c.args...).Count(c.into).Error; err != nil {
			return nil, err
		}
	}
	return &s, nil
}
