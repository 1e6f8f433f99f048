package repository

import (
	"context"

	"anoa.com/fandomspace/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FeedRepository interface {
	WithTx(tx *gorm.DB) FeedRepository

	CreatePost(ctx context.Context, post *entity.Post) error
	FindPostByID(ctx context.Context, id uuid.UUID) (*entity.Post, error)
	UpdatePost(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	DeletePost(ctx context.Context, id uuid.UUID) error

	FindOfficialPostsByArtists(ctx context.Context, artistIDs []uuid.UUID) ([]entity.Post, error)
	FindFanThreads(ctx context.Context, artistID uuid.UUID) ([]entity.Post, error)
	FindSavedPosts(ctx context.Context, userID uuid.UUID) ([]entity.Post, error)
	FollowedArtistIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	BlockedPeerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	CreateComment(ctx context.Context, comment *entity.Comment) error
	FindCommentByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error)
	FindCommentsByPostID(ctx context.Context, postID uuid.UUID) ([]entity.Comment, error)
	UpdateComment(ctx context.Context, id uuid.UUID, content string) error
	DeleteComments(ctx context.Context, ids []uuid.UUID) error

	DeleteLike(ctx context.Context, userID, refID uuid.UUID, refType string) (bool, error)
	InsertLike(ctx context.Context, like *entity.Like) (bool, error)
	AdjustCommentLikes(ctx context.Context, commentID uuid.UUID, delta int) error
	CountLikes(ctx context.Context, refIDs []uuid.UUID, refType string) (map[uuid.UUID]int64, error)
	LikedBy(ctx context.Context, userID uuid.UUID, refIDs []uuid.UUID, refType string) (map[uuid.UUID]bool, error)

	DeleteSave(ctx context.Context, userID, postID uuid.UUID) (bool, error)
	InsertSave(ctx context.Context, userID, postID uuid.UUID) error
	SavedBy(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error)

	CountComments(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

type feedRepository struct {
	db *gorm.DB
}

func NewFeedRepository(db *gorm.DB) FeedRepository {
	return &feedRepository{db: db}
}

func (r *feedRepository) WithTx(tx *gorm.DB) FeedRepository {
	return &feedRepository{db: tx}
}

func (r *feedRepository) CreatePost(ctx context.Context, post *entity.Post) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

func (r *feedRepository) FindPostByID(ctx context.Context, id uuid.UUID) (*entity.Post, error) {
	var post entity.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("id = ?", id).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *feedRepository) UpdatePost(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&entity.Post{}).Where("id = ?", id).Updates(fields).Error
}

// DeletePost removes a post together with its comments, likes and saves.
func (r *feedRepository) DeletePost(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)

	commentIDs := db.Model(&entity.Comment{}).Select("id").Where("post_id = ?", id)
	if err := db.Where("reference_type = ? AND reference_id IN (?)", entity.LikeTargetComment, commentIDs).
		Delete(&entity.Like{}).Error; err != nil {
		return err
	}
	if err := db.Where("post_id = ?", id).Delete(&entity.Comment{}).Error; err != nil {
		return err
	}
	if err := db.Where("reference_type = ? AND reference_id = ?", entity.LikeTargetPost, id).
		Delete(&entity.Like{}).Error; err != nil {
		return err
	}
	if err := db.Where("post_id = ?", id).Delete(&entity.SavedPost{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&entity.Post{}).Error
}

// FindOfficialPostsByArtists returns posts the artists wrote in their own space.
func (r *feedRepository) FindOfficialPostsByArtists(ctx context.Context, artistIDs []uuid.UUID) ([]entity.Post, error) {
	posts := []entity.Post{}
	if len(artistIDs) == 0 {
		return posts, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("artist_id IN ? AND author_id = artist_id", artistIDs).
		Order("created_at desc, id desc").
		Find(&posts).Error
	return posts, err
}

func (r *feedRepository) FindFanThreads(ctx context.Context, artistID uuid.UUID) ([]entity.Post, error) {
	posts := []entity.Post{}
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("artist_id = ? AND is_thread = ? AND author_id <> ?", artistID, true, artistID).
		Order("created_at desc, id desc").
		Find(&posts).Error
	return posts, err
}

func (r *feedRepository) FindSavedPosts(ctx context.Context, userID uuid.UUID) ([]entity.Post, error) {
	posts := []entity.Post{}
	err := r.db.WithContext(ctx).
		Preload("Author").
		Joins("JOIN saved_posts ON saved_posts.post_id = posts.id").
		Where("saved_posts.user_id = ?", userID).
		Order("saved_posts.created_at desc").
		Find(&posts).Error
	return posts, err
}

func (r *feedRepository) FollowedArtistIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&entity.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("followee_id", &ids).Error
	return ids, err
}

// BlockedPeerIDs lists users with a block edge to or from userID.
func (r *feedRepository) BlockedPeerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var blocks []entity.Block
	err := r.db.WithContext(ctx).
		Where("blocker_id = ? OR blocked_id = ?", userID, userID).
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(blocks))
	for _, b := range blocks {
		if b.BlockerID == userID {
			ids = append(ids, b.BlockedID)
		} else {
			ids = append(ids, b.BlockerID)
		}
	}
	return ids, nil
}

func (r *feedRepository) CreateComment(ctx context.Context, comment *entity.Comment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error
}

func (r *feedRepository) FindCommentByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error) {
	var comment entity.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *feedRepository) FindCommentsByPostID(ctx context.Context, postID uuid.UUID) ([]entity.Comment, error) {
	comments := []entity.Comment{}
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at asc, id asc").
		Find(&comments).Error
	return comments, err
}

func (r *feedRepository) UpdateComment(ctx context.Context, id uuid.UUID, content string) error {
	return r.db.WithContext(ctx).Model(&entity.Comment{}).Where("id = ?", id).
		Updates(map[string]interface{}{"content": content, "is_edited": true}).Error
}

func (r *feedRepository) DeleteComments(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Where("reference_type = ? AND reference_id IN ?", entity.LikeTargetComment, ids).
		Delete(&entity.Like{}).Error; err != nil {
		return err
	}
	return db.Where("id IN ?", ids).Delete(&entity.Comment{}).Error
}

func (r *feedRepository) DeleteLike(ctx context.Context, userID, refID uuid.UUID, refType string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND reference_id = ? AND reference_type = ?", userID, refID, refType).
		Delete(&entity.Like{})
	return res.RowsAffected > 0, res.Error
}

// InsertLike reports false when the like already existed.
func (r *feedRepository) InsertLike(ctx context.Context, like *entity.Like) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(like)
	return res.RowsAffected > 0, res.Error
}

func (r *feedRepository) AdjustCommentLikes(ctx context.Context, commentID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Model(&entity.Comment{}).
		Where("id = ?", commentID).
		UpdateColumn("like_count", gorm.Expr("like_count + ?", delta)).Error
}

func (r *feedRepository) CountLikes(ctx context.Context, refIDs []uuid.UUID, refType string) (map[uuid.UUID]int64, error) {
	type Result struct {
		ReferenceID uuid.UUID
		Count       int64
	}
	counts := make(map[uuid.UUID]int64)
	if len(refIDs) == 0 {
		return counts, nil
	}

	var results []Result
	err := r.db.WithContext(ctx).
		Model(&entity.Like{}).
		Select("reference_id, count(*) as count").
		Where("reference_type = ? AND reference_id IN ?", refType, refIDs).
		Group("reference_id").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	for _, res := range results {
		counts[res.ReferenceID] = res.Count
	}
	return counts, nil
}

func (r *feedRepository) LikedBy(ctx context.Context, userID uuid.UUID, refIDs []uuid.UUID, refType string) (map[uuid.UUID]bool, error) {
	liked := make(map[uuid.UUID]bool)
	if len(refIDs) == 0 || userID == uuid.Nil {
		return liked, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&entity.Like{}).
		Where("user_id = ? AND reference_type = ? AND reference_id IN ?", userID, refType, refIDs).
		Pluck("reference_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

func (r *feedRepository) DeleteSave(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&entity.SavedPost{})
	return res.RowsAffected > 0, res.Error
}

func (r *feedRepository) InsertSave(ctx context.Context, userID, postID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.SavedPost{UserID: userID, PostID: postID}).Error
}

func (r *feedRepository) SavedBy(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	saved := make(map[uuid.UUID]bool)
	if len(postIDs) == 0 || userID == uuid.Nil {
		return saved, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&entity.SavedPost{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		saved[id] = true
	}
	return saved, nil
}

func (r *feedRepository) CountComments(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	type Result struct {
		PostID uuid.UUID
		Count  int64
	}
	counts := make(map[uuid.UUID]int64)
	if len(postIDs) == 0 {
		return counts, nil
	}

	var results []Result
	err := r.db.WithContext(ctx).
		Model(&entity.Comment{}).
		Select("post_id, count(*) as count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	for _, res := range results {
		counts[res.PostID] = res.Count
	}
	return counts, nil
}
