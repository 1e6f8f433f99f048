package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/internal/modules/feed/dto"
	"anoa.com/fandomspace/internal/modules/feed/repository"
	notifService "anoa.com/fandomspace/internal/modules/notification/service"
	"anoa.com/fandomspace/internal/modules/policy"
	"anoa.com/fandomspace/pkg/apperror"
	"anoa.com/fandomspace/pkg/live"
	"anoa.com/fandomspace/pkg/logger"
	"anoa.com/fandomspace/pkg/ratelimiter"
	"anoa.com/fandomspace/pkg/storage"
	"anoa.com/fandomspace/pkg/validator"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type FeedService interface {
	CreatePost(ctx context.Context, authorID uuid.UUID, input dto.CreatePostInput) (*entity.Post, error)
	UpdatePost(ctx context.Context, userID, postID uuid.UUID, input dto.UpdatePostInput) (*entity.Post, error)
	DeletePost(ctx context.Context, userID, postID uuid.UUID) error

	AddComment(ctx context.Context, postID, userID uuid.UUID, input dto.AddCommentInput) (*entity.Comment, error)
	UpdateComment(ctx context.Context, userID, commentID uuid.UUID, input dto.UpdateCommentInput) (*entity.Comment, error)
	// DeleteComment removes the comment and every reply below it.
	DeleteComment(ctx context.Context, userID, commentID uuid.UUID) error

	ToggleLike(ctx context.Context, userID, referenceID uuid.UUID, referenceType string) (bool, error)
	ToggleSave(ctx context.Context, userID, postID uuid.UUID) (bool, error)

	// GetFeedPosts lists official posts of every followed artist, newest first.
	GetFeedPosts(ctx context.Context, userID uuid.UUID) ([]dto.PostView, error)
	ObserveFeedPosts(ctx context.Context, userID uuid.UUID) (*live.Subscription[[]dto.PostView], error)
	GetFanThreads(ctx context.Context, viewerID, artistID uuid.UUID) ([]dto.PostView, error)
	ObserveFanThreads(ctx context.Context, viewerID, artistID uuid.UUID) (*live.Subscription[[]dto.PostView], error)
	GetOfficialPosts(ctx context.Context, viewerID, artistID uuid.UUID) ([]dto.PostView, error)
	ObserveOfficialPosts(ctx context.Context, viewerID, artistID uuid.UUID) (*live.Subscription[[]dto.PostView], error)
	GetSavedPosts(ctx context.Context, userID uuid.UUID) ([]dto.PostView, error)
	ObserveSavedPosts(ctx context.Context, userID uuid.UUID) (*live.Subscription[[]dto.PostView], error)

	GetPost(ctx context.Context, viewerID, postID uuid.UUID) (*dto.PostView, error)
	// ObservePost yields nil while the post is missing or hidden from the viewer.
	ObservePost(ctx context.Context, viewerID, postID uuid.UUID) (*live.Subscription[*dto.PostView], error)
	GetComments(ctx context.Context, viewerID, postID uuid.UUID) ([]*dto.CommentNode, error)
	ObserveComments(ctx context.Context, viewerID, postID uuid.UUID) (*live.Subscription[[]*dto.CommentNode], error)
	CountPostLikes(ctx context.Context, postID uuid.UUID) (int64, error)
	ObservePostLikes(ctx context.Context, postID uuid.UUID) (*live.Subscription[int64], error)
}

// Limits are per-user cooldowns for content creation. Zero disables a limit.
type Limits struct {
	Post    time.Duration
	Comment time.Duration
}

type feedService struct {
	db           *gorm.DB
	repo         repository.FeedRepository
	limiter      *ratelimiter.Limiter
	limits       Limits
	imageStorage storage.ImageStorage
	notification notifService.NotificationService
	hub          *live.Hub
	policy       *policy.Policy
}

func NewFeedService(db *gorm.DB, repo repository.FeedRepository, limiter *ratelimiter.Limiter, limits Limits, imageStorage storage.ImageStorage, notification notifService.NotificationService, hub *live.Hub, clock func() time.Time) FeedService {
	return &feedService{
		db:           db,
		repo:         repo,
		limiter:      limiter,
		limits:       limits,
		imageStorage: imageStorage,
		notification: notification,
		hub:          hub,
		policy:       policy.New(clock),
	}
}

var postViewTables = []string{
	entity.TablePosts, entity.TableLikes, entity.TableComments, entity.TableSavedPosts,
	entity.TableFollows, entity.TableBlocks, entity.TableUsers,
}

func (s *feedService) CreatePost(ctx context.Context, authorID uuid.UUID, input dto.CreatePostInput) (*entity.Post, error) {
	input.Content = strings.TrimSpace(input.Content)
	if err := validator.Struct(input); err != nil {
		return nil, err
	}
	if input.Content == "" && len(input.Images) == 0 {
		return nil, fmt.Errorf("post needs content or images: %w", apperror.ErrInvalidInput)
	}

	if err := s.limiter.Allow(ctx, authorID, "post", s.limits.Post); err != nil {
		return nil, err
	}
	creationFailed := true
	defer func() {
		if creationFailed {
			_ = s.limiter.Clear(ctx, authorID, "post")
		}
	}()

	post := &entity.Post{
		AuthorID: authorID,
		ArtistID: input.ArtistID,
		Content:  input.Content,
		Images:   input.Images,
		IsThread: input.IsThread,
	}
	var author *entity.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if author, err = s.policy.Actor(ctx, tx, authorID); err != nil {
			return err
		}
		artist, err := policy.LoadUser(ctx, tx, input.ArtistID)
		if err != nil {
			return err
		}
		if !artist.IsArtist() {
			return fmt.Errorf("%s has no fandom space: %w", artist.Username, apperror.ErrInvalidOperation)
		}
		if authorID != artist.ID {
			if !input.IsThread {
				return fmt.Errorf("only the artist publishes official posts: %w", apperror.ErrPermissionDenied)
			}
			if err := s.policy.Authorize(ctx, tx, author, artist, uuid.Nil,
				policy.RequireFollow|policy.RequireInteraction|policy.RequireActiveFandom); err != nil {
				return err
			}
		}
		return s.repo.WithTx(tx).CreatePost(ctx, post)
	})
	if err != nil {
		return nil, err
	}
	creationFailed = false

	s.hub.Notify(entity.TablePosts)
	if post.IsThread && authorID != post.ArtistID {
		notifService.Send(ctx, s.notification, &entity.Notification{
			UserID:     post.ArtistID,
			ActorID:    authorID,
			EntityID:   post.ID,
			EntityType: "post",
			Type:       entity.NotifyThread,
			Message:    fmt.Sprintf("%s started a thread in your fandom", author.Username),
		})
	}
	return s.findPost(ctx, post.ID)
}

func (s *feedService) UpdatePost(ctx context.Context, userID, postID uuid.UUID, input dto.UpdatePostInput) (*entity.Post, error) {
	if err := validator.Struct(input); err != nil {
		return nil, err
	}

	var dropped []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.policy.Actor(ctx, tx, userID); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		post, err := repo.FindPostByID(ctx, postID)
		if err != nil {
			return notFound(err, "post")
		}
		if post.AuthorID != userID {
			return fmt.Errorf("only the author can edit this post: %w", apperror.ErrPermissionDenied)
		}

		fields := map[string]interface{}{"is_edited": true}
		content := post.Content
		images := []string(post.Images)
		if input.Content != nil {
			content = strings.TrimSpace(*input.Content)
			fields["content"] = content
		}
		if input.Images != nil {
			images = *input.Images
			dropped = removedImages(post.Images, images)
			fields["images"] = entityImages(images)
		}
		if content == "" && len(images) == 0 {
			return fmt.Errorf("post needs content or images: %w", apperror.ErrInvalidInput)
		}
		return repo.UpdatePost(ctx, postID, fields)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Notify(entity.TablePosts)
	s.deleteImages(ctx, dropped)
	return s.findPost(ctx, postID)
}

func (s *feedService) DeletePost(ctx context.Context, userID, postID uuid.UUID) error {
	var images []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := s.policy.Actor(ctx, tx, userID)
		if err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		post, err := repo.FindPostByID(ctx, postID)
		if err != nil {
			return notFound(err, "post")
		}
		if post.AuthorID != userID && !actor.IsAdmin() {
			return fmt.Errorf("only the author can delete this post: %w", apperror.ErrPermissionDenied)
		}
		images = post.Images
		return repo.DeletePost(ctx, postID)
	})
	if err != nil {
		return err
	}

	s.hub.Notify(entity.TablePosts, entity.TableComments, entity.TableLikes, entity.TableSavedPosts)
	s.deleteImages(ctx, images)
	return nil
}

func (s *feedService) AddComment(ctx context.Context, postID, userID uuid.UUID, input dto.AddCommentInput) (*entity.Comment, error) {
	input.Content = strings.TrimSpace(input.Content)
	if err := validator.Struct(input); err != nil {
		return nil, err
	}

	if err := s.limiter.Allow(ctx, userID, "comment", s.limits.Comment); err != nil {
		return nil, err
	}
	creationFailed := true
	defer func() {
		if creationFailed {
			_ = s.limiter.Clear(ctx, userID, "comment")
		}
	}()

	comment := &entity.Comment{
		PostID:   postID,
		UserID:   userID,
		ParentID: input.ParentID,
		Content:  input.Content,
	}
	var (
		actor  *entity.User
		post   *entity.Post
		parent *entity.Comment
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if actor, err = s.policy.Actor(ctx, tx, userID); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		if post, err = repo.FindPostByID(ctx, postID); err != nil {
			return notFound(err, "post")
		}
		artist, err := policy.LoadUser(ctx, tx, post.ArtistID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, artist, post.AuthorID,
			policy.RequireFollow|policy.RequireInteraction); err != nil {
			return err
		}

		if input.ParentID != nil {
			parent, err = repo.FindCommentByID(ctx, *input.ParentID)
			if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && parent.PostID != postID) {
				return fmt.Errorf("parent comment is not on this post: %w", apperror.ErrInvalidReference)
			}
			if err != nil {
				return err
			}
		}
		return repo.CreateComment(ctx, comment)
	})
	if err != nil {
		return nil, err
	}
	creationFailed = false

	s.hub.Notify(entity.TableComments)
	notifService.Send(ctx, s.notification, &entity.Notification{
		UserID:     post.AuthorID,
		ActorID:    userID,
		EntityID:   post.ID,
		EntityType: "post",
		Type:       entity.NotifyComment,
		Message:    fmt.Sprintf("%s commented on your post", actor.Username),
	})
	if parent != nil && parent.UserID != post.AuthorID {
		notifService.Send(ctx, s.notification, &entity.Notification{
			UserID:     parent.UserID,
			ActorID:    userID,
			EntityID:   comment.ID,
			EntityType: "comment",
			Type:       entity.NotifyReply,
			Message:    fmt.Sprintf("%s replied to your comment", actor.Username),
		})
	}

	created, err := s.repo.FindCommentByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *feedService) UpdateComment(ctx context.Context, userID, commentID uuid.UUID, input dto.UpdateCommentInput) (*entity.Comment, error) {
	input.Content = strings.TrimSpace(input.Content)
	if err := validator.Struct(input); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.policy.Actor(ctx, tx, userID); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		comment, err := repo.FindCommentByID(ctx, commentID)
		if err != nil {
			return notFound(err, "comment")
		}
		if comment.UserID != userID {
			return fmt.Errorf("only the author can edit this comment: %w", apperror.ErrPermissionDenied)
		}
		return repo.UpdateComment(ctx, commentID, input.Content)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Notify(entity.TableComments)
	return s.repo.FindCommentByID(ctx, commentID)
}

func (s *feedService) DeleteComment(ctx context.Context, userID, commentID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := s.policy.Actor(ctx, tx, userID)
		if err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		comment, err := repo.FindCommentByID(ctx, commentID)
		if err != nil {
			return notFound(err, "comment")
		}
		post, err := repo.FindPostByID(ctx, comment.PostID)
		if err != nil {
			return notFound(err, "post")
		}
		if comment.UserID != userID && post.AuthorID != userID && !actor.IsAdmin() {
			return fmt.Errorf("cannot delete this comment: %w", apperror.ErrPermissionDenied)
		}

		comments, err := repo.FindCommentsByPostID(ctx, comment.PostID)
		if err != nil {
			return err
		}
		return repo.DeleteComments(ctx, subtreeIDs(comments, commentID))
	})
	if err != nil {
		return err
	}

	s.hub.Notify(entity.TableComments, entity.TableLikes)
	return nil
}

// ToggleLike flips the user's like on a post or comment. A comment's cached
// like_count moves in the same transaction as the likes row.
func (s *feedService) ToggleLike(ctx context.Context, userID, referenceID uuid.UUID, referenceType string) (bool, error) {
	if referenceType != entity.LikeTargetPost && referenceType != entity.LikeTargetComment {
		return false, fmt.Errorf("unknown like target %q: %w", referenceType, apperror.ErrInvalidInput)
	}

	var (
		liked   bool
		actor   *entity.User
		ownerID uuid.UUID
		postID  uuid.UUID
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if actor, err = s.policy.LockActor(ctx, tx, userID); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)

		postID = referenceID
		if referenceType == entity.LikeTargetComment {
			comment, err := repo.FindCommentByID(ctx, referenceID)
			if err != nil {
				return notFound(err, "comment")
			}
			postID = comment.PostID
			ownerID = comment.UserID
		}
		post, err := repo.FindPostByID(ctx, postID)
		if err != nil {
			return notFound(err, "post")
		}
		if referenceType == entity.LikeTargetPost {
			ownerID = post.AuthorID
		}

		removed, err := repo.DeleteLike(ctx, userID, referenceID, referenceType)
		if err != nil {
			return err
		}
		if removed {
			liked = false
			if referenceType == entity.LikeTargetComment {
				return repo.AdjustCommentLikes(ctx, referenceID, -1)
			}
			return nil
		}

		artist, err := policy.LoadUser(ctx, tx, post.ArtistID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, artist, ownerID, policy.RequireFollow); err != nil {
			return err
		}
		inserted, err := repo.InsertLike(ctx, &entity.Like{
			UserID:        userID,
			ReferenceID:   referenceID,
			ReferenceType: referenceType,
		})
		if err != nil {
			return err
		}
		liked = true
		if inserted && referenceType == entity.LikeTargetComment {
			return repo.AdjustCommentLikes(ctx, referenceID, 1)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if referenceType == entity.LikeTargetComment {
		s.hub.Notify(entity.TableLikes, entity.TableComments)
	} else {
		s.hub.Notify(entity.TableLikes)
	}
	if liked {
		notifService.Send(ctx, s.notification, &entity.Notification{
			UserID:     ownerID,
			ActorID:    userID,
			EntityID:   referenceID,
			EntityType: referenceType,
			Type:       entity.NotifyLike,
			Message:    fmt.Sprintf("%s liked your %s", actor.Username, referenceType),
		})
	}
	return liked, nil
}

func (s *feedService) ToggleSave(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
	var saved bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := s.policy.LockActor(ctx, tx, userID)
		if err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		post, err := repo.FindPostByID(ctx, postID)
		if err != nil {
			return notFound(err, "post")
		}

		removed, err := repo.DeleteSave(ctx, userID, postID)
		if err != nil {
			return err
		}
		if removed {
			saved = false
			return nil
		}

		artist, err := policy.LoadUser(ctx, tx, post.ArtistID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, artist, post.AuthorID, 0); err != nil {
			return err
		}
		if err := repo.InsertSave(ctx, userID, postID); err != nil {
			return err
		}
		saved = true
		return nil
	})
	if err != nil {
		return false, err
	}

	s.hub.Notify(entity.TableSavedPosts)
	return saved, nil
}

func (s *feedService) GetFeedPosts(ctx context.Context, userID uuid.UUID) ([]dto.PostView, error) {
	artistIDs, err := s.repo.FollowedArtistIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	posts, err := s.repo.FindOfficialPostsByArtists(ctx, artistIDs)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, userID, posts)
}

func (s *feedService) ObserveFeedPosts(ctx context.Context, userID uuid.UUID) (*live.Subscription[[]dto.PostView], error) {
	return live.Observe(ctx, s.hub, postViewTables, func(ctx context.Context) ([]dto.PostView, error) {
		return s.GetFeedPosts(ctx, userID)
	})
}

func (s *feedService) GetFanThreads(ctx context.Context, viewerID, artistID uuid.UUID) ([]dto.PostView, error) {
	posts, err := s.repo.FindFanThreads(ctx, artistID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, viewerID, posts)
}

func (s *feedService) ObserveFanThreads(ctx context.Context, viewerID, artistID uuid.UUID) (*live.Subscription[[]dto.PostView], error) {
	return live.Observe(ctx, s.hub, postViewTables, func(ctx context.Context) ([]dto.PostView, error) {
		return s.GetFanThreads(ctx, viewerID, artistID)
	})
}

func (s *feedService) GetOfficialPosts(ctx context.Context, viewerID, artistID uuid.UUID) ([]dto.PostView, error) {
	posts, err := s.repo.FindOfficialPostsByArtists(ctx, []uuid.UUID{artistID})
	if err != nil {
		return nil, err
	}
	return s.views(ctx, viewerID, posts)
}

func (s *feedService) ObserveOfficialPosts(ctx context.Context, viewerID, artistID uuid.UUID) (*live.Subscription[[]dto.PostView], error) {
	return live.Observe(ctx, s.hub, postViewTables, func(ctx context.Context) ([]dto.PostView, error) {
		return s.GetOfficialPosts(ctx, viewerID, artistID)
	})
}

func (s *feedService) GetSavedPosts(ctx context.Context, userID uuid.UUID) ([]dto.PostView, error) {
	posts, err := s.repo.FindSavedPosts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, userID, posts)
}

func (s *feedService) ObserveSavedPosts(ctx context.Context, userID uuid.UUID) (*live.Subscription[[]dto.PostView], error) {
	return live.Observe(ctx, s.hub, postViewTables, func(ctx context.Context) ([]dto.PostView, error) {
		return s.GetSavedPosts(ctx, userID)
	})
}

func (s *feedService) GetPost(ctx context.Context, viewerID, postID uuid.UUID) (*dto.PostView, error) {
	view, err := s.postView(ctx, viewerID, postID)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, fmt.Errorf("post: %w", apperror.ErrNotFound)
	}
	return view, nil
}

func (s *feedService) ObservePost(ctx context.Context, viewerID, postID uuid.UUID) (*live.Subscription[*dto.PostView], error) {
	return live.Observe(ctx, s.hub, postViewTables, func(ctx context.Context) (*dto.PostView, error) {
		return s.postView(ctx, viewerID, postID)
	})
}

func (s *feedService) GetComments(ctx context.Context, viewerID, postID uuid.UUID) ([]*dto.CommentNode, error) {
	comments, err := s.repo.FindCommentsByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}

	hidden, err := s.repo.BlockedPeerIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if len(hidden) > 0 {
		skip := toSet(hidden)
		var dropped []uuid.UUID
		for _, c := range comments {
			if skip[c.UserID] {
				dropped = append(dropped, subtreeIDs(comments, c.ID)...)
			}
		}
		comments = without(comments, toSet(dropped))
	}

	ids := make([]uuid.UUID, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	liked, err := s.repo.LikedBy(ctx, viewerID, ids, entity.LikeTargetComment)
	if err != nil {
		return nil, err
	}
	return BuildCommentTree(comments, liked), nil
}

func (s *feedService) ObserveComments(ctx context.Context, viewerID, postID uuid.UUID) (*live.Subscription[[]*dto.CommentNode], error) {
	deps := []string{entity.TableComments, entity.TableLikes, entity.TableBlocks, entity.TableUsers}
	return live.Observe(ctx, s.hub, deps, func(ctx context.Context) ([]*dto.CommentNode, error) {
		return s.GetComments(ctx, viewerID, postID)
	})
}

func (s *feedService) CountPostLikes(ctx context.Context, postID uuid.UUID) (int64, error) {
	counts, err := s.repo.CountLikes(ctx, []uuid.UUID{postID}, entity.LikeTargetPost)
	if err != nil {
		return 0, err
	}
	return counts[postID], nil
}

func (s *feedService) ObservePostLikes(ctx context.Context, postID uuid.UUID) (*live.Subscription[int64], error) {
	return live.Observe(ctx, s.hub, []string{entity.TableLikes}, func(ctx context.Context) (int64, error) {
		return s.CountPostLikes(ctx, postID)
	})
}

func (s *feedService) findPost(ctx context.Context, id uuid.UUID) (*entity.Post, error) {
	post, err := s.repo.FindPostByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "post")
	}
	return post, nil
}

// postView returns nil when the post is gone or a block hides it.
func (s *feedService) postView(ctx context.Context, viewerID, postID uuid.UUID) (*dto.PostView, error) {
	post, err := s.repo.FindPostByID(ctx, postID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, viewerID, []entity.Post{*post})
	if err != nil || len(views) == 0 {
		return nil, err
	}
	return &views[0], nil
}

// views decorates posts with counters and viewer flags, dropping posts whose
// author or space is on either side of a block with the viewer.
func (s *feedService) views(ctx context.Context, viewerID uuid.UUID, posts []entity.Post) ([]dto.PostView, error) {
	hidden, err := s.repo.BlockedPeerIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	skip := toSet(hidden)

	visible := make([]entity.Post, 0, len(posts))
	ids := make([]uuid.UUID, 0, len(posts))
	for _, p := range posts {
		if skip[p.AuthorID] || skip[p.ArtistID] {
			continue
		}
		visible = append(visible, p)
		ids = append(ids, p.ID)
	}

	likes, err := s.repo.CountLikes(ctx, ids, entity.LikeTargetPost)
	if err != nil {
		return nil, err
	}
	comments, err := s.repo.CountComments(ctx, ids)
	if err != nil {
		return nil, err
	}
	liked, err := s.repo.LikedBy(ctx, viewerID, ids, entity.LikeTargetPost)
	if err != nil {
		return nil, err
	}
	saved, err := s.repo.SavedBy(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	out := make([]dto.PostView, len(visible))
	for i, p := range visible {
		out[i] = dto.PostView{
			Post:         p,
			LikeCount:    likes[p.ID],
			CommentCount: comments[p.ID],
			IsLiked:      liked[p.ID],
			IsSaved:      saved[p.ID],
			IsOfficial:   p.AuthorID == p.ArtistID,
		}
	}
	return out, nil
}

func (s *feedService) deleteImages(ctx context.Context, urls []string) {
	for _, err := range storage.DeleteAll(ctx, s.imageStorage, urls) {
		logger.Log.WithError(err).Warn("failed to delete post image")
	}
}

func removedImages(before []string, after []string) []string {
	keep := make(map[string]bool, len(after))
	for _, u := range after {
		keep[u] = true
	}
	var dropped []string
	for _, u := range before {
		if !keep[u] {
			dropped = append(dropped, u)
		}
	}
	return dropped
}

func entityImages(urls []string) datatypes.JSONSlice[string] {
	if urls == nil {
		urls = []string{}
	}
	return datatypes.JSONSlice[string](urls)
}

func toSet(ids []uuid.UUID) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func without(comments []entity.Comment, drop map[uuid.UUID]bool) []entity.Comment {
	if len(drop) == 0 {
		return comments
	}
	kept := comments[:0:0]
	for _, c := range comments {
		if !drop[c.ID] {
			kept = append(kept, c)
		}
	}
	return kept
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, apperror.ErrNotFound)
	}
	return err
}
