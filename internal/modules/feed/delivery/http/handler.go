package handler

import (
	"context"
	"net/http"

	"anoa.com/fandomspace/internal/modules/feed/dto"
	feedService "anoa.com/fandomspace/internal/modules/feed/service"
	"anoa.com/fandomspace/pkg/live"
	"anoa.com/fandomspace/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FeedHandler struct {
	service feedService.FeedService
}

func NewFeedHandler(service feedService.FeedService) *FeedHandler {
	return &FeedHandler{service: service}
}

func userAndParam(c *gin.Context, name string) (uuid.UUID, uuid.UUID, bool) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	id, err := response.ParamUUID(c, name)
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

func (h *FeedHandler) CreatePost(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	var req dto.CreatePostInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	post, err := h.service.CreatePost(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *FeedHandler) UpdatePost(c *gin.Context) {
	userID, postID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePostInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	post, err := h.service.UpdatePost(c.Request.Context(), userID, postID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *FeedHandler) DeletePost(c *gin.Context) {
	userID, postID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeletePost(c.Request.Context(), userID, postID); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}

func (h *FeedHandler) GetPost(c *gin.Context) {
	userID, postID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	post, err := h.service.GetPost(c.Request.Context(), userID, postID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *FeedHandler) AddComment(c *gin.Context) {
	userID, postID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	var req dto.AddCommentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	comment, err := h.service.AddComment(c.Request.Context(), postID, userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *FeedHandler) UpdateComment(c *gin.Context) {
	userID, commentID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCommentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	comment, err := h.service.UpdateComment(c.Request.Context(), userID, commentID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *FeedHandler) DeleteComment(c *gin.Context) {
	userID, commentID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteComment(c.Request.Context(), userID, commentID); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}

func (h *FeedHandler) GetComments(c *gin.Context) {
	userID, postID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	comments, err := h.service.GetComments(c.Request.Context(), userID, postID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": comments})
}

func (h *FeedHandler) ToggleLike(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	var req dto.ToggleLikeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	liked, err := h.service.ToggleLike(c.Request.Context(), userID, req.ReferenceID, req.ReferenceType)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToggleResponse{Active: liked})
}

func (h *FeedHandler) ToggleSave(c *gin.Context) {
	userID, postID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	saved, err := h.service.ToggleSave(c.Request.Context(), userID, postID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToggleResponse{Active: saved})
}

func (h *FeedHandler) CountPostLikes(c *gin.Context) {
	postID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	count, err := h.service.CountPostLikes(c.Request.Context(), postID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *FeedHandler) GetFeed(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	posts, err := h.service.GetFeedPosts(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": posts})
}

func (h *FeedHandler) GetSavedPosts(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	posts, err := h.service.GetSavedPosts(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": posts})
}

func (h *FeedHandler) GetFanThreads(c *gin.Context) {
	userID, artistID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	posts, err := h.service.GetFanThreads(c.Request.Context(), userID, artistID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": posts})
}

func (h *FeedHandler) GetOfficialPosts(c *gin.Context) {
	userID, artistID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	posts, err := h.service.GetOfficialPosts(c.Request.Context(), userID, artistID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": posts})
}

func (h *FeedHandler) LiveFeed(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[[]dto.PostView], error) {
		return h.service.ObserveFeedPosts(ctx, userID)
	})
}

func (h *FeedHandler) LiveSavedPosts(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[[]dto.PostView], error) {
		return h.service.ObserveSavedPosts(ctx, userID)
	})
}

func (h *FeedHandler) LiveFanThreads(c *gin.Context) {
	userID, artistID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[[]dto.PostView], error) {
		return h.service.ObserveFanThreads(ctx, userID, artistID)
	})
}

func (h *FeedHandler) LiveOfficialPosts(c *gin.Context) {
	userID, artistID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[[]dto.PostView], error) {
		return h.service.ObserveOfficialPosts(ctx, userID, artistID)
	})
}

func (h *FeedHandler) LivePost(c *gin.Context) {
	userID, postID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[*dto.PostView], error) {
		return h.service.ObservePost(ctx, userID, postID)
	})
}

func (h *FeedHandler) LiveComments(c *gin.Context) {
	userID, postID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[[]*dto.CommentNode], error) {
		return h.service.ObserveComments(ctx, userID, postID)
	})
}

func (h *FeedHandler) LivePostLikes(c *gin.Context) {
	postID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[int64], error) {
		return h.service.ObservePostLikes(ctx, postID)
	})
}
