package handler

import (
	"context"
	"net/http"

	"anoa.com/fandomspace/internal/entity"
	socialService "anoa.com/fandomspace/internal/modules/social/service"
	"anoa.com/fandomspace/pkg/live"
	"anoa.com/fandomspace/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SocialHandler struct {
	service socialService.SocialService
}

func NewSocialHandler(service socialService.SocialService) *SocialHandler {
	return &SocialHandler{service: service}
}

// actorAndTarget reads the caller and the :id path parameter.
func actorAndTarget(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	targetID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, targetID, true
}

func (h *SocialHandler) ToggleFollow(c *gin.Context) {
	userID, targetID, ok := actorAndTarget(c)
	if !ok {
		return
	}
	following, err := h.service.ToggleFollow(c.Request.Context(), userID, targetID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}

func (h *SocialHandler) ToggleBlock(c *gin.Context) {
	userID, targetID, ok := actorAndTarget(c)
	if !ok {
		return
	}
	blocked, err := h.service.ToggleBlock(c.Request.Context(), userID, targetID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocked": blocked})
}

func (h *SocialHandler) Relationship(c *gin.Context) {
	userID, targetID, ok := actorAndTarget(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	following, err := h.service.IsFollowing(ctx, userID, targetID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	blocked, err := h.service.IsBlocked(ctx, userID, targetID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	followers, err := h.service.CountFollowers(ctx, targetID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following, "blocked": blocked, "followers": followers})
}

func (h *SocialHandler) GetFollowers(c *gin.Context) {
	targetID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	users, err := h.service.GetFollowers(c.Request.Context(), targetID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (h *SocialHandler) GetFollowedArtists(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	users, err := h.service.GetFollowedArtists(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (h *SocialHandler) GetBlockedUsers(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	users, err := h.service.GetBlockedUsers(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (h *SocialHandler) LiveFollowedArtists(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[[]entity.User], error) {
		return h.service.ObserveFollowedArtists(ctx, userID)
	})
}

func (h *SocialHandler) LiveFollowers(c *gin.Context) {
	targetID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[[]entity.User], error) {
		return h.service.ObserveFollowers(ctx, targetID)
	})
}

func (h *SocialHandler) LiveIsFollowing(c *gin.Context) {
	userID, targetID, ok := actorAndTarget(c)
	if !ok {
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[bool], error) {
		return h.service.ObserveIsFollowing(ctx, userID, targetID)
	})
}

func (h *SocialHandler) LiveBlockedUsers(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[[]entity.User], error) {
		return h.service.ObserveBlockedUsers(ctx, userID)
	})
}
