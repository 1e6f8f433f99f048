package handler

import (
	"context"
	"net/http"

	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/internal/modules/user/dto"
	userService "anoa.com/fandomspace/internal/modules/user/service"
	"anoa.com/fandomspace/pkg/live"
	"anoa.com/fandomspace/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TokenIssuer interface {
	IssueToken(userID uuid.UUID) (string, int64, error)
}

type UserHandler struct {
	service userService.UserService
	tokens  TokenIssuer
}

func NewUserHandler(service userService.UserService, tokens TokenIssuer) *UserHandler {
	return &UserHandler{service: service, tokens: tokens}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	h.respondWithToken(c, http.StatusCreated, user)
}

func (h *UserHandler) Login(c *gin.Context) {
	var req dto.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	user, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	h.respondWithToken(c, http.StatusOK, user)
}

func (h *UserHandler) respondWithToken(c *gin.Context, status int, user *entity.User) {
	token, expiresIn, err := h.tokens.IssueToken(user.ID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(status, dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		User:        user,
	})
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetByUsername(c *gin.Context) {
	user, err := h.service.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile accepts multipart form fields with an optional "avatar" file.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.UpdateProfileInput
	if v, ok := c.GetPostForm("display_name"); ok {
		req.DisplayName = &v
	}
	if v, ok := c.GetPostForm("bio"); ok {
		req.Bio = &v
	}
	if v, ok := c.GetPostForm("password"); ok && v != "" {
		req.Password = &v
	}

	var avatar *dto.AvatarFile
	if fileHeader, err := c.FormFile("avatar"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			response.ResponseError(c, err)
			return
		}
		defer file.Close()
		avatar = &dto.AvatarFile{Reader: file, FileName: fileHeader.Filename}
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), userID, req, avatar)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateFandomSettings(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.FandomSettingsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	user, err := h.service.UpdateFandomSettings(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) RevertToFan(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	user, err := h.service.RevertToFan(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) ApproveArtist(c *gin.Context) {
	adminID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	targetID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	user, err := h.service.ApproveArtist(c.Request.Context(), adminID, targetID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) ListArtists(c *gin.Context) {
	artists, err := h.service.ListArtists(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": artists})
}

func (h *UserHandler) LiveMe(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[*entity.User], error) {
		return h.service.ObserveUser(ctx, userID)
	})
}

func (h *UserHandler) LiveArtists(c *gin.Context) {
	response.Live(c, h.service.ObserveArtists)
}
