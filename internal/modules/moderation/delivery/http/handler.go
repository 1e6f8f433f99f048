package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/internal/modules/moderation/dto"
	moderationService "anoa.com/fandomspace/internal/modules/moderation/service"
	"anoa.com/fandomspace/pkg/apperror"
	"anoa.com/fandomspace/pkg/live"
	"anoa.com/fandomspace/pkg/response"
	"anoa.com/fandomspace/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ModerationHandler struct {
	service moderationService.ModerationService
}

func NewModerationHandler(service moderationService.ModerationService) *ModerationHandler {
	return &ModerationHandler{service: service}
}

func adminAndTarget(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	adminID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	targetID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return adminID, targetID, true
}

func (h *ModerationHandler) Report(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	var req dto.ReportInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	submitted, err := h.service.ReportUser(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	resp := dto.ReportResponse{Submitted: submitted, Message: "report submitted"}
	if !submitted {
		resp.Message = "you already reported this"
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ModerationHandler) GetMyWarnings(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	warnings, err := h.service.GetWarnings(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": warnings})
}

func (h *ModerationHandler) LiveMyWarnings(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[[]entity.Warning], error) {
		return h.service.ObserveWarnings(ctx, userID)
	})
}

// Admin

func (h *ModerationHandler) GetReports(c *gin.Context) {
	adminID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	reports, err := h.service.GetReports(c.Request.Context(), adminID, c.Query("status"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reports})
}

func (h *ModerationHandler) LiveReports(c *gin.Context) {
	adminID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	status := c.Query("status")
	response.Live(c, func(ctx context.Context) (*live.Subscription[[]entity.Report], error) {
		return h.service.ObserveReports(ctx, adminID, status)
	})
}

func (h *ModerationHandler) ResolveReport(c *gin.Context) {
	adminID, reportID, ok := adminAndTarget(c)
	if !ok {
		return
	}
	var req dto.ResolveReportInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	report, err := h.service.ResolveReport(c.Request.Context(), adminID, reportID, req.Status)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ModerationHandler) WarnUser(c *gin.Context) {
	adminID, userID, ok := adminAndTarget(c)
	if !ok {
		return
	}
	var req dto.WarnInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	warning, err := h.service.WarnUserDirect(c.Request.Context(), adminID, userID, req.Reason)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, warning)
}

func (h *ModerationHandler) GetUserWarnings(c *gin.Context) {
	targetID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	warnings, err := h.service.GetWarnings(c.Request.Context(), targetID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": warnings})
}

func (h *ModerationHandler) SuspendUser(c *gin.Context) {
	adminID, userID, ok := adminAndTarget(c)
	if !ok {
		return
	}
	var req dto.SuspendInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if err := validator.Struct(req); err != nil {
		response.ResponseError(c, err)
		return
	}

	var (
		user *entity.User
		err  error
	)
	switch {
	case req.Permanent:
		user, err = h.service.SuspendUserPermanently(c.Request.Context(), adminID, userID, req.Reason)
	case req.DurationHours > 0:
		duration := time.Duration(req.DurationHours) * time.Hour
		user, err = h.service.SuspendUserDirect(c.Request.Context(), adminID, userID, duration, req.Reason)
	default:
		err = fmt.Errorf("set duration_hours or permanent: %w", apperror.ErrInvalidInput)
	}
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *ModerationHandler) UnsuspendUser(c *gin.Context) {
	adminID, userID, ok := adminAndTarget(c)
	if !ok {
		return
	}
	user, err := h.service.UnsuspendUser(c.Request.Context(), adminID, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *ModerationHandler) DeleteUser(c *gin.Context) {
	adminID, userID, ok := adminAndTarget(c)
	if !ok {
		return
	}
	if err := h.service.DeleteUserDirect(c.Request.Context(), adminID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}
