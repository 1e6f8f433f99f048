package handler

import (
	"context"
	"net/http"
	"strconv"

	"anoa.com/fandomspace/internal/modules/stat/dto"
	statService "anoa.com/fandomspace/internal/modules/stat/service"
	"anoa.com/fandomspace/pkg/live"
	"anoa.com/fandomspace/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultDays = 30

type StatHandler struct {
	statService statService.StatService
}

func NewStatHandler(statService statService.StatService) *StatHandler {
	return &StatHandler{statService: statService}
}

func dashboardParams(c *gin.Context) (uuid.UUID, uuid.UUID, int, bool) {
	viewerID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, 0, false
	}
	artistID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, 0, false
	}
	days := defaultDays
	if v := c.Query("days"); v != "" {
		if d, err := strconv.Atoi(v); err == nil {
			days = d
		}
	}
	return viewerID, artistID, days, true
}

func (h *StatHandler) GetDashboard(c *gin.Context) {
	viewerID, artistID, days, ok := dashboardParams(c)
	if !ok {
		return
	}
	dashboard, err := h.statService.GetArtistDashboard(c.Request.Context(), viewerID, artistID, days)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (h *StatHandler) LiveDashboard(c *gin.Context) {
	viewerID, artistID, days, ok := dashboardParams(c)
	if !ok {
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[*dto.Dashboard], error) {
		return h.statService.ObserveDashboard(ctx, viewerID, artistID, days)
	})
}

func (h *StatHandler) GetSummary(c *gin.Context) {
	adminID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	summary, err := h.statService.GetPlatformSummary(c.Request.Context(), adminID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
