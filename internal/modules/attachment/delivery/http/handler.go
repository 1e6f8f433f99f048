package handler

import (
	"fmt"
	"net/http"

	attachment "anoa.com/fandomspace/internal/modules/attachment/service"
	"anoa.com/fandomspace/pkg/apperror"
	"anoa.com/fandomspace/pkg/response"
	"github.com/gin-gonic/gin"
)

type AttachmentHandler struct {
	service attachment.AttachmentService
}

func NewAttachmentHandler(service attachment.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{service: service}
}

func (h *AttachmentHandler) UploadAttachment(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.ResponseError(c, fmt.Errorf("file is required: %w", apperror.ErrInvalidInput))
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	defer file.Close()

	resp, err := h.service.UploadImage(c.Request.Context(), userID, file, fileHeader.Filename, fileHeader.Size)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}
