package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"anoa.com/fandomspace/internal/modules/attachment/dto"
	"anoa.com/fandomspace/internal/modules/policy"
	"anoa.com/fandomspace/pkg/apperror"
	"anoa.com/fandomspace/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const MaxImageSize = 5 << 20

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// AttachmentService uploads images that posts and products later reference
// by URL.
type AttachmentService interface {
	UploadImage(ctx context.Context, userID uuid.UUID, r io.Reader, fileName string, size int64) (*dto.UploadAttachmentResponse, error)
}

type attachmentService struct {
	db          *gorm.DB
	fileStorage storage.ImageStorage
	policy      *policy.Policy
}

func NewAttachmentService(db *gorm.DB, fileStorage storage.ImageStorage, clock func() time.Time) AttachmentService {
	return &attachmentService{
		db:          db,
		fileStorage: fileStorage,
		policy:      policy.New(clock),
	}
}

func (s *attachmentService) UploadImage(ctx context.Context, userID uuid.UUID, r io.Reader, fileName string, size int64) (*dto.UploadAttachmentResponse, error) {
	if _, err := s.policy.Actor(ctx, s.db, userID); err != nil {
		return nil, err
	}

	fileType, ok := imageTypes[strings.ToLower(filepath.Ext(fileName))]
	if !ok {
		return nil, fmt.Errorf("only jpg, png, gif and webp images are accepted: %w", apperror.ErrInvalidInput)
	}
	if size > MaxImageSize {
		return nil, fmt.Errorf("image exceeds %d MB: %w", MaxImageSize>>20, apperror.ErrInvalidInput)
	}
	if s.fileStorage == nil {
		return nil, fmt.Errorf("image storage is not configured: %w", apperror.ErrInternal)
	}

	url, err := s.fileStorage.UploadImage(ctx, r, fileName)
	if err != nil {
		return nil, err
	}

	return &dto.UploadAttachmentResponse{
		FileURL:  url,
		FileType: fileType,
	}, nil
}
