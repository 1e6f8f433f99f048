package dto

import (
	"anoa.com/fandomspace/internal/entity"
	"github.com/google/uuid"
)

type CreatePostInput struct {
	ArtistID uuid.UUID `json:"artist_id" binding:"required"`
	Content  string    `json:"content" validate:"max=5000"`
	Images   []string  `json:"images" validate:"max=10,dive,url"`
	IsThread bool      `json:"is_thread"`
}

type UpdatePostInput struct {
	Content *string   `json:"content" validate:"omitempty,max=5000"`
	Images  *[]string `json:"images" validate:"omitempty,max=10,dive,url"`
}

type AddCommentInput struct {
	Content  string     `json:"content" binding:"required" validate:"required,max=2000"`
	ParentID *uuid.UUID `json:"parent_id"`
}

type UpdateCommentInput struct {
	Content string `json:"content" binding:"required" validate:"required,max=2000"`
}

type ToggleLikeInput struct {
	ReferenceID   uuid.UUID `json:"reference_id" binding:"required"`
	ReferenceType string    `json:"reference_type" binding:"required,oneof=post comment" validate:"oneof=post comment"`
}

type ToggleResponse struct {
	Active bool `json:"active"`
}

// PostView is a post with its derived counters and the viewer's own flags.
type PostView struct {
	entity.Post
	LikeCount    int64 `json:"like_count"`
	CommentCount int64 `json:"comment_count"`
	IsLiked      bool  `json:"is_liked"`
	IsSaved      bool  `json:"is_saved"`
	IsOfficial   bool  `json:"is_official"`
}

// CommentNode is one comment with its replies, to any depth.
type CommentNode struct {
	entity.Comment
	IsLiked bool           `json:"is_liked"`
	Replies []*CommentNode `json:"replies"`
}
