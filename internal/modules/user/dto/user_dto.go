package dto

import (
	"io"

	"anoa.com/fandomspace/internal/entity"
)

// AvatarFile is an uploaded avatar image.
type AvatarFile struct {
	Reader   io.Reader
	FileName string
}

type RegisterInput struct {
	Username    string `json:"username" binding:"required" validate:"required,min=3,max=50"`
	Password    string `json:"password" binding:"required" validate:"required,min=6,max=72"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileInput struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=100"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
	Password    *string `json:"password" validate:"omitempty,min=6,max=72"`
}

type FandomSettingsInput struct {
	IsFandomActive       *bool `json:"is_fandom_active"`
	IsInteractionEnabled *bool `json:"is_interaction_enabled"`
	IsDmActive           *bool `json:"is_dm_active"`
}

type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        *entity.User `json:"user"`
}
