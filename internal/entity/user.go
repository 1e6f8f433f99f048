package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleFan    = "FAN"
	RoleArtist = "ARTIST"
	RoleAdmin  = "ADMIN"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	DisplayName  string    `gorm:"size:100" json:"display_name"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:10;not null;index" json:"role"`
	AvatarURL    *string   `gorm:"type:text" json:"avatar_url,omitempty"`
	Bio          *string   `gorm:"type:text" json:"bio,omitempty"`

	IsSuspended         bool   `gorm:"not null" json:"is_suspended"`
	SuspendedUntil      int64  `gorm:"not null;index" json:"suspended_until"` // epoch ms, 0 when not suspended
	SuspensionPermanent bool   `gorm:"not null" json:"suspension_permanent"`
	SuspensionReason    string `gorm:"type:text" json:"suspension_reason,omitempty"`

	// Fandom space settings, only meaningful for artists.
	IsFandomActive       bool `gorm:"not null" json:"is_fandom_active"`
	IsInteractionEnabled bool `gorm:"not null" json:"is_interaction_enabled"`
	IsDmActive           bool `gorm:"not null" json:"is_dm_active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) TableName() string {
	return TableUsers
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID, err = uuid.NewV7()
	}
	return
}

func (u *User) IsAdmin() bool  { return u.Role == RoleAdmin }
func (u *User) IsArtist() bool { return u.Role == RoleArtist }

// SuspensionActive reports whether the suspension still applies at nowMs.
// The stored flag stays set until the sweep clears it; this is the derived view.
func (u *User) SuspensionActive(nowMs int64) bool {
	if !u.IsSuspended {
		return false
	}
	return u.SuspensionPermanent || nowMs <= u.SuspendedUntil
}
