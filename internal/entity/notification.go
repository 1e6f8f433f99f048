package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotifyFollow       = "follow"
	NotifyLike         = "like"
	NotifyComment      = "comment"
	NotifyReply        = "reply"
	NotifyThread       = "thread"
	NotifyOrderStatus  = "order_status"
	NotifyWarning      = "warning"
	NotifySuspension   = "suspension"
	NotifyRoleApproved = "role_approved"
)

type Notification struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"` // receiver
	ActorID    uuid.UUID `gorm:"type:uuid;not null" json:"actor_id"`      // who triggered it
	EntityID   uuid.UUID `gorm:"type:uuid" json:"entity_id"`              // post, comment, order, ...
	EntityType string    `gorm:"size:20;not null" json:"entity_type"`     // 'post', 'comment', 'order', 'user'
	Type       string    `gorm:"size:20;not null" json:"type"`
	Message    string    `gorm:"type:text" json:"message"`
	IsRead     bool      `gorm:"not null" json:"is_read"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`

	Actor *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

func (n *Notification) TableName() string {
	return TableNotifications
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID, err = uuid.NewV7()
	}
	return
}
