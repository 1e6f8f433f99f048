package entity

import (
	"time"

	"github.com/google/uuid"
)

type Follow struct {
	FollowerID uuid.UUID `gorm:"type:uuid;primaryKey" json:"follower_id"`
	FolloweeID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"followee_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (f *Follow) TableName() string {
	return TableFollows
}

// Block is directional: BlockerID hides their content from BlockedID.
type Block struct {
	BlockerID uuid.UUID `gorm:"type:uuid;primaryKey" json:"blocker_id"`
	BlockedID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"blocked_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (b *Block) TableName() string {
	return TableBlocks
}
