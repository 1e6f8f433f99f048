package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	LikeTargetPost    = "post"
	LikeTargetComment = "comment"
)

type Post struct {
	ID        uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID  uuid.UUID                   `gorm:"type:uuid;not null;index" json:"author_id"`
	Author    User                        `gorm:"foreignKey:AuthorID" json:"author"`
	ArtistID  uuid.UUID                   `gorm:"type:uuid;not null;index" json:"artist_id"` // fandom space the post lives in
	Content   string                      `gorm:"type:text;not null" json:"content"`
	Images    datatypes.JSONSlice[string] `json:"images"`
	IsThread  bool                        `gorm:"not null;index" json:"is_thread"`
	IsEdited  bool                        `gorm:"not null" json:"is_edited"`
	CreatedAt time.Time                   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Post) TableName() string {
	return TablePosts
}

func (p *Post) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID, err = uuid.NewV7()
	}
	return
}

type Comment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PostID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"post_id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User       `gorm:"foreignKey:UserID" json:"user"`
	ParentID  *uuid.UUID `gorm:"type:uuid;index" json:"parent_id"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	LikeCount int64      `gorm:"not null" json:"like_count"` // cache of likes rows, kept in the same transaction
	IsEdited  bool       `gorm:"not null" json:"is_edited"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Comment) TableName() string {
	return TableComments
}

func (c *Comment) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}

type Like struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_likes_unique,priority:1" json:"user_id"`
	ReferenceID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_likes_unique,priority:2;index:idx_likes_lookup,priority:1" json:"reference_id"`
	ReferenceType string    `gorm:"size:20;not null;uniqueIndex:idx_likes_unique,priority:3;index:idx_likes_lookup,priority:2" json:"reference_type"` // 'post', 'comment'
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (l *Like) TableName() string {
	return TableLikes
}

func (l *Like) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID, err = uuid.NewV7()
	}
	return
}

type SavedPost struct {
	PostID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"post_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (s *SavedPost) TableName() string {
	return TableSavedPosts
}
