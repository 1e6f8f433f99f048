package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReportPost    = "POST"
	ReportComment = "COMMENT"
	ReportProduct = "PRODUCT"
	ReportUser    = "USER"
	ReportFandom  = "FANDOM"
)

const (
	ReportStatusPending   = "PENDING"
	ReportStatusResolved  = "RESOLVED"
	ReportStatusDismissed = "DISMISSED"
)

type Report struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ReporterID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_reports_unique,priority:1" json:"reporter_id"`
	ReportedID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"reported_id"`
	Type            string     `gorm:"size:10;not null;uniqueIndex:idx_reports_unique,priority:2" json:"type"`
	ReferenceID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_reports_unique,priority:3" json:"reference_id"`
	Reason          string     `gorm:"size:100;not null" json:"reason"`
	Description     string     `gorm:"type:text" json:"description"`
	ContentSnapshot string     `gorm:"type:text" json:"content_snapshot"`
	Status          string     `gorm:"size:10;not null;index" json:"status"`
	ResolvedBy      *uuid.UUID `gorm:"type:uuid" json:"resolved_by,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *Report) TableName() string {
	return TableReports
}

func (r *Report) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}

type Warning struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	AdminID   uuid.UUID `gorm:"type:uuid;not null" json:"admin_id"`
	Reason    string    `gorm:"type:text;not null" json:"reason"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (w *Warning) TableName() string {
	return TableWarnings
}

func (w *Warning) BeforeCreate(tx *gorm.DB) (err error) {
	if w.ID == uuid.Nil {
		w.ID, err = uuid.NewV7()
	}
	return
}
