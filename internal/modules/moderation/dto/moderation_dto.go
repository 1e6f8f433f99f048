package dto

import "github.com/google/uuid"

type ReportInput struct {
	Type        string    `json:"type" binding:"required" validate:"oneof=POST COMMENT PRODUCT USER FANDOM"`
	ReferenceID uuid.UUID `json:"reference_id" binding:"required"`
	Reason      string    `json:"reason" binding:"required" validate:"required,max=100"`
	Description string    `json:"description" validate:"max=2000"`
}

type ReportResponse struct {
	Submitted bool   `json:"submitted"`
	Message   string `json:"message"`
}

type WarnInput struct {
	Reason string `json:"reason" binding:"required" validate:"required,max=2000"`
}

type SuspendInput struct {
	// DurationHours is ignored when Permanent is set.
	DurationHours int    `json:"duration_hours" validate:"gte=0"`
	Permanent     bool   `json:"permanent"`
	Reason        string `json:"reason" validate:"max=2000"`
}

type ResolveReportInput struct {
	Status string `json:"status" binding:"required" validate:"oneof=RESOLVED DISMISSED"`
}
