package dto

import (
	"time"

	"github.com/noah-isme/gradia-go-api/internal/models"
)

// AuditLogListRequest filters audit trail queries.
type AuditLogListRequest struct {
	EntityType string `query:"entity_type"`
	EntityID   *uint  `query:"entity_id"`
	Action     string `query:"action"`
	Page       int    `query:"page" validate:"omitempty,gte=1"`
	PageSize   int    `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// AuditLogResponse serializes one immutable audit entry.
type AuditLogResponse struct {
	ID         uint                   `json:"id"`
	EntityType string                 `json:"entity_type"`
	EntityID   uint                   `json:"entity_id"`
	Action     string                 `json:"action"`
	UserID     *uint                  `json:"user_id"`
	Before     map[string]interface{} `json:"before,omitempty"`
	After      map[string]interface{} `json:"after,omitempty"`
	AIModel    string                 `json:"ai_model,omitempty"`
	AIPrompt   string                 `json:"ai_prompt,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// NewAuditLogResponse maps an audit log row.
func NewAuditLogResponse(entry models.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:         entry.ID,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
		UserID:     entry.UserID,
		Before:     entry.Before,
		After:      entry.After,
		AIModel:    entry.AIModel,
		AIPrompt:   entry.AIPrompt,
		CreatedAt:  entry.CreatedAt,
	}
}

// AuditLogListResponse wraps a page of audit entries.
type AuditLogListResponse struct {
	Items      []AuditLogResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// PaginationMeta describes the page window of a list response.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}
