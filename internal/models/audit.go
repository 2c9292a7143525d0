package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog is an immutable record of an AI-driven mutation. Entries are
// append-only; the grading pipeline never updates or deletes them.
type AuditLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   uint              `gorm:"not null;index" json:"entity_id"`
	Action     string            `gorm:"size:64;not null" json:"action"`
	UserID     *uint             `json:"user_id"`
	Before     datatypes.JSONMap `gorm:"type:json" json:"before"`
	After      datatypes.JSONMap `gorm:"type:json" json:"after"`
	AIModel    string            `gorm:"size:128" json:"ai_model"`
	AIPrompt   string            `gorm:"size:128" json:"ai_prompt"`
	CreatedAt  time.Time         `json:"created_at"`
}
