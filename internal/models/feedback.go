package models

import (
	"time"

	"gorm.io/datatypes"
)

// FeedbackDraft holds the teacher-facing narrative feedback derived from an
// AI grading judgment. At most one live draft exists per submission; a
// re-grade fully replaces it.
type FeedbackDraft struct {
	ID           uint                        `gorm:"primaryKey" json:"id"`
	SubmissionID uint                        `gorm:"not null;uniqueIndex" json:"submission_id"`
	TeacherID    uint                        `gorm:"not null" json:"teacher_id"`
	AIFeedback   string                      `gorm:"type:text;not null" json:"ai_feedback"`
	TeacherEdits string                      `gorm:"type:text" json:"teacher_edits"`
	Strengths    datatypes.JSONSlice[string] `json:"strengths"`
	Improvements datatypes.JSONSlice[string] `json:"improvements"`
	NextSteps    datatypes.JSONSlice[string] `json:"next_steps"`
	AIMetadata   datatypes.JSONMap           `gorm:"type:json" json:"ai_metadata"`
	Status       string                      `gorm:"size:32;not null;default:draft" json:"status"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

const (
	// FeedbackStatusDraft marks feedback not yet released to the student.
	FeedbackStatusDraft = "draft"
	// FeedbackStatusSent marks feedback returned to the student.
	FeedbackStatusSent = "sent"
)

// CriterionScore records the level and score a submission earned on one
// rubric criterion. A submission has at most one score per criterion.
type CriterionScore struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	SubmissionID  uint    `gorm:"not null;uniqueIndex:idx_submission_criterion" json:"submission_id"`
	CriterionID   uint    `gorm:"not null;uniqueIndex:idx_submission_criterion" json:"criterion_id"`
	Level         string  `gorm:"size:128;not null" json:"level"`
	Score         float64 `gorm:"not null" json:"score"`
	MaxScore      float64 `gorm:"not null" json:"max_score"`
	Justification string  `gorm:"type:text" json:"justification"`
}
