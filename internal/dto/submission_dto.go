package dto

import (
	"time"

	"github.com/noah-isme/gradia-go-api/internal/models"
)

// SubmissionQueueRequest filters the grading queue listing.
type SubmissionQueueRequest struct {
	AssignmentID *uint   `query:"assignment_id"`
	Status       *string `query:"status" validate:"omitempty,oneof=submitted grading graded returned"`
}

// SubmissionQueueItem summarizes a submission in the teacher's grading queue.
type SubmissionQueueItem struct {
	ID              uint       `json:"id"`
	AssignmentID    uint       `json:"assignment_id"`
	AssignmentTitle string     `json:"assignment_title"`
	StudentID       uint       `json:"student_id"`
	StudentName     string     `json:"student_name"`
	Status          string     `json:"status"`
	TotalScore      *float64   `json:"total_score"`
	MaxScore        *float64   `json:"max_score"`
	LetterGrade     *string    `json:"letter_grade"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	GradedAt        *time.Time `json:"graded_at"`
}

// NewSubmissionQueueItem maps a submission row with preloaded relations.
func NewSubmissionQueueItem(submission models.Submission) SubmissionQueueItem {
	return SubmissionQueueItem{
		ID:              submission.ID,
		AssignmentID:    submission.AssignmentID,
		AssignmentTitle: submission.Assignment.Title,
		StudentID:       submission.StudentID,
		StudentName:     submission.Student.Name,
		Status:          submission.Status,
		TotalScore:      submission.TotalScore,
		MaxScore:        submission.MaxScore,
		LetterGrade:     submission.LetterGrade,
		SubmittedAt:     submission.SubmittedAt,
		GradedAt:        submission.GradedAt,
	}
}

// FeedbackDraftResponse serializes the live feedback draft for a submission.
type FeedbackDraftResponse struct {
	ID           uint                   `json:"id"`
	SubmissionID uint                   `json:"submission_id"`
	TeacherID    uint                   `json:"teacher_id"`
	AIFeedback   string                 `json:"ai_feedback"`
	Strengths    []string               `json:"strengths"`
	Improvements []string               `json:"improvements"`
	NextSteps    []string               `json:"next_steps"`
	AIMetadata   map[string]interface{} `json:"ai_metadata"`
	Status       string                 `json:"status"`
	CreatedAt    time.Time              `json:"created_at"`
}

// NewFeedbackDraftResponse maps a feedback draft row.
func NewFeedbackDraftResponse(draft models.FeedbackDraft) FeedbackDraftResponse {
	return FeedbackDraftResponse{
		ID:           draft.ID,
		SubmissionID: draft.SubmissionID,
		TeacherID:    draft.TeacherID,
		AIFeedback:   draft.AIFeedback,
		Strengths:    draft.Strengths,
		Improvements: draft.Improvements,
		NextSteps:    draft.NextSteps,
		AIMetadata:   draft.AIMetadata,
		Status:       draft.Status,
		CreatedAt:    draft.CreatedAt,
	}
}
