package dto

import "time"

// GradeSubmissionRequest triggers AI grading for a single submission. Either
// an existing submission id is given, or an assignment/student/content triple
// to create and grade in one call.
type GradeSubmissionRequest struct {
	SubmissionID    *uint  `json:"submission_id" validate:"omitempty,gt=0"`
	AssignmentID    *uint  `json:"assignment_id" validate:"omitempty,gt=0"`
	StudentID       *uint  `json:"student_id" validate:"omitempty,gt=0"`
	Content         string `json:"content"`
	FeedbackTone    string `json:"feedback_tone" validate:"omitempty,oneof=encouraging direct socratic growth_mindset"`
	TeacherGuidance string `json:"teacher_guidance"`
}

// CriterionScoreResponse serializes one persisted criterion score.
type CriterionScoreResponse struct {
	CriterionID   uint    `json:"criterion_id"`
	Level         string  `json:"level"`
	Score         float64 `json:"score"`
	MaxScore      float64 `json:"max_score"`
	Justification string  `json:"justification"`
}

// GradeSubmissionResponse is returned once a grading result has been persisted.
type GradeSubmissionResponse struct {
	SubmissionID    uint                     `json:"submission_id"`
	Status          string                   `json:"status"`
	TotalScore      float64                  `json:"total_score"`
	MaxScore        float64                  `json:"max_score"`
	LetterGrade     string                   `json:"letter_grade"`
	Feedback        string                   `json:"feedback"`
	CriterionScores []CriterionScoreResponse `json:"criterion_scores"`
	Strengths       []string                 `json:"strengths"`
	Improvements    []string                 `json:"improvements"`
	NextSteps       []string                 `json:"next_steps"`
	GradedAt        time.Time                `json:"graded_at"`
}

// BatchGradeRequest grades every ungraded submission for one assignment.
type BatchGradeRequest struct {
	AssignmentID    uint   `json:"assignment_id" validate:"required,gt=0"`
	FeedbackTone    string `json:"feedback_tone" validate:"omitempty,oneof=encouraging direct socratic growth_mindset"`
	TeacherGuidance string `json:"teacher_guidance"`
}

// BatchGradeError reports why a single submission could not be graded.
type BatchGradeError struct {
	SubmissionID uint   `json:"submission_id"`
	Reason       string `json:"reason"`
}

// BatchGradeResponse summarizes a batch run. Failed submissions never abort
// the batch; they are reported here instead.
type BatchGradeResponse struct {
	Total      int               `json:"total"`
	Graded     int               `json:"graded"`
	Failed     int               `json:"failed"`
	BatchRunID string            `json:"batch_run_id,omitempty"`
	Errors     []BatchGradeError `json:"errors"`
}
