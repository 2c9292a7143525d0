package models

import "time"

// Submission represents a student's single piece of work for one assignment.
type Submission struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AssignmentID uint       `gorm:"not null;index" json:"assignment_id"`
	StudentID    uint       `gorm:"not null;index" json:"student_id"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	Status       string     `gorm:"size:32;not null;default:submitted" json:"status"`
	TotalScore   *float64   `json:"total_score"`
	MaxScore     *float64   `json:"max_score"`
	LetterGrade  *string    `gorm:"size:8" json:"letter_grade"`
	SubmittedAt  time.Time  `gorm:"not null" json:"submitted_at"`
	GradedAt     *time.Time `json:"graded_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Assignment   Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	Student      User       `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

const (
	// SubmissionStatusSubmitted indicates work uploaded and awaiting grading.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusGrading indicates an AI grading call is in flight.
	SubmissionStatusGrading = "grading"
	// SubmissionStatusGraded indicates a grading result has been persisted.
	SubmissionStatusGraded = "graded"
	// SubmissionStatusReturned indicates feedback has been released to the student.
	SubmissionStatusReturned = "returned"
)

// IsGraded reports whether the submission carries a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded || s.Status == SubmissionStatusReturned
}
