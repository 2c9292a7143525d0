package models

import "time"

// Assignment represents a piece of work set by a teacher.
type Assignment struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Title        string       `gorm:"size:255;not null" json:"title"`
	Description  string       `gorm:"type:text;not null" json:"description"`
	Instructions string       `gorm:"type:text" json:"instructions"`
	Subject      string       `gorm:"size:128;not null" json:"subject"`
	GradeLevel   string       `gorm:"size:64;not null" json:"grade_level"`
	Status       string       `gorm:"size:32;not null;default:draft" json:"status"`
	DueDate      *time.Time   `json:"due_date"`
	TeacherID    uint         `gorm:"not null;index" json:"teacher_id"`
	RubricID     *uint        `gorm:"index" json:"rubric_id"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Submissions  []Submission `json:"submissions,omitempty"`
}

// HasRubric reports whether the assignment can be AI graded.
func (a Assignment) HasRubric() bool {
	return a.RubricID != nil && *a.RubricID > 0
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return a.DueDate != nil && reference.After(*a.DueDate)
}
