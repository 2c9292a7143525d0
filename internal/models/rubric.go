package models

import "time"

// Rubric defines the scoring framework applied when grading submissions.
// Levels is a JSON-encoded array of performance level names ordered from
// lowest to highest, e.g. ["Beginning","Developing","Proficient","Advanced"].
type Rubric struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Title       string            `gorm:"size:255;not null" json:"title"`
	Description string            `gorm:"type:text" json:"description"`
	Levels      string            `gorm:"type:text;not null" json:"levels"`
	TeacherID   uint              `gorm:"not null;index" json:"teacher_id"`
	IsTemplate  bool              `gorm:"not null;default:false" json:"is_template"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Criteria    []RubricCriterion `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"criteria"`
}

// RubricCriterion is a single weighted dimension of a rubric. Descriptors is
// a JSON-encoded object mapping a level name to its descriptive text; its
// keys are a subset of the parent rubric's levels.
type RubricCriterion struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	RubricID    uint    `gorm:"not null;index" json:"rubric_id"`
	Name        string  `gorm:"size:255;not null" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	Weight      float64 `gorm:"not null;default:1" json:"weight"`
	Descriptors string  `gorm:"type:text;not null" json:"descriptors"`
}
