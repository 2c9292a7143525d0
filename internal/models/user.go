package models

import "time"

// User represents an account that can author assignments or submit work.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:32;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	// RoleTeacher marks accounts allowed to own assignments and grade work.
	RoleTeacher = "teacher"
	// RoleStudent marks learner accounts.
	RoleStudent = "student"
	// RoleAdmin marks platform administrators.
	RoleAdmin = "admin"
)
