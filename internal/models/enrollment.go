package models

import "time"

// Enrollment links a user profile to a subject.
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}
