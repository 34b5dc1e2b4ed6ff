package models

import "time"

// EducationLevel enumerates the supported study levels.
type EducationLevel string

const (
	LevelJC     EducationLevel = "JC"
	LevelOLevel EducationLevel = "O-Level"
	LevelALevel EducationLevel = "A-Level"
)

// ExamBoard enumerates the supported examination boards.
type ExamBoard string

const (
	BoardZIMSEC    ExamBoard = "ZIMSEC"
	BoardCambridge ExamBoard = "Cambridge"
)

// Subject is the root of the content hierarchy. Deactivated subjects are
// retained (soft delete); every active subject owns exactly three terms.
type Subject struct {
	ID               string         `db:"id" json:"id"`
	Name             string         `db:"name" json:"name"`
	Description      *string        `db:"description" json:"description,omitempty"`
	Level            EducationLevel `db:"level" json:"level"`
	ExamBoard        ExamBoard      `db:"exam_board" json:"exam_board"`
	SchoolID         *string        `db:"school_id" json:"school_id,omitempty"`
	Icon             string         `db:"icon" json:"icon"`
	IsActive         bool           `db:"is_active" json:"is_active"`
	EnrolledStudents int            `db:"enrolled_students" json:"enrolled_students"`
	ContentItems     int            `db:"content_items" json:"content_items"`
	CompletionRate   float64        `db:"completion_rate" json:"completion_rate"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// SubjectTeacher links a teacher contact to a subject.
type SubjectTeacher struct {
	ID            string    `db:"id" json:"id"`
	SubjectID     string    `db:"subject_id" json:"subject_id"`
	Name          string    `db:"name" json:"name"`
	Email         string    `db:"email" json:"email"`
	Phone         *string   `db:"phone" json:"phone,omitempty"`
	Qualification *string   `db:"qualification" json:"qualification,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Level     EducationLevel
	ExamBoard ExamBoard
	SchoolID  string
	Search    string
}
