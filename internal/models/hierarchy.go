package models

import "time"

// Subject structure constants: every subject gets three terms of thirteen
// weeks at creation time.
const (
	TermsPerSubject = 3
	WeeksPerTerm    = 13
)

// Term is an academic term within a subject. Order numbers are dense,
// 1-based and unique per subject.
type Term struct {
	ID          string    `db:"id" json:"id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	Title       string    `db:"title" json:"title"`
	OrderNumber int       `db:"order_number" json:"order_number"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Week is a teaching week within a term.
type Week struct {
	ID          string    `db:"id" json:"id"`
	TermID      string    `db:"term_id" json:"term_id"`
	Title       string    `db:"title" json:"title"`
	OrderNumber int       `db:"order_number" json:"order_number"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Chapter groups content inside a week. A continuation chapter copies the
// title and description of an earlier chapter into the following week and
// keeps a back-reference to it.
type Chapter struct {
	ID                string    `db:"id" json:"id"`
	WeekID            string    `db:"week_id" json:"week_id"`
	Title             string    `db:"title" json:"title"`
	Description       *string   `db:"description" json:"description,omitempty"`
	OrderNumber       int       `db:"order_number" json:"order_number"`
	IsContinuation    bool      `db:"is_continuation" json:"is_continuation"`
	OriginalChapterID *string   `db:"original_chapter_id" json:"original_chapter_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
