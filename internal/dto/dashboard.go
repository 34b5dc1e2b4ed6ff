package dto

import (
	"time"

	"github.com/zimlearn/console-api/internal/models"
)

// DashboardSummary aggregates counts shown on the console landing page.
type DashboardSummary struct {
	TotalSubjects   int                `json:"total_subjects"`
	TotalContent    int                `json:"total_content"`
	TotalQuizzes    int                `json:"total_quizzes"`
	ContentByKind   map[string]int     `json:"content_by_kind"`
	ContentByStatus map[string]int     `json:"content_by_status"`
	SubjectsByLevel map[string]int     `json:"subjects_by_level"`
	RecentContent   []FlatContentRow   `json:"recent_content"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

// FlatContentRow is one row of the flattened content dashboard: a content
// item with its position in the hierarchy spelled out.
type FlatContentRow struct {
	ContentID    string               `db:"content_id" json:"content_id"`
	Title        string               `db:"title" json:"title"`
	Kind         models.ContentKind   `db:"type" json:"type"`
	Status       models.ContentStatus `db:"status" json:"status"`
	FileURL      *string              `db:"file_url" json:"file_url,omitempty"`
	FileSize     *int64               `db:"file_size" json:"file_size,omitempty"`
	ViewCount    int                  `db:"view_count" json:"view_count"`
	SubjectID    string               `db:"subject_id" json:"subject_id"`
	SubjectName  string               `db:"subject_name" json:"subject_name"`
	TermID       string               `db:"term_id" json:"term_id"`
	TermTitle    string               `db:"term_title" json:"term_title"`
	WeekID       string               `db:"week_id" json:"week_id"`
	WeekTitle    string               `db:"week_title" json:"week_title"`
	ChapterID    string               `db:"chapter_id" json:"chapter_id"`
	ChapterTitle string               `db:"chapter_title" json:"chapter_title"`
	CreatedAt    time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time            `db:"updated_at" json:"updated_at"`
}
