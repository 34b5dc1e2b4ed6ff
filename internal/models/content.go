package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// ContentKind enumerates the learning unit types.
type ContentKind string

const (
	KindVideo ContentKind = "video"
	KindPDF   ContentKind = "pdf"
	KindQuiz  ContentKind = "quiz"
	KindNotes ContentKind = "notes"
)

// ContentStatus is the lifecycle state of a content item.
type ContentStatus string

const (
	StatusDraft     ContentStatus = "draft"
	StatusPublished ContentStatus = "published"
	StatusReview    ContentStatus = "review"
	StatusArchived  ContentStatus = "archived"
)

// QuizMethod discriminates how a quiz topic was authored.
type QuizMethod string

const (
	QuizMethodAI     QuizMethod = "ai"
	QuizMethodUpload QuizMethod = "upload"
	QuizMethodManual QuizMethod = "manual"
)

// QuizData is the quiz metadata payload stored on quiz-kind content rows.
type QuizData struct {
	Method         QuizMethod `json:"method"`
	Prompt         string     `json:"prompt,omitempty"`
	FileURL        string     `json:"file_url,omitempty"`
	Generated      bool       `json:"generated,omitempty"`
	TotalQuestions int        `json:"total_questions"`
	TotalPoints    int        `json:"total_points"`
	HasImages      bool       `json:"has_images"`
	TimeLimit      *int       `json:"time_limit,omitempty"`
	PassingScore   *int       `json:"passing_score,omitempty"`
	AllowRetakes   bool       `json:"allow_retakes,omitempty"`
}

// Value implements driver.Valuer so QuizData round-trips through a JSONB column.
func (q QuizData) Value() (driver.Value, error) {
	return json.Marshal(q)
}

// Scan implements sql.Scanner.
func (q *QuizData) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, q)
	case string:
		return json.Unmarshal([]byte(v), q)
	default:
		return fmt.Errorf("unsupported quiz_data source %T", src)
	}
}

// Content is a leaf learning unit (topic) inside a chapter.
type Content struct {
	ID                 string         `db:"id" json:"id"`
	ChapterID          string         `db:"chapter_id" json:"chapter_id"`
	Title              string         `db:"title" json:"title"`
	Type               ContentKind    `db:"type" json:"type"`
	Description        *string        `db:"description" json:"description,omitempty"`
	FileURL            *string        `db:"file_url" json:"file_url,omitempty"`
	FileSize           *int64         `db:"file_size" json:"file_size,omitempty"`
	Duration           *string        `db:"duration" json:"duration,omitempty"`
	EstimatedStudyTime *string        `db:"estimated_study_time" json:"estimated_study_time,omitempty"`
	OrderNumber        int            `db:"order_number" json:"order_number"`
	Status             ContentStatus  `db:"status" json:"status"`
	Tags               pq.StringArray `db:"tags" json:"tags"`
	ViewCount          int            `db:"view_count" json:"view_count"`
	QuizData           *QuizData      `db:"quiz_data" json:"quiz_data,omitempty"`
	CreatedBy          *string        `db:"created_by" json:"created_by,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// ContentFilter captures supported filters for the flattened dashboard list.
type ContentFilter struct {
	Kind      ContentKind
	Status    ContentStatus
	SubjectID string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// MoveDirection selects which adjacent sibling a content row swaps with.
type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)
