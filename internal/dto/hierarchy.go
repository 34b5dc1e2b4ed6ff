package dto

import "github.com/zimlearn/console-api/internal/models"

// SubjectTree is a subject with its full nested structure and teacher list,
// assembled from flat sibling queries.
type SubjectTree struct {
	models.Subject
	Terms    []TermNode              `json:"terms"`
	Teachers []models.SubjectTeacher `json:"teachers"`
}

// TermNode nests weeks under a term.
type TermNode struct {
	models.Term
	Weeks []WeekNode `json:"weeks"`
}

// WeekNode nests chapters under a week.
type WeekNode struct {
	models.Week
	Chapters []ChapterNode `json:"chapters"`
}

// ChapterNode nests content under a chapter.
type ChapterNode struct {
	models.Chapter
	Content []models.Content `json:"content"`
}
