package models

import (
	"encoding/json"
	"time"
)

// AnswerLabel identifies one of the four answer slots.
type AnswerLabel string

const (
	AnswerA AnswerLabel = "A"
	AnswerB AnswerLabel = "B"
	AnswerC AnswerLabel = "C"
	AnswerD AnswerLabel = "D"
)

// QuizQuestion is a multiple-choice question attached to quiz-kind content.
// Answers A and B are required; C and D may stay empty.
type QuizQuestion struct {
	ID               string      `db:"id" json:"id"`
	ContentID        string      `db:"content_id" json:"content_id"`
	QuestionText     string      `db:"question_text" json:"question_text"`
	QuestionImageURL *string     `db:"question_image_url" json:"question_image_url,omitempty"`
	AnswerA          string      `db:"answer_a" json:"answer_a"`
	AnswerB          string      `db:"answer_b" json:"answer_b"`
	AnswerC          *string     `db:"answer_c" json:"answer_c,omitempty"`
	AnswerD          *string     `db:"answer_d" json:"answer_d,omitempty"`
	AnswerAImageURL  *string     `db:"answer_a_image_url" json:"answer_a_image_url,omitempty"`
	AnswerBImageURL  *string     `db:"answer_b_image_url" json:"answer_b_image_url,omitempty"`
	AnswerCImageURL  *string     `db:"answer_c_image_url" json:"answer_c_image_url,omitempty"`
	AnswerDImageURL  *string     `db:"answer_d_image_url" json:"answer_d_image_url,omitempty"`
	CorrectAnswer    AnswerLabel `db:"correct_answer" json:"correct_answer"`
	OrderNumber      int         `db:"order_number" json:"order_number"`
	Explanation      *string     `db:"explanation" json:"explanation,omitempty"`
	Points           int         `db:"points" json:"points"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

// QuizAttempt records one completed run of a quiz by a user.
type QuizAttempt struct {
	ID             string          `db:"id" json:"id"`
	ContentID      string          `db:"content_id" json:"content_id"`
	UserID         string          `db:"user_id" json:"user_id"`
	Score          int             `db:"score" json:"score"`
	TotalQuestions int             `db:"total_questions" json:"total_questions"`
	Percentage     float64         `db:"percentage" json:"percentage"`
	TimeTaken      *int            `db:"time_taken" json:"time_taken,omitempty"`
	Answers        json.RawMessage `db:"answers" json:"answers"`
	CompletedAt    time.Time       `db:"completed_at" json:"completed_at"`
}

// QuizStatistics aggregates question and attempt facts for one quiz.
type QuizStatistics struct {
	TotalQuestions    int     `db:"total_questions" json:"total_questions"`
	TotalPoints       int     `db:"total_points" json:"total_points"`
	HasImages         bool    `db:"has_images" json:"has_images"`
	AttemptCount      int     `db:"attempt_count" json:"attempt_count"`
	AveragePercentage float64 `db:"average_percentage" json:"average_percentage"`
	AverageTimeTaken  float64 `db:"average_time_taken" json:"average_time_taken"`
}

// LeaderboardEntry is one row of the quiz leaderboard, best attempt per user.
type LeaderboardEntry struct {
	UserName    string    `db:"user_name" json:"user_name"`
	Score       int       `db:"score" json:"score"`
	Percentage  float64   `db:"percentage" json:"percentage"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}
