package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/zimlearn/console-api/internal/models"
)

// QuizRepository handles persistence for quiz questions, attempts and the
// derived statistics.
type QuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository creates a new repository instance.
func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

const quizQuestionColumns = `id, content_id, question_text, question_image_url, answer_a, answer_b, answer_c, answer_d, answer_a_image_url, answer_b_image_url, answer_c_image_url, answer_d_image_url, correct_answer, order_number, explanation, points, created_at, updated_at`

// FindQuestion returns a question by id.
func (r *QuizRepository) FindQuestion(ctx context.Context, id string) (*models.QuizQuestion, error) {
	query := fmt.Sprintf("SELECT %s FROM quiz_questions WHERE id = $1", quizQuestionColumns)
	var question models.QuizQuestion
	if err := r.db.GetContext(ctx, &question, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find quiz question: %w", err)
	}
	return &question, nil
}

// ListQuestions returns a quiz's questions in display order.
func (r *QuizRepository) ListQuestions(ctx context.Context, contentID string) ([]models.QuizQuestion, error) {
	query := fmt.Sprintf("SELECT %s FROM quiz_questions WHERE content_id = $1 ORDER BY order_number ASC", quizQuestionColumns)
	var questions []models.QuizQuestion
	if err := r.db.SelectContext(ctx, &questions, query, contentID); err != nil {
		return nil, fmt.Errorf("list quiz questions: %w", err)
	}
	return questions, nil
}

const insertQuizQuestion = `INSERT INTO quiz_questions (id, content_id, question_text, question_image_url, answer_a, answer_b, answer_c, answer_d, answer_a_image_url, answer_b_image_url, answer_c_image_url, answer_d_image_url, correct_answer, order_number, explanation, points, created_at, updated_at)
	VALUES (:id, :content_id, :question_text, :question_image_url, :answer_a, :answer_b, :answer_c, :answer_d, :answer_a_image_url, :answer_b_image_url, :answer_c_image_url, :answer_d_image_url, :correct_answer, :order_number, :explanation, :points, :created_at, :updated_at)`

// CreateQuestions inserts questions with sequential order numbers in a
// single transaction. Both the authoring endpoint and the JSON import
// funnel through this path, so a one-question create is just a bulk of one.
func (r *QuizRepository) CreateQuestions(ctx context.Context, contentID string, questions []models.QuizQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk question create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var base int
	const nextOrder = `SELECT COALESCE(MAX(order_number), 0) FROM quiz_questions WHERE content_id = $1`
	if err := tx.GetContext(ctx, &base, nextOrder, contentID); err != nil {
		return fmt.Errorf("next question order: %w", err)
	}

	for i := range questions {
		questions[i].ID = uuid.NewString()
		questions[i].ContentID = contentID
		questions[i].OrderNumber = base + i + 1
		questions[i].CreatedAt = now
		questions[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, insertQuizQuestion, &questions[i]); err != nil {
			return fmt.Errorf("create quiz question %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk question create: %w", err)
	}
	return nil
}

// UpdateQuestion modifies an existing question.
func (r *QuizRepository) UpdateQuestion(ctx context.Context, question *models.QuizQuestion) error {
	question.UpdatedAt = time.Now().UTC()
	const query = `UPDATE quiz_questions SET question_text = :question_text, question_image_url = :question_image_url, answer_a = :answer_a, answer_b = :answer_b, answer_c = :answer_c, answer_d = :answer_d, answer_a_image_url = :answer_a_image_url, answer_b_image_url = :answer_b_image_url, answer_c_image_url = :answer_c_image_url, answer_d_image_url = :answer_d_image_url, correct_answer = :correct_answer, explanation = :explanation, points = :points, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, question)
	if err != nil {
		return fmt.Errorf("update quiz question: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteQuestion removes a question and closes the order gap it leaves.
func (r *QuizRepository) DeleteQuestion(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin question delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var deleted struct {
		ContentID   string `db:"content_id"`
		OrderNumber int    `db:"order_number"`
	}
	const remove = `DELETE FROM quiz_questions WHERE id = $1 RETURNING content_id, order_number`
	if err := tx.GetContext(ctx, &deleted, remove, id); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("delete quiz question: %w", err)
	}

	const compact = `UPDATE quiz_questions SET order_number = order_number - 1 WHERE content_id = $1 AND order_number > $2`
	if _, err := tx.ExecContext(ctx, compact, deleted.ContentID, deleted.OrderNumber); err != nil {
		return fmt.Errorf("compact question order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit question delete: %w", err)
	}
	return nil
}

// CreateAttempt records a completed quiz attempt.
func (r *QuizRepository) CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.CompletedAt.IsZero() {
		attempt.CompletedAt = time.Now().UTC()
	}
	const query = `INSERT INTO quiz_attempts (id, content_id, user_id, score, total_questions, percentage, time_taken, answers, completed_at)
		VALUES (:id, :content_id, :user_id, :score, :total_questions, :percentage, :time_taken, :answers, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attempt); err != nil {
		return fmt.Errorf("create quiz attempt: %w", err)
	}
	return nil
}

// ListAttempts returns a user's attempts for one quiz, newest first.
func (r *QuizRepository) ListAttempts(ctx context.Context, contentID, userID string) ([]models.QuizAttempt, error) {
	const query = `SELECT id, content_id, user_id, score, total_questions, percentage, time_taken, answers, completed_at
		FROM quiz_attempts WHERE content_id = $1 AND user_id = $2 ORDER BY completed_at DESC`
	var attempts []models.QuizAttempt
	if err := r.db.SelectContext(ctx, &attempts, query, contentID, userID); err != nil {
		return nil, fmt.Errorf("list quiz attempts: %w", err)
	}
	return attempts, nil
}

// Statistics aggregates question and attempt facts for one quiz.
func (r *QuizRepository) Statistics(ctx context.Context, contentID string) (*models.QuizStatistics, error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM quiz_questions q WHERE q.content_id = $1) AS total_questions,
		(SELECT COALESCE(SUM(q.points), 0) FROM quiz_questions q WHERE q.content_id = $1) AS total_points,
		(SELECT COUNT(*) > 0 FROM quiz_questions q WHERE q.content_id = $1 AND (q.question_image_url IS NOT NULL OR q.answer_a_image_url IS NOT NULL OR q.answer_b_image_url IS NOT NULL OR q.answer_c_image_url IS NOT NULL OR q.answer_d_image_url IS NOT NULL)) AS has_images,
		(SELECT COUNT(*) FROM quiz_attempts a WHERE a.content_id = $1) AS attempt_count,
		(SELECT COALESCE(AVG(a.percentage), 0) FROM quiz_attempts a WHERE a.content_id = $1) AS average_percentage,
		(SELECT COALESCE(AVG(a.time_taken), 0) FROM quiz_attempts a WHERE a.content_id = $1 AND a.time_taken IS NOT NULL) AS average_time_taken`
	var stats models.QuizStatistics
	if err := r.db.GetContext(ctx, &stats, query, contentID); err != nil {
		return nil, fmt.Errorf("quiz statistics: %w", err)
	}
	return &stats, nil
}

// Leaderboard returns the best attempt per user for one quiz, highest
// percentage first with earlier completion breaking ties.
func (r *QuizRepository) Leaderboard(ctx context.Context, contentID string, limit int) ([]models.LeaderboardEntry, error) {
	if limit < 1 {
		limit = 10
	}
	const query = `SELECT p.full_name AS user_name, best.score, best.percentage, best.completed_at
		FROM (
			SELECT DISTINCT ON (a.user_id) a.user_id, a.score, a.percentage, a.completed_at
			FROM quiz_attempts a
			WHERE a.content_id = $1
			ORDER BY a.user_id, a.percentage DESC, a.completed_at ASC
		) best
		JOIN profiles p ON p.id = best.user_id
		ORDER BY best.percentage DESC, best.completed_at ASC
		LIMIT $2`
	var entries []models.LeaderboardEntry
	if err := r.db.SelectContext(ctx, &entries, query, contentID, limit); err != nil {
		return nil, fmt.Errorf("quiz leaderboard: %w", err)
	}
	return entries, nil
}
