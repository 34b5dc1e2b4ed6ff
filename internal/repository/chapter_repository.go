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

// ChapterRepository handles persistence for chapters, including the
// continuation flow that copies a chapter into the following week.
type ChapterRepository struct {
	db *sqlx.DB
}

// NewChapterRepository creates a new repository instance.
func NewChapterRepository(db *sqlx.DB) *ChapterRepository {
	return &ChapterRepository{db: db}
}

const chapterColumns = `id, week_id, title, description, order_number, is_continuation, original_chapter_id, created_at, updated_at`

// FindByID returns a chapter by id.
func (r *ChapterRepository) FindByID(ctx context.Context, id string) (*models.Chapter, error) {
	query := fmt.Sprintf("SELECT %s FROM chapters WHERE id = $1", chapterColumns)
	var chapter models.Chapter
	if err := r.db.GetContext(ctx, &chapter, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find chapter: %w", err)
	}
	return &chapter, nil
}

// ListByWeek returns a week's chapters in display order.
func (r *ChapterRepository) ListByWeek(ctx context.Context, weekID string) ([]models.Chapter, error) {
	query := fmt.Sprintf("SELECT %s FROM chapters WHERE week_id = $1 ORDER BY order_number ASC", chapterColumns)
	var chapters []models.Chapter
	if err := r.db.SelectContext(ctx, &chapters, query, weekID); err != nil {
		return nil, fmt.Errorf("list chapters by week: %w", err)
	}
	return chapters, nil
}

// Create inserts a chapter with the next order number in its week. The order
// is assigned inside the transaction so concurrent creates cannot collide.
func (r *ChapterRepository) Create(ctx context.Context, chapter *models.Chapter) error {
	if chapter.ID == "" {
		chapter.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	chapter.CreatedAt = now
	chapter.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chapter create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const nextOrder = `SELECT COALESCE(MAX(order_number), 0) + 1 FROM chapters WHERE week_id = $1`
	if err := tx.GetContext(ctx, &chapter.OrderNumber, nextOrder, chapter.WeekID); err != nil {
		return fmt.Errorf("next chapter order: %w", err)
	}

	const insert = `INSERT INTO chapters (id, week_id, title, description, order_number, is_continuation, original_chapter_id, created_at, updated_at)
		VALUES (:id, :week_id, :title, :description, :order_number, :is_continuation, :original_chapter_id, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, chapter); err != nil {
		return fmt.Errorf("create chapter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chapter create: %w", err)
	}
	return nil
}

// Update modifies a chapter's title and description.
func (r *ChapterRepository) Update(ctx context.Context, chapter *models.Chapter) error {
	chapter.UpdatedAt = time.Now().UTC()
	const query = `UPDATE chapters SET title = :title, description = :description, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, chapter)
	if err != nil {
		return fmt.Errorf("update chapter: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a chapter. Content rows cascade at the database level.
func (r *ChapterRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM chapters WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete chapter: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// NextWeek returns the week that follows the given week within the same
// subject: the next week in the term, or week one of the next term. It
// returns sql.ErrNoRows when the chapter's week is the last week of the
// last term.
func (r *ChapterRepository) NextWeek(ctx context.Context, weekID string) (*models.Week, error) {
	const query = `WITH current AS (
			SELECT w.id, w.order_number, w.term_id, t.order_number AS term_order, t.subject_id
			FROM weeks w JOIN terms t ON t.id = w.term_id
			WHERE w.id = $1
		)
		SELECT w.id, w.term_id, w.title, w.order_number, w.created_at, w.updated_at
		FROM weeks w
		JOIN terms t ON t.id = w.term_id
		JOIN current c ON t.subject_id = c.subject_id
		WHERE (t.order_number = c.term_order AND w.order_number = c.order_number + 1)
		   OR (t.order_number = c.term_order + 1 AND w.order_number = 1)
		ORDER BY t.order_number ASC, w.order_number ASC
		LIMIT 1`
	var week models.Week
	if err := r.db.GetContext(ctx, &week, query, weekID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("next week: %w", err)
	}
	return &week, nil
}
