package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/zimlearn/console-api/internal/dto"
	"github.com/zimlearn/console-api/internal/models"
)

// ContentRepository handles persistence for content rows (topics) and the
// flattened listing the dashboard uses.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository creates a new repository instance.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

const contentColumns = `id, chapter_id, title, type, description, file_url, file_size, duration, estimated_study_time, order_number, status, tags, view_count, quiz_data, created_by, created_at, updated_at`

// allowedContentSorts whitelists sortable columns for the flattened list.
var allowedContentSorts = map[string]string{
	"created_at": "c.created_at",
	"updated_at": "c.updated_at",
	"title":      "c.title",
	"type":       "c.type",
	"status":     "c.status",
	"view_count": "c.view_count",
}

// FindByID returns a content row by id.
func (r *ContentRepository) FindByID(ctx context.Context, id string) (*models.Content, error) {
	query := fmt.Sprintf("SELECT %s FROM content WHERE id = $1", contentColumns)
	var content models.Content
	if err := r.db.GetContext(ctx, &content, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find content: %w", err)
	}
	return &content, nil
}

// ListByChapter returns a chapter's content in display order.
func (r *ContentRepository) ListByChapter(ctx context.Context, chapterID string) ([]models.Content, error) {
	query := fmt.Sprintf("SELECT %s FROM content WHERE chapter_id = $1 ORDER BY order_number ASC", contentColumns)
	var content []models.Content
	if err := r.db.SelectContext(ctx, &content, query, chapterID); err != nil {
		return nil, fmt.Errorf("list content by chapter: %w", err)
	}
	return content, nil
}

// Create inserts a content row with the next order number in its chapter.
func (r *ContentRepository) Create(ctx context.Context, content *models.Content) error {
	if content.ID == "" {
		content.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	content.CreatedAt = now
	content.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin content create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const nextOrder = `SELECT COALESCE(MAX(order_number), 0) + 1 FROM content WHERE chapter_id = $1`
	if err := tx.GetContext(ctx, &content.OrderNumber, nextOrder, content.ChapterID); err != nil {
		return fmt.Errorf("next content order: %w", err)
	}

	const insert = `INSERT INTO content (id, chapter_id, title, type, description, file_url, file_size, duration, estimated_study_time, order_number, status, tags, view_count, quiz_data, created_by, created_at, updated_at)
		VALUES (:id, :chapter_id, :title, :type, :description, :file_url, :file_size, :duration, :estimated_study_time, :order_number, :status, :tags, 0, :quiz_data, :created_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, content); err != nil {
		return fmt.Errorf("create content: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit content create: %w", err)
	}
	return nil
}

// Update modifies a content row's editable fields.
func (r *ContentRepository) Update(ctx context.Context, content *models.Content) error {
	content.UpdatedAt = time.Now().UTC()
	const query = `UPDATE content SET title = :title, description = :description, file_url = :file_url, file_size = :file_size, duration = :duration, estimated_study_time = :estimated_study_time, status = :status, tags = :tags, quiz_data = :quiz_data, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, content)
	if err != nil {
		return fmt.Errorf("update content: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a content row.
func (r *ContentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM content WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Move swaps a content row's order number with its adjacent sibling in the
// given direction. Both rows are updated in one transaction; moving past
// either end of the chapter is a no-op.
func (r *ContentRepository) Move(ctx context.Context, id string, direction models.MoveDirection) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin content move: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var current struct {
		ChapterID   string `db:"chapter_id"`
		OrderNumber int    `db:"order_number"`
	}
	const lockCurrent = `SELECT chapter_id, order_number FROM content WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &current, lockCurrent, id); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock content for move: %w", err)
	}

	siblingQuery := `SELECT id, order_number FROM content WHERE chapter_id = $1 AND order_number < $2 ORDER BY order_number DESC LIMIT 1 FOR UPDATE`
	if direction == models.MoveDown {
		siblingQuery = `SELECT id, order_number FROM content WHERE chapter_id = $1 AND order_number > $2 ORDER BY order_number ASC LIMIT 1 FOR UPDATE`
	}
	var sibling struct {
		ID          string `db:"id"`
		OrderNumber int    `db:"order_number"`
	}
	if err := tx.GetContext(ctx, &sibling, siblingQuery, current.ChapterID, current.OrderNumber); err != nil {
		if err == sql.ErrNoRows {
			// Already at the boundary.
			return nil
		}
		return fmt.Errorf("find move sibling: %w", err)
	}

	now := time.Now().UTC()
	const swap = `UPDATE content SET order_number = $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, swap, id, sibling.OrderNumber, now); err != nil {
		return fmt.Errorf("move content: %w", err)
	}
	if _, err := tx.ExecContext(ctx, swap, sibling.ID, current.OrderNumber, now); err != nil {
		return fmt.Errorf("move content sibling: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit content move: %w", err)
	}
	return nil
}

// IncrementViewCount bumps the view counter for a content row.
func (r *ContentRepository) IncrementViewCount(ctx context.Context, id string) error {
	const query = `UPDATE content SET view_count = view_count + 1 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	return nil
}

// SubjectIDForContent resolves the owning subject of a content row, used to
// refresh subject statistics after writes.
func (r *ContentRepository) SubjectIDForContent(ctx context.Context, id string) (string, error) {
	const query = `SELECT t.subject_id FROM content c
		JOIN chapters ch ON ch.id = c.chapter_id
		JOIN weeks w ON w.id = ch.week_id
		JOIN terms t ON t.id = w.term_id
		WHERE c.id = $1`
	var subjectID string
	if err := r.db.GetContext(ctx, &subjectID, query, id); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("resolve content subject: %w", err)
	}
	return subjectID, nil
}

// SubjectIDForChapter resolves the owning subject of a chapter.
func (r *ContentRepository) SubjectIDForChapter(ctx context.Context, chapterID string) (string, error) {
	const query = `SELECT t.subject_id FROM chapters ch
		JOIN weeks w ON w.id = ch.week_id
		JOIN terms t ON t.id = w.term_id
		WHERE ch.id = $1`
	var subjectID string
	if err := r.db.GetContext(ctx, &subjectID, query, chapterID); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("resolve chapter subject: %w", err)
	}
	return subjectID, nil
}

// ListFlattened returns content rows joined with their hierarchy breadcrumbs,
// filtered, sorted and paginated for the dashboard table.
func (r *ContentRepository) ListFlattened(ctx context.Context, filter models.ContentFilter) ([]dto.FlatContentRow, int64, error) {
	base := `FROM content c
		JOIN chapters ch ON ch.id = c.chapter_id
		JOIN weeks w ON w.id = ch.week_id
		JOIN terms t ON t.id = w.term_id
		JOIN subjects s ON s.id = t.subject_id
		WHERE s.is_active = TRUE`
	var conditions []string
	var args []interface{}

	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("c.type = $%d", len(args)+1))
		args = append(args, filter.Kind)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("s.id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.title) LIKE $%d OR LOWER(s.name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count flattened content: %w", err)
	}

	sortColumn, ok := allowedContentSorts[filter.SortBy]
	if !ok {
		sortColumn = "c.created_at"
	}
	sortOrder := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := fmt.Sprintf(`SELECT c.id AS content_id, c.title, c.type, c.status, c.file_url, c.file_size, c.view_count, c.created_at, c.updated_at,
			s.id AS subject_id, s.name AS subject_name,
			t.id AS term_id, t.title AS term_title,
			w.id AS week_id, w.title AS week_title,
			ch.id AS chapter_id, ch.title AS chapter_title
		%s ORDER BY %s %s LIMIT $%d OFFSET $%d`, base, sortColumn, sortOrder, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	var rows []dto.FlatContentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list flattened content: %w", err)
	}
	return rows, total, nil
}

// CountByKindAndStatus returns dashboard counters grouped by type and status.
func (r *ContentRepository) CountByKindAndStatus(ctx context.Context) (map[models.ContentKind]int64, map[models.ContentStatus]int64, error) {
	const query = `SELECT c.type, c.status, COUNT(*) AS total FROM content c
		JOIN chapters ch ON ch.id = c.chapter_id
		JOIN weeks w ON w.id = ch.week_id
		JOIN terms t ON t.id = w.term_id
		JOIN subjects s ON s.id = t.subject_id
		WHERE s.is_active = TRUE
		GROUP BY c.type, c.status`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("count content by kind and status: %w", err)
	}
	defer rows.Close()

	byKind := make(map[models.ContentKind]int64)
	byStatus := make(map[models.ContentStatus]int64)
	for rows.Next() {
		var row struct {
			Type   models.ContentKind   `db:"type"`
			Status models.ContentStatus `db:"status"`
			Total  int64                `db:"total"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, nil, fmt.Errorf("scan content counts: %w", err)
		}
		byKind[row.Type] += row.Total
		byStatus[row.Status] += row.Total
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate content counts: %w", err)
	}
	return byKind, byStatus, nil
}
