package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/zimlearn/console-api/internal/models"
)

// SubjectRepository handles persistence for subjects and the bulk reads used
// to assemble the hierarchy tree.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectColumns = `id, name, description, level, exam_board, school_id, icon, is_active, enrolled_students, content_items, completion_rate, created_at, updated_at`

// ListActive returns active subjects matching the filter, newest first.
func (r *SubjectRepository) ListActive(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, error) {
	base := "FROM subjects WHERE is_active = TRUE"
	var conditions []string
	var args []interface{}

	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.ExamBoard != "" {
		conditions = append(conditions, fmt.Sprintf("exam_board = $%d", len(args)+1))
		args = append(args, filter.ExamBoard)
	}
	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC", subjectColumns, base)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID returns an active subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE id = $1 AND is_active = TRUE", subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find subject: %w", err)
	}
	return &subject, nil
}

// CreateWithStructure inserts the subject plus its fixed 3 terms x 13 weeks
// scaffold and any teacher rows in a single transaction. Either the whole
// structure exists afterwards or none of it does.
func (r *SubjectRepository) CreateWithStructure(ctx context.Context, subject *models.Subject, teachers []models.SubjectTeacher) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now
	subject.IsActive = true

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin subject create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertSubject = `INSERT INTO subjects (id, name, description, level, exam_board, school_id, icon, is_active, enrolled_students, content_items, completion_rate, created_at, updated_at)
		VALUES (:id, :name, :description, :level, :exam_board, :school_id, :icon, :is_active, 0, 0, 0.0, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertSubject, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}

	const insertTerm = `INSERT INTO terms (id, subject_id, title, order_number, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)`
	const insertWeek = `INSERT INTO weeks (id, term_id, title, order_number, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)`
	for t := 1; t <= models.TermsPerSubject; t++ {
		termID := uuid.NewString()
		if _, err := tx.ExecContext(ctx, insertTerm, termID, subject.ID, fmt.Sprintf("Term %d", t), t, now); err != nil {
			return fmt.Errorf("create term %d: %w", t, err)
		}
		for w := 1; w <= models.WeeksPerTerm; w++ {
			if _, err := tx.ExecContext(ctx, insertWeek, uuid.NewString(), termID, fmt.Sprintf("Week %d", w), w, now); err != nil {
				return fmt.Errorf("create week %d of term %d: %w", w, t, err)
			}
		}
	}

	const insertTeacher = `INSERT INTO subject_teachers (id, subject_id, name, email, phone, qualification, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i := range teachers {
		teachers[i].ID = uuid.NewString()
		teachers[i].SubjectID = subject.ID
		teachers[i].CreatedAt = now
		if _, err := tx.ExecContext(ctx, insertTeacher, teachers[i].ID, subject.ID, teachers[i].Name, teachers[i].Email, teachers[i].Phone, teachers[i].Qualification, now); err != nil {
			return fmt.Errorf("create subject teacher: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit subject create: %w", err)
	}
	return nil
}

// Update modifies a subject.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET name = :name, description = :description, level = :level, exam_board = :exam_board, school_id = :school_id, icon = :icon, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return nil
}

// Deactivate soft deletes a subject.
func (r *SubjectRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE subjects SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate subject: %w", err)
	}
	return nil
}

// RecomputeStatistics refreshes the denormalised enrolled/content counters.
func (r *SubjectRepository) RecomputeStatistics(ctx context.Context, id string) error {
	const query = `UPDATE subjects SET
		enrolled_students = (SELECT COUNT(*) FROM enrollments e WHERE e.subject_id = subjects.id AND e.is_active = TRUE),
		content_items = (
			SELECT COUNT(*) FROM content c
			JOIN chapters ch ON ch.id = c.chapter_id
			JOIN weeks w ON w.id = ch.week_id
			JOIN terms t ON t.id = w.term_id
			WHERE t.subject_id = subjects.id
		),
		updated_at = $2
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("recompute subject statistics: %w", err)
	}
	return nil
}

// CountActive returns the number of active subjects.
func (r *SubjectRepository) CountActive(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM subjects WHERE is_active = TRUE"); err != nil {
		return 0, fmt.Errorf("count subjects: %w", err)
	}
	return total, nil
}

// CountsByLevel returns active subject counts grouped by education level.
func (r *SubjectRepository) CountsByLevel(ctx context.Context) (map[models.EducationLevel]int64, error) {
	const query = `SELECT level, COUNT(*) AS total FROM subjects WHERE is_active = TRUE GROUP BY level`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count subjects by level: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.EducationLevel]int64)
	for rows.Next() {
		var row struct {
			Level models.EducationLevel `db:"level"`
			Total int64                 `db:"total"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan subject level counts: %w", err)
		}
		counts[row.Level] = row.Total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subject level counts: %w", err)
	}
	return counts, nil
}

// TermsBySubjectIDs returns all terms for the given subjects ordered for
// tree assembly.
func (r *SubjectRepository) TermsBySubjectIDs(ctx context.Context, subjectIDs []string) ([]models.Term, error) {
	const query = `SELECT id, subject_id, title, order_number, created_at, updated_at FROM terms WHERE subject_id = ANY($1) ORDER BY subject_id, order_number ASC`
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, pq.Array(subjectIDs)); err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}

// WeeksByTermIDs returns all weeks for the given terms.
func (r *SubjectRepository) WeeksByTermIDs(ctx context.Context, termIDs []string) ([]models.Week, error) {
	const query = `SELECT id, term_id, title, order_number, created_at, updated_at FROM weeks WHERE term_id = ANY($1) ORDER BY term_id, order_number ASC`
	var weeks []models.Week
	if err := r.db.SelectContext(ctx, &weeks, query, pq.Array(termIDs)); err != nil {
		return nil, fmt.Errorf("list weeks: %w", err)
	}
	return weeks, nil
}

// ChaptersByWeekIDs returns all chapters for the given weeks.
func (r *SubjectRepository) ChaptersByWeekIDs(ctx context.Context, weekIDs []string) ([]models.Chapter, error) {
	const query = `SELECT id, week_id, title, description, order_number, is_continuation, original_chapter_id, created_at, updated_at FROM chapters WHERE week_id = ANY($1) ORDER BY week_id, order_number ASC`
	var chapters []models.Chapter
	if err := r.db.SelectContext(ctx, &chapters, query, pq.Array(weekIDs)); err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	return chapters, nil
}

// ContentByChapterIDs returns all content rows for the given chapters.
func (r *SubjectRepository) ContentByChapterIDs(ctx context.Context, chapterIDs []string) ([]models.Content, error) {
	const query = `SELECT id, chapter_id, title, type, description, file_url, file_size, duration, estimated_study_time, order_number, status, tags, view_count, quiz_data, created_by, created_at, updated_at FROM content WHERE chapter_id = ANY($1) ORDER BY chapter_id, order_number ASC`
	var content []models.Content
	if err := r.db.SelectContext(ctx, &content, query, pq.Array(chapterIDs)); err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	return content, nil
}

// TeachersBySubjectIDs returns teacher rows for the given subjects.
func (r *SubjectRepository) TeachersBySubjectIDs(ctx context.Context, subjectIDs []string) ([]models.SubjectTeacher, error) {
	const query = `SELECT id, subject_id, name, email, phone, qualification, created_at FROM subject_teachers WHERE subject_id = ANY($1) ORDER BY subject_id, name ASC`
	var teachers []models.SubjectTeacher
	if err := r.db.SelectContext(ctx, &teachers, query, pq.Array(subjectIDs)); err != nil {
		return nil, fmt.Errorf("list subject teachers: %w", err)
	}
	return teachers, nil
}
