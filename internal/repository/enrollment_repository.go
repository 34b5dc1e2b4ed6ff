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

// EnrollmentRepository handles the user-to-subject enrollment links.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new repository instance.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Enroll creates an active enrollment, reactivating a previous one if the
// pair already exists.
func (r *EnrollmentRepository) Enroll(ctx context.Context, userID, subjectID string) (*models.Enrollment, error) {
	enrollment := models.Enrollment{
		ID:         uuid.NewString(),
		UserID:     userID,
		SubjectID:  subjectID,
		IsActive:   true,
		EnrolledAt: time.Now().UTC(),
	}
	const query = `INSERT INTO enrollments (id, user_id, subject_id, is_active, enrolled_at)
		VALUES (:id, :user_id, :subject_id, :is_active, :enrolled_at)
		ON CONFLICT (user_id, subject_id) DO UPDATE SET is_active = TRUE, enrolled_at = EXCLUDED.enrolled_at`
	if _, err := r.db.NamedExecContext(ctx, query, &enrollment); err != nil {
		return nil, fmt.Errorf("enroll user: %w", err)
	}

	const reread = `SELECT id, user_id, subject_id, is_active, enrolled_at FROM enrollments WHERE user_id = $1 AND subject_id = $2`
	var stored models.Enrollment
	if err := r.db.GetContext(ctx, &stored, reread, userID, subjectID); err != nil {
		return nil, fmt.Errorf("read enrollment: %w", err)
	}
	return &stored, nil
}

// Unenroll deactivates an enrollment.
func (r *EnrollmentRepository) Unenroll(ctx context.Context, userID, subjectID string) error {
	const query = `UPDATE enrollments SET is_active = FALSE WHERE user_id = $1 AND subject_id = $2 AND is_active = TRUE`
	result, err := r.db.ExecContext(ctx, query, userID, subjectID)
	if err != nil {
		return fmt.Errorf("unenroll user: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByUser returns a user's active enrollments, newest first.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	const query = `SELECT id, user_id, subject_id, is_active, enrolled_at FROM enrollments WHERE user_id = $1 AND is_active = TRUE ORDER BY enrolled_at DESC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, userID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// CountBySubject returns the active enrollment count for a subject.
func (r *EnrollmentRepository) CountBySubject(ctx context.Context, subjectID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE subject_id = $1 AND is_active = TRUE`
	var total int64
	if err := r.db.GetContext(ctx, &total, query, subjectID); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return total, nil
}
