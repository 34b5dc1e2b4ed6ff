package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zimlearn/console-api/internal/models"
	appErrors "github.com/zimlearn/console-api/pkg/errors"
)

type enrollmentRepository interface {
	Enroll(ctx context.Context, userID, subjectID string) (*models.Enrollment, error)
	Unenroll(ctx context.Context, userID, subjectID string) error
	ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error)
	CountBySubject(ctx context.Context, subjectID string) (int64, error)
}

type enrollmentSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	RecomputeStatistics(ctx context.Context, id string) error
}

// EnrollmentService links users to subjects and keeps the subject counters
// in step with enrollment churn.
type EnrollmentService struct {
	repo      enrollmentRepository
	subjects  enrollmentSubjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, subjects enrollmentSubjectRepository, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{repo: repo, subjects: subjects, validator: validate, logger: logger}
}

// Enroll creates (or reactivates) an enrollment.
func (s *EnrollmentService) Enroll(ctx context.Context, req models.EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	enrollment, err := s.repo.Enroll(ctx, req.UserID, req.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll user")
	}

	if err := s.subjects.RecomputeStatistics(ctx, req.SubjectID); err != nil {
		s.logger.Warn("failed to refresh subject statistics after enroll", zap.Error(err))
	}
	return enrollment, nil
}

// Unenroll deactivates an enrollment.
func (s *EnrollmentService) Unenroll(ctx context.Context, userID, subjectID string) error {
	if err := s.repo.Unenroll(ctx, userID, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll user")
	}
	if err := s.subjects.RecomputeStatistics(ctx, subjectID); err != nil {
		s.logger.Warn("failed to refresh subject statistics after unenroll", zap.Error(err))
	}
	return nil
}

// ListForUser returns a user's active enrollments.
func (s *EnrollmentService) ListForUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	enrollments, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// CountForSubject returns the active enrollment count for a subject.
func (s *EnrollmentService) CountForSubject(ctx context.Context, subjectID string) (int64, error) {
	total, err := s.repo.CountBySubject(ctx, subjectID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	return total, nil
}
