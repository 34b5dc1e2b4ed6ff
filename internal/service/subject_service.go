package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zimlearn/console-api/internal/dto"
	"github.com/zimlearn/console-api/internal/models"
	appErrors "github.com/zimlearn/console-api/pkg/errors"
)

type subjectRepository interface {
	ListActive(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	CreateWithStructure(ctx context.Context, subject *models.Subject, teachers []models.SubjectTeacher) error
	Update(ctx context.Context, subject *models.Subject) error
	Deactivate(ctx context.Context, id string) error
	RecomputeStatistics(ctx context.Context, id string) error
	TermsBySubjectIDs(ctx context.Context, subjectIDs []string) ([]models.Term, error)
	WeeksByTermIDs(ctx context.Context, termIDs []string) ([]models.Week, error)
	ChaptersByWeekIDs(ctx context.Context, weekIDs []string) ([]models.Chapter, error)
	ContentByChapterIDs(ctx context.Context, chapterIDs []string) ([]models.Content, error)
	TeachersBySubjectIDs(ctx context.Context, subjectIDs []string) ([]models.SubjectTeacher, error)
}

type subjectCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SubjectService owns subject lifecycle and hierarchy tree assembly.
type SubjectService struct {
	repo      subjectRepository
	cache     subjectCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a SubjectService.
func NewSubjectService(repo subjectRepository, cache subjectCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubjectService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// ListTrees returns all active subjects matching the filter, each with its
// full nested structure. Children are loaded with one query per level and
// stitched in memory rather than per-parent round trips.
func (s *SubjectService) ListTrees(ctx context.Context, filter models.SubjectFilter) ([]dto.SubjectTree, error) {
	subjects, err := s.repo.ListActive(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return s.assembleTrees(ctx, subjects)
}

// GetTree returns one subject with its full nested structure.
func (s *SubjectService) GetTree(ctx context.Context, id string) (*dto.SubjectTree, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	trees, err := s.assembleTrees(ctx, []models.Subject{*subject})
	if err != nil {
		return nil, err
	}
	return &trees[0], nil
}

// ListWeeks returns a term's weeks in order.
func (s *SubjectService) ListWeeks(ctx context.Context, termID string) ([]models.Week, error) {
	weeks, err := s.repo.WeeksByTermIDs(ctx, []string{termID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list weeks")
	}
	return weeks, nil
}

// Create registers a subject and its fixed term/week scaffold.
func (s *SubjectService) Create(ctx context.Context, req models.CreateSubjectRequest) (*dto.SubjectTree, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject := models.Subject{
		Name:        req.Name,
		Description: req.Description,
		Level:       req.Level,
		ExamBoard:   req.ExamBoard,
		SchoolID:    req.SchoolID,
		Icon:        req.Icon,
	}
	teachers := make([]models.SubjectTeacher, 0, len(req.Teachers))
	for _, t := range req.Teachers {
		teachers = append(teachers, models.SubjectTeacher{
			Name:          t.Name,
			Email:         t.Email,
			Phone:         t.Phone,
			Qualification: t.Qualification,
		})
	}

	if err := s.repo.CreateWithStructure(ctx, &subject, teachers); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	s.invalidateDashboard(ctx)
	s.logger.Info("subject created", zap.String("subject_id", subject.ID), zap.String("name", subject.Name))

	return s.GetTree(ctx, subject.ID)
}

// Update modifies subject metadata.
func (s *SubjectService) Update(ctx context.Context, id string, req models.UpdateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	if req.Name != nil {
		subject.Name = *req.Name
	}
	if req.Description != nil {
		subject.Description = req.Description
	}
	if req.Level != nil {
		subject.Level = *req.Level
	}
	if req.ExamBoard != nil {
		subject.ExamBoard = *req.ExamBoard
	}
	if req.SchoolID != nil {
		subject.SchoolID = req.SchoolID
	}
	if req.Icon != nil {
		subject.Icon = *req.Icon
	}

	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	s.invalidateDashboard(ctx)
	return subject, nil
}

// Delete soft deletes a subject. The structure underneath is kept.
func (s *SubjectService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate subject")
	}
	s.invalidateDashboard(ctx)
	s.logger.Info("subject deactivated", zap.String("subject_id", id))
	return nil
}

// RecomputeStatistics refreshes the denormalised counters for a subject.
func (s *SubjectService) RecomputeStatistics(ctx context.Context, id string) (*models.Subject, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if err := s.repo.RecomputeStatistics(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recompute statistics")
	}
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload subject")
	}
	return subject, nil
}

func (s *SubjectService) assembleTrees(ctx context.Context, subjects []models.Subject) ([]dto.SubjectTree, error) {
	trees := make([]dto.SubjectTree, 0, len(subjects))
	if len(subjects) == 0 {
		return trees, nil
	}

	subjectIDs := make([]string, len(subjects))
	for i, sub := range subjects {
		subjectIDs[i] = sub.ID
	}

	terms, err := s.repo.TermsBySubjectIDs(ctx, subjectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load terms")
	}
	termIDs := make([]string, len(terms))
	for i, t := range terms {
		termIDs[i] = t.ID
	}

	var weeks []models.Week
	if len(termIDs) > 0 {
		if weeks, err = s.repo.WeeksByTermIDs(ctx, termIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weeks")
		}
	}
	weekIDs := make([]string, len(weeks))
	for i, w := range weeks {
		weekIDs[i] = w.ID
	}

	var chapters []models.Chapter
	if len(weekIDs) > 0 {
		if chapters, err = s.repo.ChaptersByWeekIDs(ctx, weekIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load chapters")
		}
	}
	chapterIDs := make([]string, len(chapters))
	for i, c := range chapters {
		chapterIDs[i] = c.ID
	}

	var content []models.Content
	if len(chapterIDs) > 0 {
		if content, err = s.repo.ContentByChapterIDs(ctx, chapterIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
		}
	}

	teachers, err := s.repo.TeachersBySubjectIDs(ctx, subjectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject teachers")
	}

	contentByChapter := make(map[string][]models.Content)
	for _, item := range content {
		contentByChapter[item.ChapterID] = append(contentByChapter[item.ChapterID], item)
	}
	chaptersByWeek := make(map[string][]dto.ChapterNode)
	for _, ch := range chapters {
		chaptersByWeek[ch.WeekID] = append(chaptersByWeek[ch.WeekID], dto.ChapterNode{
			Chapter: ch,
			Content: orEmptyContent(contentByChapter[ch.ID]),
		})
	}
	weeksByTerm := make(map[string][]dto.WeekNode)
	for _, w := range weeks {
		nodes := chaptersByWeek[w.ID]
		if nodes == nil {
			nodes = []dto.ChapterNode{}
		}
		weeksByTerm[w.TermID] = append(weeksByTerm[w.TermID], dto.WeekNode{Week: w, Chapters: nodes})
	}
	termsBySubject := make(map[string][]dto.TermNode)
	for _, t := range terms {
		nodes := weeksByTerm[t.ID]
		if nodes == nil {
			nodes = []dto.WeekNode{}
		}
		termsBySubject[t.SubjectID] = append(termsBySubject[t.SubjectID], dto.TermNode{Term: t, Weeks: nodes})
	}
	teachersBySubject := make(map[string][]models.SubjectTeacher)
	for _, t := range teachers {
		teachersBySubject[t.SubjectID] = append(teachersBySubject[t.SubjectID], t)
	}

	for _, sub := range subjects {
		termNodes := termsBySubject[sub.ID]
		if termNodes == nil {
			termNodes = []dto.TermNode{}
		}
		teacherRows := teachersBySubject[sub.ID]
		if teacherRows == nil {
			teacherRows = []models.SubjectTeacher{}
		}
		trees = append(trees, dto.SubjectTree{Subject: sub, Terms: termNodes, Teachers: teacherRows})
	}
	return trees, nil
}

func (s *SubjectService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func orEmptyContent(items []models.Content) []models.Content {
	if items == nil {
		return []models.Content{}
	}
	return items
}
