package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/zimlearn/console-api/internal/models"
	appErrors "github.com/zimlearn/console-api/pkg/errors"
)

type chapterRepository interface {
	FindByID(ctx context.Context, id string) (*models.Chapter, error)
	ListByWeek(ctx context.Context, weekID string) ([]models.Chapter, error)
	Create(ctx context.Context, chapter *models.Chapter) error
	Update(ctx context.Context, chapter *models.Chapter) error
	Delete(ctx context.Context, id string) error
	NextWeek(ctx context.Context, weekID string) (*models.Week, error)
}

type contentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Content, error)
	ListByChapter(ctx context.Context, chapterID string) ([]models.Content, error)
	Create(ctx context.Context, content *models.Content) error
	Update(ctx context.Context, content *models.Content) error
	Delete(ctx context.Context, id string) error
	Move(ctx context.Context, id string, direction models.MoveDirection) error
	IncrementViewCount(ctx context.Context, id string) error
	SubjectIDForContent(ctx context.Context, id string) (string, error)
	SubjectIDForChapter(ctx context.Context, chapterID string) (string, error)
}

type contentStatisticsRefresher interface {
	RecomputeStatistics(ctx context.Context, subjectID string) error
}

type blobDeleter interface {
	Delete(bucket, relPath string) error
}

// ContentService owns chapters and content items: creation with
// server-assigned ordering, the continuation flow, reordering and deletion
// with best-effort blob cleanup.
type ContentService struct {
	chapters  chapterRepository
	content   contentRepository
	subjects  contentStatisticsRefresher
	blobs     blobDeleter
	cache     subjectCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewContentService constructs a ContentService.
func NewContentService(chapters chapterRepository, content contentRepository, subjects contentStatisticsRefresher, blobs blobDeleter, cache subjectCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ContentService{
		chapters:  chapters,
		content:   content,
		subjects:  subjects,
		blobs:     blobs,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// ListChapters returns a week's chapters in display order.
func (s *ContentService) ListChapters(ctx context.Context, weekID string) ([]models.Chapter, error) {
	chapters, err := s.chapters.ListByWeek(ctx, weekID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list chapters")
	}
	return chapters, nil
}

// CreateChapter adds a chapter to a week. Order is assigned server-side.
func (s *ContentService) CreateChapter(ctx context.Context, weekID string, req models.CreateChapterRequest) (*models.Chapter, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid chapter payload")
	}

	chapter := models.Chapter{
		WeekID:      weekID,
		Title:       req.Title,
		Description: req.Description,
	}
	if err := s.chapters.Create(ctx, &chapter); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create chapter")
	}
	return &chapter, nil
}

// UpdateChapter modifies a chapter's title and description.
func (s *ContentService) UpdateChapter(ctx context.Context, id string, req models.UpdateChapterRequest) (*models.Chapter, error) {
	chapter, err := s.chapters.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "chapter not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load chapter")
	}

	if req.Title != nil {
		chapter.Title = *req.Title
	}
	if req.Description != nil {
		chapter.Description = req.Description
	}

	if err := s.chapters.Update(ctx, chapter); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "chapter not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update chapter")
	}
	return chapter, nil
}

// DeleteChapter removes a chapter and its content.
func (s *ContentService) DeleteChapter(ctx context.Context, id string) error {
	subjectID, err := s.content.SubjectIDForChapter(ctx, id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve chapter subject")
	}

	if err := s.chapters.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "chapter not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete chapter")
	}

	s.refreshSubject(ctx, subjectID)
	s.invalidateDashboard(ctx)
	return nil
}

// ContinueChapter copies a chapter into the next sibling week as a
// continuation: same title and description, a back-reference to the source,
// and a fresh order slot in the target week.
func (s *ContentService) ContinueChapter(ctx context.Context, id string) (*models.Chapter, error) {
	source, err := s.chapters.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "chapter not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load chapter")
	}

	nextWeek, err := s.chapters.NextWeek(ctx, source.WeekID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "chapter is in the last week of the subject")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve next week")
	}

	originalID := source.OriginalChapterID
	if originalID == nil {
		originalID = &source.ID
	}
	continuation := models.Chapter{
		WeekID:            nextWeek.ID,
		Title:             source.Title,
		Description:       source.Description,
		IsContinuation:    true,
		OriginalChapterID: originalID,
	}
	if err := s.chapters.Create(ctx, &continuation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create continuation chapter")
	}

	s.logger.Info("chapter continued",
		zap.String("source_chapter_id", source.ID),
		zap.String("continuation_id", continuation.ID),
		zap.String("target_week_id", nextWeek.ID))
	return &continuation, nil
}

// ListContent returns a chapter's content in display order.
func (s *ContentService) ListContent(ctx context.Context, chapterID string) ([]models.Content, error) {
	items, err := s.content.ListByChapter(ctx, chapterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list content")
	}
	return items, nil
}

// GetContent loads one content item and bumps its view counter. The bump is
// best-effort: a failed counter write never fails the read.
func (s *ContentService) GetContent(ctx context.Context, id string) (*models.Content, error) {
	item, err := s.content.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	if err := s.content.IncrementViewCount(ctx, id); err != nil {
		s.logger.Warn("failed to bump view count", zap.String("content_id", id), zap.Error(err))
	} else {
		item.ViewCount++
	}
	return item, nil
}

// CreateContent adds a content item to a chapter with a server-assigned
// order slot. New items default to draft status.
func (s *ContentService) CreateContent(ctx context.Context, chapterID string, createdBy string, req models.CreateContentRequest) (*models.Content, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid content payload")
	}

	if _, err := s.chapters.FindByID(ctx, chapterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "chapter not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load chapter")
	}

	status := req.Status
	if status == "" {
		status = models.StatusDraft
	}
	if req.Type == models.KindQuiz && req.QuizData == nil {
		req.QuizData = &models.QuizData{Method: models.QuizMethodManual}
	}

	item := models.Content{
		ChapterID:          chapterID,
		Title:              req.Title,
		Type:               req.Type,
		Description:        req.Description,
		FileURL:            req.FileURL,
		FileSize:           req.FileSize,
		Duration:           req.Duration,
		EstimatedStudyTime: req.EstimatedStudyTime,
		Status:             status,
		Tags:               pq.StringArray(req.Tags),
		QuizData:           req.QuizData,
	}
	if createdBy != "" {
		item.CreatedBy = &createdBy
	}

	if err := s.content.Create(ctx, &item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create content")
	}

	if subjectID, err := s.content.SubjectIDForContent(ctx, item.ID); err == nil {
		s.refreshSubject(ctx, subjectID)
	}
	s.invalidateDashboard(ctx)
	return &item, nil
}

// UpdateContent modifies a content item.
func (s *ContentService) UpdateContent(ctx context.Context, id string, req models.UpdateContentRequest) (*models.Content, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid content payload")
	}

	item, err := s.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Description != nil {
		item.Description = req.Description
	}
	if req.FileURL != nil {
		item.FileURL = req.FileURL
	}
	if req.FileSize != nil {
		item.FileSize = req.FileSize
	}
	if req.Duration != nil {
		item.Duration = req.Duration
	}
	if req.EstimatedStudyTime != nil {
		item.EstimatedStudyTime = req.EstimatedStudyTime
	}
	if req.Status != nil {
		item.Status = *req.Status
	}
	if req.Tags != nil {
		item.Tags = pq.StringArray(req.Tags)
	}
	if req.QuizData != nil {
		item.QuizData = req.QuizData
	}

	if err := s.content.Update(ctx, item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update content")
	}
	s.invalidateDashboard(ctx)
	return item, nil
}

// DeleteContent removes the row first, then deletes the stored file as a
// best effort. A failed blob delete is logged, never surfaced: the row is
// authoritative and orphaned files are swept by the cleanup job.
func (s *ContentService) DeleteContent(ctx context.Context, id string) error {
	item, err := s.GetContent(ctx, id)
	if err != nil {
		return err
	}
	subjectID, _ := s.content.SubjectIDForContent(ctx, id)

	if err := s.content.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete content")
	}

	if item.FileURL != nil && s.blobs != nil {
		if bucket, relPath, ok := ParseFileURL(*item.FileURL); ok {
			if err := s.blobs.Delete(bucket, relPath); err != nil {
				s.logger.Warn("failed to delete content blob",
					zap.String("content_id", id),
					zap.String("bucket", bucket),
					zap.String("path", relPath),
					zap.Error(err))
			}
		}
	}

	s.refreshSubject(ctx, subjectID)
	s.invalidateDashboard(ctx)
	return nil
}

// MoveContent swaps a content item with its adjacent sibling.
func (s *ContentService) MoveContent(ctx context.Context, id string, req models.MoveContentRequest) ([]models.Content, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid move payload")
	}

	item, err := s.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.content.Move(ctx, id, req.Direction); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move content")
	}

	return s.ListContent(ctx, item.ChapterID)
}

func (s *ContentService) refreshSubject(ctx context.Context, subjectID string) {
	if subjectID == "" || s.subjects == nil {
		return
	}
	if err := s.subjects.RecomputeStatistics(ctx, subjectID); err != nil {
		s.logger.Warn("failed to refresh subject statistics", zap.String("subject_id", subjectID), zap.Error(err))
	}
}

func (s *ContentService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

// ParseFileURL extracts the bucket and relative path from a download URL of
// the form .../files/{bucket}/{path}. Query strings are ignored.
func ParseFileURL(fileURL string) (bucket, relPath string, ok bool) {
	if i := strings.IndexByte(fileURL, '?'); i >= 0 {
		fileURL = fileURL[:i]
	}
	const marker = "/files/"
	i := strings.Index(fileURL, marker)
	if i < 0 {
		return "", "", false
	}
	rest := fileURL[i+len(marker):]
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
