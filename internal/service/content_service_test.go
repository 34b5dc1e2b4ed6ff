package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zimlearn/console-api/internal/models"
	appErrors "github.com/zimlearn/console-api/pkg/errors"
)

type chapterRepoStub struct {
	chapters map[string]*models.Chapter
	nextWeek *models.Week
	created  []*models.Chapter
}

func newChapterRepoStub() *chapterRepoStub {
	return &chapterRepoStub{chapters: make(map[string]*models.Chapter)}
}

func (s *chapterRepoStub) FindByID(ctx context.Context, id string) (*models.Chapter, error) {
	if ch, ok := s.chapters[id]; ok {
		copy := *ch
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *chapterRepoStub) ListByWeek(ctx context.Context, weekID string) ([]models.Chapter, error) {
	var result []models.Chapter
	for _, ch := range s.chapters {
		if ch.WeekID == weekID {
			result = append(result, *ch)
		}
	}
	return result, nil
}

func (s *chapterRepoStub) Create(ctx context.Context, chapter *models.Chapter) error {
	if chapter.ID == "" {
		chapter.ID = "ch-new"
	}
	chapter.OrderNumber = len(s.created) + 1
	s.chapters[chapter.ID] = chapter
	s.created = append(s.created, chapter)
	return nil
}

func (s *chapterRepoStub) Update(ctx context.Context, chapter *models.Chapter) error {
	if _, ok := s.chapters[chapter.ID]; !ok {
		return sql.ErrNoRows
	}
	s.chapters[chapter.ID] = chapter
	return nil
}

func (s *chapterRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.chapters[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.chapters, id)
	return nil
}

func (s *chapterRepoStub) NextWeek(ctx context.Context, weekID string) (*models.Week, error) {
	if s.nextWeek == nil {
		return nil, sql.ErrNoRows
	}
	return s.nextWeek, nil
}

type contentRepoStub struct {
	items     map[string]*models.Content
	moved     []models.MoveDirection
	viewed    []string
	subjectID string
}

func newContentRepoStub() *contentRepoStub {
	return &contentRepoStub{items: make(map[string]*models.Content), subjectID: "sub-1"}
}

func (s *contentRepoStub) FindByID(ctx context.Context, id string) (*models.Content, error) {
	if c, ok := s.items[id]; ok {
		copy := *c
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *contentRepoStub) ListByChapter(ctx context.Context, chapterID string) ([]models.Content, error) {
	var result []models.Content
	for _, c := range s.items {
		if c.ChapterID == chapterID {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (s *contentRepoStub) Create(ctx context.Context, content *models.Content) error {
	if content.ID == "" {
		content.ID = "con-new"
	}
	content.OrderNumber = len(s.items) + 1
	s.items[content.ID] = content
	return nil
}

func (s *contentRepoStub) Update(ctx context.Context, content *models.Content) error {
	if _, ok := s.items[content.ID]; !ok {
		return sql.ErrNoRows
	}
	s.items[content.ID] = content
	return nil
}

func (s *contentRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.items, id)
	return nil
}

func (s *contentRepoStub) Move(ctx context.Context, id string, direction models.MoveDirection) error {
	if _, ok := s.items[id]; !ok {
		return sql.ErrNoRows
	}
	s.moved = append(s.moved, direction)
	return nil
}

func (s *contentRepoStub) IncrementViewCount(ctx context.Context, id string) error {
	if c, ok := s.items[id]; ok {
		c.ViewCount++
	}
	s.viewed = append(s.viewed, id)
	return nil
}

func (s *contentRepoStub) SubjectIDForContent(ctx context.Context, id string) (string, error) {
	return s.subjectID, nil
}

func (s *contentRepoStub) SubjectIDForChapter(ctx context.Context, chapterID string) (string, error) {
	return s.subjectID, nil
}

type statsRefresherStub struct {
	refreshed []string
}

func (s *statsRefresherStub) RecomputeStatistics(ctx context.Context, subjectID string) error {
	s.refreshed = append(s.refreshed, subjectID)
	return nil
}

type blobDeleterStub struct {
	deleted [][2]string
}

func (s *blobDeleterStub) Delete(bucket, relPath string) error {
	s.deleted = append(s.deleted, [2]string{bucket, relPath})
	return nil
}

type cacheInvalidatorStub struct {
	patterns []string
}

func (s *cacheInvalidatorStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	return nil
}

func newContentFixture() (*ContentService, *chapterRepoStub, *contentRepoStub, *statsRefresherStub, *blobDeleterStub, *cacheInvalidatorStub) {
	chapters := newChapterRepoStub()
	content := newContentRepoStub()
	stats := &statsRefresherStub{}
	blobs := &blobDeleterStub{}
	cache := &cacheInvalidatorStub{}
	svc := NewContentService(chapters, content, stats, blobs, cache, nil, nil)
	return svc, chapters, content, stats, blobs, cache
}

func TestContentServiceContinueChapterCopiesIntoNextWeek(t *testing.T) {
	svc, chapters, _, _, _, _ := newContentFixture()
	desc := "Covers cell structure"
	chapters.chapters["ch-1"] = &models.Chapter{ID: "ch-1", WeekID: "week-5", Title: "Cells", Description: &desc}
	chapters.nextWeek = &models.Week{ID: "week-6", TermID: "term-1", Title: "Week 6", OrderNumber: 6}

	continuation, err := svc.ContinueChapter(context.Background(), "ch-1")
	require.NoError(t, err)
	require.Equal(t, "week-6", continuation.WeekID)
	require.Equal(t, "Cells", continuation.Title)
	require.True(t, continuation.IsContinuation)
	require.NotNil(t, continuation.OriginalChapterID)
	require.Equal(t, "ch-1", *continuation.OriginalChapterID)
}

func TestContentServiceContinueChapterChainsPointAtRoot(t *testing.T) {
	svc, chapters, _, _, _, _ := newContentFixture()
	rootID := "ch-root"
	chapters.chapters["ch-2"] = &models.Chapter{ID: "ch-2", WeekID: "week-6", Title: "Cells", IsContinuation: true, OriginalChapterID: &rootID}
	chapters.nextWeek = &models.Week{ID: "week-7", TermID: "term-1", Title: "Week 7", OrderNumber: 7}

	continuation, err := svc.ContinueChapter(context.Background(), "ch-2")
	require.NoError(t, err)
	require.Equal(t, "ch-root", *continuation.OriginalChapterID)
}

func TestContentServiceContinueChapterLastWeekFails(t *testing.T) {
	svc, chapters, _, _, _, _ := newContentFixture()
	chapters.chapters["ch-1"] = &models.Chapter{ID: "ch-1", WeekID: "week-39", Title: "Revision"}
	chapters.nextWeek = nil

	_, err := svc.ContinueChapter(context.Background(), "ch-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestContentServiceCreateContentDefaultsDraftAndQuizData(t *testing.T) {
	svc, chapters, _, stats, _, cache := newContentFixture()
	chapters.chapters["ch-1"] = &models.Chapter{ID: "ch-1", WeekID: "week-1", Title: "Algebra"}

	item, err := svc.CreateContent(context.Background(), "ch-1", "admin-1", models.CreateContentRequest{
		Title: "End of topic quiz",
		Type:  models.KindQuiz,
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusDraft, item.Status)
	require.NotNil(t, item.QuizData)
	require.Equal(t, models.QuizMethodManual, item.QuizData.Method)
	require.NotNil(t, item.CreatedBy)
	require.Equal(t, "admin-1", *item.CreatedBy)
	require.Equal(t, []string{"sub-1"}, stats.refreshed)
	require.Contains(t, cache.patterns, "dashboard:*")
}

func TestContentServiceGetContentBumpsViewCount(t *testing.T) {
	svc, _, content, _, _, _ := newContentFixture()
	content.items["con-1"] = &models.Content{ID: "con-1", ChapterID: "ch-1", Title: "Photosynthesis", ViewCount: 4}

	item, err := svc.GetContent(context.Background(), "con-1")
	require.NoError(t, err)
	require.Equal(t, 5, item.ViewCount)
	require.Equal(t, []string{"con-1"}, content.viewed)

	item, err = svc.GetContent(context.Background(), "con-1")
	require.NoError(t, err)
	require.Equal(t, 6, item.ViewCount)
}

func TestContentServiceDeleteContentRemovesRowThenBlob(t *testing.T) {
	svc, _, content, _, blobs, _ := newContentFixture()
	fileURL := "http://localhost:8080/api/v1/files/content-files/video/con-1-123.mp4?token=abc"
	content.items["con-1"] = &models.Content{ID: "con-1", ChapterID: "ch-1", Title: "Intro", Type: models.KindVideo, FileURL: &fileURL}

	err := svc.DeleteContent(context.Background(), "con-1")
	require.NoError(t, err)
	require.Empty(t, content.items)
	require.Len(t, blobs.deleted, 1)
	require.Equal(t, "content-files", blobs.deleted[0][0])
	require.Equal(t, "video/con-1-123.mp4", blobs.deleted[0][1])
}

func TestContentServiceMoveContentReturnsSiblings(t *testing.T) {
	svc, _, content, _, _, _ := newContentFixture()
	content.items["con-1"] = &models.Content{ID: "con-1", ChapterID: "ch-1", Title: "First"}
	content.items["con-2"] = &models.Content{ID: "con-2", ChapterID: "ch-1", Title: "Second"}

	siblings, err := svc.MoveContent(context.Background(), "con-2", models.MoveContentRequest{Direction: models.MoveUp})
	require.NoError(t, err)
	require.Len(t, siblings, 2)
	require.Equal(t, []models.MoveDirection{models.MoveUp}, content.moved)
}

func TestParseFileURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		bucket  string
		relPath string
		ok      bool
	}{
		{"with token", "http://host/api/v1/files/content-files/pdf/x.pdf?token=t", "content-files", "pdf/x.pdf", true},
		{"nested path", "/api/v1/files/quiz-images/quiz-1-q0-170.png", "quiz-images", "quiz-1-q0-170.png", true},
		{"no marker", "http://host/downloads/x.pdf", "", "", false},
		{"missing path", "http://host/api/v1/files/content-files", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bucket, relPath, ok := ParseFileURL(tc.url)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.bucket, bucket)
			require.Equal(t, tc.relPath, relPath)
		})
	}
}
