package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zimlearn/console-api/internal/models"
	appErrors "github.com/zimlearn/console-api/pkg/errors"
)

type subjectRepoStub struct {
	subjects map[string]*models.Subject
	terms    []models.Term
	weeks    []models.Week
	chapters []models.Chapter
	content  []models.Content
	teachers []models.SubjectTeacher

	createdTeachers []models.SubjectTeacher
	recomputed      []string
}

func newSubjectRepoStub() *subjectRepoStub {
	return &subjectRepoStub{subjects: make(map[string]*models.Subject)}
}

func (s *subjectRepoStub) ListActive(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, error) {
	var result []models.Subject
	for _, sub := range s.subjects {
		if sub.IsActive {
			result = append(result, *sub)
		}
	}
	return result, nil
}

func (s *subjectRepoStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if sub, ok := s.subjects[id]; ok && sub.IsActive {
		dup := *sub
		return &dup, nil
	}
	return nil, sql.ErrNoRows
}

func (s *subjectRepoStub) CreateWithStructure(ctx context.Context, subject *models.Subject, teachers []models.SubjectTeacher) error {
	if subject.ID == "" {
		subject.ID = "sub-new"
	}
	subject.IsActive = true
	s.subjects[subject.ID] = subject
	s.createdTeachers = teachers
	for t := 1; t <= models.TermsPerSubject; t++ {
		s.terms = append(s.terms, models.Term{ID: fmt.Sprintf("%s-term-%d", subject.ID, t), SubjectID: subject.ID, OrderNumber: t})
	}
	return nil
}

func (s *subjectRepoStub) Update(ctx context.Context, subject *models.Subject) error {
	s.subjects[subject.ID] = subject
	return nil
}

func (s *subjectRepoStub) Deactivate(ctx context.Context, id string) error {
	if sub, ok := s.subjects[id]; ok {
		sub.IsActive = false
		return nil
	}
	return sql.ErrNoRows
}

func (s *subjectRepoStub) RecomputeStatistics(ctx context.Context, id string) error {
	s.recomputed = append(s.recomputed, id)
	return nil
}

func (s *subjectRepoStub) TermsBySubjectIDs(ctx context.Context, subjectIDs []string) ([]models.Term, error) {
	return s.terms, nil
}

func (s *subjectRepoStub) WeeksByTermIDs(ctx context.Context, termIDs []string) ([]models.Week, error) {
	return s.weeks, nil
}

func (s *subjectRepoStub) ChaptersByWeekIDs(ctx context.Context, weekIDs []string) ([]models.Chapter, error) {
	return s.chapters, nil
}

func (s *subjectRepoStub) ContentByChapterIDs(ctx context.Context, chapterIDs []string) ([]models.Content, error) {
	return s.content, nil
}

func (s *subjectRepoStub) TeachersBySubjectIDs(ctx context.Context, subjectIDs []string) ([]models.SubjectTeacher, error) {
	return s.teachers, nil
}

func TestSubjectServiceGetTreeStitchesHierarchy(t *testing.T) {
	repo := newSubjectRepoStub()
	repo.subjects["sub-1"] = &models.Subject{ID: "sub-1", Name: "Biology", IsActive: true}
	repo.terms = []models.Term{{ID: "term-1", SubjectID: "sub-1", Title: "Term 1", OrderNumber: 1}}
	repo.weeks = []models.Week{
		{ID: "week-1", TermID: "term-1", Title: "Week 1", OrderNumber: 1},
		{ID: "week-2", TermID: "term-1", Title: "Week 2", OrderNumber: 2},
	}
	repo.chapters = []models.Chapter{{ID: "ch-1", WeekID: "week-1", Title: "Cells", OrderNumber: 1}}
	repo.content = []models.Content{{ID: "con-1", ChapterID: "ch-1", Title: "Cell video", Type: models.KindVideo}}
	repo.teachers = []models.SubjectTeacher{{ID: "t-1", SubjectID: "sub-1", Name: "T Moyo"}}

	svc := NewSubjectService(repo, nil, nil, nil)
	tree, err := svc.GetTree(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Equal(t, "Biology", tree.Subject.Name)
	require.Len(t, tree.Terms, 1)
	require.Len(t, tree.Terms[0].Weeks, 2)
	require.Len(t, tree.Terms[0].Weeks[0].Chapters, 1)
	require.Len(t, tree.Terms[0].Weeks[0].Chapters[0].Content, 1)
	require.Empty(t, tree.Terms[0].Weeks[1].Chapters)
	require.NotNil(t, tree.Terms[0].Weeks[1].Chapters)
	require.Len(t, tree.Teachers, 1)
}

func TestSubjectServiceGetTreeNotFound(t *testing.T) {
	svc := NewSubjectService(newSubjectRepoStub(), nil, nil, nil)
	_, err := svc.GetTree(context.Background(), "missing")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceCreateInvalidatesDashboardCache(t *testing.T) {
	repo := newSubjectRepoStub()
	cache := &cacheInvalidatorStub{}
	svc := NewSubjectService(repo, cache, nil, nil)

	tree, err := svc.Create(context.Background(), models.CreateSubjectRequest{
		Name:      "Chemistry",
		Level:     models.LevelOLevel,
		ExamBoard: models.BoardZIMSEC,
		Teachers:  []models.SubjectTeacherInput{{Name: "S Dube", Email: "s.dube@example.com"}},
	})
	require.NoError(t, err)
	require.Equal(t, "Chemistry", tree.Subject.Name)
	require.Len(t, repo.createdTeachers, 1)
	require.Contains(t, cache.patterns, "dashboard:*")
}

func TestSubjectServiceCreateRejectsUnknownLevel(t *testing.T) {
	svc := NewSubjectService(newSubjectRepoStub(), nil, nil, nil)
	_, err := svc.Create(context.Background(), models.CreateSubjectRequest{
		Name:      "Chemistry",
		Level:     "Postgrad",
		ExamBoard: models.BoardZIMSEC,
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceDeleteSoftDeletes(t *testing.T) {
	repo := newSubjectRepoStub()
	repo.subjects["sub-1"] = &models.Subject{ID: "sub-1", Name: "Biology", IsActive: true}
	svc := NewSubjectService(repo, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "sub-1"))
	require.False(t, repo.subjects["sub-1"].IsActive)

	_, err := svc.GetTree(context.Background(), "sub-1")
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
