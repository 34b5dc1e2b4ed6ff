package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zimlearn/console-api/internal/models"
	appErrors "github.com/zimlearn/console-api/pkg/errors"
	"github.com/zimlearn/console-api/pkg/export"
)

type quizRepoStub struct {
	questions map[string][]models.QuizQuestion
	attempts  []models.QuizAttempt
	stats     models.QuizStatistics
	lastLimit int
}

func newQuizRepoStub() *quizRepoStub {
	return &quizRepoStub{questions: make(map[string][]models.QuizQuestion)}
}

func (s *quizRepoStub) FindQuestion(ctx context.Context, id string) (*models.QuizQuestion, error) {
	for _, list := range s.questions {
		for _, q := range list {
			if q.ID == id {
				copy := q
				return &copy, nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

func (s *quizRepoStub) ListQuestions(ctx context.Context, contentID string) ([]models.QuizQuestion, error) {
	return s.questions[contentID], nil
}

func (s *quizRepoStub) CreateQuestions(ctx context.Context, contentID string, questions []models.QuizQuestion) error {
	base := len(s.questions[contentID])
	for i := range questions {
		questions[i].ContentID = contentID
		questions[i].OrderNumber = base + i + 1
	}
	s.questions[contentID] = append(s.questions[contentID], questions...)
	return nil
}

func (s *quizRepoStub) UpdateQuestion(ctx context.Context, question *models.QuizQuestion) error {
	list := s.questions[question.ContentID]
	for i := range list {
		if list[i].ID == question.ID {
			list[i] = *question
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *quizRepoStub) DeleteQuestion(ctx context.Context, id string) error {
	for contentID, list := range s.questions {
		for i := range list {
			if list[i].ID == id {
				s.questions[contentID] = append(list[:i], list[i+1:]...)
				return nil
			}
		}
	}
	return sql.ErrNoRows
}

func (s *quizRepoStub) CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	s.attempts = append(s.attempts, *attempt)
	return nil
}

func (s *quizRepoStub) ListAttempts(ctx context.Context, contentID, userID string) ([]models.QuizAttempt, error) {
	return s.attempts, nil
}

func (s *quizRepoStub) Statistics(ctx context.Context, contentID string) (*models.QuizStatistics, error) {
	stats := s.stats
	stats.TotalQuestions = len(s.questions[contentID])
	return &stats, nil
}

func (s *quizRepoStub) Leaderboard(ctx context.Context, contentID string, limit int) ([]models.LeaderboardEntry, error) {
	s.lastLimit = limit
	return nil, nil
}

type quizContentStub struct {
	content map[string]*models.Content
	updated int
}

func (s *quizContentStub) FindByID(ctx context.Context, id string) (*models.Content, error) {
	if c, ok := s.content[id]; ok {
		copy := *c
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *quizContentStub) Update(ctx context.Context, content *models.Content) error {
	s.updated++
	s.content[content.ID] = content
	return nil
}

type exporterStub struct {
	lastData export.Dataset
}

func (s *exporterStub) Render(data export.Dataset) ([]byte, error) {
	s.lastData = data
	return []byte("csv"), nil
}

type pdfExporterStub struct {
	lastTitle string
}

func (s *pdfExporterStub) Render(data export.Dataset, title string) ([]byte, error) {
	s.lastTitle = title
	return []byte("pdf"), nil
}

func strPtr(v string) *string { return &v }

func newQuizFixture(t *testing.T) (*QuizService, *quizRepoStub, *quizContentStub) {
	repo := newQuizRepoStub()
	content := &quizContentStub{content: map[string]*models.Content{
		"quiz-1": {ID: "quiz-1", Title: "Algebra quiz", Type: models.KindQuiz},
		"vid-1":  {ID: "vid-1", Title: "Intro video", Type: models.KindVideo},
	}}
	svc, err := NewQuizService(repo, content, &exporterStub{}, &pdfExporterStub{}, QuizServiceConfig{ImportMaxQuestions: 3}, nil, nil)
	require.NoError(t, err)
	return svc, repo, content
}

func TestQuizServiceCreateQuestionsAppliesDraftRule(t *testing.T) {
	svc, _, content := newQuizFixture(t)

	questions, err := svc.CreateQuestions(context.Background(), "quiz-1", models.CreateQuestionsRequest{
		Questions: []models.QuizQuestionInput{
			{QuestionText: "  2 + 2 = ?  ", AnswerA: "4", AnswerB: "5", CorrectAnswer: models.AnswerA},
		},
	})
	require.NoError(t, err)
	require.Len(t, questions, 1)
	require.Equal(t, "2 + 2 = ?", questions[0].QuestionText)
	require.Equal(t, 1, questions[0].Points)
	require.Equal(t, 1, content.updated)
}

func TestQuizServiceCreateQuestionsRejectsBlankText(t *testing.T) {
	svc, _, _ := newQuizFixture(t)

	_, err := svc.CreateQuestions(context.Background(), "quiz-1", models.CreateQuestionsRequest{
		Questions: []models.QuizQuestionInput{
			{QuestionText: "   ", AnswerA: "4", AnswerB: "5", CorrectAnswer: models.AnswerA},
		},
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestQuizServiceCreateQuestionsRejectsCorrectAnswerWithoutOption(t *testing.T) {
	svc, _, _ := newQuizFixture(t)

	_, err := svc.CreateQuestions(context.Background(), "quiz-1", models.CreateQuestionsRequest{
		Questions: []models.QuizQuestionInput{
			{QuestionText: "Pick one", AnswerA: "yes", AnswerB: "no", AnswerC: strPtr("  "), CorrectAnswer: models.AnswerC},
		},
	})
	require.Error(t, err)
	require.Contains(t, appErrors.FromError(err).Message, "correct answer C")
}

func TestQuizServiceCreateQuestionsRejectsNonQuizContent(t *testing.T) {
	svc, _, _ := newQuizFixture(t)

	_, err := svc.CreateQuestions(context.Background(), "vid-1", models.CreateQuestionsRequest{
		Questions: []models.QuizQuestionInput{
			{QuestionText: "Q", AnswerA: "a", AnswerB: "b", CorrectAnswer: models.AnswerA},
		},
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestQuizServiceImportQuestionsValidDocument(t *testing.T) {
	svc, repo, _ := newQuizFixture(t)

	document := []byte(`{"questions":[
		{"question_text":"2 + 2 = ?","answer_a":"4","answer_b":"5","correct_answer":"A"},
		{"question_text":"3 x 3 = ?","answer_a":"6","answer_b":"9","correct_answer":"B","points":2}
	]}`)
	questions, err := svc.ImportQuestions(context.Background(), "quiz-1", document)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	require.Len(t, repo.questions["quiz-1"], 2)
}

func TestQuizServiceImportQuestionsRejectsSchemaViolation(t *testing.T) {
	svc, repo, _ := newQuizFixture(t)

	document := []byte(`{"questions":[{"question_text":"missing answers","correct_answer":"A"}]}`)
	_, err := svc.ImportQuestions(context.Background(), "quiz-1", document)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.Empty(t, repo.questions["quiz-1"])
}

func TestQuizServiceImportQuestionsEnforcesLimit(t *testing.T) {
	svc, _, _ := newQuizFixture(t)

	document := []byte(`{"questions":[
		{"question_text":"q1","answer_a":"a","answer_b":"b","correct_answer":"A"},
		{"question_text":"q2","answer_a":"a","answer_b":"b","correct_answer":"A"},
		{"question_text":"q3","answer_a":"a","answer_b":"b","correct_answer":"A"},
		{"question_text":"q4","answer_a":"a","answer_b":"b","correct_answer":"A"}
	]}`)
	_, err := svc.ImportQuestions(context.Background(), "quiz-1", document)
	require.Error(t, err)
	require.Contains(t, appErrors.FromError(err).Message, "question limit")
}

func TestQuizServiceRecordAttemptDerivesPercentage(t *testing.T) {
	svc, repo, _ := newQuizFixture(t)

	attempt, err := svc.RecordAttempt(context.Background(), "quiz-1", "user-1", models.CreateAttemptRequest{
		Score:          7,
		TotalQuestions: 10,
	})
	require.NoError(t, err)
	require.InDelta(t, 70.0, attempt.Percentage, 0.001)
	require.Len(t, repo.attempts, 1)
}

func TestQuizServiceRecordAttemptAcceptsObjectShapedAnswers(t *testing.T) {
	svc, repo, _ := newQuizFixture(t)

	body := []byte(`{"score":2,"total_questions":3,"answers":{"q1":"A","q2":"C"}}`)
	var req models.CreateAttemptRequest
	require.NoError(t, json.Unmarshal(body, &req))

	attempt, err := svc.RecordAttempt(context.Background(), "quiz-1", "user-1", req)
	require.NoError(t, err)
	require.JSONEq(t, `{"q1":"A","q2":"C"}`, string(attempt.Answers))
	require.Len(t, repo.attempts, 1)
}

func TestQuizServiceRecordAttemptRejectsScoreAboveTotal(t *testing.T) {
	svc, _, _ := newQuizFixture(t)

	_, err := svc.RecordAttempt(context.Background(), "quiz-1", "user-1", models.CreateAttemptRequest{
		Score:          11,
		TotalQuestions: 10,
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestQuizServiceLeaderboardUsesDefaultLimit(t *testing.T) {
	svc, repo, _ := newQuizFixture(t)

	_, err := svc.Leaderboard(context.Background(), "quiz-1", 0)
	require.NoError(t, err)
	require.Equal(t, 10, repo.lastLimit)
}

func TestQuizServiceExportQuestionsPDFUsesContentTitle(t *testing.T) {
	repo := newQuizRepoStub()
	content := &quizContentStub{content: map[string]*models.Content{
		"quiz-1": {ID: "quiz-1", Title: "Algebra quiz", Type: models.KindQuiz},
	}}
	pdf := &pdfExporterStub{}
	svc, err := NewQuizService(repo, content, &exporterStub{}, pdf, QuizServiceConfig{}, nil, nil)
	require.NoError(t, err)

	payload, contentType, err := svc.ExportQuestions(context.Background(), "quiz-1", "")
	require.NoError(t, err)
	require.Equal(t, "application/pdf", contentType)
	require.Equal(t, []byte("pdf"), payload)
	require.Equal(t, "Algebra quiz", pdf.lastTitle)
}

func TestQuizServiceExportQuestionsRejectsUnknownFormat(t *testing.T) {
	svc, _, _ := newQuizFixture(t)

	_, _, err := svc.ExportQuestions(context.Background(), "quiz-1", "xlsx")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
