package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/zimlearn/console-api/internal/models"
	appErrors "github.com/zimlearn/console-api/pkg/errors"
	"github.com/zimlearn/console-api/pkg/export"
)

// questionImportSchema constrains uploaded quiz documents before any row is
// written. Mirrors the draft rule: text plus answers A and B required,
// correct answer one of A-D.
const questionImportSchema = `{
	"type": "object",
	"required": ["questions"],
	"properties": {
		"questions": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["question_text", "answer_a", "answer_b", "correct_answer"],
				"properties": {
					"question_text": {"type": "string", "minLength": 1},
					"question_image_url": {"type": "string"},
					"answer_a": {"type": "string", "minLength": 1},
					"answer_b": {"type": "string", "minLength": 1},
					"answer_c": {"type": "string"},
					"answer_d": {"type": "string"},
					"answer_a_image_url": {"type": "string"},
					"answer_b_image_url": {"type": "string"},
					"answer_c_image_url": {"type": "string"},
					"answer_d_image_url": {"type": "string"},
					"correct_answer": {"type": "string", "enum": ["A", "B", "C", "D"]},
					"explanation": {"type": "string"},
					"points": {"type": "integer", "minimum": 1}
				}
			}
		}
	}
}`

type quizRepository interface {
	FindQuestion(ctx context.Context, id string) (*models.QuizQuestion, error)
	ListQuestions(ctx context.Context, contentID string) ([]models.QuizQuestion, error)
	CreateQuestions(ctx context.Context, contentID string, questions []models.QuizQuestion) error
	UpdateQuestion(ctx context.Context, question *models.QuizQuestion) error
	DeleteQuestion(ctx context.Context, id string) error
	CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error
	ListAttempts(ctx context.Context, contentID, userID string) ([]models.QuizAttempt, error)
	Statistics(ctx context.Context, contentID string) (*models.QuizStatistics, error)
	Leaderboard(ctx context.Context, contentID string, limit int) ([]models.LeaderboardEntry, error)
}

type quizContentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Content, error)
	Update(ctx context.Context, content *models.Content) error
}

type tableExporter interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfTableExporter interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// QuizServiceConfig bounds authoring payloads.
type QuizServiceConfig struct {
	ImportMaxQuestions int
	LeaderboardLimit   int
}

// QuizService owns question authoring, the JSON import pipeline, attempts
// and derived statistics.
type QuizService struct {
	repo      quizRepository
	content   quizContentRepository
	csv       tableExporter
	pdf       pdfTableExporter
	schema    *gojsonschema.Schema
	config    QuizServiceConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewQuizService constructs a QuizService. The import schema is compiled
// once at startup.
func NewQuizService(repo quizRepository, content quizContentRepository, csv tableExporter, pdf pdfTableExporter, config QuizServiceConfig, validate *validator.Validate, logger *zap.Logger) (*QuizService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.ImportMaxQuestions <= 0 {
		config.ImportMaxQuestions = 100
	}
	if config.LeaderboardLimit <= 0 {
		config.LeaderboardLimit = 10
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(questionImportSchema))
	if err != nil {
		return nil, fmt.Errorf("compile question import schema: %w", err)
	}

	return &QuizService{
		repo:      repo,
		content:   content,
		csv:       csv,
		pdf:       pdf,
		schema:    schema,
		config:    config,
		validator: validate,
		logger:    logger,
	}, nil
}

// ListQuestions returns a quiz's questions in order.
func (s *QuizService) ListQuestions(ctx context.Context, contentID string) ([]models.QuizQuestion, error) {
	if _, err := s.quizContent(ctx, contentID); err != nil {
		return nil, err
	}
	questions, err := s.repo.ListQuestions(ctx, contentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}
	return questions, nil
}

// CreateQuestions bulk-creates questions for a quiz. Each question must
// satisfy the draft rule: non-blank trimmed text and answers A and B, and a
// correct answer that points at a provided option.
func (s *QuizService) CreateQuestions(ctx context.Context, contentID string, req models.CreateQuestionsRequest) ([]models.QuizQuestion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid questions payload")
	}
	if _, err := s.quizContent(ctx, contentID); err != nil {
		return nil, err
	}

	rows := make([]models.QuizQuestion, 0, len(req.Questions))
	for i, input := range req.Questions {
		question, err := buildQuestion(input)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d: %v", i+1, err))
		}
		rows = append(rows, *question)
	}

	if err := s.repo.CreateQuestions(ctx, contentID, rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create questions")
	}
	s.refreshQuizData(ctx, contentID)
	return s.repo.ListQuestions(ctx, contentID)
}

// ImportQuestions validates an uploaded JSON document against the question
// schema, then bulk-inserts. Nothing is written on a schema failure.
func (s *QuizService) ImportQuestions(ctx context.Context, contentID string, document []byte) ([]models.QuizQuestion, error) {
	if _, err := s.quizContent(ctx, contentID); err != nil {
		return nil, err
	}

	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "document is not valid JSON")
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid quiz document: "+strings.Join(details, "; "))
	}

	var payload struct {
		Questions []models.QuizQuestionInput `json:"questions"`
	}
	if err := json.Unmarshal(document, &payload); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "document is not valid JSON")
	}
	if len(payload.Questions) > s.config.ImportMaxQuestions {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("import exceeds the %d question limit", s.config.ImportMaxQuestions))
	}

	return s.CreateQuestions(ctx, contentID, models.CreateQuestionsRequest{Questions: payload.Questions})
}

// UpdateQuestion modifies a question, re-checking the draft rule.
func (s *QuizService) UpdateQuestion(ctx context.Context, id string, input models.QuizQuestionInput) (*models.QuizQuestion, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid question payload")
	}

	existing, err := s.repo.FindQuestion(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}

	updated, err := buildQuestion(input)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	updated.ID = existing.ID
	updated.ContentID = existing.ContentID
	updated.OrderNumber = existing.OrderNumber
	updated.CreatedAt = existing.CreatedAt

	if err := s.repo.UpdateQuestion(ctx, updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update question")
	}
	s.refreshQuizData(ctx, existing.ContentID)
	return updated, nil
}

// DeleteQuestion removes a question; remaining questions close the gap.
func (s *QuizService) DeleteQuestion(ctx context.Context, id string) error {
	existing, err := s.repo.FindQuestion(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}

	if err := s.repo.DeleteQuestion(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete question")
	}
	s.refreshQuizData(ctx, existing.ContentID)
	return nil
}

// RecordAttempt stores one completed quiz run. The percentage is derived
// server-side from score over total questions.
func (s *QuizService) RecordAttempt(ctx context.Context, contentID, userID string, req models.CreateAttemptRequest) (*models.QuizAttempt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attempt payload")
	}
	if _, err := s.quizContent(ctx, contentID); err != nil {
		return nil, err
	}
	if req.Score > req.TotalQuestions {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score cannot exceed total questions")
	}

	attempt := &models.QuizAttempt{
		ContentID:      contentID,
		UserID:         userID,
		Score:          req.Score,
		TotalQuestions: req.TotalQuestions,
		Percentage:     float64(req.Score) / float64(req.TotalQuestions) * 100,
		TimeTaken:      req.TimeTaken,
		Answers:        req.Answers,
		CompletedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateAttempt(ctx, attempt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attempt")
	}
	return attempt, nil
}

// ListAttempts returns a user's attempts for a quiz, newest first.
func (s *QuizService) ListAttempts(ctx context.Context, contentID, userID string) ([]models.QuizAttempt, error) {
	attempts, err := s.repo.ListAttempts(ctx, contentID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attempts")
	}
	return attempts, nil
}

// Statistics aggregates question and attempt facts for a quiz.
func (s *QuizService) Statistics(ctx context.Context, contentID string) (*models.QuizStatistics, error) {
	if _, err := s.quizContent(ctx, contentID); err != nil {
		return nil, err
	}
	stats, err := s.repo.Statistics(ctx, contentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute statistics")
	}
	return stats, nil
}

// Leaderboard returns the best attempt per user for a quiz.
func (s *QuizService) Leaderboard(ctx context.Context, contentID string, limit int) ([]models.LeaderboardEntry, error) {
	if _, err := s.quizContent(ctx, contentID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.config.LeaderboardLimit
	}
	entries, err := s.repo.Leaderboard(ctx, contentID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build leaderboard")
	}
	return entries, nil
}

// ExportQuestions renders a quiz's question paper as CSV or PDF bytes plus
// the response content type.
func (s *QuizService) ExportQuestions(ctx context.Context, contentID, format string) ([]byte, string, error) {
	content, err := s.quizContent(ctx, contentID)
	if err != nil {
		return nil, "", err
	}
	questions, err := s.repo.ListQuestions(ctx, contentID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}

	data := export.Dataset{
		Headers: []string{"#", "Question", "A", "B", "C", "D", "Correct", "Points"},
	}
	for _, q := range questions {
		data.Rows = append(data.Rows, map[string]string{
			"#":        strconv.Itoa(q.OrderNumber),
			"Question": q.QuestionText,
			"A":        q.AnswerA,
			"B":        q.AnswerB,
			"C":        derefString(q.AnswerC),
			"D":        derefString(q.AnswerD),
			"Correct":  string(q.CorrectAnswer),
			"Points":   strconv.Itoa(q.Points),
		})
	}

	switch strings.ToLower(format) {
	case "csv":
		payload, err := s.csv.Render(data)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf", "":
		payload, err := s.pdf.Render(data, content.Title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be pdf or csv")
	}
}

// quizContent loads the content row and rejects non-quiz kinds.
func (s *QuizService) quizContent(ctx context.Context, contentID string) (*models.Content, error) {
	content, err := s.content.FindByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	if content.Type != models.KindQuiz {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "content is not a quiz")
	}
	return content, nil
}

// refreshQuizData keeps the quiz_data counters on the content row in step
// with the question set. Failures are logged, not surfaced.
func (s *QuizService) refreshQuizData(ctx context.Context, contentID string) {
	content, err := s.content.FindByID(ctx, contentID)
	if err != nil {
		s.logger.Warn("failed to reload quiz content", zap.String("content_id", contentID), zap.Error(err))
		return
	}
	stats, err := s.repo.Statistics(ctx, contentID)
	if err != nil {
		s.logger.Warn("failed to compute quiz statistics", zap.String("content_id", contentID), zap.Error(err))
		return
	}

	data := content.QuizData
	if data == nil {
		data = &models.QuizData{Method: models.QuizMethodManual}
	}
	data.TotalQuestions = stats.TotalQuestions
	data.TotalPoints = stats.TotalPoints
	data.HasImages = stats.HasImages
	content.QuizData = data

	if err := s.content.Update(ctx, content); err != nil {
		s.logger.Warn("failed to update quiz data counters", zap.String("content_id", contentID), zap.Error(err))
	}
}

// buildQuestion applies the draft rule to one authored question.
func buildQuestion(input models.QuizQuestionInput) (*models.QuizQuestion, error) {
	text := strings.TrimSpace(input.QuestionText)
	answerA := strings.TrimSpace(input.AnswerA)
	answerB := strings.TrimSpace(input.AnswerB)
	if text == "" {
		return nil, errors.New("question text is blank")
	}
	if answerA == "" || answerB == "" {
		return nil, errors.New("answers A and B are required")
	}

	answerC := trimOptional(input.AnswerC)
	answerD := trimOptional(input.AnswerD)
	switch input.CorrectAnswer {
	case models.AnswerA, models.AnswerB:
	case models.AnswerC:
		if answerC == nil {
			return nil, errors.New("correct answer C has no answer text")
		}
	case models.AnswerD:
		if answerD == nil {
			return nil, errors.New("correct answer D has no answer text")
		}
	default:
		return nil, fmt.Errorf("correct answer %q is not one of A-D", input.CorrectAnswer)
	}

	points := input.Points
	if points <= 0 {
		points = 1
	}

	return &models.QuizQuestion{
		QuestionText:     text,
		QuestionImageURL: input.QuestionImageURL,
		AnswerA:          answerA,
		AnswerB:          answerB,
		AnswerC:          answerC,
		AnswerD:          answerD,
		AnswerAImageURL:  input.AnswerAImageURL,
		AnswerBImageURL:  input.AnswerBImageURL,
		AnswerCImageURL:  input.AnswerCImageURL,
		AnswerDImageURL:  input.AnswerDImageURL,
		CorrectAnswer:    input.CorrectAnswer,
		Explanation:      input.Explanation,
		Points:           points,
	}, nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
