package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zimlearn/console-api/internal/models"
	"github.com/zimlearn/console-api/internal/service"
	appErrors "github.com/zimlearn/console-api/pkg/errors"
	"github.com/zimlearn/console-api/pkg/response"
)

// maxImportDocumentBytes caps the uploaded quiz JSON document.
const maxImportDocumentBytes = 5 << 20

// QuizHandler wires HTTP endpoints to the quiz service.
type QuizHandler struct {
	service *service.QuizService
}

// NewQuizHandler creates a new handler.
func NewQuizHandler(svc *service.QuizService) *QuizHandler {
	return &QuizHandler{service: svc}
}

// ListQuestions godoc
// @Summary List a quiz's questions
// @Tags Quizzes
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /content/{id}/questions [get]
func (h *QuizHandler) ListQuestions(c *gin.Context) {
	questions, err := h.service.ListQuestions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, questions, nil)
}

// CreateQuestions godoc
// @Summary Bulk create questions
// @Description Creates questions in order; each must carry text and answers A and B
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param id path string true "Content ID"
// @Param payload body models.CreateQuestionsRequest true "Questions payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /content/{id}/questions [post]
func (h *QuizHandler) CreateQuestions(c *gin.Context) {
	var req models.CreateQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid questions payload"))
		return
	}

	questions, err := h.service.CreateQuestions(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, questions)
}

// ImportQuestions godoc
// @Summary Import questions from a JSON document
// @Description Validates the uploaded document against the question schema before writing
// @Tags Quizzes
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Content ID"
// @Param file formData file true "Quiz JSON document"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /content/{id}/questions/import [post]
func (h *QuizHandler) ImportQuestions(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	if fileHeader.Size > maxImportDocumentBytes {
		response.Error(c, appErrors.ErrFileTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer file.Close()

	document, err := io.ReadAll(io.LimitReader(file, maxImportDocumentBytes))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}

	questions, err := h.service.ImportQuestions(c.Request.Context(), c.Param("id"), document)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, questions)
}

// UpdateQuestion godoc
// @Summary Update a question
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body models.QuizQuestionInput true "Question payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /questions/{id} [put]
func (h *QuizHandler) UpdateQuestion(c *gin.Context) {
	var input models.QuizQuestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid question payload"))
		return
	}

	question, err := h.service.UpdateQuestion(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, question, nil)
}

// DeleteQuestion godoc
// @Summary Delete a question
// @Tags Quizzes
// @Param id path string true "Question ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /questions/{id} [delete]
func (h *QuizHandler) DeleteQuestion(c *gin.Context) {
	if err := h.service.DeleteQuestion(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RecordAttempt godoc
// @Summary Record a quiz attempt
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param id path string true "Content ID"
// @Param payload body models.CreateAttemptRequest true "Attempt payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /content/{id}/attempts [post]
func (h *QuizHandler) RecordAttempt(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attempt payload"))
		return
	}

	attempt, err := h.service.RecordAttempt(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attempt)
}

// ListAttempts godoc
// @Summary List attempts for a quiz
// @Tags Quizzes
// @Produce json
// @Param id path string true "Content ID"
// @Param user query string false "User ID (defaults to caller)"
// @Success 200 {object} response.Envelope
// @Router /content/{id}/attempts [get]
func (h *QuizHandler) ListAttempts(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	userID := c.Query("user")
	if userID == "" {
		userID = claims.UserID
	}
	if !canActFor(claims, userID) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "cannot view another user's attempts"))
		return
	}

	attempts, err := h.service.ListAttempts(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempts, nil)
}

// Statistics godoc
// @Summary Quiz statistics
// @Tags Quizzes
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /content/{id}/statistics [get]
func (h *QuizHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Leaderboard godoc
// @Summary Quiz leaderboard
// @Description Best attempt per user, highest percentage first
// @Tags Quizzes
// @Produce json
// @Param id path string true "Content ID"
// @Param limit query int false "Row limit"
// @Success 200 {object} response.Envelope
// @Router /content/{id}/leaderboard [get]
func (h *QuizHandler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.service.Leaderboard(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// ExportQuestions godoc
// @Summary Export a quiz's question paper
// @Tags Quizzes
// @Produce application/pdf
// @Produce text/csv
// @Param id path string true "Content ID"
// @Param format query string false "pdf or csv" default(pdf)
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /content/{id}/questions/export [get]
func (h *QuizHandler) ExportQuestions(c *gin.Context) {
	payload, contentType, err := h.service.ExportQuestions(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	ext := "pdf"
	if contentType == "text/csv" {
		ext = "csv"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=quiz-%s.%s", c.Param("id"), ext))
	c.Data(http.StatusOK, contentType, payload)
}
