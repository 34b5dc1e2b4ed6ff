package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zimlearn/console-api/internal/models"
	"github.com/zimlearn/console-api/internal/service"
	appErrors "github.com/zimlearn/console-api/pkg/errors"
	"github.com/zimlearn/console-api/pkg/response"
)

// UploadHandler accepts multipart uploads for content files and quiz images.
type UploadHandler struct {
	service *service.UploadService
	metrics *service.MetricsService
}

// NewUploadHandler creates a new handler.
func NewUploadHandler(svc *service.UploadService, metrics *service.MetricsService) *UploadHandler {
	return &UploadHandler{service: svc, metrics: metrics}
}

// UploadContentFile godoc
// @Summary Upload a content file
// @Description Stores the file under the content-files bucket; owner defaults to a temp prefix until the content row exists
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File"
// @Param kind formData string true "Content kind (video, pdf, quiz, notes)"
// @Param owner formData string false "Owning content ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /uploads/content [post]
func (h *UploadHandler) UploadContentFile(c *gin.Context) {
	kind := models.ContentKind(c.PostForm("kind"))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer file.Close()

	result, err := h.service.StoreContentFile(c.Request.Context(), kind, c.PostForm("owner"), fileHeader.Filename, fileHeader.Size, file)
	h.metrics.RecordUpload(string(kind), err == nil)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// UploadQuizImage godoc
// @Summary Upload a quiz question or answer image
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image"
// @Param content_id formData string true "Quiz content ID"
// @Param question formData int true "Question index"
// @Param answer formData string false "Answer label (A-D) when the image belongs to an option"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /uploads/quiz-image [post]
func (h *UploadHandler) UploadQuizImage(c *gin.Context) {
	contentID := c.PostForm("content_id")
	if contentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "content_id is required"))
		return
	}
	questionIndex, err := strconv.Atoi(c.PostForm("question"))
	if err != nil || questionIndex < 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "question must be a non-negative index"))
		return
	}
	answer := models.AnswerLabel(c.PostForm("answer"))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer file.Close()

	result, err := h.service.StoreQuizImage(c.Request.Context(), contentID, questionIndex, answer, fileHeader.Filename, fileHeader.Size, file)
	h.metrics.RecordUpload("image", err == nil)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
