package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zimlearn/console-api/internal/models"
	"github.com/zimlearn/console-api/internal/service"
	appErrors "github.com/zimlearn/console-api/pkg/errors"
	"github.com/zimlearn/console-api/pkg/response"
)

// EnrollmentHandler manages subject enrollments.
type EnrollmentHandler struct {
	service *service.EnrollmentService
}

// NewEnrollmentHandler creates a new handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// Enroll godoc
// @Summary Enroll a user in a subject
// @Description Re-enrolling an inactive enrollment reactivates it
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body models.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req models.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}

	enrollment, err := h.service.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Unenroll godoc
// @Summary Remove a user's enrollment
// @Tags Enrollments
// @Param user_id path string true "User ID"
// @Param subject_id path string true "Subject ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{user_id}/enrollments/{subject_id} [delete]
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	if err := h.service.Unenroll(c.Request.Context(), c.Param("user_id"), c.Param("subject_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListForUser godoc
// @Summary List a user's active enrollments
// @Tags Enrollments
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{user_id}/enrollments [get]
func (h *EnrollmentHandler) ListForUser(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	userID := c.Param("user_id")
	if !canActFor(claims, userID) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "cannot view another user's enrollments"))
		return
	}

	enrollments, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// CountForSubject godoc
// @Summary Count active enrollments in a subject
// @Tags Enrollments
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/enrollments [get]
func (h *EnrollmentHandler) CountForSubject(c *gin.Context) {
	count, err := h.service.CountForSubject(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"subject_id": c.Param("id"), "enrolled_students": count}, nil)
}
