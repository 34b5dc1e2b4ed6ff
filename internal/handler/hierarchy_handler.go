package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zimlearn/console-api/internal/models"
	"github.com/zimlearn/console-api/internal/service"
	appErrors "github.com/zimlearn/console-api/pkg/errors"
	"github.com/zimlearn/console-api/pkg/response"
)

// HierarchyHandler serves the scoped term/week/chapter reads and chapter
// mutations.
type HierarchyHandler struct {
	subjects *service.SubjectService
	content  *service.ContentService
}

// NewHierarchyHandler creates a new handler.
func NewHierarchyHandler(subjects *service.SubjectService, content *service.ContentService) *HierarchyHandler {
	return &HierarchyHandler{subjects: subjects, content: content}
}

// ListWeeks godoc
// @Summary List a term's weeks
// @Tags Hierarchy
// @Produce json
// @Param id path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /terms/{id}/weeks [get]
func (h *HierarchyHandler) ListWeeks(c *gin.Context) {
	weeks, err := h.subjects.ListWeeks(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, weeks, nil)
}

// ListChapters godoc
// @Summary List a week's chapters
// @Tags Hierarchy
// @Produce json
// @Param id path string true "Week ID"
// @Success 200 {object} response.Envelope
// @Router /weeks/{id}/chapters [get]
func (h *HierarchyHandler) ListChapters(c *gin.Context) {
	chapters, err := h.content.ListChapters(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, chapters, nil)
}

// CreateChapter godoc
// @Summary Create a chapter in a week
// @Description Order number is assigned server-side
// @Tags Hierarchy
// @Accept json
// @Produce json
// @Param id path string true "Week ID"
// @Param payload body models.CreateChapterRequest true "Chapter payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /weeks/{id}/chapters [post]
func (h *HierarchyHandler) CreateChapter(c *gin.Context) {
	var req models.CreateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid chapter payload"))
		return
	}

	chapter, err := h.content.CreateChapter(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, chapter)
}

// UpdateChapter godoc
// @Summary Update a chapter
// @Tags Hierarchy
// @Accept json
// @Produce json
// @Param id path string true "Chapter ID"
// @Param payload body models.UpdateChapterRequest true "Chapter payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /chapters/{id} [put]
func (h *HierarchyHandler) UpdateChapter(c *gin.Context) {
	var req models.UpdateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid chapter payload"))
		return
	}

	chapter, err := h.content.UpdateChapter(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, chapter, nil)
}

// DeleteChapter godoc
// @Summary Delete a chapter
// @Tags Hierarchy
// @Param id path string true "Chapter ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /chapters/{id} [delete]
func (h *HierarchyHandler) DeleteChapter(c *gin.Context) {
	if err := h.content.DeleteChapter(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ContinueChapter godoc
// @Summary Continue a chapter into the next week
// @Description Creates a continuation chapter carrying the same title into the following week
// @Tags Hierarchy
// @Produce json
// @Param id path string true "Chapter ID"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /chapters/{id}/continue [post]
func (h *HierarchyHandler) ContinueChapter(c *gin.Context) {
	chapter, err := h.content.ContinueChapter(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, chapter)
}
