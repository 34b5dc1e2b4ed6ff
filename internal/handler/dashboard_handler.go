package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zimlearn/console-api/internal/models"
	"github.com/zimlearn/console-api/internal/service"
	"github.com/zimlearn/console-api/pkg/response"
)

// DashboardHandler serves the console overview endpoints.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Summary godoc
// @Summary Console dashboard summary
// @Description Aggregated counts plus the most recent content; cached briefly
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, cacheHit, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{"cache_hit": cacheHit})
}

// ListContent godoc
// @Summary Flattened content inventory
// @Description One row per content item with its subject, term, week and chapter breadcrumbs
// @Tags Dashboard
// @Produce json
// @Param type query string false "Content kind"
// @Param status query string false "Content status"
// @Param subject_id query string false "Subject ID"
// @Param search query string false "Title search"
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param sort_by query string false "Sort column"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /dashboard/content [get]
func (h *DashboardHandler) ListContent(c *gin.Context) {
	filter := contentFilterFromQuery(c)

	rows, pagination, err := h.service.ListContent(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// ExportContent godoc
// @Summary Export the content inventory as CSV
// @Tags Dashboard
// @Produce text/csv
// @Param type query string false "Content kind"
// @Param status query string false "Content status"
// @Param subject_id query string false "Subject ID"
// @Success 200 {file} binary
// @Router /dashboard/content/export [get]
func (h *DashboardHandler) ExportContent(c *gin.Context) {
	payload, err := h.service.ExportContentCSV(c.Request.Context(), contentFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := "content-" + time.Now().Format("2006-01-02") + ".csv"
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", payload)
}

func contentFilterFromQuery(c *gin.Context) models.ContentFilter {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	return models.ContentFilter{
		Kind:      models.ContentKind(c.Query("type")),
		Status:    models.ContentStatus(c.Query("status")),
		SubjectID: c.Query("subject_id"),
		Search:    c.Query("search"),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
}
