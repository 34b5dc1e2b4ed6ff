package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/zimlearn/console-api/internal/dto"
	"github.com/zimlearn/console-api/internal/models"
	appErrors "github.com/zimlearn/console-api/pkg/errors"
	"github.com/zimlearn/console-api/pkg/export"
)

const dashboardSummaryCacheKey = "dashboard:summary"

type dashboardSubjectRepository interface {
	CountActive(ctx context.Context) (int64, error)
	CountsByLevel(ctx context.Context) (map[models.EducationLevel]int64, error)
}

type dashboardContentRepository interface {
	ListFlattened(ctx context.Context, filter models.ContentFilter) ([]dto.FlatContentRow, int64, error)
	CountByKindAndStatus(ctx context.Context) (map[models.ContentKind]int64, map[models.ContentStatus]int64, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL      time.Duration
	RecentContent int
}

// DashboardService composes the console landing page payloads from the
// content inventory.
type DashboardService struct {
	subjects dashboardSubjectRepository
	content  dashboardContentRepository
	cache    *CacheService
	csv      tableExporter
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
// metrics may be nil.
func NewDashboardService(subjects dashboardSubjectRepository, content dashboardContentRepository, cache *CacheService, csv tableExporter, metrics *MetricsService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RecentContent <= 0 {
		cfg.RecentContent = 5
	}
	return &DashboardService{subjects: subjects, content: content, cache: cache, csv: csv, metrics: metrics, logger: logger, cfg: cfg}
}

// observe feeds the db_query_duration_seconds histogram. Usage:
//
//	defer s.observe("dashboard_summary")()
func (s *DashboardService) observe(label string) func() {
	start := time.Now()
	return func() {
		s.metrics.ObserveDBQuery(label, time.Since(start))
	}
}

// Summary returns the cached dashboard summary, rebuilding it on a miss.
// The second result reports whether the cache served the payload.
func (s *DashboardService) Summary(ctx context.Context) (*dto.DashboardSummary, bool, error) {
	var cached dto.DashboardSummary
	if hit, err := s.cache.Get(ctx, dashboardSummaryCacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	summary, err := s.buildSummary(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := s.cache.Set(ctx, dashboardSummaryCacheKey, summary, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard summary", zap.Error(err))
	}
	return summary, false, nil
}

// ListContent returns the flattened, filtered inventory with pagination.
func (s *DashboardService) ListContent(ctx context.Context, filter models.ContentFilter) ([]dto.FlatContentRow, *models.Pagination, error) {
	defer s.observe("content_inventory")()
	rows, total, err := s.content.ListFlattened(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list content inventory")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return rows, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: int(total)}, nil
}

// ExportContentCSV renders the filtered inventory as CSV. Pagination is
// widened so the export covers the whole filtered set.
func (s *DashboardService) ExportContentCSV(ctx context.Context, filter models.ContentFilter) ([]byte, error) {
	defer s.observe("content_export")()
	filter.Page = 1
	filter.PageSize = 100

	var all []dto.FlatContentRow
	for {
		rows, total, err := s.content.ListFlattened(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list content inventory")
		}
		all = append(all, rows...)
		if int64(len(all)) >= total || len(rows) == 0 {
			break
		}
		filter.Page++
	}

	data := export.Dataset{
		Headers: []string{"Subject", "Term", "Week", "Chapter", "Title", "Type", "Status", "Views", "Created"},
	}
	for _, row := range all {
		data.Rows = append(data.Rows, map[string]string{
			"Subject": row.SubjectName,
			"Term":    row.TermTitle,
			"Week":    row.WeekTitle,
			"Chapter": row.ChapterTitle,
			"Title":   row.Title,
			"Type":    string(row.Kind),
			"Status":  string(row.Status),
			"Views":   strconv.Itoa(row.ViewCount),
			"Created": row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	payload, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, nil
}

func (s *DashboardService) buildSummary(ctx context.Context) (*dto.DashboardSummary, error) {
	defer s.observe("dashboard_summary")()
	totalSubjects, err := s.subjects.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count subjects")
	}
	byLevel, err := s.subjects.CountsByLevel(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count subjects by level")
	}
	byKind, byStatus, err := s.content.CountByKindAndStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count content")
	}

	recent, _, err := s.content.ListFlattened(ctx, models.ContentFilter{
		Page:      1,
		PageSize:  s.cfg.RecentContent,
		SortBy:    "created_at",
		SortOrder: "desc",
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent content")
	}
	if recent == nil {
		recent = []dto.FlatContentRow{}
	}

	summary := &dto.DashboardSummary{
		TotalSubjects:   int(totalSubjects),
		ContentByKind:   map[string]int{},
		ContentByStatus: map[string]int{},
		SubjectsByLevel: map[string]int{},
		RecentContent:   recent,
		GeneratedAt:     time.Now().UTC(),
	}
	for kind, count := range byKind {
		summary.ContentByKind[string(kind)] = int(count)
		summary.TotalContent += int(count)
		if kind == models.KindQuiz {
			summary.TotalQuizzes = int(count)
		}
	}
	for status, count := range byStatus {
		summary.ContentByStatus[string(status)] = int(count)
	}
	for level, count := range byLevel {
		summary.SubjectsByLevel[string(level)] = int(count)
	}
	return summary, nil
}
