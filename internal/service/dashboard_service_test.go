package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zimlearn/console-api/internal/dto"
	"github.com/zimlearn/console-api/internal/models"
	appErrors "github.com/zimlearn/console-api/pkg/errors"
)

type cacheRepoStub struct {
	entries map[string][]byte
	setTTLs map[string]time.Duration
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{entries: make(map[string][]byte), setTTLs: make(map[string]time.Duration)}
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.entries[key] = raw
	s.setTTLs[key] = ttl
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range s.entries {
		delete(s.entries, key)
	}
	return nil
}

type dashSubjectStub struct {
	active  int64
	byLevel map[models.EducationLevel]int64
}

func (s *dashSubjectStub) CountActive(ctx context.Context) (int64, error) {
	return s.active, nil
}

func (s *dashSubjectStub) CountsByLevel(ctx context.Context) (map[models.EducationLevel]int64, error) {
	return s.byLevel, nil
}

type dashContentStub struct {
	pages    map[int][]dto.FlatContentRow
	total    int64
	byKind   map[models.ContentKind]int64
	byStatus map[models.ContentStatus]int64

	listCalls   int
	listFilters []models.ContentFilter
}

func (s *dashContentStub) ListFlattened(ctx context.Context, filter models.ContentFilter) ([]dto.FlatContentRow, int64, error) {
	s.listCalls++
	s.listFilters = append(s.listFilters, filter)
	return s.pages[filter.Page], s.total, nil
}

func (s *dashContentStub) CountByKindAndStatus(ctx context.Context) (map[models.ContentKind]int64, map[models.ContentStatus]int64, error) {
	return s.byKind, s.byStatus, nil
}

func newDashboardFixture() (*DashboardService, *dashSubjectStub, *dashContentStub, *cacheRepoStub, *exporterStub) {
	subjects := &dashSubjectStub{
		active:  4,
		byLevel: map[models.EducationLevel]int64{models.LevelOLevel: 3, models.LevelALevel: 1},
	}
	content := &dashContentStub{
		pages: map[int][]dto.FlatContentRow{
			1: {{ContentID: "con-1", Title: "Cell video", Kind: models.KindVideo, SubjectName: "Biology"}},
		},
		total:    5,
		byKind:   map[models.ContentKind]int64{models.KindVideo: 3, models.KindQuiz: 2},
		byStatus: map[models.ContentStatus]int64{models.StatusPublished: 4, models.StatusDraft: 1},
	}
	repo := newCacheRepoStub()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	csv := &exporterStub{}
	svc := NewDashboardService(subjects, content, cache, csv, nil, nil, DashboardServiceConfig{CacheTTL: time.Minute})
	return svc, subjects, content, repo, csv
}

func TestDashboardSummaryMissBuildsAndCaches(t *testing.T) {
	svc, _, _, repo, _ := newDashboardFixture()

	summary, hit, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, 4, summary.TotalSubjects)
	require.Equal(t, 5, summary.TotalContent)
	require.Equal(t, 2, summary.TotalQuizzes)
	require.Equal(t, 3, summary.ContentByKind["video"])
	require.Equal(t, 4, summary.ContentByStatus["published"])
	require.Equal(t, 3, summary.SubjectsByLevel["O-Level"])
	require.Len(t, summary.RecentContent, 1)

	require.Contains(t, repo.entries, "dashboard:summary")
	require.Equal(t, time.Minute, repo.setTTLs["dashboard:summary"])
}

func TestDashboardSummaryServedFromCache(t *testing.T) {
	svc, _, content, _, _ := newDashboardFixture()

	_, hit, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.False(t, hit)
	callsAfterBuild := content.listCalls

	cached, hit, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, 4, cached.TotalSubjects)
	require.Equal(t, callsAfterBuild, content.listCalls)
}

func TestDashboardSummaryCacheDisabledAlwaysRebuilds(t *testing.T) {
	svc, _, content, _, _ := newDashboardFixture()
	svc.cache = NewCacheService(nil, nil, time.Minute, nil, false)

	for i := 0; i < 2; i++ {
		_, hit, err := svc.Summary(context.Background())
		require.NoError(t, err)
		require.False(t, hit)
	}
	require.Equal(t, 2, content.listCalls)
}

func TestDashboardServiceObservesQueryTimings(t *testing.T) {
	svc, _, _, _, _ := newDashboardFixture()
	svc.cache = NewCacheService(nil, nil, time.Minute, nil, false)
	metrics := NewMetricsService()
	svc.metrics = metrics

	_, hit, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.False(t, hit)

	_, _, err = svc.ListContent(context.Background(), models.ContentFilter{Page: 1, PageSize: 20})
	require.NoError(t, err)

	snap := metrics.Snapshot()
	require.Equal(t, uint64(2), snap.DBQueryCount)
}

func TestDashboardListContentNormalizesPagination(t *testing.T) {
	svc, _, _, _, _ := newDashboardFixture()

	_, pagination, err := svc.ListContent(context.Background(), models.ContentFilter{Page: 0, PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, 1, pagination.Page)
	require.Equal(t, 20, pagination.PageSize)
	require.Equal(t, 5, pagination.TotalCount)
}

func TestDashboardExportContentCSVPagesThroughWholeSet(t *testing.T) {
	svc, _, content, _, csv := newDashboardFixture()

	page1 := make([]dto.FlatContentRow, 100)
	for i := range page1 {
		page1[i] = dto.FlatContentRow{ContentID: "con-a", Title: "Row", Kind: models.KindNotes}
	}
	page2 := make([]dto.FlatContentRow, 50)
	for i := range page2 {
		page2[i] = dto.FlatContentRow{ContentID: "con-b", Title: "Row", Kind: models.KindNotes}
	}
	content.pages = map[int][]dto.FlatContentRow{1: page1, 2: page2}
	content.total = 150

	payload, err := svc.ExportContentCSV(context.Background(), models.ContentFilter{Kind: models.KindNotes})
	require.NoError(t, err)
	require.Equal(t, []byte("csv"), payload)

	require.Equal(t, 2, content.listCalls)
	require.Equal(t, 100, content.listFilters[0].PageSize)
	require.Len(t, csv.lastData.Rows, 150)
	require.Contains(t, csv.lastData.Headers, "Chapter")
}
