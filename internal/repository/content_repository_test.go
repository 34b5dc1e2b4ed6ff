package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/zimlearn/console-api/internal/models"
)

func newContentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestContentRepositoryCreateAssignsNextOrder(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(order_number), 0) + 1 FROM content WHERE chapter_id = $1")).
		WithArgs("ch-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO content")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	content := &models.Content{
		ChapterID: "ch-1",
		Title:     "Quadratic equations",
		Type:      models.KindVideo,
		Status:    models.StatusDraft,
	}
	err := repo.Create(context.Background(), content)
	require.NoError(t, err)
	require.Equal(t, 4, content.OrderNumber)
	require.NotEmpty(t, content.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryMoveUpSwapsWithPreviousSibling(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT chapter_id, order_number FROM content WHERE id = $1 FOR UPDATE")).
		WithArgs("con-2").
		WillReturnRows(sqlmock.NewRows([]string{"chapter_id", "order_number"}).AddRow("ch-1", 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, order_number FROM content WHERE chapter_id = $1 AND order_number < $2 ORDER BY order_number DESC LIMIT 1 FOR UPDATE")).
		WithArgs("ch-1", 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_number"}).AddRow("con-1", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE content SET order_number = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("con-2", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE content SET order_number = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("con-1", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Move(context.Background(), "con-2", models.MoveUp)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryMoveAtBoundaryIsNoOp(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT chapter_id, order_number FROM content WHERE id = $1 FOR UPDATE")).
		WithArgs("con-1").
		WillReturnRows(sqlmock.NewRows([]string{"chapter_id", "order_number"}).AddRow("ch-1", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, order_number FROM content WHERE chapter_id = $1 AND order_number < $2")).
		WithArgs("ch-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_number"}))
	mock.ExpectRollback()

	err := repo.Move(context.Background(), "con-1", models.MoveUp)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryIncrementViewCount(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE content SET view_count = view_count + 1 WHERE id = $1")).
		WithArgs("con-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.IncrementViewCount(context.Background(), "con-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryListFlattenedFiltersAndPaginates(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM content c`).
		WithArgs(models.KindQuiz).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	rows := sqlmock.NewRows([]string{"content_id", "title", "type", "status", "view_count", "created_at", "updated_at", "subject_id", "subject_name", "term_id", "term_title", "week_id", "week_title", "chapter_id", "chapter_title"}).
		AddRow("con-1", "Algebra quiz", models.KindQuiz, models.StatusPublished, 7, time.Now(), time.Now(), "sub-1", "Mathematics", "term-1", "Term 1", "week-1", "Week 1", "ch-1", "Linear equations")
	mock.ExpectQuery(`SELECT c\.id AS content_id, .+ ORDER BY c\.created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs(models.KindQuiz, 20, 20).
		WillReturnRows(rows)

	result, total, err := repo.ListFlattened(context.Background(), models.ContentFilter{
		Kind: models.KindQuiz,
		Page: 2,
	})
	require.NoError(t, err)
	require.Equal(t, int64(42), total)
	require.Len(t, result, 1)
	require.Equal(t, "Mathematics", result[0].SubjectName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryCountByKindAndStatus(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	rows := sqlmock.NewRows([]string{"type", "status", "total"}).
		AddRow(models.KindQuiz, models.StatusPublished, 3).
		AddRow(models.KindQuiz, models.StatusDraft, 2).
		AddRow(models.KindVideo, models.StatusPublished, 4)
	mock.ExpectQuery(`SELECT c\.type, c\.status, COUNT\(\*\) AS total FROM content c`).
		WillReturnRows(rows)

	byKind, byStatus, err := repo.CountByKindAndStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(5), byKind[models.KindQuiz])
	require.Equal(t, int64(4), byKind[models.KindVideo])
	require.Equal(t, int64(7), byStatus[models.StatusPublished])
	require.NoError(t, mock.ExpectationsWereMet())
}
