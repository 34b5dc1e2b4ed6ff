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

func newSubjectRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSubjectRepositoryListActiveAppliesFilters(t *testing.T) {
	db, mock, cleanup := newSubjectRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "level", "exam_board", "is_active", "created_at", "updated_at"}).
		AddRow("sub-1", "Mathematics", models.LevelOLevel, models.BoardZIMSEC, true, time.Now(), time.Now())
	mock.ExpectQuery(`SELECT .+ FROM subjects WHERE is_active = TRUE AND level = \$1 AND LOWER\(name\) LIKE \$2 ORDER BY created_at DESC`).
		WithArgs(models.LevelOLevel, "%math%").
		WillReturnRows(rows)

	subjects, err := repo.ListActive(context.Background(), models.SubjectFilter{
		Level:  models.LevelOLevel,
		Search: "Math",
	})
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	require.Equal(t, "Mathematics", subjects[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryCreateWithStructureCascades(t *testing.T) {
	db, mock, cleanup := newSubjectRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subjects")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	for term := 1; term <= models.TermsPerSubject; term++ {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO terms")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		for week := 1; week <= models.WeeksPerTerm; week++ {
			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO weeks")).
				WillReturnResult(sqlmock.NewResult(0, 1))
		}
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subject_teachers")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	subject := &models.Subject{
		Name:      "Physics",
		Level:     models.LevelALevel,
		ExamBoard: models.BoardCambridge,
	}
	teachers := []models.SubjectTeacher{{Name: "T Moyo", Email: "t.moyo@example.com"}}

	err := repo.CreateWithStructure(context.Background(), subject, teachers)
	require.NoError(t, err)
	require.NotEmpty(t, subject.ID)
	require.True(t, subject.IsActive)
	require.Equal(t, subject.ID, teachers[0].SubjectID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryCreateWithStructureRollsBackOnTermFailure(t *testing.T) {
	db, mock, cleanup := newSubjectRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subjects")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO terms")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := repo.CreateWithStructure(context.Background(), &models.Subject{Name: "Biology"}, nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryCountsByLevel(t *testing.T) {
	db, mock, cleanup := newSubjectRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	rows := sqlmock.NewRows([]string{"level", "total"}).
		AddRow(models.LevelJC, 2).
		AddRow(models.LevelOLevel, 5)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT level, COUNT(*) AS total FROM subjects WHERE is_active = TRUE GROUP BY level")).
		WillReturnRows(rows)

	counts, err := repo.CountsByLevel(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), counts[models.LevelJC])
	require.Equal(t, int64(5), counts[models.LevelOLevel])
	require.NoError(t, mock.ExpectationsWereMet())
}
