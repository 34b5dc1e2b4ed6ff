package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/zimlearn/console-api/internal/models"
)

func newQuizRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestQuizRepositoryCreateQuestionsAssignsSequentialOrders(t *testing.T) {
	db, mock, cleanup := newQuizRepoMock(t)
	defer cleanup()
	repo := NewQuizRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(order_number), 0) FROM quiz_questions WHERE content_id = $1")).
		WithArgs("con-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO quiz_questions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO quiz_questions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	questions := []models.QuizQuestion{
		{QuestionText: "2 + 2 = ?", AnswerA: "4", AnswerB: "5", CorrectAnswer: models.AnswerA, Points: 1},
		{QuestionText: "3 x 3 = ?", AnswerA: "6", AnswerB: "9", CorrectAnswer: models.AnswerB, Points: 2},
	}
	err := repo.CreateQuestions(context.Background(), "con-1", questions)
	require.NoError(t, err)
	require.Equal(t, 3, questions[0].OrderNumber)
	require.Equal(t, 4, questions[1].OrderNumber)
	require.Equal(t, "con-1", questions[0].ContentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizRepositoryDeleteQuestionCompactsOrder(t *testing.T) {
	db, mock, cleanup := newQuizRepoMock(t)
	defer cleanup()
	repo := NewQuizRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM quiz_questions WHERE id = $1 RETURNING content_id, order_number")).
		WithArgs("q-2").
		WillReturnRows(sqlmock.NewRows([]string{"content_id", "order_number"}).AddRow("con-1", 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE quiz_questions SET order_number = order_number - 1 WHERE content_id = $1 AND order_number > $2")).
		WithArgs("con-1", 2).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := repo.DeleteQuestion(context.Background(), "q-2")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizRepositoryDeleteQuestionMissingReturnsNoRows(t *testing.T) {
	db, mock, cleanup := newQuizRepoMock(t)
	defer cleanup()
	repo := NewQuizRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM quiz_questions WHERE id = $1 RETURNING content_id, order_number")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.DeleteQuestion(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizRepositoryStatistics(t *testing.T) {
	db, mock, cleanup := newQuizRepoMock(t)
	defer cleanup()
	repo := NewQuizRepository(db)

	rows := sqlmock.NewRows([]string{"total_questions", "total_points", "has_images", "attempt_count", "average_percentage", "average_time_taken"}).
		AddRow(10, 15, true, 4, 72.5, 310.0)
	mock.ExpectQuery(`SELECT\s+\(SELECT COUNT\(\*\) FROM quiz_questions q WHERE q\.content_id = \$1\) AS total_questions`).
		WithArgs("con-1").
		WillReturnRows(rows)

	stats, err := repo.Statistics(context.Background(), "con-1")
	require.NoError(t, err)
	require.Equal(t, 10, stats.TotalQuestions)
	require.Equal(t, 15, stats.TotalPoints)
	require.True(t, stats.HasImages)
	require.InDelta(t, 72.5, stats.AveragePercentage, 0.001)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizRepositoryLeaderboardDefaultsLimit(t *testing.T) {
	db, mock, cleanup := newQuizRepoMock(t)
	defer cleanup()
	repo := NewQuizRepository(db)

	rows := sqlmock.NewRows([]string{"user_name", "score", "percentage", "completed_at"}).
		AddRow("R Ncube", 9, 90.0, time.Now()).
		AddRow("S Dube", 8, 80.0, time.Now())
	mock.ExpectQuery(`SELECT p\.full_name AS user_name, best\.score, best\.percentage, best\.completed_at`).
		WithArgs("con-1", 10).
		WillReturnRows(rows)

	entries, err := repo.Leaderboard(context.Background(), "con-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "R Ncube", entries[0].UserName)
	require.NoError(t, mock.ExpectationsWereMet())
}
