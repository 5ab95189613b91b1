package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/session"
	apperr "github.com/Hadesalive/smart-attendace-tracking-sub005/pkg/errors"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestUpsertRecordReportsInsertOrUpdate(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec := Record{SessionID: "s-1", StudentID: "stu-1", MarkedAt: time.Now().UTC(), Method: session.MethodQRCode}

	mock.ExpectQuery("INSERT INTO attendance_records").
		WillReturnRows(sqlmock.NewRows([]string{"id", "inserted"}).AddRow("r-1", true))
	mock.ExpectQuery("ON CONFLICT \\(session_id, student_id\\)").
		WillReturnRows(sqlmock.NewRows([]string{"id", "inserted"}).AddRow("r-1", false))

	saved, inserted, err := repo.UpsertRecord(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "r-1", saved.ID)

	saved, inserted, err = repo.UpsertRecord(context.Background(), rec)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, "r-1", saved.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRecordTranslatesConstraintErrors(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("INSERT INTO attendance_records").
		WillReturnError(&pgconn.PgError{Code: apperr.CodeForeignKeyViolation, Message: "violates foreign key constraint"})

	_, _, err := repo.UpsertRecord(context.Background(), Record{SessionID: "gone", StudentID: "stu-1"})
	var pe *apperr.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, apperr.CodeForeignKeyViolation, pe.Code)
	assert.Equal(t, "upsert attendance record", pe.Op)
}

func TestDeleteRecordsBySession(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("DELETE FROM attendance_records WHERE session_id = \\$1").
		WithArgs("s-1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteRecordsBySession(context.Background(), "s-1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

func TestSetConfidenceMissingRecord(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE attendance_records SET confidence").
		WithArgs("r-x", 0.8).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetConfidence(context.Background(), "r-x", 0.8)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
