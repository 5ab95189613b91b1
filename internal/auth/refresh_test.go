package auth

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/Hadesalive/smart-attendace-tracking-sub005/pkg/errors"
)

func TestPGRefreshStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewRefreshStore(sqlx.NewDb(db, "sqlmock"))
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(digest("tok"), "stu-1", RoleStudent, exp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.Save(ctx, "tok", "stu-1", RoleStudent, exp))

	mock.ExpectQuery("UPDATE refresh_tokens SET revoked = TRUE").
		WithArgs(digest("tok")).
		WillReturnRows(sqlmock.NewRows([]string{"subject", "role"}).AddRow("stu-1", RoleStudent))
	subject, role, err := store.Consume(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", subject)
	assert.Equal(t, RoleStudent, role)

	mock.ExpectQuery("UPDATE refresh_tokens SET revoked = TRUE").
		WithArgs(digest("tok")).
		WillReturnRows(sqlmock.NewRows([]string{"subject", "role"}))
	_, _, err = store.Consume(ctx, "tok")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDigestHidesToken(t *testing.T) {
	assert.Len(t, digest("tok"), 64)
	assert.NotContains(t, digest("tok"), "tok")
}
