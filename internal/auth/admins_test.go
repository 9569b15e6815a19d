package auth

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAdmin(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO admins`).
		WithArgs("root", "root@example.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(3, time.Now()))

	admin, err := CreateAdmin(context.Background(), db, " root ", "Root@Example.com", "long-enough")
	require.NoError(t, err)
	assert.Equal(t, int64(3), admin.ID)
	assert.Equal(t, "root@example.com", admin.Email)
	assert.True(t, admin.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAdmin_RejectsShortPassword(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = CreateAdmin(context.Background(), db, "root", "root@example.com", "short")
	assert.ErrorContains(t, err, "at least 8")
}
