package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mock-test/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	testSecret = []byte("test-secret")
	adminCols  = []string{"id", "username", "email", "password_hash", "is_active", "created_at"}
)

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewHandler(db, testSecret, time.Hour, zap.NewNop())
	h.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return h, mock
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	out, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(out)
}

func login(h *Handler, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(body)
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", &buf))
	return rec
}

func TestLogin_IssuesAdminToken(t *testing.T) {
	h, mock := newTestHandler(t)
	mock.ExpectQuery(`FROM admins WHERE username = \$1 OR LOWER\(email\) = LOWER\(\$1\)`).
		WithArgs("root@example.com").
		WillReturnRows(sqlmock.NewRows(adminCols).
			AddRow(7, "root", "root@example.com", hashed(t, "s3cret-pass"), true, time.Now()))

	rec := login(h, map[string]string{"email": "root@example.com", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "root", resp.Admin.Username)
	assert.NotContains(t, rec.Body.String(), "password_hash")

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (any, error) { return testSecret, nil },
		jwt.WithTimeFunc(h.now))
	require.NoError(t, err)
	assert.Equal(t, "7", claims["adminId"])
	assert.Equal(t, RoleAdmin, claims["role"])
	assert.Equal(t, float64(h.now().Add(time.Hour).Unix()), claims["exp"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_Rejections(t *testing.T) {
	t.Run("missing password", func(t *testing.T) {
		h, _ := newTestHandler(t)
		rec := login(h, map[string]string{"username": "root"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown admin", func(t *testing.T) {
		h, mock := newTestHandler(t)
		mock.ExpectQuery(`FROM admins`).WithArgs("ghost").WillReturnRows(sqlmock.NewRows(adminCols))

		rec := login(h, map[string]string{"username": "ghost", "password": "whatever"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		h, mock := newTestHandler(t)
		mock.ExpectQuery(`FROM admins`).WithArgs("root").
			WillReturnRows(sqlmock.NewRows(adminCols).
				AddRow(1, "root", "root@example.com", hashed(t, "right"), true, time.Now()))

		rec := login(h, map[string]string{"username": "root", "password": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("inactive admin", func(t *testing.T) {
		h, mock := newTestHandler(t)
		mock.ExpectQuery(`FROM admins`).WithArgs("root").
			WillReturnRows(sqlmock.NewRows(adminCols).
				AddRow(1, "root", "root@example.com", hashed(t, "right"), false, time.Now()))

		rec := login(h, map[string]string{"username": "root", "password": "right"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHashPassword(t *testing.T) {
	out, err := HashPassword("letmein")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(out), []byte("letmein")))
}
