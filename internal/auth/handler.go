package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mock-test/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// RoleAdmin is the role claim carried by every token this package issues.
const RoleAdmin = "admin"

type Handler struct {
	db     *sql.DB
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	log    *zap.Logger
}

func NewHandler(db *sql.DB, secret []byte, ttl time.Duration, log *zap.Logger) *Handler {
	return &Handler{
		db:     db,
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
		log:    log.Named("auth"),
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	identifier := strings.TrimSpace(req.Identifier())
	if identifier == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Username or email and password are required"})
		return
	}

	var admin models.Admin
	err := h.db.QueryRowContext(r.Context(),
		`SELECT id, username, email, password_hash, is_active, created_at
		 FROM admins WHERE username = $1 OR LOWER(email) = LOWER($1)`,
		identifier,
	).Scan(&admin.ID, &admin.Username, &admin.Email, &admin.PasswordHash, &admin.IsActive, &admin.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid credentials"})
		return
	}
	if err != nil {
		h.log.Error("admin lookup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid credentials"})
		return
	}
	if !admin.IsActive {
		writeJSON(w, http.StatusForbidden, models.ErrorResponse{Error: "Account is disabled"})
		return
	}

	token, err := h.issueToken(admin)
	if err != nil {
		h.log.Error("sign token", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate token"})
		return
	}

	h.log.Info("admin logged in", zap.Int64("admin_id", admin.ID))
	writeJSON(w, http.StatusOK, models.AuthResponse{Token: token, Admin: admin})
}

func (h *Handler) issueToken(admin models.Admin) (string, error) {
	now := h.now()
	claims := jwt.MapClaims{
		"adminId":  strconv.FormatInt(admin.ID, 10),
		"username": admin.Username,
		"role":     RoleAdmin,
		"exp":      now.Add(h.ttl).Unix(),
		"iat":      now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.secret)
}

// HashPassword is used when seeding admin accounts.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
