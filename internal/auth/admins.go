package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mock-test/backend/internal/models"
)

// CreateAdmin inserts an active admin account with a bcrypt-hashed password.
func CreateAdmin(ctx context.Context, db *sql.DB, username, email, password string) (models.Admin, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" {
		return models.Admin{}, fmt.Errorf("username and email are required")
	}
	if len(password) < 8 {
		return models.Admin{}, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return models.Admin{}, fmt.Errorf("hash password: %w", err)
	}

	admin := models.Admin{Username: username, Email: email, IsActive: true}
	err = db.QueryRowContext(ctx,
		`INSERT INTO admins (username, email, password_hash, is_active)
		 VALUES ($1, $2, $3, TRUE)
		 RETURNING id, created_at`,
		username, email, hash,
	).Scan(&admin.ID, &admin.CreatedAt)
	if err != nil {
		return models.Admin{}, fmt.Errorf("insert admin: %w", err)
	}
	return admin, nil
}
