package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mock-test/backend/internal/models"
)

type adminKeyType struct{}

var adminKey adminKeyType

// AdminClaims is what the protected routes know about the caller.
type AdminClaims struct {
	AdminID  string
	Username string
	Role     string
}

func AdminFromContext(ctx context.Context) (AdminClaims, bool) {
	val, ok := ctx.Value(adminKey).(AdminClaims)
	return val, ok
}

func withAdmin(ctx context.Context, a AdminClaims) context.Context {
	return context.WithValue(ctx, adminKey, a)
}

// AdminAuth accepts a token in "Authorization: Bearer" or "x-auth-token" and
// admits it when it carries role=admin or an adminId claim.
func AdminAuth(secret []byte) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithExpirationRequired())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				deny(w, http.StatusUnauthorized, "No token provided")
				return
			}

			claims := jwt.MapClaims{}
			if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return secret, nil }); err != nil {
				deny(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			admin := AdminClaims{
				AdminID:  claimString(claims, "adminId"),
				Username: claimString(claims, "username"),
				Role:     claimString(claims, "role"),
			}
			if admin.Role != "admin" && admin.AdminID == "" {
				deny(w, http.StatusForbidden, "Admin access required")
				return
			}

			next.ServeHTTP(w, r.WithContext(withAdmin(r.Context(), admin)))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("x-auth-token"))
}

// claimString reads a claim that some issuers encode as a number.
func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg})
}
