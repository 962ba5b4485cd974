package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"franchise-billing/internal/auth"
	"franchise-billing/internal/models"
	"franchise-billing/pkg/utils"
)

type contextKey string

const (
	UserKey      contextKey = "user"
	FranchiseKey contextKey = "franchise_id"
)

// FranchiseHeader lets an admin act on behalf of a franchisee
const FranchiseHeader = "X-Franchise-ID"

// UserLookup loads the current state of a user, including its franchise status
type UserLookup interface {
	Get(ctx context.Context, id int64) (*models.User, error)
}

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	users      UserLookup
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		users:      users,
	}
}

// Authenticate is a middleware that validates JWT tokens
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, status, msg := m.authenticate(r)
		if user == nil {
			utils.RespondError(w, status, msg)
			return
		}
		ctx := context.WithValue(r.Context(), UserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) authenticate(r *http.Request) (*models.User, int, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, http.StatusUnauthorized, "Authorization header required"
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, http.StatusUnauthorized, "Invalid authorization format"
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		return nil, http.StatusUnauthorized, "Invalid or expired token"
	}

	// Reload from the database so suspensions apply immediately
	user, err := m.users.Get(r.Context(), claims.UserID)
	if err != nil {
		return nil, http.StatusUnauthorized, "User not found"
	}
	if !user.IsActive {
		return nil, http.StatusForbidden, "Account suspended. Please contact administrator."
	}
	if !user.CanSignIn() {
		return nil, http.StatusForbidden, "Franchise is not approved"
	}
	return user, 0, ""
}

// RequireRole ensures the authenticated user has one of the allowed roles.
// It must run after Authenticate.
func RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				utils.RespondError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			for _, role := range allowedRoles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.RespondError(w, http.StatusForbidden, "Forbidden: Insufficient permissions")
		})
	}
}

// RequireTenant resolves the franchise a request operates on and stores it
// in the context. It must run after Authenticate.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		fid, err := TenantFromRequest(user, r)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), FranchiseKey, fid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantFromRequest returns the user's own franchise, or for admins the
// franchise named by the X-Franchise-ID header or franchise_id query param.
func TenantFromRequest(user *models.User, r *http.Request) (int64, error) {
	if user.Role != models.RoleAdmin {
		if user.FranchiseID == nil {
			return 0, errors.New("user is not linked to a franchise")
		}
		return *user.FranchiseID, nil
	}

	raw := r.Header.Get(FranchiseHeader)
	if raw == "" {
		raw = r.URL.Query().Get("franchise_id")
	}
	if raw == "" {
		return 0, errors.New("franchise_id is required for admin requests")
	}
	fid, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || fid <= 0 {
		return 0, errors.New("invalid franchise_id")
	}
	return fid, nil
}

// UserFromContext extracts the authenticated user from the request context
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserKey).(*models.User)
	return user, ok
}

// FranchiseIDFromContext extracts the resolved franchise id
func FranchiseIDFromContext(ctx context.Context) (int64, bool) {
	fid, ok := ctx.Value(FranchiseKey).(int64)
	return fid, ok
}

// WithUser returns a context carrying user; handlers under test use it
// to skip token validation.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// WithFranchise returns a context carrying a resolved franchise id
func WithFranchise(ctx context.Context, franchiseID int64) context.Context {
	return context.WithValue(ctx, FranchiseKey, franchiseID)
}
