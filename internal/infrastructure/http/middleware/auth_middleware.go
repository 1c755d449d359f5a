package middleware

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/youdub-team/youdub-backend/errors"
	"github.com/youdub-team/youdub-backend/pkg/jwt"
)

const (
	// UserIDContextKey is the echo context key for the authenticated user id
	UserIDContextKey = "user_id"
	// UserEmailContextKey is the echo context key for the authenticated email
	UserEmailContextKey = "user_email"
)

// AuthMiddleware validates bearer tokens issued by the account service
type AuthMiddleware struct {
	jwtManager *jwt.Manager
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *jwt.Manager) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
	}
}

// Authenticate validates the JWT token and stores the caller identity on the
// echo context
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := extractToken(c)
		if token == "" {
			return unauthenticated(c)
		}

		claims, err := m.jwtManager.ValidateAccessToken(token)
		if err != nil {
			return unauthenticated(c)
		}

		c.Set(UserIDContextKey, claims.UserID)
		c.Set(UserEmailContextKey, claims.Email)
		return next(c)
	}
}

func unauthenticated(c echo.Context) error {
	appErr := apperrors.ErrUnauthenticated()
	return c.JSON(appErr.HTTPCode, map[string]interface{}{
		"code":    appErr.Code,
		"message": appErr.Message,
	})
}

// UserIDFromContext returns the authenticated user id set by Authenticate
func UserIDFromContext(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(UserIDContextKey).(uuid.UUID)
	return id, ok
}

// extractToken reads the bearer token from the Authorization header, with an
// access_token cookie as fallback
func extractToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	cookie, err := c.Cookie("access_token")
	if err == nil {
		return cookie.Value
	}

	return ""
}
