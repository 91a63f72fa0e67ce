package httpapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"khobor.news/khobor/internal/auth"
)

// requireAdmin gates the mutating endpoints behind a bearer token checked
// against the configured bcrypt hash. With no hash configured the whole
// admin surface answers 503 rather than running unauthenticated.
func (s *Server) requireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.opts.AdminTokenHash == "" {
				return serviceUnavailable(c, "Admin API is not configured")
			}

			token, found := bearerToken(c)
			if !found {
				return fail(c, http.StatusUnauthorized, "Authentication required", nil)
			}
			if !auth.VerifyToken(token, s.opts.AdminTokenHash) {
				return fail(c, http.StatusUnauthorized, "Invalid token", nil)
			}

			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, bool) {
	header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
