package middleware

import (
	"console/internal/delivery/http/response"
	domainerrors "console/internal/domain/errors"
	"console/internal/usecase"

	"github.com/labstack/echo/v4"
)

// SessionMiddleware guards routes that require an established session. The
// session store is the single source of truth; there is no per-request token
// inspection here.
type SessionMiddleware struct {
	sessions usecase.SessionUsecase
}

// NewSessionMiddleware is the constructor for SessionMiddleware.
func NewSessionMiddleware(sessions usecase.SessionUsecase) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions}
}

// Require rejects the request when no merchant is logged in.
func (m *SessionMiddleware) Require(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := m.sessions.Current(); !ok {
			appErr := domainerrors.ErrNotAuthenticated

			return response.Unauthorized(c, appErr.ErrorCode(), appErr.Message())
		}

		return next(c)
	}
}
