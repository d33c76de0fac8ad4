package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"console/internal/domain/entity"
	"console/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cannedSessions satisfies usecase.SessionUsecase with fixed answers.
type cannedSessions struct {
	session *entity.Session
}

func (s *cannedSessions) Login(ctx context.Context, input *usecase.LoginInput) (*entity.Session, error) {
	s.session = &entity.Session{
		Merchant:    entity.Merchant{ID: 7, Name: "Shop", Email: input.Email},
		AccessToken: "access-token",
		IssuedAt:    time.Now(),
	}

	return s.session, nil
}

func (s *cannedSessions) Register(ctx context.Context, input *usecase.RegisterInput) error {
	return nil
}

func (s *cannedSessions) Logout(ctx context.Context) {
	s.session = nil
}

func (s *cannedSessions) Current() (*entity.Session, bool) {
	if s.session == nil {
		return nil, false
	}

	return s.session, true
}

func (s *cannedSessions) UpdateProfile(ctx context.Context, input *usecase.UpdateProfileInput) (*entity.Merchant, error) {
	return &s.session.Merchant, nil
}

func (s *cannedSessions) Invalidate(ctx context.Context) {
	s.session = nil
}

func TestAuthHandler_LoginDoesNotExposeTokens(t *testing.T) {
	handler := NewAuthHandler(&cannedSessions{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email": "shop@example.com", "password": "secret"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.Login(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `"shop@example.com"`)
	// Tokens stay inside the process; the response only carries the identity.
	assert.NotContains(t, body, "access-token")
}

func TestAuthHandler_CurrentWithoutSession(t *testing.T) {
	handler := NewAuthHandler(&cannedSessions{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.Current(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_AUTHENTICATED")
}

func TestHealthCheck(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := HealthCheck(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
