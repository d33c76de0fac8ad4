// Package handler contains the HTTP handlers for the console.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"console/internal/delivery/http/response"
	"console/internal/domain/entity"
	"console/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// AuthHandler holds dependencies for session-related handlers.
type AuthHandler struct {
	sessions usecase.SessionUsecase
	logger   *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(sessions usecase.SessionUsecase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// sessionView is what the console exposes about the session. Tokens never
// leave the process.
type sessionView struct {
	Merchant entity.Merchant `json:"merchant"`
	IssuedAt time.Time       `json:"issuedAt"`
}

func newSessionView(session *entity.Session) sessionView {
	return sessionView{
		Merchant: session.Merchant,
		IssuedAt: session.IssuedAt,
	}
}

// Login handles the merchant login request.
func (h *AuthHandler) Login(c echo.Context) error {
	var input *usecase.LoginInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}

	session, err := h.sessions.Login(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newSessionView(session), "Login successful")
}

// Register handles the merchant registration request. No session is
// established; the merchant logs in afterwards.
func (h *AuthHandler) Register(c echo.Context) error {
	var input *usecase.RegisterInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid registration input")
	}

	if err := h.sessions.Register(c.Request().Context(), input); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, nil, "Registration successful. Please log in.")
}

// Logout tears down the session.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.sessions.Logout(c.Request().Context())

	return response.Success(c, http.StatusOK, nil, "Logout successful")
}

// Current returns the active session.
func (h *AuthHandler) Current(c echo.Context) error {
	session, ok := h.sessions.Current()
	if !ok {
		return response.Unauthorized(c, "NOT_AUTHENTICATED", "You are not logged in")
	}

	return response.Success(c, http.StatusOK, newSessionView(session), "")
}

// UpdateProfile edits the logged-in merchant's profile.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	var input *usecase.UpdateProfileInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid profile input")
	}

	merchant, err := h.sessions.UpdateProfile(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, merchant, "Profile updated successfully")
}

// HealthCheck is a simple handler to check if the console is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "Service is healthy")
}
