// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"console/internal/domain/entity"
)

// --- Input DTOs ---

// LoginInput defines the data required for a merchant to log in.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterInput defines the data required to register a new merchant.
// Registration never establishes a session; the merchant logs in afterwards.
type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileInput carries merchant profile changes. Empty fields are
// left unchanged.
type UpdateProfileInput struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password"`
}

// SessionUsecase is the session store: the sole source of truth for "who is
// logged in". Authentication is never retried automatically.
type SessionUsecase interface {
	// Login authenticates against the backend and establishes the session,
	// persisting any issued tokens to durable storage.
	Login(ctx context.Context, input *LoginInput) (*entity.Session, error)

	// Register creates a new merchant account without logging in.
	Register(ctx context.Context, input *RegisterInput) error

	// Logout tears down the session and purges persisted tokens. Safe to
	// call when no session exists.
	Logout(ctx context.Context)

	// Current returns the active session, if any.
	Current() (*entity.Session, bool)

	// UpdateProfile edits the logged-in merchant's profile and folds the
	// backend's refreshed identity into the session.
	UpdateProfile(ctx context.Context, input *UpdateProfileInput) (*entity.Merchant, error)

	// Invalidate destroys the session after detected credential invalidity
	// (a 401 on any data operation).
	Invalidate(ctx context.Context)
}
