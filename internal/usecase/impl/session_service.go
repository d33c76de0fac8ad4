// Package impl contains the application-specific business rules implementations.
package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	deliverycontext "console/internal/delivery/context"
	"console/internal/domain/entity"
	domainerrors "console/internal/domain/errors"
	"console/internal/domain/gateway"
	"console/internal/domain/storage"
	"console/internal/usecase"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// sessionService implements the SessionUsecase interface. It owns the single
// session instance; there is no ambient global login state anywhere else.
type sessionService struct {
	backend  gateway.Backend
	tokens   storage.TokenStore
	logger   *slog.Logger
	validate *validator.Validate

	mu      sync.RWMutex
	current *entity.Session
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(
	backend gateway.Backend,
	tokens storage.TokenStore,
	logger *slog.Logger,
) usecase.SessionUsecase {
	return &sessionService{
		backend:  backend,
		tokens:   tokens,
		logger:   logger,
		validate: validator.New(),
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Login authenticates against the backend and establishes the session.
func (srv *sessionService) Login(ctx context.Context, input *usecase.LoginInput) (*entity.Session, error) {
	if input == nil {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed)
	}
	if err := srv.validate.Struct(input); err != nil {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(err.Error()))
	}

	srv.log(ctx).Info("Logging in", slog.String("email", input.Email))

	result, err := srv.backend.Login(ctx, gateway.Credentials{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		// A rejected login never destroys an existing session.
		srv.log(ctx).Warn("Login failed", slog.Any("error", err))

		return nil, errors.Wrap(err, "login")
	}

	session := &entity.Session{
		Merchant:     result.Merchant,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		IssuedAt:     time.Now(),
	}

	if result.AccessToken != "" {
		if err := srv.tokens.Save(entity.TokenSet{
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
		}); err != nil {
			// The session still works for this run; only restart recovery is lost.
			srv.log(ctx).Warn("Failed to persist tokens", slog.Any("error", err))
		}
	}

	srv.mu.Lock()
	srv.current = session
	srv.mu.Unlock()

	srv.log(ctx).Info("Login successful", slog.Int64("merchant_id", session.Merchant.ID))

	return session, nil
}

// Register creates a new merchant account. No session is established.
func (srv *sessionService) Register(ctx context.Context, input *usecase.RegisterInput) error {
	if input == nil {
		return errors.WithStack(domainerrors.ErrValidationFailed)
	}
	if err := srv.validate.Struct(input); err != nil {
		return errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(err.Error()))
	}

	srv.log(ctx).Info("Registering merchant", slog.String("email", input.Email))

	if err := srv.backend.Register(ctx, gateway.Registration{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
	}); err != nil {
		srv.log(ctx).Warn("Registration failed", slog.Any("error", err))

		return errors.Wrap(err, "register")
	}

	return nil
}

// Logout tears down the session and purges persisted tokens synchronously.
func (srv *sessionService) Logout(ctx context.Context) {
	srv.mu.Lock()
	hadSession := srv.current != nil
	srv.current = nil
	srv.mu.Unlock()

	if err := srv.tokens.Clear(); err != nil {
		srv.log(ctx).Warn("Failed to clear persisted tokens", slog.Any("error", err))
	}

	if hadSession {
		srv.log(ctx).Info("Logged out")
	}
}

// Current returns the active session, if any.
func (srv *sessionService) Current() (*entity.Session, bool) {
	srv.mu.RLock()
	defer srv.mu.RUnlock()

	if srv.current == nil {
		return nil, false
	}

	session := *srv.current

	return &session, true
}

// UpdateProfile edits the logged-in merchant's profile.
func (srv *sessionService) UpdateProfile(ctx context.Context, input *usecase.UpdateProfileInput) (*entity.Merchant, error) {
	if input == nil || (input.Name == "" && input.Email == "" && input.Password == "") {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("no profile fields to update"))
	}
	if err := srv.validate.Struct(input); err != nil {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(err.Error()))
	}

	session, ok := srv.Current()
	if !ok {
		return nil, errors.WithStack(domainerrors.ErrNotAuthenticated)
	}

	srv.log(ctx).Info("Updating merchant profile", slog.Int64("merchant_id", session.Merchant.ID))

	refreshed, err := srv.backend.UpdateMerchant(ctx, session.Merchant.ID, gateway.ProfileUpdate{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		var remoteErr *domainerrors.RemoteError
		if errors.As(err, &remoteErr) && remoteErr.Unauthorized() {
			srv.Invalidate(ctx)
			err = errors.WithStack(domainerrors.ErrSessionInvalidated)
		}
		srv.log(ctx).Warn("Profile update failed", slog.Any("error", err))

		return nil, errors.Wrap(err, "update profile")
	}

	// The backend's refreshed identity wins; fall back to the local input
	// when it acknowledged without a body.
	merchant := session.Merchant
	if refreshed != nil {
		merchant = *refreshed
	} else {
		if input.Name != "" {
			merchant.Name = input.Name
		}
		if input.Email != "" {
			merchant.Email = input.Email
		}
	}

	srv.mu.Lock()
	if srv.current != nil {
		srv.current.Merchant = merchant
	}
	srv.mu.Unlock()

	return &merchant, nil
}

// Invalidate destroys the session after detected credential invalidity.
func (srv *sessionService) Invalidate(ctx context.Context) {
	srv.mu.Lock()
	hadSession := srv.current != nil
	srv.current = nil
	srv.mu.Unlock()

	if err := srv.tokens.Clear(); err != nil {
		srv.log(ctx).Warn("Failed to clear persisted tokens", slog.Any("error", err))
	}

	if hadSession {
		srv.log(ctx).Warn("Session invalidated by backend rejection")
	}
}
