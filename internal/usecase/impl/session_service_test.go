package impl

import (
	"context"
	"net/http"
	"testing"

	"console/internal/domain/entity"
	domainerrors "console/internal/domain/errors"
	"console/internal/domain/gateway"
	"console/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLogin_EstablishesSessionAndPersistsTokens(t *testing.T) {
	backend := &stubBackend{
		loginFn: func(ctx context.Context, creds gateway.Credentials) (*gateway.LoginResult, error) {
			assert.Equal(t, "shop@example.com", creds.Email)

			return &gateway.LoginResult{
				Merchant:     entity.Merchant{ID: 7, Name: "Shop", Email: creds.Email},
				AccessToken:  "access-token",
				RefreshToken: "refresh-token",
			}, nil
		},
	}
	tokens := &memTokens{}
	sessions := NewSessionService(backend, tokens, discardLogger())

	session, err := sessions.Login(context.Background(), &usecase.LoginInput{
		Email:    "shop@example.com",
		Password: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), session.Merchant.ID)

	current, ok := sessions.Current()
	require.True(t, ok)
	assert.Equal(t, "access-token", current.AccessToken)

	stored, ok, err := tokens.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "access-token", stored.AccessToken)
	assert.Equal(t, "refresh-token", stored.RefreshToken)
}

func TestSessionLogin_ValidatesInput(t *testing.T) {
	sessions := NewSessionService(&stubBackend{}, &memTokens{}, discardLogger())

	_, err := sessions.Login(context.Background(), &usecase.LoginInput{Email: "not-an-email", Password: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	_, err = sessions.Login(context.Background(), &usecase.LoginInput{Email: "shop@example.com"})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
}

func TestSessionLogin_RejectionKeepsExistingSession(t *testing.T) {
	healthy := true
	backend := &stubBackend{
		loginFn: func(ctx context.Context, creds gateway.Credentials) (*gateway.LoginResult, error) {
			if healthy {
				return &gateway.LoginResult{
					Merchant:    entity.Merchant{ID: 7, Name: "Shop", Email: creds.Email},
					AccessToken: "access-token",
				}, nil
			}

			return nil, domainerrors.ErrInvalidCredentials
		},
	}
	sessions := NewSessionService(backend, &memTokens{}, discardLogger())

	_, err := sessions.Login(context.Background(), &usecase.LoginInput{Email: "shop@example.com", Password: "secret"})
	require.NoError(t, err)

	healthy = false
	_, err = sessions.Login(context.Background(), &usecase.LoginInput{Email: "shop@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	// A failed re-login never tears down the session already held.
	_, ok := sessions.Current()
	assert.True(t, ok)
}

func TestSessionLogout_ClearsSessionAndTokens(t *testing.T) {
	backend := &stubBackend{
		loginFn: func(ctx context.Context, creds gateway.Credentials) (*gateway.LoginResult, error) {
			return &gateway.LoginResult{
				Merchant:    entity.Merchant{ID: 7},
				AccessToken: "access-token",
			}, nil
		},
	}
	tokens := &memTokens{}
	sessions := NewSessionService(backend, tokens, discardLogger())

	_, err := sessions.Login(context.Background(), &usecase.LoginInput{Email: "shop@example.com", Password: "secret"})
	require.NoError(t, err)

	sessions.Logout(context.Background())

	_, ok := sessions.Current()
	assert.False(t, ok)
	_, ok, err = tokens.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	// Logging out twice is harmless.
	sessions.Logout(context.Background())
}

func TestSessionRegister_NoSessionEstablished(t *testing.T) {
	backend := &stubBackend{
		registerFn: func(ctx context.Context, reg gateway.Registration) error {
			assert.Equal(t, "New Shop", reg.Name)

			return nil
		},
	}
	sessions := NewSessionService(backend, &memTokens{}, discardLogger())

	err := sessions.Register(context.Background(), &usecase.RegisterInput{
		Name:     "New Shop",
		Email:    "new@example.com",
		Password: "secret",
	})
	require.NoError(t, err)

	_, ok := sessions.Current()
	assert.False(t, ok)
}

func TestSessionUpdateProfile(t *testing.T) {
	backend := &stubBackend{
		loginFn: func(ctx context.Context, creds gateway.Credentials) (*gateway.LoginResult, error) {
			return &gateway.LoginResult{
				Merchant:    entity.Merchant{ID: 7, Name: "Shop", Email: creds.Email},
				AccessToken: "access-token",
			}, nil
		},
		updateMerchantFn: func(ctx context.Context, merchantID int64, update gateway.ProfileUpdate) (*entity.Merchant, error) {
			assert.Equal(t, int64(7), merchantID)

			return &entity.Merchant{ID: 7, Name: update.Name, Email: "shop@example.com"}, nil
		},
	}
	sessions := NewSessionService(backend, &memTokens{}, discardLogger())

	_, err := sessions.UpdateProfile(context.Background(), &usecase.UpdateProfileInput{Name: "Renamed"})
	assert.ErrorIs(t, err, domainerrors.ErrNotAuthenticated)

	_, err = sessions.Login(context.Background(), &usecase.LoginInput{Email: "shop@example.com", Password: "secret"})
	require.NoError(t, err)

	merchant, err := sessions.UpdateProfile(context.Background(), &usecase.UpdateProfileInput{Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", merchant.Name)

	current, ok := sessions.Current()
	require.True(t, ok)
	assert.Equal(t, "Renamed", current.Merchant.Name)
}

func TestSessionUpdateProfile_UnauthorizedInvalidates(t *testing.T) {
	backend := &stubBackend{
		loginFn: func(ctx context.Context, creds gateway.Credentials) (*gateway.LoginResult, error) {
			return &gateway.LoginResult{
				Merchant:    entity.Merchant{ID: 7},
				AccessToken: "access-token",
			}, nil
		},
		updateMerchantFn: func(ctx context.Context, merchantID int64, update gateway.ProfileUpdate) (*entity.Merchant, error) {
			return nil, domainerrors.NewRemoteError(http.StatusUnauthorized, "token expired")
		},
	}
	tokens := &memTokens{}
	sessions := NewSessionService(backend, tokens, discardLogger())

	_, err := sessions.Login(context.Background(), &usecase.LoginInput{Email: "shop@example.com", Password: "secret"})
	require.NoError(t, err)

	_, err = sessions.UpdateProfile(context.Background(), &usecase.UpdateProfileInput{Name: "Renamed"})
	assert.ErrorIs(t, err, domainerrors.ErrSessionInvalidated)

	_, ok := sessions.Current()
	assert.False(t, ok)
	_, ok, loadErr := tokens.Load()
	require.NoError(t, loadErr)
	assert.False(t, ok)
}
