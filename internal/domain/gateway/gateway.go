// Package gateway defines the interface to the remote merchant backend.
// It acts as a contract between the application layers and the HTTP adapter;
// the backend itself is an external collaborator, never implemented here.
package gateway

import (
	"context"

	"console/internal/domain/entity"
)

// Credentials is the login input sent to the backend.
type Credentials struct {
	Email    string
	Password string
}

// Registration is the sign-up input. Registering never establishes a session;
// callers log in afterwards.
type Registration struct {
	Name     string
	Email    string
	Password string
}

// ProfileUpdate carries merchant profile changes. Empty fields are unchanged.
type ProfileUpdate struct {
	Name     string
	Email    string
	Password string
}

// LoginResult is the backend's answer to a successful login. Token fields are
// empty under cookie transport, where the credential rides in the jar.
type LoginResult struct {
	Merchant     entity.Merchant
	AccessToken  string
	RefreshToken string
}

// UpdateMode selects the request shape for product updates, because observed
// backend revisions implement both full replace and partial patch.
type UpdateMode string

const (
	UpdateReplace UpdateMode = "replace" // PUT, full record
	UpdatePatch   UpdateMode = "patch"   // PATCH, changed fields only
)

// UpdateResult distinguishes "backend returned the updated entity" from
// "backend acknowledged with no body", which callers fold differently.
type UpdateResult struct {
	Product *entity.Product
	HasBody bool
}

// Backend is the port to the remote merchant backend. Implementations map
// transport failures to ConnectivityError, non-2xx answers to RemoteError
// (or AuthError equivalents on the auth operations), and undecodable bodies
// to data errors; they never retry.
type Backend interface {
	// Login exchanges credentials for a merchant identity and any issued tokens.
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)

	// Register creates a new merchant account.
	Register(ctx context.Context, reg Registration) error

	// UpdateMerchant edits the profile of the given merchant and returns the
	// refreshed identity when the backend provides one.
	UpdateMerchant(ctx context.Context, merchantID int64, update ProfileUpdate) (*entity.Merchant, error)

	// ListProducts fetches the full, unfiltered product collection.
	// Records with no resolvable identifier are returned with ID zero.
	ListProducts(ctx context.Context) ([]entity.Product, error)

	// CreateProduct creates a catalog entry and returns the authoritative
	// backend entity.
	CreateProduct(ctx context.Context, merchantID int64, name string, price float64) (*entity.Product, error)

	// UpdateProduct modifies a catalog entry using the given request shape.
	UpdateProduct(ctx context.Context, id int64, full entity.Product, patch entity.ProductPatch, mode UpdateMode) (*UpdateResult, error)

	// DeleteProduct removes a catalog entry.
	DeleteProduct(ctx context.Context, id int64) error

	// FilterTransactions runs a report query. A backend 404 is "zero results",
	// not an error.
	FilterTransactions(ctx context.Context, merchantID int64, rng entity.DateRange) ([]entity.Transaction, error)
}

// TokenProvider exposes the current access token to the transport layer.
// The token is only ever replaced wholesale on login/logout, never mutated.
type TokenProvider interface {
	// Token returns the current access token, and whether one is held.
	Token() (string, bool)
}
