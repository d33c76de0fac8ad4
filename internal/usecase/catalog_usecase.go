package usecase

import (
	"context"

	"console/internal/domain/entity"
)

// --- Input DTOs ---

// CreateProductInput defines the data for a new catalog entry. The price
// arrives as the raw form string; numeric validation happens locally before
// any network call.
type CreateProductInput struct {
	Name  string `json:"name" validate:"required"`
	Price string `json:"price" validate:"required"`
}

// UpdateProductInput carries the changed fields of a product edit. Nil means
// "unchanged", which matters under partial-patch backends.
type UpdateProductInput struct {
	Name  *string  `json:"name"`
	Price *float64 `json:"price"`
}

// CatalogUsecase is the entity cache plus its mutation coordinator. The cache
// only ever holds products owned by the current merchant; every merge keys on
// the entity identifier, never on request order, and at most one mutation per
// identifier is in flight at a time.
type CatalogUsecase interface {
	// Load fetches the full remote collection, filters it to the current
	// merchant and replaces the cache. Any failure clears the cache and is
	// reported.
	Load(ctx context.Context) ([]entity.Product, error)

	// Snapshot returns the current cache contents in order.
	Snapshot() []entity.Product

	// Create validates the draft locally, creates the entry remotely and
	// merges the backend's authoritative entity into the cache.
	Create(ctx context.Context, input *CreateProductInput) (*entity.Product, error)

	// Update validates the patch locally and applies it remotely. The cache
	// entry is replaced with the backend's entity, or with the local draft
	// when the backend acknowledges without a body.
	Update(ctx context.Context, id int64, input *UpdateProductInput) (*entity.Product, error)

	// RequestDelete marks the product as awaiting user confirmation.
	// Nothing is dispatched until ConfirmDelete.
	RequestDelete(ctx context.Context, id int64) error

	// ConfirmDelete dispatches a previously requested delete and removes the
	// entity from the cache on success. Deleting the product under edit
	// cancels the edit session.
	ConfirmDelete(ctx context.Context, id int64) error

	// CancelDelete abandons a pending delete request.
	CancelDelete(ctx context.Context, id int64) error

	// BeginEdit opens an edit session for the given product.
	BeginEdit(ctx context.Context, id int64) (*entity.Product, error)

	// CurrentEdit returns the identifier under edit, if any.
	CurrentEdit() (int64, bool)

	// CancelEdit closes the edit session, if one is open.
	CancelEdit()

	// Reset discards the cache and all coordinator state. Pending responses
	// from before the reset are discarded when they arrive.
	Reset()
}
