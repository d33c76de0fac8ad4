package entity

import (
	"time"
)

// Product is a single catalog entry owned by the current merchant.
// Identifier and creation timestamp are always backend-assigned; the
// console never fabricates either.
type Product struct {
	ID         int64     // Backend-assigned identifier, stable for the entity lifetime.
	MerchantID int64     // Owning merchant; must equal the session's merchant for cached entries.
	Name       string    // Non-empty display name.
	Price      float64   // Non-negative unit price.
	CreatedAt  time.Time // Backend-assigned creation time.
}

// ProductPatch carries the fields of an update. Nil means "unchanged", which
// matters under partial-patch backends where only changed fields are sent.
type ProductPatch struct {
	Name  *string
	Price *float64
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Price == nil
}

// ApplyTo folds the patch into a copy of the given product. Used when the
// backend acknowledges an update without returning the entity.
func (p ProductPatch) ApplyTo(product Product) Product {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Price != nil {
		product.Price = *p.Price
	}

	return product
}
