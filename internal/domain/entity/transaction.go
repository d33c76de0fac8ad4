package entity

import (
	"time"
)

// TransactionStatus is the settlement state reported by the backend.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "Pending"
	StatusCompleted TransactionStatus = "Completed"
	StatusFailed    TransactionStatus = "Failed"
	StatusUnknown   TransactionStatus = "Unknown"
)

// NormalizeStatus maps a raw backend status onto the known set; anything
// unrecognized (including the empty string) collapses to StatusUnknown.
func NormalizeStatus(raw string) TransactionStatus {
	switch TransactionStatus(raw) {
	case StatusPending, StatusCompleted, StatusFailed:
		return TransactionStatus(raw)
	default:
		return StatusUnknown
	}
}

// Transaction is one row of a report query result. Transactions are never
// cached; each query result fully replaces the previous one.
type Transaction struct {
	ID          string            // Backend transaction identifier.
	TotalAmount float64           // Non-negative settled amount.
	Status      TransactionStatus // Normalized settlement state.
	CreatedAt   time.Time         // When the transaction occurred.
}

// DateRange bounds a transaction report query. Both ends are required.
type DateRange struct {
	From time.Time
	To   time.Time
}
