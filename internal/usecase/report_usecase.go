package usecase

import (
	"context"

	"console/internal/domain/entity"
)

// FilterInput bounds a transaction report query. Both dates are required and
// are validated locally before any network call. Accepted layouts are the
// console's datetime-local format, a bare date, or RFC 3339.
type FilterInput struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// ReportUsecase runs on-demand transaction report queries. Results are never
// cached; each invocation is independent and fully replaces the previous
// result set at the caller.
type ReportUsecase interface {
	Filter(ctx context.Context, input *FilterInput) ([]entity.Transaction, error)
}
