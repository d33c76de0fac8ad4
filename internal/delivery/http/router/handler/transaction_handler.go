package handler

import (
	"log/slog"
	"net/http"

	"console/internal/delivery/http/response"
	"console/internal/domain/entity"
	"console/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// TransactionHandler holds dependencies for report handlers.
type TransactionHandler struct {
	reports usecase.ReportUsecase
	logger  *slog.Logger
}

// NewTransactionHandler is the constructor for TransactionHandler, injected by Fx.
func NewTransactionHandler(reports usecase.ReportUsecase, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		reports: reports,
		logger:  logger,
	}
}

// Filter runs a date-bounded transaction report. An empty result set is an
// ordinary 200, never an error.
func (h *TransactionHandler) Filter(c echo.Context) error {
	var input *usecase.FilterInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid filter input")
	}

	transactions, err := h.reports.Filter(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}
	if transactions == nil {
		transactions = []entity.Transaction{}
	}

	return response.Success(c, http.StatusOK, transactions, "")
}
