package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"console/internal/delivery/http/response"
	"console/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// ProductHandler holds dependencies for catalog handlers.
type ProductHandler struct {
	catalog usecase.CatalogUsecase
	logger  *slog.Logger
}

// NewProductHandler is the constructor for ProductHandler, injected by Fx.
func NewProductHandler(catalog usecase.CatalogUsecase, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// List returns the merchant's catalog. By default it refreshes from the
// backend; ?cached=true serves the current cache without a network call.
func (h *ProductHandler) List(c echo.Context) error {
	if c.QueryParam("cached") == "true" {
		return response.Success(c, http.StatusOK, h.catalog.Snapshot(), "")
	}

	products, err := h.catalog.Load(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, products, "")
}

// Create adds a new product to the catalog.
func (h *ProductHandler) Create(c echo.Context) error {
	var input *usecase.CreateProductInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid product input")
	}

	product, err := h.catalog.Create(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, product, "Product created successfully")
}

// Update applies a product edit.
func (h *ProductHandler) Update(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return response.BadRequest(c, "INVALID_PRODUCT_ID", "Product id must be an integer")
	}

	var input *usecase.UpdateProductInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid product input")
	}

	product, err := h.catalog.Update(c.Request().Context(), id, input)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, product, "Product updated successfully")
}

// RequestDelete marks a product for deletion. Nothing is removed until the
// delete is confirmed.
func (h *ProductHandler) RequestDelete(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return response.BadRequest(c, "INVALID_PRODUCT_ID", "Product id must be an integer")
	}

	if err := h.catalog.RequestDelete(c.Request().Context(), id); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusAccepted, nil, "Delete requested. Confirm to proceed.")
}

// ConfirmDelete dispatches a previously requested delete.
func (h *ProductHandler) ConfirmDelete(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return response.BadRequest(c, "INVALID_PRODUCT_ID", "Product id must be an integer")
	}

	if err := h.catalog.ConfirmDelete(c.Request().Context(), id); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Product deleted successfully")
}

// CancelDelete abandons a pending delete request.
func (h *ProductHandler) CancelDelete(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return response.BadRequest(c, "INVALID_PRODUCT_ID", "Product id must be an integer")
	}

	if err := h.catalog.CancelDelete(c.Request().Context(), id); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Delete canceled")
}

// BeginEdit opens an edit session and returns the product's current state.
func (h *ProductHandler) BeginEdit(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return response.BadRequest(c, "INVALID_PRODUCT_ID", "Product id must be an integer")
	}

	product, err := h.catalog.BeginEdit(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, product, "")
}

// CancelEdit closes the current edit session.
func (h *ProductHandler) CancelEdit(c echo.Context) error {
	h.catalog.CancelEdit()

	return response.Success(c, http.StatusOK, nil, "Edit canceled")
}

func productID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
