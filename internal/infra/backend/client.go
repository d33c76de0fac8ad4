// Package backend implements the HTTP adapter for the remote merchant
// backend. It owns the transport concerns: credential attachment, the
// error taxonomy mapping, and tolerant decoding of divergent response
// shapes. It never retries and never caches.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"console/config"
	"console/internal/domain/entity"
	domainerrors "console/internal/domain/errors"
	"console/internal/domain/gateway"
	"console/internal/errors"
)

// Client talks HTTP/JSON to the merchant backend.
type Client struct {
	baseURL    string
	authScheme string
	tokens     gateway.TokenProvider
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates the backend client. Under the cookie scheme a jar carries the
// session credential; under the bearer scheme the Authorization header is
// attached from the token provider on every authenticated call.
func New(cfg *config.Config, tokens gateway.TokenProvider, logger *slog.Logger) (gateway.Backend, error) {
	httpClient := &http.Client{Timeout: cfg.Backend.Timeout}

	if cfg.Backend.AuthScheme == config.AuthSchemeCookie {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(err, "create cookie jar")
		}
		httpClient.Jar = jar
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.Backend.BaseURL, "/"),
		authScheme: cfg.Backend.AuthScheme,
		tokens:     tokens,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Login exchanges credentials for a merchant identity and any issued tokens.
func (c *Client) Login(ctx context.Context, creds gateway.Credentials) (*gateway.LoginResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
	}, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := extractMessage(resp.Body)
		if message == "" {
			return nil, errors.WithStack(domainerrors.ErrInvalidCredentials)
		}

		return nil, errors.WithStack(domainerrors.NewBaseError(
			http.StatusUnauthorized, "INVALID_CREDENTIALS", message, ""))
	}

	var body struct {
		Merchant     json.RawMessage `json:"merchant"`
		AccessToken  string          `json:"accessToken"`
		RefreshToken string          `json:"refreshToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.WithStack(domainerrors.ErrMalformedResponse.WithDetails(err.Error()))
	}
	if len(body.Merchant) == 0 {
		return nil, errors.WithStack(domainerrors.ErrMalformedResponse.WithDetails("login response has no merchant object"))
	}

	merchant, err := decodeMerchant(body.Merchant)
	if err != nil {
		return nil, errors.WithStack(domainerrors.ErrMalformedResponse.WithDetails(err.Error()))
	}

	return &gateway.LoginResult{
		Merchant:     merchant,
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
	}, nil
}

// Register creates a new merchant account. No session is established.
func (c *Client) Register(ctx context.Context, reg gateway.Registration) error {
	resp, err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"name":     reg.Name,
		"email":    reg.Email,
		"password": reg.Password,
	}, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := extractMessage(resp.Body)
		if message == "" {
			return errors.WithStack(domainerrors.ErrRegistrationRejected)
		}

		return errors.WithStack(domainerrors.NewBaseError(
			http.StatusBadRequest, "REGISTRATION_REJECTED", message, ""))
	}

	return nil
}

// UpdateMerchant edits the merchant profile.
func (c *Client) UpdateMerchant(ctx context.Context, merchantID int64, update gateway.ProfileUpdate) (*entity.Merchant, error) {
	payload := map[string]string{}
	if update.Name != "" {
		payload["name"] = update.Name
	}
	if update.Email != "" {
		payload["email"] = update.Email
	}
	if update.Password != "" {
		payload["password"] = update.Password
	}

	resp, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/auth/merchants/%d", merchantID), payload, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := remoteFailure(resp); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		// Acknowledged without a body; the caller keeps its local view.
		return nil, nil
	}

	merchant, decodeErr := decodeMerchant(raw)
	if decodeErr != nil {
		return nil, nil
	}

	return &merchant, nil
}

// ListProducts fetches the full, unfiltered product collection.
func (c *Client) ListProducts(ctx context.Context) ([]entity.Product, error) {
	resp, err := c.do(ctx, http.MethodGet, "/products", nil, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := remoteFailure(resp); err != nil {
		return nil, err
	}

	var rows []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, errors.WithStack(domainerrors.ErrMalformedResponse.WithDetails(err.Error()))
	}

	products := make([]entity.Product, 0, len(rows))
	for _, row := range rows {
		product, err := decodeProduct(row)
		if err != nil {
			c.logger.Warn("Skipping undecodable product record", slog.Any("error", err))

			continue
		}
		products = append(products, product)
	}

	return products, nil
}

// CreateProduct creates a catalog entry and returns the backend's entity.
func (c *Client) CreateProduct(ctx context.Context, merchantID int64, name string, price float64) (*entity.Product, error) {
	resp, err := c.do(ctx, http.MethodPost, "/products", map[string]any{
		"merchantId": merchantID,
		"name":       name,
		"price":      price,
	}, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := remoteFailure(resp); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithStack(domainerrors.ErrMalformedResponse.WithDetails(err.Error()))
	}

	product, err := decodeProduct(raw)
	if err != nil {
		return nil, errors.WithStack(domainerrors.ErrMalformedResponse.WithDetails(err.Error()))
	}

	return &product, nil
}

// UpdateProduct modifies a catalog entry using the configured request shape.
func (c *Client) UpdateProduct(ctx context.Context, id int64, full entity.Product, patch entity.ProductPatch, mode gateway.UpdateMode) (*gateway.UpdateResult, error) {
	var (
		method  string
		payload map[string]any
	)

	switch mode {
	case gateway.UpdatePatch:
		method = http.MethodPatch
		payload = map[string]any{}
		if patch.Name != nil {
			payload["name"] = *patch.Name
		}
		if patch.Price != nil {
			payload["price"] = *patch.Price
		}
	default:
		method = http.MethodPut
		payload = map[string]any{
			"merchantId": full.MerchantID,
			"name":       full.Name,
			"price":      full.Price,
		}
	}

	resp, err := c.do(ctx, method, fmt.Sprintf("/products/%d", id), payload, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := remoteFailure(resp); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return &gateway.UpdateResult{HasBody: false}, nil
	}

	product, decodeErr := decodeProduct(raw)
	if decodeErr != nil {
		return &gateway.UpdateResult{HasBody: false}, nil
	}

	return &gateway.UpdateResult{Product: &product, HasBody: true}, nil
}

// DeleteProduct removes a catalog entry.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/products/%d", id), nil, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return remoteFailure(resp)
}

// FilterTransactions runs a report query. 404 means "zero results".
func (c *Client) FilterTransactions(ctx context.Context, merchantID int64, rng entity.DateRange) ([]entity.Transaction, error) {
	resp, err := c.do(ctx, http.MethodPost, "/transactions/filter", map[string]any{
		"merchantId": merchantID,
		"from":       rng.From.UTC().Format(time.RFC3339),
		"to":         rng.To.UTC().Format(time.RFC3339),
	}, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []entity.Transaction{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.WithStack(domainerrors.NewQueryError(extractMessage(resp.Body)))
	}

	var body struct {
		Success      bool              `json:"success"`
		Message      string            `json:"message"`
		Transactions []json.RawMessage `json:"transactions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.WithStack(domainerrors.NewQueryError("the server response could not be understood"))
	}
	if !body.Success {
		return nil, errors.WithStack(domainerrors.NewQueryError(body.Message))
	}

	transactions := make([]entity.Transaction, 0, len(body.Transactions))
	for _, row := range body.Transactions {
		tx, err := decodeTransaction(row)
		if err != nil {
			c.logger.Warn("Skipping undecodable transaction record", slog.Any("error", err))

			continue
		}
		transactions = append(transactions, tx)
	}

	return transactions, nil
}

// do performs one round-trip. Transport failures map to ConnectivityError;
// a missing token under the bearer scheme is an explicit auth error rather
// than a silent unauthenticated fallback.
func (c *Client) do(ctx context.Context, method, path string, payload any, authenticated bool) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authenticated && c.authScheme == config.AuthSchemeBearer {
		token, ok := c.tokens.Token()
		if !ok || token == "" {
			return nil, errors.WithStack(domainerrors.ErrTokenMissing)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WithStack(domainerrors.NewConnectivityError(err))
	}

	return resp, nil
}

// remoteFailure converts a non-2xx data-operation response into a RemoteError
// carrying the body message when one is present.
func remoteFailure(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	return errors.WithStack(domainerrors.NewRemoteError(resp.StatusCode, extractMessage(resp.Body)))
}

// extractMessage pulls a {message} field out of an error body, tolerating
// absent or non-JSON bodies.
func extractMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return ""
	}

	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ""
	}

	return strings.TrimSpace(parsed.Message)
}
