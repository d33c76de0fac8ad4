package impl

import (
	"context"
	"sync"
	"time"

	"console/internal/domain/entity"
	"console/internal/domain/gateway"
	"console/internal/usecase"
)

// stubBackend implements gateway.Backend with overridable functions so each
// test controls exactly the calls it cares about.
type stubBackend struct {
	loginFn              func(ctx context.Context, creds gateway.Credentials) (*gateway.LoginResult, error)
	registerFn           func(ctx context.Context, reg gateway.Registration) error
	updateMerchantFn     func(ctx context.Context, merchantID int64, update gateway.ProfileUpdate) (*entity.Merchant, error)
	listProductsFn       func(ctx context.Context) ([]entity.Product, error)
	createProductFn      func(ctx context.Context, merchantID int64, name string, price float64) (*entity.Product, error)
	updateProductFn      func(ctx context.Context, id int64, full entity.Product, patch entity.ProductPatch, mode gateway.UpdateMode) (*gateway.UpdateResult, error)
	deleteProductFn      func(ctx context.Context, id int64) error
	filterTransactionsFn func(ctx context.Context, merchantID int64, rng entity.DateRange) ([]entity.Transaction, error)
}

func (s *stubBackend) Login(ctx context.Context, creds gateway.Credentials) (*gateway.LoginResult, error) {
	return s.loginFn(ctx, creds)
}

func (s *stubBackend) Register(ctx context.Context, reg gateway.Registration) error {
	return s.registerFn(ctx, reg)
}

func (s *stubBackend) UpdateMerchant(ctx context.Context, merchantID int64, update gateway.ProfileUpdate) (*entity.Merchant, error) {
	return s.updateMerchantFn(ctx, merchantID, update)
}

func (s *stubBackend) ListProducts(ctx context.Context) ([]entity.Product, error) {
	return s.listProductsFn(ctx)
}

func (s *stubBackend) CreateProduct(ctx context.Context, merchantID int64, name string, price float64) (*entity.Product, error) {
	return s.createProductFn(ctx, merchantID, name, price)
}

func (s *stubBackend) UpdateProduct(ctx context.Context, id int64, full entity.Product, patch entity.ProductPatch, mode gateway.UpdateMode) (*gateway.UpdateResult, error) {
	return s.updateProductFn(ctx, id, full, patch, mode)
}

func (s *stubBackend) DeleteProduct(ctx context.Context, id int64) error {
	return s.deleteProductFn(ctx, id)
}

func (s *stubBackend) FilterTransactions(ctx context.Context, merchantID int64, rng entity.DateRange) ([]entity.Transaction, error) {
	return s.filterTransactionsFn(ctx, merchantID, rng)
}

// stubSessions is a canned session store for catalog and report tests.
type stubSessions struct {
	mu          sync.Mutex
	session     *entity.Session
	invalidated bool
}

func newStubSessions(merchantID int64) *stubSessions {
	return &stubSessions{
		session: &entity.Session{
			Merchant:    entity.Merchant{ID: merchantID, Name: "Shop", Email: "shop@example.com"},
			AccessToken: "token",
			IssuedAt:    time.Now(),
		},
	}
}

func (s *stubSessions) Login(ctx context.Context, input *usecase.LoginInput) (*entity.Session, error) {
	return s.session, nil
}

func (s *stubSessions) Register(ctx context.Context, input *usecase.RegisterInput) error {
	return nil
}

func (s *stubSessions) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
}

func (s *stubSessions) Current() (*entity.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, false
	}

	return s.session, true
}

func (s *stubSessions) UpdateProfile(ctx context.Context, input *usecase.UpdateProfileInput) (*entity.Merchant, error) {
	return &s.session.Merchant, nil
}

func (s *stubSessions) Invalidate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	s.invalidated = true
}

func (s *stubSessions) wasInvalidated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.invalidated
}

// memTokens is an in-memory TokenStore for session tests.
type memTokens struct {
	mu     sync.Mutex
	stored *entity.TokenSet
	errOn  error
}

func (m *memTokens) Save(tokens entity.TokenSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errOn != nil {
		return m.errOn
	}
	m.stored = &tokens

	return nil
}

func (m *memTokens) Load() (entity.TokenSet, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stored == nil {
		return entity.TokenSet{}, false, nil
	}

	return *m.stored, true, nil
}

func (m *memTokens) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = nil

	return nil
}
