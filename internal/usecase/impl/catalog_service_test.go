package impl

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"console/config"
	"console/internal/domain/entity"
	domainerrors "console/internal/domain/errors"
	"console/internal/domain/gateway"
	"console/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Backend.UpdateMode = config.UpdateModeReplace
	cfg.Mutation.CreatePolicy = config.PolicyPessimistic
	cfg.Mutation.UpdatePolicy = config.PolicyPessimistic

	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCatalogForTest(backend gateway.Backend, sessions usecase.SessionUsecase, cfg *config.Config) usecase.CatalogUsecase {
	return NewCatalogService(backend, sessions, cfg, discardLogger())
}

func TestCatalogLoad_FiltersToCurrentMerchant(t *testing.T) {
	backend := &stubBackend{
		listProductsFn: func(ctx context.Context) ([]entity.Product, error) {
			return []entity.Product{
				{ID: 1, MerchantID: 7, Name: "Noodles", Price: 8.5},
				{ID: 2, MerchantID: 9, Name: "Foreign", Price: 1},
				{ID: 3, MerchantID: 7, Name: "Dumplings", Price: 6},
			}, nil
		},
	}
	catalog := newCatalogForTest(backend, newStubSessions(7), testConfig())

	products, err := catalog.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(1), products[0].ID)
	assert.Equal(t, int64(3), products[1].ID)

	// The foreign product must never be observable, from any access path.
	for _, p := range catalog.Snapshot() {
		assert.Equal(t, int64(7), p.MerchantID)
	}
}

func TestCatalogLoad_RequiresSession(t *testing.T) {
	sessions := newStubSessions(7)
	sessions.Logout(context.Background())
	catalog := newCatalogForTest(&stubBackend{}, sessions, testConfig())

	_, err := catalog.Load(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrNotAuthenticated)
}

func TestCatalogLoad_FailureClearsCache(t *testing.T) {
	healthy := true
	backend := &stubBackend{
		listProductsFn: func(ctx context.Context) ([]entity.Product, error) {
			if healthy {
				return []entity.Product{{ID: 1, MerchantID: 7, Name: "Noodles", Price: 8.5}}, nil
			}

			return nil, domainerrors.NewConnectivityError(io.ErrUnexpectedEOF)
		},
	}
	catalog := newCatalogForTest(backend, newStubSessions(7), testConfig())

	_, err := catalog.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog.Snapshot(), 1)

	healthy = false
	_, err = catalog.Load(context.Background())
	require.Error(t, err)

	// Fail-safe-empty: no stale rows survive a failed refresh.
	assert.Empty(t, catalog.Snapshot())
}

func TestCatalogLoad_UnauthorizedInvalidatesSession(t *testing.T) {
	backend := &stubBackend{
		listProductsFn: func(ctx context.Context) ([]entity.Product, error) {
			return nil, domainerrors.NewRemoteError(http.StatusUnauthorized, "token expired")
		},
	}
	sessions := newStubSessions(7)
	catalog := newCatalogForTest(backend, sessions, testConfig())

	_, err := catalog.Load(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrSessionInvalidated)
	assert.True(t, sessions.wasInvalidated())
	assert.Empty(t, catalog.Snapshot())
}

func TestCatalogCreate_ValidatesLocally(t *testing.T) {
	called := false
	backend := &stubBackend{
		createProductFn: func(ctx context.Context, merchantID int64, name string, price float64) (*entity.Product, error) {
			called = true

			return nil, nil
		},
	}
	catalog := newCatalogForTest(backend, newStubSessions(7), testConfig())

	_, err := catalog.Create(context.Background(), &usecase.CreateProductInput{Name: "   ", Price: "5"})
	assert.ErrorIs(t, err, domainerrors.ErrEmptyProductName)

	_, err = catalog.Create(context.Background(), &usecase.CreateProductInput{Name: "Tea", Price: "abc"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidProductPrice)

	_, err = catalog.Create(context.Background(), &usecase.CreateProductInput{Name: "Tea", Price: "-3"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidProductPrice)

	// Local rejections never reach the network.
	assert.False(t, called)
}

func TestCatalogCreate_MergesServerEntity(t *testing.T) {
	backend := &stubBackend{
		createProductFn: func(ctx context.Context, merchantID int64, name string, price float64) (*entity.Product, error) {
			return &entity.Product{ID: 42, MerchantID: merchantID, Name: name, Price: price}, nil
		},
	}
	catalog := newCatalogForTest(backend, newStubSessions(7), testConfig())

	created, err := catalog.Create(context.Background(), &usecase.CreateProductInput{Name: " Tea ", Price: "4.50"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)
	assert.Equal(t, "Tea", created.Name)

	snapshot := catalog.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, int64(42), snapshot[0].ID)
}

func TestCatalogCreate_OptimisticRevertsOnFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Mutation.CreatePolicy = config.PolicyOptimistic
	backend := &stubBackend{
		createProductFn: func(ctx context.Context, merchantID int64, name string, price float64) (*entity.Product, error) {
			return nil, domainerrors.NewRemoteError(http.StatusInternalServerError, "boom")
		},
	}
	catalog := newCatalogForTest(backend, newStubSessions(7), cfg)

	_, err := catalog.Create(context.Background(), &usecase.CreateProductInput{Name: "Tea", Price: "4.50"})
	require.Error(t, err)

	// The provisional row must not survive the failure.
	assert.Empty(t, catalog.Snapshot())
}

func seedCatalog(t *testing.T, backend *stubBackend, catalog usecase.CatalogUsecase, products ...entity.Product) {
	t.Helper()
	backend.listProductsFn = func(ctx context.Context) ([]entity.Product, error) {
		return products, nil
	}
	_, err := catalog.Load(context.Background())
	require.NoError(t, err)
}

func TestCatalogUpdate_ServerEntityWins(t *testing.T) {
	backend := &stubBackend{
		updateProductFn: func(ctx context.Context, id int64, full entity.Product, patch entity.ProductPatch, mode gateway.UpdateMode) (*gateway.UpdateResult, error) {
			assert.Equal(t, gateway.UpdateReplace, mode)

			return &gateway.UpdateResult{
				Product: &entity.Product{ID: id, MerchantID: 7, Name: "Server Tea", Price: 9},
				HasBody: true,
			}, nil
		},
	}
	catalog := newCatalogForTest(backend, newStubSessions(7), testConfig())
	seedCatalog(t, backend, catalog, entity.Product{ID: 1, MerchantID: 7, Name: "Tea", Price: 4})

	name := "Local Tea"
	updated, err := catalog.Update(context.Background(), 1, &usecase.UpdateProductInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Server Tea", updated.Name)

	snapshot := catalog.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "Server Tea", snapshot[0].Name)
	assert.Equal(t, float64(9), snapshot[0].Price)
}

func TestCatalogUpdate_NoBodyKeepsLocalDraft(t *testing.T) {
	backend := &stubBackend{
		updateProductFn: func(ctx context.Context, id int64, full entity.Product, patch entity.ProductPatch, mode gateway.UpdateMode) (*gateway.UpdateResult, error) {
			return &gateway.UpdateResult{HasBody: false}, nil
		},
	}
	catalog := newCatalogForTest(backend, newStubSessions(7), testConfig())
	seedCatalog(t, backend, catalog, entity.Product{ID: 1, MerchantID: 7, Name: "Tea", Price: 4})

	price := 5.5
	updated, err := catalog.Update(context.Background(), 1, &usecase.UpdateProductInput{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 5.5, updated.Price)
	assert.Equal(t, "Tea", updated.Name)

	snapshot := catalog.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, 5.5, snapshot[0].Price)
}

func TestCatalogUpdate_FailureRestoresKnownGood(t *testing.T) {
	cfg := testConfig()
	cfg.Mutation.UpdatePolicy = config.PolicyOptimistic
	backend := &stubBackend{
		updateProductFn: func(ctx context.Context, id int64, full entity.Product, patch entity.ProductPatch, mode gateway.UpdateMode) (*gateway.UpdateResult, error) {
			return nil, domainerrors.NewRemoteError(http.StatusInternalServerError, "boom")
		},
	}
	catalog := newCatalogForTest(backend, newStubSessions(7), cfg)
	seedCatalog(t, backend, catalog, entity.Product{ID: 1, MerchantID: 7, Name: "Tea", Price: 4})

	name := "Broken"
	_, err := catalog.Update(context.Background(), 1, &usecase.UpdateProductInput{Name: &name})
	require.Error(t, err)

	// Never a partial state: the pre-edit snapshot is restored.
	snapshot := catalog.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "Tea", snapshot[0].Name)
	assert.Equal(t, float64(4), snapshot[0].Price)

	// The identifier is idle again, so a retry goes through.
	backend.updateProductFn = func(ctx context.Context, id int64, full entity.Product, patch entity.ProductPatch, mode gateway.UpdateMode) (*gateway.UpdateResult, error) {
		return &gateway.UpdateResult{Product: &full, HasBody: true}, nil
	}
	updated, err := catalog.Update(context.Background(), 1, &usecase.UpdateProductInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Broken", updated.Name)
}

func TestCatalogUpdate_BusyIdentifierRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := &stubBackend{
		updateProductFn: func(ctx context.Context, id int64, full entity.Product, patch entity.ProductPatch, mode gateway.UpdateMode) (*gateway.UpdateResult, error) {
			close(entered)
			<-release

			return &gateway.UpdateResult{Product: &full, HasBody: true}, nil
		},
	}
	catalog := newCatalogForTest(backend, newStubSessions(7), testConfig())
	seedCatalog(t, backend, catalog,
		entity.Product{ID: 1, MerchantID: 7, Name: "Tea", Price: 4},
		entity.Product{ID: 2, MerchantID: 7, Name: "Coffee", Price: 6},
	)

	name := "Oolong"
	done := make(chan error, 1)
	go func() {
		_, err := catalog.Update(context.Background(), 1, &usecase.UpdateProductInput{Name: &name})
		done <- err
	}()
	<-entered

	// Second mutation on the same identifier is rejected while the first is
	// in flight.
	_, err := catalog.Update(context.Background(), 1, &usecase.UpdateProductInput{Name: &name})
	assert.ErrorIs(t, err, domainerrors.ErrProductBusy)
	err = catalog.RequestDelete(context.Background(), 1)
	assert.ErrorIs(t, err, domainerrors.ErrProductBusy)
	_, err = catalog.BeginEdit(context.Background(), 1)
	assert.ErrorIs(t, err, domainerrors.ErrProductBusy)

	close(release)
	require.NoError(t, <-done)

	snapshot := catalog.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "Oolong", snapshot[0].Name)
	// The sibling identifier was never blocked or touched.
	assert.Equal(t, "Coffee", snapshot[1].Name)
}

func TestCatalogUpdate_StaleResponseDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := &stubBackend{
		updateProductFn: func(ctx context.Context, id int64, full entity.Product, patch entity.ProductPatch, mode gateway.UpdateMode) (*gateway.UpdateResult, error) {
			close(entered)
			<-release

			return &gateway.UpdateResult{Product: &full, HasBody: true}, nil
		},
	}
	catalog := newCatalogForTest(backend, newStubSessions(7), testConfig())
	seedCatalog(t, backend, catalog, entity.Product{ID: 1, MerchantID: 7, Name: "Tea", Price: 4})

	name := "Oolong"
	done := make(chan error, 1)
	go func() {
		_, err := catalog.Update(context.Background(), 1, &usecase.UpdateProductInput{Name: &name})
		done <- err
	}()
	<-entered

	// The cache is torn down while the response is still in flight.
	catalog.Reset()

	close(release)
	require.NoError(t, <-done)

	// The late response must not repopulate the discarded cache.
	assert.Empty(t, catalog.Snapshot())
}

func TestCatalogDelete_RequiresConfirmation(t *testing.T) {
	deleted := false
	backend := &stubBackend{
		deleteProductFn: func(ctx context.Context, id int64) error {
			deleted = true

			return nil
		},
	}
	catalog := newCatalogForTest(backend, newStubSessions(7), testConfig())
	seedCatalog(t, backend, catalog, entity.Product{ID: 1, MerchantID: 7, Name: "Tea", Price: 4})

	// Confirming without a prior request is a distinct failure.
	err := catalog.ConfirmDelete(context.Background(), 1)
	assert.ErrorIs(t, err, domainerrors.ErrNoPendingDelete)
	assert.False(t, deleted)

	require.NoError(t, catalog.RequestDelete(context.Background(), 1))
	assert.False(t, deleted)
	require.Len(t, catalog.Snapshot(), 1)

	require.NoError(t, catalog.ConfirmDelete(context.Background(), 1))
	assert.True(t, deleted)
	assert.Empty(t, catalog.Snapshot())
}

func TestCatalogDelete_CancelKeepsEntity(t *testing.T) {
	backend := &stubBackend{
		deleteProductFn: func(ctx context.Context, id int64) error {
			t.Fatal("delete must not be dispatched after cancel")

			return nil
		},
	}
	catalog := newCatalogForTest(backend, newStubSessions(7), testConfig())
	seedCatalog(t, backend, catalog, entity.Product{ID: 1, MerchantID: 7, Name: "Tea", Price: 4})

	require.NoError(t, catalog.RequestDelete(context.Background(), 1))
	require.NoError(t, catalog.CancelDelete(context.Background(), 1))

	err := catalog.ConfirmDelete(context.Background(), 1)
	assert.ErrorIs(t, err, domainerrors.ErrNoPendingDelete)
	assert.Len(t, catalog.Snapshot(), 1)
}

func TestCatalogDelete_CancelsEditOnSameProduct(t *testing.T) {
	backend := &stubBackend{
		deleteProductFn: func(ctx context.Context, id int64) error {
			return nil
		},
	}
	catalog := newCatalogForTest(backend, newStubSessions(7), testConfig())
	seedCatalog(t, backend, catalog,
		entity.Product{ID: 1, MerchantID: 7, Name: "Tea", Price: 4},
	)

	_, err := catalog.BeginEdit(context.Background(), 1)
	require.NoError(t, err)
	_, editing := catalog.CurrentEdit()
	require.True(t, editing)

	require.NoError(t, catalog.RequestDelete(context.Background(), 1))
	require.NoError(t, catalog.ConfirmDelete(context.Background(), 1))

	_, editing = catalog.CurrentEdit()
	assert.False(t, editing)
}

func TestCatalogBeginEdit(t *testing.T) {
	backend := &stubBackend{}
	catalog := newCatalogForTest(backend, newStubSessions(7), testConfig())
	seedCatalog(t, backend, catalog, entity.Product{ID: 1, MerchantID: 7, Name: "Tea", Price: 4})

	_, err := catalog.BeginEdit(context.Background(), 99)
	assert.ErrorIs(t, err, domainerrors.ErrProductNotFound)

	_, err = catalog.BeginEdit(context.Background(), 0)
	assert.ErrorIs(t, err, domainerrors.ErrUnidentifiedProduct)

	product, err := catalog.BeginEdit(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Tea", product.Name)

	id, editing := catalog.CurrentEdit()
	assert.True(t, editing)
	assert.Equal(t, int64(1), id)

	catalog.CancelEdit()
	_, editing = catalog.CurrentEdit()
	assert.False(t, editing)
}

func TestCatalogLoad_ConcurrentWithMutation(t *testing.T) {
	// A reload that completes after a reset must not resurrect old rows.
	var calls int
	backend := &stubBackend{
		listProductsFn: func(ctx context.Context) ([]entity.Product, error) {
			calls++

			return []entity.Product{{ID: 1, MerchantID: 7, Name: "Tea", Price: 4}}, nil
		},
	}
	catalog := newCatalogForTest(backend, newStubSessions(7), testConfig())

	_, err := catalog.Load(context.Background())
	require.NoError(t, err)
	catalog.Reset()
	assert.Empty(t, catalog.Snapshot())

	// A fresh load after reset repopulates normally.
	products, err := catalog.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.GreaterOrEqual(t, calls, 2)
}

func TestCatalogUpdate_ValidatesLocally(t *testing.T) {
	called := false
	backend := &stubBackend{
		updateProductFn: func(ctx context.Context, id int64, full entity.Product, patch entity.ProductPatch, mode gateway.UpdateMode) (*gateway.UpdateResult, error) {
			called = true

			return &gateway.UpdateResult{}, nil
		},
	}
	catalog := newCatalogForTest(backend, newStubSessions(7), testConfig())
	seedCatalog(t, backend, catalog, entity.Product{ID: 1, MerchantID: 7, Name: "Tea", Price: 4})

	negative := -1.5
	_, err := catalog.Update(context.Background(), 1, &usecase.UpdateProductInput{Price: &negative})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidProductPrice)

	blank := "   "
	_, err = catalog.Update(context.Background(), 1, &usecase.UpdateProductInput{Name: &blank})
	assert.ErrorIs(t, err, domainerrors.ErrEmptyProductName)

	_, err = catalog.Update(context.Background(), 1, &usecase.UpdateProductInput{})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	// Local rejections never reach the network, and the cache keeps the
	// known-good state.
	assert.False(t, called)
	snapshot := catalog.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, float64(4), snapshot[0].Price)
}

func TestCatalogUpdate_BackfillsMerchantScope(t *testing.T) {
	backend := &stubBackend{
		updateProductFn: func(ctx context.Context, id int64, full entity.Product, patch entity.ProductPatch, mode gateway.UpdateMode) (*gateway.UpdateResult, error) {
			// Backend revisions have answered updates without the owning
			// merchant field.
			return &gateway.UpdateResult{
				Product: &entity.Product{ID: id, Name: "Oolong", Price: 6},
				HasBody: true,
			}, nil
		},
	}
	catalog := newCatalogForTest(backend, newStubSessions(7), testConfig())
	seedCatalog(t, backend, catalog, entity.Product{ID: 1, MerchantID: 7, Name: "Tea", Price: 4})

	name := "Oolong"
	updated, err := catalog.Update(context.Background(), 1, &usecase.UpdateProductInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, int64(7), updated.MerchantID)

	// The cache never holds a row outside the session's merchant scope.
	snapshot := catalog.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, int64(7), snapshot[0].MerchantID)
	assert.Equal(t, "Oolong", snapshot[0].Name)
}

func TestCatalogUpdate_ForeignOwnershipNeverCached(t *testing.T) {
	backend := &stubBackend{
		updateProductFn: func(ctx context.Context, id int64, full entity.Product, patch entity.ProductPatch, mode gateway.UpdateMode) (*gateway.UpdateResult, error) {
			return &gateway.UpdateResult{
				Product: &entity.Product{ID: id, MerchantID: 9, Name: "Hijacked", Price: 1},
				HasBody: true,
			}, nil
		},
	}
	catalog := newCatalogForTest(backend, newStubSessions(7), testConfig())
	seedCatalog(t, backend, catalog, entity.Product{ID: 1, MerchantID: 7, Name: "Tea", Price: 4})

	name := "Oolong"
	_, err := catalog.Update(context.Background(), 1, &usecase.UpdateProductInput{Name: &name})
	require.NoError(t, err)

	for _, p := range catalog.Snapshot() {
		assert.Equal(t, int64(7), p.MerchantID)
	}
}

func TestCatalogLoad_IdempotentWithoutMutation(t *testing.T) {
	backend := &stubBackend{
		listProductsFn: func(ctx context.Context) ([]entity.Product, error) {
			return []entity.Product{
				{ID: 1, MerchantID: 7, Name: "Tea", Price: 4},
				{ID: 2, MerchantID: 7, Name: "Coffee", Price: 6},
			}, nil
		},
	}
	catalog := newCatalogForTest(backend, newStubSessions(7), testConfig())

	first, err := catalog.Load(context.Background())
	require.NoError(t, err)
	second, err := catalog.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, catalog.Snapshot())
}
