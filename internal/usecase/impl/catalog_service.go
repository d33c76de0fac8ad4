package impl

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"console/config"
	deliverycontext "console/internal/delivery/context"
	"console/internal/domain/entity"
	domainerrors "console/internal/domain/errors"
	"console/internal/domain/gateway"
	"console/internal/usecase"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// mutationState tracks the per-identifier coordinator state machine:
// absent from the map means idle.
type mutationState int

const (
	statePendingConfirm mutationState = iota + 1
	stateInFlight
)

const reconcileTimeout = 15 * time.Second

// catalogService implements CatalogUsecase: the merchant-scoped product
// cache and the coordinator that serializes mutations against it.
//
// Concurrency model: the mutex guards only local state; it is never held
// across a network round-trip. Exclusivity per identifier comes from the
// states map, and the generation counter discards responses that arrive
// after the cache they were aimed at has been replaced.
type catalogService struct {
	backend  gateway.Backend
	sessions usecase.SessionUsecase
	cfg      *config.Config
	logger   *slog.Logger
	validate *validator.Validate

	mu         sync.Mutex
	generation uint64
	products   []entity.Product
	states     map[int64]mutationState
	editing    *int64
	tempSeq    int64
}

// NewCatalogService is the constructor for catalogService.
func NewCatalogService(
	backend gateway.Backend,
	sessions usecase.SessionUsecase,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.CatalogUsecase {
	return &catalogService{
		backend:  backend,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
		validate: validator.New(),
		states:   make(map[int64]mutationState),
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *catalogService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// session returns the current session or the not-authenticated error.
func (srv *catalogService) session() (*entity.Session, error) {
	session, ok := srv.sessions.Current()
	if !ok {
		return nil, errors.WithStack(domainerrors.ErrNotAuthenticated)
	}

	return session, nil
}

// Load fetches the full remote collection, filters it to the current
// merchant and replaces the cache wholesale. On any failure the cache is
// cleared (fail-safe-empty) and the failure reported.
func (srv *catalogService) Load(ctx context.Context) ([]entity.Product, error) {
	session, err := srv.session()
	if err != nil {
		return nil, err
	}

	srv.mu.Lock()
	srv.generation++
	gen := srv.generation
	srv.mu.Unlock()

	remote, err := srv.backend.ListProducts(ctx)
	if err != nil {
		srv.mu.Lock()
		if gen == srv.generation {
			srv.products = nil
		}
		srv.mu.Unlock()

		err = srv.handleUnauthorized(ctx, err)
		srv.log(ctx).Warn("Product load failed", slog.Any("error", err))

		return nil, errors.Wrap(err, "load products")
	}

	// The collection arrives unfiltered; the merchant-scope invariant is
	// enforced here, before anything reaches the cache.
	owned := make([]entity.Product, 0, len(remote))
	for _, product := range remote {
		if product.MerchantID == session.Merchant.ID {
			owned = append(owned, product)
		}
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()

	if gen != srv.generation {
		// A newer load or a reset won; this response is stale.
		return srv.snapshotLocked(), nil
	}

	srv.products = owned
	srv.log(ctx).Debug("Product cache replaced",
		slog.Int("count", len(owned)), slog.Int64("merchant_id", session.Merchant.ID))

	return srv.snapshotLocked(), nil
}

// Snapshot returns the current cache contents in order.
func (srv *catalogService) Snapshot() []entity.Product {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	return srv.snapshotLocked()
}

func (srv *catalogService) snapshotLocked() []entity.Product {
	snapshot := make([]entity.Product, len(srv.products))
	copy(snapshot, srv.products)

	return snapshot
}

// Create validates the draft locally, creates the entry remotely and merges
// the backend's authoritative entity into the cache. The console never keeps
// a fabricated local entity as the final state.
func (srv *catalogService) Create(ctx context.Context, input *usecase.CreateProductInput) (*entity.Product, error) {
	if input == nil {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed)
	}
	if err := srv.validate.Struct(input); err != nil {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(err.Error()))
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.WithStack(domainerrors.ErrEmptyProductName)
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(input.Price), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return nil, errors.WithStack(domainerrors.ErrInvalidProductPrice)
	}

	session, err := srv.session()
	if err != nil {
		return nil, err
	}

	optimistic := srv.cfg.Mutation.CreatePolicy == config.PolicyOptimistic

	srv.mu.Lock()
	gen := srv.generation
	var tempID int64
	if optimistic {
		srv.tempSeq++
		tempID = -srv.tempSeq
		srv.products = append(srv.products, entity.Product{
			ID:         tempID,
			MerchantID: session.Merchant.ID,
			Name:       name,
			Price:      price,
		})
	}
	srv.mu.Unlock()

	created, err := srv.backend.CreateProduct(ctx, session.Merchant.ID, name, price)
	if err != nil {
		srv.mu.Lock()
		if optimistic && gen == srv.generation {
			srv.removeLocked(tempID)
		}
		srv.mu.Unlock()

		err = srv.handleUnauthorized(ctx, err)
		srv.log(ctx).Warn("Product create failed", slog.Any("error", err))

		return nil, errors.Wrap(err, "create product")
	}

	if created.MerchantID == 0 {
		created.MerchantID = session.Merchant.ID
	}

	srv.mu.Lock()
	if gen == srv.generation {
		switch {
		case created.MerchantID != session.Merchant.ID:
			// Foreign ownership in the response; never cache it.
			if optimistic {
				srv.removeLocked(tempID)
			}
		case optimistic:
			srv.replaceLocked(tempID, *created)
		default:
			srv.products = append(srv.products, *created)
		}
	}
	srv.mu.Unlock()

	if created.ID == 0 {
		// The backend acknowledged without a resolvable identifier; the
		// appended entry holds best-available data, so reconcile in the
		// background against the authoritative collection.
		go srv.reconcile()
	}

	srv.log(ctx).Info("Product created", slog.Int64("product_id", created.ID))

	return created, nil
}

// Update validates the patch locally and applies it remotely, honoring the
// configured optimistic/pessimistic policy and replace/patch request shape.
func (srv *catalogService) Update(ctx context.Context, id int64, input *usecase.UpdateProductInput) (*entity.Product, error) {
	if input == nil {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("no product fields to update"))
	}

	patch := entity.ProductPatch{Price: input.Price}
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return nil, errors.WithStack(domainerrors.ErrEmptyProductName)
		}
		patch.Name = &trimmed
	}
	if input.Price != nil && (math.IsNaN(*input.Price) || math.IsInf(*input.Price, 0) || *input.Price < 0) {
		return nil, errors.WithStack(domainerrors.ErrInvalidProductPrice)
	}
	if patch.Empty() {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("no product fields to update"))
	}

	session, err := srv.session()
	if err != nil {
		return nil, err
	}

	optimistic := srv.cfg.Mutation.UpdatePolicy == config.PolicyOptimistic
	mode := gateway.UpdateReplace
	if srv.cfg.Backend.UpdateMode == config.UpdateModePatch {
		mode = gateway.UpdatePatch
	}

	srv.mu.Lock()
	if id <= 0 {
		srv.mu.Unlock()

		return nil, errors.WithStack(domainerrors.ErrUnidentifiedProduct)
	}
	prior, idx := srv.lookupLocked(id)
	if idx < 0 {
		srv.mu.Unlock()

		return nil, errors.WithStack(domainerrors.ErrProductNotFound)
	}
	if _, busy := srv.states[id]; busy {
		srv.mu.Unlock()

		return nil, errors.WithStack(domainerrors.ErrProductBusy)
	}
	srv.states[id] = stateInFlight
	gen := srv.generation
	draft := patch.ApplyTo(prior)
	if optimistic {
		srv.products[idx] = draft
	}
	srv.mu.Unlock()

	result, err := srv.backend.UpdateProduct(ctx, id, draft, patch, mode)

	srv.mu.Lock()
	delete(srv.states, id)
	if err != nil {
		// Revert to the last known-good snapshot, never a partial state.
		if optimistic && gen == srv.generation {
			srv.replaceLocked(id, prior)
		}
		srv.mu.Unlock()

		err = srv.handleUnauthorized(ctx, err)
		srv.log(ctx).Warn("Product update failed", slog.Int64("product_id", id), slog.Any("error", err))

		return nil, errors.Wrap(err, "update product")
	}

	final := draft
	if result.HasBody && result.Product != nil {
		final = *result.Product
		if final.MerchantID == 0 {
			final.MerchantID = session.Merchant.ID
		}
	}
	if gen == srv.generation {
		if final.MerchantID == session.Merchant.ID {
			srv.replaceLocked(id, final)
		} else {
			// Foreign ownership in the response; never cache it.
			srv.removeLocked(id)
		}
	}
	srv.mu.Unlock()

	srv.log(ctx).Info("Product updated", slog.Int64("product_id", id))

	return &final, nil
}

// RequestDelete marks the product as awaiting explicit user confirmation;
// nothing is dispatched until ConfirmDelete.
func (srv *catalogService) RequestDelete(ctx context.Context, id int64) error {
	if _, err := srv.session(); err != nil {
		return err
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()

	if id <= 0 {
		return errors.WithStack(domainerrors.ErrUnidentifiedProduct)
	}
	if _, idx := srv.lookupLocked(id); idx < 0 {
		return errors.WithStack(domainerrors.ErrProductNotFound)
	}
	if _, busy := srv.states[id]; busy {
		return errors.WithStack(domainerrors.ErrProductBusy)
	}

	srv.states[id] = statePendingConfirm
	srv.log(ctx).Debug("Delete awaiting confirmation", slog.Int64("product_id", id))

	return nil
}

// ConfirmDelete dispatches a previously requested delete.
func (srv *catalogService) ConfirmDelete(ctx context.Context, id int64) error {
	if _, err := srv.session(); err != nil {
		return err
	}

	srv.mu.Lock()
	if srv.states[id] != statePendingConfirm {
		srv.mu.Unlock()

		return errors.WithStack(domainerrors.ErrNoPendingDelete)
	}
	srv.states[id] = stateInFlight
	gen := srv.generation
	srv.mu.Unlock()

	err := srv.backend.DeleteProduct(ctx, id)

	srv.mu.Lock()
	delete(srv.states, id)
	if err != nil {
		srv.mu.Unlock()

		err = srv.handleUnauthorized(ctx, err)
		srv.log(ctx).Warn("Product delete failed", slog.Int64("product_id", id), slog.Any("error", err))

		return errors.Wrap(err, "delete product")
	}

	if gen == srv.generation {
		srv.removeLocked(id)
	}
	if srv.editing != nil && *srv.editing == id {
		srv.editing = nil
	}
	srv.mu.Unlock()

	srv.log(ctx).Info("Product deleted", slog.Int64("product_id", id))

	return nil
}

// CancelDelete abandons a pending delete request.
func (srv *catalogService) CancelDelete(ctx context.Context, id int64) error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if srv.states[id] != statePendingConfirm {
		return errors.WithStack(domainerrors.ErrNoPendingDelete)
	}
	delete(srv.states, id)
	srv.log(ctx).Debug("Delete canceled", slog.Int64("product_id", id))

	return nil
}

// BeginEdit opens an edit session for the given product.
func (srv *catalogService) BeginEdit(ctx context.Context, id int64) (*entity.Product, error) {
	if _, err := srv.session(); err != nil {
		return nil, err
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()

	if id <= 0 {
		return nil, errors.WithStack(domainerrors.ErrUnidentifiedProduct)
	}
	product, idx := srv.lookupLocked(id)
	if idx < 0 {
		return nil, errors.WithStack(domainerrors.ErrProductNotFound)
	}
	if _, busy := srv.states[id]; busy {
		return nil, errors.WithStack(domainerrors.ErrProductBusy)
	}

	srv.editing = &id
	srv.log(ctx).Debug("Edit session opened", slog.Int64("product_id", id))

	return &product, nil
}

// CurrentEdit returns the identifier under edit, if any.
func (srv *catalogService) CurrentEdit() (int64, bool) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if srv.editing == nil {
		return 0, false
	}

	return *srv.editing, true
}

// CancelEdit closes the edit session, if one is open.
func (srv *catalogService) CancelEdit() {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	srv.editing = nil
}

// Reset discards the cache and all coordinator state. The generation bump
// makes any in-flight response stale on arrival.
func (srv *catalogService) Reset() {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	srv.generation++
	srv.products = nil
	srv.states = make(map[int64]mutationState)
	srv.editing = nil
}

// reconcile re-loads the collection in the background after a create whose
// response carried no resolvable identifier. Best effort only.
func (srv *catalogService) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	if _, err := srv.Load(ctx); err != nil {
		srv.logger.Warn("Background catalog reconciliation failed", slog.Any("error", err))
	}
}

// handleUnauthorized tears the session down when the backend reports our
// credentials invalid on a data operation. It returns the error to surface:
// the session-invalidated condition after a teardown, the original error
// otherwise.
func (srv *catalogService) handleUnauthorized(ctx context.Context, err error) error {
	var remoteErr *domainerrors.RemoteError
	if errors.As(err, &remoteErr) && remoteErr.Unauthorized() {
		srv.sessions.Invalidate(ctx)
		srv.Reset()

		return errors.WithStack(domainerrors.ErrSessionInvalidated)
	}

	return err
}

// lookupLocked finds a cache entry by identifier. Callers hold the mutex.
func (srv *catalogService) lookupLocked(id int64) (entity.Product, int) {
	for i, product := range srv.products {
		if product.ID == id {
			return product, i
		}
	}

	return entity.Product{}, -1
}

// replaceLocked swaps the cache entry with the given identifier. Merges key
// on the identifier, never on request order.
func (srv *catalogService) replaceLocked(id int64, replacement entity.Product) {
	for i, product := range srv.products {
		if product.ID == id {
			srv.products[i] = replacement

			return
		}
	}
}

// removeLocked deletes the cache entry with the given identifier.
func (srv *catalogService) removeLocked(id int64) {
	for i, product := range srv.products {
		if product.ID == id {
			srv.products = append(srv.products[:i], srv.products[i+1:]...)

			return
		}
	}
}
