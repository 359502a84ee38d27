// Package registry hands out one cart/favorites core pair per authenticated
// identity. Cores are explicit context objects owned here, never ambient
// singletons, so the HTTP layer stays a thin collaborator.
package registry

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/oakline/storefront-core/internal/cart"
	"github.com/oakline/storefront-core/internal/favorites"
	"github.com/oakline/storefront-core/internal/gateway"
	"github.com/oakline/storefront-core/internal/session"
	pkgerrors "github.com/oakline/storefront-core/pkg/errors"
	"github.com/oakline/storefront-core/pkg/logger"
	"github.com/oakline/storefront-core/pkg/metrics"
)

// Deps groups the collaborators shared by every core pair.
type Deps struct {
	Store   gateway.Store
	Logger  *logger.Logger
	Metrics *metrics.SyncMetrics
}

// CorePair bundles the synchronization cores scoped to one identity.
type CorePair struct {
	Tracker   *session.Tracker
	Cart      *cart.Core
	Favorites *favorites.Core
}

// Registry lazily creates core pairs and tears them down on sign-out.
type Registry struct {
	deps Deps

	mu    sync.Mutex
	pairs map[uuid.UUID]*CorePair
}

// New builds a registry over the provided gateway store.
func New(deps Deps) (*Registry, error) {
	if deps.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway store is required")
	}
	return &Registry{
		deps:  deps,
		pairs: map[uuid.UUID]*CorePair{},
	}, nil
}

// ForIdentity returns the core pair for the identity, creating and loading
// it on first use. Initial load failures degrade gracefully: the pair is
// returned with empty collections and the failure is logged.
func (r *Registry) ForIdentity(ctx context.Context, identity session.Identity) (*CorePair, error) {
	r.mu.Lock()
	if pair, ok := r.pairs[identity.UserID]; ok {
		r.mu.Unlock()
		return pair, nil
	}
	r.mu.Unlock()

	tracker := session.NewTracker(nil, r.deps.Logger)
	cartCore, err := cart.New(r.deps.Store, tracker, r.deps.Logger, r.deps.Metrics)
	if err != nil {
		return nil, err
	}
	favCore, err := favorites.New(r.deps.Store, tracker, r.deps.Logger, r.deps.Metrics)
	if err != nil {
		cartCore.Close()
		return nil, err
	}
	pair := &CorePair{Tracker: tracker, Cart: cartCore, Favorites: favCore}
	tracker.SetSignedIn(identity)

	r.mu.Lock()
	if existing, ok := r.pairs[identity.UserID]; ok {
		// Lost the creation race; keep the first pair.
		r.mu.Unlock()
		tracker.SetSignedOut()
		cartCore.Close()
		favCore.Close()
		return existing, nil
	}
	r.pairs[identity.UserID] = pair
	r.mu.Unlock()

	if err := pair.Cart.Load(ctx); err != nil && r.deps.Logger != nil {
		r.deps.Logger.Warn(ctx, "initial cart load failed, starting empty")
	}
	if err := pair.Favorites.Load(ctx); err != nil && r.deps.Logger != nil {
		r.deps.Logger.Warn(ctx, "initial favorites load failed, starting empty")
	}
	return pair, nil
}

// SignOut destroys the identity's pair; the tracker transition empties both
// collections synchronously before the cores are detached.
func (r *Registry) SignOut(userID uuid.UUID) {
	r.mu.Lock()
	pair, ok := r.pairs[userID]
	delete(r.pairs, userID)
	r.mu.Unlock()
	if !ok {
		return
	}
	pair.Tracker.SetSignedOut()
	pair.Cart.Close()
	pair.Favorites.Close()
}

// MoveToFavorites removes a cart line and saves its product as a favorite.
// Both steps are write-through; a failure on the second step leaves the
// first applied, consistent with the last-settled-wins posture.
func (r *Registry) MoveToFavorites(ctx context.Context, identity session.Identity, lineID uuid.UUID) error {
	pair, err := r.ForIdentity(ctx, identity)
	if err != nil {
		return err
	}

	line, ok := pair.Cart.FindLine(lineID)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	if err := pair.Cart.RemoveItem(ctx, lineID); err != nil {
		return err
	}
	if pair.Favorites.IsFavorite(line.ProductID) {
		return nil
	}
	return pair.Favorites.Toggle(ctx, line.ProductID)
}

// Size reports how many identity scopes are live.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pairs)
}
