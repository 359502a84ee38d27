// Package favorites mirrors the cart core's write-through pattern for the
// saved-products collection, minus quantity handling.
package favorites

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oakline/storefront-core/internal/gateway"
	"github.com/oakline/storefront-core/internal/session"
	pkgerrors "github.com/oakline/storefront-core/pkg/errors"
	"github.com/oakline/storefront-core/pkg/logger"
	"github.com/oakline/storefront-core/pkg/metrics"
)

const collection = "favorites"

// State describes the collection lifecycle, shared shape with the cart core.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateMutating
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateMutating:
		return "mutating"
	default:
		return "unknown"
	}
}

type identityTracker interface {
	Current() *session.Identity
	OnChange(session.Callback) func()
}

// Core synchronizes the local favorites collection with the remote store
// for one identity scope. Entries are kept newest first.
type Core struct {
	store   gateway.FavoritesStore
	tracker identityTracker
	logg    *logger.Logger
	metrics *metrics.SyncMetrics

	mu      sync.Mutex
	state   State
	entries []gateway.FavoriteEntry
	gen     uint64

	nextSub   int
	observers map[int]func()

	unsubscribe func()
}

// New builds a favorites core bound to the tracker.
func New(store gateway.FavoritesStore, tracker identityTracker, logg *logger.Logger, m *metrics.SyncMetrics) (*Core, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "favorites store is required")
	}
	if tracker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session tracker is required")
	}
	c := &Core{
		store:     store,
		tracker:   tracker,
		logg:      logg,
		metrics:   m,
		observers: map[int]func(){},
	}
	c.unsubscribe = tracker.OnChange(func(*session.Identity) {
		c.reset()
	})
	return c, nil
}

// Close detaches the core from the tracker.
func (c *Core) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// Subscribe registers an observer notified after every successful state
// transition. The returned func unsubscribes.
func (c *Core) Subscribe(fn func()) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.observers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// State returns the collection lifecycle state.
func (c *Core) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Entries returns a copy of the current collection, newest first.
func (c *Core) Entries() []gateway.FavoriteEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]gateway.FavoriteEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// ProductIDs returns the favorited product ids in collection order, for
// rendering heart toggles on product grids.
func (c *Core) ProductIDs() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]uuid.UUID, len(c.entries))
	for i := range c.entries {
		ids[i] = c.entries[i].ProductID
	}
	return ids
}

// IsFavorite is a pure membership test over local state.
func (c *Core) IsFavorite(productID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if c.entries[i].ProductID == productID {
			return true
		}
	}
	return false
}

// Count returns the number of favorite entries.
func (c *Core) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Load replaces local state wholesale from the remote store. Without an
// identity it clears to empty without a remote call; on failure the
// previous collection is kept stale-but-present.
func (c *Core) Load(ctx context.Context) error {
	identity := c.tracker.Current()
	if identity == nil {
		c.mu.Lock()
		c.entries = nil
		c.state = StateEmpty
		c.mu.Unlock()
		c.notify()
		return nil
	}

	c.mu.Lock()
	gen := c.gen
	c.state = StateLoading
	c.mu.Unlock()

	start := time.Now()
	fetched, err := c.store.FetchFavorites(ctx, identity.UserID)
	if err != nil {
		c.settle(gen)
		c.metrics.IncFailure(collection, "load")
		wrapped := pkgerrors.Wrap(pkgerrors.CodeRemoteRead, err, "fetch favorites")
		if c.logg != nil {
			c.logg.Error(ctx, "favorites load failed, keeping previous entries", wrapped)
		}
		return wrapped
	}
	c.metrics.ObserveLoad(collection, time.Since(start))

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil
	}
	c.entries = fetched
	c.state = StateReady
	c.mu.Unlock()
	c.notify()
	return nil
}

// Toggle adds the product to favorites when absent and removes it when
// present. Both directions are write-through: local state changes only
// after the remote call succeeds.
func (c *Core) Toggle(ctx context.Context, productID uuid.UUID) error {
	identity := c.tracker.Current()
	if identity == nil {
		return pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in to save favorites")
	}

	c.mu.Lock()
	gen := c.gen
	var entryID uuid.UUID
	found := false
	for i := range c.entries {
		if c.entries[i].ProductID == productID {
			found = true
			entryID = c.entries[i].ID
			break
		}
	}
	c.state = StateMutating
	c.mu.Unlock()

	if found {
		if err := c.store.DeleteFavorite(ctx, entryID); err != nil {
			c.settle(gen)
			c.metrics.IncFailure(collection, "toggle")
			return pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "delete favorite")
		}
		c.mu.Lock()
		if c.gen == gen {
			for i := range c.entries {
				if c.entries[i].ID == entryID {
					c.entries = append(c.entries[:i], c.entries[i+1:]...)
					break
				}
			}
			c.settleLocked()
		}
		c.mu.Unlock()
	} else {
		created, err := c.store.InsertFavorite(ctx, identity.UserID, productID)
		if err != nil {
			c.settle(gen)
			c.metrics.IncFailure(collection, "toggle")
			return pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "insert favorite")
		}
		c.mu.Lock()
		if c.gen == gen {
			c.entries = append([]gateway.FavoriteEntry{created}, c.entries...)
			c.state = StateReady
		}
		c.mu.Unlock()
	}

	c.metrics.IncWrite(collection, "toggle")
	c.notify()
	return nil
}

func (c *Core) reset() {
	c.mu.Lock()
	c.gen++
	c.entries = nil
	c.state = StateEmpty
	c.mu.Unlock()
	c.notify()
}

func (c *Core) settle(gen uint64) {
	c.mu.Lock()
	if c.gen == gen {
		c.settleLocked()
	}
	c.mu.Unlock()
}

func (c *Core) settleLocked() {
	if len(c.entries) > 0 {
		c.state = StateReady
	} else {
		c.state = StateEmpty
	}
}

func (c *Core) notify() {
	c.mu.Lock()
	subs := make([]func(), 0, len(c.observers))
	for _, fn := range c.observers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
