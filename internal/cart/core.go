// Package cart owns the authoritative shadow of the user's cart. Every
// remote-touching mutation is write-through: local state changes only after
// the remote store acknowledged the write.
package cart

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oakline/storefront-core/internal/gateway"
	"github.com/oakline/storefront-core/internal/session"
	pkgerrors "github.com/oakline/storefront-core/pkg/errors"
	"github.com/oakline/storefront-core/pkg/logger"
	"github.com/oakline/storefront-core/pkg/metrics"
)

const collection = "cart"

type identityTracker interface {
	Current() *session.Identity
	OnChange(session.Callback) func()
}

// Core synchronizes the local cart collection with the remote store for one
// identity scope. It is safe for concurrent use; remote calls happen outside
// the lock, so independently-initiated operations interleave and the state
// after racing completions is last-settled-wins.
type Core struct {
	store   gateway.CartStore
	tracker identityTracker
	logg    *logger.Logger
	metrics *metrics.SyncMetrics

	mu    sync.Mutex
	state State
	lines []Line
	gen   uint64

	nextSub   int
	observers map[int]func()

	unsubscribe func()
}

// New builds a cart core bound to the tracker; any identity transition
// synchronously clears local state and invalidates in-flight loads.
func New(store gateway.CartStore, tracker identityTracker, logg *logger.Logger, m *metrics.SyncMetrics) (*Core, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart store is required")
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

// Lines returns a copy of the current collection.
func (c *Core) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// ItemCount is the sum of quantities over all lines, recomputed on every
// call from the underlying collection.
func (c *Core) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for i := range c.lines {
		count += c.lines[i].Quantity
	}
	return count
}

// Total is the sum of quantity times effective price over all lines.
func (c *Core) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sumLocked(false)
}

// SelectedTotal restricts Total to lines with the selection flag set.
func (c *Core) SelectedTotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sumLocked(true)
}

func (c *Core) sumLocked(selectedOnly bool) decimal.Decimal {
	total := decimal.Zero
	for i := range c.lines {
		if selectedOnly && !c.lines[i].Selected {
			continue
		}
		price := c.lines[i].Product.EffectivePrice()
		total = total.Add(price.Mul(decimal.NewFromInt(int64(c.lines[i].Quantity))))
	}
	return total
}

// Load replaces local state wholesale from the remote store. Without an
// identity it clears to empty and returns without a remote call. On a fetch
// failure the previous collection is kept stale-but-present.
func (c *Core) Load(ctx context.Context) error {
	identity := c.tracker.Current()
	if identity == nil {
		c.mu.Lock()
		c.lines = nil
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
	fetched, err := c.store.FetchCartLines(ctx, identity.UserID)
	if err != nil {
		c.settle(gen)
		c.metrics.IncFailure(collection, "load")
		wrapped := pkgerrors.Wrap(pkgerrors.CodeRemoteRead, err, "fetch cart lines")
		if c.logg != nil {
			c.logg.Error(ctx, "cart load failed, keeping previous lines", wrapped)
		}
		return wrapped
	}
	c.metrics.ObserveLoad(collection, time.Since(start))

	c.mu.Lock()
	if c.gen != gen {
		// Identity changed while the fetch was in flight; the result
		// belongs to a dead scope.
		c.mu.Unlock()
		return nil
	}
	lines := make([]Line, len(fetched))
	for i, remote := range fetched {
		lines[i] = Line{CartLine: remote, Selected: true}
	}
	c.lines = lines
	c.state = StateReady
	c.mu.Unlock()
	c.notify()
	return nil
}

// AddItem merges the requested quantity into an existing (product, variant)
// line or inserts a new one. At most one line ever exists per key.
func (c *Core) AddItem(ctx context.Context, productID uuid.UUID, quantity int, variantID *uuid.UUID) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	identity := c.tracker.Current()
	if identity == nil {
		return pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in to modify the cart")
	}

	c.mu.Lock()
	gen := c.gen
	var existingID uuid.UUID
	target := 0
	found := false
	for i := range c.lines {
		if c.lines[i].SameKey(productID, variantID) {
			found = true
			existingID = c.lines[i].ID
			target = c.lines[i].Quantity + quantity
			break
		}
	}
	c.state = StateMutating
	c.mu.Unlock()

	if found {
		if err := c.store.UpdateCartLineQuantity(ctx, existingID, target); err != nil {
			c.settle(gen)
			c.metrics.IncFailure(collection, "add_item")
			return pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "update cart line quantity")
		}
		c.mu.Lock()
		if c.gen == gen {
			for i := range c.lines {
				if c.lines[i].ID == existingID {
					c.lines[i].Quantity = target
					break
				}
			}
			c.state = StateReady
		}
		c.mu.Unlock()
	} else {
		created, err := c.store.InsertCartLine(ctx, identity.UserID, productID, variantID, quantity)
		if err != nil {
			c.settle(gen)
			c.metrics.IncFailure(collection, "add_item")
			return pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "insert cart line")
		}
		c.mu.Lock()
		if c.gen == gen {
			c.lines = append(c.lines, Line{CartLine: created, Selected: true})
			c.state = StateReady
		}
		c.mu.Unlock()
	}

	c.metrics.IncWrite(collection, "add_item")
	c.notify()
	return nil
}

// SetQuantity updates a line's quantity; zero or less removes the line.
// After a successful remote update the whole cart is reloaded rather than
// trusting a partial local patch.
func (c *Core) SetQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return c.RemoveItem(ctx, lineID)
	}
	if c.tracker.Current() == nil {
		return pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in to modify the cart")
	}

	c.mu.Lock()
	gen := c.gen
	c.state = StateMutating
	c.mu.Unlock()

	if err := c.store.UpdateCartLineQuantity(ctx, lineID, quantity); err != nil {
		c.settle(gen)
		c.metrics.IncFailure(collection, "set_quantity")
		return pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "update cart line quantity")
	}
	c.metrics.IncWrite(collection, "set_quantity")
	return c.Load(ctx)
}

// RemoveItem deletes the line remotely, then reloads the full cart.
func (c *Core) RemoveItem(ctx context.Context, lineID uuid.UUID) error {
	if c.tracker.Current() == nil {
		return pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in to modify the cart")
	}

	c.mu.Lock()
	gen := c.gen
	c.state = StateMutating
	c.mu.Unlock()

	if err := c.store.DeleteCartLine(ctx, lineID); err != nil {
		c.settle(gen)
		c.metrics.IncFailure(collection, "remove_item")
		return pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "delete cart line")
	}
	c.metrics.IncWrite(collection, "remove_item")
	return c.Load(ctx)
}

// Clear bulk-deletes the identity's cart remotely, then empties local state
// directly; the end state is known, so no reload is needed. Without an
// identity it is a no-op.
func (c *Core) Clear(ctx context.Context) error {
	identity := c.tracker.Current()
	if identity == nil {
		return nil
	}

	c.mu.Lock()
	gen := c.gen
	c.state = StateMutating
	c.mu.Unlock()

	if err := c.store.DeleteAllCartLines(ctx, identity.UserID); err != nil {
		c.settle(gen)
		c.metrics.IncFailure(collection, "clear")
		return pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "delete all cart lines")
	}

	c.mu.Lock()
	if c.gen == gen {
		c.lines = nil
		c.state = StateEmpty
	}
	c.mu.Unlock()
	c.metrics.IncWrite(collection, "clear")
	c.notify()
	return nil
}

// ToggleSelection flips one line's selection flag. Purely local.
func (c *Core) ToggleSelection(lineID uuid.UUID) error {
	c.mu.Lock()
	for i := range c.lines {
		if c.lines[i].ID == lineID {
			c.lines[i].Selected = !c.lines[i].Selected
			c.mu.Unlock()
			c.notify()
			return nil
		}
	}
	c.mu.Unlock()
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
}

// SelectAll marks every line selected. Purely local.
func (c *Core) SelectAll() {
	c.setAllSelected(true)
}

// DeselectAll clears every line's selection flag. Purely local.
func (c *Core) DeselectAll() {
	c.setAllSelected(false)
}

func (c *Core) setAllSelected(selected bool) {
	c.mu.Lock()
	for i := range c.lines {
		c.lines[i].Selected = selected
	}
	c.mu.Unlock()
	c.notify()
}

// FindLine returns the line with the given id, if present.
func (c *Core) FindLine(lineID uuid.UUID) (Line, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.lines {
		if c.lines[i].ID == lineID {
			return c.lines[i], true
		}
	}
	return Line{}, false
}

// reset clears local state on any identity transition and invalidates
// in-flight operations via the generation counter.
func (c *Core) reset() {
	c.mu.Lock()
	c.gen++
	c.lines = nil
	c.state = StateEmpty
	c.mu.Unlock()
	c.notify()
}

// settle restores the resting state after a failed remote write, leaving
// the collection untouched.
func (c *Core) settle(gen uint64) {
	c.mu.Lock()
	if c.gen == gen {
		if len(c.lines) > 0 {
			c.state = StateReady
		} else {
			c.state = StateEmpty
		}
	}
	c.mu.Unlock()
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
