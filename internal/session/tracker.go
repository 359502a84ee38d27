// Package session tracks the current authenticated identity and notifies
// the synchronization cores of transitions.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/oakline/storefront-core/internal/gateway"
	"github.com/oakline/storefront-core/pkg/logger"
)

// Identity scopes cart and favorite rows to one authenticated user.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// Callback receives the identity after a transition; nil means signed out.
type Callback func(*Identity)

// Tracker holds the current identity and fans out transition callbacks.
// Callbacks fire once per actual transition; setting the same identity
// twice is a no-op.
type Tracker struct {
	mu        sync.Mutex
	current   *Identity
	restored  bool
	nextSub   int
	callbacks map[int]Callback

	auth gateway.AuthProvider
	logg *logger.Logger
}

// NewTracker builds a tracker bound to the remote auth provider.
func NewTracker(auth gateway.AuthProvider, logg *logger.Logger) *Tracker {
	return &Tracker{
		auth:      auth,
		logg:      logg,
		callbacks: map[int]Callback{},
	}
}

// Current returns the present identity or nil. Side-effect free.
func (t *Tracker) Current() *Identity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// OnChange registers a callback fired once per identity transition. If
// session restoration already completed, the current state is delivered
// immediately as the first invocation. The returned func unsubscribes.
func (t *Tracker) OnChange(fn Callback) func() {
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.callbacks[id] = fn
	deliver := t.restored
	current := t.current
	t.mu.Unlock()

	if deliver {
		fn(current)
	}
	return func() {
		t.mu.Lock()
		delete(t.callbacks, id)
		t.mu.Unlock()
	}
}

// Restore resolves the persisted access token against the auth provider and
// seeds the tracker. Any failure is treated as signed out; the tracker never
// assumes an authenticated state it could not verify.
func (t *Tracker) Restore(ctx context.Context, accessToken string) {
	var identity *Identity
	if accessToken != "" && t.auth != nil {
		sess, err := t.auth.CurrentSession(ctx, accessToken)
		if err != nil {
			if t.logg != nil {
				t.logg.Warn(t.logg.WithField(ctx, "reason", err.Error()), "session restore failed, treating as signed out")
			}
		} else if sess != nil {
			identity = &Identity{UserID: sess.UserID, Email: sess.Email}
		}
	}

	t.mu.Lock()
	t.restored = true
	t.mu.Unlock()
	t.set(identity)
}

// SetSignedIn records a fresh sign-in and notifies subscribers.
func (t *Tracker) SetSignedIn(identity Identity) {
	t.markRestored()
	t.set(&identity)
}

// SetSignedOut clears the identity and notifies subscribers. Dependent
// collections are cleared synchronously by their subscriptions.
func (t *Tracker) SetSignedOut() {
	t.markRestored()
	t.set(nil)
}

func (t *Tracker) markRestored() {
	t.mu.Lock()
	t.restored = true
	t.mu.Unlock()
}

func (t *Tracker) set(identity *Identity) {
	t.mu.Lock()
	if sameIdentity(t.current, identity) {
		t.mu.Unlock()
		return
	}
	t.current = identity
	subs := make([]Callback, 0, len(t.callbacks))
	for _, fn := range t.callbacks {
		subs = append(subs, fn)
	}
	t.mu.Unlock()

	for _, fn := range subs {
		fn(identity)
	}
}

func sameIdentity(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UserID == b.UserID
}
