package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oakline/storefront-core/internal/gateway"
	"github.com/oakline/storefront-core/internal/session"
	pkgerrors "github.com/oakline/storefront-core/pkg/errors"
)

// fakeStore is an in-memory remote store covering both collections.
type fakeStore struct {
	mu        sync.Mutex
	lines     []gateway.CartLine
	favorites []gateway.FavoriteEntry
}

func (f *fakeStore) snapshot(productID uuid.UUID) gateway.ProductSnapshot {
	return gateway.ProductSnapshot{
		ProductID: productID,
		Name:      "walnut desk",
		BasePrice: decimal.RequireFromString("249"),
	}
}

func (f *fakeStore) FetchCartLines(context.Context, uuid.UUID) ([]gateway.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]gateway.CartLine, len(f.lines))
	copy(out, f.lines)
	return out, nil
}

func (f *fakeStore) InsertCartLine(_ context.Context, _, productID uuid.UUID, variantID *uuid.UUID, quantity int) (gateway.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := gateway.CartLine{
		ID:        uuid.New(),
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
		Product:   f.snapshot(productID),
	}
	f.lines = append(f.lines, line)
	return line, nil
}

func (f *fakeStore) UpdateCartLineQuantity(_ context.Context, lineID uuid.UUID, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.lines {
		if f.lines[i].ID == lineID {
			f.lines[i].Quantity = quantity
		}
	}
	return nil
}

func (f *fakeStore) DeleteCartLine(_ context.Context, lineID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.lines {
		if f.lines[i].ID == lineID {
			f.lines = append(f.lines[:i], f.lines[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeStore) DeleteAllCartLines(context.Context, uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = nil
	return nil
}

func (f *fakeStore) FetchFavorites(context.Context, uuid.UUID) ([]gateway.FavoriteEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]gateway.FavoriteEntry, len(f.favorites))
	copy(out, f.favorites)
	return out, nil
}

func (f *fakeStore) InsertFavorite(_ context.Context, _, productID uuid.UUID) (gateway.FavoriteEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry := gateway.FavoriteEntry{
		ID:        uuid.New(),
		ProductID: productID,
		CreatedAt: time.Now(),
		Product:   gateway.ProductCard{ProductSnapshot: f.snapshot(productID)},
	}
	f.favorites = append([]gateway.FavoriteEntry{entry}, f.favorites...)
	return entry, nil
}

func (f *fakeStore) DeleteFavorite(_ context.Context, entryID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.favorites {
		if f.favorites[i].ID == entryID {
			f.favorites = append(f.favorites[:i], f.favorites[i+1:]...)
			break
		}
	}
	return nil
}

func newTestRegistry(t *testing.T) (*Registry, *fakeStore) {
	t.Helper()
	store := &fakeStore{}
	reg, err := New(Deps{Store: store})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return reg, store
}

func TestForIdentityReturnsSamePair(t *testing.T) {
	reg, _ := newTestRegistry(t)
	identity := session.Identity{UserID: uuid.New()}

	a, err := reg.ForIdentity(context.Background(), identity)
	if err != nil {
		t.Fatalf("for identity: %v", err)
	}
	b, err := reg.ForIdentity(context.Background(), identity)
	if err != nil {
		t.Fatalf("for identity: %v", err)
	}
	if a != b {
		t.Fatal("expected the same pair for repeated lookups")
	}
	if reg.Size() != 1 {
		t.Fatalf("expected one live scope, got %d", reg.Size())
	}
}

func TestSignOutDestroysScope(t *testing.T) {
	reg, _ := newTestRegistry(t)
	identity := session.Identity{UserID: uuid.New()}

	pair, err := reg.ForIdentity(context.Background(), identity)
	if err != nil {
		t.Fatalf("for identity: %v", err)
	}
	if err := pair.Cart.AddItem(context.Background(), uuid.New(), 2, nil); err != nil {
		t.Fatalf("add: %v", err)
	}

	reg.SignOut(identity.UserID)

	if reg.Size() != 0 {
		t.Fatalf("expected no live scopes, got %d", reg.Size())
	}
	if pair.Cart.ItemCount() != 0 {
		t.Fatal("expected cart emptied on sign-out")
	}
	if pair.Favorites.Count() != 0 {
		t.Fatal("expected favorites emptied on sign-out")
	}
}

func TestMoveToFavorites(t *testing.T) {
	reg, _ := newTestRegistry(t)
	identity := session.Identity{UserID: uuid.New()}
	productID := uuid.New()

	pair, err := reg.ForIdentity(context.Background(), identity)
	if err != nil {
		t.Fatalf("for identity: %v", err)
	}
	if err := pair.Cart.AddItem(context.Background(), productID, 1, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	lineID := pair.Cart.Lines()[0].ID

	if err := reg.MoveToFavorites(context.Background(), identity, lineID); err != nil {
		t.Fatalf("move to favorites: %v", err)
	}

	if pair.Cart.ItemCount() != 0 {
		t.Fatal("expected line removed from cart")
	}
	if !pair.Favorites.IsFavorite(productID) {
		t.Fatal("expected product favorited")
	}
}

func TestMoveToFavoritesAlreadyFavoritedDoesNotDuplicate(t *testing.T) {
	reg, _ := newTestRegistry(t)
	identity := session.Identity{UserID: uuid.New()}
	productID := uuid.New()

	pair, err := reg.ForIdentity(context.Background(), identity)
	if err != nil {
		t.Fatalf("for identity: %v", err)
	}
	if err := pair.Favorites.Toggle(context.Background(), productID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := pair.Cart.AddItem(context.Background(), productID, 1, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	lineID := pair.Cart.Lines()[0].ID

	if err := reg.MoveToFavorites(context.Background(), identity, lineID); err != nil {
		t.Fatalf("move to favorites: %v", err)
	}
	if pair.Favorites.Count() != 1 {
		t.Fatalf("expected a single favorite entry, got %d", pair.Favorites.Count())
	}
}

func TestMoveToFavoritesUnknownLine(t *testing.T) {
	reg, _ := newTestRegistry(t)
	identity := session.Identity{UserID: uuid.New()}

	err := reg.MoveToFavorites(context.Background(), identity, uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
