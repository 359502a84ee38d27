// Package gateway defines the contract the synchronization cores hold
// against the remote authoritative store: table-like CRUD over cart lines
// and favorites, plus session lookup. Transport and schema are the concern
// of the implementations under rest/ and postgres/.
package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductSnapshot is the denormalized product view joined onto a cart line
// at fetch time, so the presentation layer renders without a second trip.
type ProductSnapshot struct {
	ProductID uuid.UUID        `json:"product_id"`
	Name      string           `json:"name"`
	Slug      string           `json:"slug"`
	BasePrice decimal.Decimal  `json:"base_price"`
	SalePrice *decimal.Decimal `json:"sale_price,omitempty"`
	ImageURL  string           `json:"image_url"`
}

// EffectivePrice returns the sale price when present, else the base price.
func (p ProductSnapshot) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.BasePrice
}

// ProductCard widens ProductSnapshot with the fields favorite grids render.
type ProductCard struct {
	ProductSnapshot
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	IsNew       bool    `json:"is_new"`
	StockCount  int     `json:"stock_count"`
}

// CartLine is one distinct (product, variant) pairing in a user's cart as
// the remote store knows it. The locally-scoped selection flag lives on the
// core's own line type, never here.
type CartLine struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	Product   ProductSnapshot `json:"product"`
}

// SameKey reports whether the line matches the (product, variant) tuple.
func (l CartLine) SameKey(productID uuid.UUID, variantID *uuid.UUID) bool {
	if l.ProductID != productID {
		return false
	}
	if l.VariantID == nil || variantID == nil {
		return l.VariantID == variantID
	}
	return *l.VariantID == *variantID
}

// FavoriteEntry is a saved product for a user.
type FavoriteEntry struct {
	ID        uuid.UUID   `json:"id"`
	ProductID uuid.UUID   `json:"product_id"`
	CreatedAt time.Time   `json:"created_at"`
	Product   ProductCard `json:"product"`
}

// Session is the remote auth service's view of an authenticated user.
type Session struct {
	UserID    uuid.UUID
	Email     string
	ExpiresAt time.Time
}

// Credentials are the tokens a successful sign-in yields.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// CartStore exposes cart rows in the remote store.
type CartStore interface {
	FetchCartLines(ctx context.Context, userID uuid.UUID) ([]CartLine, error)
	InsertCartLine(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID, quantity int) (CartLine, error)
	UpdateCartLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error
	DeleteCartLine(ctx context.Context, lineID uuid.UUID) error
	DeleteAllCartLines(ctx context.Context, userID uuid.UUID) error
}

// FavoritesStore exposes favorite rows in the remote store, newest first.
type FavoritesStore interface {
	FetchFavorites(ctx context.Context, userID uuid.UUID) ([]FavoriteEntry, error)
	InsertFavorite(ctx context.Context, userID, productID uuid.UUID) (FavoriteEntry, error)
	DeleteFavorite(ctx context.Context, entryID uuid.UUID) error
}

// Store is the full table surface the cores consume.
type Store interface {
	CartStore
	FavoritesStore
}

// AuthProvider exposes the remote auth surface. CurrentSession must fail
// closed: any doubt about the token means no session.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (Credentials, error)
	SignOut(ctx context.Context, accessToken string) error
	CurrentSession(ctx context.Context, accessToken string) (*Session, error)
}
