package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/oakline/storefront-core/internal/gateway"
	pkgerrors "github.com/oakline/storefront-core/pkg/errors"
)

const (
	favoritesTable = "favorites"
	favoriteSelect = "id,product_id,created_at,product:products(id,name,slug,base_price,sale_price,image_url,rating,review_count,is_new,stock_count)"
)

type productCardRow struct {
	productRow
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	IsNew       bool    `json:"is_new"`
	StockCount  int     `json:"stock_count"`
}

func (r productCardRow) card() gateway.ProductCard {
	return gateway.ProductCard{
		ProductSnapshot: r.snapshot(),
		Rating:          r.Rating,
		ReviewCount:     r.ReviewCount,
		IsNew:           r.IsNew,
		StockCount:      r.StockCount,
	}
}

type favoriteRow struct {
	ID        uuid.UUID      `json:"id"`
	ProductID uuid.UUID      `json:"product_id"`
	CreatedAt time.Time      `json:"created_at"`
	Product   productCardRow `json:"product"`
}

func (r favoriteRow) toEntry() gateway.FavoriteEntry {
	return gateway.FavoriteEntry{
		ID:        r.ID,
		ProductID: r.ProductID,
		CreatedAt: r.CreatedAt,
		Product:   r.Product.card(),
	}
}

// FetchFavorites returns the user's saved products, newest first.
func (c *Client) FetchFavorites(ctx context.Context, userID uuid.UUID) ([]gateway.FavoriteEntry, error) {
	query := url.Values{}
	query.Set("select", favoriteSelect)
	query.Set("user_id", "eq."+userID.String())
	query.Set("order", "created_at.desc")

	var rows []favoriteRow
	if err := c.doRead(ctx, c.restURL(favoritesTable, query.Encode()), &rows); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRemoteRead, err, "fetch favorites")
	}

	entries := make([]gateway.FavoriteEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntry())
	}
	return entries, nil
}

// InsertFavorite saves a product and returns its joined representation.
func (c *Client) InsertFavorite(ctx context.Context, userID, productID uuid.UUID) (gateway.FavoriteEntry, error) {
	query := url.Values{}
	query.Set("select", favoriteSelect)

	payload := map[string]any{
		"user_id":    userID,
		"product_id": productID,
	}

	headers := map[string]string{"Prefer": "return=representation"}
	var rows []favoriteRow
	if err := c.do(ctx, http.MethodPost, c.restURL(favoritesTable, query.Encode()), payload, headers, &rows); err != nil {
		return gateway.FavoriteEntry{}, pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "insert favorite")
	}
	if len(rows) == 0 {
		return gateway.FavoriteEntry{}, pkgerrors.New(pkgerrors.CodeRemoteWrite, "insert favorite: no row returned")
	}
	return rows[0].toEntry(), nil
}

// DeleteFavorite removes a saved product by entry id.
func (c *Client) DeleteFavorite(ctx context.Context, entryID uuid.UUID) error {
	query := url.Values{}
	query.Set("id", "eq."+entryID.String())

	if err := c.do(ctx, http.MethodDelete, c.restURL(favoritesTable, query.Encode()), nil, nil, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, fmt.Sprintf("delete favorite %s", entryID))
	}
	return nil
}
