package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/oakline/storefront-core/pkg/config"
	"github.com/oakline/storefront-core/pkg/db"
	"github.com/oakline/storefront-core/pkg/db/models"
	pkgerrors "github.com/oakline/storefront-core/pkg/errors"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	client, err := db.New(context.Background(), config.DBConfig{
		Driver: "sqlite",
		DSN:    "file::memory:",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := New(client)
	require.NoError(t, store.AutoMigrate())
	return store
}

func seedProduct(t *testing.T, store *Store, name, basePrice, imageURL string) uuid.UUID {
	t.Helper()

	price, err := decimal.NewFromString(basePrice)
	require.NoError(t, err)

	product := models.Product{
		ID:        uuid.New(),
		Slug:      name,
		Name:      name,
		BasePrice: price,
	}
	require.NoError(t, store.client.DB().Create(&product).Error)

	if imageURL != "" {
		image := models.ProductImage{ID: uuid.New(), ProductID: product.ID, URL: imageURL}
		require.NoError(t, store.client.DB().Create(&image).Error)
	}
	return product.ID
}

func TestCartLineRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	userID := uuid.New()
	productID := seedProduct(t, store, "linen-sofa", "899.00", "https://cdn.example/sofa.jpg")

	line, err := store.InsertCartLine(ctx, userID, productID, nil, 2)
	require.NoError(t, err)
	require.Equal(t, 2, line.Quantity)
	require.Equal(t, "linen-sofa", line.Product.Name)
	require.Equal(t, "https://cdn.example/sofa.jpg", line.Product.ImageURL)

	require.NoError(t, store.UpdateCartLineQuantity(ctx, line.ID, 5))

	lines, err := store.FetchCartLines(ctx, userID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, 5, lines[0].Quantity)

	require.NoError(t, store.DeleteCartLine(ctx, line.ID))

	lines, err = store.FetchCartLines(ctx, userID)
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestCartLinesScopedToUser(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	productID := seedProduct(t, store, "oak-shelf", "150.00", "")
	alice := uuid.New()
	bob := uuid.New()

	_, err := store.InsertCartLine(ctx, alice, productID, nil, 1)
	require.NoError(t, err)
	_, err = store.InsertCartLine(ctx, bob, productID, nil, 4)
	require.NoError(t, err)

	require.NoError(t, store.DeleteAllCartLines(ctx, alice))

	aliceLines, err := store.FetchCartLines(ctx, alice)
	require.NoError(t, err)
	require.Empty(t, aliceLines)

	bobLines, err := store.FetchCartLines(ctx, bob)
	require.NoError(t, err)
	require.Len(t, bobLines, 1)
}

func TestUpdateMissingCartLine(t *testing.T) {
	store := testStore(t)
	err := store.UpdateCartLineQuantity(context.Background(), uuid.New(), 3)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "expected not found, got %v", err)
}

func TestVariantsKeepDistinctRows(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	userID := uuid.New()
	productID := seedProduct(t, store, "arm-chair", "320.00", "")
	variantID := uuid.New()

	_, err := store.InsertCartLine(ctx, userID, productID, nil, 1)
	require.NoError(t, err)
	_, err = store.InsertCartLine(ctx, userID, productID, &variantID, 1)
	require.NoError(t, err)

	lines, err := store.FetchCartLines(ctx, userID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
}

func TestFavoritesNewestFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	userID := uuid.New()
	older := seedProduct(t, store, "older-lamp", "60.00", "")
	newer := seedProduct(t, store, "newer-lamp", "75.00", "")

	now := time.Now().UTC()
	rows := []models.Favorite{
		{ID: uuid.New(), UserID: userID, ProductID: older, CreatedAt: now.Add(-time.Hour)},
		{ID: uuid.New(), UserID: userID, ProductID: newer, CreatedAt: now},
	}
	for i := range rows {
		require.NoError(t, store.client.DB().Create(&rows[i]).Error)
	}

	entries, err := store.FetchFavorites(ctx, userID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, newer, entries[0].ProductID)
	require.Equal(t, older, entries[1].ProductID)
}

func TestFavoriteInsertAndDelete(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	userID := uuid.New()
	productID := seedProduct(t, store, "brass-mirror", "210.00", "")

	entry, err := store.InsertFavorite(ctx, userID, productID)
	require.NoError(t, err)
	require.Equal(t, "brass-mirror", entry.Product.Name)

	// Unique (user, product) index rejects duplicates.
	_, err = store.InsertFavorite(ctx, userID, productID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeRemoteWrite), "expected remote write failure, got %v", err)

	require.NoError(t, store.DeleteFavorite(ctx, entry.ID))

	entries, err := store.FetchFavorites(ctx, userID)
	require.NoError(t, err)
	require.Empty(t, entries)
}
