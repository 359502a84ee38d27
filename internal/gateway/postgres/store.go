// Package postgres implements the remote store gateway against the
// first-party database, for deployments that own their storefront tables
// instead of renting hosted ones.
package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oakline/storefront-core/internal/gateway"
	"github.com/oakline/storefront-core/pkg/db"
	"github.com/oakline/storefront-core/pkg/db/models"
	pkgerrors "github.com/oakline/storefront-core/pkg/errors"
)

// Store serves the gateway contract from the relational schema.
type Store struct {
	client *db.Client
}

// New wires a Store over the shared database client.
func New(client *db.Client) *Store {
	return &Store{client: client}
}

func withOrderedImages(conn *gorm.DB) *gorm.DB {
	return conn.Order("position asc")
}

func snapshotFrom(p models.Product) gateway.ProductSnapshot {
	snap := gateway.ProductSnapshot{
		ProductID: p.ID,
		Name:      p.Name,
		Slug:      p.Slug,
		BasePrice: p.BasePrice,
		SalePrice: p.SalePrice,
	}
	if len(p.Images) > 0 {
		snap.ImageURL = p.Images[0].URL
	}
	return snap
}

func cardFrom(p models.Product) gateway.ProductCard {
	return gateway.ProductCard{
		ProductSnapshot: snapshotFrom(p),
		Rating:          p.Rating,
		ReviewCount:     p.ReviewCount,
		IsNew:           p.IsNew,
		StockCount:      p.StockCount,
	}
}

func lineFrom(row models.CartLine) gateway.CartLine {
	return gateway.CartLine{
		ID:        row.ID,
		ProductID: row.ProductID,
		VariantID: row.VariantID,
		Quantity:  row.Quantity,
		Product:   snapshotFrom(row.Product),
	}
}

func entryFrom(row models.Favorite) gateway.FavoriteEntry {
	return gateway.FavoriteEntry{
		ID:        row.ID,
		ProductID: row.ProductID,
		CreatedAt: row.CreatedAt,
		Product:   cardFrom(row.Product),
	}
}

// FetchCartLines returns the user's cart rows with product snapshots.
func (s *Store) FetchCartLines(ctx context.Context, userID uuid.UUID) ([]gateway.CartLine, error) {
	var rows []models.CartLine
	err := s.client.DB().WithContext(ctx).
		Preload("Product").
		Preload("Product.Images", withOrderedImages).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRemoteRead, err, "fetch cart lines")
	}

	lines := make([]gateway.CartLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, lineFrom(row))
	}
	return lines, nil
}

// InsertCartLine creates a row and reloads it with the product join.
func (s *Store) InsertCartLine(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID, quantity int) (gateway.CartLine, error) {
	// IDs are minted here rather than by the column default so the sqlite
	// development driver behaves the same as Postgres.
	row := models.CartLine{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
	}

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.
			Preload("Product").
			Preload("Product.Images", withOrderedImages).
			First(&row, "id = ?", row.ID).Error
	})
	if err != nil {
		return gateway.CartLine{}, pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "insert cart line")
	}
	return lineFrom(row), nil
}

// UpdateCartLineQuantity sets the stored quantity for a line.
func (s *Store) UpdateCartLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	res := s.client.DB().WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Update("quantity", quantity)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, res.Error, "update cart line quantity")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return nil
}

// DeleteCartLine removes a single line. Deleting an absent line is a no-op.
func (s *Store) DeleteCartLine(ctx context.Context, lineID uuid.UUID) error {
	err := s.client.DB().WithContext(ctx).
		Delete(&models.CartLine{}, "id = ?", lineID).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "delete cart line")
	}
	return nil
}

// DeleteAllCartLines removes every line belonging to the user.
func (s *Store) DeleteAllCartLines(ctx context.Context, userID uuid.UUID) error {
	err := s.client.DB().WithContext(ctx).
		Delete(&models.CartLine{}, "user_id = ?", userID).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "clear cart lines")
	}
	return nil
}

// FetchFavorites returns the user's saved products, newest first.
func (s *Store) FetchFavorites(ctx context.Context, userID uuid.UUID) ([]gateway.FavoriteEntry, error) {
	var rows []models.Favorite
	err := s.client.DB().WithContext(ctx).
		Preload("Product").
		Preload("Product.Images", withOrderedImages).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRemoteRead, err, "fetch favorites")
	}

	entries := make([]gateway.FavoriteEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, entryFrom(row))
	}
	return entries, nil
}

// InsertFavorite saves a product and reloads it with the product join.
func (s *Store) InsertFavorite(ctx context.Context, userID, productID uuid.UUID) (gateway.FavoriteEntry, error) {
	row := models.Favorite{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
	}

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.
			Preload("Product").
			Preload("Product.Images", withOrderedImages).
			First(&row, "id = ?", row.ID).Error
	})
	if err != nil {
		return gateway.FavoriteEntry{}, pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "insert favorite")
	}
	return entryFrom(row), nil
}

// DeleteFavorite removes a saved product by entry id.
func (s *Store) DeleteFavorite(ctx context.Context, entryID uuid.UUID) error {
	err := s.client.DB().WithContext(ctx).
		Delete(&models.Favorite{}, "id = ?", entryID).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "delete favorite")
	}
	return nil
}

// AutoMigrate creates the storefront tables. Local sqlite development
// only; Postgres schemas are owned by the goose migrations.
func (s *Store) AutoMigrate() error {
	return s.client.DB().AutoMigrate(
		&models.Product{},
		&models.ProductImage{},
		&models.CartLine{},
		&models.Favorite{},
	)
}
