package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oakline/storefront-core/internal/cart"
	"github.com/oakline/storefront-core/internal/favorites"
	"github.com/oakline/storefront-core/internal/gateway"
)

type productView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Price     decimal.Decimal `json:"price"`
	BasePrice decimal.Decimal `json:"base_price"`
	OnSale    bool            `json:"on_sale"`
	ImageURL  string          `json:"image_url"`
}

func productViewFrom(snap gateway.ProductSnapshot) productView {
	return productView{
		ProductID: snap.ProductID,
		Name:      snap.Name,
		Slug:      snap.Slug,
		Price:     snap.EffectivePrice(),
		BasePrice: snap.BasePrice,
		OnSale:    snap.SalePrice != nil,
		ImageURL:  snap.ImageURL,
	}
}

type cartLineView struct {
	ID        uuid.UUID       `json:"id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	Selected  bool            `json:"selected"`
	LineTotal decimal.Decimal `json:"line_total"`
	Product   productView     `json:"product"`
}

type cartView struct {
	State         string          `json:"state"`
	Lines         []cartLineView  `json:"lines"`
	ItemCount     int             `json:"item_count"`
	Total         decimal.Decimal `json:"total"`
	SelectedTotal decimal.Decimal `json:"selected_total"`
}

func cartViewFrom(core *cart.Core) cartView {
	lines := core.Lines()
	views := make([]cartLineView, 0, len(lines))
	for _, line := range lines {
		unit := line.Product.EffectivePrice()
		views = append(views, cartLineView{
			ID:        line.ID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			Selected:  line.Selected,
			LineTotal: unit.Mul(decimal.NewFromInt(int64(line.Quantity))),
			Product:   productViewFrom(line.Product),
		})
	}
	return cartView{
		State:         core.State().String(),
		Lines:         views,
		ItemCount:     core.ItemCount(),
		Total:         core.Total(),
		SelectedTotal: core.SelectedTotal(),
	}
}

type cartSummaryView struct {
	ItemCount     int             `json:"item_count"`
	Total         decimal.Decimal `json:"total"`
	SelectedTotal decimal.Decimal `json:"selected_total"`
}

type favoriteView struct {
	ID          uuid.UUID   `json:"id"`
	CreatedAt   time.Time   `json:"created_at"`
	Product     productView `json:"product"`
	Rating      float64     `json:"rating"`
	ReviewCount int         `json:"review_count"`
	IsNew       bool        `json:"is_new"`
	StockCount  int         `json:"stock_count"`
}

type favoritesView struct {
	State   string         `json:"state"`
	Entries []favoriteView `json:"entries"`
	Count   int            `json:"count"`
}

func favoritesViewFrom(core *favorites.Core) favoritesView {
	entries := core.Entries()
	views := make([]favoriteView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, favoriteView{
			ID:          entry.ID,
			CreatedAt:   entry.CreatedAt,
			Product:     productViewFrom(entry.Product.ProductSnapshot),
			Rating:      entry.Product.Rating,
			ReviewCount: entry.Product.ReviewCount,
			IsNew:       entry.Product.IsNew,
			StockCount:  entry.Product.StockCount,
		})
	}
	return favoritesView{
		State:   core.State().String(),
		Entries: views,
		Count:   core.Count(),
	}
}
