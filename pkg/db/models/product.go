package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry rendered on storefront cards and cart lines.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug        string           `gorm:"column:slug;not null;uniqueIndex"`
	Name        string           `gorm:"column:name;not null"`
	BasePrice   decimal.Decimal  `gorm:"column:base_price;type:numeric(12,2);not null"`
	SalePrice   *decimal.Decimal `gorm:"column:sale_price;type:numeric(12,2)"`
	Rating      float64          `gorm:"column:rating;type:numeric(3,2);not null;default:0"`
	ReviewCount int              `gorm:"column:review_count;not null;default:0"`
	IsNew       bool             `gorm:"column:is_new;not null;default:false"`
	StockCount  int              `gorm:"column:stock_count;not null;default:0"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`

	Images []ProductImage `gorm:"foreignKey:ProductID"`
}
