package models

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is one distinct (user, product, variant) row in a cart.
// Uniqueness over nullable variant_id is enforced by a COALESCE index in
// the migration; gorm tags only describe the plain columns.
type CartLine struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index:cart_lines_user_id_idx"`
	ProductID uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	VariantID *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	Quantity  int        `gorm:"column:quantity;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	Product Product `gorm:"foreignKey:ProductID"`
}
