package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/visionari-app/visionari-backend/pkg/enums"
	"github.com/visionari-app/visionari-backend/pkg/types"
)

// PrintOrder is the permanent record of a submitted print order. Rows
// are created once at submission and only their status moves afterwards
// (driven by checkout webhooks); they are never deleted.
type PrintOrder struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	ImageID         uuid.UUID             `gorm:"column:image_id;type:uuid;not null"`
	ImageURL        string                `gorm:"column:image_url;not null"`
	IdempotencyKey  string                `gorm:"column:idempotency_key;not null;uniqueIndex:ux_print_orders_idempotency_key"`
	ShippingAddress types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	ProductConfig   types.ProductConfig   `gorm:"column:product_config;type:jsonb;serializer:json"`
	PriceBreakdown  types.PriceBreakdown  `gorm:"column:price_breakdown;type:jsonb;serializer:json"`
	DiscountApplied bool                  `gorm:"column:discount_applied;not null;default:false"`
	Status          enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'pending'"`
	CheckoutURL     *string               `gorm:"column:checkout_url"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name used by the orders schema.
func (PrintOrder) TableName() string {
	return "print_orders"
}
