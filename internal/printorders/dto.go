package printorders

import (
	"github.com/google/uuid"

	"github.com/visionari-app/visionari-backend/pkg/types"
)

// CreateOrderRequest carries everything the store needs to persist a
// new order. The idempotency key makes retried submissions safe.
type CreateOrderRequest struct {
	UserID          uuid.UUID
	ImageID         uuid.UUID
	ImageURL        string
	IdempotencyKey  string
	ShippingAddress types.ShippingAddress
	ProductConfig   types.ProductConfig
	PriceBreakdown  types.PriceBreakdown
	DiscountApplied bool
}

// orderCreatedEvent is the outbox payload for print_order.created.
type orderCreatedEvent struct {
	OrderID         string `json:"order_id"`
	UserID          string `json:"user_id"`
	SKU             string `json:"sku"`
	TotalCents      int    `json:"total_cents"`
	DiscountApplied bool   `json:"discount_applied"`
}

// orderStatusChangedEvent is the outbox payload for
// print_order.status_changed.
type orderStatusChangedEvent struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}
