package printorders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visionari-app/visionari-backend/pkg/db/models"
	"github.com/visionari-app/visionari-backend/pkg/enums"
	"github.com/visionari-app/visionari-backend/pkg/types"
)

// Repository defines persistence operations for print orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.PrintOrder) (*models.PrintOrder, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PrintOrder, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.PrintOrder, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.PrintOrder, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	LastShippingAddress(ctx context.Context, userID uuid.UUID) (*types.ShippingAddress, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
	UpdateCheckoutURL(ctx context.Context, id uuid.UUID, url string) error
}

// Service exposes the order store operations used by the wizard, the
// HTTP controllers, and the checkout webhook consumer.
type Service interface {
	Create(ctx context.Context, req CreateOrderRequest) (*models.PrintOrder, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PrintOrder, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.PrintOrder, error)
	LastShippingAddress(ctx context.Context, userID uuid.UUID) (*types.ShippingAddress, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, target enums.OrderStatus) (*models.PrintOrder, error)
	AttachCheckoutURL(ctx context.Context, id uuid.UUID, url string) error
}
