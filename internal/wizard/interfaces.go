package wizard

import (
	"context"

	"github.com/google/uuid"

	"github.com/visionari-app/visionari-backend/pkg/types"
)

// Service is the print-order wizard state machine. All operations are
// keyed by session ID; a session belongs to exactly one user.
type Service interface {
	Start(ctx context.Context, req StartRequest) (SessionView, error)
	Get(ctx context.Context, sessionID uuid.UUID) (SessionView, error)
	UpdateConfig(ctx context.Context, sessionID uuid.UUID, cfg types.ProductConfig) (SessionView, error)
	UpdateShipping(ctx context.Context, sessionID uuid.UUID, address types.ShippingAddress) (SessionView, error)
	Next(ctx context.Context, sessionID uuid.UUID) (SessionView, error)
	Back(ctx context.Context, sessionID uuid.UUID) (SessionView, error)
	Submit(ctx context.Context, sessionID uuid.UUID) (SessionView, error)
	Close(ctx context.Context, sessionID uuid.UUID) error
}
