package checkoutwebhook

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/visionari-app/visionari-backend/internal/printorders"
	"github.com/visionari-app/visionari-backend/pkg/enums"
	pkgerrors "github.com/visionari-app/visionari-backend/pkg/errors"
	"github.com/visionari-app/visionari-backend/pkg/logger"
)

// Event is the payload posted by the checkout backend as the payment
// and fulfillment flow progresses.
type Event struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	OrderID string `json:"order_id"`
}

// eventStatusTargets maps checkout event types onto the order status
// they move the order to.
var eventStatusTargets = map[string]enums.OrderStatus{
	"checkout.session.completed": enums.OrderStatusSubmitted,
	"fulfillment.shipped":        enums.OrderStatusShipped,
	"fulfillment.delivered":      enums.OrderStatusDelivered,
}

type Service struct {
	orders printorders.Service
	guard  *IdempotencyGuard
	logg   *logger.Logger
}

func NewService(orders printorders.Service, guard *IdempotencyGuard, logg *logger.Logger) (*Service, error) {
	if orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	return &Service{orders: orders, guard: guard, logg: logg}, nil
}

// HandleEvent advances the order's status for the delivered event.
// Redeliveries are dropped by event id; unknown event types are
// acknowledged without effect so the sender stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout event required")
	}
	if event.EventID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event id missing")
	}

	target, known := eventStatusTargets[strings.ToLower(event.Type)]
	if !known {
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "event_type", event.Type), "ignoring unknown checkout event")
		}
		return nil
	}

	orderID, err := uuid.Parse(event.OrderID)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id missing or malformed")
	}

	seen, err := s.guard.CheckAndMark(ctx, event.EventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook idempotency check")
	}
	if seen {
		return nil
	}

	if _, err := s.orders.TransitionStatus(ctx, orderID, target); err != nil {
		// Clear the mark so the sender's retry can succeed once the
		// underlying problem is fixed.
		if delErr := s.guard.Delete(ctx, event.EventID); delErr != nil && s.logg != nil {
			s.logg.Error(ctx, "failed to clear webhook idempotency mark", delErr)
		}
		return err
	}

	if s.logg != nil {
		fields := map[string]any{"event_id": event.EventID, "event_type": event.Type, "status": target.String()}
		s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), fields), "checkout webhook applied")
	}
	return nil
}
