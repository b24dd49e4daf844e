package printorders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/visionari-app/visionari-backend/pkg/db"
	"github.com/visionari-app/visionari-backend/pkg/db/models"
	"github.com/visionari-app/visionari-backend/pkg/enums"
	apperrors "github.com/visionari-app/visionari-backend/pkg/errors"
	"github.com/visionari-app/visionari-backend/pkg/logger"
	"github.com/visionari-app/visionari-backend/pkg/outbox"
	"github.com/visionari-app/visionari-backend/pkg/types"
)

type service struct {
	db     *gorm.DB
	repo   Repository
	events *outbox.Service
	logg   *logger.Logger
}

// NewService builds the order store service. The outbox service may be
// nil when eventing is not wired (tests, one-off tools).
func NewService(db *gorm.DB, repo Repository, events *outbox.Service, logg *logger.Logger) Service {
	return &service{db: db, repo: repo, events: events, logg: logg}
}

// Create persists a new order, or returns the already-persisted order
// when the idempotency key has been seen before. Two concurrent calls
// with the same key yield exactly one billable row.
func (s *service) Create(ctx context.Context, req CreateOrderRequest) (*models.PrintOrder, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	if existing, err := s.findByKey(ctx, req.IdempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		if s.logg != nil {
			s.logg.Info(s.logg.WithOrderID(ctx, existing.ID.String()), "order create replayed via idempotency key")
		}
		return existing, nil
	}

	order := &models.PrintOrder{
		ID:              uuid.New(),
		UserID:          req.UserID,
		ImageID:         req.ImageID,
		ImageURL:        req.ImageURL,
		IdempotencyKey:  req.IdempotencyKey,
		ShippingAddress: req.ShippingAddress.Normalized(),
		ProductConfig:   req.ProductConfig.Normalized(),
		PriceBreakdown:  req.PriceBreakdown,
		DiscountApplied: req.DiscountApplied,
		Status:          enums.OrderStatusPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		if s.events == nil {
			return nil
		}
		return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPrintOrderCreated,
			AggregateType: enums.AggregatePrintOrder,
			AggregateID:   order.ID,
			UserID:        order.UserID.String(),
			Data: orderCreatedEvent{
				OrderID:         order.ID.String(),
				UserID:          order.UserID.String(),
				SKU:             order.PriceBreakdown.SKU,
				TotalCents:      order.PriceBreakdown.TotalCents,
				DiscountApplied: order.DiscountApplied,
			},
		})
	})
	if err != nil {
		// A concurrent create with the same key won the race. The
		// stored order is the canonical one.
		if dbpkg.IsUniqueViolation(err, "ux_print_orders_idempotency_key") {
			return s.repo.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "persisting print order")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "print order created")
	}
	return order, nil
}

func (s *service) findByKey(ctx context.Context, key string) (*models.PrintOrder, error) {
	existing, err := s.repo.FindByIdempotencyKey(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "looking up idempotency key")
	}
	return existing, nil
}

func (s *service) FindByID(ctx context.Context, id uuid.UUID) (*models.PrintOrder, error) {
	order, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.PrintOrder, error) {
	orders, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing orders")
	}
	return orders, nil
}

// LastShippingAddress returns the address on the user's most recent
// order, or nil when they have never ordered. Used only to prefill the
// shipping step.
func (s *service) LastShippingAddress(ctx context.Context, userID uuid.UUID) (*types.ShippingAddress, error) {
	address, err := s.repo.LastShippingAddress(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading last shipping address")
	}
	return address, nil
}

// TransitionStatus advances the fulfillment status, refusing backwards
// or skipping moves. Repeating the current status is a no-op so webhook
// redeliveries stay safe.
func (s *service) TransitionStatus(ctx context.Context, id uuid.UUID, target enums.OrderStatus) (*models.PrintOrder, error) {
	if !target.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "unknown order status")
	}
	order, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == target {
		return order, nil
	}
	if !order.Status.CanTransitionTo(target) {
		return nil, apperrors.New(
			apperrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, target),
		)
	}

	from := order.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateStatus(ctx, id, target); err != nil {
			return err
		}
		if s.events == nil {
			return nil
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPrintOrderStatusChanged,
			AggregateType: enums.AggregatePrintOrder,
			AggregateID:   order.ID,
			UserID:        order.UserID.String(),
			Data: orderStatusChangedEvent{
				OrderID: order.ID.String(),
				From:    from.String(),
				To:      target.String(),
			},
		})
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "updating order status")
	}

	order.Status = target
	if s.logg != nil {
		fields := map[string]any{"from": from.String(), "to": target.String()}
		logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), fields)
		s.logg.Info(logCtx, "order status changed")
	}
	return order, nil
}

func (s *service) AttachCheckoutURL(ctx context.Context, id uuid.UUID, url string) error {
	if url == "" {
		return nil
	}
	if err := s.repo.UpdateCheckoutURL(ctx, id, url); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "storing checkout url")
	}
	return nil
}

func validateCreateRequest(req CreateOrderRequest) error {
	if req.IdempotencyKey == "" {
		return apperrors.New(apperrors.CodeValidation, "idempotency key is required")
	}
	if req.UserID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	if req.ImageID == uuid.Nil || req.ImageURL == "" {
		return apperrors.New(apperrors.CodeValidation, "image reference is required")
	}
	if err := req.ProductConfig.Validate(); err != nil {
		return err
	}
	if missing := req.ShippingAddress.MissingFields(); len(missing) > 0 {
		return apperrors.New(apperrors.CodeValidation, "shipping address incomplete").
			WithDetails(map[string]any{"missing_fields": missing})
	}
	if !req.PriceBreakdown.Consistent() {
		return apperrors.New(apperrors.CodeValidation, "price breakdown inconsistent")
	}
	return nil
}
