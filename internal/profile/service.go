package profile

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/visionari-app/visionari-backend/pkg/errors"
	"github.com/visionari-app/visionari-backend/pkg/logger"
)

// OrderCounter is the slice of the order store the eligibility check
// needs.
type OrderCounter interface {
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Eligibility is the profile snapshot handed to a wizard session at
// mount time. Read-only plain data for the life of the session.
type Eligibility struct {
	UserID           uuid.UUID `json:"user_id"`
	DiscountEligible bool      `json:"discount_eligible"`
	OrderCount       int64     `json:"order_count"`
}

// Service resolves per-user discount eligibility.
type Service interface {
	DiscountEligibility(ctx context.Context, userID uuid.UUID) (Eligibility, error)
}

type service struct {
	orders OrderCounter
	logg   *logger.Logger
}

func NewService(orders OrderCounter, logg *logger.Logger) Service {
	return &service{orders: orders, logg: logg}
}

// DiscountEligibility grants the first-order discount to users with no
// prior orders. Evaluated once per wizard session and then carried as
// plain data, so a session that outlives the user's first order keeps
// its original answer.
func (s *service) DiscountEligibility(ctx context.Context, userID uuid.UUID) (Eligibility, error) {
	if userID == uuid.Nil {
		return Eligibility{}, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	count, err := s.orders.CountByUser(ctx, userID)
	if err != nil {
		return Eligibility{}, apperrors.Wrap(apperrors.CodeInternal, err, "counting user orders")
	}
	return Eligibility{
		UserID:           userID,
		DiscountEligible: count == 0,
		OrderCount:       count,
	}, nil
}
