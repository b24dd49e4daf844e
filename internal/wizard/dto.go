package wizard

import (
	"time"

	"github.com/google/uuid"

	"github.com/visionari-app/visionari-backend/internal/imagequality"
	"github.com/visionari-app/visionari-backend/internal/profile"
	"github.com/visionari-app/visionari-backend/pkg/enums"
	"github.com/visionari-app/visionari-backend/pkg/types"
)

// StartRequest opens a wizard session for one image.
type StartRequest struct {
	UserID   uuid.UUID `json:"user_id" validate:"required"`
	ImageID  uuid.UUID `json:"image_id" validate:"required"`
	ImageURL string    `json:"image_url" validate:"required,url"`
}

// SessionView is the wizard state exposed to callers. CanAdvance
// mirrors the transition guard so clients can disable the forward
// control instead of discovering the refusal on submit.
type SessionView struct {
	SessionID       uuid.UUID              `json:"session_id"`
	Step            enums.WizardStep       `json:"step"`
	Config          types.ProductConfig    `json:"config"`
	Address         types.ShippingAddress  `json:"address"`
	PrefilledFields []string               `json:"prefilled_fields,omitempty"`
	Validation      *imagequality.Result   `json:"validation,omitempty"`
	Price           *types.PriceBreakdown  `json:"price,omitempty"`
	Eligibility     profile.Eligibility    `json:"eligibility"`
	CanAdvance      bool                   `json:"can_advance"`
	SubmitInFlight  bool                   `json:"submit_in_flight"`
	Result          *SubmitResult          `json:"result,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// SubmitResult is the terminal outcome of a submission. PartialFailure
// names a non-blocking side effect that did not complete (the order
// itself succeeded).
type SubmitResult struct {
	OrderID        uuid.UUID `json:"order_id"`
	RedirectURL    string    `json:"redirect_url,omitempty"`
	Simulated      bool      `json:"simulated"`
	PartialFailure string    `json:"partial_failure,omitempty"`
}
