package wizard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/visionari-app/visionari-backend/internal/checkoutgateway"
	"github.com/visionari-app/visionari-backend/internal/imagequality"
	"github.com/visionari-app/visionari-backend/internal/pricing"
	"github.com/visionari-app/visionari-backend/internal/printorders"
	"github.com/visionari-app/visionari-backend/internal/profile"
	"github.com/visionari-app/visionari-backend/pkg/config"
	"github.com/visionari-app/visionari-backend/pkg/enums"
	apperrors "github.com/visionari-app/visionari-backend/pkg/errors"
	"github.com/visionari-app/visionari-backend/pkg/imagemeta"
	"github.com/visionari-app/visionari-backend/pkg/logger"
	"github.com/visionari-app/visionari-backend/pkg/metrics"
	"github.com/visionari-app/visionari-backend/pkg/types"
)

var defaultConfig = types.ProductConfig{
	ProductType: enums.ProductTypePoster,
	Size:        enums.PrintSize12x18,
	Finish:      enums.PrintFinishMatte,
	Quantity:    1,
}

type service struct {
	store     *Store
	prober    imagemeta.Prober
	validator imagequality.Validator
	pricer    pricing.Engine
	orders    printorders.Service
	gateway   checkoutgateway.Gateway
	profiles  profile.Service
	metrics   *metrics.OrderMetrics
	logg      *logger.Logger

	submitTimeout time.Duration
}

// NewService wires the wizard's collaborators. Everything the machine
// needs is injected here; nothing is fetched through globals.
func NewService(
	cfg config.WizardConfig,
	store *Store,
	prober imagemeta.Prober,
	validator imagequality.Validator,
	pricer pricing.Engine,
	orders printorders.Service,
	gateway checkoutgateway.Gateway,
	profiles profile.Service,
	m *metrics.OrderMetrics,
	logg *logger.Logger,
) Service {
	timeout := cfg.SubmitTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &service{
		store:         store,
		prober:        prober,
		validator:     validator,
		pricer:        pricer,
		orders:        orders,
		gateway:       gateway,
		profiles:      profiles,
		metrics:       m,
		logg:          logg,
		submitTimeout: timeout,
	}
}

func (s *service) Start(ctx context.Context, req StartRequest) (SessionView, error) {
	if req.UserID == uuid.Nil || req.ImageID == uuid.Nil || req.ImageURL == "" {
		return SessionView{}, apperrors.New(apperrors.CodeValidation, "user id, image id and image url are required")
	}

	dims, err := s.prober.Probe(ctx, req.ImageURL)
	if err != nil {
		return SessionView{}, err
	}

	eligibility, err := s.profiles.DiscountEligibility(ctx, req.UserID)
	if err != nil {
		return SessionView{}, err
	}

	now := time.Now()
	session := &Session{
		ID:            uuid.New(),
		UserID:        req.UserID,
		ImageID:       req.ImageID,
		ImageURL:      req.ImageURL,
		ImageWidthPx:  dims.Width,
		ImageHeightPx: dims.Height,
		Step:          enums.WizardStepConfig,
		Config:        defaultConfig,
		Eligibility:   eligibility,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Address prefill is best-effort; a failed lookup never blocks the
	// wizard from opening.
	var prefilled []string
	if address, err := s.orders.LastShippingAddress(ctx, req.UserID); err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "shipping address prefill failed")
		}
	} else if address != nil {
		session.Address = *address
		prefilled = prefilledFieldNames(*address)
	}

	gen := session.nextGeneration()
	if result, err := s.validator.Validate(dims.Width, dims.Height, session.Config.Size, session.Config.ProductType); err == nil {
		session.applyValidation(gen, result)
	} else {
		return SessionView{}, err
	}
	s.reprice(session)

	s.store.Put(session)

	view := s.view(session)
	view.PrefilledFields = prefilled
	return view, nil
}

func (s *service) Get(_ context.Context, sessionID uuid.UUID) (SessionView, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return SessionView{}, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return s.view(session), nil
}

// UpdateConfig stores the new selections and revalidates the image for
// them. Validation results race by generation: a response computed for
// an older configuration is discarded, never applied over a newer one.
func (s *service) UpdateConfig(_ context.Context, sessionID uuid.UUID, cfg types.ProductConfig) (SessionView, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return SessionView{}, err
	}

	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	if session.Step != enums.WizardStepConfig {
		defer session.mu.Unlock()
		return SessionView{}, apperrors.New(
			apperrors.CodeStateConflict,
			fmt.Sprintf("configuration can only change on the %s step", enums.WizardStepConfig),
		)
	}
	session.Config = cfg
	session.Validation = nil
	gen := session.nextGeneration()
	width, height := session.ImageWidthPx, session.ImageHeightPx
	session.UpdatedAt = time.Now()
	session.mu.Unlock()

	result, err := s.validator.Validate(width, height, cfg.Size, cfg.ProductType)

	session.mu.Lock()
	defer session.mu.Unlock()
	if err != nil {
		return SessionView{}, err
	}
	session.applyValidation(gen, result)
	s.reprice(session)
	return s.view(session), nil
}

func (s *service) UpdateShipping(_ context.Context, sessionID uuid.UUID, address types.ShippingAddress) (SessionView, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.Step != enums.WizardStepShipping {
		return SessionView{}, apperrors.New(
			apperrors.CodeStateConflict,
			fmt.Sprintf("shipping can only change on the %s step", enums.WizardStepShipping),
		)
	}
	session.Address = address.Normalized()
	session.UpdatedAt = time.Now()
	return s.view(session), nil
}

// Next advances one step. Guards are re-evaluated here, synchronously,
// not trusted from an earlier point in time.
func (s *service) Next(_ context.Context, sessionID uuid.UUID) (SessionView, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	switch session.Step {
	case enums.WizardStepConfig:
		if !session.validationCurrent() {
			return SessionView{}, apperrors.New(apperrors.CodeStateConflict, "image validation is still in progress")
		}
		if !session.Validation.IsValid {
			return SessionView{}, apperrors.New(apperrors.CodeStateConflict, "image resolution is insufficient for the selected size").
				WithDetails(map[string]any{"quality_level": session.Validation.QualityLevel})
		}
		session.Step = enums.WizardStepShipping

	case enums.WizardStepShipping:
		if missing := session.Address.MissingFields(); len(missing) > 0 {
			return SessionView{}, apperrors.New(apperrors.CodeStateConflict, "shipping address incomplete").
				WithDetails(map[string]any{"missing_fields": missing})
		}
		session.Step = enums.WizardStepPayment
		// The idempotency key is minted exactly once, on first entry
		// to payment. Retries and resubmissions reuse it.
		if session.IdempotencyKey == "" {
			session.IdempotencyKey = uuid.NewString()
		}

	case enums.WizardStepPayment:
		return SessionView{}, apperrors.New(apperrors.CodeStateConflict, "payment step advances through submission")

	default:
		return SessionView{}, apperrors.New(apperrors.CodeStateConflict, "wizard session already finished")
	}

	session.UpdatedAt = time.Now()
	return s.view(session), nil
}

// Back moves one step backwards. Always allowed between the three
// collecting steps and never discards entered data.
func (s *service) Back(_ context.Context, sessionID uuid.UUID) (SessionView, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	switch session.Step {
	case enums.WizardStepShipping:
		session.Step = enums.WizardStepConfig
	case enums.WizardStepPayment:
		if session.SubmitInFlight {
			return SessionView{}, apperrors.New(apperrors.CodeConflict, "submission in progress")
		}
		session.Step = enums.WizardStepShipping
	default:
		return SessionView{}, apperrors.New(apperrors.CodeStateConflict, "cannot navigate back from this step")
	}

	session.UpdatedAt = time.Now()
	return s.view(session), nil
}

type submitOutcome struct {
	order   *printordersOrder
	session checkoutgateway.Session
	err     error
}

// printordersOrder narrows the order fields Submit needs after the
// goroutine finishes.
type printordersOrder struct {
	ID uuid.UUID
}

// Submit creates the order and opens a checkout session, racing the
// pair against the safety timeout. First to settle wins; the loser is
// disregarded, not cancelled.
func (s *service) Submit(ctx context.Context, sessionID uuid.UUID) (SessionView, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	if session.Step != enums.WizardStepPayment {
		defer session.mu.Unlock()
		return SessionView{}, apperrors.New(apperrors.CodeStateConflict, "submission is only allowed on the payment step")
	}
	if session.SubmitInFlight {
		defer session.mu.Unlock()
		return SessionView{}, apperrors.New(apperrors.CodeConflict, "submission already in progress")
	}
	// Guards re-checked at the moment of submission.
	if !session.validationCurrent() || !session.Validation.IsValid {
		defer session.mu.Unlock()
		return SessionView{}, apperrors.New(apperrors.CodeStateConflict, "image validation no longer passes")
	}
	if !session.Address.Complete() {
		defer session.mu.Unlock()
		return SessionView{}, apperrors.New(apperrors.CodeStateConflict, "shipping address incomplete")
	}
	s.reprice(session)
	if session.Price == nil {
		defer session.mu.Unlock()
		return SessionView{}, apperrors.New(apperrors.CodeConfiguration, "no price available for the selected configuration")
	}

	session.SubmitInFlight = true
	req := printorders.CreateOrderRequest{
		UserID:          session.UserID,
		ImageID:         session.ImageID,
		ImageURL:        session.ImageURL,
		IdempotencyKey:  session.IdempotencyKey,
		ShippingAddress: session.Address,
		ProductConfig:   session.Config,
		PriceBreakdown:  *session.Price,
		DiscountApplied: session.Eligibility.DiscountEligible,
	}
	idempotencyKey := session.IdempotencyKey
	session.mu.Unlock()

	outcomeCh := make(chan submitOutcome, 1)
	// The dispatched work must outlive the caller's request when the
	// safety timer fires, so it runs on a non-cancelling context.
	bgCtx := context.WithoutCancel(ctx)
	go func() {
		order, err := s.orders.Create(bgCtx, req)
		if err != nil {
			outcomeCh <- submitOutcome{err: err}
			return
		}
		checkout, err := s.gateway.CreateSession(bgCtx, enums.CheckoutModePayment, order.ID.String(), idempotencyKey)
		if err != nil {
			outcomeCh <- submitOutcome{order: &printordersOrder{ID: order.ID}, err: err}
			return
		}
		outcomeCh <- submitOutcome{order: &printordersOrder{ID: order.ID}, session: checkout}
	}()

	select {
	case outcome := <-outcomeCh:
		return s.settleSubmit(ctx, session, outcome)

	case <-time.After(s.submitTimeout):
		// The dispatched request keeps running; its eventual result is
		// disregarded. The shared idempotency key makes the retry safe.
		session.mu.Lock()
		session.SubmitInFlight = false
		session.UpdatedAt = time.Now()
		session.mu.Unlock()
		s.countSubmission("timeout")
		return SessionView{}, apperrors.New(apperrors.CodeTimeout, "submission did not complete in time")
	}
}

func (s *service) settleSubmit(ctx context.Context, session *Session, outcome submitOutcome) (SessionView, error) {
	if outcome.err != nil {
		session.mu.Lock()
		session.SubmitInFlight = false
		session.Step = enums.WizardStepFailed
		session.UpdatedAt = time.Now()
		view := s.view(session)
		session.mu.Unlock()
		s.countSubmission("failed")
		if s.logg != nil {
			s.logg.Error(s.logg.WithSessionID(ctx, session.ID.String()), "order submission failed", outcome.err)
		}
		return view, outcome.err
	}

	result := SubmitResult{
		OrderID:   outcome.order.ID,
		Simulated: outcome.session.Simulated,
	}
	if !outcome.session.Simulated {
		result.RedirectURL = outcome.session.URL
		// Storing the redirect URL on the order is best-effort; the
		// submission already succeeded.
		if err := s.orders.AttachCheckoutURL(ctx, outcome.order.ID, outcome.session.URL); err != nil {
			result.PartialFailure = "checkout url not stored"
			if s.logg != nil {
				s.logg.Warn(s.logg.WithOrderID(ctx, outcome.order.ID.String()), "failed to store checkout url")
			}
		}
	}

	session.mu.Lock()
	session.SubmitInFlight = false
	session.Step = enums.WizardStepSuccess
	session.Result = &result
	session.UpdatedAt = time.Now()
	view := s.view(session)
	session.mu.Unlock()

	if outcome.session.Simulated {
		s.countSubmission("simulated")
	} else {
		s.countSubmission("success")
	}
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(s.logg.WithSessionID(ctx, session.ID.String()), outcome.order.ID.String())
		s.logg.Info(logCtx, "order submitted")
	}
	return view, nil
}

func (s *service) Close(_ context.Context, sessionID uuid.UUID) error {
	s.store.Delete(sessionID)
	return nil
}

// reprice recomputes the live quote. Unknown catalog combinations leave
// the price unset rather than rendering a zero price. Callers hold the
// session lock.
func (s *service) reprice(session *Session) {
	breakdown, err := s.pricer.Price(session.Config, session.Eligibility.DiscountEligible)
	if err != nil {
		session.Price = nil
		return
	}
	session.Price = &breakdown
}

func (s *service) view(session *Session) SessionView {
	view := SessionView{
		SessionID:      session.ID,
		Step:           session.Step,
		Config:         session.Config,
		Address:        session.Address,
		Validation:     session.Validation,
		Price:          session.Price,
		Eligibility:    session.Eligibility,
		SubmitInFlight: session.SubmitInFlight,
		Result:         session.Result,
		CreatedAt:      session.CreatedAt,
	}
	switch session.Step {
	case enums.WizardStepConfig:
		view.CanAdvance = session.validationCurrent() && session.Validation.IsValid
	case enums.WizardStepShipping:
		view.CanAdvance = session.Address.Complete()
	case enums.WizardStepPayment:
		view.CanAdvance = !session.SubmitInFlight
	}
	return view
}

func (s *service) countSubmission(outcome string) {
	if s.metrics != nil {
		s.metrics.IncSubmission(outcome)
	}
}

func prefilledFieldNames(address types.ShippingAddress) []string {
	fields := []string{}
	add := func(name, value string) {
		if value != "" {
			fields = append(fields, name)
		}
	}
	add("name", address.Name)
	add("line1", address.Line1)
	if address.Line2 != nil {
		add("line2", *address.Line2)
	}
	add("city", address.City)
	add("state", address.State)
	add("postal_code", address.PostalCode)
	add("country", address.Country)
	return fields
}
