package wizard

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionari-app/visionari-backend/internal/checkoutgateway"
	"github.com/visionari-app/visionari-backend/internal/imagequality"
	"github.com/visionari-app/visionari-backend/internal/pricing"
	"github.com/visionari-app/visionari-backend/internal/printorders"
	"github.com/visionari-app/visionari-backend/internal/profile"
	"github.com/visionari-app/visionari-backend/pkg/config"
	"github.com/visionari-app/visionari-backend/pkg/db/models"
	"github.com/visionari-app/visionari-backend/pkg/enums"
	apperrors "github.com/visionari-app/visionari-backend/pkg/errors"
	"github.com/visionari-app/visionari-backend/pkg/imagemeta"
	"github.com/visionari-app/visionari-backend/pkg/types"
)

type stubProber struct {
	dims imagemeta.Dimensions
	err  error
}

func (s *stubProber) Probe(context.Context, string) (imagemeta.Dimensions, error) {
	return s.dims, s.err
}

type stubProfile struct {
	eligible bool
}

func (s *stubProfile) DiscountEligibility(_ context.Context, userID uuid.UUID) (profile.Eligibility, error) {
	return profile.Eligibility{UserID: userID, DiscountEligible: s.eligible}, nil
}

// stubOrders is an in-memory order store honoring the idempotency key
// contract.
type stubOrders struct {
	mu          sync.Mutex
	byKey       map[string]*models.PrintOrder
	createCalls int
	createDelay time.Duration
	createErr   error
	attachErr   error
	lastAddress *types.ShippingAddress
}

func newStubOrders() *stubOrders {
	return &stubOrders{byKey: map[string]*models.PrintOrder{}}
}

func (s *stubOrders) setCreateDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createDelay = d
}

func (s *stubOrders) Create(_ context.Context, req printorders.CreateOrderRequest) (*models.PrintOrder, error) {
	s.mu.Lock()
	delay := s.createDelay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.createErr != nil {
		return nil, s.createErr
	}
	if existing, ok := s.byKey[req.IdempotencyKey]; ok {
		return existing, nil
	}
	order := &models.PrintOrder{
		ID:              uuid.New(),
		UserID:          req.UserID,
		IdempotencyKey:  req.IdempotencyKey,
		ShippingAddress: req.ShippingAddress,
		ProductConfig:   req.ProductConfig,
		PriceBreakdown:  req.PriceBreakdown,
		DiscountApplied: req.DiscountApplied,
		Status:          enums.OrderStatusPending,
	}
	s.byKey[req.IdempotencyKey] = order
	return order, nil
}

func (s *stubOrders) FindByID(context.Context, uuid.UUID) (*models.PrintOrder, error) {
	return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
}

func (s *stubOrders) ListByUser(context.Context, uuid.UUID, int) ([]models.PrintOrder, error) {
	return nil, nil
}

func (s *stubOrders) LastShippingAddress(context.Context, uuid.UUID) (*types.ShippingAddress, error) {
	return s.lastAddress, nil
}

func (s *stubOrders) TransitionStatus(context.Context, uuid.UUID, enums.OrderStatus) (*models.PrintOrder, error) {
	return nil, nil
}

func (s *stubOrders) AttachCheckoutURL(context.Context, uuid.UUID, string) error {
	return s.attachErr
}

func (s *stubOrders) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byKey)
}

type stubGateway struct {
	mu      sync.Mutex
	session checkoutgateway.Session
	err     error
	delay   time.Duration
	keys    []string
}

func (s *stubGateway) CreateSession(_ context.Context, _ enums.CheckoutMode, _ string, idempotencyKey string) (checkoutgateway.Session, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, idempotencyKey)
	return s.session, s.err
}

type fixture struct {
	svc     Service
	orders  *stubOrders
	gateway *stubGateway
	prober  *stubProber
}

func newFixture(t *testing.T, opts ...func(*fixture)) *fixture {
	t.Helper()

	validator, err := imagequality.NewValidator(config.PrintQualityConfig{
		DPI: 300, ExcellentThreshold: 1.0, GoodThreshold: 0.8,
		AcceptableThreshold: 0.6, PoorThreshold: 0.4,
	})
	require.NoError(t, err)

	pricer, err := pricing.NewEngine(config.PricingConfig{
		GlossSurchargeCents: 500, DiscountRate: 0.30,
	})
	require.NoError(t, err)

	f := &fixture{
		orders:  newStubOrders(),
		gateway: &stubGateway{session: checkoutgateway.Session{URL: "https://pay.example.com/session/s_1"}},
		prober:  &stubProber{dims: imagemeta.Dimensions{Width: 4000, Height: 6000}},
	}
	for _, opt := range opts {
		opt(f)
	}

	f.svc = NewService(
		config.WizardConfig{SubmitTimeout: 250 * time.Millisecond},
		NewStore(time.Minute),
		f.prober,
		validator,
		pricer,
		f.orders,
		f.gateway,
		&stubProfile{eligible: true},
		nil,
		nil,
	)
	return f
}

func startSession(t *testing.T, f *fixture) SessionView {
	t.Helper()
	view, err := f.svc.Start(context.Background(), StartRequest{
		UserID:   uuid.New(),
		ImageID:  uuid.New(),
		ImageURL: "https://images.visionari.app/boards/board-1.png",
	})
	require.NoError(t, err)
	return view
}

func completeAddress() types.ShippingAddress {
	return types.ShippingAddress{
		Name:       "Dana Fields",
		Line1:      "12 Harbor Way",
		City:       "Portland",
		State:      "OR",
		PostalCode: "97201",
		Country:    "US",
	}
}

func advanceToPayment(t *testing.T, f *fixture) SessionView {
	t.Helper()
	ctx := context.Background()
	view := startSession(t, f)
	view, err := f.svc.Next(ctx, view.SessionID)
	require.NoError(t, err)
	require.Equal(t, enums.WizardStepShipping, view.Step)
	_, err = f.svc.UpdateShipping(ctx, view.SessionID, completeAddress())
	require.NoError(t, err)
	view, err = f.svc.Next(ctx, view.SessionID)
	require.NoError(t, err)
	require.Equal(t, enums.WizardStepPayment, view.Step)
	return view
}

func TestStartMountsSessionWithValidationAndPrice(t *testing.T) {
	f := newFixture(t)
	view := startSession(t, f)

	assert.Equal(t, enums.WizardStepConfig, view.Step)
	require.NotNil(t, view.Validation)
	assert.True(t, view.Validation.IsValid)
	require.NotNil(t, view.Price)
	assert.True(t, view.Eligibility.DiscountEligible)
	assert.True(t, view.CanAdvance)
}

func TestStartPrefillsLastAddress(t *testing.T) {
	address := completeAddress()
	f := newFixture(t, func(f *fixture) {
		f.orders.lastAddress = &address
	})
	view := startSession(t, f)

	assert.Equal(t, "Dana Fields", view.Address.Name)
	assert.Contains(t, view.PrefilledFields, "line1")
}

func TestSubmitHappyPathRedirect(t *testing.T) {
	f := newFixture(t)
	view := advanceToPayment(t, f)

	view, err := f.svc.Submit(context.Background(), view.SessionID)
	require.NoError(t, err)

	assert.Equal(t, enums.WizardStepSuccess, view.Step)
	require.NotNil(t, view.Result)
	assert.Equal(t, "https://pay.example.com/session/s_1", view.Result.RedirectURL)
	assert.False(t, view.Result.Simulated)
	assert.Equal(t, 1, f.orders.orderCount())
}

func TestSubmitSimulationFallbackSucceeds(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.gateway.session = checkoutgateway.Session{URL: checkoutgateway.SimulationSentinel, Simulated: true}
	})
	view := advanceToPayment(t, f)

	view, err := f.svc.Submit(context.Background(), view.SessionID)
	require.NoError(t, err)

	assert.Equal(t, enums.WizardStepSuccess, view.Step)
	require.NotNil(t, view.Result)
	assert.True(t, view.Result.Simulated)
	assert.Empty(t, view.Result.RedirectURL)
}

func TestConfigGateBlocksAdvancement(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.prober.dims = imagemeta.Dimensions{Width: 800, Height: 600}
	})
	ctx := context.Background()
	view := startSession(t, f)

	// 800x600 against 24x36 must grade unacceptable.
	view, err := f.svc.UpdateConfig(ctx, view.SessionID, types.ProductConfig{
		ProductType: enums.ProductTypePoster,
		Size:        enums.PrintSize24x36,
		Finish:      enums.PrintFinishMatte,
		Quantity:    1,
	})
	require.NoError(t, err)
	require.NotNil(t, view.Validation)
	assert.Equal(t, enums.QualityLevelUnacceptable, view.Validation.QualityLevel)
	assert.False(t, view.CanAdvance)

	_, err = f.svc.Next(ctx, view.SessionID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeStateConflict, apperrors.As(err).Code())
}

func TestValidationRerunsPerSize(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.prober.dims = imagemeta.Dimensions{Width: 3600, Height: 5400}
	})
	ctx := context.Background()
	view := startSession(t, f)

	small, err := f.svc.UpdateConfig(ctx, view.SessionID, types.ProductConfig{
		ProductType: enums.ProductTypePoster, Size: enums.PrintSize12x18,
		Finish: enums.PrintFinishMatte, Quantity: 1,
	})
	require.NoError(t, err)
	assert.True(t, small.Validation.IsValid)

	large, err := f.svc.UpdateConfig(ctx, view.SessionID, types.ProductConfig{
		ProductType: enums.ProductTypePoster, Size: enums.PrintSize24x36,
		Finish: enums.PrintFinishMatte, Quantity: 1,
	})
	require.NoError(t, err)
	assert.False(t, large.Validation.IsValid)
}

func TestPriceRecomputedOnConfigChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view := startSession(t, f)

	view, err := f.svc.UpdateConfig(ctx, view.SessionID, types.ProductConfig{
		ProductType: enums.ProductTypePoster, Size: enums.PrintSize18x24,
		Finish: enums.PrintFinishMatte, Quantity: 1,
	})
	require.NoError(t, err)
	require.NotNil(t, view.Price)
	assert.Equal(t, 1680, view.Price.TotalCents)

	view, err = f.svc.UpdateConfig(ctx, view.SessionID, types.ProductConfig{
		ProductType: enums.ProductTypeCanvas, Size: enums.PrintSize12x18,
		Quantity: 2,
	})
	require.NoError(t, err)
	require.NotNil(t, view.Price)
	assert.Equal(t, "CNVS-12X18", view.Price.SKU)
}

func TestBackNavigationPreservesData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view := advanceToPayment(t, f)

	view, err := f.svc.Back(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.WizardStepShipping, view.Step)
	assert.Equal(t, "Dana Fields", view.Address.Name)

	view, err = f.svc.Back(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.WizardStepConfig, view.Step)
	assert.Equal(t, enums.ProductTypePoster, view.Config.ProductType)

	// Forward again without re-entering anything.
	view, err = f.svc.Next(ctx, view.SessionID)
	require.NoError(t, err)
	view, err = f.svc.Next(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.WizardStepPayment, view.Step)
}

func TestIdempotencyKeyMintedOnceAndReusedAfterTimeout(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.orders.createDelay = 400 * time.Millisecond // beyond the 250ms safety timer
	})
	ctx := context.Background()
	view := advanceToPayment(t, f)

	_, err := f.svc.Submit(ctx, view.SessionID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeTimeout, apperrors.As(err).Code())
	assert.True(t, apperrors.IsRetryable(err))

	// Timed out but not failed: the user is back on payment with all
	// data intact.
	view, err = f.svc.Get(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.WizardStepPayment, view.Step)
	assert.False(t, view.SubmitInFlight)
	assert.Equal(t, "Dana Fields", view.Address.Name)

	// Let the abandoned attempt land, then retry.
	time.Sleep(300 * time.Millisecond)
	f.orders.setCreateDelay(0)

	view, err = f.svc.Submit(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.WizardStepSuccess, view.Step)

	// Both attempts used the same key, so exactly one order exists.
	assert.Equal(t, 1, f.orders.orderCount())
	require.GreaterOrEqual(t, f.orders.createCalls, 2)
}

func TestSubmitSingleFlight(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.gateway.delay = 150 * time.Millisecond
	})
	ctx := context.Background()
	view := advanceToPayment(t, f)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i == 1 {
				time.Sleep(30 * time.Millisecond)
			}
			_, errs[i] = f.svc.Submit(ctx, view.SessionID)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.Error(t, errs[1])
	assert.Equal(t, apperrors.CodeConflict, apperrors.As(errs[1]).Code())
	assert.Equal(t, 1, f.orders.orderCount())
}

func TestSubmitGatewayErrorFailsSession(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.gateway.err = apperrors.New(apperrors.CodeGateway, "checkout backend returned status 500")
	})
	ctx := context.Background()
	view := advanceToPayment(t, f)

	view, err := f.svc.Submit(ctx, view.SessionID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeGateway, apperrors.As(err).Code())
	assert.Equal(t, enums.WizardStepFailed, view.Step)

	// The order row exists in pending for reconciliation.
	assert.Equal(t, 1, f.orders.orderCount())
}

func TestSubmitOrderStoreErrorFailsSession(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.orders.createErr = errors.New("connection refused")
	})
	view := advanceToPayment(t, f)

	view, err := f.svc.Submit(context.Background(), view.SessionID)
	require.Error(t, err)
	assert.Equal(t, enums.WizardStepFailed, view.Step)
}

func TestShippingGuardRequiresCompleteAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view := startSession(t, f)

	view, err := f.svc.Next(ctx, view.SessionID)
	require.NoError(t, err)

	address := completeAddress()
	address.PostalCode = ""
	_, err = f.svc.UpdateShipping(ctx, view.SessionID, address)
	require.NoError(t, err)

	_, err = f.svc.Next(ctx, view.SessionID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeStateConflict, apperrors.As(err).Code())
}

func TestStepLocksForEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view := startSession(t, f)

	// Shipping edits refused on the config step.
	_, err := f.svc.UpdateShipping(ctx, view.SessionID, completeAddress())
	require.Error(t, err)

	view, err = f.svc.Next(ctx, view.SessionID)
	require.NoError(t, err)

	// Config edits refused past the config step.
	_, err = f.svc.UpdateConfig(ctx, view.SessionID, types.ProductConfig{
		ProductType: enums.ProductTypePoster, Size: enums.PrintSize12x18,
		Finish: enums.PrintFinishMatte, Quantity: 1,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeStateConflict, apperrors.As(err).Code())
}

func TestCloseDestroysSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view := startSession(t, f)

	require.NoError(t, f.svc.Close(ctx, view.SessionID))
	_, err := f.svc.Get(ctx, view.SessionID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.As(err).Code())
}

func TestStaleValidationResultsDiscarded(t *testing.T) {
	session := &Session{}

	first := session.nextGeneration()
	second := session.nextGeneration()

	// The older request settles last; it must not be applied.
	require.True(t, session.applyValidation(second, imagequality.Result{IsValid: true}))
	require.False(t, session.applyValidation(first, imagequality.Result{IsValid: false}))

	assert.True(t, session.validationCurrent())
	assert.True(t, session.Validation.IsValid)
}

// TestGuardFuzzedAgainstInterleavings drives the machine with random
// config updates and navigation and asserts the shipping step is never
// reached while the latest validation fails.
func TestGuardFuzzedAgainstInterleavings(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.prober.dims = imagemeta.Dimensions{Width: 3600, Height: 5400}
	})
	ctx := context.Background()
	view := startSession(t, f)
	rng := rand.New(rand.NewSource(42))

	sizes := []enums.PrintSize{enums.PrintSize12x18, enums.PrintSize18x24, enums.PrintSize24x36}
	for range 500 {
		switch rng.Intn(3) {
		case 0:
			_, _ = f.svc.UpdateConfig(ctx, view.SessionID, types.ProductConfig{
				ProductType: enums.ProductTypePoster,
				Size:        sizes[rng.Intn(len(sizes))],
				Finish:      enums.PrintFinishMatte,
				Quantity:    1 + rng.Intn(3),
			})
		case 1:
			_, _ = f.svc.Next(ctx, view.SessionID)
		case 2:
			_, _ = f.svc.Back(ctx, view.SessionID)
		}

		state, err := f.svc.Get(ctx, view.SessionID)
		require.NoError(t, err)
		if state.Step != enums.WizardStepConfig {
			require.NotNil(t, state.Validation)
			require.True(t, state.Validation.IsValid,
				"reached %s with failing validation (%s)", state.Step, state.Validation.QualityLevel)
		}
	}
}

func TestConcurrentReadsAndEditsOnOneSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view := startSession(t, f)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 50 {
				_, _ = f.svc.Get(ctx, view.SessionID)
			}
		}()
		go func() {
			defer wg.Done()
			for range 50 {
				_, _ = f.svc.UpdateConfig(ctx, view.SessionID, types.ProductConfig{
					ProductType: enums.ProductTypePoster,
					Size:        enums.PrintSize18x24,
					Finish:      enums.PrintFinishMatte,
					Quantity:    1,
				})
			}
		}()
	}
	wg.Wait()

	state, err := f.svc.Get(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.WizardStepConfig, state.Step)
}

func TestSweepReclaimsAbandonedSessions(t *testing.T) {
	store := NewStore(time.Minute)
	stale := &Session{ID: uuid.New(), UpdatedAt: time.Now().Add(-2 * time.Minute)}
	live := &Session{ID: uuid.New(), UpdatedAt: time.Now()}
	store.Put(stale)
	store.Put(live)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	_, err := store.Get(stale.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.As(err).Code())

	_, err = store.Get(live.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, store.Sweep())
}
