package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/visionari-app/visionari-backend/api/middleware"
	"github.com/visionari-app/visionari-backend/internal/imagequality"
	"github.com/visionari-app/visionari-backend/internal/pricing"
	"github.com/visionari-app/visionari-backend/internal/printorders"
	"github.com/visionari-app/visionari-backend/internal/profile"
	"github.com/visionari-app/visionari-backend/pkg/config"
	"github.com/visionari-app/visionari-backend/pkg/db/models"
	"github.com/visionari-app/visionari-backend/pkg/enums"
	pkgerrors "github.com/visionari-app/visionari-backend/pkg/errors"
	"github.com/visionari-app/visionari-backend/pkg/imagemeta"
	"github.com/visionari-app/visionari-backend/pkg/types"
)

type stubProfileService struct {
	eligibility profile.Eligibility
	err         error
}

func (s *stubProfileService) DiscountEligibility(_ context.Context, userID uuid.UUID) (profile.Eligibility, error) {
	if s.err != nil {
		return profile.Eligibility{}, s.err
	}
	out := s.eligibility
	out.UserID = userID
	return out, nil
}

type stubOrderService struct {
	orders      map[uuid.UUID]*models.PrintOrder
	lastAddress *types.ShippingAddress
	createdWith []printorders.CreateOrderRequest
	err         error
}

func newStubOrderService() *stubOrderService {
	return &stubOrderService{orders: make(map[uuid.UUID]*models.PrintOrder)}
}

func (s *stubOrderService) Create(_ context.Context, req printorders.CreateOrderRequest) (*models.PrintOrder, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.createdWith = append(s.createdWith, req)
	order := &models.PrintOrder{
		ID:              uuid.New(),
		UserID:          req.UserID,
		ImageID:         req.ImageID,
		ImageURL:        req.ImageURL,
		IdempotencyKey:  req.IdempotencyKey,
		ShippingAddress: req.ShippingAddress,
		ProductConfig:   req.ProductConfig,
		PriceBreakdown:  req.PriceBreakdown,
		DiscountApplied: req.DiscountApplied,
		Status:          enums.OrderStatusPending,
	}
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubOrderService) FindByID(_ context.Context, id uuid.UUID) (*models.PrintOrder, error) {
	if order, ok := s.orders[id]; ok {
		return order, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (s *stubOrderService) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]models.PrintOrder, error) {
	var out []models.PrintOrder
	for _, order := range s.orders {
		if order.UserID == userID && len(out) < limit {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (s *stubOrderService) LastShippingAddress(_ context.Context, _ uuid.UUID) (*types.ShippingAddress, error) {
	return s.lastAddress, s.err
}

func (s *stubOrderService) TransitionStatus(_ context.Context, id uuid.UUID, target enums.OrderStatus) (*models.PrintOrder, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order.Status = target
	return order, nil
}

func (s *stubOrderService) AttachCheckoutURL(_ context.Context, id uuid.UUID, url string) error {
	if order, ok := s.orders[id]; ok {
		order.CheckoutURL = &url
	}
	return nil
}

type stubDimensionProber struct {
	dims imagemeta.Dimensions
	err  error
}

func (s *stubDimensionProber) Probe(_ context.Context, _ string) (imagemeta.Dimensions, error) {
	return s.dims, s.err
}

func testPricer(t *testing.T) pricing.Engine {
	t.Helper()
	engine, err := pricing.NewEngine(config.PricingConfig{
		GlossSurchargeCents: 500,
		DiscountRate:        0.30,
	})
	if err != nil {
		t.Fatalf("pricing engine: %v", err)
	}
	return engine
}

func testQualityValidator(t *testing.T) imagequality.Validator {
	t.Helper()
	validator, err := imagequality.NewValidator(config.PrintQualityConfig{
		DPI:                 300,
		ExcellentThreshold:  1.0,
		GoodThreshold:       0.8,
		AcceptableThreshold: 0.6,
		PoorThreshold:       0.4,
	})
	if err != nil {
		t.Fatalf("quality validator: %v", err)
	}
	return validator
}

func authedRequest(method, target string, userID uuid.UUID, body any) *http.Request {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func withChiParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestQuoteOrderAppliesFirstOrderDiscount(t *testing.T) {
	profiles := &stubProfileService{eligibility: profile.Eligibility{DiscountEligible: true}}
	handler := QuoteOrder(testPricer(t), profiles, nil)

	req := authedRequest(http.MethodPost, "/api/v1/print-orders/quote", uuid.New(), map[string]any{
		"product_type": "poster",
		"size":         "18x24",
		"finish":       "matte",
		"quantity":     1,
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var got quoteResponse
	decodeData(t, rec, &got)
	if got.Price.SubtotalCents != 2400 || got.Price.DiscountCents != 720 || got.Price.TotalCents != 1680 {
		t.Fatalf("unexpected breakdown %+v", got.Price)
	}
	if !got.Eligibility.DiscountEligible {
		t.Fatalf("expected eligibility to be reflected")
	}
}

func TestQuoteOrderRequiresIdentity(t *testing.T) {
	handler := QuoteOrder(testPricer(t), &stubProfileService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/print-orders/quote", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without user identity, got %d", rec.Code)
	}
}

func TestQuoteOrderRejectsUnknownCombination(t *testing.T) {
	profiles := &stubProfileService{}
	handler := QuoteOrder(testPricer(t), profiles, nil)

	req := authedRequest(http.MethodPost, "/api/v1/print-orders/quote", uuid.New(), map[string]any{
		"product_type": "mug",
		"size":         "18x24",
		"quantity":     1,
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown product, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestValidateImageWithExplicitDimensions(t *testing.T) {
	handler := ValidateImage(nil, testQualityValidator(t), nil)

	req := authedRequest(http.MethodPost, "/api/v1/print-orders/validate-image", uuid.New(), map[string]any{
		"width_px":     3600,
		"height_px":    5400,
		"product_type": "poster",
		"size":         "12x18",
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var got imagequality.Result
	decodeData(t, rec, &got)
	if got.QualityLevel != enums.QualityLevelExcellent || !got.IsValid {
		t.Fatalf("expected excellent verdict, got %+v", got)
	}
}

func TestValidateImageProbesURL(t *testing.T) {
	prober := &stubDimensionProber{dims: imagemeta.Dimensions{Width: 800, Height: 600}}
	handler := ValidateImage(prober, testQualityValidator(t), nil)

	req := authedRequest(http.MethodPost, "/api/v1/print-orders/validate-image", uuid.New(), map[string]any{
		"image_url":    "https://cdn.visionari.io/boards/board.png",
		"product_type": "canvas",
		"size":         "24x36",
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var got imagequality.Result
	decodeData(t, rec, &got)
	if got.QualityLevel != enums.QualityLevelUnacceptable || got.IsValid {
		t.Fatalf("expected unacceptable verdict for 800x600 at 24x36, got %+v", got)
	}
}

func TestValidateImageRequiresDimensionsOrURL(t *testing.T) {
	handler := ValidateImage(nil, testQualityValidator(t), nil)

	req := authedRequest(http.MethodPost, "/api/v1/print-orders/validate-image", uuid.New(), map[string]any{
		"product_type": "poster",
		"size":         "12x18",
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateOrderUsesHeaderKey(t *testing.T) {
	svc := newStubOrderService()
	handler := CreateOrder(svc, nil)
	userID := uuid.New()

	req := authedRequest(http.MethodPost, "/api/v1/print-orders", userID, map[string]any{
		"image_id":  uuid.NewString(),
		"image_url": "https://cdn.visionari.io/boards/board.png",
		"product_config": map[string]any{
			"product_type": "poster",
			"size":         "18x24",
			"finish":       "matte",
			"quantity":     1,
		},
		"shipping_address": map[string]any{
			"name":        "Dana Fields",
			"line1":       "500 Pine St",
			"city":        "Seattle",
			"state":       "WA",
			"postal_code": "98101",
			"country":     "US",
		},
		"price_breakdown": map[string]any{
			"subtotal_cents": 2400,
			"discount_cents": 720,
			"shipping_cents": 0,
			"total_cents":    1680,
			"sku":            "PSTR-18X24-M",
		},
		"discount_applied": true,
	})
	req.Header.Set("Idempotency-Key", "order-key-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(svc.createdWith) != 1 {
		t.Fatalf("expected one create call, got %d", len(svc.createdWith))
	}
	if svc.createdWith[0].IdempotencyKey != "order-key-1" {
		t.Fatalf("expected header key to flow through, got %q", svc.createdWith[0].IdempotencyKey)
	}
	if svc.createdWith[0].UserID != userID {
		t.Fatalf("expected caller identity on the order")
	}
}

func TestCreateOrderRequiresIdempotencyKey(t *testing.T) {
	svc := newStubOrderService()
	handler := CreateOrder(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/print-orders", uuid.New(), map[string]any{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without key, got %d", rec.Code)
	}
	if len(svc.createdWith) != 0 {
		t.Fatalf("create should not run without a key")
	}
}

func TestGetOrderHidesForeignOrders(t *testing.T) {
	svc := newStubOrderService()
	owner := uuid.New()
	order, err := svc.Create(context.Background(), printorders.CreateOrderRequest{
		UserID:         owner,
		ImageID:        uuid.New(),
		ImageURL:       "https://cdn.visionari.io/boards/board.png",
		IdempotencyKey: "key",
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	handler := GetOrder(svc, nil)

	req := authedRequest(http.MethodGet, fmt.Sprintf("/api/v1/print-orders/%s", order.ID), uuid.New(), nil)
	req = withChiParam(req, "orderID", order.ID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign order, got %d", rec.Code)
	}

	ownerReq := authedRequest(http.MethodGet, fmt.Sprintf("/api/v1/print-orders/%s", order.ID), owner, nil)
	ownerReq = withChiParam(ownerReq, "orderID", order.ID.String())
	ownerRec := httptest.NewRecorder()
	handler.ServeHTTP(ownerRec, ownerReq)

	if ownerRec.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d", ownerRec.Code)
	}
}

func TestListOrdersValidatesLimit(t *testing.T) {
	handler := ListOrders(newStubOrderService(), nil)

	req := authedRequest(http.MethodGet, "/api/v1/print-orders?limit=5000", uuid.New(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out of range limit, got %d", rec.Code)
	}
}

func TestLastShippingAddressReturnsNullWithoutHistory(t *testing.T) {
	handler := LastShippingAddress(newStubOrderService(), nil)

	req := authedRequest(http.MethodGet, "/api/v1/print-orders/last-address", uuid.New(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got struct {
		Address *types.ShippingAddress `json:"address"`
	}
	decodeData(t, rec, &got)
	if got.Address != nil {
		t.Fatalf("expected null address, got %+v", got.Address)
	}
}
