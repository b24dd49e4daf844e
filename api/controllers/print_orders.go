package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/visionari-app/visionari-backend/api/middleware"
	"github.com/visionari-app/visionari-backend/api/responses"
	"github.com/visionari-app/visionari-backend/api/validators"
	"github.com/visionari-app/visionari-backend/internal/imagequality"
	"github.com/visionari-app/visionari-backend/internal/pricing"
	"github.com/visionari-app/visionari-backend/internal/profile"
	"github.com/visionari-app/visionari-backend/internal/printorders"
	"github.com/visionari-app/visionari-backend/pkg/db/models"
	"github.com/visionari-app/visionari-backend/pkg/enums"
	pkgerrors "github.com/visionari-app/visionari-backend/pkg/errors"
	"github.com/visionari-app/visionari-backend/pkg/imagemeta"
	"github.com/visionari-app/visionari-backend/pkg/logger"
	"github.com/visionari-app/visionari-backend/pkg/types"
)

const (
	defaultOrderListLimit = 20
	maxOrderListLimit     = 100
)

type quoteRequest struct {
	ProductType enums.ProductType `json:"product_type" validate:"required"`
	Size        enums.PrintSize   `json:"size" validate:"required"`
	Finish      enums.PrintFinish `json:"finish,omitempty"`
	Quantity    int               `json:"quantity" validate:"required,min=1"`
}

type quoteResponse struct {
	Price       types.PriceBreakdown `json:"price"`
	Eligibility profile.Eligibility  `json:"eligibility"`
}

// QuoteOrder prices a product configuration without creating anything.
// The discount reflects the caller's current eligibility, so the quote
// matches what a submission made right now would charge.
func QuoteOrder(pricer pricing.Engine, profiles profile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pricer == nil || profiles == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		eligibility, err := profiles.DiscountEligibility(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := pricer.Price(types.ProductConfig{
			ProductType: payload.ProductType,
			Size:        payload.Size,
			Finish:      payload.Finish,
			Quantity:    payload.Quantity,
		}, eligibility.DiscountEligible)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, quoteResponse{Price: price, Eligibility: eligibility})
	}
}

type validateImageRequest struct {
	ImageURL    string            `json:"image_url,omitempty" validate:"omitempty,url"`
	WidthPx     int               `json:"width_px,omitempty" validate:"omitempty,min=1"`
	HeightPx    int               `json:"height_px,omitempty" validate:"omitempty,min=1"`
	ProductType enums.ProductType `json:"product_type" validate:"required"`
	Size        enums.PrintSize   `json:"size" validate:"required"`
}

// ValidateImage grades an image against a print size. Callers either
// supply pixel dimensions directly or an image URL to probe.
func ValidateImage(prober imagemeta.Prober, validator imagequality.Validator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if validator == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "image validation unavailable"))
			return
		}

		var payload validateImageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		width, height := payload.WidthPx, payload.HeightPx
		if width == 0 || height == 0 {
			if payload.ImageURL == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "either image_url or width_px and height_px are required"))
				return
			}
			if prober == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "image probing unavailable"))
				return
			}
			dims, err := prober.Probe(r.Context(), payload.ImageURL)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			width, height = dims.Width, dims.Height
		}

		result, err := validator.Validate(width, height, payload.Size, payload.ProductType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type createOrderRequest struct {
	ImageID         uuid.UUID             `json:"image_id" validate:"required"`
	ImageURL        string                `json:"image_url" validate:"required,url"`
	ProductConfig   types.ProductConfig   `json:"product_config" validate:"required"`
	ShippingAddress types.ShippingAddress `json:"shipping_address" validate:"required"`
	PriceBreakdown  types.PriceBreakdown  `json:"price_breakdown" validate:"required"`
	DiscountApplied bool                  `json:"discount_applied"`
}

// CreateOrder persists a print order directly, outside the wizard. The
// Idempotency-Key header doubles as the order's dedup key so retried
// requests land on the same row.
func CreateOrder(svc printorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if idempotencyKey == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), printorders.CreateOrderRequest{
			UserID:          userID,
			ImageID:         payload.ImageID,
			ImageURL:        payload.ImageURL,
			IdempotencyKey:  idempotencyKey,
			ShippingAddress: payload.ShippingAddress,
			ProductConfig:   payload.ProductConfig,
			PriceBreakdown:  payload.PriceBreakdown,
			DiscountApplied: payload.DiscountApplied,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// GetOrder returns one order owned by the caller.
func GetOrder(svc printorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parsePathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.FindByID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if order.UserID != userID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// ListOrders returns the caller's orders, newest first.
func ListOrders(svc printorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultOrderListLimit, 1, maxOrderListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.ListByUser(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]orderResponse, 0, len(orders))
		for i := range orders {
			out = append(out, newOrderResponse(&orders[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// LastShippingAddress returns the address from the caller's most recent
// order, for prefill. No prior order is not an error: the data is null.
func LastShippingAddress(svc printorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		address, err := svc.LastShippingAddress(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"address": address})
	}
}

type orderResponse struct {
	OrderID         uuid.UUID             `json:"order_id"`
	ImageID         uuid.UUID             `json:"image_id"`
	ImageURL        string                `json:"image_url"`
	ProductConfig   types.ProductConfig   `json:"product_config"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	PriceBreakdown  types.PriceBreakdown  `json:"price_breakdown"`
	DiscountApplied bool                  `json:"discount_applied"`
	Status          enums.OrderStatus     `json:"status"`
	CheckoutURL     *string               `json:"checkout_url,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

func newOrderResponse(order *models.PrintOrder) orderResponse {
	if order == nil {
		return orderResponse{}
	}
	return orderResponse{
		OrderID:         order.ID,
		ImageID:         order.ImageID,
		ImageURL:        order.ImageURL,
		ProductConfig:   order.ProductConfig,
		ShippingAddress: order.ShippingAddress,
		PriceBreakdown:  order.PriceBreakdown,
		DiscountApplied: order.DiscountApplied,
		Status:          order.Status,
		CheckoutURL:     order.CheckoutURL,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

func requireUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity required")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return userID, nil
}

func parsePathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "missing path parameter").WithDetails(map[string]any{"param": param})
	}
	value, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").WithDetails(map[string]any{"param": param})
	}
	return value, nil
}
