package checkoutgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/visionari-app/visionari-backend/pkg/config"
	"github.com/visionari-app/visionari-backend/pkg/enums"
	apperrors "github.com/visionari-app/visionari-backend/pkg/errors"
	"github.com/visionari-app/visionari-backend/pkg/logger"
	"github.com/visionari-app/visionari-backend/pkg/metrics"
)

// SimulationSentinel marks a session answered locally because the
// payment backend is unconfigured or unreachable. A designed degraded
// mode, not an error.
const SimulationSentinel = "SIMULATION"

// Session is the gateway's answer: either a redirect URL or the
// simulation fallback.
type Session struct {
	URL       string `json:"url"`
	Simulated bool   `json:"simulated"`
}

// Gateway obtains a payment redirect from the external checkout backend.
type Gateway interface {
	CreateSession(ctx context.Context, mode enums.CheckoutMode, reference string, idempotencyKey string) (Session, error)
}

type sessionRequest struct {
	Mode           string `json:"mode"`
	Reference      string `json:"reference"`
	IdempotencyKey string `json:"idempotencyKey"`
}

type sessionResponse struct {
	URL string `json:"url"`
}

type gateway struct {
	backendURL string
	httpClient *http.Client
	logg       *logger.Logger
	metrics    *metrics.OrderMetrics
}

// NewGateway builds the checkout client. An empty backend URL puts the
// gateway permanently in simulation mode.
func NewGateway(cfg config.CheckoutConfig, logg *logger.Logger, m *metrics.OrderMetrics) Gateway {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &gateway{
		backendURL: strings.TrimRight(strings.TrimSpace(cfg.BackendURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		logg:       logg,
		metrics:    m,
	}
}

func (g *gateway) CreateSession(ctx context.Context, mode enums.CheckoutMode, reference string, idempotencyKey string) (Session, error) {
	if !mode.IsValid() {
		return Session{}, apperrors.New(apperrors.CodeValidation, "unknown checkout mode")
	}
	if strings.TrimSpace(reference) == "" {
		return Session{}, apperrors.New(apperrors.CodeValidation, "checkout reference is required")
	}
	if strings.TrimSpace(idempotencyKey) == "" {
		return Session{}, apperrors.New(apperrors.CodeValidation, "idempotency key is required")
	}

	if g.backendURL == "" {
		return g.simulate(ctx, "checkout backend not configured"), nil
	}

	body, err := json.Marshal(sessionRequest{
		Mode:           mode.String(),
		Reference:      reference,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return Session{}, apperrors.Wrap(apperrors.CodeInternal, err, "encoding checkout request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.backendURL+"/checkout-session", bytes.NewReader(body))
	if err != nil {
		return Session{}, apperrors.Wrap(apperrors.CodeInternal, err, "building checkout request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if g.metrics != nil {
		g.metrics.ObserveSessionDuration(time.Since(start))
	}
	if err != nil {
		// Connection-level failure means the backend is unreachable,
		// which is the designed simulation fallback, not an error.
		return g.simulate(ctx, fmt.Sprintf("checkout backend unreachable: %v", err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Session{}, apperrors.New(
			apperrors.CodeGateway,
			fmt.Sprintf("checkout backend returned status %d", resp.StatusCode),
		).WithDetails(map[string]any{"body": strings.TrimSpace(string(payload))})
	}

	var decoded sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Session{}, apperrors.Wrap(apperrors.CodeGateway, err, "malformed checkout response")
	}
	if strings.TrimSpace(decoded.URL) == "" {
		return Session{}, apperrors.New(apperrors.CodeGateway, "checkout response missing url")
	}
	return Session{URL: decoded.URL}, nil
}

func (g *gateway) simulate(ctx context.Context, reason string) Session {
	if g.metrics != nil {
		g.metrics.IncSimulationFallback()
	}
	if g.logg != nil {
		g.logg.Warn(g.logg.WithField(ctx, "reason", reason), "checkout falling back to simulation")
	}
	return Session{URL: SimulationSentinel, Simulated: true}
}
