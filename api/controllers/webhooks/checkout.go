package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/visionari-app/visionari-backend/api/responses"
	checkoutwebhook "github.com/visionari-app/visionari-backend/internal/webhooks/checkout"
	pkgerrors "github.com/visionari-app/visionari-backend/pkg/errors"
	"github.com/visionari-app/visionari-backend/pkg/logger"
)

const signatureHeader = "X-Checkout-Signature"

type CheckoutWebhookService interface {
	HandleEvent(ctx context.Context, event *checkoutwebhook.Event) error
}

// CheckoutWebhook ingests payment and fulfillment events from the
// checkout backend. Signature validation is skipped when no secret is
// configured (simulation deployments have no backend to sign anything).
func CheckoutWebhook(svc CheckoutWebhookService, signingSecret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if signingSecret != "" {
			sigHeader := r.Header.Get(signatureHeader)
			if sigHeader == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "checkout signature missing"))
				return
			}
			if !validateCheckoutSignature(payload, signingSecret, sigHeader) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "invalid checkout signature"))
				return
			}
		}

		var event checkoutwebhook.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

func validateCheckoutSignature(payload []byte, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
