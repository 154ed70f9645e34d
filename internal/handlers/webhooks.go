package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/darkcontraster/api/internal/payments"
	"github.com/darkcontraster/api/internal/platform/httpx"
	"github.com/darkcontraster/api/internal/services"
)

const maxWebhookBodySize = 1 << 20

// WebhookHandlers receives payment-completion notifications. Signature
// verification happens against the raw body before any parsing; failures
// after verification return non-2xx so the sender redelivers.
type WebhookHandlers struct {
	verifier    payments.EventVerifier
	fulfillment *services.FulfillmentService
}

// NewWebhookHandlers constructs the webhook handlers.
func NewWebhookHandlers(verifier payments.EventVerifier, fulfillment *services.FulfillmentService) *WebhookHandlers {
	return &WebhookHandlers{verifier: verifier, fulfillment: fulfillment}
}

// Routes wires the /webhooks endpoints onto the provided router.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/stripe", h.stripeEvent)
}

func (h *WebhookHandlers) stripeEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.verifier == nil || h.fulfillment == nil {
		httpx.WriteError(ctx, w, httpx.NewError("webhook_not_configured", "payment webhook is not configured", http.StatusInternalServerError))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "failed to read request body", http.StatusBadRequest))
		return
	}

	event, err := h.verifier.VerifyEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "webhook signature verification failed", http.StatusBadRequest))
		return
	}

	result, err := h.fulfillment.HandleEvent(ctx, event)
	if err != nil {
		h.writeFulfillmentError(ctx, w, err)
		return
	}

	response := map[string]any{"received": true}
	if result.TestMode {
		response["testMode"] = true
	}
	writeJSONResponse(w, http.StatusOK, response)
}

func (h *WebhookHandlers) writeFulfillmentError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrFulfillmentBadPayload):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_event_payload", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrFulfillmentMissingShipping), errors.Is(err, services.ErrFulfillmentMissingMetadata):
		httpx.WriteError(ctx, w, httpx.NewError("session_incomplete", err.Error(), http.StatusUnprocessableEntity))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("fulfillment_error", err.Error(), http.StatusBadGateway))
	}
}
