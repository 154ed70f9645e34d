package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/darkcontraster/api/internal/domain"
	"github.com/darkcontraster/api/internal/platform/httpx"
	"github.com/darkcontraster/api/internal/services"
)

const maxCheckoutBodySize = 64 * 1024

// CheckoutHandlers exposes checkout session creation.
type CheckoutHandlers struct {
	checkout *services.CheckoutService
}

// NewCheckoutHandlers constructs the checkout handlers.
func NewCheckoutHandlers(checkout *services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout}
}

// Routes wires the /checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/session", h.createSession)
}

type checkoutItemPayload struct {
	ProductID       string `json:"productId"`
	VariantID       string `json:"variantId"`
	Name            string `json:"name"`
	VariantTitle    string `json:"variantTitle"`
	UnitAmountCents int64  `json:"unitAmountCents"`
	Currency        string `json:"currency"`
	Quantity        int    `json:"quantity"`
}

type checkoutShippingPayload struct {
	AmountCents int64  `json:"amountCents"`
	Country     string `json:"country"`
	Label       string `json:"label"`
}

type createSessionRequest struct {
	Items    []checkoutItemPayload    `json:"items"`
	Shipping *checkoutShippingPayload `json:"shipping"`
	Email    string                   `json:"email"`
}

func (h *CheckoutHandlers) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCheckoutBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return
	}

	var req createSessionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed JSON body", http.StatusBadRequest))
		return
	}

	cmd := services.StartCheckoutCommand{
		CustomerEmail:  req.Email,
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	}
	for _, item := range req.Items {
		cmd.Lines = append(cmd.Lines, domain.CartLine{
			ProductID:    strings.TrimSpace(item.ProductID),
			VariantID:    strings.TrimSpace(item.VariantID),
			Name:         item.Name,
			VariantTitle: item.VariantTitle,
			UnitAmount:   item.UnitAmountCents,
			Currency:     item.Currency,
			Quantity:     item.Quantity,
		})
	}
	if req.Shipping != nil {
		cmd.Shipping = &services.ShippingSelection{
			AmountMinorUnits: req.Shipping.AmountCents,
			CountryCode:      req.Shipping.Country,
			Label:            req.Shipping.Label,
		}
	}

	redirect, err := h.checkout.StartCheckout(ctx, cmd)
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"sessionId": redirect.SessionID,
		"url":       redirect.RedirectURL,
	})
}

func (h *CheckoutHandlers) writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutMissingShipping):
		httpx.WriteError(ctx, w, httpx.NewError("shipping_quote_required", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutProvider):
		httpx.WriteError(ctx, w, httpx.NewError("payment_provider_error", err.Error(), http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to start checkout", http.StatusInternalServerError))
	}
}
