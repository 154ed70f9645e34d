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

const maxShippingBodySize = 32 * 1024

// ShippingHandlers exposes the estimate and authoritative quote endpoints.
type ShippingHandlers struct {
	estimator *services.FlatRateEstimator
	quotes    *services.QuoteService
}

// NewShippingHandlers constructs the shipping handlers.
func NewShippingHandlers(estimator *services.FlatRateEstimator, quotes *services.QuoteService) *ShippingHandlers {
	return &ShippingHandlers{estimator: estimator, quotes: quotes}
}

// Routes wires the /shipping endpoints onto the provided router.
func (h *ShippingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/estimate", h.estimate)
	r.Post("/quote", h.quote)
}

type shippingItemPayload struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Quantity  int    `json:"quantity"`
}

type estimateRequest struct {
	Items   []shippingItemPayload `json:"items"`
	Country string                `json:"country"`
}

type addressPayload struct {
	FirstName    string `json:"firstName"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
}

type quoteRequest struct {
	Items   []shippingItemPayload `json:"items"`
	Address addressPayload        `json:"address"`
}

func (h *ShippingHandlers) estimate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.estimator == nil {
		httpx.WriteError(ctx, w, httpx.NewError("estimator_unavailable", "shipping estimator is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req estimateRequest
	if !decodeShippingBody(ctx, w, r, &req) {
		return
	}

	estimate, err := h.estimator.Estimate(ctx, services.EstimateShippingCommand{
		Lines:       shippingLines(req.Items),
		CountryCode: req.Country,
	})
	if err != nil {
		h.writeShippingError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"amountCents": estimate.AmountMinorUnits,
		"currency":    estimate.Currency,
		"country":     estimate.CountryCode,
		"label":       estimate.Label,
	})
}

func (h *ShippingHandlers) quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("quote_unavailable", "quote service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req quoteRequest
	if !decodeShippingBody(ctx, w, r, &req) {
		return
	}

	charge, err := h.quotes.QuoteShipping(ctx, services.QuoteShippingCommand{
		Lines: shippingLines(req.Items),
		Address: domain.Address{
			FirstName:    req.Address.FirstName,
			AddressLine1: req.Address.AddressLine1,
			AddressLine2: req.Address.AddressLine2,
			City:         req.Address.City,
			State:        req.Address.State,
			PostalCode:   req.Address.PostalCode,
			Country:      req.Address.Country,
		},
	})
	if err != nil {
		h.writeShippingError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"chargeCents":   charge.AmountMinorUnits,
		"upstreamCents": charge.UpstreamMinorUnits,
		"bandCents":     charge.BandMinorUnits,
		"surcharge":     charge.Surcharge,
		"currency":      charge.Currency,
		"country":       charge.CountryCode,
		"quoteId":       charge.QuoteID,
		"authoritative": charge.Authoritative,
	})
}

func decodeShippingBody(ctx context.Context, w http.ResponseWriter, r *http.Request, target any) bool {
	body, err := readLimitedBody(r, maxShippingBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return false
	}
	if err := json.Unmarshal(body, target); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed JSON body", http.StatusBadRequest))
		return false
	}
	return true
}

func (h *ShippingHandlers) writeShippingError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrEstimateInvalidInput), errors.Is(err, services.ErrQuoteInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrQuoteUpstream):
		httpx.WriteError(ctx, w, httpx.NewError("quote_upstream_error", err.Error(), http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to compute shipping", http.StatusInternalServerError))
	}
}

func shippingLines(items []shippingItemPayload) []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.CartLine{
			ProductID: strings.TrimSpace(item.ProductID),
			VariantID: strings.TrimSpace(item.VariantID),
			Name:      strings.TrimSpace(item.Name),
			Quantity:  item.Quantity,
			Kind:      domain.ProductKind(strings.TrimSpace(item.Kind)),
		})
	}
	return lines
}
