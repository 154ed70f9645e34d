package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/darkcontraster/api/internal/domain"
	"github.com/darkcontraster/api/internal/platform/httpx"
	"github.com/darkcontraster/api/internal/services"
)

// StoreHandlers exposes the public catalog endpoints.
type StoreHandlers struct {
	catalog *services.CatalogService
}

// NewStoreHandlers constructs the catalog handlers.
func NewStoreHandlers(catalog *services.CatalogService) *StoreHandlers {
	return &StoreHandlers{catalog: catalog}
}

// Routes wires the /store endpoints onto the provided router.
func (h *StoreHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
}

type productVariantPayload struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	UnitAmountCents int64  `json:"unitAmountCents"`
	Currency        string `json:"currency"`
}

type productPayload struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name"`
	Kind            string                  `json:"kind"`
	Currency        string                  `json:"currency"`
	UnitAmountCents int64                   `json:"unitAmountCents"`
	Tags            []string                `json:"tags,omitempty"`
	Variants        []productVariantPayload `json:"variants,omitempty"`
}

func (h *StoreHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	products, err := h.catalog.ListSellableProducts(ctx)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	payload := make([]productPayload, 0, len(products))
	for _, product := range products {
		payload = append(payload, buildProductPayload(product))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"products": payload})
}

func (h *StoreHandlers) writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrCatalogUpstream) {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_upstream_error", err.Error(), http.StatusBadGateway))
		return
	}
	httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to list products", http.StatusInternalServerError))
}

func buildProductPayload(product domain.Product) productPayload {
	payload := productPayload{
		ID:              product.ID,
		Name:            product.Name,
		Kind:            string(product.Kind),
		Currency:        product.Currency,
		UnitAmountCents: product.UnitAmount,
		Tags:            product.Tags,
	}
	for _, variant := range product.Variants {
		payload.Variants = append(payload.Variants, productVariantPayload{
			ID:              variant.ID,
			Title:           variant.Title,
			UnitAmountCents: variant.UnitAmount,
			Currency:        variant.Currency,
		})
	}
	return payload
}
