package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/darkcontraster/api/internal/domain"
	"github.com/darkcontraster/api/internal/fulfillment"
)

// ErrCatalogUpstream is returned when the fulfillment catalog API fails.
var ErrCatalogUpstream = errors.New("catalog: upstream failure")

// statusPublishingError marks products the provider failed to publish; they
// must never be offered for sale.
const statusPublishingError = "publishing_error"

type catalogAPI interface {
	ListProducts(ctx context.Context) ([]fulfillment.StoreProduct, error)
	ListVariants(ctx context.Context, productID string) ([]fulfillment.StoreVariant, error)
}

// CatalogService exposes the sellable product listing, adapted from the
// fulfillment provider's shapes into the storefront's own.
type CatalogService struct {
	client catalogAPI
	logger func(context.Context, string, map[string]any)
}

// CatalogServiceDeps configures the CatalogService.
type CatalogServiceDeps struct {
	Client catalogAPI
	Logger func(context.Context, string, map[string]any)
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(deps CatalogServiceDeps) (*CatalogService, error) {
	if deps.Client == nil {
		return nil, errors.New("catalog service: fulfillment client is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &CatalogService{client: deps.Client, logger: logger}, nil
}

// ListSellableProducts fetches the store listing, drops products stuck in a
// publishing error state, and enriches each survivor with its variants. A
// variant fetch failure degrades that product to its base price rather than
// failing the whole listing.
func (s *CatalogService) ListSellableProducts(ctx context.Context) ([]domain.Product, error) {
	if s == nil {
		return nil, errors.New("catalog service: service is nil")
	}

	upstream, err := s.client.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUpstream, err)
	}

	products := make([]domain.Product, 0, len(upstream))
	for _, raw := range upstream {
		if strings.EqualFold(strings.TrimSpace(raw.Status), statusPublishingError) {
			continue
		}

		product := adaptStoreProduct(raw)

		variants, err := s.client.ListVariants(ctx, raw.ID)
		if err != nil {
			s.logger(ctx, "catalog.variants.failed", map[string]any{
				"productId": raw.ID,
				"error":     err.Error(),
			})
		} else {
			for _, variant := range variants {
				product.Variants = append(product.Variants, adaptStoreVariant(variant, product.Currency))
			}
		}

		products = append(products, product)
	}

	s.logger(ctx, "catalog.products.listed", map[string]any{
		"upstream": len(upstream),
		"sellable": len(products),
	})
	return products, nil
}

func adaptStoreProduct(raw fulfillment.StoreProduct) domain.Product {
	name := strings.TrimSpace(raw.Title)
	if name == "" {
		name = strings.TrimSpace(raw.Name)
	}
	currency := strings.ToUpper(strings.TrimSpace(raw.Currency))
	if currency == "" {
		currency = "USD"
	}
	return domain.Product{
		ID:         raw.ID,
		Name:       name,
		Status:     strings.TrimSpace(raw.Status),
		Currency:   currency,
		UnitAmount: toMinorUnits(raw.Price),
		Kind:       domain.KindOf("", name),
		Tags:       raw.Tags,
	}
}

func adaptStoreVariant(raw fulfillment.StoreVariant, currency string) domain.ProductVariant {
	variantCurrency := strings.ToUpper(strings.TrimSpace(raw.Currency))
	if variantCurrency == "" {
		variantCurrency = currency
	}
	return domain.ProductVariant{
		ID:         raw.ID,
		Title:      strings.TrimSpace(raw.Title),
		Currency:   variantCurrency,
		UnitAmount: toMinorUnits(raw.Price),
	}
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
