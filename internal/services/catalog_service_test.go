package services

import (
	"context"
	"errors"
	"testing"

	"github.com/darkcontraster/api/internal/domain"
	"github.com/darkcontraster/api/internal/fulfillment"
)

type fakeCatalogAPI struct {
	products    []fulfillment.StoreProduct
	variants    map[string][]fulfillment.StoreVariant
	productsErr error
	variantsErr error
}

func (f *fakeCatalogAPI) ListProducts(ctx context.Context) ([]fulfillment.StoreProduct, error) {
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	return f.products, nil
}

func (f *fakeCatalogAPI) ListVariants(ctx context.Context, productID string) ([]fulfillment.StoreVariant, error) {
	if f.variantsErr != nil {
		return nil, f.variantsErr
	}
	return f.variants[productID], nil
}

func newCatalogService(t *testing.T, api *fakeCatalogAPI) *CatalogService {
	t.Helper()
	service, err := NewCatalogService(CatalogServiceDeps{Client: api})
	if err != nil {
		t.Fatalf("NewCatalogService returned error: %v", err)
	}
	return service
}

func TestListSellableProductsFiltersPublishingErrors(t *testing.T) {
	api := &fakeCatalogAPI{
		products: []fulfillment.StoreProduct{
			{ID: "p1", Title: "Crew Tee", Status: "active", Price: 25},
			{ID: "p2", Title: "Broken Hoodie", Status: "PUBLISHING_ERROR", Price: 45},
			{ID: "p3", Title: "Sunset Poster", Status: "publishing_error", Price: 18},
			{ID: "p4", Name: "Canvas Tote", Price: 20},
		},
	}
	service := newCatalogService(t, api)

	products, err := service.ListSellableProducts(context.Background())
	if err != nil {
		t.Fatalf("ListSellableProducts returned error: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("got %d products, want 2", len(products))
	}
	if products[0].ID != "p1" || products[1].ID != "p4" {
		t.Fatalf("unexpected products: %+v", products)
	}
}

func TestListSellableProductsAdaptsShapes(t *testing.T) {
	api := &fakeCatalogAPI{
		products: []fulfillment.StoreProduct{
			{ID: "p1", Name: "fallback name", Title: "Crew Tee", Status: "active", Price: 24.99},
		},
		variants: map[string][]fulfillment.StoreVariant{
			"p1": {
				{ID: "v1", Title: "Black / L", Price: 27.5, Currency: "usd"},
				{ID: "v2", Title: "White / M", Price: 24.99},
			},
		},
	}
	service := newCatalogService(t, api)

	products, err := service.ListSellableProducts(context.Background())
	if err != nil {
		t.Fatalf("ListSellableProducts returned error: %v", err)
	}
	product := products[0]
	if product.Name != "Crew Tee" {
		t.Fatalf("name = %q, want Crew Tee (title wins)", product.Name)
	}
	if product.UnitAmount != 2499 {
		t.Fatalf("unit amount = %d, want 2499", product.UnitAmount)
	}
	if product.Currency != "USD" {
		t.Fatalf("currency = %q, want USD default", product.Currency)
	}
	if product.Kind != domain.KindTee {
		t.Fatalf("kind = %q, want tee", product.Kind)
	}
	if len(product.Variants) != 2 {
		t.Fatalf("got %d variants, want 2", len(product.Variants))
	}
	if product.Variants[0].UnitAmount != 2750 || product.Variants[0].Currency != "USD" {
		t.Fatalf("unexpected variant: %+v", product.Variants[0])
	}
	if product.Variants[1].Currency != "USD" {
		t.Fatalf("variant must inherit product currency, got %q", product.Variants[1].Currency)
	}
}

func TestListSellableProductsDegradesOnVariantFailure(t *testing.T) {
	api := &fakeCatalogAPI{
		products:    []fulfillment.StoreProduct{{ID: "p1", Title: "Crew Tee", Price: 25}},
		variantsErr: errors.New("boom"),
	}
	service := newCatalogService(t, api)

	products, err := service.ListSellableProducts(context.Background())
	if err != nil {
		t.Fatalf("ListSellableProducts returned error: %v", err)
	}
	if len(products) != 1 || len(products[0].Variants) != 0 {
		t.Fatalf("expected product without variants, got %+v", products)
	}
}

func TestListSellableProductsUpstreamFailure(t *testing.T) {
	api := &fakeCatalogAPI{productsErr: errors.New("boom")}
	service := newCatalogService(t, api)

	if _, err := service.ListSellableProducts(context.Background()); !errors.Is(err, ErrCatalogUpstream) {
		t.Fatalf("expected ErrCatalogUpstream, got %v", err)
	}
}
