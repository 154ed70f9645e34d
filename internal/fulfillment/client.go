package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultCatalogBaseURL = "https://ecommerce.gelatoapis.com/v1"
	defaultOrderBaseURL   = "https://order.gelatoapis.com/v4"
	defaultTimeout        = 15 * time.Second
	apiKeyHeader          = "X-API-KEY"
	idempotencyHeader     = "Idempotency-Key"

	// ShippingMethodStandard is the only shipping method the storefront
	// quotes and submits.
	ShippingMethodStandard = "standard"
)

// Logger defines the logging contract for client operations.
type Logger func(ctx context.Context, event string, fields map[string]any)

// UpstreamError carries the status and body of a non-success provider
// response so callers can surface actionable diagnostics.
type UpstreamError struct {
	Op     string
	Status int
	Body   string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("fulfillment: %s failed with status %d: %s", e.Op, e.Status, e.Body)
}

// ClientConfig configures the fulfillment provider client.
type ClientConfig struct {
	APIKey         string
	StoreID        string
	CatalogBaseURL string
	OrderBaseURL   string
	HTTPClient     *http.Client
	Logger         Logger
}

// Client talks to the print-on-demand provider's ecommerce and order APIs.
// Each call is a single request-response with a bounded timeout; retry policy
// belongs to the caller.
type Client struct {
	apiKey      string
	storeID     string
	catalogBase string
	orderBase   string
	httpClient  *http.Client
	logger      Logger
}

// NewClient validates the configuration and constructs a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("fulfillment: api key is required")
	}
	storeID := strings.TrimSpace(cfg.StoreID)
	if storeID == "" {
		return nil, errors.New("fulfillment: store id is required")
	}

	catalogBase := strings.TrimRight(strings.TrimSpace(cfg.CatalogBaseURL), "/")
	if catalogBase == "" {
		catalogBase = defaultCatalogBaseURL
	}
	orderBase := strings.TrimRight(strings.TrimSpace(cfg.OrderBaseURL), "/")
	if orderBase == "" {
		orderBase = defaultOrderBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &Client{
		apiKey:      apiKey,
		storeID:     storeID,
		catalogBase: catalogBase,
		orderBase:   orderBase,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// StoreID exposes the configured store identifier for order payloads.
func (c *Client) StoreID() string {
	if c == nil {
		return ""
	}
	return c.storeID
}

// StoreProduct is the upstream catalog listing shape, mapped at this boundary
// only. Prices may live on the product or per variant depending on the
// product type.
type StoreProduct struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Title    string   `json:"title"`
	Status   string   `json:"status"`
	Currency string   `json:"currency"`
	Price    float64  `json:"price"`
	Tags     []string `json:"tags"`
}

// StoreVariant is the upstream product variant shape.
type StoreVariant struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

type productListEnvelope struct {
	Items    []StoreProduct `json:"items"`
	Products []StoreProduct `json:"products"`
}

type variantListEnvelope struct {
	ProductVariants []StoreVariant `json:"productVariants"`
}

// ListProducts fetches the store's product listing. The upstream wraps the
// array under different keys depending on the endpoint version, so all known
// shapes are accepted here and nowhere else.
func (c *Client) ListProducts(ctx context.Context) ([]StoreProduct, error) {
	if c == nil {
		return nil, errors.New("fulfillment: client is nil")
	}

	endpoint := fmt.Sprintf("%s/stores/%s/products?order=desc&orderBy=createdAt&offset=0&limit=100", c.catalogBase, url.PathEscape(c.storeID))
	body, err := c.do(ctx, http.MethodGet, endpoint, nil, "", "list products")
	if err != nil {
		return nil, err
	}

	var envelope productListEnvelope
	envelopeErr := json.Unmarshal(body, &envelope)
	if envelopeErr == nil {
		if len(envelope.Items) > 0 {
			return envelope.Items, nil
		}
		if len(envelope.Products) > 0 {
			return envelope.Products, nil
		}
	}

	var bare []StoreProduct
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}

	// A decodable object with no known list key is an empty store; anything
	// else is a malformed response, not an empty catalog.
	if envelopeErr == nil {
		return nil, nil
	}
	return nil, fmt.Errorf("fulfillment: decode product list response: %w", envelopeErr)
}

// ListVariants fetches the variants of a single product. Missing variants are
// not an error; the product simply sells at its base price.
func (c *Client) ListVariants(ctx context.Context, productID string) ([]StoreVariant, error) {
	if c == nil {
		return nil, errors.New("fulfillment: client is nil")
	}
	trimmed := strings.TrimSpace(productID)
	if trimmed == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/stores/%s/products/%s/variants", c.catalogBase, url.PathEscape(c.storeID), url.PathEscape(trimmed))
	body, err := c.do(ctx, http.MethodGet, endpoint, nil, "", "list variants")
	if err != nil {
		return nil, err
	}

	var envelope variantListEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, nil
	}
	return envelope.ProductVariants, nil
}

// OrderItem references a store product in quote and order payloads.
type OrderItem struct {
	StoreProductID        string `json:"storeProductId"`
	StoreProductVariantID string `json:"storeProductVariantId"`
	Quantity              int    `json:"quantity"`
}

// OrderAddress is the provider's shipping address shape.
type OrderAddress struct {
	FirstName    string `json:"firstName,omitempty"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
}

// QuoteRequest asks the provider for an authoritative shipping quote.
type QuoteRequest struct {
	OrderReferenceID string       `json:"orderReferenceId"`
	StoreID          string       `json:"storeId"`
	ShippingMethod   string       `json:"shippingMethod"`
	Items            []OrderItem  `json:"items"`
	ShippingAddress  OrderAddress `json:"shippingAddress"`
}

// QuoteResponse carries the provider's quoted shipping total. TotalAmount is
// in whole currency units as returned upstream; callers convert to minor
// units.
type QuoteResponse struct {
	ID       string `json:"id"`
	Shipping struct {
		TotalAmount float64 `json:"totalAmount"`
	} `json:"shipping"`
}

// QuoteOrder requests a shipping quote for the supplied items and address.
func (c *Client) QuoteOrder(ctx context.Context, req QuoteRequest) (QuoteResponse, error) {
	if c == nil {
		return QuoteResponse{}, errors.New("fulfillment: client is nil")
	}
	if req.StoreID == "" {
		req.StoreID = c.storeID
	}
	if req.ShippingMethod == "" {
		req.ShippingMethod = ShippingMethodStandard
	}

	endpoint := c.orderBase + "/orders/quotes"
	body, err := c.do(ctx, http.MethodPost, endpoint, req, "", "quote order")
	if err != nil {
		return QuoteResponse{}, err
	}

	var quote QuoteResponse
	if err := json.Unmarshal(body, &quote); err != nil {
		return QuoteResponse{}, fmt.Errorf("fulfillment: decode quote response: %w", err)
	}

	c.logger(ctx, "fulfillment.quote.received", map[string]any{
		"quoteId":     quote.ID,
		"totalAmount": quote.Shipping.TotalAmount,
	})
	return quote, nil
}

// OrderCustomer is the provider's customer contact shape.
type OrderCustomer struct {
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	FirstName string `json:"firstName"`
}

// OrderRequest submits a fulfillment order. OrderReferenceID doubles as the
// idempotency key on the request so redelivered completion events cannot
// create duplicate orders.
type OrderRequest struct {
	OrderReferenceID string        `json:"orderReferenceId"`
	StoreID          string        `json:"storeId"`
	Currency         string        `json:"currency,omitempty"`
	Customer         OrderCustomer `json:"customer"`
	ShippingAddress  OrderAddress  `json:"shippingAddress"`
	ShippingMethod   string        `json:"shippingMethod"`
	Items            []OrderItem   `json:"items"`
}

// OrderResponse is the created-order acknowledgement.
type OrderResponse struct {
	ID string `json:"id"`
}

// CreateOrder submits the order, keyed by OrderReferenceID both in the body
// and as the idempotency header.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	if c == nil {
		return OrderResponse{}, errors.New("fulfillment: client is nil")
	}
	reference := strings.TrimSpace(req.OrderReferenceID)
	if reference == "" {
		return OrderResponse{}, errors.New("fulfillment: order reference id is required")
	}
	if req.StoreID == "" {
		req.StoreID = c.storeID
	}
	if req.ShippingMethod == "" {
		req.ShippingMethod = ShippingMethodStandard
	}
	if len(req.Items) == 0 {
		return OrderResponse{}, errors.New("fulfillment: order has no items")
	}

	endpoint := c.orderBase + "/orders"
	body, err := c.do(ctx, http.MethodPost, endpoint, req, reference, "create order")
	if err != nil {
		return OrderResponse{}, err
	}

	var order OrderResponse
	if err := json.Unmarshal(body, &order); err != nil {
		return OrderResponse{}, fmt.Errorf("fulfillment: decode order response: %w", err)
	}

	c.logger(ctx, "fulfillment.order.created", map[string]any{
		"orderId":          order.ID,
		"orderReferenceId": reference,
	})
	return order, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any, idempotencyKey, op string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("fulfillment: encode %s payload: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("fulfillment: build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)
	if idempotencyKey != "" {
		req.Header.Set(idempotencyHeader, idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fulfillment: %s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("fulfillment: read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return body, nil
}
