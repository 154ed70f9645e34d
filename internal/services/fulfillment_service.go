package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"

	"github.com/darkcontraster/api/internal/domain"
	"github.com/darkcontraster/api/internal/fulfillment"
)

var (
	// ErrFulfillmentMissingShipping signals a completed session without any
	// usable shipping or billing address.
	ErrFulfillmentMissingShipping = errors.New("fulfillment: missing shipping details on session")
	// ErrFulfillmentMissingMetadata signals a completed session whose cart
	// metadata could not be reconstructed.
	ErrFulfillmentMissingMetadata = errors.New("fulfillment: missing product metadata on session")
	// ErrFulfillmentBadPayload signals an event payload that does not decode
	// into a checkout session.
	ErrFulfillmentBadPayload = errors.New("fulfillment: malformed event payload")
)

const eventCheckoutCompleted = "checkout.session.completed"

type orderAPI interface {
	CreateOrder(ctx context.Context, req fulfillment.OrderRequest) (fulfillment.OrderResponse, error)
}

// FulfillmentService reconciles payment-completion events into provider
// orders. Submission is keyed by the payment session identifier, so retried
// deliveries of the same event collapse into one order.
type FulfillmentService struct {
	client orderAPI
	logger func(context.Context, string, map[string]any)
}

// FulfillmentServiceDeps configures the FulfillmentService.
type FulfillmentServiceDeps struct {
	Client orderAPI
	Logger func(context.Context, string, map[string]any)
}

// NewFulfillmentService constructs a FulfillmentService.
func NewFulfillmentService(deps FulfillmentServiceDeps) (*FulfillmentService, error) {
	if deps.Client == nil {
		return nil, errors.New("fulfillment service: client is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &FulfillmentService{client: deps.Client, logger: logger}, nil
}

// CompletionResult reports how a payment event was handled.
type CompletionResult struct {
	Handled  bool
	TestMode bool
	OrderID  string
}

// HandleEvent processes a verified payment event. Events other than checkout
// completion are acknowledged without action. Test-mode sessions are
// acknowledged but never reach the fulfillment provider. Any failure after
// this point must surface to the transport so the sender retries delivery.
func (s *FulfillmentService) HandleEvent(ctx context.Context, event stripe.Event) (CompletionResult, error) {
	if s == nil {
		return CompletionResult{}, errors.New("fulfillment service: service is nil")
	}
	if event.Type != eventCheckoutCompleted {
		return CompletionResult{}, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return CompletionResult{}, fmt.Errorf("%w: %v", ErrFulfillmentBadPayload, err)
	}

	if !session.Livemode {
		s.logger(ctx, "fulfillment.completion.test_mode_skipped", map[string]any{
			"sessionId": session.ID,
		})
		return CompletionResult{Handled: true, TestMode: true}, nil
	}

	order, err := buildOrderRequest(session)
	if err != nil {
		return CompletionResult{}, err
	}

	created, err := s.client.CreateOrder(ctx, order)
	if err != nil {
		return CompletionResult{}, fmt.Errorf("fulfillment: submit order for session %s: %w", session.ID, err)
	}

	s.logger(ctx, "fulfillment.order.submitted", map[string]any{
		"sessionId": session.ID,
		"orderId":   created.ID,
		"items":     len(order.Items),
	})
	return CompletionResult{Handled: true, OrderID: created.ID}, nil
}

// buildOrderRequest reconstructs the cart from the session metadata token and
// resolves the destination: the shipping-details block wins, the billing
// customer details serve as fallback.
func buildOrderRequest(session stripe.CheckoutSession) (fulfillment.OrderRequest, error) {
	var (
		name    string
		phone   string
		email   string
		address *stripe.Address
	)

	if session.CustomerDetails != nil {
		email = session.CustomerDetails.Email
		phone = session.CustomerDetails.Phone
	}
	if shipping := session.ShippingDetails; shipping != nil && shipping.Address != nil && shipping.Name != "" {
		name = shipping.Name
		address = shipping.Address
		if shipping.Phone != "" {
			phone = shipping.Phone
		}
	} else if customer := session.CustomerDetails; customer != nil && customer.Address != nil && customer.Name != "" {
		name = customer.Name
		address = customer.Address
	}
	if address == nil || name == "" {
		return fulfillment.OrderRequest{}, ErrFulfillmentMissingShipping
	}

	items := cartItemsFromMetadata(session.Metadata)
	if len(items) == 0 {
		return fulfillment.OrderRequest{}, ErrFulfillmentMissingMetadata
	}

	return fulfillment.OrderRequest{
		OrderReferenceID: session.ID,
		Customer: fulfillment.OrderCustomer{
			Email:     email,
			Phone:     phone,
			FirstName: name,
		},
		ShippingAddress: fulfillment.OrderAddress{
			FirstName:    name,
			AddressLine1: address.Line1,
			AddressLine2: address.Line2,
			City:         address.City,
			State:        address.State,
			PostalCode:   address.PostalCode,
			Country:      address.Country,
		},
		ShippingMethod: fulfillment.ShippingMethodStandard,
		Items:          items,
	}, nil
}

// cartItemsFromMetadata decodes the compact cart token, falling back to the
// legacy single-item keys written by early checkout sessions.
func cartItemsFromMetadata(metadata map[string]string) []fulfillment.OrderItem {
	var items []fulfillment.OrderItem
	for _, meta := range domain.DecodeCheckoutMetadata(metadata["cart"]) {
		items = append(items, fulfillment.OrderItem{
			StoreProductID:        meta.ProductID,
			StoreProductVariantID: meta.VariantID,
			Quantity:              meta.Quantity,
		})
	}
	if len(items) > 0 {
		return items
	}

	productID := strings.TrimSpace(metadata["productId"])
	if productID == "" {
		return nil
	}
	return []fulfillment.OrderItem{{
		StoreProductID:        productID,
		StoreProductVariantID: strings.TrimSpace(metadata["variantId"]),
		Quantity:              1,
	}}
}
