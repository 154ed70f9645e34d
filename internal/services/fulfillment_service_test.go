package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v78"

	"github.com/darkcontraster/api/internal/fulfillment"
)

type fakeOrderAPI struct {
	calls   int
	lastReq fulfillment.OrderRequest
	err     error
}

func (f *fakeOrderAPI) CreateOrder(ctx context.Context, req fulfillment.OrderRequest) (fulfillment.OrderResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return fulfillment.OrderResponse{}, f.err
	}
	return fulfillment.OrderResponse{ID: "ord_1"}, nil
}

func newFulfillmentService(t *testing.T, api *fakeOrderAPI) *FulfillmentService {
	t.Helper()
	service, err := NewFulfillmentService(FulfillmentServiceDeps{Client: api})
	if err != nil {
		t.Fatalf("NewFulfillmentService returned error: %v", err)
	}
	return service
}

func completedEvent(t *testing.T, session map[string]any) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	return stripe.Event{
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: raw},
	}
}

func liveSession(overrides map[string]any) map[string]any {
	session := map[string]any{
		"id":       "cs_live_1",
		"livemode": true,
		"metadata": map[string]any{
			"cart": `[{"p":"p1","v":"v1","q":2},{"p":"p2","v":"","q":1}]`,
		},
		"shipping_details": map[string]any{
			"name":  "Ada Lovelace",
			"phone": "+15550001111",
			"address": map[string]any{
				"line1":       "1 Main St",
				"line2":       "Apt 2",
				"city":        "Portland",
				"state":       "OR",
				"postal_code": "97201",
				"country":     "US",
			},
		},
		"customer_details": map[string]any{
			"email": "ada@example.com",
			"phone": "+15550002222",
		},
	}
	for k, v := range overrides {
		session[k] = v
	}
	return session
}

func TestHandleEventIgnoresOtherEventTypes(t *testing.T) {
	api := &fakeOrderAPI{}
	service := newFulfillmentService(t, api)

	result, err := service.HandleEvent(context.Background(), stripe.Event{Type: "payment_intent.succeeded"})
	if err != nil {
		t.Fatalf("HandleEvent returned error: %v", err)
	}
	if result.Handled {
		t.Fatal("unrelated event must not be handled")
	}
	if api.calls != 0 {
		t.Fatalf("expected zero order submissions, got %d", api.calls)
	}
}

func TestHandleEventSkipsTestModeSessions(t *testing.T) {
	api := &fakeOrderAPI{}
	service := newFulfillmentService(t, api)

	result, err := service.HandleEvent(context.Background(), completedEvent(t, liveSession(map[string]any{"livemode": false})))
	if err != nil {
		t.Fatalf("HandleEvent returned error: %v", err)
	}
	if !result.Handled || !result.TestMode {
		t.Fatalf("unexpected result: %+v", result)
	}
	if api.calls != 0 {
		t.Fatalf("test-mode session must not reach the provider, got %d calls", api.calls)
	}
}

func TestHandleEventRejectsMalformedPayload(t *testing.T) {
	service := newFulfillmentService(t, &fakeOrderAPI{})

	event := stripe.Event{
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: []byte(`{"id":`)},
	}
	if _, err := service.HandleEvent(context.Background(), event); !errors.Is(err, ErrFulfillmentBadPayload) {
		t.Fatalf("expected ErrFulfillmentBadPayload, got %v", err)
	}
}

func TestHandleEventSubmitsOrderKeyedBySession(t *testing.T) {
	api := &fakeOrderAPI{}
	service := newFulfillmentService(t, api)

	result, err := service.HandleEvent(context.Background(), completedEvent(t, liveSession(nil)))
	if err != nil {
		t.Fatalf("HandleEvent returned error: %v", err)
	}
	if !result.Handled || result.OrderID != "ord_1" {
		t.Fatalf("unexpected result: %+v", result)
	}

	order := api.lastReq
	if order.OrderReferenceID != "cs_live_1" {
		t.Fatalf("orderReferenceId = %q, want cs_live_1", order.OrderReferenceID)
	}
	if order.Customer.Email != "ada@example.com" || order.Customer.FirstName != "Ada Lovelace" {
		t.Fatalf("unexpected customer: %+v", order.Customer)
	}
	if order.Customer.Phone != "+15550001111" {
		t.Fatalf("shipping phone must win, got %q", order.Customer.Phone)
	}
	if order.ShippingAddress.Country != "US" || order.ShippingAddress.AddressLine1 != "1 Main St" {
		t.Fatalf("unexpected address: %+v", order.ShippingAddress)
	}
	if order.ShippingMethod != fulfillment.ShippingMethodStandard {
		t.Fatalf("shippingMethod = %q", order.ShippingMethod)
	}
	if len(order.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(order.Items))
	}
	if order.Items[0].StoreProductID != "p1" || order.Items[0].Quantity != 2 {
		t.Fatalf("unexpected first item: %+v", order.Items[0])
	}
}

func TestHandleEventRedeliveryUsesSameReference(t *testing.T) {
	api := &fakeOrderAPI{}
	service := newFulfillmentService(t, api)
	event := completedEvent(t, liveSession(nil))

	if _, err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("first delivery returned error: %v", err)
	}
	firstRef := api.lastReq.OrderReferenceID

	if _, err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("redelivery returned error: %v", err)
	}
	if api.lastReq.OrderReferenceID != firstRef {
		t.Fatalf("redelivery changed order reference: %q vs %q", api.lastReq.OrderReferenceID, firstRef)
	}
}

func TestHandleEventFallsBackToCustomerAddress(t *testing.T) {
	api := &fakeOrderAPI{}
	service := newFulfillmentService(t, api)

	session := liveSession(map[string]any{
		"shipping_details": nil,
		"customer_details": map[string]any{
			"name":  "Grace Hopper",
			"email": "grace@example.com",
			"address": map[string]any{
				"line1":       "2 Side St",
				"city":        "Arlington",
				"postal_code": "22201",
				"country":     "US",
			},
		},
	})

	if _, err := service.HandleEvent(context.Background(), completedEvent(t, session)); err != nil {
		t.Fatalf("HandleEvent returned error: %v", err)
	}
	if api.lastReq.ShippingAddress.AddressLine1 != "2 Side St" {
		t.Fatalf("expected billing address fallback, got %+v", api.lastReq.ShippingAddress)
	}
	if api.lastReq.Customer.FirstName != "Grace Hopper" {
		t.Fatalf("unexpected customer: %+v", api.lastReq.Customer)
	}
}

func TestHandleEventMissingAddressFails(t *testing.T) {
	service := newFulfillmentService(t, &fakeOrderAPI{})

	session := liveSession(map[string]any{
		"shipping_details": nil,
		"customer_details": map[string]any{"email": "ada@example.com"},
	})
	if _, err := service.HandleEvent(context.Background(), completedEvent(t, session)); !errors.Is(err, ErrFulfillmentMissingShipping) {
		t.Fatalf("expected ErrFulfillmentMissingShipping, got %v", err)
	}
}

func TestHandleEventLegacySingleItemFallback(t *testing.T) {
	api := &fakeOrderAPI{}
	service := newFulfillmentService(t, api)

	session := liveSession(map[string]any{
		"metadata": map[string]any{
			"productId": "p_legacy",
			"variantId": "v_legacy",
		},
	})
	if _, err := service.HandleEvent(context.Background(), completedEvent(t, session)); err != nil {
		t.Fatalf("HandleEvent returned error: %v", err)
	}
	if len(api.lastReq.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(api.lastReq.Items))
	}
	item := api.lastReq.Items[0]
	if item.StoreProductID != "p_legacy" || item.StoreProductVariantID != "v_legacy" || item.Quantity != 1 {
		t.Fatalf("unexpected legacy item: %+v", item)
	}
}

func TestHandleEventMissingMetadataFails(t *testing.T) {
	service := newFulfillmentService(t, &fakeOrderAPI{})

	session := liveSession(map[string]any{"metadata": map[string]any{}})
	if _, err := service.HandleEvent(context.Background(), completedEvent(t, session)); !errors.Is(err, ErrFulfillmentMissingMetadata) {
		t.Fatalf("expected ErrFulfillmentMissingMetadata, got %v", err)
	}
}

func TestHandleEventSurfacesProviderFailure(t *testing.T) {
	upstream := &fulfillment.UpstreamError{Op: "create order", Status: 422, Body: "bad sku"}
	api := &fakeOrderAPI{err: upstream}
	service := newFulfillmentService(t, api)

	_, err := service.HandleEvent(context.Background(), completedEvent(t, liveSession(nil)))
	var got *fulfillment.UpstreamError
	if !errors.As(err, &got) {
		t.Fatalf("expected wrapped *UpstreamError, got %v", err)
	}
	if got.Status != 422 {
		t.Fatalf("status = %d, want 422", got.Status)
	}
}
