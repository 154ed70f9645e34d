package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stripe/stripe-go/v78"

	"github.com/darkcontraster/api/internal/fulfillment"
	"github.com/darkcontraster/api/internal/payments"
	"github.com/darkcontraster/api/internal/services"
)

type stubVerifier struct {
	event stripe.Event
	err   error
}

func (v *stubVerifier) VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	if v.err != nil {
		return stripe.Event{}, v.err
	}
	return v.event, nil
}

type stubOrderAPI struct {
	calls []fulfillment.OrderRequest
	err   error
}

func (s *stubOrderAPI) CreateOrder(ctx context.Context, req fulfillment.OrderRequest) (fulfillment.OrderResponse, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return fulfillment.OrderResponse{}, s.err
	}
	return fulfillment.OrderResponse{ID: "order-1"}, nil
}

func completedSessionEvent(t *testing.T, raw string) stripe.Event {
	t.Helper()
	return stripe.Event{
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: json.RawMessage(raw)},
	}
}

func newWebhookRouter(t *testing.T, verifier payments.EventVerifier, orders *stubOrderAPI) http.Handler {
	t.Helper()
	svc, err := services.NewFulfillmentService(services.FulfillmentServiceDeps{Client: orders})
	if err != nil {
		t.Fatalf("NewFulfillmentService: %v", err)
	}
	r := chi.NewRouter()
	r.Route("/webhooks", NewWebhookHandlers(verifier, svc).Routes)
	return r
}

func postWebhook(router http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	orders := &stubOrderAPI{}
	router := newWebhookRouter(t, &stubVerifier{err: payments.ErrInvalidSignature}, orders)

	rec := postWebhook(router)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid_signature") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if len(orders.calls) != 0 {
		t.Fatalf("expected no order calls, got %d", len(orders.calls))
	}
}

func TestStripeWebhookPlacesOrder(t *testing.T) {
	orders := &stubOrderAPI{}
	event := completedSessionEvent(t, `{
		"id": "cs_live_9",
		"livemode": true,
		"metadata": {"cart": "[{\"p\":\"p1\",\"v\":\"v1\",\"q\":2}]"},
		"shipping_details": {
			"name": "Ada Lovelace",
			"address": {"line1": "1 Main St", "city": "Austin", "postal_code": "73301", "state": "TX", "country": "US"}
		},
		"customer_details": {"email": "ada@example.com"}
	}`)
	router := newWebhookRouter(t, &stubVerifier{event: event}, orders)

	rec := postWebhook(router)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"received":true`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if len(orders.calls) != 1 {
		t.Fatalf("order calls = %d, want 1", len(orders.calls))
	}
	if got := orders.calls[0].OrderReferenceID; got != "cs_live_9" {
		t.Fatalf("order reference = %q, want cs_live_9", got)
	}
}

func TestStripeWebhookSkipsTestModeSessions(t *testing.T) {
	orders := &stubOrderAPI{}
	event := completedSessionEvent(t, `{"id": "cs_test_1", "livemode": false}`)
	router := newWebhookRouter(t, &stubVerifier{event: event}, orders)

	rec := postWebhook(router)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"testMode":true`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if len(orders.calls) != 0 {
		t.Fatalf("expected no order calls, got %d", len(orders.calls))
	}
}

func TestStripeWebhookIncompleteSession(t *testing.T) {
	orders := &stubOrderAPI{}
	event := completedSessionEvent(t, `{"id": "cs_live_2", "livemode": true, "metadata": {"cart": "[{\"p\":\"p1\",\"v\":\"v1\",\"q\":1}]"}}`)
	router := newWebhookRouter(t, &stubVerifier{event: event}, orders)

	rec := postWebhook(router)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "session_incomplete") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestStripeWebhookUpstreamFailure(t *testing.T) {
	orders := &stubOrderAPI{err: &fulfillment.UpstreamError{Op: "create order", Status: http.StatusBadGateway}}
	event := completedSessionEvent(t, `{
		"id": "cs_live_3",
		"livemode": true,
		"metadata": {"cart": "[{\"p\":\"p1\",\"v\":\"v1\",\"q\":1}]"},
		"shipping_details": {
			"name": "Ada Lovelace",
			"address": {"line1": "1 Main St", "city": "Austin", "postal_code": "73301", "country": "US"}
		}
	}`)
	router := newWebhookRouter(t, &stubVerifier{event: event}, orders)

	rec := postWebhook(router)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502 so the event is redelivered", rec.Code)
	}
}

func TestStripeWebhookNotConfigured(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/webhooks", NewWebhookHandlers(nil, nil).Routes)

	rec := postWebhook(r)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "webhook_not_configured") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

