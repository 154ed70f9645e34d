package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v78"
)

type fakeSessionAPI struct {
	params  *stripe.CheckoutSessionParams
	session *stripe.CheckoutSession
	err     error
}

func (f *fakeSessionAPI) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func baseRequest() CheckoutSessionRequest {
	return CheckoutSessionRequest{
		Currency:   "USD",
		SuccessURL: "https://shop.example.com/success",
		CancelURL:  "https://shop.example.com/cancel",
		Items: []CheckoutLineItem{
			{Name: "Crew Tee", Quantity: 2, Amount: 2500, Currency: "USD"},
		},
		Shipping: &ShippingOption{
			Amount:          600,
			Currency:        "USD",
			DisplayName:     "Standard shipping",
			MinBusinessDays: 5,
			MaxBusinessDays: 12,
		},
		AllowedCountries: []string{"us"},
		AutomaticTax:     true,
		Metadata:         map[string]string{"cart": `[{"p":"p1","v":"v1","q":2}]`},
	}
}

func TestCreateCheckoutSessionBuildsParams(t *testing.T) {
	api := &fakeSessionAPI{session: &stripe.CheckoutSession{
		ID:  "cs_test_1",
		URL: "https://checkout.stripe.com/pay/cs_test_1",
	}}
	provider, err := NewStripeProvider(StripeProviderConfig{Sessions: api})
	if err != nil {
		t.Fatalf("NewStripeProvider returned error: %v", err)
	}

	session, err := provider.CreateCheckoutSession(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("CreateCheckoutSession returned error: %v", err)
	}
	if session.ID != "cs_test_1" {
		t.Fatalf("session id = %q, want cs_test_1", session.ID)
	}
	if session.RedirectURL == "" {
		t.Fatal("expected redirect url")
	}

	params := api.params
	if params == nil {
		t.Fatal("expected params to be captured")
	}
	if got := stripe.StringValue(params.Mode); got != string(stripe.CheckoutSessionModePayment) {
		t.Fatalf("mode = %q, want payment", got)
	}
	if len(params.LineItems) != 1 {
		t.Fatalf("got %d line items, want 1", len(params.LineItems))
	}
	line := params.LineItems[0]
	if got := stripe.Int64Value(line.Quantity); got != 2 {
		t.Fatalf("quantity = %d, want 2", got)
	}
	if got := stripe.StringValue(line.PriceData.Currency); got != "usd" {
		t.Fatalf("line currency = %q, want usd", got)
	}
	if params.ShippingAddressCollection == nil || len(params.ShippingAddressCollection.AllowedCountries) != 1 {
		t.Fatal("expected one allowed shipping country")
	}
	if got := stripe.StringValue(params.ShippingAddressCollection.AllowedCountries[0]); got != "US" {
		t.Fatalf("allowed country = %q, want US", got)
	}
	if len(params.ShippingOptions) != 1 {
		t.Fatalf("got %d shipping options, want 1", len(params.ShippingOptions))
	}
	rate := params.ShippingOptions[0].ShippingRateData
	if got := stripe.Int64Value(rate.FixedAmount.Amount); got != 600 {
		t.Fatalf("shipping amount = %d, want 600", got)
	}
	if rate.DeliveryEstimate == nil {
		t.Fatal("expected delivery estimate")
	}
	if got := stripe.Int64Value(rate.DeliveryEstimate.Maximum.Value); got != 12 {
		t.Fatalf("max delivery = %d, want 12", got)
	}
	if params.AutomaticTax == nil || !stripe.BoolValue(params.AutomaticTax.Enabled) {
		t.Fatal("expected automatic tax enabled")
	}
	if params.Metadata["cart"] == "" {
		t.Fatal("expected cart metadata to be forwarded")
	}
}

func TestCreateCheckoutSessionRejectsEmptyItems(t *testing.T) {
	provider, err := NewStripeProvider(StripeProviderConfig{Sessions: &fakeSessionAPI{}})
	if err != nil {
		t.Fatalf("NewStripeProvider returned error: %v", err)
	}

	req := baseRequest()
	req.Items = nil
	if _, err := provider.CreateCheckoutSession(context.Background(), req); err == nil {
		t.Fatal("expected error for empty line items")
	}
}

func TestCreateCheckoutSessionExpiryFallsBackToClock(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	api := &fakeSessionAPI{session: &stripe.CheckoutSession{ID: "cs_test_2"}}
	provider, err := NewStripeProvider(StripeProviderConfig{
		Sessions: api,
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewStripeProvider returned error: %v", err)
	}

	session, err := provider.CreateCheckoutSession(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("CreateCheckoutSession returned error: %v", err)
	}
	if want := now.Add(30 * time.Minute); !session.ExpiresAt.Equal(want) {
		t.Fatalf("expiresAt = %v, want %v", session.ExpiresAt, want)
	}
}

func TestNewStripeEventVerifierRequiresSecret(t *testing.T) {
	if _, err := NewStripeEventVerifier("   "); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewStripeEventVerifier("whsec_test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerifyEventRejectsBadSignature(t *testing.T) {
	verifier, err := NewStripeEventVerifier("whsec_test")
	if err != nil {
		t.Fatalf("NewStripeEventVerifier returned error: %v", err)
	}
	if _, err := verifier.VerifyEvent([]byte(`{"type":"checkout.session.completed"}`), "t=1,v1=bad"); err == nil {
		t.Fatal("expected signature error")
	}
}
