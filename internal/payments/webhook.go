package payments

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

// ErrInvalidSignature is returned when an incoming event fails signature
// verification and must be rejected before any payload parsing.
var ErrInvalidSignature = errors.New("payments: invalid webhook signature")

// EventVerifier authenticates raw webhook payloads.
type EventVerifier interface {
	VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error)
}

// StripeEventVerifier verifies Stripe webhook signatures against the endpoint
// signing secret.
type StripeEventVerifier struct {
	secret string
}

// NewStripeEventVerifier constructs a verifier for the given signing secret.
func NewStripeEventVerifier(secret string) (*StripeEventVerifier, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, errors.New("payments: webhook signing secret is required")
	}
	return &StripeEventVerifier{secret: trimmed}, nil
}

// VerifyEvent checks the signature header against the raw payload and returns
// the decoded event. API version drift between the sender and the pinned SDK
// version is tolerated.
func (v *StripeEventVerifier) VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	if v == nil {
		return stripe.Event{}, errors.New("payments: verifier is nil")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}
