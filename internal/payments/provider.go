package payments

import (
	"context"
	"time"
)

// CheckoutLineItem describes a single line item to include in a checkout session.
type CheckoutLineItem struct {
	Name        string
	Description string
	ProductID   string
	VariantID   string
	Quantity    int64
	Amount      int64
	Currency    string
}

// ShippingOption describes the single flat-rate shipping choice attached to a
// session. Amount is in minor units.
type ShippingOption struct {
	Amount          int64
	Currency        string
	DisplayName     string
	MinBusinessDays int64
	MaxBusinessDays int64
}

// CheckoutSessionRequest captures the payload required to create a checkout session.
type CheckoutSessionRequest struct {
	Currency         string
	SuccessURL       string
	CancelURL        string
	CustomerEmail    string
	Locale           string
	Metadata         map[string]string
	IdempotencyKey   string
	Items            []CheckoutLineItem
	Shipping         *ShippingOption
	AllowedCountries []string
	AutomaticTax     bool
}

// CheckoutSession represents the PSP session returned to the client.
type CheckoutSession struct {
	ID          string
	Provider    string
	RedirectURL string
	ExpiresAt   time.Time
}

// Provider defines the contract for PSP adapters to implement.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
}
