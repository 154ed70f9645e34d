package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/currency"

	"github.com/darkcontraster/api/internal/domain"
	"github.com/darkcontraster/api/internal/payments"
)

var (
	// ErrCheckoutInvalidInput signals that no sellable line items survived
	// normalisation.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutMissingShipping is returned when the caller has not obtained
	// a reconciled shipping quote before starting checkout.
	ErrCheckoutMissingShipping = errors.New("checkout: shipping quote required")
	// ErrCheckoutProvider wraps payment provider failures.
	ErrCheckoutProvider = errors.New("checkout: payment provider failure")
)

const (
	checkoutSourceTag       = "darkContraster"
	deliveryMinBusinessDays = 5
	deliveryMaxBusinessDays = 12
)

// CheckoutService turns a priced cart plus a reconciled shipping charge into
// a hosted payment session.
type CheckoutService struct {
	provider   payments.Provider
	successURL string
	cancelURL  string
	logger     func(context.Context, string, map[string]any)
}

// CheckoutServiceDeps configures the CheckoutService.
type CheckoutServiceDeps struct {
	Provider   payments.Provider
	SuccessURL string
	CancelURL  string
	Logger     func(context.Context, string, map[string]any)
}

// NewCheckoutService constructs a CheckoutService.
func NewCheckoutService(deps CheckoutServiceDeps) (*CheckoutService, error) {
	if deps.Provider == nil {
		return nil, errors.New("checkout service: payment provider is required")
	}
	successURL := normalizeRedirectURL(deps.SuccessURL)
	cancelURL := normalizeRedirectURL(deps.CancelURL)
	if successURL == "" || cancelURL == "" {
		return nil, errors.New("checkout service: success and cancel URLs are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &CheckoutService{
		provider:   deps.Provider,
		successURL: successURL,
		cancelURL:  cancelURL,
		logger:     logger,
	}, nil
}

// ShippingSelection is the reconciled shipping charge chosen for checkout.
type ShippingSelection struct {
	AmountMinorUnits int64
	CountryCode      string
	Label            string
}

// StartCheckoutCommand carries the cart snapshot and shipping selection.
type StartCheckoutCommand struct {
	Lines          []domain.CartLine
	Shipping       *ShippingSelection
	CustomerEmail  string
	IdempotencyKey string
}

// CheckoutRedirect is the hosted payment session handed back to the client.
type CheckoutRedirect struct {
	SessionID   string
	RedirectURL string
}

// StartCheckout validates and normalises the cart lines, serialises the cart
// into the session metadata token, and creates the hosted payment session
// with a single flat-rate shipping option restricted to the quoted country.
func (s *CheckoutService) StartCheckout(ctx context.Context, cmd StartCheckoutCommand) (CheckoutRedirect, error) {
	if s == nil {
		return CheckoutRedirect{}, errors.New("checkout service: service is nil")
	}

	// Duplicate identity keys in the request collapse into one line so the
	// hosted session never shows the same variant twice.
	normalized := domain.NewCart(normalizeCheckoutLines(cmd.Lines)...).Lines()
	if len(normalized) == 0 {
		return CheckoutRedirect{}, fmt.Errorf("%w: missing product details", ErrCheckoutInvalidInput)
	}

	if cmd.Shipping == nil || cmd.Shipping.AmountMinorUnits <= 0 || strings.TrimSpace(cmd.Shipping.CountryCode) == "" {
		return CheckoutRedirect{}, ErrCheckoutMissingShipping
	}
	shippingCountry := strings.ToUpper(strings.TrimSpace(cmd.Shipping.CountryCode))

	items := make([]payments.CheckoutLineItem, 0, len(normalized))
	for _, line := range normalized {
		name := line.Name
		if line.VariantTitle != "" {
			name = line.Name + " — " + line.VariantTitle
		}
		items = append(items, payments.CheckoutLineItem{
			Name:      name,
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  int64(line.Quantity),
			Amount:    line.UnitAmount,
			Currency:  line.Currency,
		})
	}

	cartToken := domain.EncodeCheckoutMetadata(normalized)

	first := normalized[0]
	metadata := map[string]string{
		"cart":            cartToken,
		"productId":       first.ProductID,
		"variantId":       first.VariantID,
		"shippingAmount":  fmt.Sprintf("%d", cmd.Shipping.AmountMinorUnits),
		"shippingCountry": shippingCountry,
		"source":          checkoutSourceTag,
	}

	session, err := s.provider.CreateCheckoutSession(ctx, payments.CheckoutSessionRequest{
		Currency:       first.Currency,
		SuccessURL:     s.successURL,
		CancelURL:      s.cancelURL,
		CustomerEmail:  strings.TrimSpace(cmd.CustomerEmail),
		Metadata:       metadata,
		IdempotencyKey: strings.TrimSpace(cmd.IdempotencyKey),
		Items:          items,
		Shipping: &payments.ShippingOption{
			Amount:          cmd.Shipping.AmountMinorUnits,
			Currency:        first.Currency,
			DisplayName:     defaultIfEmpty(cmd.Shipping.Label, "Standard shipping"),
			MinBusinessDays: deliveryMinBusinessDays,
			MaxBusinessDays: deliveryMaxBusinessDays,
		},
		AllowedCountries: []string{shippingCountry},
		AutomaticTax:     true,
	})
	if err != nil {
		return CheckoutRedirect{}, fmt.Errorf("%w: %v", ErrCheckoutProvider, err)
	}
	if session.RedirectURL == "" {
		return CheckoutRedirect{}, fmt.Errorf("%w: session missing redirect URL", ErrCheckoutProvider)
	}

	s.logger(ctx, "checkout.session.started", map[string]any{
		"sessionId": session.ID,
		"lineItems": len(items),
		"shipping":  cmd.Shipping.AmountMinorUnits,
		"country":   shippingCountry,
	})
	return CheckoutRedirect{SessionID: session.ID, RedirectURL: session.RedirectURL}, nil
}

// normalizeCheckoutLines drops lines without a name, a positive unit price,
// or a valid ISO 4217 currency, and clamps quantities to at least one.
func normalizeCheckoutLines(lines []domain.CartLine) []domain.CartLine {
	normalized := make([]domain.CartLine, 0, len(lines))
	for _, line := range lines {
		line.Name = strings.TrimSpace(line.Name)
		line.VariantTitle = strings.TrimSpace(line.VariantTitle)
		line.Currency = strings.ToUpper(strings.TrimSpace(line.Currency))
		if line.Name == "" || line.UnitAmount <= 0 {
			continue
		}
		if _, err := currency.ParseISO(line.Currency); err != nil {
			continue
		}
		if line.Quantity < 1 {
			line.Quantity = 1
		}
		normalized = append(normalized, line)
	}
	return normalized
}

func normalizeRedirectURL(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "http://") && !strings.Contains(trimmed, "localhost") {
		trimmed = "https://" + strings.TrimPrefix(trimmed, "http://")
	}
	return trimmed
}
