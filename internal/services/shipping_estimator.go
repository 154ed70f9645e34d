package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/darkcontraster/api/internal/domain"
)

var (
	// ErrEstimateInvalidInput signals a missing destination or an empty cart.
	ErrEstimateInvalidInput = errors.New("shipping estimate: invalid input")
)

// ShippingEstimate is the client-preview quote computed from the flat-rate
// table. Amount is in minor units.
type ShippingEstimate struct {
	AmountMinorUnits int64
	Currency         string
	CountryCode      string
	Label            string
}

// EstimateShippingCommand carries the cart snapshot and destination country.
type EstimateShippingCommand struct {
	Lines       []domain.CartLine
	CountryCode string
}

// FlatRateEstimator computes deterministic shipping previews from the static
// rate table. It never performs network calls, so it is safe to invoke on
// every cart mutation.
type FlatRateEstimator struct {
	logger func(context.Context, string, map[string]any)
}

// FlatRateEstimatorDeps configures the estimator.
type FlatRateEstimatorDeps struct {
	Logger func(context.Context, string, map[string]any)
}

// NewFlatRateEstimator constructs a FlatRateEstimator.
func NewFlatRateEstimator(deps FlatRateEstimatorDeps) (*FlatRateEstimator, error) {
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &FlatRateEstimator{logger: logger}, nil
}

// Estimate prices the whole cart as one shipment: the most expensive
// first-unit rate across all units, plus the dollar-rounded maximum
// additional-unit rate for every unit past the first, with the grand total
// rounded up to a whole dollar. Adding a unit never decreases the total.
func (e *FlatRateEstimator) Estimate(ctx context.Context, cmd EstimateShippingCommand) (ShippingEstimate, error) {
	if e == nil {
		return ShippingEstimate{}, errors.New("shipping estimate: estimator is nil")
	}
	country := strings.ToUpper(strings.TrimSpace(cmd.CountryCode))
	if country == "" {
		return ShippingEstimate{}, fmt.Errorf("%w: country is required", ErrEstimateInvalidInput)
	}
	if len(cmd.Lines) == 0 {
		return ShippingEstimate{}, fmt.Errorf("%w: cart is empty", ErrEstimateInvalidInput)
	}

	var (
		units         int64
		highestFirst  int64
		maxAdditional int64
	)
	for _, line := range cmd.Lines {
		quantity := int64(line.Quantity)
		if quantity < 1 {
			quantity = 1
		}
		units += quantity

		kind := domain.KindOf(line.Kind, line.Name)
		rate := domain.RateFor(kind, domain.RegionOf(country))
		if rate.FirstUnitCents > highestFirst {
			highestFirst = rate.FirstUnitCents
		}
		if rate.AdditionalUnitCents > maxAdditional {
			maxAdditional = rate.AdditionalUnitCents
		}
	}

	additional := roundUpToDollar(maxAdditional)
	raw := highestFirst + additional*(units-1)
	total := roundUpToDollar(raw)

	estimate := ShippingEstimate{
		AmountMinorUnits: total,
		Currency:         "USD",
		CountryCode:      country,
		Label:            "Standard shipping",
	}

	e.logger(ctx, "shipping.estimate.computed", map[string]any{
		"country": country,
		"units":   units,
		"amount":  total,
	})
	return estimate, nil
}

func roundUpToDollar(cents int64) int64 {
	if cents <= 0 {
		return 0
	}
	return ((cents + 99) / 100) * 100
}
