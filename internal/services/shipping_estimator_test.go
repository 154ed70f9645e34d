package services

import (
	"context"
	"errors"
	"testing"

	"github.com/darkcontraster/api/internal/domain"
)

func newEstimator(t *testing.T) *FlatRateEstimator {
	t.Helper()
	estimator, err := NewFlatRateEstimator(FlatRateEstimatorDeps{})
	if err != nil {
		t.Fatalf("NewFlatRateEstimator returned error: %v", err)
	}
	return estimator
}

func teeLine(quantity int) domain.CartLine {
	return domain.CartLine{
		ProductID:  "p_tee",
		Name:       "Crew Tee",
		UnitAmount: 2500,
		Currency:   "USD",
		Quantity:   quantity,
		Kind:       domain.KindTee,
	}
}

func TestEstimateValidatesInput(t *testing.T) {
	estimator := newEstimator(t)

	_, err := estimator.Estimate(context.Background(), EstimateShippingCommand{Lines: []domain.CartLine{teeLine(1)}})
	if !errors.Is(err, ErrEstimateInvalidInput) {
		t.Fatalf("expected ErrEstimateInvalidInput for missing country, got %v", err)
	}

	_, err = estimator.Estimate(context.Background(), EstimateShippingCommand{CountryCode: "US"})
	if !errors.Is(err, ErrEstimateInvalidInput) {
		t.Fatalf("expected ErrEstimateInvalidInput for empty cart, got %v", err)
	}
}

func TestEstimateFlatRateTotals(t *testing.T) {
	estimator := newEstimator(t)

	cases := []struct {
		name    string
		lines   []domain.CartLine
		country string
		want    int64
	}{
		{
			name:    "single tee to US rounds up to whole dollar",
			lines:   []domain.CartLine{teeLine(1)},
			country: "US",
			want:    400,
		},
		{
			// 399 first + 200 rounded additional = 599 -> 600.
			name:    "two tees to US",
			lines:   []domain.CartLine{teeLine(2)},
			country: "US",
			want:    600,
		},
		{
			// Hoodie first unit wins (739), tee contributes nothing extra
			// beyond the shared additional max (300 rounded from 229).
			name: "mixed hoodie and tee to US",
			lines: []domain.CartLine{
				teeLine(1),
				{ProductID: "p_hoodie", Name: "Zip Hoodie", UnitAmount: 4500, Currency: "USD", Quantity: 1, Kind: domain.KindHoodie},
			},
			country: "US",
			want:    1100,
		},
		{
			name:    "unknown kind falls back to default rates",
			lines:   []domain.CartLine{{ProductID: "p_x", Name: "Mystery Object", UnitAmount: 1000, Currency: "USD", Quantity: 1}},
			country: "US",
			want:    400,
		},
		{
			name:    "unclassified country uses world rates",
			lines:   []domain.CartLine{teeLine(1)},
			country: "ZA",
			want:    1500,
		},
		{
			name:    "zero quantity counts as one unit",
			lines:   []domain.CartLine{teeLine(0)},
			country: "US",
			want:    400,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			estimate, err := estimator.Estimate(context.Background(), EstimateShippingCommand{Lines: tc.lines, CountryCode: tc.country})
			if err != nil {
				t.Fatalf("Estimate returned error: %v", err)
			}
			if estimate.AmountMinorUnits != tc.want {
				t.Fatalf("amount = %d, want %d", estimate.AmountMinorUnits, tc.want)
			}
			if estimate.Label != "Standard shipping" {
				t.Fatalf("label = %q, want Standard shipping", estimate.Label)
			}
		})
	}
}

func TestEstimateIsMonotonicInQuantity(t *testing.T) {
	estimator := newEstimator(t)

	var previous int64
	for quantity := 1; quantity <= 8; quantity++ {
		estimate, err := estimator.Estimate(context.Background(), EstimateShippingCommand{
			Lines:       []domain.CartLine{teeLine(quantity)},
			CountryCode: "US",
		})
		if err != nil {
			t.Fatalf("Estimate(%d) returned error: %v", quantity, err)
		}
		if estimate.AmountMinorUnits < previous {
			t.Fatalf("quantity %d dropped the total from %d to %d", quantity, previous, estimate.AmountMinorUnits)
		}
		previous = estimate.AmountMinorUnits
	}
}

func TestEstimateIsDeterministic(t *testing.T) {
	estimator := newEstimator(t)
	cmd := EstimateShippingCommand{
		Lines: []domain.CartLine{
			teeLine(2),
			{ProductID: "p_print", Name: "Sunset Poster", UnitAmount: 1800, Currency: "USD", Quantity: 1, Kind: domain.KindPrint},
		},
		CountryCode: "DE",
	}

	first, err := estimator.Estimate(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Estimate returned error: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := estimator.Estimate(context.Background(), cmd)
		if err != nil {
			t.Fatalf("Estimate returned error: %v", err)
		}
		if again != first {
			t.Fatalf("estimate changed between runs: %+v vs %+v", again, first)
		}
	}
}
