package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/darkcontraster/api/internal/domain"
	"github.com/darkcontraster/api/internal/fulfillment"
)

var (
	// ErrQuoteInvalidInput signals missing items or address fields.
	ErrQuoteInvalidInput = errors.New("shipping quote: invalid input")
	// ErrQuoteUpstream is returned when the fulfillment quote API fails and no
	// fallback estimate is available.
	ErrQuoteUpstream = errors.New("shipping quote: upstream failure")
)

// surchargeToleranceCents is the ceiling above the regional minimum within
// which the customer is still charged only the minimum.
const surchargeToleranceCents = 400

type quoteAPI interface {
	QuoteOrder(ctx context.Context, req fulfillment.QuoteRequest) (fulfillment.QuoteResponse, error)
}

// QuoteService reconciles the fulfillment provider's authoritative shipping
// cost with the banded minimum-charge policy, producing the amount actually
// charged at checkout.
type QuoteService struct {
	client   quoteAPI
	fallback *FlatRateEstimator
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
	refGen   func() string
	cache    *quoteCache
}

// QuoteServiceDeps configures the QuoteService.
type QuoteServiceDeps struct {
	Client   quoteAPI
	Fallback *FlatRateEstimator
	CacheTTL time.Duration
	Now      func() time.Time
	Logger   func(context.Context, string, map[string]any)
	RefGen   func() string
}

// NewQuoteService constructs a QuoteService.
func NewQuoteService(deps QuoteServiceDeps) (*QuoteService, error) {
	if deps.Client == nil {
		return nil, errors.New("quote service: fulfillment client is required")
	}
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	refGen := deps.RefGen
	if refGen == nil {
		refGen = func() string { return "quote-" + ulid.Make().String() }
	}

	utcNow := func() time.Time { return now().UTC() }
	return &QuoteService{
		client:   deps.Client,
		fallback: deps.Fallback,
		now:      utcNow,
		logger:   logger,
		refGen:   refGen,
		cache:    newQuoteCache(ttl, utcNow),
	}, nil
}

// QuoteShippingCommand carries the cart snapshot and full destination address.
type QuoteShippingCommand struct {
	Lines       []domain.CartLine
	Address     domain.Address
	BypassCache bool
}

// ShippingCharge is the reconciled amount to charge for shipping.
type ShippingCharge struct {
	AmountMinorUnits   int64
	UpstreamMinorUnits int64
	BandMinorUnits     int64
	Currency           string
	CountryCode        string
	Surcharge          bool
	QuoteID            string
	Authoritative      bool
}

// QuoteShipping obtains the authoritative upstream quote and blends it with
// the regional minimum band. When the upstream quote sits within the
// tolerance above the band, the customer pays only the band; beyond the
// tolerance the full upstream cost passes through. The result always rounds
// up to a whole dollar.
func (s *QuoteService) QuoteShipping(ctx context.Context, cmd QuoteShippingCommand) (ShippingCharge, error) {
	if s == nil {
		return ShippingCharge{}, errors.New("quote service: service is nil")
	}
	if len(cmd.Lines) == 0 {
		return ShippingCharge{}, fmt.Errorf("%w: missing items", ErrQuoteInvalidInput)
	}
	country := strings.ToUpper(strings.TrimSpace(cmd.Address.Country))
	postal := strings.TrimSpace(cmd.Address.PostalCode)
	if country == "" || postal == "" {
		return ShippingCharge{}, fmt.Errorf("%w: missing address", ErrQuoteInvalidInput)
	}

	items := make([]fulfillment.OrderItem, 0, len(cmd.Lines))
	for _, line := range cmd.Lines {
		productID := strings.TrimSpace(line.ProductID)
		if productID == "" {
			continue
		}
		quantity := line.Quantity
		if quantity < 1 {
			quantity = 1
		}
		items = append(items, fulfillment.OrderItem{
			StoreProductID:        productID,
			StoreProductVariantID: strings.TrimSpace(line.VariantID),
			Quantity:              quantity,
		})
	}
	if len(items) == 0 {
		return ShippingCharge{}, fmt.Errorf("%w: no quotable items", ErrQuoteInvalidInput)
	}

	key := buildQuoteCacheKey(country, postal, items)
	if !cmd.BypassCache {
		if charge, ok := s.cache.Get(key); ok {
			return charge, nil
		}
	}

	resp, err := s.client.QuoteOrder(ctx, fulfillment.QuoteRequest{
		OrderReferenceID: s.refGen(),
		ShippingMethod:   fulfillment.ShippingMethodStandard,
		Items:            items,
		ShippingAddress: fulfillment.OrderAddress{
			Country:      country,
			PostalCode:   postal,
			City:         defaultIfEmpty(cmd.Address.City, "City"),
			State:        cmd.Address.State,
			AddressLine1: defaultIfEmpty(cmd.Address.AddressLine1, "Address line"),
			AddressLine2: cmd.Address.AddressLine2,
		},
	})
	if err != nil {
		s.logger(ctx, "shipping.quote.upstream_failed", map[string]any{
			"country": country,
			"error":   err.Error(),
		})
		if s.fallback != nil {
			return s.estimateFallback(ctx, cmd.Lines, country)
		}
		return ShippingCharge{}, fmt.Errorf("%w: %v", ErrQuoteUpstream, err)
	}

	upstream := int64(math.Round(resp.Shipping.TotalAmount * 100))
	charge := reconcileCharge(upstream, country)
	charge.QuoteID = resp.ID
	charge.Authoritative = true

	s.cache.Put(key, charge)
	s.logger(ctx, "shipping.quote.reconciled", map[string]any{
		"country":   country,
		"upstream":  upstream,
		"charge":    charge.AmountMinorUnits,
		"surcharge": charge.Surcharge,
	})
	return charge, nil
}

func (s *QuoteService) estimateFallback(ctx context.Context, lines []domain.CartLine, country string) (ShippingCharge, error) {
	estimate, err := s.fallback.Estimate(ctx, EstimateShippingCommand{Lines: lines, CountryCode: country})
	if err != nil {
		return ShippingCharge{}, fmt.Errorf("%w: fallback estimate: %v", ErrQuoteUpstream, err)
	}
	// The band floor applies on this path too: a cheap estimate never
	// undercuts the regional minimum.
	band := bandCentsFor(country)
	amount := estimate.AmountMinorUnits
	if amount < band {
		amount = band
	}
	return ShippingCharge{
		AmountMinorUnits: amount,
		BandMinorUnits:   band,
		Currency:         "usd",
		CountryCode:      country,
		Surcharge:        amount > band,
		Authoritative:    false,
	}, nil
}

// reconcileCharge applies the banded minimum with a bounded tolerance: the
// band absorbs upstream costs up to band+tolerance, anything beyond passes
// through in full, and the result rounds up to a whole dollar.
func reconcileCharge(upstreamCents int64, country string) ShippingCharge {
	band := bandCentsFor(country)
	base := upstreamCents
	if band > base {
		base = band
	}
	chargeRaw := band
	if base > band+surchargeToleranceCents {
		chargeRaw = base
	}
	charge := roundUpToDollar(chargeRaw)
	return ShippingCharge{
		AmountMinorUnits:   charge,
		UpstreamMinorUnits: upstreamCents,
		BandMinorUnits:     band,
		Currency:           "usd",
		CountryCode:        country,
		Surcharge:          charge > band,
	}
}

func bandCentsFor(country string) int64 {
	iso := strings.ToUpper(strings.TrimSpace(country))
	if iso == "US" {
		return 500
	}
	if domain.InEUBand(iso) {
		return 900
	}
	return 1500
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

type quoteCache struct {
	ttl time.Duration
	now func() time.Time
	mu  sync.RWMutex
	m   map[string]quoteCacheEntry
}

type quoteCacheEntry struct {
	charge  ShippingCharge
	expires time.Time
}

func newQuoteCache(ttl time.Duration, now func() time.Time) *quoteCache {
	return &quoteCache{
		ttl: ttl,
		now: now,
		m:   make(map[string]quoteCacheEntry),
	}
}

func (c *quoteCache) Get(key string) (ShippingCharge, bool) {
	c.mu.RLock()
	entry, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return ShippingCharge{}, false
	}
	if c.now().After(entry.expires) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return ShippingCharge{}, false
	}
	return entry.charge, true
}

func (c *quoteCache) Put(key string, charge ShippingCharge) {
	c.mu.Lock()
	c.m[key] = quoteCacheEntry{charge: charge, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func buildQuoteCacheKey(country, postal string, items []fulfillment.OrderItem) string {
	parts := []string{strings.ToUpper(country), strings.ToUpper(postal)}
	itemParts := make([]string, len(items))
	for i, item := range items {
		itemParts[i] = fmt.Sprintf("%s,%s,%d", item.StoreProductID, item.StoreProductVariantID, item.Quantity)
	}
	sort.Strings(itemParts)
	parts = append(parts, strings.Join(itemParts, ";"))
	return strings.Join(parts, "|")
}
