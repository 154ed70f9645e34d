package domain

// ProductKind is the coarse shipping classification of a product. It drives
// rate table lookups, not presentation.
type ProductKind string

const (
	KindTee     ProductKind = "tee"
	KindHoodie  ProductKind = "hoodie"
	KindPrint   ProductKind = "print"
	KindBook    ProductKind = "book"
	KindTote    ProductKind = "tote"
	KindDefault ProductKind = "default"
)

// RegionKey buckets destination countries into shipping cost geographies.
type RegionKey string

const (
	RegionUS    RegionKey = "us"
	RegionEU    RegionKey = "eu"
	RegionUK    RegionKey = "uk"
	RegionCA    RegionKey = "ca"
	RegionAU    RegionKey = "au"
	RegionNZ    RegionKey = "nz"
	RegionSG    RegionKey = "sg"
	RegionJP    RegionKey = "jp"
	RegionBR    RegionKey = "br"
	RegionWorld RegionKey = "world"
)

// CartLine is a single cart entry. Identity is (ProductID, VariantID); the
// aggregate guarantees at most one line per identity key.
type CartLine struct {
	ProductID    string
	VariantID    string
	Name         string
	VariantTitle string
	UnitAmount   int64
	Currency     string
	Quantity     int
	Kind         ProductKind
}

// Key returns the identity key used for merge-on-add semantics.
func (l CartLine) Key() string {
	return l.ProductID + "|" + l.VariantID
}

// ShippingQuote is a derived flat-rate quote. It is superseded, never merged,
// whenever the cart or destination changes.
type ShippingQuote struct {
	AmountMinorUnits int64
	CountryCode      string
	Label            string
}

// RateEntry holds the flat shipping rates for one (kind, region) pair, in
// minor currency units.
type RateEntry struct {
	FirstUnitCents      int64
	AdditionalUnitCents int64
}

// Address is the canonical shipping destination shape used across quote and
// fulfillment calls.
type Address struct {
	FirstName    string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
}

// Product is the canonical catalog product mapped from the upstream store
// listing at the boundary.
type Product struct {
	ID         string
	Name       string
	Status     string
	Currency   string
	UnitAmount int64
	Kind       ProductKind
	Tags       []string
	Variants   []ProductVariant
}

// ProductVariant is a sellable variation of a product.
type ProductVariant struct {
	ID         string
	Title      string
	UnitAmount int64
	Currency   string
}
