package product

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is one of the three denominations every product is priced in.
type Currency string

const (
	USD   Currency = "usd"
	Naira Currency = "naira"
	GBP   Currency = "gbp"
)

var ErrUnknownCurrency = errors.New("unknown currency")

// Currencies lists the supported currency tags in display order.
var Currencies = []Currency{USD, Naira, GBP}

func (c Currency) Valid() bool {
	switch c {
	case USD, Naira, GBP:
		return true
	}
	return false
}

// ParseCurrency accepts the tag case-insensitively. "ngn" is treated as naira.
func ParseCurrency(s string) (Currency, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "ngn" {
		return Naira, nil
	}
	c := Currency(v)
	if !c.Valid() {
		return "", ErrUnknownCurrency
	}
	return c, nil
}

// Price carries the pre-localized amount for every currency. Amounts are never
// converted between currencies.
type Price struct {
	USD   decimal.Decimal `json:"usd"`
	Naira decimal.Decimal `json:"naira"`
	GBP   decimal.Decimal `json:"gbp"`
}

// In returns the amount for the given currency, zero for an unknown tag.
func (p Price) In(c Currency) decimal.Decimal {
	switch c {
	case USD:
		return p.USD
	case Naira:
		return p.Naira
	case GBP:
		return p.GBP
	}
	return decimal.Zero
}

// Product is a catalog entry. The cart only reads ID, Name, Price and InStock.
type Product struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Price    Price  `json:"price"`
	Image    string `json:"image"`
	Category string `json:"category"`
	InStock  bool   `json:"inStock"`
}

func newPrice(usd, naira, gbp string) Price {
	return Price{
		USD:   decimal.RequireFromString(usd),
		Naira: decimal.RequireFromString(naira),
		GBP:   decimal.RequireFromString(gbp),
	}
}

// DefaultCatalog is the seed used by the in-memory repository.
func DefaultCatalog() []Product {
	return []Product{
		{ID: 1, Name: "Blossom Yoga Mat", Price: newPrice("45.00", "72000", "36.00"), Image: "/images/products/yoga-mat.jpg", Category: "Equipment", InStock: true},
		{ID: 2, Name: "Resistance Band Set", Price: newPrice("25.00", "40000", "20.00"), Image: "/images/products/resistance-bands.jpg", Category: "Equipment", InStock: true},
		{ID: 3, Name: "Adjustable Dumbbells", Price: newPrice("199.99", "320000", "159.99"), Image: "/images/products/dumbbells.jpg", Category: "Equipment", InStock: false},
		{ID: 4, Name: "Blossom Performance Leggings", Price: newPrice("55.00", "88000", "44.00"), Image: "/images/products/leggings.jpg", Category: "Apparel", InStock: true},
		{ID: 5, Name: "Seamless Sports Bra", Price: newPrice("35.00", "56000", "28.00"), Image: "/images/products/sports-bra.jpg", Category: "Apparel", InStock: true},
		{ID: 6, Name: "Plant Protein Blend", Price: newPrice("39.50", "63200", "31.60"), Image: "/images/products/protein.jpg", Category: "Nutrition", InStock: true},
		{ID: 7, Name: "Insulated Water Bottle", Price: newPrice("18.00", "28800", "14.40"), Image: "/images/products/bottle.jpg", Category: "Accessories", InStock: true},
		{ID: 8, Name: "12-Week Coaching Program", Price: newPrice("1200.00", "1920000", "960.00"), Image: "/images/products/coaching.jpg", Category: "Programs", InStock: true},
	}
}
