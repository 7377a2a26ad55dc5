package types

import (
	"fmt"
	"strings"
)

// Product is a listed exchange pair in COMMODITY_BASE order, e.g.
// "ETH_BTC" lists ETH as the commodity traded against a BTC base.
type Product string

// NewProduct composes a product symbol from its two legs.
func NewProduct(commodity, base Currency) Product {
	return Product(string(commodity) + "_" + string(base))
}

// Split returns the product's commodity and base currency. It does not
// validate that the product is actually listed on any exchange.
func (p Product) Split() (commodity, base Currency, err error) {
	parts := strings.SplitN(string(p), "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("types: malformed product %q", p)
	}
	return Currency(parts[0]), Currency(parts[1]), nil
}

// Commodity returns the product's commodity leg, ignoring malformed input.
func (p Product) Commodity() Currency {
	c, _, _ := p.Split()
	return c
}

// Base returns the product's base leg, ignoring malformed input.
func (p Product) Base() Currency {
	_, b, _ := p.Split()
	return b
}

// Inverse returns the product with its legs swapped (ETH_BTC -> BTC_ETH).
func (p Product) Inverse() Product {
	commodity, base, err := p.Split()
	if err != nil {
		return p
	}
	return NewProduct(base, commodity)
}

// ProductSet supports listed-pair membership checks, e.g. when the
// order compiler asks "is A_B or B_A listed".
type ProductSet map[Product]struct{}

// NewProductSet builds a set from a slice of products.
func NewProductSet(products ...Product) ProductSet {
	set := make(ProductSet, len(products))
	for _, p := range products {
		set[p] = struct{}{}
	}
	return set
}

// Contains reports whether p is listed.
func (s ProductSet) Contains(p Product) bool {
	_, ok := s[p]
	return ok
}
