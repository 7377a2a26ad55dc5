package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderBook is a snapshot of one side or both sides of a listed
// product, per spec.md §3: either a single mid price, or an
// ask/bid wall pair.
type OrderBook struct {
	Product Product

	// TwoSided is true when both Ask and Bid are populated (a wall
	// pair); false when only Price (a mid-only quote) is set.
	TwoSided bool

	Price decimal.Decimal // set iff !TwoSided
	Ask   decimal.Decimal // set iff TwoSided
	Bid   decimal.Decimal // set iff TwoSided
}

// NewMidOrderBook builds a mid-price-only book.
func NewMidOrderBook(product Product, price decimal.Decimal) OrderBook {
	return OrderBook{Product: product, Price: price}
}

// NewWalledOrderBook builds a book with distinct ask/bid walls.
func NewWalledOrderBook(product Product, ask, bid decimal.Decimal) OrderBook {
	return OrderBook{Product: product, TwoSided: true, Ask: ask, Bid: bid}
}

// Mid returns the book's mid price: the geometric mean of ask and bid
// when both sides exist, else the quoted mid price.
func (b OrderBook) Mid() decimal.Decimal {
	if !b.TwoSided {
		return b.Price
	}
	return Sqrt(b.Ask.Mul(b.Bid))
}

// Inverse returns the book for the inverse product (B_A from A_B),
// with prices inverted.
func (b OrderBook) Inverse() OrderBook {
	if !b.TwoSided {
		return NewMidOrderBook(b.Product.Inverse(), decimal.NewFromInt(1).Div(b.Price))
	}
	one := decimal.NewFromInt(1)
	return NewWalledOrderBook(b.Product.Inverse(), one.Div(b.Bid), one.Div(b.Ask))
}

// Validate checks the book's internal consistency.
func (b OrderBook) Validate() error {
	if b.TwoSided {
		if b.Ask.IsZero() || b.Bid.IsZero() {
			return fmt.Errorf("%w: %s has a zero-valued wall", ErrInvariantViolation, b.Product)
		}
		if b.Ask.LessThan(b.Bid) {
			return fmt.Errorf("%w: %s ask %s below bid %s", ErrInvariantViolation, b.Product, b.Ask, b.Bid)
		}
		return nil
	}
	if b.Price.Sign() <= 0 {
		return fmt.Errorf("%w: %s has a non-positive mid price", ErrInvariantViolation, b.Product)
	}
	return nil
}
