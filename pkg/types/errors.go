package types

import "errors"

// Error kinds from spec.md §7. UnsupportedPair and FilterRejection are
// recovered locally by the planner/compiler (the offending transfer or
// order is dropped); ExchangeError and InvariantViolation propagate
// and abort the in-flight rebalance.
var (
	// ErrUnsupportedPair means the planner produced a transfer with no
	// listed product on either leg.
	ErrUnsupportedPair = errors.New("rebalancer: unsupported trading pair")

	// ErrFilterRejection means a compiled order failed the exchange's
	// min/max/step/notional filters and was dropped as dust.
	ErrFilterRejection = errors.New("rebalancer: order rejected by symbol filters")

	// ErrExchangeError wraps a transport/auth/rate-limit failure from
	// the exchange collaborator.
	ErrExchangeError = errors.New("rebalancer: exchange error")

	// ErrInvariantViolation marks a programmer error: weights that do
	// not sum to one after normalization, or a non-finite value.
	ErrInvariantViolation = errors.New("rebalancer: invariant violation")
)
