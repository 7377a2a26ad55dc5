package types

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// sqrtPrecision is the working precision (in bits) used for the
// big.Float intermediate in Sqrt. shopspring/decimal has no
// native Sqrt, and none of the other pack dependencies expose a
// decimal-preserving square root, so this falls back to math/big
// rather than decimal.Decimal.InexactFloat64 — it keeps the mid-price
// and spread-fee computations (financial math, not graph weights)
// off binary float64 entirely.
const sqrtPrecision = 200

// Sqrt returns the square root of a non-negative decimal, rounded to
// 18 places. Exported for callers outside this package that need the
// same fallback, e.g. spread-to-fee conversion.
func Sqrt(d decimal.Decimal) decimal.Decimal {
	if d.Sign() <= 0 {
		return decimal.Zero
	}
	bf := new(big.Float).SetPrec(sqrtPrecision)
	bf.SetString(d.String())
	bf.Sqrt(bf)
	return decimal.RequireFromString(bf.Text('f', 24)).Round(18)
}
