package rebalance

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/veltrade/rebalancer/pkg/types"
)

// StatisticsRecord is one row of the post-trade accounting the
// statistics builder produces for every fill: {user, pair,
// mid_market_price, average_exec_price, volume, fee, action}
// (spec.md §4.G, §6).
type StatisticsRecord struct {
	User             string
	Pair             types.Product
	MidMarketPrice   decimal.Decimal
	AverageExecPrice decimal.Decimal
	Volume           decimal.Decimal
	Fee              decimal.Decimal
	Action           string
}

// CreateOrderStatistics builds one StatisticsRecord per fill report:
// Volume is the trade's value in base-currency units plus the
// commission paid (both already denominated in base by the caller),
// Fee is the commission in base, MidMarketPrice and AverageExecPrice
// are carried straight through from the report, and Action is the
// lowercased side.
func CreateOrderStatistics(reports []types.FillReport, user string) []StatisticsRecord {
	records := make([]StatisticsRecord, 0, len(reports))
	for _, r := range reports {
		volume := r.ExecutedQuantity.Mul(r.MeanPrice).Add(r.CommissionInBase)
		records = append(records, StatisticsRecord{
			User:             user,
			Pair:             r.Product,
			MidMarketPrice:   r.MidMarketPrice,
			AverageExecPrice: r.MeanPrice,
			Volume:           volume,
			Fee:              r.CommissionInBase,
			Action:           strings.ToLower(string(r.Side)),
		})
	}
	return records
}
