package portfolio

import "github.com/acalderon/cartera/internal/domain"

// Position is the derived aggregation of all transactions sharing a ticker.
// It is recomputed on every read and never persisted. Pointer fields are nil
// when no current price could be resolved.
type Position struct {
	Ticker       string           `json:"ticker"`
	AssetKind    domain.AssetKind `json:"asset_kind"`
	Market       domain.Market    `json:"market"`
	AssetClass   *string          `json:"asset_class,omitempty"`
	Quantity     float64          `json:"total_quantity"`
	AvgCost      float64          `json:"avg_purchase_price"`
	CurrentPrice *float64         `json:"current_price"`
	Invested     float64          `json:"total_invested"`
	CurrentValue *float64         `json:"current_value"`
	GainLoss     *float64         `json:"gain_loss"`
	GainLossPct  *float64         `json:"gain_loss_percent"`
	WeightPct    *float64         `json:"weight_percent"`
	Transactions int              `json:"num_transactions"`
}

// Totals aggregates the whole portfolio. Positions without a resolvable
// price are excluded from the current-value sum but still counted in the
// invested sum; MissingPrices reports how many were excluded.
type Totals struct {
	TotalInvested     float64 `json:"total_invested"`
	TotalCurrentValue float64 `json:"total_current_value"`
	TotalGainLoss     float64 `json:"total_gain_loss"`
	TotalGainLossPct  float64 `json:"total_gain_loss_percent"`
	NumPositions      int     `json:"num_positions"`
	NumTransactions   int     `json:"num_transactions"`
	MissingPrices     int     `json:"missing_prices"`
}

// Summary is the consolidated valuation report.
type Summary struct {
	Positions []Position `json:"positions"`
	Totals    Totals     `json:"totals"`
}

// GroupBreakdown aggregates positions by custodian or allocation bucket.
type GroupBreakdown struct {
	Group         string   `json:"group"`
	Invested      float64  `json:"total_invested"`
	CurrentValue  float64  `json:"total_current_value"`
	GainLoss      float64  `json:"gain_loss"`
	WeightPct     *float64 `json:"weight_percent"`
	Positions     int      `json:"num_positions"`
	MissingPrices int      `json:"missing_prices"`
}

// Evolution is a date-sampled series of total portfolio value for charting.
type Evolution struct {
	Dates  []string  `json:"dates"`
	Values []float64 `json:"values"`
}
