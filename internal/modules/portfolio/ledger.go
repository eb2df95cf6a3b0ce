// Package portfolio computes consolidated positions, gain/loss and
// aggregate views from the raw transaction records.
package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/acalderon/cartera/internal/domain"
)

// Replay walks one instrument's transactions in date order and returns the
// held quantity and its remaining cost basis.
//
// Cost accounting is average-cost: a sell reduces the basis proportionally
// to the fraction of the holding disposed, not FIFO. The two methods are not
// numerically interchangeable, so this must not be switched silently.
//
// A sell that would take the held quantity negative is an error: the whole
// set is rejected rather than clamped.
func Replay(txns []domain.Transaction) (held, costBasis decimal.Decimal, err error) {
	sorted := make([]domain.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].ID < sorted[j].ID
	})

	for _, txn := range sorted {
		qty := decimal.NewFromFloat(txn.Quantity)
		price := decimal.NewFromFloat(txn.Price)

		switch txn.Kind {
		case domain.TxnSell:
			if qty.GreaterThan(held) {
				return decimal.Zero, decimal.Zero, domain.Validationf(
					"cannot sell %s of %s on %s: only %s held",
					qty.String(), txn.Ticker, txn.DateString(), held.String(),
				)
			}
			// Proportional basis reduction: selling k of n units
			// removes k/n of the remaining cost.
			remaining := held.Sub(qty)
			if held.IsPositive() {
				costBasis = costBasis.Mul(remaining).Div(held)
			}
			held = remaining
		default:
			held = held.Add(qty)
			costBasis = costBasis.Add(qty.Mul(price))
		}
	}

	return held, costBasis, nil
}

// HeldQuantity returns the final held quantity for one instrument's
// transactions, or a validation error if any prefix goes negative.
func HeldQuantity(txns []domain.Transaction) (decimal.Decimal, error) {
	held, _, err := Replay(txns)
	return held, err
}
