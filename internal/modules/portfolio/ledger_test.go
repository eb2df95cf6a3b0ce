package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acalderon/cartera/internal/domain"
)

func txn(id int64, kind domain.TxnKind, date string, price, qty float64) domain.Transaction {
	d, _ := time.Parse(domain.DateLayout, date)
	return domain.Transaction{
		ID:        id,
		Ticker:    "NAFTRAC.MX",
		AssetKind: domain.AssetStock,
		Market:    domain.MarketMX,
		Kind:      kind,
		Date:      d,
		Price:     price,
		Quantity:  qty,
	}
}

func TestReplayAveragesBuys(t *testing.T) {
	held, basis, err := Replay([]domain.Transaction{
		txn(1, domain.TxnBuy, "2024-01-10", 100, 10),
		txn(2, domain.TxnBuy, "2024-02-10", 200, 10),
	})
	require.NoError(t, err)

	assert.True(t, held.Equal(decimal.NewFromInt(20)), "held = %s", held)
	assert.True(t, basis.Equal(decimal.NewFromInt(3000)), "basis = %s", basis)
	avg := basis.Div(held)
	assert.True(t, avg.Equal(decimal.NewFromInt(150)), "avg = %s", avg)
}

func TestReplaySellReducesBasisProportionally(t *testing.T) {
	// Buy 10 @ 50, sell 4: 40% of the basis goes with the sale.
	held, basis, err := Replay([]domain.Transaction{
		txn(1, domain.TxnBuy, "2024-01-10", 50, 10),
		txn(2, domain.TxnSell, "2024-03-10", 70, 4),
	})
	require.NoError(t, err)

	assert.True(t, held.Equal(decimal.NewFromInt(6)), "held = %s", held)
	assert.True(t, basis.Equal(decimal.NewFromInt(300)), "basis = %s", basis)
}

func TestReplaySellPriceDoesNotChangeBasis(t *testing.T) {
	cheap, basisCheap, err := Replay([]domain.Transaction{
		txn(1, domain.TxnBuy, "2024-01-10", 50, 10),
		txn(2, domain.TxnSell, "2024-03-10", 1, 4),
	})
	require.NoError(t, err)
	dear, basisDear, err := Replay([]domain.Transaction{
		txn(1, domain.TxnBuy, "2024-01-10", 50, 10),
		txn(2, domain.TxnSell, "2024-03-10", 9999, 4),
	})
	require.NoError(t, err)

	assert.True(t, cheap.Equal(dear))
	assert.True(t, basisCheap.Equal(basisDear), "remaining basis only depends on quantity sold")
}

func TestReplayRejectsOversell(t *testing.T) {
	_, _, err := Replay([]domain.Transaction{
		txn(1, domain.TxnBuy, "2024-01-10", 50, 3),
		txn(2, domain.TxnSell, "2024-03-10", 70, 5),
	})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestReplayRejectsSellBeforeBuy(t *testing.T) {
	// Chronological order decides, not insertion order.
	_, _, err := Replay([]domain.Transaction{
		txn(2, domain.TxnBuy, "2024-03-10", 50, 10),
		txn(1, domain.TxnSell, "2024-01-10", 50, 1),
	})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestReplaySameDayOrderedByID(t *testing.T) {
	held, _, err := Replay([]domain.Transaction{
		txn(2, domain.TxnSell, "2024-01-10", 50, 10),
		txn(1, domain.TxnBuy, "2024-01-10", 50, 10),
	})
	require.NoError(t, err)
	assert.True(t, held.IsZero())
}

func TestReplayFullDisposal(t *testing.T) {
	held, basis, err := Replay([]domain.Transaction{
		txn(1, domain.TxnBuy, "2024-01-10", 50, 10),
		txn(2, domain.TxnSell, "2024-03-10", 70, 10),
	})
	require.NoError(t, err)
	assert.True(t, held.IsZero())
	assert.True(t, basis.IsZero())
}

func TestReplayFractionalCryptoQuantities(t *testing.T) {
	held, basis, err := Replay([]domain.Transaction{
		txn(1, domain.TxnBuy, "2024-01-10", 1000000, 0.00000001),
		txn(2, domain.TxnBuy, "2024-02-10", 1000000, 0.00000002),
	})
	require.NoError(t, err)

	assert.True(t, held.Equal(decimal.RequireFromString("0.00000003")), "held = %s", held)
	assert.True(t, basis.Equal(decimal.RequireFromString("0.03")), "basis = %s", basis)
}

func TestHeldQuantity(t *testing.T) {
	held, err := HeldQuantity([]domain.Transaction{
		txn(1, domain.TxnBuy, "2024-01-10", 50, 10),
		txn(2, domain.TxnSell, "2024-03-10", 70, 4),
	})
	require.NoError(t, err)
	assert.True(t, held.Equal(decimal.NewFromInt(6)))
}
