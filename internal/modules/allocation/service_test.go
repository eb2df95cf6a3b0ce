package allocation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acalderon/cartera/internal/database"
	"github.com/acalderon/cartera/internal/domain"
	"github.com/acalderon/cartera/internal/modules/portfolio"
)

var memCounter int

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	memCounter++
	db, err := database.New(fmt.Sprintf("file:allocation_test_%d?mode=memory&cache=shared", memCounter))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type fakeTxnSource struct {
	txns []domain.Transaction
}

func (f *fakeTxnSource) ListChronological() ([]domain.Transaction, error) {
	return f.txns, nil
}

type fakePrices struct {
	current map[string]float64
}

func (f *fakePrices) CurrentPrice(ctx context.Context, ticker string, kind domain.AssetKind) *float64 {
	if price, ok := f.current[ticker]; ok {
		return &price
	}
	return nil
}

func (f *fakePrices) HistoricalPrice(ctx context.Context, ticker string, kind domain.AssetKind, date time.Time) *float64 {
	return nil
}

func classTxn(id int64, ticker, class string, price, qty float64) domain.Transaction {
	d, _ := time.Parse(domain.DateLayout, "2024-01-10")
	return domain.Transaction{
		ID: id, Ticker: ticker, AssetKind: domain.AssetStock, Market: domain.MarketMX,
		Kind: domain.TxnBuy, Date: d, Price: price, Quantity: qty,
		Currency: "MXN", AssetClass: &class,
	}
}

func newTestService(t *testing.T, txns []domain.Transaction, prices map[string]float64) (*Service, *Repository) {
	t.Helper()
	db := setupTestDB(t)
	repo := NewRepository(db.Conn(), zerolog.Nop())
	require.NoError(t, repo.EnsureDefaults())

	portfolioSvc := portfolio.NewService(&fakeTxnSource{txns: txns}, &fakePrices{current: prices}, zerolog.Nop())
	return NewService(repo, portfolioSvc, zerolog.Nop()), repo
}

func TestReportComputesCurrentVsTarget(t *testing.T) {
	svc, _ := newTestService(t,
		[]domain.Transaction{
			classTxn(1, "NAFTRAC.MX", "acciones_mexico", 100, 6),
			classTxn(2, "FUNO11.MX", "fibras", 20, 20),
		},
		map[string]float64{"NAFTRAC.MX": 100, "FUNO11.MX": 20},
	)

	report, err := svc.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1000.0, report.TotalValue)
	require.Len(t, report.Classes, len(Classes))

	byCode := map[string]ClassAllocation{}
	for _, c := range report.Classes {
		byCode[c.AssetClass] = c
	}

	mx := byCode["acciones_mexico"]
	assert.Equal(t, 60.0, mx.CurrentPct)
	assert.Equal(t, 15.0, mx.TargetPct)
	assert.Equal(t, 45.0, mx.DiffPct)

	fibras := byCode["fibras"]
	assert.Equal(t, 40.0, fibras.CurrentPct)
	assert.Equal(t, 20.0, fibras.DiffPct)

	usa := byCode["acciones_usa"]
	assert.Equal(t, 0.0, usa.CurrentPct)
	assert.Equal(t, -30.0, usa.DiffPct)
}

func TestReportIncludesUnclassifiedRow(t *testing.T) {
	txn := classTxn(1, "MYSTERY.MX", "x", 10, 10)
	txn.AssetClass = nil

	svc, _ := newTestService(t, []domain.Transaction{txn}, map[string]float64{"MYSTERY.MX": 10})

	report, err := svc.Report(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Classes, len(Classes)+1)

	last := report.Classes[len(report.Classes)-1]
	assert.Equal(t, Unclassified, last.AssetClass)
	assert.Equal(t, 100.0, last.CurrentPct)
}

func TestRecommendationsThresholdAndSeverity(t *testing.T) {
	svc, _ := newTestService(t,
		[]domain.Transaction{
			classTxn(1, "NAFTRAC.MX", "acciones_mexico", 100, 6),
			classTxn(2, "FUNO11.MX", "fibras", 20, 20),
		},
		map[string]float64{"NAFTRAC.MX": 100, "FUNO11.MX": 20},
	)

	recs, err := svc.Recommendations(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	// Largest deviation first: acciones_mexico at +45 points.
	assert.Equal(t, "acciones_mexico", recs[0].AssetClass)
	assert.Equal(t, "reduce", recs[0].Action)
	assert.Equal(t, "high", recs[0].Severity)
	assert.Equal(t, 450.0, recs[0].Amount)

	for _, rec := range recs {
		if rec.AssetClass == "acciones_usa" {
			assert.Equal(t, "increase", rec.Action)
		}
		// cetes is 5 points under target, exactly at the threshold.
		assert.NotEqual(t, "cetes", rec.AssetClass)
	}
}

func TestRecommendationsBalancedPortfolioIsQuiet(t *testing.T) {
	// One bucket at exactly its target and nothing else priced: current
	// is 100% there, so recommendations will fire. Use an empty portfolio
	// instead: no value, no deviation, no noise.
	svc, _ := newTestService(t, nil, nil)

	recs, err := svc.Recommendations(context.Background())
	require.NoError(t, err)
	for _, rec := range recs {
		assert.Equal(t, "increase", rec.Action, "an empty portfolio can only be underweight")
		assert.Equal(t, 0.0, rec.Amount)
	}
}

func TestSuggestInvestmentFavoursDeficits(t *testing.T) {
	svc, _ := newTestService(t,
		[]domain.Transaction{
			classTxn(1, "NAFTRAC.MX", "acciones_mexico", 100, 9),
		},
		map[string]float64{"NAFTRAC.MX": 100},
	)

	suggestions, err := svc.SuggestInvestment(context.Background(), 1000)
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)

	total := 0.0
	for _, sg := range suggestions {
		assert.Greater(t, sg.SuggestedAmount, 0.0)
		assert.NotEqual(t, "acciones_mexico", sg.AssetClass, "overweight bucket gets nothing")
		total += sg.SuggestedAmount
	}
	assert.InDelta(t, 1000.0, total, 0.5)

	// Yields biggest deficit first; acciones_usa holds the largest target.
	assert.Equal(t, "acciones_usa", suggestions[0].AssetClass)
}

func TestSuggestInvestmentRejectsNonPositive(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	_, err := svc.SuggestInvestment(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestRepositoryTargetRoundTrip(t *testing.T) {
	_, repo := newTestService(t, nil, nil)

	require.NoError(t, repo.SetTarget("fibras", 25))
	targets, err := repo.GetTargets()
	require.NoError(t, err)
	assert.Equal(t, 25.0, targets["fibras"])
	assert.Equal(t, 30.0, targets["acciones_usa"], "other targets keep their defaults")
}

func TestRepositoryRejectsBadTargets(t *testing.T) {
	_, repo := newTestService(t, nil, nil)

	assert.Error(t, repo.SetTarget("not_a_class", 10))
	assert.Error(t, repo.SetTarget("fibras", -1))
	assert.Error(t, repo.SetTarget("fibras", 101))
}
