package dividends

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acalderon/cartera/internal/clients/yahoo"
	"github.com/acalderon/cartera/internal/database"
	"github.com/acalderon/cartera/internal/domain"
	"github.com/acalderon/cartera/internal/modules/portfolio"
)

var memCounter int

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	memCounter++
	db, err := database.New(fmt.Sprintf("file:dividends_test_%d?mode=memory&cache=shared", memCounter))
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

type fakeYields struct {
	yields map[string]float64
}

func (f *fakeYields) DividendYield(ctx context.Context, symbol string) (float64, error) {
	if y, ok := f.yields[symbol]; ok {
		return y, nil
	}
	return 0, fmt.Errorf("no yield data for %s", symbol)
}

type fakeFeed struct {
	events map[string][]yahoo.DividendEvent
	err    error
}

func (f *fakeFeed) DividendEvents(ctx context.Context, symbol string, from, to time.Time) ([]yahoo.DividendEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events[symbol], nil
}

func holdingTxn(id int64, ticker string, kind domain.AssetKind, price, qty float64) domain.Transaction {
	d, _ := time.Parse(domain.DateLayout, "2024-01-10")
	market := domain.MarketMX
	if kind == domain.AssetCrypto {
		market = domain.MarketCrypto
	}
	return domain.Transaction{
		ID: id, Ticker: ticker, AssetKind: kind, Market: market,
		Kind: domain.TxnBuy, Date: d, Price: price, Quantity: qty, Currency: "MXN",
	}
}

func newTestService(t *testing.T, txns []domain.Transaction, prices map[string]float64, yields map[string]float64) (*Service, *Repository) {
	t.Helper()
	db := setupTestDB(t)
	repo := NewRepository(db.Conn(), zerolog.Nop())
	portfolioSvc := portfolio.NewService(&fakeTxnSource{txns: txns}, &fakePrices{current: prices}, zerolog.Nop())
	svc := NewService(repo, portfolioSvc, &fakeYields{yields: yields}, "MXN", zerolog.Nop())
	return svc, repo
}

func dividendInput(ticker, date string, net float64) Input {
	return Input{Ticker: ticker, PaymentDate: date, NetAmount: &net}
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc, _ := newTestService(t, nil, nil, nil)

	record, err := svc.Create(dividendInput("funo11.mx", "2025-03-15", 100))
	require.NoError(t, err)
	assert.Equal(t, "FUNO11.MX", record.Ticker)
	assert.Equal(t, domain.DividendCash, record.Type)
	assert.Equal(t, domain.DividendConfirmed, record.Status)
	assert.Equal(t, domain.DividendManual, record.Source)
	assert.Equal(t, "MXN", record.Currency)
	assert.NotZero(t, record.ID)
}

func TestCreateValidationFailures(t *testing.T) {
	svc, _ := newTestService(t, nil, nil, nil)
	net := 100.0
	negative := -1.0

	cases := []struct {
		name  string
		input Input
	}{
		{"missing ticker", Input{PaymentDate: "2025-03-15", NetAmount: &net}},
		{"missing date", Input{Ticker: "FUNO11", NetAmount: &net}},
		{"bad date", Input{Ticker: "FUNO11", PaymentDate: "15/03/2025", NetAmount: &net}},
		{"missing net", Input{Ticker: "FUNO11", PaymentDate: "2025-03-15"}},
		{"negative net", Input{Ticker: "FUNO11", PaymentDate: "2025-03-15", NetAmount: &negative}},
		{"negative gross", Input{Ticker: "FUNO11", PaymentDate: "2025-03-15", NetAmount: &net, GrossAmount: &negative}},
		{"bad type", Input{Ticker: "FUNO11", Type: "royalty", PaymentDate: "2025-03-15", NetAmount: &net}},
		{"bad status", Input{Ticker: "FUNO11", Status: "maybe", PaymentDate: "2025-03-15", NetAmount: &net}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(tc.input)
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestUpdateConfirmsAutoRecords(t *testing.T) {
	svc, repo := newTestService(t, nil, nil, nil)

	gross := 120.0
	auto := &domain.DividendRecord{
		Ticker: "FUNO11.MX", Type: domain.DividendCash,
		PaymentDate: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		GrossAmount: &gross, NetAmount: 120, Currency: "MXN",
		Status: domain.DividendPending, Source: domain.DividendAuto,
	}
	require.NoError(t, repo.Create(auto))

	updated, err := svc.Update(auto.ID, dividendInput("FUNO11.MX", "2025-03-15", 102))
	require.NoError(t, err)
	assert.Equal(t, domain.DividendConfirmed, updated.Status, "editing an auto record confirms it")
	assert.Equal(t, domain.DividendAuto, updated.Source, "the source never changes")
	assert.Equal(t, 102.0, updated.NetAmount)
}

func TestSummaryAggregatesConfirmedOnly(t *testing.T) {
	txns := []domain.Transaction{holdingTxn(1, "FUNO11.MX", domain.AssetStock, 20, 500)}
	svc, _ := newTestService(t, txns, map[string]float64{"FUNO11.MX": 25}, nil)

	_, err := svc.Create(dividendInput("FUNO11.MX", "2025-03-15", 100))
	require.NoError(t, err)
	_, err = svc.Create(dividendInput("NAFTRAC.MX", "2025-06-20", 150))
	require.NoError(t, err)

	pending := dividendInput("FUNO11.MX", "2025-09-15", 999)
	pending.Status = "pending"
	_, err = svc.Create(pending)
	require.NoError(t, err)

	_, err = svc.Create(dividendInput("FUNO11.MX", "2024-12-31", 50)) // previous year
	require.NoError(t, err)

	summary, err := svc.Summary(context.Background(), 2025)
	require.NoError(t, err)

	assert.Equal(t, 2025, summary.Year)
	assert.Equal(t, 250.0, summary.TotalNet)
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, 1, summary.PendingCount)
	assert.Equal(t, 100.0, summary.ByMonth["March"])
	assert.Equal(t, 150.0, summary.ByMonth["June"])
	assert.Equal(t, 100.0, summary.ByTicker["FUNO11.MX"])
	assert.Equal(t, 150.0, summary.ByTicker["NAFTRAC.MX"])
	assert.Equal(t, 250.0, summary.ByType["dividend"])

	// Portfolio value 500 * 25 = 12500; realized yield 250/12500 = 2%.
	require.NotNil(t, summary.RealizedYield)
	assert.Equal(t, 2.0, *summary.RealizedYield)
}

func TestSummaryYieldNilWithoutPortfolioValue(t *testing.T) {
	txns := []domain.Transaction{holdingTxn(1, "FUNO11.MX", domain.AssetStock, 20, 500)}
	svc, _ := newTestService(t, txns, nil, nil) // no prices resolvable

	_, err := svc.Create(dividendInput("FUNO11.MX", "2025-03-15", 100))
	require.NoError(t, err)

	summary, err := svc.Summary(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, 100.0, summary.TotalNet)
	assert.Nil(t, summary.RealizedYield)
}

func TestExpectedProjectsFromYields(t *testing.T) {
	txns := []domain.Transaction{
		holdingTxn(1, "FUNO11.MX", domain.AssetStock, 20, 500),
		holdingTxn(2, "NAFTRAC.MX", domain.AssetStock, 100, 10),
		holdingTxn(3, "BTC", domain.AssetCrypto, 1000000, 0.01),
	}
	prices := map[string]float64{"FUNO11.MX": 20, "NAFTRAC.MX": 100, "BTC": 1200000}
	yields := map[string]float64{"FUNO11.MX": 0.08}

	svc, _ := newTestService(t, txns, prices, yields)

	expected, err := svc.Expected(context.Background())
	require.NoError(t, err)

	// Crypto positions are excluded from the projection.
	require.Len(t, expected.Instruments, 2)
	assert.Equal(t, 800.0, expected.TotalExpected, "10000 at 8 percent")

	byTicker := map[string]ExpectedInstrument{}
	for _, inst := range expected.Instruments {
		byTicker[inst.Ticker] = inst
	}
	funo := byTicker["FUNO11.MX"]
	require.NotNil(t, funo.YieldPct)
	assert.Equal(t, 8.0, *funo.YieldPct)

	naftrac := byTicker["NAFTRAC.MX"]
	assert.Nil(t, naftrac.YieldPct, "instruments without yield data still appear")
	assert.Nil(t, naftrac.ExpectedAnnual)

	// 800 over the 11000 of priced equity value.
	require.NotNil(t, expected.PortfolioPct)
	assert.InDelta(t, 7.27, *expected.PortfolioPct, 0.01)
}

func TestSyncFromFeedCreatesPendingRecords(t *testing.T) {
	txns := []domain.Transaction{
		holdingTxn(1, "FUNO11.MX", domain.AssetStock, 20, 500),
		holdingTxn(2, "BTC", domain.AssetCrypto, 1000000, 0.01),
	}
	svc, repo := newTestService(t, txns, map[string]float64{"FUNO11.MX": 20, "BTC": 1100000}, nil)

	feed := &fakeFeed{events: map[string][]yahoo.DividendEvent{
		"FUNO11.MX": {
			{Date: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), Amount: 0.50},
			{Date: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), Amount: 0.55},
		},
	}}

	result, err := svc.SyncFromFeed(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TickersChecked, "crypto positions are not queried")
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Skipped)

	records, err := repo.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, record := range records {
		assert.Equal(t, domain.DividendPending, record.Status)
		assert.Equal(t, domain.DividendAuto, record.Source)
		require.NotNil(t, record.GrossAmount)
	}

	// 0.50 per share times 500 held.
	newest := records[0]
	assert.Equal(t, "2025-06-15", newest.PaymentDate.Format(domain.DateLayout))
	assert.Equal(t, 275.0, newest.NetAmount)
}

func TestSyncFromFeedKeepsQuoteCurrency(t *testing.T) {
	txns := []domain.Transaction{holdingTxn(1, "VOO.MX", domain.AssetStock, 8000, 3)}
	svc, repo := newTestService(t, txns, map[string]float64{"VOO.MX": 8200}, nil)

	feed := &fakeFeed{events: map[string][]yahoo.DividendEvent{
		"VOO.MX": {
			{Date: time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC), Amount: 1.78, Currency: "USD"},
			{Date: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), Amount: 1.81},
		},
	}}

	_, err := svc.SyncFromFeed(context.Background(), feed)
	require.NoError(t, err)

	records, err := repo.List()
	require.NoError(t, err)
	require.Len(t, records, 2)

	byDate := map[string]domain.DividendRecord{}
	for _, record := range records {
		byDate[record.PaymentDate.Format(domain.DateLayout)] = record
	}
	assert.Equal(t, "USD", byDate["2025-03-28"].Currency, "feed amounts stay in the quote currency")
	assert.Equal(t, "MXN", byDate["2025-06-30"].Currency, "settlement currency when the feed omits one")
}

func TestSyncFromFeedSkipsDuplicates(t *testing.T) {
	txns := []domain.Transaction{holdingTxn(1, "FUNO11.MX", domain.AssetStock, 20, 500)}
	svc, _ := newTestService(t, txns, map[string]float64{"FUNO11.MX": 20}, nil)

	feed := &fakeFeed{events: map[string][]yahoo.DividendEvent{
		"FUNO11.MX": {{Date: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), Amount: 0.50}},
	}}

	first, err := svc.SyncFromFeed(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	second, err := svc.SyncFromFeed(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Skipped)
}

func TestSyncFromFeedToleratesProviderFailure(t *testing.T) {
	txns := []domain.Transaction{holdingTxn(1, "FUNO11.MX", domain.AssetStock, 20, 500)}
	svc, _ := newTestService(t, txns, map[string]float64{"FUNO11.MX": 20}, nil)

	result, err := svc.SyncFromFeed(context.Background(), &fakeFeed{err: fmt.Errorf("feed down")})
	require.NoError(t, err, "a failing feed must not abort the pass")
	assert.Equal(t, 0, result.Created)
}

func TestRepositoryRoundTrip(t *testing.T) {
	_, repo := newTestService(t, nil, nil, nil)

	gross := 120.0
	notes := "retencion 10%"
	record := &domain.DividendRecord{
		Ticker: "FUNO11.MX", Type: domain.DividendCash,
		PaymentDate: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		GrossAmount: &gross, NetAmount: 108, Currency: "MXN",
		Status: domain.DividendConfirmed, Source: domain.DividendManual,
		Notes: &notes,
	}
	require.NoError(t, repo.Create(record))

	got, err := repo.GetByID(record.ID)
	require.NoError(t, err)
	assert.Equal(t, "FUNO11.MX", got.Ticker)
	assert.Equal(t, 108.0, got.NetAmount)
	require.NotNil(t, got.GrossAmount)
	assert.Equal(t, 120.0, *got.GrossAmount)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "retencion 10%", *got.Notes)
	assert.Equal(t, "2025-03-15", got.PaymentDate.Format(domain.DateLayout))

	require.NoError(t, repo.Delete(record.ID))
	_, err = repo.GetByID(record.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
