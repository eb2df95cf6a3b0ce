package portfolio

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/acalderon/cartera/internal/domain"
	"github.com/acalderon/cartera/internal/pricing"
)

// PriceSource resolves instrument prices; nil means unknown.
type PriceSource interface {
	CurrentPrice(ctx context.Context, ticker string, kind domain.AssetKind) *float64
	HistoricalPrice(ctx context.Context, ticker string, kind domain.AssetKind, date time.Time) *float64
}

// TransactionSource provides the transaction records to aggregate.
type TransactionSource interface {
	ListChronological() ([]domain.Transaction, error)
}

// Service is the portfolio valuation engine.
type Service struct {
	txns   TransactionSource
	prices PriceSource
	log    zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(txns TransactionSource, prices PriceSource, log zerolog.Logger) *Service {
	return &Service{
		txns:   txns,
		prices: prices,
		log:    log.With().Str("service", "portfolio").Logger(),
	}
}

// Summary builds the consolidated valuation report over all transactions.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	txns, err := s.txns.ListChronological()
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return s.Summarize(ctx, txns)
}

// Summarize groups transactions by ticker, computes each position and the
// portfolio totals. It is deterministic for a given transaction set and
// price snapshot, so re-running it yields identical output.
func (s *Service) Summarize(ctx context.Context, txns []domain.Transaction) (*Summary, error) {
	groups := groupByTicker(txns)

	positions := make([]Position, 0, len(groups))
	totalInvested := 0.0
	totalCurrent := 0.0
	missing := 0

	for _, ticker := range sortedKeys(groups) {
		position, err := s.buildPosition(ctx, ticker, groups[ticker])
		if err != nil {
			return nil, err
		}
		if position == nil {
			continue // fully disposed
		}

		totalInvested += position.Invested
		if position.CurrentValue != nil {
			totalCurrent += *position.CurrentValue
		} else {
			missing++
		}
		positions = append(positions, *position)
	}

	// Weights need the full current-value sum, so fill them afterwards.
	if totalCurrent > 0 {
		for i := range positions {
			if positions[i].CurrentValue != nil {
				w := round2(*positions[i].CurrentValue / totalCurrent * 100)
				positions[i].WeightPct = &w
			}
		}
	}

	sort.Slice(positions, func(i, j int) bool {
		wi, wj := 0.0, 0.0
		if positions[i].WeightPct != nil {
			wi = *positions[i].WeightPct
		}
		if positions[j].WeightPct != nil {
			wj = *positions[j].WeightPct
		}
		if wi != wj {
			return wi > wj
		}
		return positions[i].Ticker < positions[j].Ticker
	})

	gain, gainPct := gainLoss(totalInvested, totalCurrent)

	return &Summary{
		Positions: positions,
		Totals: Totals{
			TotalInvested:     round2(totalInvested),
			TotalCurrentValue: round2(totalCurrent),
			TotalGainLoss:     round2(gain),
			TotalGainLossPct:  round2(gainPct),
			NumPositions:      len(positions),
			NumTransactions:   len(txns),
			MissingPrices:     missing,
		},
	}, nil
}

// buildPosition computes one instrument's position. Returns nil when the
// holding has been fully disposed.
func (s *Service) buildPosition(ctx context.Context, ticker string, txns []domain.Transaction) (*Position, error) {
	held, costBasis, err := Replay(txns)
	if err != nil {
		return nil, err
	}
	if held.IsZero() {
		return nil, nil
	}

	quantity, _ := held.Round(8).Float64()
	invested, _ := costBasis.Round(2).Float64()
	avgCost, _ := costBasis.Div(held).Round(4).Float64()

	last := txns[len(txns)-1]
	position := &Position{
		Ticker:       ticker,
		AssetKind:    last.AssetKind,
		Market:       last.Market,
		AssetClass:   assetClassOf(txns),
		Quantity:     quantity,
		AvgCost:      avgCost,
		Invested:     invested,
		Transactions: len(txns),
	}

	price := s.prices.CurrentPrice(ctx, ticker, last.AssetKind)
	if price == nil {
		// Unknown price: value and gain/loss stay nil, never zero.
		return position, nil
	}

	roundedPrice := round2(*price)
	currentValue := round2Dec(held.Mul(decimal.NewFromFloat(*price)))
	gain, gainPct := gainLoss(invested, currentValue)
	gain, gainPct = round2(gain), round2(gainPct)

	position.CurrentPrice = &roundedPrice
	position.CurrentValue = &currentValue
	position.GainLoss = &gain
	if invested > 0 {
		position.GainLossPct = &gainPct
	}

	return position, nil
}

// ByCustodian aggregates position values per custodian. Transactions with no
// custodian fall into the "unassigned" group.
func (s *Service) ByCustodian(ctx context.Context) ([]GroupBreakdown, error) {
	return s.byGroup(ctx, func(txn domain.Transaction) string {
		if txn.Custodian == nil {
			return "unassigned"
		}
		return *txn.Custodian
	})
}

// ByAssetClass aggregates position values per allocation bucket. Untagged
// transactions fall into the "sin_clasificar" bucket.
func (s *Service) ByAssetClass(ctx context.Context) ([]GroupBreakdown, error) {
	return s.byGroup(ctx, func(txn domain.Transaction) string {
		if txn.AssetClass == nil {
			return "sin_clasificar"
		}
		return *txn.AssetClass
	})
}

// byGroup attributes already-valued positions to groups. Positions are
// computed once over the full ledger; non-negativity holds per instrument,
// not per group, so a sell tagged differently from its buy must not fail
// the breakdown.
func (s *Service) byGroup(ctx context.Context, keyOf func(domain.Transaction) string) ([]GroupBreakdown, error) {
	txns, err := s.txns.ListChronological()
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	summary, err := s.Summarize(ctx, txns)
	if err != nil {
		return nil, err
	}

	byTicker := groupByTicker(txns)
	acc := make(map[string]*GroupBreakdown)

	for i := range summary.Positions {
		position := &summary.Positions[i]
		for key, fraction := range groupShares(byTicker[position.Ticker], keyOf) {
			breakdown := acc[key]
			if breakdown == nil {
				breakdown = &GroupBreakdown{Group: key}
				acc[key] = breakdown
			}
			breakdown.Invested += position.Invested * fraction
			if position.CurrentValue != nil {
				breakdown.CurrentValue += *position.CurrentValue * fraction
			} else {
				breakdown.MissingPrices++
			}
			breakdown.Positions++
		}
	}

	breakdowns := make([]GroupBreakdown, 0, len(acc))
	grandCurrent := 0.0
	for _, breakdown := range acc {
		breakdown.Invested = round2(breakdown.Invested)
		breakdown.CurrentValue = round2(breakdown.CurrentValue)
		breakdown.GainLoss = round2(breakdown.CurrentValue - breakdown.Invested)
		grandCurrent += breakdown.CurrentValue
		breakdowns = append(breakdowns, *breakdown)
	}

	if grandCurrent > 0 {
		for i := range breakdowns {
			w := round2(breakdowns[i].CurrentValue / grandCurrent * 100)
			breakdowns[i].WeightPct = &w
		}
	}

	sort.Slice(breakdowns, func(i, j int) bool {
		if breakdowns[i].CurrentValue != breakdowns[j].CurrentValue {
			return breakdowns[i].CurrentValue > breakdowns[j].CurrentValue
		}
		return breakdowns[i].Group < breakdowns[j].Group
	})

	return breakdowns, nil
}

// Evolution computes the portfolio's total value at sampled dates from the
// first transaction until today. Dates where any held instrument has no
// resolvable price are skipped rather than charted with a hole.
func (s *Service) Evolution(ctx context.Context) (*Evolution, error) {
	txns, err := s.txns.ListChronological()
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	if len(txns) == 0 {
		return &Evolution{Dates: []string{}, Values: []float64{}}, nil
	}

	dates := pricing.SampleDates(txns[0].Date, time.Now().UTC())

	evolution := &Evolution{Dates: []string{}, Values: []float64{}}
	for _, date := range dates {
		value, complete := s.valueAt(ctx, txns, date)
		if !complete {
			continue
		}
		evolution.Dates = append(evolution.Dates, date.Format(domain.DateLayout))
		evolution.Values = append(evolution.Values, round2(value))
	}

	return evolution, nil
}

// valueAt values the holdings as of date. Returns complete=false when any
// held instrument's price on that date is unknown.
func (s *Service) valueAt(ctx context.Context, txns []domain.Transaction, date time.Time) (float64, bool) {
	var active []domain.Transaction
	for _, txn := range txns {
		if !txn.Date.After(date) {
			active = append(active, txn)
		}
	}
	if len(active) == 0 {
		return 0, false
	}

	total := decimal.Zero
	for ticker, group := range groupByTicker(active) {
		held, _, err := Replay(group)
		if err != nil || held.IsZero() {
			if err != nil {
				s.log.Warn().Err(err).Str("ticker", ticker).Msg("Skipping inconsistent ledger in evolution")
			}
			continue
		}

		price := s.prices.HistoricalPrice(ctx, ticker, group[len(group)-1].AssetKind, date)
		if price == nil {
			return 0, false
		}
		total = total.Add(held.Mul(decimal.NewFromFloat(*price)))
	}

	value, _ := total.Round(2).Float64()
	return value, true
}

// Helpers

func groupByTicker(txns []domain.Transaction) map[string][]domain.Transaction {
	groups := make(map[string][]domain.Transaction)
	for _, txn := range txns {
		groups[txn.Ticker] = append(groups[txn.Ticker], txn)
	}
	return groups
}

func sortedKeys(m map[string][]domain.Transaction) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// groupShares splits one instrument's holding across groups by each group's
// net quantity delta. Groups that are net disposers get nothing; what they
// sold stays attributed to the net-acquiring groups, pro rata.
func groupShares(txns []domain.Transaction, keyOf func(domain.Transaction) string) map[string]float64 {
	deltas := make(map[string]decimal.Decimal)
	for _, txn := range txns {
		qty := decimal.NewFromFloat(txn.Quantity)
		if txn.Kind == domain.TxnSell {
			qty = qty.Neg()
		}
		key := keyOf(txn)
		deltas[key] = deltas[key].Add(qty)
	}

	acquired := decimal.Zero
	for _, delta := range deltas {
		if delta.IsPositive() {
			acquired = acquired.Add(delta)
		}
	}

	shares := make(map[string]float64)
	if acquired.IsZero() {
		return shares
	}
	for key, delta := range deltas {
		if !delta.IsPositive() {
			continue
		}
		fraction, _ := delta.Div(acquired).Float64()
		shares[key] = fraction
	}
	return shares
}

// assetClassOf returns the most recent non-empty allocation tag in the group.
func assetClassOf(txns []domain.Transaction) *string {
	for i := len(txns) - 1; i >= 0; i-- {
		if txns[i].AssetClass != nil {
			return txns[i].AssetClass
		}
	}
	return nil
}

// gainLoss returns absolute and percentage gain; the percentage is zero when
// nothing was invested (callers decide whether to surface it).
func gainLoss(invested, current float64) (float64, float64) {
	gain := current - invested
	if invested == 0 {
		return gain, 0
	}
	return gain, gain / invested * 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round2Dec(d decimal.Decimal) float64 {
	v, _ := d.Round(2).Float64()
	return v
}
