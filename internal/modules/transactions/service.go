package transactions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/acalderon/cartera/internal/domain"
	"github.com/acalderon/cartera/internal/modules/allocation"
	"github.com/acalderon/cartera/internal/modules/portfolio"
)

// SymbolValidator checks that an equity ticker resolves at the provider.
type SymbolValidator interface {
	Validate(ctx context.Context, symbol string) bool
}

// PriceSource resolves current prices for the enriched listing.
type PriceSource interface {
	CurrentPrice(ctx context.Context, ticker string, kind domain.AssetKind) *float64
}

// Service validates and persists transactions.
type Service struct {
	repo       *Repository
	symbols    SymbolValidator
	prices     PriceSource
	settlement string
	log        zerolog.Logger
}

// NewService creates a new transaction service
func NewService(repo *Repository, symbols SymbolValidator, prices PriceSource, settlementCurrency string, log zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		symbols:    symbols,
		prices:     prices,
		settlement: settlementCurrency,
		log:        log.With().Str("service", "transactions").Logger(),
	}
}

// Input is the payload for creating or updating a transaction.
type Input struct {
	Ticker        string   `json:"ticker"`
	Market        string   `json:"market"`
	Kind          string   `json:"txn_kind"`
	Date          string   `json:"date"`
	Price         float64  `json:"price"`
	Quantity      float64  `json:"quantity"`
	Custodian     *string  `json:"custodian"`
	AssetClass    *string  `json:"asset_class"`
	StakingReward bool     `json:"staking_reward"`
	Commission    *float64 `json:"commission"`
	Notes         *string  `json:"notes"`
}

// Enriched is a transaction decorated with live valuation figures. Pointer
// fields stay nil when the current price is unknown.
type Enriched struct {
	domain.Transaction
	Date         string   `json:"date"`
	CurrentPrice *float64 `json:"current_price"`
	Invested     float64  `json:"invested_value"`
	CurrentValue *float64 `json:"current_value"`
	GainLoss     *float64 `json:"gain_loss"`
	GainLossPct  *float64 `json:"gain_loss_percent"`
}

// Create validates input, decides the asset kind, tags the allocation bucket
// and stores the transaction. Nothing is written when validation fails.
func (s *Service) Create(ctx context.Context, input Input) (*domain.Transaction, error) {
	txn, err := s.validate(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := s.checkCoverage(txn, 0); err != nil {
		return nil, err
	}

	if err := s.repo.Create(txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Update validates input against the existing record and overwrites it.
func (s *Service) Update(ctx context.Context, id int64, input Input) (*domain.Transaction, error) {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	txn, err := s.validate(ctx, input)
	if err != nil {
		return nil, err
	}
	txn.ID = id

	if err := s.checkCoverage(txn, id); err != nil {
		return nil, err
	}

	// Moving a row to another instrument can strip coverage from sells
	// left behind on the old one.
	if existing.Ticker != txn.Ticker {
		remaining, err := s.ledgerWithout(existing.Ticker, id)
		if err != nil {
			return nil, err
		}
		if _, err := portfolio.HeldQuantity(remaining); err != nil {
			return nil, domain.Validationf("cannot move transaction: a later sell of %s would exceed the held quantity", existing.Ticker)
		}
	}

	if err := s.repo.Update(txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Delete removes a transaction unless doing so would leave a later sell
// without coverage.
func (s *Service) Delete(id int64) error {
	txn, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}

	remaining, err := s.ledgerWithout(txn.Ticker, id)
	if err != nil {
		return err
	}
	if _, err := portfolio.HeldQuantity(remaining); err != nil {
		return domain.Validationf("cannot delete: a later sell of %s would exceed the held quantity", txn.Ticker)
	}

	return s.repo.Delete(id)
}

// Get returns one transaction.
func (s *Service) Get(id int64) (*domain.Transaction, error) {
	return s.repo.GetByID(id)
}

// ListEnriched returns all transactions with live valuation figures,
// newest first. A missing price nulls that row's derived fields only.
func (s *Service) ListEnriched(ctx context.Context) ([]Enriched, error) {
	txns, err := s.repo.List()
	if err != nil {
		return nil, err
	}

	enriched := make([]Enriched, 0, len(txns))
	for _, txn := range txns {
		row := Enriched{
			Transaction: txn,
			Date:        txn.DateString(),
			Invested:    round2(txn.Price * txn.Quantity),
		}

		if price := s.prices.CurrentPrice(ctx, txn.Ticker, txn.AssetKind); price != nil {
			roundedPrice := round2(*price)
			value := round2(*price * txn.Quantity)
			gain := round2(value - row.Invested)
			row.CurrentPrice = &roundedPrice
			row.CurrentValue = &value
			row.GainLoss = &gain
			if row.Invested > 0 {
				pct := round2(gain / row.Invested * 100)
				row.GainLossPct = &pct
			}
		}

		enriched = append(enriched, row)
	}

	return enriched, nil
}

// validate normalizes and checks input, returning a transaction ready to
// persist. All failures are ValidationErrors.
func (s *Service) validate(ctx context.Context, input Input) (*domain.Transaction, error) {
	if strings.TrimSpace(input.Ticker) == "" {
		return nil, domain.Validationf("ticker is required")
	}
	if input.Date == "" {
		return nil, domain.Validationf("date is required")
	}

	market := domain.Market(strings.ToUpper(strings.TrimSpace(input.Market)))
	if market == "" {
		market = domain.MarketMX
	}
	switch market {
	case domain.MarketMX, domain.MarketUS, domain.MarketCrypto:
	default:
		return nil, domain.Validationf("unsupported market: %s", market)
	}

	kind := domain.TxnKind(strings.ToLower(strings.TrimSpace(input.Kind)))
	if kind == "" {
		kind = domain.TxnBuy
	}
	if kind != domain.TxnBuy && kind != domain.TxnSell {
		return nil, domain.Validationf("txn_kind must be 'buy' or 'sell'")
	}

	date, err := time.Parse(domain.DateLayout, input.Date)
	if err != nil {
		return nil, domain.Validationf("invalid date format, use YYYY-MM-DD")
	}
	if date.After(time.Now().UTC()) {
		return nil, domain.Validationf("date cannot be in the future")
	}

	if input.Price <= 0 {
		return nil, domain.Validationf("price must be greater than 0")
	}
	if input.Quantity <= 0 {
		return nil, domain.Validationf("quantity must be greater than 0")
	}

	ticker, assetKind, err := s.normalizeTicker(ctx, input.Ticker, market)
	if err != nil {
		return nil, err
	}

	qty := decimal.NewFromFloat(input.Quantity)
	switch assetKind {
	case domain.AssetCrypto:
		if !qty.Equal(qty.Round(8)) {
			return nil, domain.Validationf("crypto quantity supports at most 8 decimal places")
		}
	default:
		if !qty.IsInteger() {
			return nil, domain.Validationf("stock quantity must be a whole number")
		}
	}

	assetClass := input.AssetClass
	if assetClass != nil && !allocation.IsValidClass(*assetClass) {
		return nil, domain.Validationf("unknown asset class: %s", *assetClass)
	}
	if assetClass == nil {
		if code := allocation.Classify(ticker, market, assetKind); code != allocation.Unclassified {
			assetClass = &code
		}
	}

	commission := 0.0
	if input.Commission != nil {
		if *input.Commission < 0 {
			return nil, domain.Validationf("commission cannot be negative")
		}
		commission = *input.Commission
	}

	if input.StakingReward && assetKind != domain.AssetCrypto {
		return nil, domain.Validationf("staking rewards only apply to crypto transactions")
	}

	return &domain.Transaction{
		AssetKind:     assetKind,
		Ticker:        ticker,
		Market:        market,
		Kind:          kind,
		Date:          date,
		Price:         input.Price,
		Quantity:      input.Quantity,
		Currency:      s.settlement,
		Custodian:     trimPtr(input.Custodian),
		AssetClass:    assetClass,
		StakingReward: input.StakingReward,
		Commission:    commission,
		Notes:         trimPtr(input.Notes),
	}, nil
}

// normalizeTicker strips user-added suffixes, applies the market suffix and
// verifies the symbol exists.
func (s *Service) normalizeTicker(ctx context.Context, raw string, market domain.Market) (string, domain.AssetKind, error) {
	ticker := strings.ToUpper(strings.TrimSpace(raw))
	ticker = strings.TrimSuffix(ticker, ".MX")
	ticker = strings.TrimSuffix(ticker, ".US")

	if market == domain.MarketCrypto {
		if !domain.IsSupportedCrypto(ticker) {
			return "", "", domain.Validationf(
				"unsupported cryptocurrency: %s (supported: %s)",
				ticker, strings.Join(domain.SupportedCryptos, ", "),
			)
		}
		return ticker, domain.AssetCrypto, nil
	}

	if market == domain.MarketMX {
		ticker += ".MX"
	}

	if !s.symbols.Validate(ctx, ticker) {
		return "", "", domain.Validationf("invalid ticker: %s, not found at the price provider", ticker)
	}

	return ticker, domain.AssetStock, nil
}

// checkCoverage replays the instrument's ledger with the candidate applied
// (replacing any row with the same ID) and rejects sets where a sell would
// drive the held quantity negative.
func (s *Service) checkCoverage(candidate *domain.Transaction, replaceID int64) error {
	existing, err := s.ledgerWithout(candidate.Ticker, replaceID)
	if err != nil {
		return err
	}

	ledger := append(existing, *candidate)
	if _, err := portfolio.HeldQuantity(ledger); err != nil {
		return err
	}
	return nil
}

func (s *Service) ledgerWithout(ticker string, excludeID int64) ([]domain.Transaction, error) {
	txns, err := s.repo.ListByTicker(ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger for %s: %w", ticker, err)
	}

	if excludeID == 0 {
		return txns, nil
	}
	filtered := txns[:0]
	for _, txn := range txns {
		if txn.ID != excludeID {
			filtered = append(filtered, txn)
		}
	}
	return filtered, nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func round2(v float64) float64 {
	d := decimal.NewFromFloat(v)
	out, _ := d.Round(2).Float64()
	return out
}
