package dividends

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/acalderon/cartera/internal/domain"
	"github.com/acalderon/cartera/internal/modules/portfolio"
)

// YieldProvider reports a trailing dividend yield as a fraction.
type YieldProvider interface {
	DividendYield(ctx context.Context, symbol string) (float64, error)
}

// Service implements dividend CRUD, the yearly summary and the
// expected-yield projection.
type Service struct {
	repo       *Repository
	portfolio  *portfolio.Service
	yields     YieldProvider
	settlement string
	log        zerolog.Logger
}

// NewService creates a new dividend service
func NewService(repo *Repository, portfolioSvc *portfolio.Service, yields YieldProvider, settlementCurrency string, log zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		portfolio:  portfolioSvc,
		yields:     yields,
		settlement: settlementCurrency,
		log:        log.With().Str("service", "dividends").Logger(),
	}
}

// Input is the payload for creating or updating a dividend record.
type Input struct {
	Ticker      string   `json:"ticker"`
	Type        string   `json:"dividend_type"`
	PaymentDate string   `json:"payment_date"`
	GrossAmount *float64 `json:"gross_amount"`
	NetAmount   *float64 `json:"net_amount"`
	Currency    string   `json:"currency"`
	Status      string   `json:"status"`
	Notes       *string  `json:"notes"`
}

// YearlySummary aggregates confirmed income for one year.
type YearlySummary struct {
	Year          int                `json:"year"`
	TotalNet      float64            `json:"total_dividends"`
	Count         int                `json:"count"`
	ByMonth       map[string]float64 `json:"by_month"`
	ByTicker      map[string]float64 `json:"by_ticker"`
	ByType        map[string]float64 `json:"by_type"`
	PendingCount  int                `json:"pending_count"`
	RealizedYield *float64           `json:"dividend_yield_percent"` // nil when portfolio value is unknown
}

// ExpectedInstrument is the projected annual income for one held position.
type ExpectedInstrument struct {
	Ticker         string   `json:"ticker"`
	CurrentValue   float64  `json:"current_value"`
	YieldPct       *float64 `json:"yield_percent"`
	ExpectedAnnual *float64 `json:"expected_annual"`
}

// ExpectedYield is the informational projection from provider-reported
// yields; it is independent of recorded dividends.
type ExpectedYield struct {
	Instruments   []ExpectedInstrument `json:"instruments"`
	TotalExpected float64              `json:"total_expected"`
	PortfolioPct  *float64             `json:"portfolio_yield_percent"`
}

// Create validates and stores a manually entered record.
func (s *Service) Create(input Input) (*domain.DividendRecord, error) {
	record, err := s.validate(input)
	if err != nil {
		return nil, err
	}
	record.Source = domain.DividendManual

	if err := s.repo.Create(record); err != nil {
		return nil, err
	}
	return record, nil
}

// Update validates input and overwrites an existing record. Editing an
// auto-imported record confirms it implicitly unless the input says otherwise.
func (s *Service) Update(id int64, input Input) (*domain.DividendRecord, error) {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	record, err := s.validate(input)
	if err != nil {
		return nil, err
	}
	record.ID = id
	record.Source = existing.Source
	if input.Status == "" && existing.Source == domain.DividendAuto {
		record.Status = domain.DividendConfirmed
	}

	if err := s.repo.Update(record); err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes a record.
func (s *Service) Delete(id int64) error {
	return s.repo.Delete(id)
}

// Get returns one record.
func (s *Service) Get(id int64) (*domain.DividendRecord, error) {
	return s.repo.GetByID(id)
}

// List returns all records, newest payment first.
func (s *Service) List() ([]domain.DividendRecord, error) {
	return s.repo.List()
}

// ListByYear returns records whose payment date falls inside year.
func (s *Service) ListByYear(year int) ([]domain.DividendRecord, error) {
	return s.repo.ListByYear(year)
}

// Summary aggregates confirmed records for year. The realized yield is the
// year's confirmed total over the current portfolio value; it is nil when no
// portfolio value can be resolved.
func (s *Service) Summary(ctx context.Context, year int) (*YearlySummary, error) {
	records, err := s.repo.ListByYear(year)
	if err != nil {
		return nil, err
	}

	summary := &YearlySummary{
		Year:     year,
		ByMonth:  make(map[string]float64),
		ByTicker: make(map[string]float64),
		ByType:   make(map[string]float64),
	}

	for _, record := range records {
		if record.Status != domain.DividendConfirmed {
			summary.PendingCount++
			continue
		}
		summary.TotalNet += record.NetAmount
		summary.Count++
		summary.ByMonth[record.PaymentDate.Month().String()] += record.NetAmount
		summary.ByTicker[record.Ticker] += record.NetAmount
		summary.ByType[string(record.Type)] += record.NetAmount
	}
	summary.TotalNet = round2(summary.TotalNet)
	roundMap(summary.ByMonth)
	roundMap(summary.ByTicker)
	roundMap(summary.ByType)

	portfolioSummary, err := s.portfolio.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to value portfolio for yield: %w", err)
	}
	if portfolioSummary.Totals.TotalCurrentValue > 0 {
		yield := round2(summary.TotalNet / portfolioSummary.Totals.TotalCurrentValue * 100)
		summary.RealizedYield = &yield
	}

	return summary, nil
}

// Expected projects annual income from the provider-reported yield of each
// held equity position. Instruments without yield data contribute nothing.
func (s *Service) Expected(ctx context.Context) (*ExpectedYield, error) {
	portfolioSummary, err := s.portfolio.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to value portfolio: %w", err)
	}

	result := &ExpectedYield{}
	pricedTotal := 0.0

	for _, position := range portfolioSummary.Positions {
		if position.AssetKind != domain.AssetStock || position.CurrentValue == nil {
			continue
		}
		pricedTotal += *position.CurrentValue

		instrument := ExpectedInstrument{
			Ticker:       position.Ticker,
			CurrentValue: *position.CurrentValue,
		}

		yield, err := s.yields.DividendYield(ctx, position.Ticker)
		if err != nil || yield <= 0 {
			if err != nil {
				s.log.Debug().Err(err).Str("ticker", position.Ticker).Msg("No yield data")
			}
			result.Instruments = append(result.Instruments, instrument)
			continue
		}

		yieldPct := round2(yield * 100)
		expected := round2(*position.CurrentValue * yield)
		instrument.YieldPct = &yieldPct
		instrument.ExpectedAnnual = &expected
		result.TotalExpected += expected

		result.Instruments = append(result.Instruments, instrument)
	}

	result.TotalExpected = round2(result.TotalExpected)
	if pricedTotal > 0 {
		pct := round2(result.TotalExpected / pricedTotal * 100)
		result.PortfolioPct = &pct
	}

	return result, nil
}

func (s *Service) validate(input Input) (*domain.DividendRecord, error) {
	if strings.TrimSpace(input.Ticker) == "" {
		return nil, domain.Validationf("ticker is required")
	}
	if input.PaymentDate == "" {
		return nil, domain.Validationf("payment_date is required")
	}
	if input.NetAmount == nil {
		return nil, domain.Validationf("net_amount is required")
	}
	if *input.NetAmount < 0 {
		return nil, domain.Validationf("net_amount cannot be negative")
	}
	if input.GrossAmount != nil && *input.GrossAmount < 0 {
		return nil, domain.Validationf("gross_amount cannot be negative")
	}

	date, err := time.Parse(domain.DateLayout, input.PaymentDate)
	if err != nil {
		return nil, domain.Validationf("invalid payment_date format, use YYYY-MM-DD")
	}

	divType := domain.DividendType(strings.ToLower(strings.TrimSpace(input.Type)))
	if divType == "" {
		divType = domain.DividendCash
	}
	switch divType {
	case domain.DividendCash, domain.DividendCoupon, domain.DividendStaking:
	default:
		return nil, domain.Validationf("dividend_type must be 'dividend', 'coupon' or 'staking'")
	}

	status := domain.DividendStatus(strings.ToLower(strings.TrimSpace(input.Status)))
	if status == "" {
		status = domain.DividendConfirmed
	}
	if status != domain.DividendPending && status != domain.DividendConfirmed {
		return nil, domain.Validationf("status must be 'pending' or 'confirmed'")
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.settlement
	}

	return &domain.DividendRecord{
		Ticker:      strings.ToUpper(strings.TrimSpace(input.Ticker)),
		Type:        divType,
		PaymentDate: date,
		GrossAmount: input.GrossAmount,
		NetAmount:   *input.NetAmount,
		Currency:    currency,
		Status:      status,
		Notes:       input.Notes,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundMap(m map[string]float64) {
	for k, v := range m {
		m[k] = round2(v)
	}
}
