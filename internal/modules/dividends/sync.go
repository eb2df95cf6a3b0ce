package dividends

import (
	"context"
	"fmt"
	"time"

	"github.com/acalderon/cartera/internal/clients/yahoo"
	"github.com/acalderon/cartera/internal/domain"
)

// FeedProvider lists historical dividend events for a symbol.
type FeedProvider interface {
	DividendEvents(ctx context.Context, symbol string, from, to time.Time) ([]yahoo.DividendEvent, error)
}

// SyncResult reports what a feed sync pass did.
type SyncResult struct {
	TickersChecked int `json:"tickers_checked"`
	Created        int `json:"created"`
	Skipped        int `json:"skipped"`
}

// SyncFromFeed walks the currently held equity positions and records any
// feed dividend events from the past year that we do not have yet. New
// records land as pending so the owner confirms the net amount by hand;
// the per-share feed amount times the held quantity is stored as the
// gross estimate.
func (s *Service) SyncFromFeed(ctx context.Context, feed FeedProvider) (*SyncResult, error) {
	summary, err := s.portfolio.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions for dividend sync: %w", err)
	}

	now := time.Now()
	from := now.AddDate(-1, 0, 0)
	result := &SyncResult{}

	for _, pos := range summary.Positions {
		if pos.AssetKind != domain.AssetStock {
			continue
		}
		result.TickersChecked++

		events, err := feed.DividendEvents(ctx, pos.Ticker, from, now)
		if err != nil {
			s.log.Warn().Err(err).Str("ticker", pos.Ticker).Msg("dividend feed lookup failed")
			continue
		}

		for _, ev := range events {
			exists, err := s.repo.ExistsFor(pos.Ticker, ev.Date)
			if err != nil {
				return nil, err
			}
			if exists {
				result.Skipped++
				continue
			}

			// Feed amounts come back in the instrument's quote currency,
			// not the settlement currency.
			currency := ev.Currency
			if currency == "" {
				currency = s.settlement
			}

			gross := ev.Amount * pos.Quantity
			record := &domain.DividendRecord{
				Ticker:      pos.Ticker,
				Type:        domain.DividendCash,
				PaymentDate: ev.Date,
				GrossAmount: &gross,
				NetAmount:   gross,
				Currency:    currency,
				Status:      domain.DividendPending,
				Source:      domain.DividendAuto,
			}
			if err := s.repo.Create(record); err != nil {
				return nil, fmt.Errorf("failed to record feed dividend: %w", err)
			}
			result.Created++
		}
	}

	s.log.Info().
		Int("tickers", result.TickersChecked).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Msg("dividend feed sync finished")
	return result, nil
}
