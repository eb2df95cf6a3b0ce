package pricing

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/acalderon/cartera/internal/clients/yahoo"
	"github.com/acalderon/cartera/internal/domain"
)

// EquityProvider returns equity prices in the instrument's quote currency.
type EquityProvider interface {
	Quote(ctx context.Context, symbol string) (price float64, currency string, err error)
	History(ctx context.Context, symbol string, from, to time.Time) ([]yahoo.Candle, string, error)
}

// CryptoProvider returns crypto prices directly in the requested currency.
type CryptoProvider interface {
	Price(ctx context.Context, symbol, currency string) (float64, error)
	HistoricalPrice(ctx context.Context, symbol, currency string, date time.Time) (float64, error)
}

// RateProvider returns a current foreign-exchange rate.
type RateProvider interface {
	GetRate(ctx context.Context, fromCurrency, toCurrency string) (float64, error)
}

// Resolver returns current and historical unit prices in the settlement
// currency. A nil result means the price is unknown for this call; callers
// must propagate that, never substitute zero.
type Resolver struct {
	cache      *Cache
	equities   EquityProvider
	cryptos    CryptoProvider
	rates      RateProvider
	settlement string
	log        zerolog.Logger
}

// NewResolver creates a price resolver around the given providers.
func NewResolver(cache *Cache, equities EquityProvider, cryptos CryptoProvider, rates RateProvider, settlementCurrency string, log zerolog.Logger) *Resolver {
	return &Resolver{
		cache:      cache,
		equities:   equities,
		cryptos:    cryptos,
		rates:      rates,
		settlement: settlementCurrency,
		log:        log.With().Str("service", "pricing").Logger(),
	}
}

// CurrentPrice returns the latest unit price of ticker in the settlement
// currency, or nil when no price can be resolved.
func (r *Resolver) CurrentPrice(ctx context.Context, ticker string, kind domain.AssetKind) *float64 {
	key := ticker + ":current"
	if cached, ok := r.cache.Get(key); ok {
		return &cached
	}

	var (
		price float64
		err   error
	)
	switch kind {
	case domain.AssetCrypto:
		price, err = r.cryptos.Price(ctx, ticker, r.settlement)
	default:
		price, err = r.equityPrice(ctx, ticker)
	}
	if err != nil {
		r.log.Warn().Err(err).Str("ticker", ticker).Msg("Price unavailable")
		return nil
	}

	r.cache.Put(key, price)
	return &price
}

// HistoricalPrice returns the unit price of ticker on date in the settlement
// currency, or nil when no price can be resolved.
func (r *Resolver) HistoricalPrice(ctx context.Context, ticker string, kind domain.AssetKind, date time.Time) *float64 {
	key := ticker + ":" + date.Format(domain.DateLayout)
	if cached, ok := r.cache.Get(key); ok {
		return &cached
	}

	var (
		price float64
		err   error
	)
	switch kind {
	case domain.AssetCrypto:
		price, err = r.cryptos.HistoricalPrice(ctx, ticker, r.settlement, date)
	default:
		price, err = r.equityHistoricalPrice(ctx, ticker, date)
	}
	if err != nil {
		r.log.Warn().Err(err).Str("ticker", ticker).Str("date", date.Format(domain.DateLayout)).Msg("Historical price unavailable")
		return nil
	}

	r.cache.Put(key, price)
	return &price
}

// equityPrice fetches the latest quote and converts it into the settlement
// currency when the instrument trades in another one.
func (r *Resolver) equityPrice(ctx context.Context, ticker string) (float64, error) {
	price, currency, err := r.equities.Quote(ctx, ticker)
	if err != nil {
		return 0, err
	}
	return r.toSettlement(ctx, price, currency)
}

// equityHistoricalPrice takes the first close at or after date. The window
// extends a few days to skate over weekends and holidays.
func (r *Resolver) equityHistoricalPrice(ctx context.Context, ticker string, date time.Time) (float64, error) {
	candles, currency, err := r.equities.History(ctx, ticker, date, date.AddDate(0, 0, 5))
	if err != nil {
		return 0, err
	}
	if len(candles) == 0 {
		return 0, domain.Validationf("no historical data for %s on %s", ticker, date.Format(domain.DateLayout))
	}

	return r.toSettlement(ctx, candles[0].Close, currency)
}

// toSettlement converts value from currency into the settlement currency
// using a current FX rate. Rates share the price cache and its TTL.
func (r *Resolver) toSettlement(ctx context.Context, value float64, currency string) (float64, error) {
	if currency == "" || currency == r.settlement {
		return value, nil
	}

	key := "fx:" + currency + ":" + r.settlement
	rate, ok := r.cache.Get(key)
	if !ok {
		var err error
		rate, err = r.rates.GetRate(ctx, currency, r.settlement)
		if err != nil {
			return 0, err
		}
		r.cache.Put(key, rate)
	}

	return value * rate, nil
}
