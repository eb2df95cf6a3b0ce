// Package yahoo provides equity quotes, daily history and dividend events
// from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Client for the Yahoo Finance v8 chart endpoint.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://query1.finance.yahoo.com",
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// Candle is one daily close.
type Candle struct {
	Date  time.Time
	Close float64
}

// DividendEvent is a per-share dividend payment reported by the provider,
// in the instrument's quote currency.
type DividendEvent struct {
	Date     time.Time
	Amount   float64
	Currency string
}

// chartResponse mirrors the subset of the chart payload we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
			Events struct {
				Dividends map[string]struct {
					Amount float64 `json:"amount"`
					Date   int64   `json:"date"`
				} `json:"dividends"`
			} `json:"events"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) fetchChart(ctx context.Context, symbol string, params url.Values) (*chartResponse, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	// Yahoo rejects requests without a browser-ish user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; cartera/1.0)")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Chart.Error != nil {
		return nil, fmt.Errorf("API error: %s", result.Chart.Error.Description)
	}
	if len(result.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data for symbol %s", symbol)
	}

	return &result, nil
}

// Quote returns the latest market price and its quote currency.
func (c *Client) Quote(ctx context.Context, symbol string) (float64, string, error) {
	params := url.Values{}
	params.Set("range", "1d")
	params.Set("interval", "1d")

	result, err := c.fetchChart(ctx, symbol, params)
	if err != nil {
		return 0, "", err
	}

	meta := result.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return 0, "", fmt.Errorf("no price for symbol %s", symbol)
	}

	c.log.Debug().
		Str("symbol", symbol).
		Float64("price", meta.RegularMarketPrice).
		Str("currency", meta.Currency).
		Msg("Fetched quote")

	return meta.RegularMarketPrice, meta.Currency, nil
}

// History returns daily closes between from and to (inclusive), along with
// the quote currency reported by the provider.
func (c *Client) History(ctx context.Context, symbol string, from, to time.Time) ([]Candle, string, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", from.Unix()))
	params.Set("period2", fmt.Sprintf("%d", to.Unix()))
	params.Set("interval", "1d")

	result, err := c.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, "", err
	}

	res := result.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return nil, res.Meta.Currency, nil
	}
	closes := res.Indicators.Quote[0].Close

	var candles []Candle
	for i, ts := range res.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		candles = append(candles, Candle{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *closes[i],
		})
	}

	return candles, res.Meta.Currency, nil
}

// Validate reports whether the symbol resolves to a quotable instrument.
func (c *Client) Validate(ctx context.Context, symbol string) bool {
	price, _, err := c.Quote(ctx, symbol)
	if err != nil {
		c.log.Debug().Err(err).Str("symbol", symbol).Msg("Symbol validation failed")
		return false
	}
	return price > 0
}

// DividendEvents returns per-share dividend payments between from and to,
// sorted by date.
func (c *Client) DividendEvents(ctx context.Context, symbol string, from, to time.Time) ([]DividendEvent, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", from.Unix()))
	params.Set("period2", fmt.Sprintf("%d", to.Unix()))
	params.Set("interval", "1d")
	params.Set("events", "div")

	result, err := c.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	res := result.Chart.Result[0]
	var events []DividendEvent
	for _, div := range res.Events.Dividends {
		if div.Amount <= 0 {
			continue
		}
		events = append(events, DividendEvent{
			Date:     time.Unix(div.Date, 0).UTC(),
			Amount:   div.Amount,
			Currency: res.Meta.Currency,
		})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })

	return events, nil
}

// DividendYield returns the trailing dividend yield as a fraction (0.03 = 3%).
func (c *Client) DividendYield(ctx context.Context, symbol string) (float64, error) {
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=summaryDetail", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; cartera/1.0)")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result struct {
		QuoteSummary struct {
			Result []struct {
				SummaryDetail struct {
					DividendYield struct {
						Raw float64 `json:"raw"`
					} `json:"dividendYield"`
				} `json:"summaryDetail"`
			} `json:"result"`
		} `json:"quoteSummary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.QuoteSummary.Result) == 0 {
		return 0, fmt.Errorf("no summary for symbol %s", symbol)
	}

	return result.QuoteSummary.Result[0].SummaryDetail.DividendYield.Raw, nil
}
