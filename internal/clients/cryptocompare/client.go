// Package cryptocompare provides cryptocurrency prices from the
// CryptoCompare min-api, quoted directly in the settlement currency.
package cryptocompare

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client for min-api.cryptocompare.com. The API key is optional; without it
// the free tier applies with tighter rate limits.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new CryptoCompare client
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://min-api.cryptocompare.com/data",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "cryptocompare").Logger(),
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Price returns the current price of symbol in currency.
func (c *Client) Price(ctx context.Context, symbol, currency string) (float64, error) {
	symbol = strings.ToUpper(symbol)
	currency = strings.ToUpper(currency)

	params := url.Values{}
	params.Set("fsym", symbol)
	params.Set("tsyms", currency)

	var result map[string]float64
	if err := c.get(ctx, "/price", params, &result); err != nil {
		return 0, err
	}

	price, ok := result[currency]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("no price for %s in %s", symbol, currency)
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("currency", currency).
		Float64("price", price).
		Msg("Fetched price")

	return price, nil
}

// HistoricalPrice returns the price of symbol in currency at the given date.
func (c *Client) HistoricalPrice(ctx context.Context, symbol, currency string, date time.Time) (float64, error) {
	symbol = strings.ToUpper(symbol)
	currency = strings.ToUpper(currency)

	params := url.Values{}
	params.Set("fsym", symbol)
	params.Set("tsyms", currency)
	params.Set("ts", fmt.Sprintf("%d", date.Unix()))

	var result map[string]map[string]float64
	if err := c.get(ctx, "/pricehistorical", params, &result); err != nil {
		return 0, err
	}

	price, ok := result[symbol][currency]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("no historical price for %s in %s at %s", symbol, currency, date.Format("2006-01-02"))
	}

	return price, nil
}

