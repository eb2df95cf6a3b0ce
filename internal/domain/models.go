// Package domain holds the core types shared across modules.
package domain

import (
	"strings"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// AssetKind distinguishes the two instrument families the tracker handles.
// It is decided once, when a transaction is created, and stored with the row.
type AssetKind string

const (
	AssetStock  AssetKind = "stock"
	AssetCrypto AssetKind = "crypto"
)

// Market identifies the exchange/market a transaction belongs to.
type Market string

const (
	MarketMX     Market = "MX"
	MarketUS     Market = "US"
	MarketCrypto Market = "CRYPTO"
)

// TxnKind is the transaction direction.
type TxnKind string

const (
	TxnBuy  TxnKind = "buy"
	TxnSell TxnKind = "sell"
)

// SupportedCryptos is the closed set of cryptocurrencies the tracker accepts.
var SupportedCryptos = []string{"BTC", "ETH", "SOL", "XRP", "PAXG"}

// IsSupportedCrypto reports whether symbol is in the supported set.
func IsSupportedCrypto(symbol string) bool {
	symbol = strings.ToUpper(symbol)
	for _, s := range SupportedCryptos {
		if s == symbol {
			return true
		}
	}
	return false
}

// Transaction is a single buy or sell event.
type Transaction struct {
	ID            int64     `json:"id"`
	AssetKind     AssetKind `json:"asset_kind"`
	Ticker        string    `json:"ticker"`
	Market        Market    `json:"market"`
	Kind          TxnKind   `json:"txn_kind"`
	Date          time.Time `json:"-"`
	Price         float64   `json:"price"`
	Quantity      float64   `json:"quantity"`
	Currency      string    `json:"currency"`
	Custodian     *string   `json:"custodian,omitempty"`
	AssetClass    *string   `json:"asset_class,omitempty"`
	StakingReward bool      `json:"staking_reward"`
	Commission    float64   `json:"commission"`
	Notes         *string   `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"-"`
	UpdatedAt     time.Time `json:"-"`
}

// DateString returns the transaction date in DateLayout.
func (t *Transaction) DateString() string {
	return t.Date.Format(DateLayout)
}

// Custodian is an institution holding assets (brokerage, exchange, bank).
type Custodian struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Kind      *string   `json:"kind,omitempty"`
	CreatedAt time.Time `json:"-"`
}

// DividendType classifies income records.
type DividendType string

const (
	DividendCash    DividendType = "dividend"
	DividendCoupon  DividendType = "coupon"
	DividendStaking DividendType = "staking"
)

// DividendStatus marks whether a record has been confirmed by the user.
type DividendStatus string

const (
	DividendPending   DividendStatus = "pending"
	DividendConfirmed DividendStatus = "confirmed"
)

// DividendSource records how a record entered the system.
type DividendSource string

const (
	DividendManual DividendSource = "manual"
	DividendAuto   DividendSource = "auto"
)

// DividendRecord is a cash or staking receipt tied to an instrument.
// NetAmount is required and non-negative; GrossAmount is optional.
type DividendRecord struct {
	ID          int64          `json:"id"`
	Ticker      string         `json:"ticker"`
	Type        DividendType   `json:"dividend_type"`
	PaymentDate time.Time      `json:"-"`
	GrossAmount *float64       `json:"gross_amount,omitempty"`
	NetAmount   float64        `json:"net_amount"`
	Currency    string         `json:"currency"`
	Status      DividendStatus `json:"status"`
	Source      DividendSource `json:"source"`
	Notes       *string        `json:"notes,omitempty"`
	CreatedAt   time.Time      `json:"-"`
	UpdatedAt   time.Time      `json:"-"`
}
