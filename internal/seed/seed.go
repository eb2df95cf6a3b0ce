// Package seed loads a small example portfolio into an empty database so
// the API has something to show on first run.
package seed

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/acalderon/cartera/internal/domain"
	"github.com/acalderon/cartera/internal/modules/allocation"
	"github.com/acalderon/cartera/internal/modules/custodians"
	"github.com/acalderon/cartera/internal/modules/dividends"
	"github.com/acalderon/cartera/internal/modules/transactions"
)

// Run inserts the example data. It refuses to touch a database that
// already holds transactions.
func Run(
	txnRepo *transactions.Repository,
	custodianRepo *custodians.Repository,
	dividendRepo *dividends.Repository,
	log zerolog.Logger,
) error {
	log = log.With().Str("component", "seed").Logger()

	count, err := txnRepo.Count()
	if err != nil {
		return err
	}
	if count > 0 {
		log.Info().Int("transactions", count).Msg("database not empty, skipping seed")
		return nil
	}

	for _, c := range exampleCustodians() {
		existing, err := custodianRepo.GetByName(c.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		cc := c
		if err := custodianRepo.Create(&cc); err != nil {
			return fmt.Errorf("failed to seed custodian %s: %w", c.Name, err)
		}
	}

	for _, txn := range exampleTransactions() {
		t := txn
		if err := txnRepo.Create(&t); err != nil {
			return fmt.Errorf("failed to seed transaction %s: %w", txn.Ticker, err)
		}
	}

	dividend := exampleDividend()
	if err := dividendRepo.Create(&dividend); err != nil {
		return fmt.Errorf("failed to seed dividend: %w", err)
	}

	log.Info().Msg("example data loaded")
	return nil
}

func exampleCustodians() []domain.Custodian {
	broker := "broker"
	exchange := "exchange"
	return []domain.Custodian{
		{Name: "GBM", Kind: &broker},
		{Name: "Kuspit", Kind: &broker},
		{Name: "Bitso", Kind: &exchange},
	}
}

func exampleDividend() domain.DividendRecord {
	date, _ := time.Parse(domain.DateLayout, "2024-05-15")
	gross := 285.60
	return domain.DividendRecord{
		Ticker:      "FUNO11.MX",
		Type:        domain.DividendCash,
		PaymentDate: date,
		GrossAmount: &gross,
		NetAmount:   257.04,
		Currency:    "MXN",
		Status:      domain.DividendConfirmed,
		Source:      domain.DividendManual,
	}
}

func exampleTransactions() []domain.Transaction {
	date := func(s string) time.Time {
		t, _ := time.Parse(domain.DateLayout, s)
		return t
	}
	str := func(s string) *string { return &s }

	txns := []domain.Transaction{
		{
			AssetKind: domain.AssetStock, Ticker: "NAFTRAC.MX", Market: domain.MarketMX,
			Kind: domain.TxnBuy, Date: date("2024-01-15"), Price: 52.30, Quantity: 100,
			Custodian: str("GBM"),
		},
		{
			AssetKind: domain.AssetStock, Ticker: "VOO.MX", Market: domain.MarketMX,
			Kind: domain.TxnBuy, Date: date("2024-02-20"), Price: 8150.00, Quantity: 3,
			Custodian: str("GBM"),
		},
		{
			AssetKind: domain.AssetStock, Ticker: "FUNO11.MX", Market: domain.MarketMX,
			Kind: domain.TxnBuy, Date: date("2024-03-05"), Price: 23.80, Quantity: 200,
			Custodian: str("Kuspit"),
		},
		{
			AssetKind: domain.AssetCrypto, Ticker: "BTC", Market: domain.MarketCrypto,
			Kind: domain.TxnBuy, Date: date("2024-04-10"), Price: 1150000.00, Quantity: 0.015,
			Custodian: str("Bitso"),
		},
		{
			AssetKind: domain.AssetCrypto, Ticker: "ETH", Market: domain.MarketCrypto,
			Kind: domain.TxnBuy, Date: date("2024-05-02"), Price: 62000.00, Quantity: 0.25,
			Custodian: str("Bitso"),
		},
	}

	for i := range txns {
		txns[i].Currency = "MXN"
		class := allocation.Classify(txns[i].Ticker, txns[i].Market, txns[i].AssetKind)
		txns[i].AssetClass = &class
	}
	return txns
}
