package allocation

import (
	"strings"

	"github.com/acalderon/cartera/internal/domain"
)

// Known instrument lists for automatic classification. Name matching is a
// heuristic; users can always override the tag on the transaction.

var knownFibras = []string{
	"FUNO11", "FUNO", "DANHOS13", "DANHOS", "FIHO14", "FIHO",
	"FINN13", "FINN", "FMTY14", "FMTY", "FIBRAMQ12", "FIBRAMQ",
	"FIBRAPL14", "FIBRAPL", "TERRA13", "TERRA", "FSHOP13", "FSHOP",
}

var knownCommodities = map[string]bool{
	"PAXG": true, "GLD": true, "SLV": true, "GDX": true, "IAU": true, "GOLD": true,
}

// US ETFs listed on the BMV through the SIC.
var usETFsOnBMV = map[string]bool{
	"VOO": true, "VTI": true, "SPY": true, "QQQ": true, "IVV": true,
	"VNQ": true, "VNQI": true, "BND": true, "AGG": true, "TLT": true,
	"IWM": true, "DIA": true, "ARKK": true, "XLF": true, "XLK": true,
	"XLE": true, "XLV": true, "SCHD": true,
}

var emergingMarketETFs = map[string]bool{
	"VWO": true, "IEMG": true, "EEM": true, "SCHE": true,
}

var internationalETFs = map[string]bool{
	"VEA": true, "VGK": true, "EFA": true, "IEFA": true, "VPL": true, "VXUS": true,
}

// Classify assigns an allocation bucket from the ticker, market and asset
// kind. It runs once at transaction-creation time; the result is stored on
// the row, never re-derived on reads.
func Classify(ticker string, market domain.Market, kind domain.AssetKind) string {
	base := strings.ToUpper(strings.TrimSuffix(ticker, ".MX"))

	if kind == domain.AssetCrypto || market == domain.MarketCrypto {
		// PAXG is tokenized gold, not a generic crypto holding.
		if base == "PAXG" {
			return "oro_materias_primas"
		}
		return "criptomonedas"
	}

	if knownCommodities[base] {
		return "oro_materias_primas"
	}

	if market == domain.MarketMX {
		for _, fibra := range knownFibras {
			if strings.Contains(base, fibra) {
				return "fibras"
			}
		}
		if strings.Contains(base, "FIBRA") {
			return "fibras"
		}
		if emergingMarketETFs[base] {
			return "mercados_emergentes"
		}
		if internationalETFs[base] {
			return "acciones_internacionales"
		}
		if usETFsOnBMV[base] {
			return "acciones_usa"
		}
		return "acciones_mexico"
	}

	if market == domain.MarketUS {
		return "acciones_usa"
	}

	return Unclassified
}
