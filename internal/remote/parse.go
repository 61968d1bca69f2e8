package remote

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BalanceStatus tags the outcome of parsing a delimited balance response.
type BalanceStatus int

const (
	// BalanceOK means usable price data was returned.
	BalanceOK BalanceStatus = iota
	// BalanceEmpty means the backend had no usable data for the item.
	BalanceEmpty
	// BalanceMalformed means fields were present but not parseable.
	BalanceMalformed
)

// ItemBalance is the positional payload of a balance response:
// price, quantity available, tax mode.
type ItemBalance struct {
	Price        decimal.Decimal
	QtyAvailable decimal.Decimal
	TaxMode      string
}

// BalanceResult is the tagged result handed to the domain layer. Nothing
// untyped crosses this boundary.
type BalanceResult struct {
	Status  BalanceStatus
	Balance ItemBalance
}

// ParseBalance decodes the backend's pipe-delimited balance line. A field
// count above three means the backend echoed an error page or banner, which
// is "no usable data" rather than a failure to surface.
func ParseBalance(raw string) BalanceResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return BalanceResult{Status: BalanceEmpty}
	}

	fields := strings.Split(trimmed, "|")
	if len(fields) > 3 {
		return BalanceResult{Status: BalanceEmpty}
	}

	price, err := decimal.NewFromString(strings.TrimSpace(fields[0]))
	if err != nil {
		return BalanceResult{Status: BalanceMalformed}
	}

	balance := ItemBalance{Price: price}

	if len(fields) > 1 {
		qty, err := decimal.NewFromString(strings.TrimSpace(fields[1]))
		if err != nil {
			return BalanceResult{Status: BalanceMalformed}
		}
		balance.QtyAvailable = qty
	}
	if len(fields) > 2 {
		balance.TaxMode = strings.TrimSpace(fields[2])
	}

	return BalanceResult{Status: BalanceOK, Balance: balance}
}
