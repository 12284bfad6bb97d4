package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Operation string

const (
	OpBuy  Operation = "BUY"
	OpSell Operation = "SELL"
)

// Kind values follow the export format's single-letter type codes.
type Kind string

const (
	KindEquity   Kind = "S"
	KindBond     Kind = "B"
	KindDividend Kind = "D"
)

// Transaction is one immutable ledger entry. Quantity, Price, Nominal and Fee
// stay denominated in the transaction's own Currency until conversion at
// valuation time. For bonds Price is percent of Nominal, not an absolute amount.
type Transaction struct {
	Date      time.Time       `json:"date"`
	Ticker    string          `json:"ticker"`
	Asset     string          `json:"asset"`
	Operation Operation       `json:"operation"`
	Kind      Kind            `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Nominal   decimal.Decimal `json:"nominal"`
	Fee       decimal.Decimal `json:"fee"`
	Currency  string          `json:"currency"`
}

// PricePoint is one instrument's closing price for one trading day.
type PricePoint struct {
	Time  time.Time       `json:"time"`
	Close decimal.Decimal `json:"close"`
}

// InstrumentValuation is the derived state of one instrument as of one day,
// all monetary fields in the base currency.
type InstrumentValuation struct {
	Transactions int             `json:"transactions"`
	Quantity     decimal.Decimal `json:"quantity"`
	Spent        decimal.Decimal `json:"spent"`
	Got          decimal.Decimal `json:"got"`
	Dividends    decimal.Decimal `json:"dividends"`
	Fees         decimal.Decimal `json:"fees"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	CurrentValue decimal.Decimal `json:"current_value"`
	Outcome      decimal.Decimal `json:"outcome"`
	Income       decimal.Decimal `json:"income"`
	Total        decimal.Decimal `json:"total"`
	TotalReturn  decimal.Decimal `json:"total_return"`
}

// DailySnapshot maps every ledger instrument to its valuation as of Date.
type DailySnapshot struct {
	Date        string                         `json:"date"`
	Instruments map[string]InstrumentValuation `json:"instruments"`
}

// ModelingError means the ledger contains an (operation, kind) combination the
// replay engine does not understand. Always fatal for the run.
type ModelingError struct {
	Ticker    string
	Operation Operation
	Kind      Kind
}

func (e *ModelingError) Error() string {
	return fmt.Sprintf("unsupported transaction %s/%s for %q", e.Operation, e.Kind, e.Ticker)
}

// DataSourceError means a remote price lookup failed or a symbol could not be
// resolved to a tradable instrument. Fatal for the run, no retry.
type DataSourceError struct {
	Symbol string
	Err    error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("price data unavailable for %q: %v", e.Symbol, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// UnsupportedCurrencyError means the ledger references a currency with no
// conversion path to the base currency.
type UnsupportedCurrencyError struct {
	Currency string
}

func (e *UnsupportedCurrencyError) Error() string {
	return fmt.Sprintf("no conversion path for currency %q", e.Currency)
}
