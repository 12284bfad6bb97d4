package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"folio/internal/models"
)

// Converter turns foreign-currency amounts into the base currency using a
// currency-pair pseudo-instrument priced through the resolver.
//
// The rate is looked up at the snapshot date and applied uniformly to every
// accumulated component, so converted figures are a present-value restatement,
// not a cash-flow-accurate translation at each transaction's own date.
type Converter struct {
	base      string
	pairs     map[string]string
	resolver  *Resolver
	coverFrom time.Time
}

// DefaultPairs maps each supported foreign currency to its pseudo-instrument.
func DefaultPairs() map[string]string {
	return map[string]string{"USD": "USD000UTSTOM"}
}

// NewConverter builds a converter for one run. coverFrom is the ledger's first
// transaction date; pair history is ensured from there regardless of which
// instrument triggers the lookup.
func NewConverter(base string, pairs map[string]string, resolver *Resolver, coverFrom time.Time) *Converter {
	return &Converter{base: base, pairs: pairs, resolver: resolver, coverFrom: coverFrom}
}

// Rate returns base-currency units per one unit of currency as of date.
func (c *Converter) Rate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	if currency == c.base {
		return decimal.NewFromInt(1), nil
	}
	symbol, ok := c.pairs[currency]
	if !ok {
		return decimal.Decimal{}, &models.UnsupportedCurrencyError{Currency: currency}
	}
	if err := c.resolver.EnsureCovered(ctx, symbol, c.coverFrom); err != nil {
		return decimal.Decimal{}, err
	}
	return c.resolver.PriceAsOf(symbol, date), nil
}

// ToBase converts amount from currency into the base currency as of date.
func (c *Converter) ToBase(ctx context.Context, amount decimal.Decimal, currency string, date time.Time) (decimal.Decimal, error) {
	rate, err := c.Rate(ctx, currency, date)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return amount.Mul(rate), nil
}
