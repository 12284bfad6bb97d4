package service

import (
	"github.com/shopspring/decimal"

	"folio/internal/models"
)

// Aggregate is the running state of one instrument after replaying its
// history, still in the instrument's native currency.
type Aggregate struct {
	Transactions int
	Quantity     decimal.Decimal
	Spent        decimal.Decimal
	Got          decimal.Decimal
	Dividends    decimal.Decimal
	Fees         decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Replay reduces an instrument's history, in order, into running totals.
// Exactly four (operation, kind) shapes are valid; anything else means the
// ledger holds something this engine does not model, which must abort the run
// rather than be skipped.
func Replay(ticker string, history []models.Transaction) (Aggregate, error) {
	var agg Aggregate
	for _, t := range history {
		agg.Transactions++
		switch {
		case t.Operation == models.OpBuy && t.Kind == models.KindEquity:
			agg.Quantity = agg.Quantity.Add(t.Quantity)
			agg.Spent = agg.Spent.Add(t.Price.Mul(t.Quantity))
			agg.Fees = agg.Fees.Add(t.Fee)
		case t.Operation == models.OpBuy && t.Kind == models.KindBond:
			// Bond prices are quoted as percent of nominal.
			agg.Quantity = agg.Quantity.Add(t.Quantity)
			agg.Spent = agg.Spent.Add(t.Price.Div(hundred).Mul(t.Nominal).Mul(t.Quantity))
			agg.Fees = agg.Fees.Add(t.Fee)
		case t.Operation == models.OpSell && t.Kind == models.KindEquity:
			agg.Quantity = agg.Quantity.Sub(t.Quantity)
			agg.Got = agg.Got.Add(t.Price.Mul(t.Quantity))
			agg.Fees = agg.Fees.Add(t.Fee)
		case t.Operation == models.OpBuy && t.Kind == models.KindDividend:
			// Dividend amount rides in the price field; position is untouched.
			agg.Dividends = agg.Dividends.Add(t.Price)
		default:
			return Aggregate{}, &models.ModelingError{
				Ticker: ticker, Operation: t.Operation, Kind: t.Kind,
			}
		}
	}
	return agg, nil
}
