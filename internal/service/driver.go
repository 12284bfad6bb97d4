package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"folio/internal/ledger"
	"folio/internal/models"
)

// Driver walks the historical window one calendar day at a time and builds the
// full snapshot series. Strictly sequential across days and instruments: the
// resolver issues one fetch at a time and the cache expects a single writer.
type Driver struct {
	resolver *Resolver
	base     string
	pairs    map[string]string
	start    time.Time
	now      func() time.Time
	log      *logrus.Logger
}

func NewDriver(resolver *Resolver, base string, pairs map[string]string, start time.Time, log *logrus.Logger) *Driver {
	return &Driver{
		resolver: resolver,
		base:     base,
		pairs:    pairs,
		start:    start,
		now:      time.Now,
		log:      log,
	}
}

// Run recomputes the whole series from scratch. Any failure aborts the run and
// the partial series is discarded; there are no per-instrument partial results.
func (d *Driver) Run(ctx context.Context, txs []models.Transaction) ([]models.DailySnapshot, error) {
	tickers := ledger.Tickers(txs)
	d.log.Debugf("valuation window %s..%s, %d instruments", day(d.start).Format(dayFormat),
		day(d.now()).Format(dayFormat), len(tickers))
	var fx *Converter
	if len(txs) > 0 {
		fx = NewConverter(d.base, d.pairs, d.resolver, txs[0].Date)
	}

	series := []models.DailySnapshot{}
	for date := day(d.start); !date.After(day(d.now())); date = date.AddDate(0, 0, 1) {
		snap := models.DailySnapshot{
			Date:        date.Format(dayFormat),
			Instruments: map[string]models.InstrumentValuation{},
		}
		for _, ticker := range tickers {
			v, err := d.valueInstrument(ctx, txs, ticker, date, fx)
			if err != nil {
				return nil, fmt.Errorf("valuing %s on %s: %w", ticker, snap.Date, err)
			}
			snap.Instruments[ticker] = v
		}
		series = append(series, snap)
	}
	return series, nil
}

func (d *Driver) valueInstrument(ctx context.Context, txs []models.Transaction, ticker string, date time.Time, fx *Converter) (models.InstrumentValuation, error) {
	var history []models.Transaction
	for _, t := range txs {
		if (t.Ticker == ticker || t.Asset == ticker) && !day(t.Date).After(date) {
			history = append(history, t)
		}
	}

	agg, err := Replay(ticker, history)
	if err != nil {
		return models.InstrumentValuation{}, err
	}
	v := models.InstrumentValuation{
		Transactions: agg.Transactions,
		Quantity:     agg.Quantity,
		Spent:        agg.Spent,
		Got:          agg.Got,
		Dividends:    agg.Dividends,
		Fees:         agg.Fees,
	}

	if len(history) > 0 {
		symbol := TrimClassSuffix(ticker)
		if err := d.resolver.EnsureCovered(ctx, symbol, history[0].Date); err != nil {
			return models.InstrumentValuation{}, err
		}
		v.CurrentPrice = d.resolver.PriceAsOf(symbol, date)

		// One rate at the snapshot date, applied to every component. The
		// currency of the first transaction decides the instrument's currency.
		rate, err := fx.Rate(ctx, history[0].Currency, date)
		if err != nil {
			return models.InstrumentValuation{}, err
		}
		v.Spent = v.Spent.Mul(rate)
		v.Got = v.Got.Mul(rate)
		v.Dividends = v.Dividends.Mul(rate)
		v.Fees = v.Fees.Mul(rate)
		v.CurrentPrice = v.CurrentPrice.Mul(rate)
	}

	v.CurrentValue = v.Quantity.Mul(v.CurrentPrice)
	v.Outcome = v.Spent.Add(v.Fees)
	v.Income = v.Got.Add(v.Dividends)
	v.Total = v.CurrentValue.Add(v.Income).Sub(v.Outcome)
	if v.Outcome.Sign() > 0 {
		v.TotalReturn = v.Total.Div(v.Outcome)
	}
	return v, nil
}
