package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"folio/internal/models"
)

const dayFormat = "2006-01-02"

// PriceCache stores fetched price-history chunks under exact
// (symbol, from, to) keys. Satisfied by database.Repo and database.MemoryStore.
type PriceCache interface {
	Get(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, bool, error)
	Put(ctx context.Context, symbol string, from, to time.Time, points []models.PricePoint) error
}

// CandleSource is the remote price-history collaborator.
type CandleSource interface {
	Search(ctx context.Context, symbol string) (string, error)
	DailyCandles(ctx context.Context, instrumentID string, from, to time.Time) ([]models.PricePoint, error)
}

type ChunkRange struct {
	From, To time.Time
}

// ChunkRanges splits [from, now] into one-year strides anchored at from, the
// last stride clamped to now. These exact boundaries are the cache keys, so
// callers must anchor at the same date they will look up with.
func ChunkRanges(from, now time.Time) []ChunkRange {
	from, now = day(from), day(now)
	var res []ChunkRange
	for !from.After(now) {
		to := from.AddDate(1, 0, 0)
		if to.After(now) {
			to = now
		}
		res = append(res, ChunkRange{From: from, To: to})
		from = to.AddDate(0, 0, 1)
	}
	return res
}

// Resolver answers "last known price at or before day D" for any symbol,
// backed by the chunk cache and filling gaps from the candle source. It keeps
// the merged per-symbol history in memory so the day loop pays the cache walk
// once per symbol per run, not once per day.
type Resolver struct {
	cache  PriceCache
	source CandleSource
	log    *logrus.Logger
	now    func() time.Time

	ids         map[string]string
	history     map[string][]models.PricePoint
	coveredFrom map[string]time.Time
	coveredTo   map[string]time.Time
}

func NewResolver(cache PriceCache, source CandleSource, log *logrus.Logger) *Resolver {
	return &Resolver{
		cache:       cache,
		source:      source,
		log:         log,
		now:         time.Now,
		ids:         map[string]string{},
		history:     map[string][]models.PricePoint{},
		coveredFrom: map[string]time.Time{},
		coveredTo:   map[string]time.Time{},
	}
}

// EnsureCovered walks the one-year strides from firstNeeded to now and fetches
// any chunk the cache is missing. Already-covered symbols are a no-op, so
// calling this once per day per instrument costs nothing after the first call.
func (r *Resolver) EnsureCovered(ctx context.Context, symbol string, firstNeeded time.Time) error {
	first, now := day(firstNeeded), day(r.now())
	if from, ok := r.coveredFrom[symbol]; ok && !from.After(first) && !r.coveredTo[symbol].Before(now) {
		return nil
	}

	var merged []models.PricePoint
	for _, cr := range ChunkRanges(first, now) {
		points, ok, err := r.cache.Get(ctx, symbol, cr.From, cr.To)
		if err != nil {
			return fmt.Errorf("read cached chunk %s %s..%s: %w",
				symbol, cr.From.Format(dayFormat), cr.To.Format(dayFormat), err)
		}
		if !ok {
			id, err := r.instrumentID(ctx, symbol)
			if err != nil {
				return err
			}
			points, err = r.source.DailyCandles(ctx, id, cr.From, cr.To)
			if err != nil {
				return &models.DataSourceError{Symbol: symbol, Err: err}
			}
			if err := r.cache.Put(ctx, symbol, cr.From, cr.To, points); err != nil {
				return fmt.Errorf("store chunk %s %s..%s: %w",
					symbol, cr.From.Format(dayFormat), cr.To.Format(dayFormat), err)
			}
			r.log.Debugf("fetched chunk %s %s..%s (%d points)", symbol,
				cr.From.Format(dayFormat), cr.To.Format(dayFormat), len(points))
		}
		merged = append(merged, points...)
	}

	r.history[symbol] = mergePoints(merged)
	r.coveredFrom[symbol] = first
	r.coveredTo[symbol] = now
	return nil
}

// PriceAsOf returns the close of the latest point on or before date, or zero
// if the symbol has no point that early (e.g. before it started trading).
// EnsureCovered must have been called for the symbol first.
func (r *Resolver) PriceAsOf(symbol string, date time.Time) decimal.Decimal {
	points := r.history[symbol]
	d := day(date)
	for i := len(points) - 1; i >= 0; i-- {
		if !day(points[i].Time).After(d) {
			return points[i].Close
		}
	}
	return decimal.Decimal{}
}

func (r *Resolver) instrumentID(ctx context.Context, symbol string) (string, error) {
	if id, ok := r.ids[symbol]; ok {
		return id, nil
	}
	id, err := r.source.Search(ctx, symbol)
	if err != nil {
		return "", &models.DataSourceError{Symbol: symbol, Err: err}
	}
	r.ids[symbol] = id
	return id, nil
}

// mergePoints sorts ascending and drops duplicate days. Overlapping chunks
// carry identical prices for the overlap, so either copy may be kept.
func mergePoints(points []models.PricePoint) []models.PricePoint {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	res := points[:0]
	for _, p := range points {
		if len(res) > 0 && day(res[len(res)-1].Time).Equal(day(p.Time)) {
			continue
		}
		res = append(res, p)
	}
	return res
}

// TrimClassSuffix strips the share-class suffix from an export ticker; the
// quote API only knows the bare symbol.
func TrimClassSuffix(ticker string) string {
	if i := strings.Index(ticker, ":"); i >= 0 {
		return ticker[:i]
	}
	return ticker
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
