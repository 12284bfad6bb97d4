package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/database"
	"folio/internal/models"
)

func d(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func pt(date string, close float64) models.PricePoint {
	return models.PricePoint{Time: d(date), Close: dec(close)}
}

// fakeSource serves canned candles keyed by instrument id and counts calls.
type fakeSource struct {
	candles    map[string][]models.PricePoint
	searches   int
	fetches    int
	failSearch bool
	failFetch  bool
}

func (f *fakeSource) Search(_ context.Context, symbol string) (string, error) {
	f.searches++
	if f.failSearch {
		return "", errors.New("ticker not found")
	}
	return symbol + "-id", nil
}

func (f *fakeSource) DailyCandles(_ context.Context, id string, from, to time.Time) ([]models.PricePoint, error) {
	f.fetches++
	if f.failFetch {
		return nil, errors.New("upstream unavailable")
	}
	res := []models.PricePoint{}
	for _, p := range f.candles[id] {
		if !p.Time.Before(from) && p.Time.Before(to.AddDate(0, 0, 1)) {
			res = append(res, p)
		}
	}
	return res, nil
}

func newTestResolver(src *fakeSource, now string) (*Resolver, *database.MemoryStore) {
	cache := database.NewMemoryStore()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	r := NewResolver(cache, src, log)
	r.now = func() time.Time { return d(now) }
	return r, cache
}

func TestChunkRangesAnchoredOneYearStrides(t *testing.T) {
	ranges := ChunkRanges(d("2017-03-15"), d("2019-06-01"))
	require.Len(t, ranges, 3)
	assert.Equal(t, d("2017-03-15"), ranges[0].From)
	assert.Equal(t, d("2018-03-15"), ranges[0].To)
	assert.Equal(t, d("2018-03-16"), ranges[1].From)
	assert.Equal(t, d("2019-03-16"), ranges[1].To)
	assert.Equal(t, d("2019-03-17"), ranges[2].From)
	assert.Equal(t, d("2019-06-01"), ranges[2].To)
}

func TestChunkRangesSingleShortStride(t *testing.T) {
	ranges := ChunkRanges(d("2019-05-20"), d("2019-06-01"))
	require.Len(t, ranges, 1)
	assert.Equal(t, d("2019-05-20"), ranges[0].From)
	assert.Equal(t, d("2019-06-01"), ranges[0].To)
}

func TestEnsureCoveredFetchesEachChunkOnce(t *testing.T) {
	src := &fakeSource{candles: map[string][]models.PricePoint{
		"SBER-id": {pt("2017-03-15", 100), pt("2018-06-01", 120), pt("2019-05-30", 130)},
	}}
	r, _ := newTestResolver(src, "2019-06-01")

	require.NoError(t, r.EnsureCovered(context.Background(), "SBER", d("2017-03-15")))
	assert.Equal(t, 3, src.fetches, "one fetch per one-year stride")
	assert.Equal(t, 1, src.searches, "instrument id resolved once")

	// Second pass over the same window: everything already covered.
	require.NoError(t, r.EnsureCovered(context.Background(), "SBER", d("2017-03-15")))
	assert.Equal(t, 3, src.fetches)
}

func TestEnsureCoveredPrepopulatedChunkNeverRefetched(t *testing.T) {
	src := &fakeSource{candles: map[string][]models.PricePoint{
		"SBER-id": {pt("2019-05-25", 101)},
	}}
	r, cache := newTestResolver(src, "2019-06-01")

	// Same exact key the resolver will walk.
	require.NoError(t, cache.Put(context.Background(), "SBER", d("2019-05-20"), d("2019-06-01"),
		[]models.PricePoint{pt("2019-05-25", 101)}))

	require.NoError(t, r.EnsureCovered(context.Background(), "SBER", d("2019-05-20")))
	assert.Equal(t, 0, src.fetches)
	assert.Equal(t, 0, src.searches)
}

func TestEnsureCoveredSurvivesResolverRestartViaCache(t *testing.T) {
	src := &fakeSource{candles: map[string][]models.PricePoint{
		"SBER-id": {pt("2019-05-25", 101)},
	}}
	r, cache := newTestResolver(src, "2019-06-01")
	require.NoError(t, r.EnsureCovered(context.Background(), "SBER", d("2019-05-20")))
	require.Equal(t, 1, src.fetches)

	// Fresh resolver against the same cache: chunk served from storage.
	r2 := NewResolver(cache, src, logrus.New())
	r2.now = func() time.Time { return d("2019-06-01") }
	require.NoError(t, r2.EnsureCovered(context.Background(), "SBER", d("2019-05-20")))
	assert.Equal(t, 1, src.fetches)
	assert.True(t, r2.PriceAsOf("SBER", d("2019-05-26")).Equal(dec(101)))
}

func TestPriceAsOfLatestPointAtOrBefore(t *testing.T) {
	src := &fakeSource{candles: map[string][]models.PricePoint{
		"SBER-id": {pt("2019-01-01", 100), pt("2019-01-05", 110)},
	}}
	r, _ := newTestResolver(src, "2019-01-10")
	require.NoError(t, r.EnsureCovered(context.Background(), "SBER", d("2019-01-01")))

	assert.True(t, r.PriceAsOf("SBER", d("2018-12-31")).IsZero(), "before trading started")
	assert.True(t, r.PriceAsOf("SBER", d("2019-01-01")).Equal(dec(100)))
	assert.True(t, r.PriceAsOf("SBER", d("2019-01-03")).Equal(dec(100)), "carries last close forward")
	assert.True(t, r.PriceAsOf("SBER", d("2019-01-05")).Equal(dec(110)))
	assert.True(t, r.PriceAsOf("SBER", d("2019-01-09")).Equal(dec(110)))
}

func TestMergePointsDeduplicatesBoundaryDays(t *testing.T) {
	merged := mergePoints([]models.PricePoint{
		pt("2019-01-03", 103),
		pt("2019-01-01", 101),
		pt("2019-01-03", 103),
		pt("2019-01-02", 102),
	})
	require.Len(t, merged, 3)
	assert.Equal(t, d("2019-01-01"), merged[0].Time)
	assert.Equal(t, d("2019-01-02"), merged[1].Time)
	assert.Equal(t, d("2019-01-03"), merged[2].Time)
}

func TestEnsureCoveredSearchFailureIsDataSourceError(t *testing.T) {
	src := &fakeSource{failSearch: true}
	r, _ := newTestResolver(src, "2019-06-01")
	err := r.EnsureCovered(context.Background(), "NOPE", d("2019-01-01"))
	require.Error(t, err)
	var dse *models.DataSourceError
	assert.ErrorAs(t, err, &dse)
	assert.Equal(t, "NOPE", dse.Symbol)
}

func TestEnsureCoveredFetchFailureIsDataSourceError(t *testing.T) {
	src := &fakeSource{failFetch: true}
	r, _ := newTestResolver(src, "2019-06-01")
	err := r.EnsureCovered(context.Background(), "SBER", d("2019-01-01"))
	require.Error(t, err)
	var dse *models.DataSourceError
	assert.ErrorAs(t, err, &dse)
}

func TestTrimClassSuffix(t *testing.T) {
	assert.Equal(t, "SBER", TrimClassSuffix("SBER:RX"))
	assert.Equal(t, "SBER", TrimClassSuffix("SBER"))
	assert.Equal(t, "BRK", TrimClassSuffix("BRK:B:US"))
}
