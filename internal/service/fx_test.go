package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/models"
)

func TestRateBaseCurrencyIsOne(t *testing.T) {
	r, _ := newTestResolver(&fakeSource{}, "2019-06-01")
	fx := NewConverter("RUB", DefaultPairs(), r, d("2019-01-01"))

	rate, err := fx.Rate(context.Background(), "RUB", d("2019-03-01"))
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec(1)))

	amount, err := fx.ToBase(context.Background(), dec(123.45), "RUB", d("2019-03-01"))
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec(123.45)))
}

func TestRateForeignCurrencyUsesPairInstrument(t *testing.T) {
	src := &fakeSource{candles: map[string][]models.PricePoint{
		"USD000UTSTOM-id": {pt("2019-01-01", 70), pt("2019-03-01", 90)},
	}}
	r, _ := newTestResolver(src, "2019-06-01")
	fx := NewConverter("RUB", DefaultPairs(), r, d("2019-01-01"))

	rate, err := fx.Rate(context.Background(), "USD", d("2019-03-15"))
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec(90)), "rate: %s", rate)

	// A native 100 at a 90 rate restates to 9000 in base currency.
	amount, err := fx.ToBase(context.Background(), dec(100), "USD", d("2019-03-15"))
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec(9000)), "amount: %s", amount)
}

func TestRatePairHistoryEnsuredFromCoverFrom(t *testing.T) {
	src := &fakeSource{candles: map[string][]models.PricePoint{
		"USD000UTSTOM-id": {pt("2018-01-05", 60)},
	}}
	r, _ := newTestResolver(src, "2019-06-01")
	fx := NewConverter("RUB", DefaultPairs(), r, d("2018-01-01"))

	rate, err := fx.Rate(context.Background(), "USD", d("2019-06-01"))
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec(60)))
	// 2018-01-01..2019-06-01 spans two anchored strides.
	assert.Equal(t, 2, src.fetches)
}

func TestUnsupportedCurrencyIsHardStop(t *testing.T) {
	r, _ := newTestResolver(&fakeSource{}, "2019-06-01")
	fx := NewConverter("RUB", DefaultPairs(), r, d("2019-01-01"))

	_, err := fx.Rate(context.Background(), "EUR", d("2019-03-01"))
	require.Error(t, err)
	var uce *models.UnsupportedCurrencyError
	require.ErrorAs(t, err, &uce)
	assert.Equal(t, "EUR", uce.Currency)
}

func TestRateZeroBeforePairTrading(t *testing.T) {
	src := &fakeSource{candles: map[string][]models.PricePoint{
		"USD000UTSTOM-id": {pt("2019-03-01", 90)},
	}}
	r, _ := newTestResolver(src, "2019-06-01")
	fx := NewConverter("RUB", DefaultPairs(), r, d("2019-01-01"))

	rate, err := fx.Rate(context.Background(), "USD", d("2019-02-01"))
	require.NoError(t, err)
	assert.True(t, rate.IsZero(), "no pair point at or before the date yet")
}
