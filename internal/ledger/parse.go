package ledger

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"folio/internal/models"
)

// CashTicker is the pseudo-ticker the export uses for cash movements. It is
// kept in transaction histories (a cash leg can reference an asset) but never
// valued as an instrument of its own.
const CashTicker = "MONEY"

type rawTransaction struct {
	Date      string          `json:"date"`
	Ticker    string          `json:"ticker"`
	Asset     string          `json:"asset"`
	Operation string          `json:"operation"`
	Type      string          `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Nominal   decimal.Decimal `json:"nominal"`
	Fee       decimal.Decimal `json:"fee"`
	Currency  string          `json:"currency"`
}

type export struct {
	Transactions map[string]rawTransaction `json:"transactions"`
}

// Parse decodes a bt_json portfolio export. Unknown operation or type codes
// pass through untouched; the replay engine rejects them loudly rather than
// this parser guessing at their meaning.
func Parse(data []byte) ([]models.Transaction, error) {
	var ex export
	if err := json.Unmarshal(data, &ex); err != nil {
		return nil, fmt.Errorf("decode ledger export: %w", err)
	}

	txs := make([]models.Transaction, 0, len(ex.Transactions))
	for id, raw := range ex.Transactions {
		date, err := parseDate(raw.Date)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: bad date %q: %w", id, raw.Date, err)
		}
		txs = append(txs, models.Transaction{
			Date:      date,
			Ticker:    raw.Ticker,
			Asset:     raw.Asset,
			Operation: models.Operation(raw.Operation),
			Kind:      models.Kind(raw.Type),
			Quantity:  raw.Quantity,
			Price:     raw.Price,
			Nominal:   raw.Nominal,
			Fee:       raw.Fee,
			Currency:  raw.Currency,
		})
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })
	return txs, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}

// Tickers returns the distinct non-cash tickers in first-appearance order.
// This is the working instrument set for a valuation run.
func Tickers(txs []models.Transaction) []string {
	seen := map[string]bool{}
	res := []string{}
	for _, t := range txs {
		if t.Ticker == "" || t.Ticker == CashTicker || seen[t.Ticker] {
			continue
		}
		seen[t.Ticker] = true
		res = append(res, t.Ticker)
	}
	return res
}
