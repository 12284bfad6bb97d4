// Package quotes talks to the price-history API: symbol search plus daily
// candles. The valuation engine only reaches it through the price resolver,
// which keeps individual requests to at most a one-year range.
package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"folio/internal/models"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logrus.Logger
}

func NewClient(baseURL, token string, log *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

type searchResponse struct {
	Payload struct {
		Instruments []struct {
			FIGI   string `json:"figi"`
			Ticker string `json:"ticker"`
		} `json:"instruments"`
	} `json:"payload"`
}

type candlesResponse struct {
	Payload struct {
		Candles []struct {
			Close decimal.Decimal `json:"c"`
			Time  time.Time       `json:"time"`
		} `json:"candles"`
	} `json:"payload"`
}

// Search resolves a ticker to the instrument id used by the candles endpoint.
func (c *Client) Search(ctx context.Context, symbol string) (string, error) {
	var res searchResponse
	q := url.Values{"ticker": {symbol}}
	if err := c.get(ctx, "/market/search/by-ticker", q, &res); err != nil {
		return "", err
	}
	for _, inst := range res.Payload.Instruments {
		if inst.Ticker == symbol {
			return inst.FIGI, nil
		}
	}
	if len(res.Payload.Instruments) > 0 {
		return res.Payload.Instruments[0].FIGI, nil
	}
	return "", fmt.Errorf("no instrument found for ticker %q", symbol)
}

// DailyCandles fetches day-interval candles for [from, to] and returns them as
// price points in the order the API sent them.
func (c *Client) DailyCandles(ctx context.Context, instrumentID string, from, to time.Time) ([]models.PricePoint, error) {
	var res candlesResponse
	q := url.Values{
		"figi":     {instrumentID},
		"from":     {from.Format(time.RFC3339)},
		"to":       {to.Format(time.RFC3339)},
		"interval": {"day"},
	}
	if err := c.get(ctx, "/market/candles", q, &res); err != nil {
		return nil, err
	}
	points := make([]models.PricePoint, 0, len(res.Payload.Candles))
	for _, cd := range res.Payload.Candles {
		points = append(points, models.PricePoint{Time: cd.Time, Close: cd.Close})
	}
	c.log.Debugf("fetched %d candles for %s %s..%s", len(points), instrumentID,
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	return points, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
