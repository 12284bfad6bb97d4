// Package ledger acquires the raw transaction ledger from the brokerage's
// export endpoint: a form login that hands back session cookies, then a JSON
// export fetched with those cookies.
package ledger

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"folio/internal/models"
)

type Client struct {
	baseURL     string
	email       string
	password    string
	portfolioID string
	http        *http.Client
	log         *logrus.Logger
}

func NewClient(baseURL, email, password, portfolioID string, log *logrus.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		email:       email,
		password:    password,
		portfolioID: portfolioID,
		http: &http.Client{
			Timeout: 30 * time.Second,
			// The login endpoint answers with a redirect; the cookies are on
			// that response, so it must not be followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log: log,
	}
}

var cookiePattern = regexp.MustCompile(`([^=;]+)=([^=;]+)`)

func (c *Client) login(ctx context.Context) (map[string]string, error) {
	form := url.Values{
		"email":    {c.email},
		"password": {c.password},
		"login":    {""},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	cookies := map[string]string{}
	for _, raw := range resp.Header.Values("Set-Cookie") {
		if m := cookiePattern.FindStringSubmatch(raw); m != nil {
			cookies[strings.TrimSpace(m[1])] = strings.TrimSpace(m[2])
		}
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("login returned no session cookies (status %d)", resp.StatusCode)
	}
	return cookies, nil
}

// Fetch logs in, downloads the portfolio export and returns its transactions
// sorted by date ascending.
func (c *Client) Fetch(ctx context.Context) ([]models.Transaction, error) {
	cookies, err := c.login(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger login failed: %w", err)
	}

	exportURL := fmt.Sprintf("%s/tools/ajax-portfolio-export.php?id=%s&service=bt_json",
		c.baseURL, url.QueryEscape(c.portfolioID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
	if err != nil {
		return nil, err
	}
	pairs := make([]string, 0, len(cookies))
	for k, v := range cookies {
		pairs = append(pairs, k+"="+v)
	}
	req.Header.Set("Cookie", strings.Join(pairs, ";"))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger export failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ledger export returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	txs, err := Parse(body)
	if err != nil {
		return nil, err
	}
	c.log.Infof("ledger export: %d transactions", len(txs))
	return txs, nil
}
