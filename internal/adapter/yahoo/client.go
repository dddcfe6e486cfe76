// Package yahoo fetches stock quotes from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rahulnsecc/AI-4-all/internal/port/datafetch"
	"github.com/rahulnsecc/AI-4-all/internal/resilience"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client implements datafetch.Fetcher for finance quotes.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a Yahoo Finance client. baseURL is overridable for tests.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// chartResponse is the subset of the chart API response we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"chartPreviousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch retrieves the latest quote for sel.Query (a ticker symbol).
func (c *Client) Fetch(ctx context.Context, sel datafetch.Selector) (*datafetch.Result, error) {
	if sel.Query == "" {
		return nil, &datafetch.Error{Code: "bad_request", Message: "empty ticker symbol"}
	}

	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", c.baseURL, url.PathEscape(sel.Query))

	var body []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", "agenthub/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &datafetch.Error{Code: "unreachable", Message: err.Error()}
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &datafetch.Error{Code: "read_failed", Message: err.Error()}
		}
		if resp.StatusCode == http.StatusNotFound {
			return &datafetch.Error{Code: "not_found", Message: "unknown symbol " + sel.Query}
		}
		if resp.StatusCode >= 400 {
			return &datafetch.Error{
				Code:    strconv.Itoa(resp.StatusCode),
				Message: string(data),
			}
		}
		body = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
	} else if err := call(); err != nil {
		return nil, err
	}

	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, &datafetch.Error{Code: "bad_response", Message: err.Error()}
	}
	if cr.Chart.Error != nil {
		return nil, &datafetch.Error{Code: cr.Chart.Error.Code, Message: cr.Chart.Error.Description}
	}
	if len(cr.Chart.Result) == 0 {
		return nil, &datafetch.Error{Code: "not_found", Message: "no quote data for " + sel.Query}
	}

	meta := cr.Chart.Result[0].Meta
	change := meta.RegularMarketPrice - meta.PreviousClose
	pct := 0.0
	if meta.PreviousClose != 0 {
		pct = change / meta.PreviousClose * 100
	}

	return &datafetch.Result{
		Source: "yahoo-finance",
		Summary: fmt.Sprintf("%s %.2f %s (%+.2f, %+.2f%%)",
			meta.Symbol, meta.RegularMarketPrice, meta.Currency, change, pct),
		Fields: map[string]string{
			"symbol":         meta.Symbol,
			"price":          strconv.FormatFloat(meta.RegularMarketPrice, 'f', 2, 64),
			"currency":       meta.Currency,
			"previous_close": strconv.FormatFloat(meta.PreviousClose, 'f', 2, 64),
		},
	}, nil
}
