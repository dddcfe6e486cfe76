// Package duckduckgo fetches web search results from the DuckDuckGo Instant
// Answer API.
package duckduckgo

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

const defaultBaseURL = "https://api.duckduckgo.com"

// Client implements datafetch.Fetcher for web search.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a DuckDuckGo client. baseURL is overridable for tests.
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

// answerResponse is the subset of the Instant Answer response we read.
type answerResponse struct {
	Heading       string `json:"Heading"`
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	Answer        string `json:"Answer"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Fetch runs a search for sel.Query and summarizes the best available answer.
func (c *Client) Fetch(ctx context.Context, sel datafetch.Selector) (*datafetch.Result, error) {
	if sel.Query == "" {
		return nil, &datafetch.Error{Code: "bad_request", Message: "empty search query"}
	}

	q := url.Values{}
	q.Set("q", sel.Query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	u := c.baseURL + "/?" + q.Encode()

	var body []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &datafetch.Error{Code: "unreachable", Message: err.Error()}
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &datafetch.Error{Code: "read_failed", Message: err.Error()}
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

	var ar answerResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return nil, &datafetch.Error{Code: "bad_response", Message: err.Error()}
	}

	summary := ar.Answer
	if summary == "" {
		summary = ar.AbstractText
	}
	if summary == "" && len(ar.RelatedTopics) > 0 {
		summary = ar.RelatedTopics[0].Text
	}
	if summary == "" {
		return nil, &datafetch.Error{Code: "no_results", Message: "no results for " + sel.Query}
	}

	fields := map[string]string{"query": sel.Query}
	if ar.Heading != "" {
		fields["heading"] = ar.Heading
	}
	if ar.AbstractURL != "" {
		fields["url"] = ar.AbstractURL
	}

	return &datafetch.Result{
		Source:  "duckduckgo",
		Summary: summary,
		Fields:  fields,
	}, nil
}
