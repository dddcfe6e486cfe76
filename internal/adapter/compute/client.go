// Package compute provides an HTTP client for the cloud compute API. It
// implements both the utilization metrics port and the actuator port used by
// cost scans.
package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rahulnsecc/AI-4-all/internal/port/action"
	"github.com/rahulnsecc/AI-4-all/internal/port/datafetch"
	"github.com/rahulnsecc/AI-4-all/internal/resilience"
)

// Client talks to the compute provider API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a compute API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// ListResources returns the IDs of all VM instances visible to the API key.
func (c *Client) ListResources(ctx context.Context) ([]string, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/v1/instances", nil, "")
	if err != nil {
		return nil, err
	}

	var result struct {
		Instances []struct {
			ID string `json:"id"`
		} `json:"instances"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &datafetch.Error{Code: "bad_response", Message: err.Error()}
	}

	ids := make([]string, 0, len(result.Instances))
	for _, inst := range result.Instances {
		ids = append(ids, inst.ID)
	}
	return ids, nil
}

// FetchMetrics returns the current utilization sample for one instance.
func (c *Client) FetchMetrics(ctx context.Context, resourceID string) (*datafetch.UtilizationSample, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/v1/instances/"+resourceID+"/metrics", nil, "")
	if err != nil {
		return nil, err
	}

	var sample datafetch.UtilizationSample
	if err := json.Unmarshal(data, &sample); err != nil {
		return nil, &datafetch.Error{Code: "bad_response", Message: err.Error()}
	}
	sample.ResourceID = resourceID
	if sample.SampledAt.IsZero() {
		sample.SampledAt = time.Now().UTC()
	}
	return &sample, nil
}

// Apply issues a mutation (deallocate, downsize) against an instance. The
// idempotency key makes a repeated call for the same validated attempt a
// no-op on the provider side.
func (c *Client) Apply(ctx context.Context, resourceID, actionName, idempotencyKey string) (*action.Ack, error) {
	body, err := json.Marshal(map[string]string{"action": actionName})
	if err != nil {
		return nil, fmt.Errorf("marshal action: %w", err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/v1/instances/"+resourceID+"/actions", body, idempotencyKey)
	if err != nil {
		return nil, err
	}

	var ack action.Ack
	if err := json.Unmarshal(data, &ack); err != nil {
		return nil, &action.Error{Code: "bad_response", Message: err.Error()}
	}
	if ack.ResourceID == "" {
		ack.ResourceID = resourceID
	}
	if ack.Action == "" {
		ack.Action = actionName
	}
	if ack.AppliedAt.IsZero() {
		ack.AppliedAt = time.Now().UTC()
	}
	return &ack, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte, idempotencyKey string) ([]byte, error) {
	var result []byte
	call := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		if idempotencyKey != "" {
			req.Header.Set("Idempotency-Key", idempotencyKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return c.typedError(method, "unreachable", err.Error())
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return c.typedError(method, "read_failed", err.Error())
		}

		if resp.StatusCode >= 400 {
			code := errorCode(resp.StatusCode)
			return c.typedError(method, code, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}

// typedError returns an action.Error for mutations and a datafetch.Error for
// reads so callers can classify failures against the right port.
func (c *Client) typedError(method, code, message string) error {
	if method == http.MethodPost {
		return &action.Error{Code: code, Message: message}
	}
	return &datafetch.Error{Code: code, Message: message}
}

func errorCode(status int) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "permission_denied"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "invalid_state"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return strconv.Itoa(status)
	}
}
