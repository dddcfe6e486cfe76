// Package litellm provides an HTTP client for the LiteLLM proxy chat
// completions API. It implements the inference.Generator port.
package litellm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rahulnsecc/AI-4-all/internal/port/inference"
	"github.com/rahulnsecc/AI-4-all/internal/resilience"
)

// Transient failures (timeouts, 5xx, 429) get a bounded retry with
// exponential backoff before the error surfaces to the caller.
const (
	generateAttempts = 3
	retryBackoff     = 500 * time.Millisecond
)

// Client talks to the LiteLLM proxy.
type Client struct {
	baseURL    string
	masterKey  string
	model      string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a new LiteLLM client. model is the default model used
// when a request does not name one.
func NewClient(baseURL, masterKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		masterKey: masterKey,
		model:     model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// message is one entry of the chat completions conversation.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the request body for /chat/completions.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// chatResponse is the subset of the chat completions response we read.
type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Generate implements inference.Generator. Prior turns from req.Context are
// folded into the user prompt so the model sees the session history.
func (c *Client) Generate(ctx context.Context, req inference.Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	msgs := make([]message, 0, 2)
	if req.System != "" {
		msgs = append(msgs, message{Role: "system", Content: req.System})
	}
	prompt := req.Prompt
	if len(req.Context) > 0 {
		var buf bytes.Buffer
		buf.WriteString("Prior context:\n")
		for _, line := range req.Context {
			buf.WriteString(line)
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
		buf.WriteString(req.Prompt)
		prompt = buf.String()
	}
	msgs = append(msgs, message{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	var resp []byte
	err = resilience.Retry(ctx, generateAttempts, retryBackoff, func(err error) bool {
		ie, ok := inference.AsError(err)
		return ok && ie.Transient
	}, func() error {
		var callErr error
		resp, callErr = c.doRequest(ctx, http.MethodPost, "/chat/completions", body)
		return callErr
	})
	if err != nil {
		return "", err
	}

	var result chatResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", &inference.Error{Reason: fmt.Sprintf("unmarshal response: %v", err)}
	}
	if len(result.Choices) == 0 {
		return "", &inference.Error{Reason: "empty choices in response"}
	}
	return result.Choices[0].Message.Content, nil
}

// Health checks if the LiteLLM proxy is reachable.
func (c *Client) Health(ctx context.Context) (bool, error) {
	_, err := c.doRequest(ctx, http.MethodGet, "/health/liveliness", nil)
	return err == nil, err
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
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
		if c.masterKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.masterKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Timeouts and connection failures are worth retrying.
			return &inference.Error{Reason: err.Error(), Transient: true}
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &inference.Error{Reason: fmt.Sprintf("read response: %v", err), Transient: true}
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return &inference.Error{
				Reason:    fmt.Sprintf("litellm API error %d: %s", resp.StatusCode, string(data)),
				Transient: true,
			}
		}
		if resp.StatusCode >= 400 {
			return &inference.Error{
				Reason: fmt.Sprintf("litellm API error %d: %s", resp.StatusCode, string(data)),
			}
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			if errors.Is(err, resilience.ErrCircuitOpen) {
				return nil, &inference.Error{Reason: err.Error(), Transient: true}
			}
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
