// Package llm talks to an OpenAI-compatible chat-completion API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"convolab/config"
)

// SystemPrompt is sent as the first message of every conversation.
const SystemPrompt = "You are a helpful assistant."

// maxErrorBody caps how much of an upstream error body is kept.
const maxErrorBody = 4096

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTimeout
	OutcomeTransportError
	OutcomeUpstreamError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeUpstreamError:
		return "upstream_error"
	default:
		return "unknown"
	}
}

// Result is the outcome of one completion round trip.
// Text is set for OutcomeSuccess, Status and Body for OutcomeUpstreamError,
// and Err for every other outcome.
type Result struct {
	Outcome Outcome
	Text    string
	Status  int
	Body    string
	Err     error
}

func (r Result) OK() bool { return r.Outcome == OutcomeSuccess }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Client sends prompts to the completion endpoint. It never retries.
type Client struct {
	apiURL     string
	apiKey     string
	model      string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client; its Timeout is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a client from cfg. A missing API key is an error.
func NewClient(cfg config.LLMConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, config.ErrMissingAPIKey
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = config.DefaultAPIURL
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultModel
	}

	c := &Client{
		apiURL:     apiURL,
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DefaultModel returns the model used when callers pass an empty one.
func (c *Client) DefaultModel() string {
	return c.model
}

// Complete sends prompt under the fixed system instruction and returns the
// first choice's content. An empty model selects the configured default.
func (c *Client) Complete(ctx context.Context, prompt, model string) Result {
	if model == "" {
		model = c.model
	}

	payload, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return Result{Outcome: OutcomeTransportError, Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return Result{Outcome: OutcomeTransportError, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportFailure(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportFailure(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{
			Outcome: OutcomeUpstreamError,
			Status:  resp.StatusCode,
			Body:    truncate(body),
			Err:     fmt.Errorf("completion api returned %d", resp.StatusCode),
		}
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Result{
			Outcome: OutcomeUpstreamError,
			Status:  resp.StatusCode,
			Body:    truncate(body),
			Err:     fmt.Errorf("decode response: %w", err),
		}
	}
	if len(out.Choices) == 0 {
		return Result{
			Outcome: OutcomeUpstreamError,
			Status:  resp.StatusCode,
			Body:    truncate(body),
			Err:     errors.New("no choices in response"),
		}
	}

	return Result{Outcome: OutcomeSuccess, Text: out.Choices[0].Message.Content, Status: resp.StatusCode}
}

func transportFailure(err error) Result {
	if isTimeout(err) {
		return Result{Outcome: OutcomeTimeout, Err: err}
	}
	return Result{Outcome: OutcomeTransportError, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}
