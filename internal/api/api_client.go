package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// CompletionRequest is the OpenAI-compatible completion request body.
// Temperature is fixed at 0 and Stream at false by the caller to keep runs
// deterministic and comparable.
type CompletionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
}

// CompletionChoice is a single generated completion.
type CompletionChoice struct {
	Text         string `json:"text"`
	Index        int    `json:"index"`
	FinishReason string `json:"finish_reason"`
}

// CompletionUsage is the token accounting block of a completion response.
type CompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is the OpenAI-compatible completion response. Usage is
// a pointer so an absent usage object is distinguishable from a zero count.
type CompletionResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   *CompletionUsage   `json:"usage,omitempty"`
}

// CompletionTokens returns the generated token count. The server-reported
// usage.completion_tokens is used verbatim when present; otherwise the count
// degrades to the number of whitespace-delimited fields in the returned
// text, and 0 when no text came back. Missing usage is never an error.
func (r *CompletionResponse) CompletionTokens() int {
	if r.Usage != nil {
		return r.Usage.CompletionTokens
	}
	if len(r.Choices) == 0 {
		return 0
	}
	return len(strings.Fields(r.Choices[0].Text))
}

// Client issues completion requests against vLLM base URLs. A single Client
// is shared by all concurrent requests in a run.
type Client struct {
	httpClient *http.Client
}

// NewClient returns a Client whose requests are bounded by timeout. The
// timeout covers the full cycle including reading the response body.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Complete POSTs a completion request to baseURL and decodes the response.
// A non-2xx status or a timeout is returned as an error; retries, if any,
// belong to the caller.
func (c *Client) Complete(ctx context.Context, baseURL string, req CompletionRequest) (*CompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(baseURL, "/")+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(snippet))
	}

	var completion CompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decoding completion response: %w", err)
	}
	return &completion, nil
}

// DiscoverModel retrieves the first model served at baseURL. Used when no
// model was named on the command line.
func DiscoverModel(ctx context.Context, baseURL, apiKey string) (string, error) {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimRight(baseURL, "/") + "/v1"
	client := openai.NewClientWithConfig(config)

	modelList, err := client.ListModels(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list models: %w", err)
	}
	if len(modelList.Models) == 0 {
		return "", fmt.Errorf("no models available at %s", baseURL)
	}
	return modelList.Models[0].ID, nil
}

// MeasureLatency estimates the base network round-trip to baseURL by
// averaging the TCP connect time over the given number of attempts. The
// result is in milliseconds.
func MeasureLatency(baseURL string, attempts int) (float64, error) {
	if attempts < 1 {
		return 0, fmt.Errorf("attempts must be positive, got %d", attempts)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return 0, fmt.Errorf("parsing base URL: %w", err)
	}

	host := u.Host
	if u.Port() == "" {
		if u.Scheme == "https" {
			host = net.JoinHostPort(u.Hostname(), "443")
		} else {
			host = net.JoinHostPort(u.Hostname(), "80")
		}
	}

	var total time.Duration
	for i := 0; i < attempts; i++ {
		start := time.Now()
		conn, err := net.DialTimeout("tcp", host, 2*time.Second)
		if err != nil {
			return 0, fmt.Errorf("connecting to %s: %w", host, err)
		}
		total += time.Since(start)
		conn.Close()
	}
	return total.Seconds() * 1000 / float64(attempts), nil
}
