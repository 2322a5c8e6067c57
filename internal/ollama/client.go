package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ent0n29/hibiki/internal/reliability"
)

// DeltaHandler receives streaming text fragments as they arrive.
type DeltaHandler func(delta string) error

// Generator is the narrow surface consumed by the response pipeline.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string, onDelta DeltaHandler) (string, error)
}

// Client talks to an Ollama-compatible inference server.
type Client struct {
	host          string
	model         string
	client        *http.Client
	healthClient  *http.Client
	healthTimeout time.Duration
}

func NewClient(host, model string, requestTimeout, healthTimeout time.Duration) *Client {
	if requestTimeout <= 0 {
		requestTimeout = 180 * time.Second
	}
	if healthTimeout <= 0 {
		healthTimeout = 5 * time.Second
	}
	return &Client{
		host:          strings.TrimRight(strings.TrimSpace(host), "/"),
		model:         model,
		client:        &http.Client{Timeout: requestTimeout},
		healthClient:  &http.Client{Timeout: healthTimeout},
		healthTimeout: healthTimeout,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Host returns the configured server URL.
func (c *Client) Host() string { return c.host }

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Stream bool     `json:"stream"`
	Images []string `json:"images,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate issues a blocking completion request and returns the full text.
// Failures come back classified so callers can choose fallback messaging.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, generateRequest{Model: c.model, Prompt: prompt})
}

func (c *Client) generate(ctx context.Context, genReq generateRequest) (string, error) {
	body, err := c.post(ctx, "/api/generate", genReq)
	if err != nil {
		return "", err
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", reliability.Classified(reliability.ReasonBadResponse, fmt.Errorf("decode response: %w", err))
	}
	return out.Response, nil
}

// GenerateStream issues a streaming completion request, invoking onDelta for
// each fragment, and returns the accumulated text.
func (c *Client) GenerateStream(ctx context.Context, prompt string, onDelta DeltaHandler) (string, error) {
	payload, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: true})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", reliability.Classified(reliability.ReasonBadResponse,
			fmt.Errorf("ollama status %d: %s", res.StatusCode, string(body)))
	}

	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk generateResponse
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			continue
		}
		if chunk.Response == "" {
			continue
		}
		out.WriteString(chunk.Response)
		if onDelta != nil {
			if err := onDelta(chunk.Response); err != nil {
				return "", err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", classifyTransport(fmt.Errorf("stream read: %w", err))
	}

	return out.String(), nil
}

// Healthy reports whether the server responds on /api/tags.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return false
	}
	res, err := c.healthClient.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)
	return res.StatusCode == http.StatusOK
}

func (c *Client) post(ctx context.Context, path string, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, reliability.Classified(reliability.ReasonBadResponse,
			fmt.Errorf("ollama status %d: %s", res.StatusCode, string(body)))
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, classifyTransport(fmt.Errorf("read response: %w", err))
	}
	return body, nil
}

func classifyTransport(err error) error {
	reason := reliability.Classify(err)
	if reason == reliability.ReasonBadResponse {
		// Opaque transport failures on the wire count as connectivity, not payload.
		reason = reliability.ReasonUnavailable
	}
	return reliability.Classified(reason, err)
}
