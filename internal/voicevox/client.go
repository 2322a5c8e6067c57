package voicevox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultSpeaker is used when a character name is unknown.
const DefaultSpeaker = 3

// Characters maps voice preset names to VOICEVOX speaker ids.
var Characters = map[string]int{
	"zundamon_normal":   3,
	"zundamon_sweet":    1,
	"zundamon_tsundere": 7,
	"zundamon_sexy":     5,
	"metan_normal":      2,
	"tsumugi_normal":    8,
}

// SpeakerID resolves a character name, falling back to DefaultSpeaker.
func SpeakerID(character string) int {
	if id, ok := Characters[character]; ok {
		return id
	}
	return DefaultSpeaker
}

// Synthesizer is the narrow surface consumed by the playback queue.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, character string, speed float64) ([]byte, error)
}

// Client talks to a VOICEVOX engine over HTTP.
type Client struct {
	host         string
	client       *http.Client
	healthClient *http.Client
}

func NewClient(host string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		host:         strings.TrimRight(strings.TrimSpace(host), "/"),
		client:       &http.Client{Timeout: timeout},
		healthClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Available reports whether the engine responds on /version.
func (c *Client) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/version", nil)
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

// Synthesize renders text to WAV bytes. VOICEVOX is a two-step protocol:
// an audio query is generated first, its speedScale adjusted, then synthesized.
func (c *Client) Synthesize(ctx context.Context, text, character string, speed float64) ([]byte, error) {
	speaker := SpeakerID(character)

	query, err := c.audioQuery(ctx, text, speaker)
	if err != nil {
		return nil, err
	}
	query["speedScale"] = speed

	return c.synthesis(ctx, query, speaker)
}

func (c *Client) audioQuery(ctx context.Context, text string, speaker int) (map[string]any, error) {
	u := c.host + "/audio_query?" + url.Values{
		"text":    {text},
		"speaker": {strconv.Itoa(speaker)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create query request: %w", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("audio query: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("audio query status %d", res.StatusCode)
	}

	var query map[string]any
	if err := json.NewDecoder(res.Body).Decode(&query); err != nil {
		return nil, fmt.Errorf("decode audio query: %w", err)
	}
	return query, nil
}

func (c *Client) synthesis(ctx context.Context, query map[string]any, speaker int) ([]byte, error) {
	payload, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal audio query: %w", err)
	}

	u := c.host + "/synthesis?" + url.Values{"speaker": {strconv.Itoa(speaker)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synthesis status %d", res.StatusCode)
	}

	audio, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesis body: %w", err)
	}
	return audio, nil
}

// Speakers returns the raw speaker metadata from the engine.
func (c *Client) Speakers(ctx context.Context) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/speakers", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	res, err := c.healthClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list speakers: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speakers status %d", res.StatusCode)
	}

	var out []map[string]any
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode speakers: %w", err)
	}
	return out, nil
}
