package tipgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"mindfuleat/internal/metrics"
	"mindfuleat/internal/ready"
)

// FallbackTip is returned whenever the generation service cannot produce text.
const FallbackTip = "Try eating slowly and paying attention to each bite today."

// MockTip is the fixed text produced in mock mode.
const MockTip = "Remember to hydrate and appreciate each bite today."

var ErrUpstreamUnavailable = errors.New("tip service unavailable")

const (
	defaultTimeout = 60 * time.Second
	tipMarker      = "Tip:"
)

// stopMarkers end the tip when the model echoes its prompt template.
var stopMarkers = []string{"###", "Input:", "Response:", "Instruction:", "Dominant Trait:", "Eating Behavior:"}

const promptTemplate = `### Instruction:
Generate a short, personalized mindful eating tip based on the user's dominant trait and selected eating behavior.

### Input:
Dominant Trait: %s
Eating Behavior: %s

### Response:
Tip:`

type Config struct {
	URL               string
	Timeout           time.Duration
	MaxNewTokens      int
	Temperature       float64
	TopP              float64
	RepetitionPenalty float64
	Mock              bool
}

type generateRequest struct {
	Prompt            string  `json:"prompt"`
	MaxNewTokens      int     `json:"max_new_tokens"`
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type Client struct {
	cfg     Config
	http    *http.Client
	gate    *ready.Gate
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewClient(cfg Config, gate *ready.Gate, logger *zap.Logger, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxNewTokens <= 0 {
		cfg.MaxNewTokens = 80
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.TopP == 0 {
		cfg.TopP = 0.9
	}
	if cfg.RepetitionPenalty == 0 {
		cfg.RepetitionPenalty = 1.1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		gate:    gate,
		logger:  logger,
		metrics: m,
	}
}

// Prompt renders the generation prompt for a trait and behavior.
func Prompt(trait, behavior string) string {
	return fmt.Sprintf(promptTemplate, trait, behavior)
}

// Generate returns one sentence of advice. It always returns some text.
func (c *Client) Generate(ctx context.Context, trait, behavior string) string {
	if c.cfg.Mock {
		return MockTip
	}
	tip, err := c.Try(ctx, trait, behavior)
	if err != nil {
		c.logger.Warn("tip generation failed, using fallback tip",
			zap.Error(err),
			zap.String("trait", trait),
			zap.String("behavior", behavior),
		)
		return FallbackTip
	}
	return tip
}

// Try makes a single attempt against the generation service.
func (c *Client) Try(ctx context.Context, trait, behavior string) (string, error) {
	if err := c.gate.Wait(ctx); err != nil {
		c.metrics.IncFallback("tip", "not_ready")
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	start := time.Now()
	raw, reason, err := c.call(ctx, generateRequest{
		Prompt:            Prompt(trait, behavior),
		MaxNewTokens:      c.cfg.MaxNewTokens,
		Temperature:       c.cfg.Temperature,
		TopP:              c.cfg.TopP,
		RepetitionPenalty: c.cfg.RepetitionPenalty,
	})
	if err != nil {
		c.metrics.ObserveRemoteCall("tip", "error", time.Since(start))
		c.metrics.IncFallback("tip", reason)
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	c.metrics.ObserveRemoteCall("tip", "ok", time.Since(start))

	tip := Extract(raw)
	if tip == "" {
		c.metrics.IncFallback("tip", "empty")
		return "", fmt.Errorf("%w: empty tip in response", ErrUpstreamUnavailable)
	}
	return tip, nil
}

func (c *Client) call(ctx context.Context, body generateRequest) (string, string, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return "", "encode", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(b))
	if err != nil {
		return "", "request", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "transport", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", "status", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "decode", err
	}
	return out.Response, "", nil
}

// Extract pulls the tip out of raw model output: the text after the last
// "Tip:" marker, cut at the first stop marker that follows it.
func Extract(raw string) string {
	text := raw
	if i := strings.LastIndex(text, tipMarker); i >= 0 {
		text = text[i+len(tipMarker):]
	}
	cut := len(text)
	for _, m := range stopMarkers {
		if i := strings.Index(text, m); i >= 0 && i < cut {
			cut = i
		}
	}
	return strings.TrimSpace(text[:cut])
}
