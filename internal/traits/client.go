package traits

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"mindfuleat/internal/metrics"
	"mindfuleat/internal/ready"
)

// DefaultTrait is reported whenever the trait service cannot be used.
const DefaultTrait = "Conscientiousness"

// Names lists the Big Five traits in the order the service expects raw_traits.
var Names = []string{"Openness", "Conscientiousness", "Extraversion", "Agreeableness", "Neuroticism"}

var ErrUpstreamUnavailable = errors.New("trait service unavailable")

const (
	defaultTimeout   = 30 * time.Second
	defaultCacheSize = 512
	neutralScore     = 0.5
)

type Prediction struct {
	DominantTrait string             `json:"dominant_trait"`
	TraitScores   map[string]float64 `json:"trait_scores"`
}

// Default is the prediction used when the service fails.
func Default() Prediction {
	return Prediction{DominantTrait: DefaultTrait, TraitScores: map[string]float64{}}
}

type Config struct {
	URL       string
	Timeout   time.Duration
	CacheSize int
}

type Client struct {
	url     string
	http    *http.Client
	cache   *lru.Cache[string, Prediction]
	gate    *ready.Gate
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewClient(cfg Config, gate *ready.Gate, logger *zap.Logger, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, _ := lru.New[string, Prediction](cfg.CacheSize)
	return &Client{
		url:     cfg.URL,
		http:    &http.Client{Timeout: cfg.Timeout},
		cache:   cache,
		gate:    gate,
		logger:  logger,
		metrics: m,
	}
}

type predictRequest struct {
	Text      string    `json:"text"`
	RawTraits []float64 `json:"raw_traits,omitempty"`
}

// Predict classifies text and never fails: any problem with the service is
// logged and answered with Default().
func (c *Client) Predict(ctx context.Context, text string, prior []float64) Prediction {
	p, err := c.Try(ctx, text, prior)
	if err != nil {
		c.logger.Warn("trait prediction failed, using default trait",
			zap.Error(err),
			zap.String("default_trait", DefaultTrait),
		)
		return Default()
	}
	return p
}

// Try performs a single attempt and reports failures as ErrUpstreamUnavailable.
func (c *Client) Try(ctx context.Context, text string, prior []float64) (Prediction, error) {
	key := cacheKey(text, prior)
	if p, ok := c.cache.Get(key); ok {
		return clone(p), nil
	}
	if err := c.gate.Wait(ctx); err != nil {
		c.metrics.IncFallback("trait", "not_ready")
		return Prediction{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	start := time.Now()
	p, reason, err := c.call(ctx, predictRequest{Text: text, RawTraits: prior})
	if err != nil {
		c.metrics.ObserveRemoteCall("trait", "error", time.Since(start))
		c.metrics.IncFallback("trait", reason)
		return Prediction{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	c.metrics.ObserveRemoteCall("trait", "ok", time.Since(start))
	c.cache.Add(key, p)
	return clone(p), nil
}

func (c *Client) call(ctx context.Context, body predictRequest) (Prediction, string, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return Prediction{}, "encode", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return Prediction{}, "request", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Prediction{}, "transport", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Prediction{}, "status", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out Prediction
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Prediction{}, "decode", err
	}
	name, ok := Canonical(out.DominantTrait)
	if !ok {
		return Prediction{}, "protocol", fmt.Errorf("unknown dominant trait %q", out.DominantTrait)
	}
	out.DominantTrait = name
	for trait, score := range out.TraitScores {
		if math.IsNaN(score) || score < 0 || score > 1 {
			return Prediction{}, "protocol", fmt.Errorf("score for %s out of [0,1]: %v", trait, score)
		}
	}
	if out.TraitScores == nil {
		out.TraitScores = map[string]float64{}
	}
	return out, "", nil
}

// Canonical maps a trait label in any letter case to its canonical name.
func Canonical(label string) (string, bool) {
	label = strings.TrimSpace(label)
	for _, n := range Names {
		if strings.EqualFold(n, label) {
			return n, true
		}
	}
	return "", false
}

// PriorFromScores orders stored trait scores into the raw_traits vector.
// Missing traits get a neutral 0.5. An empty map yields nil (no prior).
func PriorFromScores(scores map[string]float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	byName := make(map[string]float64, len(scores))
	for k, v := range scores {
		if name, ok := Canonical(k); ok {
			byName[name] = v
		}
	}
	out := make([]float64, len(Names))
	for i, n := range Names {
		v, ok := byName[n]
		if !ok {
			v = neutralScore
		}
		out[i] = v
	}
	return out
}

// Dominant returns the highest scoring canonical trait, or DefaultTrait for empty input.
func Dominant(scores map[string]float64) string {
	best, bestScore := DefaultTrait, -1.0
	for _, n := range Names {
		for k, v := range scores {
			if strings.EqualFold(k, n) && v > bestScore {
				best, bestScore = n, v
			}
		}
	}
	return best
}

func cacheKey(text string, prior []float64) string {
	var b strings.Builder
	b.WriteString(text)
	for _, v := range prior {
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return b.String()
}

func clone(p Prediction) Prediction {
	scores := make(map[string]float64, len(p.TraitScores))
	for k, v := range p.TraitScores {
		scores[k] = v
	}
	return Prediction{DominantTrait: p.DominantTrait, TraitScores: scores}
}
