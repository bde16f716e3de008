package tipgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindfuleat/internal/ready"
)

func TestExtract(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "  Chew each bite twenty times.  ", "Chew each bite twenty times."},
		{"after marker", "Tip: Put your fork down between bites.", "Put your fork down between bites."},
		{"echoed prompt uses last marker", Prompt("Openness", "Snacking") + " Try a new vegetable tonight.\n### Input: more", "Try a new vegetable tonight."},
		{"cut at earliest stop marker", "Tip: Breathe before eating. Response: ignored ### also ignored", "Breathe before eating."},
		{"only template", "### Instruction:", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Extract(tc.raw))
		})
	}
}

func TestGenerateSendsSamplingParameters(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(generateResponse{Response: got.Prompt + " Savor the first three bites slowly."})
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, Timeout: time.Second}, ready.Resolved(), nil, nil)
	tip := c.Generate(context.Background(), "Neuroticism", "Emotional eating")

	assert.Equal(t, "Savor the first three bites slowly.", tip)
	assert.Contains(t, got.Prompt, "Dominant Trait: Neuroticism")
	assert.Contains(t, got.Prompt, "Eating Behavior: Emotional eating")
	assert.Equal(t, 80, got.MaxNewTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	assert.InDelta(t, 0.9, got.TopP, 1e-9)
	assert.InDelta(t, 1.1, got.RepetitionPenalty, 1e-9)
}

func TestGenerateFallsBack(t *testing.T) {
	handlers := map[string]http.HandlerFunc{
		"non-2xx": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		},
		"empty tip": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"response":"Tip: ### Input:"}`))
		},
		"timeout": func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		},
	}
	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			c := NewClient(Config{URL: srv.URL, Timeout: 50 * time.Millisecond}, ready.Resolved(), nil, nil)
			assert.Equal(t, FallbackTip, c.Generate(context.Background(), "Openness", "Snacking"))

			_, err := c.Try(context.Background(), "Openness", "Snacking")
			assert.ErrorIs(t, err, ErrUpstreamUnavailable)
		})
	}
}

func TestGenerateUnreachableHost(t *testing.T) {
	c := NewClient(Config{URL: "http://127.0.0.1:1/generate", Timeout: 100 * time.Millisecond}, ready.Resolved(), nil, nil)
	assert.Equal(t, FallbackTip, c.Generate(context.Background(), "Openness", "Snacking"))
}

func TestMockModeSkipsNetwork(t *testing.T) {
	c := NewClient(Config{URL: "http://invalid.invalid", Mock: true}, ready.NewGate(), nil, nil)
	assert.Equal(t, MockTip, c.Generate(context.Background(), "Openness", "Snacking"))
}
