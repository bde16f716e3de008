package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mw "mindfuleat/internal/middleware"
	"mindfuleat/internal/tipgen"
	"mindfuleat/internal/traits"
)

type recordingGenerator struct {
	text            string
	trait, behavior string
	calls           int
}

func (g *recordingGenerator) Generate(_ context.Context, trait, behavior string) string {
	g.calls++
	g.trait, g.behavior = trait, behavior
	return g.text
}

func postChat(t *testing.T, h *ChatHandler, userID int, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, "/users/chat", &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		req = req.WithContext(mw.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	h.Chat(rec, req)
	return rec
}

func TestParseChatPrompt(t *testing.T) {
	for _, tc := range []struct {
		name, prompt, trait, behavior string
	}{
		{name: "defaults", prompt: "give me a tip", trait: traits.DefaultTrait, behavior: "balanced eating"},
		{name: "both lines", prompt: "Dominant Trait: openness\nEating Behavior: late night snacking", trait: "Openness", behavior: "late night snacking"},
		{name: "unknown trait kept", prompt: "dominant trait: curiosity", trait: "curiosity", behavior: "balanced eating"},
		{name: "empty value falls back", prompt: "Dominant Trait:   \nEating Behavior:", trait: traits.DefaultTrait, behavior: "balanced eating"},
		{name: "no colon ignored", prompt: "Dominant Trait Neuroticism\nemotional eating", trait: traits.DefaultTrait, behavior: "balanced eating"},
		{name: "text after first colon", prompt: "Eating Behavior: snacks: mostly chips", trait: traits.DefaultTrait, behavior: "snacks: mostly chips"},
		{name: "dominant wins over eating", prompt: "Dominant eating trait: Extraversion", trait: "Extraversion", behavior: "balanced eating"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			trait, behavior := parseChatPrompt(tc.prompt)
			assert.Equal(t, tc.trait, trait)
			assert.Equal(t, tc.behavior, behavior)
		})
	}
}

func TestChatGeneratesTipFromPrompt(t *testing.T) {
	gen := &recordingGenerator{text: "  Slow down   and savour each bite. "}
	h := NewChatHandler(gen, zap.NewNop())

	rec := postChat(t, h, 7, map[string]string{
		"prompt": "Dominant Trait: Neuroticism\nEating Behavior: emotional eating",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"response": "Slow down and savour each bite."}`, rec.Body.String())
	assert.Equal(t, "Neuroticism", gen.trait)
	assert.Equal(t, "emotional eating", gen.behavior)
}

func TestChatFallsBackOnBlankGeneration(t *testing.T) {
	h := NewChatHandler(&recordingGenerator{text: "   "}, zap.NewNop())

	rec := postChat(t, h, 7, map[string]string{"prompt": "any tip"})
	require.Equal(t, http.StatusOK, rec.Code)
	var got chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, tipgen.FallbackTip, got.Response)
}

func TestChatRejectsBadRequests(t *testing.T) {
	gen := &recordingGenerator{text: "tip"}
	h := NewChatHandler(gen, zap.NewNop())

	rec := postChat(t, h, 7, map[string]string{"prompt": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postChat(t, h, 7, map[string]string{"prompt": string(bytes.Repeat([]byte("a"), maxChatPrompt+1))})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postChat(t, h, 0, map[string]string{"prompt": "tip please"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Zero(t, gen.calls)
}
