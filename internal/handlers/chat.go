package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"mindfuleat/internal/services"
	"mindfuleat/internal/textclean"
	"mindfuleat/internal/tipgen"
	"mindfuleat/internal/traits"
)

const (
	defaultChatBehavior = "balanced eating"
	maxChatPrompt       = 4000
)

// ChatHandler answers free-form tip requests without touching stored goals or tips.
type ChatHandler struct {
	generator services.TipGenerator
	logger    *zap.Logger
}

func NewChatHandler(generator services.TipGenerator, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{generator: generator, logger: logger}
}

type chatRequest struct {
	Prompt string `json:"prompt"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Chat godoc
// @Summary Generate a tip from a prompt
// @Description Reads "Dominant Trait: ..." and "Eating Behavior: ..." lines from the prompt and returns one tip.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} chatResponse
// @Failure 400 {string} string "prompt required"
// @Router /users/chat [post]
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	var body chatRequest
	if !decodeBody(w, r, &body) {
		return
	}
	prompt := strings.TrimSpace(body.Prompt)
	if prompt == "" {
		http.Error(w, "prompt required", http.StatusBadRequest)
		return
	}
	if len(prompt) > maxChatPrompt {
		http.Error(w, "prompt too long", http.StatusBadRequest)
		return
	}

	trait, behavior := parseChatPrompt(prompt)
	text := textclean.Clean(h.generator.Generate(r.Context(), trait, behavior))
	if text == "" {
		text = textclean.Clean(tipgen.FallbackTip)
	}
	h.logger.Debug("chat tip generated", zap.String("trait", trait), zap.String("behavior", behavior))
	writeJSON(w, http.StatusOK, chatResponse{Response: text})
}

// parseChatPrompt picks the trait from lines mentioning "dominant"
// and the behavior from lines mentioning "eating", each taken after the first
// colon. Lines without a colon are ignored. Later lines override earlier ones.
func parseChatPrompt(prompt string) (trait, behavior string) {
	trait, behavior = traits.DefaultTrait, defaultChatBehavior
	for _, line := range strings.Split(prompt, "\n") {
		_, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		low := strings.ToLower(line)
		switch {
		case strings.Contains(low, "dominant"):
			trait = traits.DefaultTrait
			if value != "" {
				trait = value
				if name, ok := traits.Canonical(value); ok {
					trait = name
				}
			}
		case strings.Contains(low, "eating"):
			behavior = defaultChatBehavior
			if value != "" {
				behavior = value
			}
		}
	}
	return trait, behavior
}
