package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"mindfuleat/internal/services"
	"mindfuleat/internal/store"
)

type BigFiveHandler struct {
	profiles *services.TraitProfileService
	logger   *zap.Logger
}

func NewBigFiveHandler(profiles *services.TraitProfileService, logger *zap.Logger) *BigFiveHandler {
	return &BigFiveHandler{profiles: profiles, logger: logger}
}

// Details godoc
// @Summary Get the user's Big Five trait profile
// @Tags bigfive
// @Produce json
// @Security BearerAuth
// @Success 200 {object} envelope
// @Failure 404 {object} envelope
// @Router /big-five/get-details [get]
func (h *BigFiveHandler) Details(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	p, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respond(w, http.StatusNotFound, "Big Five traits data not found for this user", nil)
			return
		}
		technicalIssue(w, h.logger, "load trait profile", err)
		return
	}
	respond(w, http.StatusOK, "Big Five traits data retrieved successfully", p)
}

// Rebuild queues a fresh prediction of the profile.
func (h *BigFiveHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if !h.profiles.BuildAsync(userID) {
		http.Error(w, "busy, try again later", http.StatusServiceUnavailable)
		return
	}
	respond(w, http.StatusAccepted, "Big Five profile build queued", nil)
}
