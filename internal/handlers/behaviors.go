package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"mindfuleat/internal/services"
)

type BehaviorHandler struct {
	behaviors *services.BehaviorService
	profiles  *services.TraitProfileService
	logger    *zap.Logger
}

func NewBehaviorHandler(behaviors *services.BehaviorService, profiles *services.TraitProfileService, logger *zap.Logger) *BehaviorHandler {
	return &BehaviorHandler{behaviors: behaviors, profiles: profiles, logger: logger}
}

func (h *BehaviorHandler) List(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, "Behaviors retrieved successfully", h.behaviors.Catalog())
}

type submitBehaviorsRequest struct {
	Behaviors []services.BehaviorSelection `json:"behaviors"`
}

// Submit godoc
// @Summary Replace the user's eating behaviors
// @Tags behaviors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} envelope
// @Failure 404 {string} string "Behavior not found"
// @Router /behaviors/submit-behavior [post]
func (h *BehaviorHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var body submitBehaviorsRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if len(body.Behaviors) == 0 {
		http.Error(w, "behaviors required", http.StatusBadRequest)
		return
	}

	saved, err := h.behaviors.Submit(r.Context(), userID, body.Behaviors)
	if err != nil {
		if errors.Is(err, services.ErrUnknownBehavior) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		technicalIssue(w, h.logger, "submit behaviors", err)
		return
	}
	h.profiles.BuildAsync(userID)
	respond(w, http.StatusCreated, "Behaviors submitted successfully", saved)
}

func (h *BehaviorHandler) CheckSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	done, err := h.behaviors.Submitted(r.Context(), userID)
	if err != nil {
		technicalIssue(w, h.logger, "check behavior submission", err)
		return
	}
	respond(w, http.StatusOK, "Submission status retrieved successfully", map[string]bool{"is_submitted": done})
}

func (h *BehaviorHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.behaviors.ForUser(r.Context(), userID)
	if err != nil {
		technicalIssue(w, h.logger, "load behaviors", err)
		return
	}
	respond(w, http.StatusOK, "User behaviors retrieved successfully", list)
}
