package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"mindfuleat/internal/services"
	"mindfuleat/internal/store"
)

type GoalHandler struct {
	goals  *services.GoalService
	logger *zap.Logger
}

func NewGoalHandler(goals *services.GoalService, logger *zap.Logger) *GoalHandler {
	return &GoalHandler{goals: goals, logger: logger}
}

type goalRequest struct {
	GoalText string `json:"goal_text"`
}

// Submit godoc
// @Summary Set today's goal
// @Description Creates or replaces today's goal and queues a tip for it.
// @Tags goals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} envelope
// @Failure 400 {string} string "Goal text is empty"
// @Router /goals/submit-user-goal [post]
func (h *GoalHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var body goalRequest
	if !decodeBody(w, r, &body) {
		return
	}
	goal, err := h.goals.Save(r.Context(), userID, body.GoalText)
	if err != nil {
		if errors.Is(err, services.ErrEmptyGoal) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		technicalIssue(w, h.logger, "save goal", err)
		return
	}
	respond(w, http.StatusOK, "Goal saved successfully", goal)
}

func (h *GoalHandler) Today(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	goal, err := h.goals.Today(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respond(w, http.StatusOK, "No goal set for today", nil)
			return
		}
		technicalIssue(w, h.logger, "load goal", err)
		return
	}
	respond(w, http.StatusOK, "User goal retrieved successfully", goal)
}
