package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"mindfuleat/internal/services"
)

const (
	msgNoGoal    = "No goal set for today. Please set your daily goal to receive a tip."
	msgGoalNoTip = "Goal is set but no tip could be generated."
)

type TipHandler struct {
	tips   *services.TipService
	logger *zap.Logger
}

func NewTipHandler(tips *services.TipService, logger *zap.Logger) *TipHandler {
	return &TipHandler{tips: tips, logger: logger}
}

// Today godoc
// @Summary Get today's tip
// @Description Returns the stored tip, or generates one when today's goal has none yet.
// @Tags tips
// @Produce json
// @Security BearerAuth
// @Success 200 {object} envelope
// @Router /tips/get-user-tips [get]
func (h *TipHandler) Today(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	res, err := h.tips.Today(r.Context(), userID)
	if err != nil {
		technicalIssue(w, h.logger, "load tip", err)
		return
	}
	switch res.State {
	case services.StateNoGoal:
		respond(w, http.StatusOK, msgNoGoal, nil)
	case services.StateGoalNoTip:
		respond(w, http.StatusOK, msgGoalNoTip, nil)
	default:
		msg := "User tips retrieved successfully"
		if res.Generated {
			msg = "New tip generated successfully"
		}
		respond(w, http.StatusOK, msg, res.Tip)
	}
}

type tipRequest struct {
	TipsText string `json:"tips_text"`
}

// Submit stores a tip for today written by the client, replacing any generated one.
func (h *TipHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var body tipRequest
	if !decodeBody(w, r, &body) {
		return
	}
	tip, created, err := h.tips.Override(r.Context(), userID, body.TipsText)
	if err != nil {
		if errors.Is(err, services.ErrEmptyTip) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		technicalIssue(w, h.logger, "save tip", err)
		return
	}
	if created {
		respond(w, http.StatusCreated, "User tips created successfully", tip)
		return
	}
	respond(w, http.StatusOK, "User tips updated successfully", tip)
}
