package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"mindfuleat/internal/questionnaire"
	"mindfuleat/internal/services"
	"mindfuleat/internal/store"
)

type QuestionHandler struct {
	questions *services.QuestionnaireService
	profiles  *services.TraitProfileService
	logger    *zap.Logger
}

func NewQuestionHandler(questions *services.QuestionnaireService, profiles *services.TraitProfileService, logger *zap.Logger) *QuestionHandler {
	return &QuestionHandler{questions: questions, profiles: profiles, logger: logger}
}

// List godoc
// @Summary List questionnaire questions
// @Tags questions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} envelope
// @Router /questions/question-list [get]
func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, "Questions retrieved successfully", h.questions.Questions())
}

type submitAnswersRequest struct {
	Answers []questionnaire.Item `json:"answers"`
}

// Submit godoc
// @Summary Submit questionnaire answers
// @Description Validates every answer and replaces the stored set. One invalid answer rejects the batch.
// @Tags questions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} envelope
// @Failure 400 {string} string "Invalid answer"
// @Failure 404 {string} string "Question not found"
// @Router /questions/submit-answers [post]
func (h *QuestionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var body submitAnswersRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if len(body.Answers) == 0 {
		http.Error(w, "answers required", http.StatusBadRequest)
		return
	}

	set, err := h.questions.Submit(r.Context(), userID, body.Answers)
	if err != nil {
		if errors.Is(err, questionnaire.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		var verr *questionnaire.ValidationError
		if errors.As(err, &verr) {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}
		technicalIssue(w, h.logger, "submit answers", err)
		return
	}
	// New answers change the profile text, so the trait profile is rebuilt.
	h.profiles.BuildAsync(userID)
	respond(w, http.StatusCreated, "Answers submitted successfully", set)
}

func (h *QuestionHandler) CheckSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	done, err := h.questions.Submitted(r.Context(), userID)
	if err != nil {
		technicalIssue(w, h.logger, "check answer submission", err)
		return
	}
	respond(w, http.StatusOK, "Submission status retrieved successfully", map[string]bool{"is_submitted": done})
}

func (h *QuestionHandler) Answers(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	answers, err := h.questions.Answers(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respond(w, http.StatusNotFound, "No answers submitted", nil)
			return
		}
		technicalIssue(w, h.logger, "load answers", err)
		return
	}
	respond(w, http.StatusOK, "Answers retrieved successfully", answers)
}
