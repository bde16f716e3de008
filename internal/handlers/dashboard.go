package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mindfuleat/internal/services"
	"mindfuleat/internal/store"
)

const streakLookback = 366

type DashboardHandler struct {
	st       *store.Store
	calendar services.Calendar
	logger   *zap.Logger
}

func NewDashboardHandler(st *store.Store, cal services.Calendar, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{st: st, calendar: cal, logger: logger}
}

type trendPoint struct {
	LocalDate string `json:"local_date"`
	HasGoal   bool   `json:"has_goal"`
}

type dashboardResponse struct {
	ReferenceDate          string       `json:"reference_date"`
	HasTodayGoal           bool         `json:"has_today_goal"`
	HasTodayTip            bool         `json:"has_today_tip"`
	GoalStreakDays         int          `json:"goal_streak_days"`
	QuestionnaireSubmitted bool         `json:"questionnaire_submitted"`
	BehaviorsSubmitted     bool         `json:"behaviors_submitted"`
	DominantTrait          string       `json:"dominant_trait,omitempty"`
	Last7DaysTrend         []trendPoint `json:"last7_days_trend"`
}

// Get summarizes the user's progress for the home screen.
// Accepts optional query param: local_date=YYYY-MM-DD to use as "today".
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	refDate := h.calendar.Today()
	if s := r.URL.Query().Get("local_date"); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			http.Error(w, "invalid local_date format; expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		refDate = d
	}

	days, err := h.st.Goals.Days(ctx, userID, streakLookback)
	if err != nil {
		technicalIssue(w, h.logger, "load goal days", err)
		return
	}
	set := make(map[string]bool, len(days))
	for _, d := range days {
		set[store.DayKey(d)] = true
	}

	resp := dashboardResponse{
		ReferenceDate:  store.DayKey(refDate),
		HasTodayGoal:   set[store.DayKey(refDate)],
		GoalStreakDays: goalStreak(set, refDate),
		Last7DaysTrend: lastWeek(set, refDate),
	}

	if _, err := h.st.Tips.ForDay(ctx, userID, refDate); err == nil {
		resp.HasTodayTip = true
	} else if !errors.Is(err, store.ErrNotFound) {
		technicalIssue(w, h.logger, "load tip", err)
		return
	}
	if resp.QuestionnaireSubmitted, err = h.st.Answers.Exists(ctx, userID); err != nil {
		technicalIssue(w, h.logger, "check answers", err)
		return
	}
	if resp.BehaviorsSubmitted, err = h.st.Behaviors.Exists(ctx, userID); err != nil {
		technicalIssue(w, h.logger, "check behaviors", err)
		return
	}
	if p, err := h.st.Profiles.Get(ctx, userID); err == nil {
		resp.DominantTrait = p.DominantTrait
	} else if !errors.Is(err, store.ErrNotFound) {
		technicalIssue(w, h.logger, "load trait profile", err)
		return
	}

	respond(w, http.StatusOK, "Dashboard retrieved successfully", resp)
}

// goalStreak counts consecutive goal days ending at ref.
func goalStreak(days map[string]bool, ref time.Time) int {
	n := 0
	for d := ref; days[store.DayKey(d)]; d = d.AddDate(0, 0, -1) {
		n++
	}
	return n
}

func lastWeek(days map[string]bool, ref time.Time) []trendPoint {
	out := make([]trendPoint, 0, 7)
	for i := 6; i >= 0; i-- {
		key := store.DayKey(ref.AddDate(0, 0, -i))
		out = append(out, trendPoint{LocalDate: key, HasGoal: days[key]})
	}
	return out
}
