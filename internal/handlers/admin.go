package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"mindfuleat/internal/services"
	"mindfuleat/internal/store"
)

type AdminHandler struct {
	st       *store.Store
	calendar services.Calendar
	logger   *zap.Logger
}

func NewAdminHandler(st *store.Store, cal services.Calendar, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{st: st, calendar: cal, logger: logger}
}

type adminOverview struct {
	ReferenceDate string `json:"reference_date"`
	TotalUsers    int    `json:"total_users"`
	GoalsToday    int    `json:"goals_today"`
	TipsToday     int    `json:"tips_today"`
}

// Overview godoc
// @Summary Get admin overview
// @Description Returns user and daily goal/tip counts (admin only)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} adminOverview
// @Failure 403 {string} string "Forbidden"
// @Failure 500 {string} string "Internal server error"
// @Router /admin/overview [get]
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := h.calendar.Today()
	out := adminOverview{ReferenceDate: store.DayKey(today)}

	var err error
	if out.TotalUsers, err = h.st.Users.Count(ctx); err != nil {
		technicalIssue(w, h.logger, "count users", err)
		return
	}
	if out.GoalsToday, err = h.st.Goals.CountForDay(ctx, today); err != nil {
		technicalIssue(w, h.logger, "count goals", err)
		return
	}
	if out.TipsToday, err = h.st.Tips.CountForDay(ctx, today); err != nil {
		technicalIssue(w, h.logger, "count tips", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// IsAdmin reports whether userID has the admin flag. Unknown users are not admins.
func (h *AdminHandler) IsAdmin(ctx context.Context, userID int) (bool, error) {
	u, err := h.st.Users.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.IsAdmin, nil
}
