package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"mindfuleat/internal/models"
	"mindfuleat/internal/store"
)

var ErrEmptyGoal = errors.New("goal text is empty")

type GoalService struct {
	goals     GoalRepository
	tips      *TipService
	profiles  *TraitProfileService
	scheduler TaskSubmitter
	calendar  Calendar
	logger    *zap.Logger
}

func NewGoalService(st *store.Store, tips *TipService, profiles *TraitProfileService, scheduler TaskSubmitter, cal Calendar, logger *zap.Logger) *GoalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoalService{
		goals:     st.Goals,
		tips:      tips,
		profiles:  profiles,
		scheduler: scheduler,
		calendar:  cal,
		logger:    logger,
	}
}

// Save upserts today's goal and queues tip generation for it. A task that
// cannot be queued is logged by the scheduler and does not fail the save.
func (s *GoalService) Save(ctx context.Context, userID int, text string) (models.Goal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Goal{}, ErrEmptyGoal
	}
	day := s.calendar.Today()
	goal, err := s.goals.Upsert(ctx, userID, day, text)
	if err != nil {
		return models.Goal{}, err
	}
	s.logger.Info("goal saved", zap.Int("user_id", userID), zap.String("day", store.DayKey(day)))

	s.scheduler.Submit(Task{
		Kind:   "tip",
		UserID: userID,
		Run: func(ctx context.Context) error {
			return s.tips.Refresh(ctx, userID, day)
		},
	})
	return goal, nil
}

// Today returns today's goal or store.ErrNotFound. It also queues a trait
// profile build for users that do not have one yet.
func (s *GoalService) Today(ctx context.Context, userID int) (models.Goal, error) {
	s.profiles.EnsureAsync(ctx, userID)
	return s.goals.ForDay(ctx, userID, s.calendar.Today())
}
