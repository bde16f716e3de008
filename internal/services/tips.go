package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"mindfuleat/internal/metrics"
	"mindfuleat/internal/models"
	"mindfuleat/internal/store"
	"mindfuleat/internal/textclean"
	"mindfuleat/internal/tipgen"
	"mindfuleat/internal/traits"
)

// FallbackBehavior is used when the user has not selected any behavior.
const FallbackBehavior = "general mindful eating"

var ErrEmptyTip = errors.New("tip text is empty")

// State is where a user's day stands in the goal to tip workflow.
type State string

const (
	StateNoGoal    State = "no_goal"
	StateGoalNoTip State = "goal_no_tip"
	StateHasTip    State = "has_tip"
)

type TraitPredictor interface {
	Predict(ctx context.Context, text string, prior []float64) traits.Prediction
}

type TipGenerator interface {
	Generate(ctx context.Context, trait, behavior string) string
}

type GoalRepository interface {
	Upsert(ctx context.Context, userID int, day time.Time, text string) (models.Goal, error)
	ForDay(ctx context.Context, userID int, day time.Time) (models.Goal, error)
}

type TipRepository interface {
	Upsert(ctx context.Context, userID int, day time.Time, text string) (models.Tip, error)
	ForDay(ctx context.Context, userID int, day time.Time) (models.Tip, error)
}

type BehaviorRanker interface {
	MostRelevant(ctx context.Context, userID int) (models.Behavior, error)
}

type ProfileRepository interface {
	Get(ctx context.Context, userID int) (models.TraitProfile, error)
	Save(ctx context.Context, p models.TraitProfile) error
}

// TodayResult is the outcome of reading today's tip.
// Tip is nil unless State is StateHasTip.
type TodayResult struct {
	State     State
	Tip       *models.Tip
	Generated bool
}

type TipService struct {
	goals     GoalRepository
	tips      TipRepository
	behaviors BehaviorRanker
	profiles  ProfileRepository
	predictor TraitPredictor
	generator TipGenerator
	calendar  Calendar
	logger    *zap.Logger
	metrics   *metrics.Metrics
	flights   singleflight.Group
}

func NewTipService(st *store.Store, predictor TraitPredictor, generator TipGenerator, cal Calendar, logger *zap.Logger, m *metrics.Metrics) *TipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TipService{
		goals:     st.Goals,
		tips:      st.Tips,
		behaviors: st.Behaviors,
		profiles:  st.Profiles,
		predictor: predictor,
		generator: generator,
		calendar:  cal,
		logger:    logger,
		metrics:   m,
	}
}

// Today returns the stored tip, reports that no goal is set, or generates the
// tip synchronously when a goal exists without one. A failed generation is
// reported as StateGoalNoTip with a nil error.
func (s *TipService) Today(ctx context.Context, userID int) (TodayResult, error) {
	day := s.calendar.Today()

	tip, err := s.tips.ForDay(ctx, userID, day)
	if err == nil {
		return TodayResult{State: StateHasTip, Tip: &tip}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return TodayResult{}, fmt.Errorf("load tip: %w", err)
	}

	if _, err := s.goals.ForDay(ctx, userID, day); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TodayResult{State: StateNoGoal}, nil
		}
		return TodayResult{}, fmt.Errorf("load goal: %w", err)
	}

	// Concurrent readers share one generation. The flight outlives any single
	// caller's cancellation.
	key := flightKey(userID, day)
	v, err, _ := s.flights.Do(key, func() (any, error) {
		flightCtx := context.WithoutCancel(ctx)
		if tip, err := s.tips.ForDay(flightCtx, userID, day); err == nil {
			return flightResult{tip: tip}, nil
		}
		tip, err := s.generate(flightCtx, userID, day, "read")
		if err != nil {
			return nil, err
		}
		return flightResult{tip: tip, generated: true}, nil
	})
	if err != nil {
		s.logger.Error("tip generation on read failed",
			zap.Int("user_id", userID),
			zap.String("day", store.DayKey(day)),
			zap.Error(err),
		)
		return TodayResult{State: StateGoalNoTip}, nil
	}
	res := v.(flightResult)
	return TodayResult{State: StateHasTip, Tip: &res.tip, Generated: res.generated}, nil
}

// flightResult tells readers whether the shared flight generated the tip or
// found one stored by another writer.
type flightResult struct {
	tip       models.Tip
	generated bool
}

// Refresh regenerates the tip for day from the goal stored for that day.
// It does nothing when the goal is gone.
func (s *TipService) Refresh(ctx context.Context, userID int, day time.Time) error {
	_, err, _ := s.flights.Do("refresh:"+flightKey(userID, day), func() (any, error) {
		return s.generate(ctx, userID, day, "goal_saved")
	})
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Info("goal removed before tip generation", zap.Int("user_id", userID))
		return nil
	}
	return err
}

// Override stores text as today's tip. created is false when it replaced one.
func (s *TipService) Override(ctx context.Context, userID int, text string) (tip models.Tip, created bool, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Tip{}, false, ErrEmptyTip
	}
	day := s.calendar.Today()
	_, err = s.tips.ForDay(ctx, userID, day)
	switch {
	case errors.Is(err, store.ErrNotFound):
		created = true
	case err != nil:
		return models.Tip{}, false, fmt.Errorf("load tip: %w", err)
	}
	tip, err = s.tips.Upsert(ctx, userID, day, text)
	if err != nil {
		return models.Tip{}, false, err
	}
	return tip, created, nil
}

func (s *TipService) generate(ctx context.Context, userID int, day time.Time, trigger string) (models.Tip, error) {
	goal, err := s.goals.ForDay(ctx, userID, day)
	if err != nil {
		s.metrics.IncTipGeneration(trigger, "no_goal")
		return models.Tip{}, fmt.Errorf("load goal: %w", err)
	}

	behavior := FallbackBehavior
	if b, err := s.behaviors.MostRelevant(ctx, userID); err == nil {
		behavior = b.BehaviorTitle
	} else if !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("behavior lookup failed, using fallback", zap.Int("user_id", userID), zap.Error(err))
	}

	var prior []float64
	if p, err := s.profiles.Get(ctx, userID); err == nil {
		prior = traits.PriorFromScores(p.Scores)
	} else if !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("trait profile lookup failed", zap.Int("user_id", userID), zap.Error(err))
	}

	input := strings.TrimSpace(goal.GoalText)
	if input == "" {
		input = behavior
	}
	prediction := s.predictor.Predict(ctx, input, prior)

	text := textclean.Clean(s.generator.Generate(ctx, prediction.DominantTrait, behavior))
	if text == "" {
		text = textclean.Clean(tipgen.FallbackTip)
	}

	tip, err := s.tips.Upsert(ctx, userID, day, text)
	if err != nil {
		s.metrics.IncTipGeneration(trigger, "store_error")
		return models.Tip{}, err
	}
	s.metrics.IncTipGeneration(trigger, "ok")
	s.logger.Info("tip generated",
		zap.Int("user_id", userID),
		zap.String("trigger", trigger),
		zap.String("trait", prediction.DominantTrait),
		zap.String("behavior", behavior),
	)
	return tip, nil
}

func flightKey(userID int, day time.Time) string {
	return strconv.Itoa(userID) + ":" + store.DayKey(day)
}
