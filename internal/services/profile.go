package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"mindfuleat/internal/models"
	"mindfuleat/internal/store"
	"mindfuleat/internal/traits"
)

// TraitTrier is a predictor that reports failures instead of defaulting.
type TraitTrier interface {
	Try(ctx context.Context, text string, prior []float64) (traits.Prediction, error)
}

type UserReader interface {
	ByID(ctx context.Context, id int) (models.User, error)
}

type AnswerReader interface {
	Get(ctx context.Context, userID int) (map[string]store.AnswerEntry, error)
}

type BehaviorLister interface {
	ForUser(ctx context.Context, userID int) ([]models.Behavior, error)
}

// TraitProfileService builds and serves the stored Big Five estimate.
type TraitProfileService struct {
	users     UserReader
	answers   AnswerReader
	behaviors BehaviorLister
	profiles  ProfileRepository
	predictor TraitTrier
	scheduler TaskSubmitter
	logger    *zap.Logger
}

func NewTraitProfileService(st *store.Store, predictor TraitTrier, scheduler TaskSubmitter, logger *zap.Logger) *TraitProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TraitProfileService{
		users:     st.Users,
		answers:   st.Answers,
		behaviors: st.Behaviors,
		profiles:  st.Profiles,
		predictor: predictor,
		scheduler: scheduler,
		logger:    logger,
	}
}

func (s *TraitProfileService) Get(ctx context.Context, userID int) (models.TraitProfile, error) {
	return s.profiles.Get(ctx, userID)
}

// EnsureAsync queues a build when the user has no profile yet.
func (s *TraitProfileService) EnsureAsync(ctx context.Context, userID int) {
	_, err := s.profiles.Get(ctx, userID)
	if err == nil {
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("trait profile lookup failed", zap.Int("user_id", userID), zap.Error(err))
		return
	}
	s.BuildAsync(userID)
}

func (s *TraitProfileService) BuildAsync(userID int) bool {
	return s.scheduler.Submit(Task{
		Kind:   "trait_profile",
		UserID: userID,
		Run: func(ctx context.Context) error {
			_, err := s.Build(ctx, userID)
			return err
		},
	})
}

// Build predicts the profile from the user's details, answers and behaviors.
// Nothing is stored when the prediction fails.
func (s *TraitProfileService) Build(ctx context.Context, userID int) (models.TraitProfile, error) {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return models.TraitProfile{}, fmt.Errorf("load user: %w", err)
	}
	answers, err := s.answers.Get(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("answers unavailable for trait profile", zap.Int("user_id", userID), zap.Error(err))
	}
	behaviors, err := s.behaviors.ForUser(ctx, userID)
	if err != nil {
		s.logger.Warn("behaviors unavailable for trait profile", zap.Int("user_id", userID), zap.Error(err))
	}

	prediction, err := s.predictor.Try(ctx, ProfileText(user, answers, behaviors), nil)
	if err != nil {
		return models.TraitProfile{}, fmt.Errorf("predict traits: %w", err)
	}

	profile := models.TraitProfile{
		UserID:        userID,
		Scores:        prediction.TraitScores,
		DominantTrait: prediction.DominantTrait,
	}
	if len(profile.Scores) > 0 {
		profile.DominantTrait = traits.Dominant(profile.Scores)
	}
	if err := s.profiles.Save(ctx, profile); err != nil {
		return models.TraitProfile{}, err
	}
	s.logger.Info("trait profile saved", zap.Int("user_id", userID), zap.String("dominant_trait", profile.DominantTrait))
	return profile, nil
}

// ProfileText renders the description the trait model classifies.
func ProfileText(u models.User, answers map[string]store.AnswerEntry, behaviors []models.Behavior) string {
	name := strings.TrimSpace(deref(u.FirstName, "") + " " + deref(u.LastName, ""))
	occupation := deref(u.Occupation, "N/A")
	age := "N/A"
	if u.Age != nil {
		age = strconv.Itoa(*u.Age)
	}
	location := strings.Trim(deref(u.City, "")+", "+deref(u.Country, ""), ", ")
	lifestyle := deref(u.LifestyleType, "N/A")
	diet := deref(u.DietaryInfluence, "N/A")

	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s\n", name, occupation)
	fmt.Fprintf(&b, "Description: %s is a %s-year-old %s from %s. They lead a %s lifestyle and follow a %s diet.\n\n",
		name, age, strings.ToLower(occupation), location, strings.ToLower(lifestyle), diet)
	fmt.Fprintf(&b, "Demographics:\nAge: %s\nLocation: %s\nOccupation: %s\nLifestyle: %s\nDietary Influence: %s\n\n",
		age, location, occupation, lifestyle, diet)

	b.WriteString("Some Questions and Answers about the user:\n")
	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return lessNumeric(ids[i], ids[j]) })
	for _, id := range ids {
		a := answers[id]
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", a.Question, answerText(a.Answer))
	}

	b.WriteString("\nObserved Behaviors of the user:\n")
	for _, bh := range behaviors {
		priority := "Normal Priority"
		if bh.HighPriority {
			priority = "High Priority"
		}
		fmt.Fprintf(&b, "- %s (%s)\n", bh.BehaviorTitle, priority)
	}
	return b.String()
}

// answerText shows strings unquoted and everything else as compact JSON.
func answerText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func lessNumeric(a, b string) bool {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return x < y
	}
	return a < b
}

func deref(s *string, fallback string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return fallback
	}
	return *s
}
