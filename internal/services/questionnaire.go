package services

import (
	"context"
	"errors"
	"fmt"

	"mindfuleat/internal/catalog"
	"mindfuleat/internal/models"
	"mindfuleat/internal/questionnaire"
	"mindfuleat/internal/store"
)

// ErrUnknownBehavior is returned when a submitted behavior id is not in the catalog.
var ErrUnknownBehavior = errors.New("behavior not found")

type AnswerRepository interface {
	Replace(ctx context.Context, userID int, set map[string]questionnaire.Entry) error
	Get(ctx context.Context, userID int) (map[string]store.AnswerEntry, error)
	Exists(ctx context.Context, userID int) (bool, error)
}

type BehaviorRepository interface {
	Replace(ctx context.Context, userID int, behaviors []models.Behavior) error
	ForUser(ctx context.Context, userID int) ([]models.Behavior, error)
	Exists(ctx context.Context, userID int) (bool, error)
}

type QuestionnaireService struct {
	catalog *catalog.Catalog
	answers AnswerRepository
}

func NewQuestionnaireService(c *catalog.Catalog, st *store.Store) *QuestionnaireService {
	return &QuestionnaireService{catalog: c, answers: st.Answers}
}

func (s *QuestionnaireService) Questions() []catalog.Question {
	return s.catalog.Questions()
}

// Submit validates the whole batch and replaces the stored answer set.
// A single invalid item rejects the batch and nothing is written.
func (s *QuestionnaireService) Submit(ctx context.Context, userID int, items []questionnaire.Item) (map[string]questionnaire.Entry, error) {
	answers, err := questionnaire.ValidateBatch(s.catalog, items)
	if err != nil {
		return nil, err
	}
	set := questionnaire.ToSet(answers)
	if err := s.answers.Replace(ctx, userID, set); err != nil {
		return nil, fmt.Errorf("save answers: %w", err)
	}
	return set, nil
}

func (s *QuestionnaireService) Answers(ctx context.Context, userID int) (map[string]store.AnswerEntry, error) {
	return s.answers.Get(ctx, userID)
}

func (s *QuestionnaireService) Submitted(ctx context.Context, userID int) (bool, error) {
	return s.answers.Exists(ctx, userID)
}

// BehaviorSelection is one submitted behavior with its priority flags.
type BehaviorSelection struct {
	BehaviorID    int  `json:"behavior_id"`
	FirstPriority bool `json:"first_priority"`
	HighPriority  bool `json:"high_priority"`
}

type BehaviorService struct {
	catalog   *catalog.Catalog
	behaviors BehaviorRepository
}

func NewBehaviorService(c *catalog.Catalog, st *store.Store) *BehaviorService {
	return &BehaviorService{catalog: c, behaviors: st.Behaviors}
}

func (s *BehaviorService) Catalog() []catalog.Behavior {
	return s.catalog.Behaviors()
}

// Submit replaces the user's behavior set. Titles come from the catalog.
func (s *BehaviorService) Submit(ctx context.Context, userID int, selections []BehaviorSelection) ([]models.Behavior, error) {
	out := make([]models.Behavior, 0, len(selections))
	for _, sel := range selections {
		def, ok := s.catalog.Behavior(sel.BehaviorID)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownBehavior, sel.BehaviorID)
		}
		out = append(out, models.Behavior{
			UserID:        userID,
			BehaviorID:    def.ID,
			BehaviorTitle: def.Title,
			FirstPriority: sel.FirstPriority,
			HighPriority:  sel.HighPriority,
		})
	}
	if err := s.behaviors.Replace(ctx, userID, out); err != nil {
		return nil, fmt.Errorf("save behaviors: %w", err)
	}
	return out, nil
}

func (s *BehaviorService) ForUser(ctx context.Context, userID int) ([]models.Behavior, error) {
	return s.behaviors.ForUser(ctx, userID)
}

func (s *BehaviorService) Submitted(ctx context.Context, userID int) (bool, error) {
	return s.behaviors.Exists(ctx, userID)
}
