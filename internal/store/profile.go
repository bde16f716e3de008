package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"mindfuleat/internal/models"
	"mindfuleat/internal/questionnaire"
)

// AnswerEntry is one stored answer as read back from the database.
type AnswerEntry struct {
	Question string          `json:"question"`
	Answer   json.RawMessage `json:"answer"`
}

// AnswerStore keeps the latest questionnaire submission per user.
type AnswerStore struct {
	base
}

// Replace overwrites the user's answer set with set.
func (s *AnswerStore) Replace(ctx context.Context, userID int, set map[string]questionnaire.Entry) error {
	b, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO answer_sets (user_id, answers, updated_at) VALUES (?, ?, ?)
        ON CONFLICT (user_id) DO UPDATE SET answers = excluded.answers, updated_at = excluded.updated_at`),
		userID, string(b), s.now(),
	)
	if err != nil {
		return fmt.Errorf("save answers: %w", err)
	}
	return nil
}

func (s *AnswerStore) Get(ctx context.Context, userID int) (map[string]AnswerEntry, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, s.q(`SELECT answers FROM answer_sets WHERE user_id = ?`), userID)
	if err != nil {
		return nil, notFound(err)
	}
	out := map[string]AnswerEntry{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return out, nil
}

func (s *AnswerStore) Exists(ctx context.Context, userID int) (bool, error) {
	return exists(ctx, s.base, `SELECT 1 FROM answer_sets WHERE user_id = ?`, userID)
}

// BehaviorStore keeps the user's selected eating behaviors.
type BehaviorStore struct {
	base
}

// Replace swaps the whole behavior set in one transaction.
func (s *BehaviorStore) Replace(ctx context.Context, userID int, behaviors []models.Behavior) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM user_behaviors WHERE user_id = ?`), userID); err != nil {
		return fmt.Errorf("clear behaviors: %w", err)
	}
	insert := s.q(`INSERT INTO user_behaviors (user_id, behavior_id, behavior_title, first_priority, high_priority)
        VALUES (?, ?, ?, ?, ?)`)
	for _, b := range behaviors {
		if _, err := tx.ExecContext(ctx, insert, userID, b.BehaviorID, b.BehaviorTitle, b.FirstPriority, b.HighPriority); err != nil {
			return fmt.Errorf("insert behavior %d: %w", b.BehaviorID, err)
		}
	}
	return tx.Commit()
}

// ForUser returns the user's behaviors in insertion order.
func (s *BehaviorStore) ForUser(ctx context.Context, userID int) ([]models.Behavior, error) {
	out := []models.Behavior{}
	err := s.db.SelectContext(ctx, &out, s.q(`SELECT id, user_id, behavior_id, behavior_title, first_priority, high_priority
        FROM user_behaviors WHERE user_id = ? ORDER BY id`), userID)
	return out, err
}

// MostRelevant picks first_priority, then high_priority, then the earliest inserted.
func (s *BehaviorStore) MostRelevant(ctx context.Context, userID int) (models.Behavior, error) {
	var b models.Behavior
	err := s.db.GetContext(ctx, &b, s.q(`SELECT id, user_id, behavior_id, behavior_title, first_priority, high_priority
        FROM user_behaviors WHERE user_id = ?
        ORDER BY first_priority DESC, high_priority DESC, id ASC LIMIT 1`), userID)
	return b, notFound(err)
}

func (s *BehaviorStore) Exists(ctx context.Context, userID int) (bool, error) {
	return exists(ctx, s.base, `SELECT 1 FROM user_behaviors WHERE user_id = ? LIMIT 1`, userID)
}

// TraitProfileStore holds one Big Five estimate per user.
type TraitProfileStore struct {
	base
}

func (s *TraitProfileStore) Save(ctx context.Context, p models.TraitProfile) error {
	b, err := json.Marshal(p.Scores)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO trait_profiles (user_id, scores, dominant_trait, created_at) VALUES (?, ?, ?, ?)
        ON CONFLICT (user_id) DO UPDATE SET scores = excluded.scores, dominant_trait = excluded.dominant_trait`),
		p.UserID, string(b), p.DominantTrait, s.now(),
	)
	if err != nil {
		return fmt.Errorf("save trait profile: %w", err)
	}
	return nil
}

func (s *TraitProfileStore) Get(ctx context.Context, userID int) (models.TraitProfile, error) {
	var row struct {
		UserID        int    `db:"user_id"`
		Scores        string `db:"scores"`
		DominantTrait string `db:"dominant_trait"`
	}
	err := s.db.GetContext(ctx, &row, s.q(`SELECT user_id, scores, dominant_trait FROM trait_profiles WHERE user_id = ?`), userID)
	if err != nil {
		return models.TraitProfile{}, notFound(err)
	}
	p := models.TraitProfile{UserID: row.UserID, DominantTrait: row.DominantTrait, Scores: map[string]float64{}}
	if err := json.Unmarshal([]byte(row.Scores), &p.Scores); err != nil {
		return models.TraitProfile{}, fmt.Errorf("decode scores: %w", err)
	}
	return p, nil
}

func exists(ctx context.Context, b base, query string, args ...any) (bool, error) {
	var one int
	err := b.db.GetContext(ctx, &one, b.q(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
