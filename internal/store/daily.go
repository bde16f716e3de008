package store

import (
	"context"
	"fmt"
	"time"

	"mindfuleat/internal/crypto"
	"mindfuleat/internal/models"
)

// GoalStore keeps at most one goal per user and calendar day.
type GoalStore struct {
	base
	cipher *crypto.FieldCipher
}

// Upsert writes the goal for day. A second call on the same day replaces the
// text and keeps the original created_at.
func (s *GoalStore) Upsert(ctx context.Context, userID int, day time.Time, text string) (models.Goal, error) {
	sealed, err := s.cipher.Seal(text)
	if err != nil {
		return models.Goal{}, fmt.Errorf("seal goal: %w", err)
	}
	now := s.now()
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO user_goals (user_id, local_date, goal_text, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (user_id, local_date) DO UPDATE SET goal_text = excluded.goal_text, updated_at = excluded.updated_at`),
		userID, DayKey(day), sealed, now, now,
	)
	if err != nil {
		return models.Goal{}, fmt.Errorf("upsert goal: %w", err)
	}
	return s.ForDay(ctx, userID, day)
}

func (s *GoalStore) ForDay(ctx context.Context, userID int, day time.Time) (models.Goal, error) {
	var g models.Goal
	err := s.db.GetContext(ctx, &g, s.q(`SELECT id, user_id, local_date, goal_text, created_at, updated_at
        FROM user_goals WHERE user_id = ? AND local_date = ?`), userID, DayKey(day))
	if err != nil {
		return models.Goal{}, notFound(err)
	}
	if g.GoalText, err = s.cipher.Open(g.GoalText); err != nil {
		return models.Goal{}, fmt.Errorf("open goal: %w", err)
	}
	return g, nil
}

// Days returns the days a user set a goal, newest first.
func (s *GoalStore) Days(ctx context.Context, userID, limit int) ([]time.Time, error) {
	var days []time.Time
	err := s.db.SelectContext(ctx, &days, s.q(`SELECT local_date FROM user_goals
        WHERE user_id = ? ORDER BY local_date DESC LIMIT ?`), userID, limit)
	return days, err
}

func (s *GoalStore) CountForDay(ctx context.Context, day time.Time) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM user_goals WHERE local_date = ?`), DayKey(day))
	return n, err
}

// TipStore keeps at most one tip per user and calendar day.
type TipStore struct {
	base
}

func (s *TipStore) Upsert(ctx context.Context, userID int, day time.Time, text string) (models.Tip, error) {
	now := s.now()
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO user_tips (user_id, local_date, tips_text, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (user_id, local_date) DO UPDATE SET tips_text = excluded.tips_text, updated_at = excluded.updated_at`),
		userID, DayKey(day), text, now, now,
	)
	if err != nil {
		return models.Tip{}, fmt.Errorf("upsert tip: %w", err)
	}
	return s.ForDay(ctx, userID, day)
}

func (s *TipStore) ForDay(ctx context.Context, userID int, day time.Time) (models.Tip, error) {
	var t models.Tip
	err := s.db.GetContext(ctx, &t, s.q(`SELECT id, user_id, local_date, tips_text, created_at, updated_at
        FROM user_tips WHERE user_id = ? AND local_date = ?`), userID, DayKey(day))
	return t, notFound(err)
}

func (s *TipStore) CountForDay(ctx context.Context, day time.Time) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM user_tips WHERE local_date = ?`), DayKey(day))
	return n, err
}
