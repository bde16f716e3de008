package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"mindfuleat/internal/models"
)

type FoodStore struct {
	base
}

// Create records a food update and the paths of its already saved images.
func (s *FoodStore) Create(ctx context.Context, userID int, description string, imagePaths []string) (models.FoodUpdate, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.FoodUpdate{}, err
	}
	defer tx.Rollback()

	fu := models.FoodUpdate{UserID: userID, Description: description, CreatedAt: s.now(), Images: []models.FoodImage{}}
	err = tx.QueryRowxContext(ctx,
		s.q(`INSERT INTO food_updates (user_id, description, created_at) VALUES (?, ?, ?) RETURNING id`),
		userID, description, fu.CreatedAt,
	).Scan(&fu.ID)
	if err != nil {
		return models.FoodUpdate{}, fmt.Errorf("insert food update: %w", err)
	}

	insert := s.q(`INSERT INTO food_images (food_update_id, image_path) VALUES (?, ?) RETURNING id`)
	for _, p := range imagePaths {
		img := models.FoodImage{FoodUpdateID: fu.ID, ImagePath: p}
		if err := tx.QueryRowxContext(ctx, insert, fu.ID, p).Scan(&img.ID); err != nil {
			return models.FoodUpdate{}, fmt.Errorf("insert food image: %w", err)
		}
		fu.Images = append(fu.Images, img)
	}
	if err := tx.Commit(); err != nil {
		return models.FoodUpdate{}, err
	}
	return fu, nil
}

// ForUser lists the user's updates newest first, with their images.
func (s *FoodStore) ForUser(ctx context.Context, userID int) ([]models.FoodUpdate, error) {
	updates := []models.FoodUpdate{}
	err := s.db.SelectContext(ctx, &updates, s.q(`SELECT id, user_id, description, created_at
        FROM food_updates WHERE user_id = ? ORDER BY created_at DESC, id DESC`), userID)
	if err != nil {
		return nil, err
	}
	if err := s.attachImages(ctx, updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// Get returns one update owned by userID.
func (s *FoodStore) Get(ctx context.Context, userID, id int) (models.FoodUpdate, error) {
	var fu models.FoodUpdate
	err := s.db.GetContext(ctx, &fu, s.q(`SELECT id, user_id, description, created_at
        FROM food_updates WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return models.FoodUpdate{}, notFound(err)
	}
	updates := []models.FoodUpdate{fu}
	if err := s.attachImages(ctx, updates); err != nil {
		return models.FoodUpdate{}, err
	}
	return updates[0], nil
}

func (s *FoodStore) attachImages(ctx context.Context, updates []models.FoodUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	ids := make([]int, len(updates))
	byID := make(map[int]int, len(updates))
	for i := range updates {
		ids[i] = updates[i].ID
		byID[updates[i].ID] = i
		updates[i].Images = []models.FoodImage{}
	}
	query, args, err := sqlx.In(`SELECT id, food_update_id, image_path FROM food_images WHERE food_update_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	var images []models.FoodImage
	if err := s.db.SelectContext(ctx, &images, s.q(query), args...); err != nil {
		return fmt.Errorf("load food images: %w", err)
	}
	for _, img := range images {
		i := byID[img.FoodUpdateID]
		updates[i].Images = append(updates[i].Images, img)
	}
	return nil
}
