package store

import (
	"context"
	"fmt"

	"mindfuleat/internal/models"
)

const userColumns = `id, email, password_hash, first_name, last_name, age, occupation,
lifestyle_type, city, country, dietary_influence, is_admin, created_at`

type UserStore struct {
	base
}

// ProfileUpdate carries the editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	FirstName        *string `json:"first_name"`
	LastName         *string `json:"last_name"`
	Age              *int    `json:"age"`
	Occupation       *string `json:"occupation"`
	LifestyleType    *string `json:"lifestyle_type"`
	City             *string `json:"city"`
	Country          *string `json:"country"`
	DietaryInfluence *string `json:"cultural_religious_dietary_influence"`
}

func (s *UserStore) Create(ctx context.Context, email, passwordHash string) (models.User, error) {
	var id int
	err := s.db.QueryRowxContext(ctx,
		s.q(`INSERT INTO users (email, password_hash, created_at) VALUES (?, ?, ?) RETURNING id`),
		email, passwordHash, s.now(),
	).Scan(&id)
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return s.ByID(ctx, id)
}

func (s *UserStore) ByID(ctx context.Context, id int) (models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, s.q(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	return u, notFound(err)
}

func (s *UserStore) ByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, s.q(`SELECT `+userColumns+` FROM users WHERE email = ?`), email)
	return u, notFound(err)
}

func (s *UserStore) UpdateProfile(ctx context.Context, id int, p ProfileUpdate) (models.User, error) {
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE users SET
        first_name = COALESCE(?, first_name),
        last_name = COALESCE(?, last_name),
        age = COALESCE(?, age),
        occupation = COALESCE(?, occupation),
        lifestyle_type = COALESCE(?, lifestyle_type),
        city = COALESCE(?, city),
        country = COALESCE(?, country),
        dietary_influence = COALESCE(?, dietary_influence)
        WHERE id = ?`),
		p.FirstName, p.LastName, p.Age, p.Occupation, p.LifestyleType, p.City, p.Country, p.DietaryInfluence, id,
	)
	if err != nil {
		return models.User{}, fmt.Errorf("update profile: %w", err)
	}
	return s.ByID(ctx, id)
}

func (s *UserStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`)
	return n, err
}
