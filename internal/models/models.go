package models

import "time"

type User struct {
	ID               int       `db:"id" json:"id"`
	Email            string    `db:"email" json:"email"`
	PasswordHash     string    `db:"password_hash" json:"-"`
	FirstName        *string   `db:"first_name" json:"first_name,omitempty"`
	LastName         *string   `db:"last_name" json:"last_name,omitempty"`
	Age              *int      `db:"age" json:"age,omitempty"`
	Occupation       *string   `db:"occupation" json:"occupation,omitempty"`
	LifestyleType    *string   `db:"lifestyle_type" json:"lifestyle_type,omitempty"`
	City             *string   `db:"city" json:"city,omitempty"`
	Country          *string   `db:"country" json:"country,omitempty"`
	DietaryInfluence *string   `db:"dietary_influence" json:"cultural_religious_dietary_influence,omitempty"`
	IsAdmin          bool      `db:"is_admin" json:"is_admin"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Goal is a user's intention for one calendar day.
type Goal struct {
	ID        int       `db:"id" json:"-"`
	UserID    int       `db:"user_id" json:"-"`
	LocalDate time.Time `db:"local_date" json:"-"`
	GoalText  string    `db:"goal_text" json:"goal_text"` // Encrypted in DB when a key is configured
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

// Tip is the generated advice for one user and calendar day.
type Tip struct {
	ID        int       `db:"id" json:"-"`
	UserID    int       `db:"user_id" json:"-"`
	LocalDate time.Time `db:"local_date" json:"-"`
	TipsText  string    `db:"tips_text" json:"tips_text"`
	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

type Behavior struct {
	ID            int    `db:"id" json:"-"`
	UserID        int    `db:"user_id" json:"-"`
	BehaviorID    int    `db:"behavior_id" json:"behavior_id"`
	BehaviorTitle string `db:"behavior_title" json:"behavior_title"`
	FirstPriority bool   `db:"first_priority" json:"first_priority"`
	HighPriority  bool   `db:"high_priority" json:"high_priority"`
}

// TraitProfile is the stored Big Five estimate for a user.
type TraitProfile struct {
	UserID        int                `json:"-"`
	Scores        map[string]float64 `json:"big_five_data"`
	DominantTrait string             `json:"max_value"`
	CreatedAt     time.Time          `json:"-"`
}

type FoodUpdate struct {
	ID          int         `db:"id" json:"id"`
	UserID      int         `db:"user_id" json:"-"`
	Description string      `db:"description" json:"description"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	Images      []FoodImage `db:"-" json:"images"`
}

type FoodImage struct {
	ID           int    `db:"id" json:"id"`
	FoodUpdateID int    `db:"food_update_id" json:"-"`
	ImagePath    string `db:"image_path" json:"image_path"`
}
