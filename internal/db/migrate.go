package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    email TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    first_name TEXT,
    last_name TEXT,
    age INTEGER,
    occupation TEXT,
    lifestyle_type TEXT,
    city TEXT,
    country TEXT,
    dietary_influence TEXT,
    is_admin BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS user_goals (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    local_date DATE NOT NULL,
    goal_text TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    UNIQUE(user_id, local_date)
);

CREATE TABLE IF NOT EXISTS user_tips (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    local_date DATE NOT NULL,
    tips_text TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    UNIQUE(user_id, local_date)
);

CREATE TABLE IF NOT EXISTS answer_sets (
    user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    answers JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS user_behaviors (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    behavior_id INTEGER NOT NULL,
    behavior_title TEXT NOT NULL,
    first_priority BOOLEAN NOT NULL DEFAULT false,
    high_priority BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS trait_profiles (
    user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    scores JSONB NOT NULL,
    dominant_trait TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS food_updates (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS food_images (
    id SERIAL PRIMARY KEY,
    food_update_id INTEGER NOT NULL REFERENCES food_updates(id) ON DELETE CASCADE,
    image_path TEXT NOT NULL
);
`

// Columns added after the first release.
const postgresAlters = `
DO $$ BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM information_schema.columns WHERE table_name='users' AND column_name='dietary_influence'
    ) THEN
        ALTER TABLE users ADD COLUMN dietary_influence TEXT;
    END IF;
    IF NOT EXISTS (
        SELECT 1 FROM information_schema.columns WHERE table_name='users' AND column_name='is_admin'
    ) THEN
        ALTER TABLE users ADD COLUMN is_admin BOOLEAN NOT NULL DEFAULT false;
    END IF;
END $$;`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    first_name TEXT,
    last_name TEXT,
    age INTEGER,
    occupation TEXT,
    lifestyle_type TEXT,
    city TEXT,
    country TEXT,
    dietary_influence TEXT,
    is_admin BOOLEAN NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS user_goals (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    local_date DATE NOT NULL,
    goal_text TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    UNIQUE(user_id, local_date)
);

CREATE TABLE IF NOT EXISTS user_tips (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    local_date DATE NOT NULL,
    tips_text TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    UNIQUE(user_id, local_date)
);

CREATE TABLE IF NOT EXISTS answer_sets (
    user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    answers TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS user_behaviors (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    behavior_id INTEGER NOT NULL,
    behavior_title TEXT NOT NULL,
    first_priority BOOLEAN NOT NULL DEFAULT 0,
    high_priority BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS trait_profiles (
    user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    scores TEXT NOT NULL,
    dominant_trait TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS food_updates (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS food_images (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    food_update_id INTEGER NOT NULL REFERENCES food_updates(id) ON DELETE CASCADE,
    image_path TEXT NOT NULL
);
`

// IsPostgres reports whether the connection speaks the Postgres dialect.
func IsPostgres(db *sqlx.DB) bool {
	switch strings.ToLower(db.DriverName()) {
	case "pgx", "postgres", "postgresql":
		return true
	}
	return false
}

func RunMigrations(ctx context.Context, db *sqlx.DB) error {
	if IsPostgres(db) {
		if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := db.ExecContext(ctx, postgresAlters); err != nil {
			return fmt.Errorf("alter schema: %w", err)
		}
		return nil
	}
	// go-sqlite3 executes multi-statement strings in one Exec. Foreign keys
	// are enabled per connection by the DSN, see Open.
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
