package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"mindfuleat/internal/crypto"
)

var ErrNotFound = errors.New("not found")

// dayLayout is how local_date is bound on both dialects.
const dayLayout = "2006-01-02"

// DayKey formats the calendar day a row belongs to.
func DayKey(day time.Time) string {
	return day.Format(dayLayout)
}

type base struct {
	db  *sqlx.DB
	now func() time.Time
}

// q rebinds a query written with ? placeholders for the active driver.
func (b base) q(query string) string {
	return b.db.Rebind(query)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Store groups the repositories that share one connection pool.
type Store struct {
	DB        *sqlx.DB
	Users     *UserStore
	Goals     *GoalStore
	Tips      *TipStore
	Answers   *AnswerStore
	Behaviors *BehaviorStore
	Profiles  *TraitProfileStore
	Food      *FoodStore
}

func New(db *sqlx.DB, cipher *crypto.FieldCipher) *Store {
	return NewWithClock(db, cipher, time.Now)
}

func NewWithClock(db *sqlx.DB, cipher *crypto.FieldCipher, now func() time.Time) *Store {
	b := base{db: db, now: func() time.Time { return now().UTC() }}
	return &Store{
		DB:        db,
		Users:     &UserStore{base: b},
		Goals:     &GoalStore{base: b, cipher: cipher},
		Tips:      &TipStore{base: b},
		Answers:   &AnswerStore{base: b},
		Behaviors: &BehaviorStore{base: b},
		Profiles:  &TraitProfileStore{base: b},
		Food:      &FoodStore{base: b},
	}
}
