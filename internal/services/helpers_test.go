package services

import (
	"context"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"mindfuleat/internal/db"
	"mindfuleat/internal/models"
	"mindfuleat/internal/store"
	"mindfuleat/internal/traits"
)

var testNow = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

func testCalendar() Calendar {
	return Calendar{Now: func() time.Time { return testNow }, Location: time.UTC}
}

func today() time.Time {
	return testCalendar().Today()
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	conn, err := db.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), conn))
	return store.NewWithClock(conn, nil, func() time.Time { return testNow })
}

func newUser(t *testing.T, st *store.Store) models.User {
	t.Helper()
	u, err := st.Users.Create(context.Background(), "user@example.com", "hash")
	require.NoError(t, err)
	return u
}

type predictCall struct {
	Text  string
	Prior []float64
}

type fakePredictor struct {
	mu     sync.Mutex
	calls  []predictCall
	result traits.Prediction
	err    error
}

func (f *fakePredictor) Predict(_ context.Context, text string, prior []float64) traits.Prediction {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, predictCall{Text: text, Prior: prior})
	if f.result.DominantTrait == "" {
		return traits.Default()
	}
	return f.result
}

func (f *fakePredictor) Try(ctx context.Context, text string, prior []float64) (traits.Prediction, error) {
	if f.err != nil {
		return traits.Prediction{}, f.err
	}
	return f.Predict(ctx, text, prior), nil
}

func (f *fakePredictor) Calls() []predictCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]predictCall(nil), f.calls...)
}

type generateCall struct {
	Trait    string
	Behavior string
}

type fakeGenerator struct {
	mu      sync.Mutex
	calls   []generateCall
	text    string
	release chan struct{}
}

func (f *fakeGenerator) Generate(_ context.Context, trait, behavior string) string {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, generateCall{Trait: trait, Behavior: behavior})
	if f.text == "" {
		return "Chew slowly and notice the flavors."
	}
	return f.text
}

func (f *fakeGenerator) Calls() []generateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]generateCall(nil), f.calls...)
}

// recordingSubmitter collects tasks so tests can run them explicitly.
type recordingSubmitter struct {
	mu    sync.Mutex
	tasks []Task
}

func (r *recordingSubmitter) Submit(t Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, t)
	return true
}

func (r *recordingSubmitter) Tasks() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Task(nil), r.tasks...)
}
