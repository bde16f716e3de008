package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindfuleat/internal/models"
	"mindfuleat/internal/ready"
	"mindfuleat/internal/store"
	"mindfuleat/internal/tipgen"
	"mindfuleat/internal/traits"
)

func newTipService(st *store.Store, p TraitPredictor, g TipGenerator) *TipService {
	return NewTipService(st, p, g, testCalendar(), nil, nil)
}

func TestTodayWithoutGoalCreatesNothing(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	u := newUser(t, st)
	pred, gen := &fakePredictor{}, &fakeGenerator{}

	res, err := newTipService(st, pred, gen).Today(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, StateNoGoal, res.State)
	assert.Nil(t, res.Tip)

	_, err = st.Tips.ForDay(ctx, u.ID, today())
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, pred.Calls())
	assert.Empty(t, gen.Calls())
}

func TestTodayGeneratesOnceThenServesStoredTip(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	u := newUser(t, st)
	_, err := st.Goals.Upsert(ctx, u.ID, today(), "stop eating in front of the TV")
	require.NoError(t, err)
	pred, gen := &fakePredictor{}, &fakeGenerator{}
	svc := newTipService(st, pred, gen)

	first, err := svc.Today(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, StateHasTip, first.State)
	assert.True(t, first.Generated)
	assert.Equal(t, "Chew slowly and notice the flavors.", first.Tip.TipsText)

	second, err := svc.Today(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, StateHasTip, second.State)
	assert.False(t, second.Generated)
	assert.Equal(t, first.Tip.TipsText, second.Tip.TipsText)

	assert.Len(t, pred.Calls(), 1)
	assert.Len(t, gen.Calls(), 1)
}

func TestGenerationInputs(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	u := newUser(t, st)
	_, err := st.Goals.Upsert(ctx, u.ID, today(), "eat breakfast at home")
	require.NoError(t, err)
	require.NoError(t, st.Behaviors.Replace(ctx, u.ID, []models.Behavior{
		{BehaviorID: 1, BehaviorTitle: "Snacking", HighPriority: true},
		{BehaviorID: 2, BehaviorTitle: "Emotional eating", FirstPriority: true},
	}))
	require.NoError(t, st.Profiles.Save(ctx, models.TraitProfile{
		UserID:        u.ID,
		Scores:        map[string]float64{"openness": 0.9, "neuroticism": 0.1},
		DominantTrait: "Openness",
	}))
	pred := &fakePredictor{result: traits.Prediction{DominantTrait: "Openness", TraitScores: map[string]float64{}}}
	gen := &fakeGenerator{}

	_, err = newTipService(st, pred, gen).Today(ctx, u.ID)
	require.NoError(t, err)

	require.Len(t, pred.Calls(), 1)
	assert.Equal(t, "eat breakfast at home", pred.Calls()[0].Text)
	assert.Equal(t, []float64{0.9, 0.5, 0.5, 0.5, 0.1}, pred.Calls()[0].Prior)
	require.Len(t, gen.Calls(), 1)
	assert.Equal(t, generateCall{Trait: "Openness", Behavior: "Emotional eating"}, gen.Calls()[0])
}

func TestGenerationFallsBackToGeneralBehavior(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	u := newUser(t, st)
	_, err := st.Goals.Upsert(ctx, u.ID, today(), "smaller plates")
	require.NoError(t, err)
	pred, gen := &fakePredictor{}, &fakeGenerator{}

	_, err = newTipService(st, pred, gen).Today(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, gen.Calls(), 1)
	assert.Equal(t, FallbackBehavior, gen.Calls()[0].Behavior)
	assert.Nil(t, pred.Calls()[0].Prior)
}

func TestGeneratedTipIsSanitized(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	u := newUser(t, st)
	_, err := st.Goals.Upsert(ctx, u.ID, today(), "goal")
	require.NoError(t, err)
	gen := &fakeGenerator{text: "  Eat\u00a0slowly \U0001F34E today!\u200b  "}

	res, err := newTipService(st, &fakePredictor{}, gen).Today(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Eat slowly today!", res.Tip.TipsText)
}

func TestGeneratedTipEmptyAfterCleaningUsesFallback(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	u := newUser(t, st)
	_, err := st.Goals.Upsert(ctx, u.ID, today(), "goal")
	require.NoError(t, err)
	gen := &fakeGenerator{text: "\U0001F34E\U0001F34E"}

	res, err := newTipService(st, &fakePredictor{}, gen).Today(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, tipgen.FallbackTip, res.Tip.TipsText)
}

// The trait service answers 500: the tip is still produced with the default trait.
func TestTraitServiceFailureStillProducesTip(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	st := newStore(t)
	u := newUser(t, st)
	_, err := st.Goals.Upsert(ctx, u.ID, today(), "mindful lunch")
	require.NoError(t, err)
	client := traits.NewClient(traits.Config{URL: srv.URL, Timeout: time.Second}, ready.Resolved(), nil, nil)
	gen := &fakeGenerator{}

	res, err := newTipService(st, client, gen).Today(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, StateHasTip, res.State)
	assert.NotEmpty(t, res.Tip.TipsText)
	require.Len(t, gen.Calls(), 1)
	assert.Equal(t, "Conscientiousness", gen.Calls()[0].Trait)
}

func TestConcurrentReadsGenerateOnce(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	u := newUser(t, st)
	_, err := st.Goals.Upsert(ctx, u.ID, today(), "goal")
	require.NoError(t, err)
	gen := &fakeGenerator{release: make(chan struct{})}
	svc := newTipService(st, &fakePredictor{}, gen)

	var wg sync.WaitGroup
	results := make([]TodayResult, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Today(ctx, u.ID)
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(gen.release)
	wg.Wait()

	assert.Len(t, gen.Calls(), 1)
	for _, res := range results {
		require.NotNil(t, res.Tip)
		assert.Equal(t, "Chew slowly and notice the flavors.", res.Tip.TipsText)
	}
}

type failingTips struct {
	TipRepository
}

func (failingTips) Upsert(context.Context, int, time.Time, string) (models.Tip, error) {
	return models.Tip{}, errors.New("disk full")
}

func TestTodayReportsGoalWithoutTipWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	u := newUser(t, st)
	_, err := st.Goals.Upsert(ctx, u.ID, today(), "goal")
	require.NoError(t, err)

	svc := newTipService(st, &fakePredictor{}, &fakeGenerator{})
	svc.tips = failingTips{TipRepository: st.Tips}

	res, err := svc.Today(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, StateGoalNoTip, res.State)
	assert.Nil(t, res.Tip)
}

// lateWriterTips misses on the first read and stores a tip as if another
// request finished generating right after that miss.
type lateWriterTips struct {
	TipRepository
	missed bool
}

func (l *lateWriterTips) ForDay(ctx context.Context, userID int, day time.Time) (models.Tip, error) {
	if !l.missed {
		l.missed = true
		if _, err := l.TipRepository.Upsert(ctx, userID, day, "Stored by another request."); err != nil {
			return models.Tip{}, err
		}
		return models.Tip{}, store.ErrNotFound
	}
	return l.TipRepository.ForDay(ctx, userID, day)
}

func TestTodayServesTipStoredDuringRaceAsNotGenerated(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	u := newUser(t, st)
	_, err := st.Goals.Upsert(ctx, u.ID, today(), "goal")
	require.NoError(t, err)

	gen := &fakeGenerator{}
	svc := newTipService(st, &fakePredictor{}, gen)
	svc.tips = &lateWriterTips{TipRepository: st.Tips}

	res, err := svc.Today(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, StateHasTip, res.State)
	assert.False(t, res.Generated)
	require.NotNil(t, res.Tip)
	assert.Equal(t, "Stored by another request.", res.Tip.TipsText)
	assert.Empty(t, gen.Calls())
}

func TestRefreshRegeneratesForLatestGoal(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	u := newUser(t, st)
	pred, gen := &fakePredictor{}, &fakeGenerator{}
	svc := newTipService(st, pred, gen)

	require.NoError(t, svc.Refresh(ctx, u.ID, today()))
	_, err := st.Tips.ForDay(ctx, u.ID, today())
	assert.ErrorIs(t, err, store.ErrNotFound, "no goal means no tip")

	_, err = st.Goals.Upsert(ctx, u.ID, today(), "first goal")
	require.NoError(t, err)
	require.NoError(t, svc.Refresh(ctx, u.ID, today()))
	_, err = st.Goals.Upsert(ctx, u.ID, today(), "second goal")
	require.NoError(t, err)
	require.NoError(t, svc.Refresh(ctx, u.ID, today()))

	calls := pred.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "second goal", calls[1].Text)
}

func TestOverride(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	u := newUser(t, st)
	svc := newTipService(st, &fakePredictor{}, &fakeGenerator{})

	_, _, err := svc.Override(ctx, u.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyTip)

	tip, created, err := svc.Override(ctx, u.ID, "Pause before second helpings.")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Pause before second helpings.", tip.TipsText)

	tip, created, err = svc.Override(ctx, u.ID, "Drink a glass of water first.")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Drink a glass of water first.", tip.TipsText)
}
