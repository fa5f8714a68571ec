package client

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI lets each test script the adapter per call.
type fakeAPI struct {
	fetch       func(ctx context.Context) (*FoodHistory, error)
	updateItem  func(ctx context.Context, id uint, m Macros) error
	updateGoals func(ctx context.Context, targets Targets) error
}

func (f *fakeAPI) FetchFoodHistory(ctx context.Context) (*FoodHistory, error) {
	return f.fetch(ctx)
}

func (f *fakeAPI) UpdateFoodItem(ctx context.Context, id uint, m Macros) error {
	if f.updateItem == nil {
		return nil
	}
	return f.updateItem(ctx, id, m)
}

func (f *fakeAPI) UpdateTargets(ctx context.Context, targets Targets) error {
	if f.updateGoals == nil {
		return nil
	}
	return f.updateGoals(ctx, targets)
}

func historyFixture() *FoodHistory {
	target := 2000.0
	return &FoodHistory{
		CalorieTarget: &target,
		Images: []CaptureImage{
			{ID: 1, ImageURL: "https://cdn.test/a.jpg", FoodItems: []FoodItem{
				{ID: 10, Name: "Eggs", Calories: 140, Protein: 12, CreatedAt: time.Now()},
				{ID: 11, Name: "Toast", Calories: 120, Carbs: 20, CreatedAt: time.Now()},
			}},
		},
	}
}

func TestLoadHistoryAppliesFetch(t *testing.T) {
	want := historyFixture()
	s := NewSession(&fakeAPI{fetch: func(context.Context) (*FoodHistory, error) { return want, nil }})

	require.Nil(t, s.History())
	require.NoError(t, s.LoadHistory(context.Background()))
	assert.Same(t, want, s.History())
}

func TestLoadHistoryNoTokenClearsView(t *testing.T) {
	calls := 0
	s := NewSession(&fakeAPI{fetch: func(context.Context) (*FoodHistory, error) {
		calls++
		if calls == 1 {
			return historyFixture(), nil
		}
		return nil, ErrNoToken
	}})

	require.NoError(t, s.LoadHistory(context.Background()))
	require.NotNil(t, s.History())

	// Signed out between fetches: not an error, just an empty view.
	require.NoError(t, s.LoadHistory(context.Background()))
	assert.Nil(t, s.History())
}

func TestLoadHistoryPropagatesFailure(t *testing.T) {
	s := NewSession(&fakeAPI{fetch: func(context.Context) (*FoodHistory, error) {
		return nil, fmt.Errorf("connection refused")
	}})

	err := s.LoadHistory(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Nil(t, s.History())
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	slow := historyFixture()
	fresh := &FoodHistory{Images: []CaptureImage{{ID: 2, ImageURL: "https://cdn.test/b.jpg"}}}

	firstStarted := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	var mu sync.Mutex
	s := NewSession(&fakeAPI{fetch: func(context.Context) (*FoodHistory, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(firstStarted)
			<-release
			return slow, nil
		}
		return fresh, nil
	}})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.LoadHistory(context.Background()))
	}()

	<-firstStarted
	// The second fetch is issued later and completes first.
	require.NoError(t, s.LoadHistory(context.Background()))
	require.Same(t, fresh, s.History())

	close(release)
	wg.Wait()

	// The slow response was stale by the time it landed.
	assert.Same(t, fresh, s.History())
}

func TestEditMacrosOptimisticSuccess(t *testing.T) {
	var sent Macros
	s := NewSession(&fakeAPI{
		fetch:      func(context.Context) (*FoodHistory, error) { return historyFixture(), nil },
		updateItem: func(_ context.Context, _ uint, m Macros) error { sent = m; return nil },
	})
	require.NoError(t, s.LoadHistory(context.Background()))

	edit := Macros{Calories: 160, Carbs: 1, Fat: 11, Protein: 13}
	require.NoError(t, s.EditMacros(context.Background(), 10, edit))

	assert.Equal(t, edit, sent)
	got := s.History().Images[0].FoodItems[0]
	assert.Equal(t, 160.0, got.Calories)
	assert.Equal(t, 13.0, got.Protein)
}

func TestEditMacrosRollsBackOnFailure(t *testing.T) {
	s := NewSession(&fakeAPI{
		fetch:      func(context.Context) (*FoodHistory, error) { return historyFixture(), nil },
		updateItem: func(context.Context, uint, Macros) error { return fmt.Errorf("server returned 500") },
	})
	require.NoError(t, s.LoadHistory(context.Background()))

	err := s.EditMacros(context.Background(), 10, Macros{Calories: 999})
	require.Error(t, err)

	got := s.History().Images[0].FoodItems[0]
	assert.Equal(t, 140.0, got.Calories)
	assert.Equal(t, 12.0, got.Protein)
}

func TestEditMacrosRejectsSecondEditOnSameRecord(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	s := NewSession(&fakeAPI{
		fetch: func(context.Context) (*FoodHistory, error) { return historyFixture(), nil },
		updateItem: func(context.Context, uint, Macros) error {
			blocked := false
			once.Do(func() {
				blocked = true
				close(started)
			})
			if blocked {
				<-release
			}
			return nil
		},
	})
	require.NoError(t, s.LoadHistory(context.Background()))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.EditMacros(context.Background(), 10, Macros{Calories: 150}))
	}()

	<-started
	err := s.EditMacros(context.Background(), 10, Macros{Calories: 170})
	assert.ErrorIs(t, err, ErrEditInFlight)

	close(release)
	wg.Wait()

	// After the first edit lands the record is editable again.
	require.NoError(t, s.EditMacros(context.Background(), 10, Macros{Calories: 170}))
	assert.Equal(t, 170.0, s.History().Images[0].FoodItems[0].Calories)
}

func TestEditMacrosRollbackSparesOtherRecords(t *testing.T) {
	failStarted := make(chan struct{})
	failRelease := make(chan struct{})
	s := NewSession(&fakeAPI{
		fetch: func(context.Context) (*FoodHistory, error) { return historyFixture(), nil },
		updateItem: func(_ context.Context, id uint, _ Macros) error {
			if id == 10 {
				close(failStarted)
				<-failRelease
				return fmt.Errorf("timeout")
			}
			return nil
		},
	})
	require.NoError(t, s.LoadHistory(context.Background()))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.Error(t, s.EditMacros(context.Background(), 10, Macros{Calories: 999}))
	}()

	<-failStarted
	// A different record edited while the first is stuck.
	require.NoError(t, s.EditMacros(context.Background(), 11, Macros{Calories: 130, Carbs: 22}))
	close(failRelease)
	wg.Wait()

	items := s.History().Images[0].FoodItems
	assert.Equal(t, 140.0, items[0].Calories) // rolled back
	assert.Equal(t, 130.0, items[1].Calories) // preserved
}

func TestEditMacrosRollbackAppliesToRefreshedHistory(t *testing.T) {
	replacement := historyFixture()
	fetches := 0
	started := make(chan struct{})
	release := make(chan struct{})
	s := NewSession(&fakeAPI{
		fetch: func(context.Context) (*FoodHistory, error) {
			fetches++
			if fetches == 1 {
				return historyFixture(), nil
			}
			return replacement, nil
		},
		updateItem: func(context.Context, uint, Macros) error {
			close(started)
			<-release
			return fmt.Errorf("timeout")
		},
	})
	require.NoError(t, s.LoadHistory(context.Background()))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.Error(t, s.EditMacros(context.Background(), 10, Macros{Calories: 999}))
	}()

	<-started
	// A refresh swaps the whole view while the edit is round-tripping.
	require.NoError(t, s.LoadHistory(context.Background()))
	close(release)
	wg.Wait()

	// The rollback patched the record in the refreshed history, not the
	// one the edit was issued against.
	assert.Same(t, replacement, s.History())
	assert.Equal(t, 140.0, s.History().Images[0].FoodItems[0].Calories)
}

func TestEditMacrosGuards(t *testing.T) {
	s := NewSession(&fakeAPI{fetch: func(context.Context) (*FoodHistory, error) { return historyFixture(), nil }})

	assert.ErrorIs(t, s.EditMacros(context.Background(), 10, Macros{}), ErrNoHistory)

	require.NoError(t, s.LoadHistory(context.Background()))
	assert.ErrorIs(t, s.EditMacros(context.Background(), 404, Macros{}), ErrUnknownRecord)
}

func TestUpdateTargetsFoldsIntoView(t *testing.T) {
	var sent Targets
	s := NewSession(&fakeAPI{
		fetch:       func(context.Context) (*FoodHistory, error) { return historyFixture(), nil },
		updateGoals: func(_ context.Context, targets Targets) error { sent = targets; return nil },
	})
	require.NoError(t, s.LoadHistory(context.Background()))

	goals := Targets{Calories: 1800, Protein: 140}
	require.NoError(t, s.UpdateTargets(context.Background(), goals))

	assert.Equal(t, goals, sent)
	h := s.History()
	require.NotNil(t, h.CalorieTarget)
	assert.Equal(t, 1800.0, *h.CalorieTarget)
	require.NotNil(t, h.ProteinTarget)
	assert.Equal(t, 140.0, *h.ProteinTarget)
	assert.Nil(t, h.CarbTarget) // zero means unset
	assert.Nil(t, h.FatTarget)
}

func TestUpdateTargetsFailureLeavesViewAlone(t *testing.T) {
	s := NewSession(&fakeAPI{
		fetch:       func(context.Context) (*FoodHistory, error) { return historyFixture(), nil },
		updateGoals: func(context.Context, Targets) error { return fmt.Errorf("server returned 500") },
	})
	require.NoError(t, s.LoadHistory(context.Background()))

	require.Error(t, s.UpdateTargets(context.Background(), Targets{Calories: 1800}))
	require.NotNil(t, s.History().CalorieTarget)
	assert.Equal(t, 2000.0, *s.History().CalorieTarget)
}

func TestSessionSummaries(t *testing.T) {
	s := NewSession(&fakeAPI{fetch: func(context.Context) (*FoodHistory, error) { return historyFixture(), nil }})

	assert.Nil(t, s.Summaries(time.Now()))

	require.NoError(t, s.LoadHistory(context.Background()))
	days := s.Summaries(time.Now())
	require.Len(t, days, 1)
	assert.Equal(t, "Today", days[0].Label)
	assert.Equal(t, 260.0, days[0].Totals.Calories)
	require.NotNil(t, days[0].Percentages.Calories)
	assert.Equal(t, 13.0, *days[0].Percentages.Calories)
}
