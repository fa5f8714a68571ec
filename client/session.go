package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fractal-bootcamp/bite-tracker/services"
)

var (
	// ErrEditInFlight means a correction for the same record is still
	// round-tripping; at most one outstanding edit per record is allowed.
	ErrEditInFlight = errors.New("edit already in flight for this record")

	ErrNoHistory     = errors.New("no history loaded")
	ErrUnknownRecord = errors.New("record not in current history")
)

// historyAPI is the slice of the adapter the session needs.
type historyAPI interface {
	FetchFoodHistory(ctx context.Context) (*FoodHistory, error)
	UpdateTargets(ctx context.Context, targets Targets) error
	UpdateFoodItem(ctx context.Context, id uint, m Macros) error
}

// Session holds the client's in-memory view of the food history.
//
// Reads never block on each other: every LoadHistory gets an issue
// number, and a completion is applied only if nothing issued after it
// has already been applied — a slow, stale response cannot clobber
// fresher data. Macro edits are applied optimistically and rolled back
// as a targeted per-record patch on failure, so edits to other records
// issued meanwhile survive.
type Session struct {
	api     historyAPI
	timeout time.Duration

	mu       sync.Mutex
	history  *FoodHistory
	nextSeq  uint64
	applied  uint64 // issue number of the last applied fetch, +1
	inflight map[uint]Macros
}

func NewSession(api historyAPI) *Session {
	return &Session{
		api:      api,
		timeout:  15 * time.Second,
		inflight: make(map[uint]Macros),
	}
}

// SetTimeout bounds each remote operation. Zero restores the default.
func (s *Session) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = 15 * time.Second
	}
	s.mu.Lock()
	s.timeout = d
	s.mu.Unlock()
}

// History returns the current in-memory view, nil when nothing is
// loaded. The returned pointer is a snapshot owned by the session;
// callers must not mutate it.
func (s *Session) History() *FoodHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history
}

// LoadHistory fetches the food history and applies it unless a fetch
// issued later has already landed. An unauthenticated adapter clears the
// view without erroring: no token means show no data.
func (s *Session) LoadHistory(ctx context.Context) error {
	s.mu.Lock()
	seq := s.nextSeq
	s.nextSeq++
	timeout := s.timeout
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	history, err := s.api.FetchFoodHistory(ctx)
	if errors.Is(err, ErrNoToken) {
		log.Debug().Msg("no auth token, skipping history fetch")
		s.apply(seq, nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	s.apply(seq, history)
	return nil
}

func (s *Session) apply(seq uint64, history *FoodHistory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq+1 <= s.applied {
		log.Debug().Uint64("seq", seq).Msg("discarding stale history fetch")
		return
	}
	s.applied = seq + 1
	s.history = history
}

// Summaries runs the day-bucket pipeline over the current view.
func (s *Session) Summaries(now time.Time) []services.DaySummary {
	return s.History().Summaries(now)
}

// EditMacros applies a user correction to one record: the in-memory view
// is patched immediately, then the server is asked to persist. On
// failure the pre-edit snapshot is patched back into the then-current
// view (which a concurrent fetch may have replaced) and the error is
// returned for the UI to surface.
func (s *Session) EditMacros(ctx context.Context, id uint, m Macros) error {
	s.mu.Lock()
	if s.history == nil {
		s.mu.Unlock()
		return ErrNoHistory
	}
	if _, busy := s.inflight[id]; busy {
		s.mu.Unlock()
		return ErrEditInFlight
	}
	rec := findItem(s.history, id)
	if rec == nil {
		s.mu.Unlock()
		return ErrUnknownRecord
	}
	snapshot := Macros{Calories: rec.Calories, Carbs: rec.Carbs, Fat: rec.Fat, Protein: rec.Protein}
	s.inflight[id] = snapshot
	setMacros(rec, m)
	timeout := s.timeout
	s.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := s.api.UpdateFoodItem(reqCtx, id, m)

	s.mu.Lock()
	delete(s.inflight, id)
	if err != nil {
		// Targeted rollback: only this record, in whatever history is
		// current now.
		if cur := findItem(s.history, id); cur != nil {
			setMacros(cur, snapshot)
		}
	}
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("edit macros: %w", err)
	}
	return nil
}

// UpdateTargets persists the daily goals and, on success, folds them
// into the current view.
func (s *Session) UpdateTargets(ctx context.Context, targets Targets) error {
	s.mu.Lock()
	timeout := s.timeout
	s.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.api.UpdateTargets(reqCtx, targets); err != nil {
		return fmt.Errorf("update targets: %w", err)
	}

	s.mu.Lock()
	if s.history != nil {
		s.history.CalorieTarget = positiveOrNil(targets.Calories)
		s.history.ProteinTarget = positiveOrNil(targets.Protein)
		s.history.CarbTarget = positiveOrNil(targets.Carbs)
		s.history.FatTarget = positiveOrNil(targets.Fat)
	}
	s.mu.Unlock()
	return nil
}

func findItem(h *FoodHistory, id uint) *FoodItem {
	if h == nil {
		return nil
	}
	for i := range h.Images {
		for j := range h.Images[i].FoodItems {
			if h.Images[i].FoodItems[j].ID == id {
				return &h.Images[i].FoodItems[j]
			}
		}
	}
	return nil
}

func setMacros(rec *FoodItem, m Macros) {
	rec.Calories = m.Calories
	rec.Carbs = m.Carbs
	rec.Fat = m.Fat
	rec.Protein = m.Protein
}

func positiveOrNil(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}
