package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"obsarc/internal/domain"
	"obsarc/internal/logging"
)

const (
	defaultSearchDebounce = 300 * time.Millisecond
	defaultSearchLimit    = 10
)

// Typeahead is a debounced remote lookup for one filter picker. Each picker
// owns its own instance, and each instance owns its own timer handle, so
// concurrent pickers never share debounce state.
//
// Lookup failures are recovered locally: the result set is cleared and the
// failure logged, never returned to the caller.
type Typeahead struct {
	Lookup   EntityLookup
	Logger   logging.Logger
	Debounce time.Duration
	Limit    int
	// OnResults is invoked with the current result list after every
	// search resolution, including clears.
	OnResults func([]domain.Entity)
	// OnSelect is invoked with the selected entity, or nil when the
	// selection is cleared.
	OnSelect func(*domain.Entity)

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	results    []domain.Entity
	selected   *domain.Entity
}

func (t *Typeahead) debounce() time.Duration {
	if t.Debounce > 0 {
		return t.Debounce
	}
	return defaultSearchDebounce
}

func (t *Typeahead) limit() int {
	if t.Limit > 0 {
		return t.Limit
	}
	return defaultSearchLimit
}

// Search schedules a debounced lookup for query. An empty or whitespace
// query clears the results immediately and cancels any pending lookup.
func (t *Typeahead) Search(query string) {
	query = strings.TrimSpace(query)

	t.mu.Lock()
	t.generation++
	gen := t.generation
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if query == "" {
		t.results = nil
		notify := t.OnResults
		t.mu.Unlock()
		if notify != nil {
			notify(nil)
		}
		return
	}
	t.timer = time.AfterFunc(t.debounce(), func() {
		t.run(gen, query)
	})
	t.mu.Unlock()
}

// LoadByID rehydrates the picker from a bare identifier, bypassing search:
// the fetched entity seeds both the result list and the selection so the
// picker can display a label without the user re-searching.
func (t *Typeahead) LoadByID(ctx context.Context, id string) {
	entity, err := t.Lookup.Get(ctx, id)
	if err != nil {
		t.Logger.Warnf("entity load %q failed: %v", id, err)
		t.setResults(nil)
		return
	}

	t.mu.Lock()
	t.generation++
	t.results = []domain.Entity{entity}
	t.selected = &entity
	onResults := t.OnResults
	onSelect := t.OnSelect
	t.mu.Unlock()

	if onResults != nil {
		onResults([]domain.Entity{entity})
	}
	if onSelect != nil {
		onSelect(&entity)
	}
}

// Select picks the result at index, or clears the selection for an invalid
// index. The selection callback always fires.
func (t *Typeahead) Select(index int) {
	t.mu.Lock()
	var selected *domain.Entity
	if index >= 0 && index < len(t.results) {
		entity := t.results[index]
		selected = &entity
	}
	t.selected = selected
	notify := t.OnSelect
	t.mu.Unlock()

	if notify != nil {
		notify(selected)
	}
}

// ClearSelection drops the current selection and notifies the callback.
func (t *Typeahead) ClearSelection() {
	t.Select(-1)
}

// Results returns the current result list.
func (t *Typeahead) Results() []domain.Entity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.Entity(nil), t.results...)
}

// Selected returns the current selection, or nil.
func (t *Typeahead) Selected() *domain.Entity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selected
}

func (t *Typeahead) run(gen uint64, query string) {
	results, err := t.Lookup.Search(context.Background(), query, t.limit())
	if err != nil {
		t.Logger.Warnf("search %q failed: %v", query, err)
		results = nil
	}
	if len(results) > t.limit() {
		results = results[:t.limit()]
	}

	t.mu.Lock()
	if gen != t.generation {
		// A newer query superseded this lookup.
		t.mu.Unlock()
		return
	}
	t.results = results
	notify := t.OnResults
	t.mu.Unlock()

	if notify != nil {
		notify(results)
	}
}

func (t *Typeahead) setResults(results []domain.Entity) {
	t.mu.Lock()
	t.generation++
	t.results = results
	notify := t.OnResults
	t.mu.Unlock()
	if notify != nil {
		notify(results)
	}
}
