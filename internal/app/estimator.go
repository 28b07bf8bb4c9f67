package app

import (
	"context"
	"sync"
	"time"

	"obsarc/internal/domain"
	"obsarc/internal/logging"
)

const defaultEstimateDebounce = 500 * time.Millisecond

// SizeEstimator turns filter edits into debounced count and photo-volume
// estimation requests and keeps the latest authoritative SizeEstimate.
//
// Every edit bumps a generation counter; responses are applied only if their
// generation is still the newest, so a slow response for an old criteria
// snapshot can never overwrite a fresher one. The requests themselves are not
// cancelled, only their results discarded.
type SizeEstimator struct {
	Bridge   Bridge
	Logger   logging.Logger
	Debounce time.Duration
	// OnUpdate is invoked, outside the estimator's lock, every time the
	// estimate changes: once when an edit clears it to pending and once
	// when the authoritative result lands.
	OnUpdate func(domain.SizeEstimate)

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	current    domain.SizeEstimate
}

func (e *SizeEstimator) debounce() time.Duration {
	if e.Debounce > 0 {
		return e.Debounce
	}
	return defaultEstimateDebounce
}

// Estimate returns the current estimate snapshot.
func (e *SizeEstimator) Estimate() domain.SizeEstimate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// OnFilterChange schedules an estimation request pair after a quiet period.
// Edits arriving inside the window replace the pending pair, so a burst of
// edits issues exactly one pair for the last snapshot. The previous estimate
// is cleared immediately so stale numbers are never displayed.
func (e *SizeEstimator) OnFilterChange(criteria domain.FilterCriteria) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.current = domain.SizeEstimate{Status: domain.EstimatePending}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.debounce(), func() {
		e.run(gen, criteria)
	})
	notify := e.OnUpdate
	snapshot := e.current
	e.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
}

// Stop cancels any pending debounce timer. In-flight requests finish on
// their own; their results are discarded by the generation guard after the
// next edit.
func (e *SizeEstimator) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *SizeEstimator) run(gen uint64, criteria domain.FilterCriteria) {
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		count     int
		countErr  error
		sample    domain.PhotoSample
		sampleErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		count, countErr = e.Bridge.ObservationCount(ctx, criteria)
	}()

	wantPhotos := criteria.IncludePhotos
	if wantPhotos {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sample, sampleErr = e.Bridge.EstimatePhotos(ctx, criteria)
		}()
	}
	wg.Wait()

	estimate := domain.SizeEstimate{Status: domain.EstimateReady}
	switch {
	case countErr != nil:
		e.Logger.Warnf("observation count failed: %v", countErr)
		estimate = domain.SizeEstimate{Status: domain.EstimateFailed}
	case wantPhotos && sampleErr != nil:
		e.Logger.Warnf("photo estimate failed: %v", sampleErr)
		estimate = domain.SizeEstimate{Status: domain.EstimateFailed}
	default:
		estimate.Count = count
		if wantPhotos {
			s := sample
			estimate.Sample = &s
		}
		estimate.TotalBytes = domain.ProjectBytes(count, estimate.Sample)
	}

	e.mu.Lock()
	if gen != e.generation {
		// A newer criteria snapshot superseded this request pair.
		e.mu.Unlock()
		return
	}
	e.current = estimate
	notify := e.OnUpdate
	e.mu.Unlock()

	if notify != nil {
		notify(estimate)
	}
}
