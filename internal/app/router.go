package app

import (
	"sync"
	"time"

	"obsarc/internal/domain"
	"obsarc/internal/logging"
)

// ProgressState is the folded view of everything the progress stream has
// reported for one session: per-stage counters, the latest status message,
// and whether a terminal event has been consumed.
type ProgressState struct {
	Stage      domain.Stage
	Fetched    int
	FetchTotal int
	Photos     int
	PhotoTotal int
	Message    string
	Terminal   bool
	ErrMessage string
}

// ProgressRouter consumes one session's subscription in arrival order,
// demultiplexes events into per-stage counters, and feeds the ETR tracker.
// The subscription is released exactly once: when a terminal event arrives,
// when the stream closes, or when the owning session tears the router down
// early, whichever comes first.
type ProgressRouter struct {
	sub      Subscription
	etr      *ETRTracker
	logger   logging.Logger
	onUpdate func(ProgressState)
	now      func() time.Time

	closeOnce sync.Once
	mu        sync.Mutex
	state     ProgressState
}

// NewProgressRouter wires a router to a live subscription. onUpdate is
// invoked outside the router's lock after every consumed event.
func NewProgressRouter(sub Subscription, etr *ETRTracker, logger logging.Logger, onUpdate func(ProgressState)) *ProgressRouter {
	return &ProgressRouter{
		sub:      sub,
		etr:      etr,
		logger:   logger,
		onUpdate: onUpdate,
		now:      time.Now,
	}
}

// Run consumes events until a terminal event or stream close, then releases
// the subscription. Call it on its own goroutine.
func (r *ProgressRouter) Run() {
	defer r.Close()
	for snapshot := range r.sub.Events() {
		if r.apply(snapshot) {
			return
		}
	}
}

// Close releases the subscription. Safe to call from any goroutine and any
// number of times; only the first call reaches the subscription.
func (r *ProgressRouter) Close() {
	r.closeOnce.Do(func() {
		if err := r.sub.Close(); err != nil {
			r.logger.Warnf("progress unsubscribe failed: %v", err)
		}
	})
}

// State returns the current folded progress state.
func (r *ProgressRouter) State() ProgressState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// apply folds one event into the state. Returns true on a terminal event.
func (r *ProgressRouter) apply(snapshot domain.ProgressSnapshot) bool {
	r.mu.Lock()
	if r.state.Terminal {
		// Nothing may move after complete/error.
		r.mu.Unlock()
		return true
	}

	r.state.Stage = snapshot.Stage
	switch snapshot.Stage {
	case domain.StageFetching:
		r.state.Fetched = snapshot.Current
		r.state.FetchTotal = snapshot.Total
		r.sampleETR()
	case domain.StageDownloadingPhotos:
		r.state.Photos = snapshot.Current
		r.state.PhotoTotal = snapshot.Total
		r.sampleETR()
	case domain.StageBuilding:
		r.state.Message = snapshot.Message
	case domain.StageComplete:
		r.state.Terminal = true
	case domain.StageError:
		r.state.Terminal = true
		r.state.ErrMessage = snapshot.Message
	}

	state := r.state
	notify := r.onUpdate
	r.mu.Unlock()

	if notify != nil {
		notify(state)
	}
	return state.Terminal
}

// sampleETR feeds the stage-appropriate counters to the tracker. Photo
// counters win whenever a nonzero photo total is known, because photo
// transfer dominates wall-clock time.
func (r *ProgressRouter) sampleETR() {
	if r.etr == nil {
		return
	}
	if r.state.PhotoTotal > 0 {
		r.etr.Sample(r.state.Photos, r.state.PhotoTotal, r.now())
		return
	}
	r.etr.Sample(r.state.Fetched, r.state.FetchTotal, r.now())
}
