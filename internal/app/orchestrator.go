package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"obsarc/internal/domain"
	"obsarc/internal/logging"
)

// LargeDownloadThreshold is the projected size above which a download needs
// explicit confirmation. The gate is strict: exactly this many bytes passes.
const LargeDownloadThreshold int64 = 1_000_000_000

const defaultCompleteHold = time.Second

// SessionState is the orchestrator's lifecycle position.
type SessionState int

const (
	StateIdle SessionState = iota
	StateEstimating
	StateReadyToDownload
	StateConfirmingLargeDownload
	StateRunning
	StateComplete
	StateError
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEstimating:
		return "estimating"
	case StateReadyToDownload:
		return "ready"
	case StateConfirmingLargeDownload:
		return "confirming"
	case StateRunning:
		return "running"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrNotReady is returned when a download is requested outside the
// ReadyToDownload state.
var ErrNotReady = errors.New("no authoritative size estimate yet")

// Snapshot is the orchestrator's observable state, published to the single
// observer after every transition.
type Snapshot struct {
	State      SessionState
	Estimate   domain.SizeEstimate
	Progress   ProgressState
	Remaining  string
	OutputPath string
	ErrMessage string
	// Done flips to true once a completed session has been held visibly
	// for the configured delay; the observer then switches to its
	// success view.
	Done bool
}

// OrchestratorOptions tune the orchestrator's fixed policies.
type OrchestratorOptions struct {
	SizeThreshold int64
	CompleteHold  time.Duration
}

// Orchestrator drives one filtered acquisition at a time: it watches the
// size estimator, gates large downloads behind a confirmation, issues the
// acquisition-start command, and consumes the progress stream until a
// terminal event, cancellation, or teardown.
type Orchestrator struct {
	bridge    Bridge
	events    EventSource
	estimator *SizeEstimator
	logger    logging.Logger
	opts      OrchestratorOptions

	// OnChange receives a snapshot after every transition. Set it before
	// the first edit; it is invoked outside the orchestrator's lock.
	OnChange func(Snapshot)

	mu          sync.Mutex
	state       SessionState
	criteria    domain.FilterCriteria
	session     *domain.AcquisitionSession
	router      *ProgressRouter
	etr         ETRTracker
	progress    ProgressState
	remaining   string
	pendingPath string
	errMessage  string
	done        bool
}

// NewOrchestrator wires an orchestrator to its collaborators and hooks the
// estimator's update callback.
func NewOrchestrator(bridge Bridge, events EventSource, estimator *SizeEstimator, logger logging.Logger, opts OrchestratorOptions) *Orchestrator {
	if opts.SizeThreshold == 0 {
		opts.SizeThreshold = LargeDownloadThreshold
	}
	if opts.CompleteHold == 0 {
		opts.CompleteHold = defaultCompleteHold
	}
	o := &Orchestrator{
		bridge:    bridge,
		events:    events,
		estimator: estimator,
		logger:    logger,
		opts:      opts,
		remaining: FormatRemaining(0, false),
	}
	estimator.OnUpdate = o.handleEstimate
	return o
}

// EditFilters records a new criteria snapshot and schedules re-estimation.
// Ignored while a session is confirming or running.
func (o *Orchestrator) EditFilters(criteria domain.FilterCriteria) {
	o.mu.Lock()
	if !o.editableLocked() {
		o.mu.Unlock()
		return
	}
	o.criteria = criteria
	o.state = StateEstimating
	o.mu.Unlock()

	o.estimator.OnFilterChange(criteria)
}

// Criteria returns the current criteria snapshot.
func (o *Orchestrator) Criteria() domain.FilterCriteria {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.criteria
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() SessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Snapshot returns the current observable state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// RequestDownload starts an acquisition into path, or suspends in the
// confirmation gate when the projected size exceeds the threshold. Only
// valid from ReadyToDownload.
func (o *Orchestrator) RequestDownload(path string) error {
	o.mu.Lock()
	if o.state != StateReadyToDownload {
		o.mu.Unlock()
		return ErrNotReady
	}
	estimate := o.estimator.Estimate()
	if !estimate.Ready() {
		o.mu.Unlock()
		return ErrNotReady
	}
	if estimate.TotalBytes > o.opts.SizeThreshold {
		o.state = StateConfirmingLargeDownload
		o.pendingPath = path
		snap := o.snapshotLocked()
		o.mu.Unlock()
		o.emit(snap)
		return nil
	}
	snap := o.startLocked(path)
	o.mu.Unlock()
	o.emit(snap)
	return nil
}

// ConfirmDownload proceeds with a download held in the confirmation gate.
func (o *Orchestrator) ConfirmDownload() error {
	o.mu.Lock()
	if o.state != StateConfirmingLargeDownload {
		o.mu.Unlock()
		return fmt.Errorf("no download awaiting confirmation")
	}
	path := o.pendingPath
	o.pendingPath = ""
	snap := o.startLocked(path)
	o.mu.Unlock()
	o.emit(snap)
	return nil
}

// Cancel abandons the confirmation gate or a running session. For a running
// session the backend cancel command is fire-and-forget: local state closes
// immediately and a backend failure is logged, never surfaced.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	switch o.state {
	case StateConfirmingLargeDownload:
		o.pendingPath = ""
		o.state = StateReadyToDownload
	case StateRunning:
		if o.session != nil {
			o.session.Cancelled = true
			o.session.Stage = domain.SessionCancelled
		}
		router := o.router
		o.closeSessionLocked()
		if router != nil {
			router.Close()
		}
		go func() {
			if err := o.bridge.CancelGeneration(context.Background()); err != nil {
				o.logger.Warnf("cancel command failed: %v", err)
			}
		}()
	default:
		o.mu.Unlock()
		return
	}
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.emit(snap)
}

// Acknowledge dismisses a terminal Complete or Error state.
func (o *Orchestrator) Acknowledge() {
	o.mu.Lock()
	if o.state != StateComplete && o.state != StateError {
		o.mu.Unlock()
		return
	}
	o.closeSessionLocked()
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.emit(snap)
}

// OpenArchive asks the engine to open a finished archive.
func (o *Orchestrator) OpenArchive(path string) {
	go func() {
		if err := o.bridge.OpenArchive(context.Background(), path); err != nil {
			o.logger.Warnf("open archive failed: %v", err)
		}
	}()
}

// editableLocked reports whether filter edits may be accepted.
func (o *Orchestrator) editableLocked() bool {
	switch o.state {
	case StateIdle, StateEstimating, StateReadyToDownload:
		return true
	}
	return false
}

// closeSessionLocked resets session-scoped state and derives the resting
// state from the estimator: ReadyToDownload when an authoritative estimate
// survives, Idle otherwise.
func (o *Orchestrator) closeSessionLocked() {
	o.session = nil
	o.router = nil
	o.progress = ProgressState{}
	o.remaining = FormatRemaining(0, false)
	o.errMessage = ""
	o.done = false
	if o.estimator.Estimate().Ready() {
		o.state = StateReadyToDownload
	} else {
		o.state = StateIdle
	}
}

// startLocked enters Running: reset the ETR tracker, open the one progress
// subscription for this session, and issue the acquisition-start command.
func (o *Orchestrator) startLocked(path string) Snapshot {
	o.etr.Reset()
	o.progress = ProgressState{}
	o.remaining = FormatRemaining(0, false)
	o.errMessage = ""
	o.done = false
	o.session = &domain.AcquisitionSession{
		OutputPath: path,
		Stage:      domain.SessionRunning,
	}

	sub, err := o.events.SubscribeProgress(context.Background())
	if err != nil {
		o.state = StateError
		o.errMessage = err.Error()
		o.session.Stage = domain.SessionError
		return o.snapshotLocked()
	}
	o.router = NewProgressRouter(sub, &o.etr, o.logger, o.handleProgress)
	go o.router.Run()

	o.state = StateRunning
	req := domain.ArchiveRequest{
		Criteria:      o.criteria,
		OutputPath:    path,
		IncludePhotos: o.criteria.IncludePhotos,
		Extensions:    o.criteria.Extensions.List(),
	}
	go func() {
		if err := o.bridge.GenerateArchive(context.Background(), req); err != nil {
			o.failStart(err)
		}
	}()
	return o.snapshotLocked()
}

// failStart handles a start command that could not even be issued.
func (o *Orchestrator) failStart(err error) {
	o.mu.Lock()
	if o.state != StateRunning {
		o.mu.Unlock()
		return
	}
	o.state = StateError
	o.errMessage = err.Error()
	if o.session != nil {
		o.session.Stage = domain.SessionError
	}
	router := o.router
	snap := o.snapshotLocked()
	o.mu.Unlock()

	if router != nil {
		router.Close()
	}
	o.emit(snap)
}

// handleEstimate is the estimator's update callback.
func (o *Orchestrator) handleEstimate(estimate domain.SizeEstimate) {
	o.mu.Lock()
	if !o.editableLocked() {
		o.mu.Unlock()
		return
	}
	switch estimate.Status {
	case domain.EstimatePending:
		o.state = StateEstimating
	case domain.EstimateReady:
		o.state = StateReadyToDownload
	default:
		o.state = StateIdle
	}
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.emit(snap)
}

// handleProgress is the router's update callback; it runs on the router's
// goroutine, after the router has already fed the ETR tracker.
func (o *Orchestrator) handleProgress(progress ProgressState) {
	o.mu.Lock()
	if o.state != StateRunning {
		o.mu.Unlock()
		return
	}
	o.progress = progress
	seconds, known := o.etr.Remaining()
	o.remaining = FormatRemaining(seconds, known)

	if progress.Terminal {
		if progress.ErrMessage != "" {
			o.state = StateError
			o.errMessage = progress.ErrMessage
			if o.session != nil {
				o.session.Stage = domain.SessionError
			}
		} else {
			o.state = StateComplete
			if o.session != nil {
				o.session.Stage = domain.SessionComplete
			}
			// Hold the final progress state on screen briefly
			// before flipping to the success view.
			time.AfterFunc(o.opts.CompleteHold, o.finishComplete)
		}
	}
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.emit(snap)
}

func (o *Orchestrator) finishComplete() {
	o.mu.Lock()
	if o.state != StateComplete {
		o.mu.Unlock()
		return
	}
	o.done = true
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.emit(snap)
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      o.state,
		Estimate:   o.estimator.Estimate(),
		Progress:   o.progress,
		Remaining:  o.remaining,
		ErrMessage: o.errMessage,
		Done:       o.done,
	}
	if o.session != nil {
		snap.OutputPath = o.session.OutputPath
	}
	return snap
}

func (o *Orchestrator) emit(snap Snapshot) {
	if o.OnChange != nil {
		o.OnChange(snap)
	}
}
