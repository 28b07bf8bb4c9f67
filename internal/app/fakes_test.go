package app

import (
	"context"
	"sync"

	"obsarc/internal/domain"
)

// stubBridge satisfies Bridge with inert defaults; fakes embed it and
// override what they need.
type stubBridge struct{}

func (stubBridge) ObservationCount(context.Context, domain.FilterCriteria) (int, error) {
	return 0, nil
}

func (stubBridge) EstimatePhotos(context.Context, domain.FilterCriteria) (domain.PhotoSample, error) {
	return domain.PhotoSample{}, nil
}

func (stubBridge) GenerateArchive(context.Context, domain.ArchiveRequest) error { return nil }
func (stubBridge) CancelGeneration(context.Context) error                       { return nil }
func (stubBridge) AuthStatus(context.Context) (domain.AuthStatus, error) {
	return domain.AuthStatus{}, nil
}
func (stubBridge) Authenticate(context.Context) (domain.AuthStatus, error) {
	return domain.AuthStatus{}, nil
}
func (stubBridge) SignOut(context.Context) error             { return nil }
func (stubBridge) OpenArchive(context.Context, string) error { return nil }

// fakeSubscription is an in-memory progress subscription that counts Close
// calls so tests can assert exactly-once teardown.
type fakeSubscription struct {
	ch chan domain.ProgressSnapshot

	mu     sync.Mutex
	closed int
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{ch: make(chan domain.ProgressSnapshot, 16)}
}

func (s *fakeSubscription) Events() <-chan domain.ProgressSnapshot { return s.ch }

func (s *fakeSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	if s.closed == 1 {
		close(s.ch)
	}
	return nil
}

func (s *fakeSubscription) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSubscription) send(snapshot domain.ProgressSnapshot) {
	s.ch <- snapshot
}

// fakeEvents hands out a prepared subscription, or fails.
type fakeEvents struct {
	sub *fakeSubscription
	err error
}

func (f *fakeEvents) SubscribeProgress(context.Context) (Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}
