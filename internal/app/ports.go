package app

import (
	"context"

	"obsarc/internal/domain"
)

// Bridge is the command side of the acquisition engine's IPC surface.
// GenerateArchive returns once the engine has accepted the run; progress is
// delivered through an EventSource subscription, not the return value.
type Bridge interface {
	ObservationCount(ctx context.Context, criteria domain.FilterCriteria) (int, error)
	EstimatePhotos(ctx context.Context, criteria domain.FilterCriteria) (domain.PhotoSample, error)
	GenerateArchive(ctx context.Context, req domain.ArchiveRequest) error
	CancelGeneration(ctx context.Context) error
	AuthStatus(ctx context.Context) (domain.AuthStatus, error)
	Authenticate(ctx context.Context) (domain.AuthStatus, error)
	SignOut(ctx context.Context) error
	OpenArchive(ctx context.Context, path string) error
}

// EventSource opens the engine's progress event stream. One subscription is
// created per acquisition session and closed exactly once.
type EventSource interface {
	SubscribeProgress(ctx context.Context) (Subscription, error)
}

// Subscription is a handle on the progress channel. Events is closed by the
// producer when the stream ends; Close must be safe to call more than once
// from the consumer side, though the router guards that anyway.
type Subscription interface {
	Events() <-chan domain.ProgressSnapshot
	Close() error
}

// EntityLookup resolves typeahead queries against one remote entity search
// API (taxa, places, or users) and rehydrates a single entity by id.
type EntityLookup interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Entity, error)
	Get(ctx context.Context, id string) (domain.Entity, error)
}
