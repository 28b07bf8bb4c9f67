package domain

// ArchiveRequest is the payload of an acquisition-start command.
type ArchiveRequest struct {
	Criteria      FilterCriteria `json:"criteria"`
	OutputPath    string         `json:"output_path"`
	IncludePhotos bool           `json:"include_photos"`
	Extensions    []string       `json:"extensions"`
}

// SessionStage is the lifecycle position of one acquisition session.
type SessionStage int

const (
	SessionRunning SessionStage = iota
	SessionComplete
	SessionError
	SessionCancelled
)

// AcquisitionSession records one confirmed download from start to the moment
// its terminal event is acknowledged or the user cancels it.
type AcquisitionSession struct {
	OutputPath string
	Stage      SessionStage
	Cancelled  bool
}

// Entity is a display item produced by the typeahead lookups: a label, a
// stable string id, and an optional thumbnail URL.
type Entity struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// AuthStatus mirrors the engine's authentication state.
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
}
