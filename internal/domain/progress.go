package domain

import (
	"encoding/json"
	"fmt"
)

// Stage is a named phase of an acquisition run. Transitions are expected to
// be monotonic in declaration order, with StageError reachable from any state.
type Stage int

const (
	StageFetching Stage = iota
	StageDownloadingPhotos
	StageBuilding
	StageComplete
	StageError
)

var stageNames = map[Stage]string{
	StageFetching:          "fetching",
	StageDownloadingPhotos: "downloadingPhotos",
	StageBuilding:          "building",
	StageComplete:          "complete",
	StageError:             "error",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Terminal reports whether no further progress events follow this stage.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// ParseStage maps a wire name to a Stage.
func ParseStage(name string) (Stage, error) {
	for stage, n := range stageNames {
		if n == name {
			return stage, nil
		}
	}
	return 0, fmt.Errorf("unknown progress stage %q", name)
}

func (s Stage) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Stage) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	stage, err := ParseStage(name)
	if err != nil {
		return err
	}
	*s = stage
	return nil
}

// ProgressSnapshot is one message on the engine's progress event channel.
// Current and Total are meaningful for the fetching and downloadingPhotos
// stages; Message carries status text for building and the error text for
// the error stage.
type ProgressSnapshot struct {
	Stage   Stage  `json:"stage"`
	Current int    `json:"current,omitempty"`
	Total   int    `json:"total,omitempty"`
	Message string `json:"message,omitempty"`
}
