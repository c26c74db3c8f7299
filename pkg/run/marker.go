package run

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultMarkerPath is the well-known marker location on a provisioned
// machine.
const DefaultMarkerPath = "/var/lib/firstboot/state.yaml"

// Outcome is the terminal result of a bootstrap run.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeFailedAtStep Outcome = "failed-at-step"
	OutcomeTimedOut     Outcome = "timed-out"
)

// StepRecord marks a single step as complete.
type StepRecord struct {
	Name        string    `yaml:"name"`
	CompletedAt time.Time `yaml:"completedAt"`
}

// RunState is the durable record of a bootstrap run: which steps have
// completed, when, and the final outcome. It is persisted as YAML so
// operators can inspect it directly.
type RunState struct {
	StartedAt  time.Time    `yaml:"startedAt"`
	Steps      []StepRecord `yaml:"steps"`
	Outcome    Outcome      `yaml:"outcome,omitempty"`
	FailedStep string       `yaml:"failedStep,omitempty"`
}

// Completed reports whether the named step is recorded complete.
func (s *RunState) Completed(name string) bool {
	for _, rec := range s.Steps {
		if rec.Name == name {
			return true
		}
	}
	return false
}

func (s *RunState) recordStep(name string, at time.Time) {
	if s.Completed(name) {
		return
	}
	s.Steps = append(s.Steps, StepRecord{Name: name, CompletedAt: at})
}

// Marker persists RunState at a fixed path. Writes are atomic
// (temp file plus rename) so an interrupted run never leaves a
// half-written marker behind.
type Marker struct {
	path string
}

// NewMarker creates a marker backed by the given file path.
func NewMarker(path string) *Marker {
	return &Marker{path: path}
}

func (m *Marker) Path() string { return m.path }

// Load reads the persisted state. A missing marker file returns
// (nil, nil): no prior run.
func (m *Marker) Load() (*RunState, error) {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading marker file: %w", err)
	}

	var state RunState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing marker file %s: %w", m.path, err)
	}
	return &state, nil
}

// Save writes the state atomically, creating the marker directory if
// needed.
func (m *Marker) Save(state *RunState) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding marker state: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating marker directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return fmt.Errorf("creating temp marker: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp marker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp marker: %w", err)
	}

	if err := os.Rename(tmpName, m.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing marker file: %w", err)
	}
	return nil
}
