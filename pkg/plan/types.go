package plan

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StepTypeCommand = "command"
	StepTypeService = "service"
	StepTypeSeed    = "seed"
	StepTypeVerify  = "verify"

	ProbeTypeTCP     = "tcp"
	ProbeTypeCommand = "command"
	ProbeTypeQuery   = "query"

	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// Plan is the firstboot.yaml configuration format.
type Plan struct {
	Context map[string]any `yaml:"context"`
	Steps   []StepConfig   `yaml:"steps"`

	// Set by the loader, not from YAML.
	Dir      string `yaml:"-"`
	FilePath string `yaml:"-"`
}

// StepConfig defines a single step within a plan.
type StepConfig struct {
	Name      string         `yaml:"name"`
	Type      string         `yaml:"type"`
	Terminal  bool           `yaml:"terminal"`
	Command   *CommandConfig `yaml:"command,omitempty"`
	Service   *ServiceConfig `yaml:"service,omitempty"`
	Seed      *SeedConfig    `yaml:"seed,omitempty"`
	Verify    *VerifyConfig  `yaml:"verify,omitempty"`
	Readiness *ProbeConfig   `yaml:"readiness,omitempty"`
	Retry     *RetryConfig   `yaml:"retry,omitempty"`
}

// CommandConfig configures the command step.
type CommandConfig struct {
	Argv []string `yaml:"argv"`
	Dir  string   `yaml:"dir"`
}

// ServiceConfig configures the service step. The container is managed
// through the runtime's CLI (docker or podman).
type ServiceConfig struct {
	Runtime   string            `yaml:"runtime"`
	Container string            `yaml:"container"`
	Image     string            `yaml:"image"`
	Env       map[string]string `yaml:"env"`
	Publish   []string          `yaml:"publish"`
	Volumes   []string          `yaml:"volumes"`
	Args      []string          `yaml:"args"`
}

// SeedConfig configures the seed step. Rendered SQL is piped into the
// client argv's stdin.
type SeedConfig struct {
	Client []string   `yaml:"client"`
	Spec   string     `yaml:"spec"`
	Files  FileFilter `yaml:"files"`
}

// VerifyConfig configures the verify step.
type VerifyConfig struct {
	Client []string `yaml:"client"`
	Query  string   `yaml:"query"`
	Expect string   `yaml:"expect"`
}

// ProbeConfig declares a readiness predicate for a step.
type ProbeConfig struct {
	Type        string   `yaml:"type"`
	Address     string   `yaml:"address"`
	DialTimeout Duration `yaml:"dialTimeout"`
	Argv        []string `yaml:"argv"`
	Client      []string `yaml:"client"`
	Query       string   `yaml:"query"`
	Expect      string   `yaml:"expect"`
}

// RetryConfig is the polling policy for a step's readiness predicate.
type RetryConfig struct {
	Attempts   int      `yaml:"attempts"`
	Delay      Duration `yaml:"delay"`
	Backoff    string   `yaml:"backoff"`
	MaxDelay   Duration `yaml:"maxDelay"`
	MaxElapsed Duration `yaml:"maxElapsed"`
}

// FileFilter defines include/exclude glob patterns.
type FileFilter struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// Duration wraps time.Duration so YAML values like "30s" parse directly.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// DefaultRetry is applied to any step that declares a readiness probe
// without its own retry policy.
var DefaultRetry = RetryConfig{
	Attempts:   10,
	Delay:      Duration(2 * time.Second),
	Backoff:    BackoffFixed,
	MaxElapsed: Duration(5 * time.Minute),
}
