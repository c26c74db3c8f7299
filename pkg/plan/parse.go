package plan

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadPlan reads a firstboot.yaml file, sets Dir/FilePath, applies
// defaults, and validates it.
func LoadPlan(filename string) (*Plan, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}

	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing plan file: %w", err)
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}
	p.FilePath = absPath
	p.Dir = filepath.Dir(absPath)

	p.applyDefaults()

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validating plan %s: %w", filename, err)
	}

	return &p, nil
}

func (p *Plan) applyDefaults() {
	for i := range p.Steps {
		step := &p.Steps[i]
		if step.Readiness == nil {
			continue
		}
		if step.Retry == nil {
			r := DefaultRetry
			step.Retry = &r
			continue
		}
		if step.Retry.Attempts == 0 {
			step.Retry.Attempts = DefaultRetry.Attempts
		}
		if step.Retry.Delay == 0 {
			step.Retry.Delay = DefaultRetry.Delay
		}
		if step.Retry.Backoff == "" {
			step.Retry.Backoff = DefaultRetry.Backoff
		}
		if step.Retry.MaxElapsed == 0 {
			step.Retry.MaxElapsed = DefaultRetry.MaxElapsed
		}
	}
}

// LoadContextFile reads a YAML file and returns it as a map.
func LoadContextFile(filename string) (map[string]any, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading context file: %w", err)
	}

	var ctx map[string]any
	if err := yaml.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("parsing context file: %w", err)
	}

	if ctx == nil {
		ctx = make(map[string]any)
	}

	return ctx, nil
}
