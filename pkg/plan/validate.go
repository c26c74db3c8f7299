package plan

import (
	"fmt"
	"strings"
)

var validStepTypes = map[string]bool{
	StepTypeCommand: true,
	StepTypeService: true,
	StepTypeSeed:    true,
	StepTypeVerify:  true,
}

var validProbeTypes = map[string]bool{
	ProbeTypeTCP:     true,
	ProbeTypeCommand: true,
	ProbeTypeQuery:   true,
}

var validBackoffs = map[string]bool{
	BackoffFixed:       true,
	BackoffExponential: true,
}

// Validate checks the plan configuration for errors.
func (p *Plan) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan has no steps")
	}

	names := make(map[string]int)

	for i, step := range p.Steps {
		if step.Name == "" {
			return fmt.Errorf("step %d: name is required", i)
		}
		if prev, exists := names[step.Name]; exists {
			return fmt.Errorf("step %d: duplicate step name %q (first defined at step %d)", i, step.Name, prev)
		}
		names[step.Name] = i

		if !validStepTypes[step.Type] {
			return fmt.Errorf("step %q: unknown type %q", step.Name, step.Type)
		}

		if err := validateStepConfig(step); err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}

		if step.Readiness != nil {
			if err := validateProbeConfig(step.Readiness); err != nil {
				return fmt.Errorf("step %q: %w", step.Name, err)
			}
		}

		if step.Retry != nil {
			if step.Readiness == nil {
				return fmt.Errorf("step %q: retry policy requires a readiness probe", step.Name)
			}
			if err := validateRetryConfig(step.Retry); err != nil {
				return fmt.Errorf("step %q: %w", step.Name, err)
			}
		}
	}

	return nil
}

func validateStepConfig(step StepConfig) error {
	switch step.Type {
	case StepTypeCommand:
		if step.Command == nil {
			return fmt.Errorf("command config is required")
		}
		if len(step.Command.Argv) == 0 {
			return fmt.Errorf("command.argv is required")
		}
	case StepTypeService:
		return validateServiceConfig(step)
	case StepTypeSeed:
		return validateSeedConfig(step)
	case StepTypeVerify:
		return validateVerifyConfig(step)
	}
	return nil
}

func validateServiceConfig(step StepConfig) error {
	if step.Service == nil {
		return fmt.Errorf("service config is required")
	}
	if step.Service.Container == "" {
		return fmt.Errorf("service.container is required")
	}
	if step.Service.Image == "" {
		return fmt.Errorf("service.image is required")
	}
	return nil
}

func validateSeedConfig(step StepConfig) error {
	if step.Seed == nil {
		return fmt.Errorf("seed config is required")
	}
	if len(step.Seed.Client) == 0 {
		return fmt.Errorf("seed.client is required")
	}
	if step.Seed.Spec == "" && len(step.Seed.Files.Include) == 0 {
		return fmt.Errorf("seed step needs a spec file or file globs")
	}
	return nil
}

func validateVerifyConfig(step StepConfig) error {
	if step.Verify == nil {
		return fmt.Errorf("verify config is required")
	}
	if len(step.Verify.Client) == 0 {
		return fmt.Errorf("verify.client is required")
	}
	if step.Verify.Query == "" {
		return fmt.Errorf("verify.query is required")
	}
	return nil
}

func validateProbeConfig(probe *ProbeConfig) error {
	if !validProbeTypes[probe.Type] {
		valid := []string{ProbeTypeTCP, ProbeTypeCommand, ProbeTypeQuery}
		return fmt.Errorf("readiness.type %q is not valid (valid: %s)", probe.Type, strings.Join(valid, ", "))
	}
	switch probe.Type {
	case ProbeTypeTCP:
		if probe.Address == "" {
			return fmt.Errorf("readiness.address is required for tcp probes")
		}
	case ProbeTypeCommand:
		if len(probe.Argv) == 0 {
			return fmt.Errorf("readiness.argv is required for command probes")
		}
	case ProbeTypeQuery:
		if len(probe.Client) == 0 {
			return fmt.Errorf("readiness.client is required for query probes")
		}
		if probe.Query == "" {
			return fmt.Errorf("readiness.query is required for query probes")
		}
	}
	return nil
}

func validateRetryConfig(retry *RetryConfig) error {
	if retry.Attempts < 0 {
		return fmt.Errorf("retry.attempts must not be negative")
	}
	if retry.Delay < 0 {
		return fmt.Errorf("retry.delay must not be negative")
	}
	if retry.Backoff != "" && !validBackoffs[retry.Backoff] {
		return fmt.Errorf("retry.backoff %q is not valid (valid: %s, %s)", retry.Backoff, BackoffFixed, BackoffExponential)
	}
	return nil
}
