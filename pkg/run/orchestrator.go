// Package run drives a bootstrap plan from bare machine to verified,
// seeded service. A durable marker records completed steps, so
// re-invocation skips them and a fully successful prior run is a
// no-op.
package run

import (
	"fmt"
	"log/slog"

	"github.com/juju/clock"
	"github.com/juju/retry"

	"github.com/systemstart/firstboot/pkg/plan"
	"github.com/systemstart/firstboot/pkg/probe"
	"github.com/systemstart/firstboot/pkg/steps"
)

// Orchestrator executes a plan's steps strictly in order.
type Orchestrator struct {
	Marker *Marker
	Clock  clock.Clock

	newStep    func(plan.StepConfig) (steps.Step, error)
	checkProbe func(*plan.ProbeConfig, string) error
}

// New creates an orchestrator using the wall clock and the standard
// step and probe implementations.
func New(marker *Marker) *Orchestrator {
	return &Orchestrator{
		Marker:     marker,
		Clock:      clock.WallClock,
		newStep:    steps.NewStep,
		checkProbe: probe.Check,
	}
}

// Run executes the plan. Steps already recorded complete in the marker
// are skipped; a prior success short-circuits the whole run. The
// returned RunState carries the outcome; a non-nil error is reserved
// for infrastructure failures (marker IO, bad context).
func (o *Orchestrator) Run(p *plan.Plan, globalContext map[string]any) (*RunState, error) {
	state, err := o.Marker.Load()
	if err != nil {
		return nil, fmt.Errorf("loading marker: %w", err)
	}

	if state != nil && state.Outcome == OutcomeSuccess {
		slog.Info("bootstrap already completed, nothing to do", "marker", o.Marker.Path())
		return state, nil
	}

	if state == nil {
		state = &RunState{StartedAt: o.Clock.Now().UTC()}
	} else {
		slog.Info("resuming interrupted bootstrap", "completedSteps", len(state.Steps))
		state.Outcome = ""
		state.FailedStep = ""
	}

	ctx := plan.MergeContext(globalContext, p.Context)
	if err := plan.InterpolateContext(ctx); err != nil {
		return nil, fmt.Errorf("interpolating context: %w", err)
	}

	sctx := steps.StepContext{WorkDir: p.Dir, Context: ctx}

	for _, cfg := range p.Steps {
		if state.Completed(cfg.Name) {
			slog.Info("step already complete, skipping", "step", cfg.Name)
			continue
		}

		outcome, stepErr := o.runStep(cfg, sctx)
		if stepErr != nil {
			if !cfg.Terminal {
				slog.Warn("best-effort step failed, continuing", "step", cfg.Name, "error", stepErr)
				continue
			}

			slog.Error("terminal step failed, aborting", "step", cfg.Name, "outcome", string(outcome), "error", stepErr)
			state.Outcome = outcome
			state.FailedStep = cfg.Name
			if saveErr := o.Marker.Save(state); saveErr != nil {
				return nil, fmt.Errorf("recording outcome: %w", saveErr)
			}
			return state, nil
		}

		state.recordStep(cfg.Name, o.Clock.Now().UTC())
		if err := o.Marker.Save(state); err != nil {
			return nil, fmt.Errorf("recording step %q: %w", cfg.Name, err)
		}
	}

	state.Outcome = OutcomeSuccess
	if err := o.Marker.Save(state); err != nil {
		return nil, fmt.Errorf("recording outcome: %w", err)
	}

	slog.Info("bootstrap complete", "steps", len(state.Steps))
	return state, nil
}

// runStep executes one step's action and, if declared, polls its
// readiness probe. The returned outcome distinguishes an action
// failure from readiness that never arrived.
func (o *Orchestrator) runStep(cfg plan.StepConfig, sctx steps.StepContext) (Outcome, error) {
	step, err := o.newStep(cfg)
	if err != nil {
		return OutcomeFailedAtStep, fmt.Errorf("creating step: %w", err)
	}

	slog.Info("running step", "step", cfg.Name, "type", cfg.Type, "terminal", cfg.Terminal)

	if err := step.Run(sctx); err != nil {
		return OutcomeFailedAtStep, err
	}

	if cfg.Readiness == nil {
		return "", nil
	}

	rendered, err := renderProbe(cfg.Readiness, sctx.Context)
	if err != nil {
		return OutcomeFailedAtStep, fmt.Errorf("rendering readiness probe: %w", err)
	}

	if err := o.poll(cfg.Name, rendered, cfg.Retry, sctx.WorkDir); err != nil {
		if retry.IsAttemptsExceeded(err) || retry.IsDurationExceeded(err) {
			return OutcomeTimedOut, fmt.Errorf("readiness not reached: %w", retry.LastError(err))
		}
		return OutcomeTimedOut, fmt.Errorf("readiness polling stopped: %w", err)
	}
	return "", nil
}

func (o *Orchestrator) poll(stepName string, probeCfg *plan.ProbeConfig, rc *plan.RetryConfig, workDir string) error {
	args := retry.CallArgs{
		Func: func() error {
			return o.checkProbe(probeCfg, workDir)
		},
		NotifyFunc: func(err error, attempt int) {
			slog.Debug("readiness probe not satisfied", "step", stepName, "attempt", attempt, "error", err)
		},
		Attempts: rc.Attempts,
		Delay:    rc.Delay.Std(),
		Clock:    o.Clock,
	}
	if rc.MaxDelay > 0 {
		args.MaxDelay = rc.MaxDelay.Std()
	}
	if rc.MaxElapsed > 0 {
		args.MaxDuration = rc.MaxElapsed.Std()
	}
	if rc.Backoff == plan.BackoffExponential {
		args.BackoffFunc = retry.DoubleDelay
	}
	return retry.Call(args)
}

func renderProbe(cfg *plan.ProbeConfig, data map[string]any) (*plan.ProbeConfig, error) {
	rendered := *cfg

	var err error
	if rendered.Address, err = plan.Render(cfg.Address, data); err != nil {
		return nil, fmt.Errorf("address: %w", err)
	}
	if rendered.Argv, err = plan.RenderArgv(cfg.Argv, data); err != nil {
		return nil, err
	}
	if rendered.Client, err = plan.RenderArgv(cfg.Client, data); err != nil {
		return nil, err
	}
	if rendered.Query, err = plan.Render(cfg.Query, data); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if rendered.Expect, err = plan.Render(cfg.Expect, data); err != nil {
		return nil, fmt.Errorf("expect: %w", err)
	}
	return &rendered, nil
}
