package steps

// StepContext provides the runtime context for a step.
type StepContext struct {
	WorkDir string
	Context map[string]any // merged, interpolated plan context
}

// Step is the interface all bootstrap steps implement. Run must be
// idempotent: after an interruption the orchestrator re-executes at
// most one partially-applied step on the next invocation.
type Step interface {
	Name() string
	Run(ctx StepContext) error
}
