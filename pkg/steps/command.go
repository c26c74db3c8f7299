package steps

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/systemstart/firstboot/pkg/plan"
)

type commandStep struct {
	name string
	cfg  *plan.CommandConfig
}

// NewCommandStep creates a command step.
func NewCommandStep(name string, cfg *plan.CommandConfig) Step {
	return &commandStep{name: name, cfg: cfg}
}

func (s *commandStep) Name() string { return s.name }

func (s *commandStep) Run(ctx StepContext) error {
	argv, err := plan.RenderArgv(s.cfg.Argv, ctx.Context)
	if err != nil {
		return fmt.Errorf("rendering argv: %w", err)
	}

	dir := ctx.WorkDir
	if s.cfg.Dir != "" {
		dir = s.cfg.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(ctx.WorkDir, dir)
		}
	}

	slog.Info("running command", "step", s.name, "argv", argv)

	if _, err := execCommand(argv, dir, nil); err != nil {
		return err
	}
	return nil
}
