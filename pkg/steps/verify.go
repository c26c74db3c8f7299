package steps

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/systemstart/firstboot/pkg/plan"
)

type verifyStep struct {
	name string
	cfg  *plan.VerifyConfig
}

// NewVerifyStep creates a verify step.
func NewVerifyStep(name string, cfg *plan.VerifyConfig) Step {
	return &verifyStep{name: name, cfg: cfg}
}

func (s *verifyStep) Name() string { return s.name }

func (s *verifyStep) Run(ctx StepContext) error {
	client, err := plan.RenderArgv(s.cfg.Client, ctx.Context)
	if err != nil {
		return fmt.Errorf("rendering client argv: %w", err)
	}

	query, err := plan.Render(s.cfg.Query, ctx.Context)
	if err != nil {
		return fmt.Errorf("rendering query: %w", err)
	}

	expect, err := plan.Render(s.cfg.Expect, ctx.Context)
	if err != nil {
		return fmt.Errorf("rendering expect: %w", err)
	}

	slog.Info("running verification query", "step", s.name)

	out, err := execCommand(client, ctx.WorkDir, []byte(query))
	if err != nil {
		return fmt.Errorf("verification query: %w", err)
	}

	got := strings.TrimSpace(string(out))
	if expect != "" && got != expect {
		return fmt.Errorf("verification mismatch: got %q, want %q", got, expect)
	}
	return nil
}
