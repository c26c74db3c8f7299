package steps

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/systemstart/firstboot/pkg/plan"
	"github.com/systemstart/firstboot/pkg/seed"
)

type seedStep struct {
	name string
	cfg  *plan.SeedConfig
}

// NewSeedStep creates a seed step. The seed spec compiles to
// existence-checked SQL and extra .sql files are rendered as
// templates, so re-applying the same step never duplicates rows.
func NewSeedStep(name string, cfg *plan.SeedConfig) Step {
	return &seedStep{name: name, cfg: cfg}
}

func (s *seedStep) Name() string { return s.name }

func (s *seedStep) Run(ctx StepContext) error {
	client, err := plan.RenderArgv(s.cfg.Client, ctx.Context)
	if err != nil {
		return fmt.Errorf("rendering client argv: %w", err)
	}

	var script bytes.Buffer

	if s.cfg.Spec != "" {
		if err := s.appendSpec(&script, ctx); err != nil {
			return err
		}
	}

	if len(s.cfg.Files.Include) > 0 {
		if err := s.appendFiles(&script, ctx); err != nil {
			return err
		}
	}

	slog.Info("applying seed script", "step", s.name, "bytes", script.Len())

	if _, err := execCommand(client, ctx.WorkDir, script.Bytes()); err != nil {
		return fmt.Errorf("applying seed script: %w", err)
	}
	return nil
}

func (s *seedStep) appendSpec(script *bytes.Buffer, ctx StepContext) error {
	path := s.cfg.Spec
	if !filepath.IsAbs(path) {
		path = filepath.Join(ctx.WorkDir, path)
	}

	spec, err := seed.Load(path)
	if err != nil {
		return fmt.Errorf("loading seed spec: %w", err)
	}

	sql, err := spec.Compile()
	if err != nil {
		return fmt.Errorf("compiling seed spec: %w", err)
	}

	script.WriteString(sql)
	return nil
}

func (s *seedStep) appendFiles(script *bytes.Buffer, ctx StepContext) error {
	files, err := filterFiles(os.DirFS(ctx.WorkDir), s.cfg.Files.Include, s.cfg.Files.Exclude)
	if err != nil {
		return fmt.Errorf("filtering seed files: %w", err)
	}

	slog.Info("seed step applying files", "step", s.name, "count", len(files))

	for _, file := range files {
		data, err := os.ReadFile(filepath.Join(ctx.WorkDir, file))
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}

		rendered, err := plan.Render(string(data), ctx.Context)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", file, err)
		}

		fmt.Fprintf(script, "-- file: %s\n", file)
		script.WriteString(rendered)
		if !strings.HasSuffix(rendered, "\n") {
			script.WriteByte('\n')
		}
	}
	return nil
}
