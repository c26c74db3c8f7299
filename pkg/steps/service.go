package steps

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/systemstart/firstboot/pkg/plan"
)

const defaultRuntime = "docker"

type containerState int

const (
	containerAbsent containerState = iota
	containerStopped
	containerRunning
)

type serviceStep struct {
	name string
	cfg  *plan.ServiceConfig
}

// NewServiceStep creates a service step. It starts a container through
// the runtime CLI and is idempotent: a running container is left
// alone, a stopped one is started, a missing one is created.
func NewServiceStep(name string, cfg *plan.ServiceConfig) Step {
	return &serviceStep{name: name, cfg: cfg}
}

func (s *serviceStep) Name() string { return s.name }

func (s *serviceStep) Run(ctx StepContext) error {
	runtime := s.cfg.Runtime
	if runtime == "" {
		runtime = defaultRuntime
	}

	container, err := plan.Render(s.cfg.Container, ctx.Context)
	if err != nil {
		return fmt.Errorf("rendering container name: %w", err)
	}

	state := inspectContainer(runtime, container, ctx.WorkDir)

	switch state {
	case containerRunning:
		slog.Info("container already running", "step", s.name, "container", container)
		return nil
	case containerStopped:
		slog.Info("starting existing container", "step", s.name, "container", container)
		if _, err := execCommand([]string{runtime, "start", container}, ctx.WorkDir, nil); err != nil {
			return fmt.Errorf("starting container %s: %w", container, err)
		}
		return nil
	}

	argv, err := s.runArgv(runtime, container, ctx.Context)
	if err != nil {
		return err
	}

	slog.Info("creating container", "step", s.name, "container", container, "image", s.cfg.Image)

	if _, err := execCommand(argv, ctx.WorkDir, nil); err != nil {
		return fmt.Errorf("creating container %s: %w", container, err)
	}
	return nil
}

func (s *serviceStep) runArgv(runtime, container string, data map[string]any) ([]string, error) {
	image, err := plan.Render(s.cfg.Image, data)
	if err != nil {
		return nil, fmt.Errorf("rendering image: %w", err)
	}

	env, err := plan.RenderMap(s.cfg.Env, data)
	if err != nil {
		return nil, fmt.Errorf("rendering env: %w", err)
	}

	argv := []string{runtime, "run", "-d", "--name", container}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		argv = append(argv, "-e", fmt.Sprintf("%s=%s", k, env[k]))
	}

	for _, p := range s.cfg.Publish {
		argv = append(argv, "-p", p)
	}
	for _, v := range s.cfg.Volumes {
		argv = append(argv, "-v", v)
	}

	extra, err := plan.RenderArgv(s.cfg.Args, data)
	if err != nil {
		return nil, fmt.Errorf("rendering args: %w", err)
	}
	argv = append(argv, extra...)

	return append(argv, image), nil
}

func inspectContainer(runtime, container, workDir string) containerState {
	out, err := execCommand([]string{runtime, "inspect", "-f", "{{.State.Running}}", container}, workDir, nil)
	if err != nil {
		// Inspect fails for containers that do not exist.
		return containerAbsent
	}
	if strings.TrimSpace(string(out)) == "true" {
		return containerRunning
	}
	return containerStopped
}
