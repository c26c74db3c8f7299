package steps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/systemstart/firstboot/pkg/plan"
)

const dockerStub = `case "$1" in
inspect)
  if [ ! -f "$STUB_STATE/exists" ]; then
    echo "Error: No such object" >&2
    exit 1
  fi
  if [ -f "$STUB_STATE/running" ]; then echo true; else echo false; fi
  ;;
start)
  touch "$STUB_STATE/running"
  echo "$@" >> "$STUB_STATE/calls"
  ;;
run)
  touch "$STUB_STATE/exists" "$STUB_STATE/running"
  echo "$@" >> "$STUB_STATE/calls"
  ;;
esac`

func setupDockerStub(t *testing.T) string {
	t.Helper()
	bins := t.TempDir()
	state := t.TempDir()
	writeStubBinary(t, bins, "docker", dockerStub)
	prependPath(t, bins)
	t.Setenv("STUB_STATE", state)
	return state
}

func recordedCalls(t *testing.T, state string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(state, "calls"))
	if os.IsNotExist(err) {
		return ""
	}
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func serviceConfig() *plan.ServiceConfig {
	return &plan.ServiceConfig{
		Container: "source-db",
		Image:     "postgres:16",
		Env:       map[string]string{"POSTGRES_PASSWORD": "{{ .dbPassword }}"},
		Publish:   []string{"5432:5432"},
	}
}

func TestServiceStep_CreatesMissingContainer(t *testing.T) {
	state := setupDockerStub(t)

	step := NewServiceStep("start-db", serviceConfig())
	err := step.Run(StepContext{
		WorkDir: t.TempDir(),
		Context: map[string]any{"dbPassword": "hunter2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := recordedCalls(t, state)
	if !strings.Contains(calls, "run -d --name source-db") {
		t.Errorf("expected a run call, got: %q", calls)
	}
	if !strings.Contains(calls, "-e POSTGRES_PASSWORD=hunter2") {
		t.Errorf("expected rendered env, got: %q", calls)
	}
	if !strings.Contains(calls, "-p 5432:5432") {
		t.Errorf("expected port publish, got: %q", calls)
	}
	if !strings.HasSuffix(strings.TrimSpace(calls), "postgres:16") {
		t.Errorf("expected image as final argument, got: %q", calls)
	}
}

func TestServiceStep_StartsStoppedContainer(t *testing.T) {
	state := setupDockerStub(t)
	if err := os.WriteFile(filepath.Join(state, "exists"), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	step := NewServiceStep("start-db", serviceConfig())
	err := step.Run(StepContext{
		WorkDir: t.TempDir(),
		Context: map[string]any{"dbPassword": "x"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := recordedCalls(t, state)
	if !strings.Contains(calls, "start source-db") {
		t.Errorf("expected a start call, got: %q", calls)
	}
	if strings.Contains(calls, "run -d") {
		t.Errorf("must not recreate an existing container, got: %q", calls)
	}
}

func TestServiceStep_LeavesRunningContainerAlone(t *testing.T) {
	state := setupDockerStub(t)
	for _, f := range []string{"exists", "running"} {
		if err := os.WriteFile(filepath.Join(state, f), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	step := NewServiceStep("start-db", serviceConfig())
	err := step.Run(StepContext{
		WorkDir: t.TempDir(),
		Context: map[string]any{"dbPassword": "x"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls := recordedCalls(t, state); calls != "" {
		t.Errorf("expected no runtime calls for a healthy container, got: %q", calls)
	}
}
