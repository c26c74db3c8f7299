package plan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writePlanFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "firstboot.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPlan(t *testing.T) {
	dir := t.TempDir()
	path := writePlanFile(t, dir, `
context:
  dbName: sourcedb
steps:
  - name: install-runtime
    type: command
    terminal: true
    command:
      argv: ["apt-get", "install", "-y", "docker.io"]
  - name: start-database
    type: service
    terminal: true
    service:
      container: source-db
      image: "postgres:16"
    readiness:
      type: tcp
      address: "127.0.0.1:5432"
    retry:
      attempts: 30
      delay: 2s
      backoff: exponential
      maxDelay: 15s
      maxElapsed: 5m
`)

	p, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Dir != dir {
		t.Errorf("expected Dir %q, got %q", dir, p.Dir)
	}
	if len(p.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(p.Steps))
	}
	if p.Context["dbName"] != "sourcedb" {
		t.Errorf("unexpected context: %v", p.Context)
	}

	retry := p.Steps[1].Retry
	if retry == nil {
		t.Fatal("expected retry config")
	}
	if retry.Attempts != 30 {
		t.Errorf("expected 30 attempts, got %d", retry.Attempts)
	}
	if retry.Delay.Std() != 2*time.Second {
		t.Errorf("expected 2s delay, got %v", retry.Delay.Std())
	}
	if retry.Backoff != BackoffExponential {
		t.Errorf("expected exponential backoff, got %q", retry.Backoff)
	}
	if retry.MaxElapsed.Std() != 5*time.Minute {
		t.Errorf("expected 5m maxElapsed, got %v", retry.MaxElapsed.Std())
	}
}

func TestLoadPlan_RetryDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writePlanFile(t, dir, `
steps:
  - name: start
    type: command
    command:
      argv: ["true"]
    readiness:
      type: tcp
      address: "127.0.0.1:5432"
`)

	p, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	retry := p.Steps[0].Retry
	if retry == nil {
		t.Fatal("expected default retry config for step with readiness probe")
	}
	if retry.Attempts != DefaultRetry.Attempts {
		t.Errorf("expected %d attempts, got %d", DefaultRetry.Attempts, retry.Attempts)
	}
	if retry.Delay != DefaultRetry.Delay {
		t.Errorf("expected %v delay, got %v", DefaultRetry.Delay.Std(), retry.Delay.Std())
	}
	if retry.Backoff != BackoffFixed {
		t.Errorf("expected fixed backoff, got %q", retry.Backoff)
	}
}

func TestLoadPlan_PartialRetryGetsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writePlanFile(t, dir, `
steps:
  - name: start
    type: command
    command:
      argv: ["true"]
    readiness:
      type: tcp
      address: "127.0.0.1:5432"
    retry:
      attempts: 3
`)

	p, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	retry := p.Steps[0].Retry
	if retry.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", retry.Attempts)
	}
	if retry.Delay != DefaultRetry.Delay {
		t.Errorf("expected default delay, got %v", retry.Delay.Std())
	}
	if retry.MaxElapsed != DefaultRetry.MaxElapsed {
		t.Errorf("expected default maxElapsed, got %v", retry.MaxElapsed.Std())
	}
}

func TestLoadPlan_BadDuration(t *testing.T) {
	dir := t.TempDir()
	path := writePlanFile(t, dir, `
steps:
  - name: start
    type: command
    command:
      argv: ["true"]
    readiness:
      type: tcp
      address: "127.0.0.1:5432"
    retry:
      delay: soon
`)

	_, err := LoadPlan(path)
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "parsing duration") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadPlan_MissingFile(t *testing.T) {
	_, err := LoadPlan(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing plan file")
	}
}

func TestLoadContextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "context.yaml")
	if err := os.WriteFile(path, []byte("region: eu-west-1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, err := LoadContextFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx["region"] != "eu-west-1" {
		t.Errorf("unexpected context: %v", ctx)
	}
}

func TestLoadContextFile_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "context.yaml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, err := LoadContextFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx == nil {
		t.Fatal("expected non-nil context for empty file")
	}
}
