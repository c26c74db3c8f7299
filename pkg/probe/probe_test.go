package probe

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/systemstart/firstboot/pkg/plan"
)

func writeStub(t *testing.T, dir, name, script string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
}

func stubPath(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestCheckTCP_Ready(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	cfg := &plan.ProbeConfig{Type: plan.ProbeTypeTCP, Address: ln.Addr().String()}
	if err := Check(cfg, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckTCP_NotReady(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	cfg := &plan.ProbeConfig{Type: plan.ProbeTypeTCP, Address: addr}
	if err := Check(cfg, ""); err == nil {
		t.Fatal("expected error for closed port")
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, dir, "ready-check", "exit 0")
	writeStub(t, dir, "not-ready-check", "echo still starting >&2\nexit 1")
	stubPath(t, dir)

	ok := &plan.ProbeConfig{Type: plan.ProbeTypeCommand, Argv: []string{"ready-check"}}
	if err := Check(ok, dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := &plan.ProbeConfig{Type: plan.ProbeTypeCommand, Argv: []string{"not-ready-check"}}
	err := Check(bad, dir)
	if err == nil {
		t.Fatal("expected error for failing command")
	}
	if !strings.Contains(err.Error(), "still starting") {
		t.Errorf("expected stderr in error, got: %v", err)
	}
}

func TestCheckQuery(t *testing.T) {
	dir := t.TempDir()
	// Echoes the query result a psql-style client would print.
	writeStub(t, dir, "fake-client", "cat >/dev/null\necho ' 1 '")
	stubPath(t, dir)

	cfg := &plan.ProbeConfig{
		Type:   plan.ProbeTypeQuery,
		Client: []string{"fake-client"},
		Query:  "select 1",
		Expect: "1",
	}
	if err := Check(cfg, dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Expect = "ready"
	err := Check(cfg, dir)
	if err == nil {
		t.Fatal("expected error for unexpected output")
	}
	if !strings.Contains(err.Error(), "does not contain") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCheck_UnknownType(t *testing.T) {
	cfg := &plan.ProbeConfig{Type: "ping"}
	if err := Check(cfg, ""); err == nil {
		t.Fatal("expected error for unknown probe type")
	}
}
