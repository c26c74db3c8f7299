// Package probe implements readiness predicates: checks that a started
// service can actually serve requests, as opposed to merely having been
// launched.
package probe

import (
	"bytes"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/systemstart/firstboot/pkg/plan"
)

const defaultDialTimeout = 3 * time.Second

// Check runs the readiness predicate described by cfg once. A nil
// error means the service is ready. The config must already be
// rendered against the plan context.
func Check(cfg *plan.ProbeConfig, workDir string) error {
	switch cfg.Type {
	case plan.ProbeTypeTCP:
		return checkTCP(cfg)
	case plan.ProbeTypeCommand:
		return checkCommand(cfg, workDir)
	case plan.ProbeTypeQuery:
		return checkQuery(cfg, workDir)
	default:
		return fmt.Errorf("unknown probe type %q", cfg.Type)
	}
}

func checkTCP(cfg *plan.ProbeConfig) error {
	timeout := cfg.DialTimeout.Std()
	if timeout == 0 {
		timeout = defaultDialTimeout
	}

	conn, err := net.DialTimeout("tcp", cfg.Address, timeout)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", cfg.Address, err)
	}
	return conn.Close()
}

func checkCommand(cfg *plan.ProbeConfig, workDir string) error {
	_, err := run(cfg.Argv, workDir, nil)
	return err
}

func checkQuery(cfg *plan.ProbeConfig, workDir string) error {
	out, err := run(cfg.Client, workDir, []byte(cfg.Query))
	if err != nil {
		return err
	}

	if cfg.Expect != "" && !strings.Contains(strings.TrimSpace(string(out)), cfg.Expect) {
		return fmt.Errorf("query output %q does not contain %q", strings.TrimSpace(string(out)), cfg.Expect)
	}
	return nil
}

func run(argv []string, dir string, stdin []byte) ([]byte, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w\nstderr: %s", argv[0], err, stderr.String())
	}
	return stdout.Bytes(), nil
}
