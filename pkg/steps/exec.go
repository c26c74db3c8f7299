package steps

import (
	"bytes"
	"fmt"
	"os/exec"
)

// execCommand runs argv in dir, optionally feeding stdin, and returns
// stdout. Stderr is folded into the error on failure.
func execCommand(argv []string, dir string, stdin []byte) ([]byte, error) {
	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, fmt.Errorf("%s binary not found in PATH: %w", argv[0], err)
	}

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
