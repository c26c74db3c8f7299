package run

import (
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/juju/mutex/v2"
)

const lockName = "firstboot"

// ErrAlreadyRunning indicates another bootstrap run holds the machine
// lock. Concurrent runs are a precondition violation, so a held lock
// is reported immediately rather than waited on. The durable marker is
// not a lock.
var ErrAlreadyRunning = errors.New("another bootstrap run is already in progress")

// Acquire claims the machine-wide bootstrap mutex.
func Acquire(clk clock.Clock, timeout time.Duration) (mutex.Releaser, error) {
	releaser, err := mutex.Acquire(mutex.Spec{
		Name:    lockName,
		Clock:   clk,
		Delay:   50 * time.Millisecond,
		Timeout: timeout,
	})
	if err != nil {
		if errors.Is(err, mutex.ErrTimeout) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("acquiring bootstrap lock: %w", err)
	}
	return releaser, nil
}
