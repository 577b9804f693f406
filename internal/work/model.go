package work

import (
	"errors"
	"time"
)

// ErrSimulatedFailure is the deterministic fault returned by SimulateFailure.
var ErrSimulatedFailure = errors.New("Simulated error for testing")

type ExternalResult struct {
	Latency time.Duration
	Result  string
}
