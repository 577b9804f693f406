package work

import (
	"context"
	"fmt"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/logging"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"math/rand/v2"
	"time"
)

const (
	DefaultTaskUnit    = 100 * time.Millisecond
	SlowTaskThreshold  = 300 * time.Millisecond
	MinExternalLatency = 50 * time.Millisecond
	MaxExternalLatency = 200 * time.Millisecond
	ExternalResultOK   = "ok"
	maxRandomTaskIndex = 3
)

// Worker produces artificial delay and synthetic results. Waiting parks the
// calling goroutine on a timer and honours cancellation of its context.
type Worker struct {
	unit      time.Duration
	logger    *zap.Logger
	randFloat func() float64
	randIntN  func(n int) int
}

type Option func(*Worker)

func WithTaskUnit(unit time.Duration) Option {
	return func(w *Worker) {
		w.unit = unit
	}
}

// WithRandom replaces the random sources. Both functions must be safe for
// concurrent use.
func WithRandom(randFloat func() float64, randIntN func(n int) int) Option {
	return func(w *Worker) {
		w.randFloat = randFloat
		w.randIntN = randIntN
	}
}

func NewWorker(logger *zap.Logger, opts ...Option) *Worker {
	w := &Worker{
		unit:      DefaultTaskUnit,
		logger:    logger,
		randFloat: rand.Float64,
		randIntN:  rand.IntN,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// PerformTask waits index task units and returns the measured elapsed time.
// A cancelled ctx ends the wait early and is returned as the error.
func (w *Worker) PerformTask(ctx context.Context, index int) (time.Duration, error) {
	start := time.Now()
	err := sleep(ctx, time.Duration(index)*w.unit)
	return time.Since(start), err
}

// RandomTaskIndex draws a task index uniformly from {1, 2, 3}.
func (w *Worker) RandomTaskIndex() int {
	return w.randIntN(maxRandomTaskIndex) + 1
}

func (w *Worker) GenerateLogs(ctx context.Context, index int, duration time.Duration) {
	logger := logging.WithTrace(ctx, w.logger)
	seconds := decimal.NewFromFloat(duration.Seconds()).StringFixed(3)
	fields := []zap.Field{
		zap.Int("task.index", index),
		zap.Duration("task.duration", duration),
	}

	logger.Info(fmt.Sprintf("Task %d completed in %ss", index, seconds), fields...)
	if duration > SlowTaskThreshold {
		logger.Warn(fmt.Sprintf("Task %d took longer than expected: %ss", index, seconds), fields...)
	}
}

// SimulateExternalCall waits a latency drawn uniformly from
// [MinExternalLatency, MaxExternalLatency) and reports it.
func (w *Worker) SimulateExternalCall(ctx context.Context) (ExternalResult, error) {
	spread := float64(MaxExternalLatency - MinExternalLatency)
	latency := MinExternalLatency + time.Duration(w.randFloat()*spread)
	if err := sleep(ctx, latency); err != nil {
		return ExternalResult{}, err
	}
	return ExternalResult{
		Latency: latency,
		Result:  ExternalResultOK,
	}, nil
}

func SimulateFailure() error {
	return ErrSimulatedFailure
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
