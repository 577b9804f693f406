// Package loadgen drives the demo endpoints with concurrent virtual users.
package loadgen

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

const requestIDHeader = "X-Request-ID"

var DefaultRoutes = []string{"/process", "/compute?count=3", "/error", "/external-call"}

var (
	ErrNoLimit  = errors.New("either a duration or a request budget is required")
	ErrNoUsers  = errors.New("at least one user is required")
	ErrNoRoutes = errors.New("at least one route is required")
)

type Config struct {
	BaseURL  string
	Routes   []string
	Users    int
	Duration time.Duration
	// Requests caps the total across all users. Zero means no cap.
	Requests int
}

func (c Config) Validate() error {
	if c.Users <= 0 {
		return ErrNoUsers
	}
	if len(c.Routes) == 0 {
		return ErrNoRoutes
	}
	if c.Duration <= 0 && c.Requests <= 0 {
		return ErrNoLimit
	}
	return nil
}

type result struct {
	route    string
	status   int
	duration time.Duration
	err      error
}

type RouteStats struct {
	Requests     int
	Failures     int
	Statuses     map[int]int
	TotalLatency time.Duration
}

func (s *RouteStats) AverageLatency() time.Duration {
	if s.Requests == 0 {
		return 0
	}
	return s.TotalLatency / time.Duration(s.Requests)
}

type Report struct {
	TotalRequests int
	TotalLatency  time.Duration
	Routes        map[string]*RouteStats
}

func (r *Report) AverageLatency() time.Duration {
	if r.TotalRequests == 0 {
		return 0
	}
	return r.TotalLatency / time.Duration(r.TotalRequests)
}

func (r *Report) add(res result) {
	stats, found := r.Routes[res.route]
	if !found {
		stats = &RouteStats{Statuses: make(map[int]int)}
		r.Routes[res.route] = stats
	}
	r.TotalRequests++
	r.TotalLatency += res.duration
	stats.Requests++
	stats.TotalLatency += res.duration
	if res.err != nil {
		stats.Failures++
		return
	}
	stats.Statuses[res.status]++
}

// Log writes the report as one summary entry plus one entry per route.
func (r *Report) Log(logger *zap.Logger) {
	logger.Info(
		"Load test results",
		zap.Int("requests.total", r.TotalRequests),
		zap.Duration("latency.average", r.AverageLatency()),
	)
	routes := make([]string, 0, len(r.Routes))
	for route := range r.Routes {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	for _, route := range routes {
		stats := r.Routes[route]
		statuses := make([]string, 0, len(stats.Statuses))
		for status, count := range stats.Statuses {
			statuses = append(statuses, fmt.Sprintf("%d=%d", status, count))
		}
		sort.Strings(statuses)
		logger.Info(
			"Route results",
			zap.String("route", route),
			zap.Int("requests", stats.Requests),
			zap.Int("failures", stats.Failures),
			zap.String("statuses", strings.Join(statuses, ",")),
			zap.Duration("latency.average", stats.AverageLatency()),
		)
	}
}

type Runner struct {
	client *http.Client
	logger *zap.Logger
}

func NewRunner(client *http.Client, logger *zap.Logger) *Runner {
	if client == nil {
		client = &http.Client{}
	}
	return &Runner{client: client, logger: logger}
}

// Run starts cfg.Users virtual users and returns once the duration elapses, the
// request budget is spent or ctx is cancelled. Each user walks the routes
// round-robin starting at its own offset.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	r.logger.Info(
		"Starting load test",
		zap.String("base_url", cfg.BaseURL),
		zap.Int("users", cfg.Users),
		zap.Duration("duration", cfg.Duration),
		zap.Int("requests", cfg.Requests),
	)

	var budget *atomic.Int64
	if cfg.Requests > 0 {
		budget = &atomic.Int64{}
		budget.Store(int64(cfg.Requests))
	}

	results := make(chan result, 1000)
	g, gCtx := errgroup.WithContext(ctx)
	for user := 0; user < cfg.Users; user++ {
		g.Go(func() error {
			return r.user(gCtx, cfg, user, budget, results)
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(results)
	}()

	report := &Report{Routes: make(map[string]*RouteStats)}
	for res := range results {
		report.add(res)
	}
	if err := <-done; err != nil {
		return report, err
	}
	return report, nil
}

func (r *Runner) user(
	ctx context.Context,
	cfg Config,
	user int,
	budget *atomic.Int64,
	results chan<- result,
) error {
	for i := user; ; i++ {
		if ctx.Err() != nil {
			return nil
		}
		if budget != nil && budget.Add(-1) < 0 {
			return nil
		}

		route := cfg.Routes[i%len(cfg.Routes)]
		res, err := r.call(ctx, cfg.BaseURL, route)
		if err != nil {
			return err
		}
		if ctx.Err() != nil && res.err != nil {
			return nil
		}
		results <- res
	}
}

func (r *Runner) call(ctx context.Context, baseURL string, route string) (result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+route, nil)
	if err != nil {
		return result{}, fmt.Errorf("unable to build request for %s: %w", route, err)
	}
	req.Header.Set(requestIDHeader, uuid.NewString())

	start := time.Now()
	resp, err := r.client.Do(req)
	res := result{route: route, duration: time.Since(start), err: err}
	if err != nil {
		r.logger.Debug("Request failed", zap.String("route", route), zap.Error(err))
		return res, nil
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	res.status = resp.StatusCode
	return res, nil
}
