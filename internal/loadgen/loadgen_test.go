package loadgen

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunner_Run(t *testing.T) {
	t.Run("Spends exactly the request budget", func(t *testing.T) {
		var hits atomic.Int64
		srv := startFakeServer(t, &hits, nil)
		cfg := Config{
			BaseURL:  srv.URL,
			Routes:   []string{"/process", "/error"},
			Users:    3,
			Requests: 10,
		}

		report, err := NewRunner(srv.Client(), zaptest.NewLogger(t)).Run(context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, 10, report.TotalRequests)
		assert.Equal(t, int64(10), hits.Load())
		assert.Equal(t, report.Routes["/error"].Requests, report.Routes["/error"].Statuses[http.StatusInternalServerError])
		assert.Equal(t, report.Routes["/process"].Requests, report.Routes["/process"].Statuses[http.StatusOK])
	})

	t.Run("Stops when the duration elapses", func(t *testing.T) {
		var hits atomic.Int64
		srv := startFakeServer(t, &hits, nil)
		cfg := Config{BaseURL: srv.URL, Routes: DefaultRoutes, Users: 2, Duration: 50 * time.Millisecond}

		start := time.Now()
		report, err := NewRunner(srv.Client(), zap.NewNop()).Run(context.Background(), cfg)
		require.NoError(t, err)
		assert.Less(t, time.Since(start), 2*time.Second)
		assert.Greater(t, report.TotalRequests, 0)
	})

	t.Run("Sends a request id with every call", func(t *testing.T) {
		var mu sync.Mutex
		ids := make(map[string]bool)
		srv := startFakeServer(t, nil, func(r *http.Request) {
			mu.Lock()
			ids[r.Header.Get(requestIDHeader)] = true
			mu.Unlock()
		})

		_, err := NewRunner(srv.Client(), zap.NewNop()).Run(context.Background(), Config{
			BaseURL: srv.URL, Routes: []string{"/process"}, Users: 1, Requests: 5,
		})
		require.NoError(t, err)
		assert.Len(t, ids, 5)
		assert.NotContains(t, ids, "")
	})

	t.Run("Counts transport failures without aborting", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		report, err := NewRunner(nil, zap.NewNop()).Run(context.Background(), Config{
			BaseURL: url, Routes: []string{"/process"}, Users: 2, Requests: 4,
		})
		require.NoError(t, err)
		assert.Equal(t, 4, report.TotalRequests)
		assert.Equal(t, 4, report.Routes["/process"].Failures)
		assert.Empty(t, report.Routes["/process"].Statuses)
	})

	t.Run("Rejects an unbounded run", func(t *testing.T) {
		_, err := NewRunner(nil, zap.NewNop()).Run(context.Background(), Config{Routes: DefaultRoutes, Users: 1})
		assert.ErrorIs(t, err, ErrNoLimit)

		_, err = NewRunner(nil, zap.NewNop()).Run(context.Background(), Config{Routes: DefaultRoutes, Requests: 1})
		assert.ErrorIs(t, err, ErrNoUsers)

		_, err = NewRunner(nil, zap.NewNop()).Run(context.Background(), Config{Users: 1, Requests: 1})
		assert.ErrorIs(t, err, ErrNoRoutes)
	})
}

func TestReport_Log(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	report := &Report{Routes: make(map[string]*RouteStats)}
	report.add(result{route: "/process", status: http.StatusOK, duration: 10 * time.Millisecond})
	report.add(result{route: "/error", status: http.StatusInternalServerError, duration: 30 * time.Millisecond})

	report.Log(zap.New(core))

	require.Equal(t, 3, logs.Len())
	summary := logs.All()[0].ContextMap()
	assert.Equal(t, int64(2), summary["requests.total"])
	assert.Equal(t, 20*time.Millisecond, summary["latency.average"])
	assert.Equal(t, "/error", logs.All()[1].ContextMap()["route"])
	assert.Equal(t, "500=1", logs.All()[1].ContextMap()["statuses"])
}

func startFakeServer(t *testing.T, hits *atomic.Int64, inspect func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if inspect != nil {
			inspect(r)
		}
		if r.URL.Path == "/error" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}
