package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/telemetry"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/telemetry/telemetrytest"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/work"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const testTaskUnit = time.Millisecond

type testHarness struct {
	tp     *sdktrace.TracerProvider
	tel    *telemetry.Telemetry
	rec    *telemetry.Recorder
	worker *work.Worker
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	logs   *observer.ObservedLogs
	logger *zap.Logger
}

func TestProcessHandler(t *testing.T) {
	t.Run("Runs five tasks and reports them", func(t *testing.T) {
		h := getNewTestHarness()
		resp := h.serve(ProcessHandler(h.tel, h.rec, h.worker, h.logger), "/process")

		require.Equal(t, http.StatusOK, resp.Code)
		var body ProcessResponseDTO
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "completed", body.Status)
		assert.Equal(t, 5, body.TasksExecuted)
		assert.GreaterOrEqual(t, body.DurationSeconds, (10 * testTaskUnit).Seconds())
	})

	t.Run("Increments the task counter by five per call", func(t *testing.T) {
		h := getNewTestHarness()
		handler := ProcessHandler(h.tel, h.rec, h.worker, h.logger)
		h.serve(handler, "/process")
		assert.Equal(t, int64(5), telemetrytest.CounterValue(t, h.reader, telemetry.TasksExecutedName))

		h.serve(handler, "/process")
		assert.Equal(t, int64(10), telemetrytest.CounterValue(t, h.reader, telemetry.TasksExecutedName))
	})

	t.Run("Records one request and one duration for the route", func(t *testing.T) {
		h := getNewTestHarness()
		h.serve(ProcessHandler(h.tel, h.rec, h.worker, h.logger), "/process")

		route := telemetry.AttrRoute.String(RouteProcess)
		assert.Equal(t, int64(1), telemetrytest.CounterValue(t, h.reader, telemetry.RequestsTotalName, route))
		assert.Equal(t, int64(0), telemetrytest.CounterValue(t, h.reader, telemetry.ErrorsTotalName, route))
		count, _ := telemetrytest.HistogramStats(t, h.reader, telemetry.RequestDurationName, route)
		assert.Equal(t, uint64(1), count)
	})

	t.Run("Nests one span per task under the endpoint span", func(t *testing.T) {
		h := getNewTestHarness()
		h.serve(ProcessHandler(h.tel, h.rec, h.worker, h.logger), "/process")

		ended := h.spans.Ended()
		require.Len(t, ended, 6)
		outer := ended[5]
		assert.Equal(t, "process-endpoint", outer.Name())
		for i := 0; i < 5; i++ {
			assert.Equal(t, fmt.Sprintf("task-%d", i), ended[i].Name())
			assert.Equal(t, outer.SpanContext().SpanID(), ended[i].Parent().SpanID())
		}
	})

	t.Run("Logs every task", func(t *testing.T) {
		h := getNewTestHarness()
		h.serve(ProcessHandler(h.tel, h.rec, h.worker, h.logger), "/process")

		completed := h.logs.FilterMessageSnippet("completed in")
		assert.Equal(t, 5, completed.Len())
		for _, entry := range completed.All() {
			assert.Contains(t, entry.ContextMap(), "trace_id")
		}
	})

	t.Run("Stops and counts an error when the client goes away", func(t *testing.T) {
		h := getNewTestHarness(work.WithTaskUnit(time.Hour))
		ctx, cancel := context.WithCancel(context.Background())
		req := httptest.NewRequest(http.MethodGet, "/process", nil).WithContext(ctx)
		resp := httptest.NewRecorder()

		done := make(chan struct{})
		go func() {
			ProcessHandler(h.tel, h.rec, h.worker, h.logger).ServeHTTP(resp, req)
			close(done)
		}()
		cancel()
		<-done

		assert.Empty(t, resp.Body.String())
		route := telemetry.AttrRoute.String(RouteProcess)
		assert.Equal(t, int64(1), telemetrytest.CounterValue(t, h.reader, telemetry.RequestsTotalName, route))
		assert.Equal(t, int64(1), telemetrytest.CounterValue(t, h.reader, telemetry.ErrorsTotalName, route))
		ended := h.spans.Ended()
		require.NotEmpty(t, ended)
		assert.Equal(t, codes.Error, ended[len(ended)-1].Status().Code)
	})
}

func TestComputeHandler(t *testing.T) {
	t.Run("Performs exactly count task delays", func(t *testing.T) {
		var draws atomic.Int64
		h := getNewTestHarness(work.WithRandom(
			func() float64 { return 0 },
			func(n int) int {
				draws.Add(1)
				return 0
			},
		))
		resp := h.serve(ComputeHandler(h.tel, h.rec, h.worker, h.logger), "/compute?count=7")

		require.Equal(t, http.StatusOK, resp.Code)
		var body ComputeResponseDTO
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "compute done", body.Status)
		assert.Equal(t, 7, body.Iterations)
		assert.Equal(t, int64(7), draws.Load())
		assert.GreaterOrEqual(t, body.DurationSeconds, (7 * testTaskUnit).Seconds())
	})

	t.Run("Defaults to ten iterations", func(t *testing.T) {
		h := getNewTestHarness()
		resp := h.serve(ComputeHandler(h.tel, h.rec, h.worker, h.logger), "/compute")

		var body ComputeResponseDTO
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, 10, body.Iterations)
	})

	t.Run("Zero iterations return immediately", func(t *testing.T) {
		h := getNewTestHarness(work.WithTaskUnit(time.Hour))
		resp := h.serve(ComputeHandler(h.tel, h.rec, h.worker, h.logger), "/compute?count=0")

		require.Equal(t, http.StatusOK, resp.Code)
		var body ComputeResponseDTO
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, 0, body.Iterations)
		assert.Less(t, body.DurationSeconds, 0.05)
	})

	t.Run("Records the route without touching the task counter", func(t *testing.T) {
		h := getNewTestHarness()
		h.serve(ComputeHandler(h.tel, h.rec, h.worker, h.logger), "/compute?count=2")

		route := telemetry.AttrRoute.String(RouteCompute)
		assert.Equal(t, int64(1), telemetrytest.CounterValue(t, h.reader, telemetry.RequestsTotalName, route))
		assert.Equal(t, int64(0), telemetrytest.CounterValue(t, h.reader, telemetry.TasksExecutedName))
		ended := h.spans.Ended()
		require.Len(t, ended, 1)
		assert.Equal(t, "compute-endpoint", ended[0].Name())
	})

	t.Run("Rejects an invalid count before doing any work", func(t *testing.T) {
		for _, raw := range []string{"abc", "-1", "1.5"} {
			h := getNewTestHarness()
			resp := h.serve(ComputeHandler(h.tel, h.rec, h.worker, h.logger), "/compute?count="+raw)

			assert.Equal(t, http.StatusUnprocessableEntity, resp.Code, raw)
			var body ErrorMessage
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Equal(t, ErrInvalidCount.Error(), body.Detail)
			assert.Equal(t, int64(0), telemetrytest.CounterValue(t, h.reader, telemetry.RequestsTotalName))
			assert.Empty(t, h.spans.Ended())
		}
	})
}

func TestErrorHandler(t *testing.T) {
	t.Run("Always answers 500 with the simulated error", func(t *testing.T) {
		h := getNewTestHarness()
		resp := h.serve(ErrorHandler(h.rec, h.worker, h.logger), "/error")

		assert.Equal(t, http.StatusInternalServerError, resp.Code)
		assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))
		var body ErrorMessage
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "Simulated error for testing", body.Detail)
	})

	t.Run("Counts one request and one error per call", func(t *testing.T) {
		h := getNewTestHarness()
		handler := ErrorHandler(h.rec, h.worker, h.logger)
		h.serve(handler, "/error")
		h.serve(handler, "/error")

		route := telemetry.AttrRoute.String(RouteError)
		assert.Equal(t, int64(2), telemetrytest.CounterValue(t, h.reader, telemetry.RequestsTotalName, route))
		assert.Equal(t, int64(2), telemetrytest.CounterValue(t, h.reader, telemetry.ErrorsTotalName, route))
		count, _ := telemetrytest.HistogramStats(t, h.reader, telemetry.RequestDurationName, route)
		assert.Equal(t, uint64(2), count)
	})

	t.Run("Attaches the error to the current span", func(t *testing.T) {
		h := getNewTestHarness()
		ctx, span := h.tel.StartSpan(context.Background(), "GET /error")
		req := httptest.NewRequest(http.MethodGet, "/error", nil).WithContext(ctx)
		ErrorHandler(h.rec, h.worker, h.logger).ServeHTTP(httptest.NewRecorder(), req)
		span.End()

		ended := h.spans.Ended()
		require.Len(t, ended, 1)
		assert.Equal(t, codes.Error, ended[0].Status().Code)
		assert.Equal(t, "Simulated error for testing", ended[0].Status().Description)
		require.Len(t, ended[0].Events(), 1)
		assert.Equal(t, "exception", ended[0].Events()[0].Name)
	})

	t.Run("Logs the failure marker task", func(t *testing.T) {
		h := getNewTestHarness()
		h.serve(ErrorHandler(h.rec, h.worker, h.logger), "/error")

		assert.Equal(t, 1, h.logs.FilterMessage("Task -1 completed in 0.000s").Len())
		assert.Equal(t, 0, h.logs.FilterLevelExact(zapcore.WarnLevel).Len())
	})
}

func TestExternalCallHandler(t *testing.T) {
	t.Run("Returns the simulated dependency result", func(t *testing.T) {
		h := getNewTestHarness()
		resp := h.serve(ExternalCallHandler(h.tel, h.rec, h.worker, h.logger), "/external-call")

		require.Equal(t, http.StatusOK, resp.Code)
		var body ExternalCallResponseDTO
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "external result", body.Status)
		assert.Equal(t, "ok", body.Data.Result)
		assert.GreaterOrEqual(t, body.Data.LatencySeconds, 0.05)
		assert.Less(t, body.Data.LatencySeconds, 0.2)
		assert.GreaterOrEqual(t, body.DurationSeconds, body.Data.LatencySeconds)
	})

	t.Run("Wraps the call in its own span and records the route", func(t *testing.T) {
		h := getNewTestHarness()
		h.serve(ExternalCallHandler(h.tel, h.rec, h.worker, h.logger), "/external-call")

		ended := h.spans.Ended()
		require.Len(t, ended, 1)
		assert.Equal(t, "external-call", ended[0].Name())
		route := telemetry.AttrRoute.String(RouteExternalCall)
		assert.Equal(t, int64(1), telemetrytest.CounterValue(t, h.reader, telemetry.RequestsTotalName, route))
	})
}

func TestNotFoundHandler(t *testing.T) {
	resp := httptest.NewRecorder()
	NotFoundHandler(zap.NewNop()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.JSONEq(t, `{"detail":"Not Found"}`, resp.Body.String())
}

func getNewTestHarness(opts ...work.Option) *testHarness {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	tel := telemetry.New(tp, mp, nil)

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	workerOpts := append([]work.Option{work.WithTaskUnit(testTaskUnit)}, opts...)

	return &testHarness{
		tp:     tp,
		tel:    tel,
		rec:    telemetry.NewRecorder(tel),
		worker: work.NewWorker(logger, workerOpts...),
		spans:  spans,
		reader: reader,
		logs:   logs,
		logger: logger,
	}
}

func (h *testHarness) serve(handler http.Handler, target string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
	return resp
}
