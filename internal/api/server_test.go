// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/ibpcdc/internal/catalog"
	"github.com/ManuGH/ibpcdc/internal/health"
	"github.com/ManuGH/ibpcdc/internal/runplan"
	"github.com/ManuGH/ibpcdc/internal/specs"
	"github.com/ManuGH/ibpcdc/internal/specset"
	"github.com/ManuGH/ibpcdc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestServer(t *testing.T, store *catalog.Store) http.Handler {
	t.Helper()
	set := specset.New(testutil.ReferenceSpecDir(t))
	require.NoError(t, set.Reload(t.Context()))
	return New(Config{Version: "test"}, set, store).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, nil)
	w := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	got := decode[HealthResponse](t, w)
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, 3, got.Specs)
	assert.Equal(t, "test", got.Version)
}

func TestRequestID_Propagated(t *testing.T) {
	h := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/specs/missing", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
	body := decode[ErrorBody](t, w)
	assert.Equal(t, "req-123", body.RequestID)
}

func TestListAndGetSpecs(t *testing.T) {
	h := newTestServer(t, nil)

	w := do(t, h, http.MethodGet, "/api/v1/specs", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]SpecSummary](t, w)
	require.Len(t, list, 3)
	assert.Equal(t, "PCN_INTE", list[0].Tag)
	assert.Equal(t, specs.ArchPCN, list[0].Architecture)

	w = do(t, h, http.MethodGet, "/api/v1/specs/SnowFlakeNet_INTE", "")
	require.Equal(t, http.StatusOK, w.Code)
	spec := decode[specs.Spec](t, w)
	assert.Equal(t, 300, spec.TrainOptions.NumEpochs)

	w = do(t, h, http.MethodGet, "/api/v1/specs/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, decode[ErrorBody](t, w).Error)
}

func TestSchedule(t *testing.T) {
	h := newTestServer(t, nil)

	w := do(t, h, http.MethodGet, "/api/v1/specs/PCN_INTE/schedule?from=49&to=51", "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[ScheduleResponse](t, w)
	require.Len(t, got.Rows, 3)
	assert.InDelta(t, 0.0001, got.Rows[0].LearningRate, 1e-15)
	assert.InDelta(t, 0.00005, got.Rows[1].LearningRate, 1e-15)
	assert.Contains(t, got.Milestones, 50)

	w = do(t, h, http.MethodGet, "/api/v1/specs/PCN_INTE/schedule", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[ScheduleResponse](t, w).Rows, 201)

	for _, q := range []string{
		"?from=x", "?from=10&to=5", "?from=-1",
		"?to=201", "?to=9223372036854775807", "?to=99999999999999999999",
	} {
		w = do(t, h, http.MethodGet, "/api/v1/specs/PCN_INTE/schedule"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		assert.Equal(t, CodeInvalidParameter, decode[ErrorBody](t, w).Error, q)
	}
}

func TestPlan(t *testing.T) {
	h := newTestServer(t, nil)

	w := do(t, h, http.MethodGet, "/api/v1/specs/PMPNet_INTE/plan", "")
	require.Equal(t, http.StatusOK, w.Code)
	plan := decode[runplan.Plan](t, w)
	assert.Equal(t, filepath.Join("model_paras", "PMPNet_INTE"), plan.CheckpointDir)
	assert.Equal(t, 150, plan.LastEpoch)

	w = do(t, h, http.MethodGet, "/api/v1/specs/PMPNet_INTE/plan?check=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	rep := decode[runplan.Report](t, w)
	assert.NotEmpty(t, rep.Issues)
}

func TestValidate(t *testing.T) {
	h := newTestServer(t, nil)
	valid, err := os.ReadFile(testutil.ReferenceSpec(t, "PCN"))
	require.NoError(t, err)

	w := do(t, h, http.MethodPost, "/api/v1/validate", string(valid))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[ValidateResponse](t, w)
	assert.True(t, got.Valid)
	assert.Equal(t, "PCN_INTE", got.Tag)

	invalid := strings.Replace(string(valid), `"BatchSize": 32`, `"BatchSize": 0`, 1)
	require.NotEqual(t, string(valid), invalid)
	w = do(t, h, http.MethodPost, "/api/v1/validate", invalid)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	got = decode[ValidateResponse](t, w)
	assert.False(t, got.Valid)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "TrainOptions.BatchSize", got.Errors[0].Field)

	w = do(t, h, http.MethodPost, "/api/v1/validate", `{"TAG": "x", "Bogus": 1}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	got = decode[ValidateResponse](t, w)
	assert.False(t, got.Valid)
	assert.NotEmpty(t, got.Errors)

	w = do(t, h, http.MethodPost, "/api/v1/validate", "not json")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCatalogRoutes(t *testing.T) {
	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	path := testutil.ReferenceSpec(t, "PCN")
	spec, err := specs.LoadValidated(path)
	require.NoError(t, err)
	_, err = store.Register(t.Context(), catalog.Entry{Path: path, Spec: spec})
	require.NoError(t, err)
	require.NoError(t, store.RecordValidation(t.Context(), "PCN_INTE", true, ""))

	h := newTestServer(t, store)

	w := do(t, h, http.MethodGet, "/api/v1/catalog", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]catalog.Entry](t, w), 1)

	w = do(t, h, http.MethodGet, "/api/v1/catalog/PCN_INTE/validations", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]catalog.Validation](t, w), 1)

	w = do(t, h, http.MethodGet, "/api/v1/catalog/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Without a store the routes are not mounted.
	w = do(t, newTestServer(t, nil), http.MethodGet, "/api/v1/catalog", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReadyz(t *testing.T) {
	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.sqlite"))
	require.NoError(t, err)
	h := newTestServer(t, store)

	w := do(t, h, http.MethodGet, "/readyz?verbose=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[health.ReadinessResponse](t, w)
	assert.True(t, got.Ready)
	assert.Equal(t, health.StatusHealthy, got.Status)
	assert.Equal(t, []string{"catalog", "spec_dir", "specs"}, sortedKeys(got.Checks))

	require.NoError(t, store.Close())
	w = do(t, h, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	got = decode[health.ReadinessResponse](t, w)
	assert.False(t, got.Ready)
	assert.Equal(t, health.StatusUnhealthy, got.Checks["catalog"].Status)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, nil)
	_ = do(t, h, http.MethodGet, "/api/v1/specs", "")
	w := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ibpcdc_http_request_duration_seconds")
}

func TestRecoverer(t *testing.T) {
	h := RequestID(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	w := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, CodeInternal, decode[ErrorBody](t, w).Error)
}

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RateLimit(RateLimitConfig{Requests: 2, Window: time.Minute, Whitelist: []string{"10.0.0.0/8"}})(ok)

	call := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, call("192.168.1.1:1000").Code)
	assert.Equal(t, http.StatusOK, call("192.168.1.1:1001").Code)
	w := call("192.168.1.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, CodeRateLimited, decode[ErrorBody](t, w).Error)

	assert.Equal(t, http.StatusOK, call("192.168.1.2:1000").Code)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, call("10.1.2.3:1000").Code)
	}

	disabled := RateLimit(RateLimitConfig{})(ok)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	disabled.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTracing_RecordsRouteSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	set := specset.New(testutil.ReferenceSpecDir(t))
	require.NoError(t, set.Reload(t.Context()))
	h := New(Config{Version: "test", TracerProvider: tp}, set, nil).Handler()

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "").Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/specs/PMPNet_INTE/plan", "").Code)

	spans := sr.Ended()
	require.Len(t, spans, 1, "health checks are not traced")
	var route string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == attribute.Key("http.route") {
			route = kv.Value.AsString()
		}
	}
	assert.Equal(t, "/api/v1/specs/{tag}/plan", route)
}
