// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: m.status}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestManager_Ready_NoCheckers(t *testing.T) {
	m := NewManager("v1.0.0")
	resp := m.Ready(context.Background(), true)
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.Nil(t, resp.Checks)
}

func TestManager_Ready_Degraded(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "a", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "b", status: StatusDegraded})

	resp := m.Ready(context.Background(), false)
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Nil(t, resp.Checks)

	resp = m.Ready(context.Background(), true)
	assert.Len(t, resp.Checks, 2)
}

func TestManager_Ready_UnhealthyListsChecks(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "ok", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "bad", status: StatusUnhealthy})

	resp := m.Ready(context.Background(), false)
	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Equal(t, StatusUnhealthy, resp.Checks["bad"].Status)
}

func TestManager_ServeReady(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		wantCode int
	}{
		{"healthy", StatusHealthy, http.StatusOK},
		{"degraded", StatusDegraded, http.StatusOK},
		{"unhealthy", StatusUnhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("v1.0.0")
			m.RegisterChecker(&mockChecker{name: "c", status: tt.status})

			w := httptest.NewRecorder()
			m.ServeReady(w, httptest.NewRequest(http.MethodGet, "/readyz?verbose=true", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			var resp ReadinessResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.status, resp.Checks["c"].Status)
		})
	}
}

func TestDirChecker(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))

	c := NewDirChecker("spec_dir", dir)
	assert.Equal(t, "spec_dir", c.Name())
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	res := NewDirChecker("spec_dir", filepath.Join(dir, "missing")).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "directory not found", res.Error)

	res = NewDirChecker("spec_dir", file).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
}

func TestCountChecker(t *testing.T) {
	n := 0
	c := NewCountChecker("specs", func() int { return n })
	assert.Equal(t, StatusDegraded, c.Check(context.Background()).Status)

	n = 1
	assert.Equal(t, "1 item", c.Check(context.Background()).Message)
	n = 3
	res := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, "3 items", res.Message)
}

func TestPingChecker(t *testing.T) {
	ok := NewPingChecker("catalog", pingFunc(func(context.Context) error { return nil }), time.Second)
	assert.Equal(t, StatusHealthy, ok.Check(context.Background()).Status)

	failing := NewPingChecker("catalog", pingFunc(func(context.Context) error { return errors.New("database is closed") }), time.Second)
	res := failing.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "database is closed", res.Error)

	slow := NewPingChecker("catalog", pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}), 10*time.Millisecond)
	assert.Equal(t, StatusUnhealthy, slow.Check(context.Background()).Status)
}
