package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"clara-keeper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor(t *testing.T) (*HealthMonitor, *fakeDocker, *fakeProc) {
	t.Helper()
	docker := newFakeDocker()
	proc := newFakeProc()
	monitor := NewHealthMonitor(newTestStore(t), NewRegistry(), docker, proc)
	return monitor, docker, proc
}

func TestCheckStatusRemoteHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	monitor, _, _ := newTestMonitor(t)
	require.NoError(t, monitor.store.SetConfig(models.ServiceClaraCore, models.ModeRemote, srv.URL))

	status := monitor.CheckStatus(context.Background(), models.ServiceClaraCore)

	assert.True(t, status.Running)
	assert.Equal(t, srv.URL, status.ServiceURL)
	assert.Empty(t, status.Error)
	assert.Equal(t, models.ModeRemote, status.Mode)
}

func TestCheckStatusRemoteUnreachable(t *testing.T) {
	monitor, _, _ := newTestMonitor(t)
	// Nothing listens on this port.
	require.NoError(t, monitor.store.SetConfig(models.ServiceClaraCore, models.ModeRemote, "http://127.0.0.1:1"))

	status := monitor.CheckStatus(context.Background(), models.ServiceClaraCore)

	assert.False(t, status.Running)
	assert.Equal(t, "Cannot reach remote service", status.Error)
}

func TestCheckStatusRemoteUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	monitor, _, _ := newTestMonitor(t)
	require.NoError(t, monitor.store.SetConfig(models.ServiceClaraCore, models.ModeRemote, srv.URL))

	status := monitor.CheckStatus(context.Background(), models.ServiceClaraCore)

	assert.False(t, status.Running)
	assert.Equal(t, "Remote service unhealthy", status.Error)
}

func TestCheckStatusDockerStates(t *testing.T) {
	monitor, docker, _ := newTestMonitor(t)
	require.NoError(t, monitor.store.SetConfig(models.ServiceN8N, models.ModeDocker, ""))

	status := monitor.CheckStatus(context.Background(), models.ServiceN8N)
	assert.False(t, status.Running)
	assert.Equal(t, "container not created", status.Error)

	docker.states["clara_n8n"] = "running"
	status = monitor.CheckStatus(context.Background(), models.ServiceN8N)
	assert.True(t, status.Running)
	assert.Equal(t, "http://localhost:5678", status.ServiceURL)

	docker.states["clara_n8n"] = "exited"
	status = monitor.CheckStatus(context.Background(), models.ServiceN8N)
	assert.False(t, status.Running)
	assert.Contains(t, status.Error, "exited")
}

func TestCheckStatusDockerEngineUnavailable(t *testing.T) {
	// Wiring nil means no engine was reachable at startup; docker-mode
	// checks must report that, never dereference the missing control.
	monitor := NewHealthMonitor(newTestStore(t), NewRegistry(), nil, newFakeProc())

	status := monitor.CheckStatus(context.Background(), models.ServiceN8N)

	assert.False(t, status.Running)
	assert.Contains(t, status.Error, "docker unavailable")
}

func TestCheckStatusLocalProcess(t *testing.T) {
	monitor, _, proc := newTestMonitor(t)
	require.NoError(t, monitor.store.SetConfig(models.ServiceClaraCore, models.ModeLocal, ""))

	status := monitor.CheckStatus(context.Background(), models.ServiceClaraCore)
	assert.False(t, status.Running)

	proc.running[models.ServiceClaraCore] = true
	status = monitor.CheckStatus(context.Background(), models.ServiceClaraCore)
	assert.True(t, status.Running)
	assert.Equal(t, "http://localhost:8091", status.ServiceURL)
}

func TestRecheckCancelsOnFirstHealthyObservation(t *testing.T) {
	var probes int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&probes, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	monitor, _, _ := newTestMonitor(t)
	monitor.SetPollInterval(10 * time.Millisecond)
	require.NoError(t, monitor.store.SetConfig(models.ServiceComfyUI, models.ModeRemote, srv.URL))

	monitor.Recheck(models.ServiceComfyUI)

	assert.Eventually(t, func() bool {
		return !monitor.Polling(models.ServiceComfyUI)
	}, time.Second, 5*time.Millisecond, "polling should stop after the first healthy observation")

	// With the handle cancelled no further probes arrive.
	seen := atomic.LoadInt64(&probes)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, seen, atomic.LoadInt64(&probes))

	status, ok := monitor.LastStatus(models.ServiceComfyUI)
	require.True(t, ok)
	assert.True(t, status.Running)
}

func TestRecheckKeepsPollingWhileUnhealthy(t *testing.T) {
	var probes int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&probes, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	monitor, _, _ := newTestMonitor(t)
	monitor.SetPollInterval(10 * time.Millisecond)
	require.NoError(t, monitor.store.SetConfig(models.ServiceComfyUI, models.ModeRemote, srv.URL))

	monitor.Recheck(models.ServiceComfyUI)
	defer monitor.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&probes) >= 3
	}, time.Second, 5*time.Millisecond, "unhealthy services keep being polled")
	assert.True(t, monitor.Polling(models.ServiceComfyUI))
}

func TestRecheckReplacesExistingHandle(t *testing.T) {
	monitor, _, _ := newTestMonitor(t)
	monitor.SetPollInterval(time.Hour)
	require.NoError(t, monitor.store.SetConfig(models.ServiceN8N, models.ModeManual, "")) // no URL, stays unhealthy

	monitor.Recheck(models.ServiceN8N)
	monitor.Recheck(models.ServiceN8N)
	defer monitor.Stop()

	// Double recheck must not leak handles; exactly one remains.
	monitor.mu.Lock()
	n := len(monitor.handles)
	monitor.mu.Unlock()
	assert.Equal(t, 1, n)
}
