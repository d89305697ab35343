package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"clara-keeper/internal/config"
	"clara-keeper/internal/logger"
	"clara-keeper/internal/models"
)

/**
 * Health monitor
 * @description
 * - Recomputes ServiceStatus per poll, branching on the configured mode:
 *   remote/manual probe over HTTP, docker asks the engine, local asks the
 *   process table. Local modes never need a network probe.
 * - One cancelable polling handle per service. On the first fully-healthy
 *   observation the handle is cancelled, and polling stays off until a
 *   manual recheck or a configuration change. Small local inference
 *   backends should not be polled forever.
 */
type HealthMonitor struct {
	store    *config.ServiceStore
	docker   DockerControl
	proc     ProcessControl
	http     *http.Client
	reg      *Registry
	interval time.Duration

	mu      sync.Mutex
	handles map[string]chan struct{}
	last    map[string]models.ServiceStatus
}

func NewHealthMonitor(store *config.ServiceStore, reg *Registry, docker DockerControl, proc ProcessControl) *HealthMonitor {
	timeout := time.Duration(config.Config.Interval.HealthTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	interval := time.Duration(config.Config.Interval.HealthPoll) * time.Second
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	if docker == nil {
		docker = dockerUnavailable{err: fmt.Errorf("docker engine unavailable")}
	}
	return &HealthMonitor{
		store:    store,
		docker:   docker,
		proc:     proc,
		http:     &http.Client{Timeout: timeout},
		reg:      reg,
		interval: interval,
		handles:  make(map[string]chan struct{}),
		last:     make(map[string]models.ServiceStatus),
	}
}

/**
 * Check the current status of one service
 * @param {context.Context} ctx - Probe context
 * @param {string} serviceID - Service identifier
 * @returns {models.ServiceStatus} Fresh status, also cached for the API
 */
func (hm *HealthMonitor) CheckStatus(ctx context.Context, serviceID string) models.ServiceStatus {
	desc := hm.reg.Get(serviceID)
	cfg := hm.store.GetConfig(serviceID)
	status := models.ServiceStatus{Mode: cfg.Mode, CheckedAt: time.Now()}

	if desc == nil {
		status.Error = fmt.Sprintf("unknown service %s", serviceID)
		return status
	}

	switch cfg.Mode {
	case models.ModeRemote:
		hm.checkHTTP(ctx, desc, cfg.URL, &status,
			"Cannot reach remote service", "Remote service unhealthy")
	case models.ModeManual:
		if cfg.URL == "" {
			status.Error = "no URL configured"
		} else {
			hm.checkHTTP(ctx, desc, cfg.URL, &status,
				"Cannot reach service", "Service unhealthy")
		}
	case models.ModeDocker:
		state, err := hm.docker.State(ctx, desc.ContainerName)
		if err != nil {
			status.Error = fmt.Sprintf("docker unavailable: %v", err)
		} else if state == "running" {
			status.Running = true
			status.ServiceURL = fmt.Sprintf("http://localhost:%d", desc.LocalPort)
		} else if state == "" {
			status.Error = "container not created"
		} else {
			status.Error = fmt.Sprintf("container %s", state)
		}
	case models.ModeLocal:
		running, _ := hm.proc.Status(serviceID)
		status.Running = running
		if running {
			status.ServiceURL = fmt.Sprintf("http://localhost:%d", desc.LocalPort)
		} else {
			status.Error = "process not running"
		}
	default:
		status.Error = fmt.Sprintf("unknown mode %s", cfg.Mode)
	}

	recordHealthCheck(serviceID, status.Running)
	recordServiceUp(serviceID, string(cfg.Mode), status.Running)

	hm.mu.Lock()
	hm.last[serviceID] = status
	hm.mu.Unlock()
	return status
}

func (hm *HealthMonitor) checkHTTP(ctx context.Context, desc *models.ServiceDescriptor, baseURL string, status *models.ServiceStatus, unreachableMsg, unhealthyMsg string) {
	if baseURL == "" {
		status.Error = unreachableMsg
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+desc.HealthPath, nil)
	if err != nil {
		status.Error = unreachableMsg
		return
	}
	resp, err := hm.http.Do(req)
	if err != nil {
		status.Error = unreachableMsg
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		status.Running = true
		status.ServiceURL = baseURL
		return
	}
	status.Error = unhealthyMsg
}

// SetPollInterval overrides the polling interval (used by tests and the
// settings API).
func (hm *HealthMonitor) SetPollInterval(d time.Duration) {
	hm.interval = d
}

// LastStatus returns the cached status from the most recent check.
func (hm *HealthMonitor) LastStatus(serviceID string) (models.ServiceStatus, bool) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	s, ok := hm.last[serviceID]
	return s, ok
}

/**
 * Start polling all registered services
 * @description Each service gets its own handle; intervals are independent
 * and unordered relative to each other.
 */
func (hm *HealthMonitor) Start() {
	for _, desc := range hm.reg.All() {
		hm.Recheck(desc.ID)
	}
}

/**
 * (Re)start polling one service
 * @description Cancels any existing handle first. The new interval runs
 * until the service is observed healthy, then cancels itself. The caller's
 * context is often an already-finished HTTP request, so the polling runs
 * against a fresh one; the stop channel (Stop, or a replacing Recheck) is
 * the only way to end a handle early.
 */
func (hm *HealthMonitor) Recheck(serviceID string) {
	hm.mu.Lock()
	if stop, ok := hm.handles[serviceID]; ok {
		close(stop)
	}
	stop := make(chan struct{})
	hm.handles[serviceID] = stop
	hm.mu.Unlock()

	go func() {
		ctx := context.Background()
		// Immediate check, then interval polling while unhealthy.
		if st := hm.CheckStatus(ctx, serviceID); st.Running {
			hm.cancel(serviceID, stop)
			return
		}
		ticker := time.NewTicker(hm.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if st := hm.CheckStatus(ctx, serviceID); st.Running {
					logger.Infof("Service [%s] healthy, polling paused until recheck", serviceID)
					hm.cancel(serviceID, stop)
					return
				}
			}
		}
	}()
}

func (hm *HealthMonitor) cancel(serviceID string, stop chan struct{}) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	if hm.handles[serviceID] == stop {
		delete(hm.handles, serviceID)
	}
}

// Polling reports whether a service currently has an active handle.
func (hm *HealthMonitor) Polling(serviceID string) bool {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	_, ok := hm.handles[serviceID]
	return ok
}

// Stop cancels every polling handle; must run on teardown so no orphaned
// timers outlive the server.
func (hm *HealthMonitor) Stop() {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	for id, stop := range hm.handles {
		close(stop)
		delete(hm.handles, id)
	}
}
