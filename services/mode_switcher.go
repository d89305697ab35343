package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clara-keeper/internal/config"
	"clara-keeper/internal/logger"
	"clara-keeper/internal/models"
)

// ConfirmationPrompt asks the user to confirm a disruptive transition.
// The server wires a UI/API-backed prompt; the CLI wires a terminal one;
// tests wire a canned answer.
type ConfirmationPrompt interface {
	Confirm(message string) bool
}

// ConfirmFunc adapts a plain function to ConfirmationPrompt.
type ConfirmFunc func(message string) bool

func (f ConfirmFunc) Confirm(message string) bool { return f(message) }

// ErrSwitchDeclined is returned when the user declines the confirmation.
var ErrSwitchDeclined = fmt.Errorf("mode switch declined by user")

/**
 * Deployment mode switcher
 * @description
 * - Transitions one service between local/docker/manual/remote
 * - Strictly ordered per invocation: stop old deployment, persist new
 *   (mode, url), start new deployment. Each step completes before the next
 *   begins so two deployments never race for the same port.
 * - Concurrent switches for the same service are serialized by a
 *   per-service mutex.
 * - ClaraCore is the always-on service: its switches are confirmation-gated
 *   and auto-restart the new mode, and its URL is propagated to the LLM
 *   provider registry. The other services only persist configuration on a
 *   switch; their running processes are left as-is.
 * - On a persist failure the authoritative state is reloaded from the
 *   store; the optimistic in-memory value is never trusted.
 */
type ModeSwitcher struct {
	store     *config.ServiceStore
	sm        *ServiceManager
	monitor   *HealthMonitor
	prompt    ConfirmationPrompt
	providers *ProviderRegistry

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// settleDelay between stopping the old deployment and starting the new
	// one, letting the port come free. Variable for tests.
	settleDelay time.Duration
	repollDelay time.Duration
}

func NewModeSwitcher(store *config.ServiceStore, sm *ServiceManager, monitor *HealthMonitor, prompt ConfirmationPrompt, providers *ProviderRegistry) *ModeSwitcher {
	return &ModeSwitcher{
		store:       store,
		sm:          sm,
		monitor:     monitor,
		prompt:      prompt,
		providers:   providers,
		locks:       make(map[string]*sync.Mutex),
		settleDelay: time.Second,
		repollDelay: 2 * time.Second,
	}
}

func (ms *ModeSwitcher) lock(serviceID string) *sync.Mutex {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	l, ok := ms.locks[serviceID]
	if !ok {
		l = &sync.Mutex{}
		ms.locks[serviceID] = l
	}
	return l
}

/**
 * Switch a service to a new deployment mode
 * @param {context.Context} ctx - Context for the stop/start sequence
 * @param {string} serviceID - Service identifier
 * @param {models.DeployMode} newMode - Target mode
 * @param {string} url - Resolved endpoint for the new mode, may be empty
 * @returns {error} ErrSwitchDeclined, persist failure, or control failure
 * @description The caller (UI/API boundary) is responsible for rejecting
 * remote mode when no deployment exists at the remote host; the switcher is
 * never invoked for an undeployed remote target.
 */
func (ms *ModeSwitcher) SwitchMode(ctx context.Context, serviceID string, newMode models.DeployMode, url string) error {
	l := ms.lock(serviceID)
	l.Lock()
	defer l.Unlock()

	oldCfg := ms.store.GetConfig(serviceID)
	if oldCfg.Mode == newMode && oldCfg.URL == url {
		return nil
	}

	isCore := serviceID == models.ServiceClaraCore
	modeChanged := oldCfg.Mode != newMode

	if isCore && modeChanged {
		msg := fmt.Sprintf(
			"Switching ClaraCore from %s to %s will stop the current deployment, save the new configuration and start %s. Continue?",
			oldCfg.Mode, newMode, newMode)
		if !ms.prompt.Confirm(msg) {
			logger.Infof("Mode switch for [%s] declined", serviceID)
			return ErrSwitchDeclined
		}

		if err := ms.sm.StopDeployment(ctx, serviceID, oldCfg.Mode); err != nil {
			logger.Warnf("Stopping old %s deployment for [%s] failed: %v", oldCfg.Mode, serviceID, err)
		}
		// Let the old deployment release its port before anything starts.
		time.Sleep(ms.settleDelay)
	}

	if err := ms.store.SetConfig(serviceID, newMode, url); err != nil {
		// Reload the authoritative record rather than un-mutating.
		ms.store.Reload(serviceID)
		return fmt.Errorf("persist mode for %s: %w", serviceID, err)
	}

	if isCore {
		if modeChanged {
			if err := ms.sm.StartDeployment(ctx, serviceID, newMode); err != nil {
				logger.Errorf("Starting %s deployment for [%s] failed: %v", newMode, serviceID, err)
			}
		}
		if url != "" {
			if err := ms.providers.UpdateClaraCoreBaseURL(url); err != nil {
				logger.Warnf("Provider registry update failed: %v", err)
			}
		}
	}

	// Reflect the new state to the UI after a short delay.
	time.AfterFunc(ms.repollDelay, func() {
		ms.monitor.Recheck(serviceID)
	})

	logger.Infof("Service [%s] switched: %s -> %s (url=%s)", serviceID, oldCfg.Mode, newMode, url)
	return nil
}
