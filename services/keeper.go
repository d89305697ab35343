package services

import (
	"path/filepath"
	"sync"

	"clara-keeper/internal/config"
	"clara-keeper/internal/env"
	"clara-keeper/internal/logger"
)

var (
	keeperOnce sync.Once
	keeper     *Keeper
)

/**
 * Keeper is the composition root: one wired set of the store, registry,
 * service manager, health monitor, mode switcher and remote setup. The
 * daemon and every CLI subcommand share the same instance.
 */
type Keeper struct {
	Store    *config.ServiceStore
	Registry *Registry
	Manager  *ServiceManager
	Monitor  *HealthMonitor
	Switcher *ModeSwitcher
	Remote   *RemoteSetup
}

// GetKeeper builds the singleton on first use. Docker being unavailable is
// not fatal here: docker-mode operations report it when actually attempted.
func GetKeeper() *Keeper {
	keeperOnce.Do(func() {
		store, err := config.NewServiceStore(filepath.Join(env.ClaraDir, "cache", "services"))
		if err != nil {
			logger.Fatalf("initialize service store: %v", err)
		}

		var docker DockerControl
		if dm, err := GetDockerManager(); err != nil {
			logger.Warnf("Docker unavailable: %v", err)
			docker = dockerUnavailable{err: err}
		} else {
			docker = dm
		}

		reg := NewRegistry()
		proc := GetProcessManager()
		monitor := NewHealthMonitor(store, reg, docker, proc)
		manager := NewServiceManager(reg, store, docker, proc, monitor)
		// Confirmation is resolved by the caller (HTTP request flag or CLI
		// prompt) before SwitchMode runs, so the wired prompt approves.
		switcher := NewModeSwitcher(store, manager, monitor, ConfirmFunc(func(string) bool { return true }), NewProviderRegistry())

		keeper = &Keeper{
			Store:    store,
			Registry: reg,
			Manager:  manager,
			Monitor:  monitor,
			Switcher: switcher,
			Remote:   NewRemoteSetup(reg, nil),
		}
	})
	return keeper
}
