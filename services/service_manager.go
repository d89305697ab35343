package services

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"clara-keeper/internal/config"
	"clara-keeper/internal/logger"
	"clara-keeper/internal/models"
	"clara-keeper/internal/sshx"
)

// ServiceAction is a lifecycle verb accepted by the dispatcher.
type ServiceAction string

const (
	ActionStart   ServiceAction = "start"
	ActionStop    ServiceAction = "stop"
	ActionRestart ServiceAction = "restart"
)

// ErrRemoteUnmanaged is returned when a lifecycle action targets a service
// in remote mode. Remote lifecycle control is a documented limitation, not
// a bug: the user manages the service on the remote host directly.
var ErrRemoteUnmanaged = fmt.Errorf("remote services must be managed on the remote host directly")

// Registry holds the descriptors of every controllable service.
type Registry struct {
	descriptors map[string]*models.ServiceDescriptor
	order       []string
}

// NewRegistry builds the fixed ClaraVerse service set.
func NewRegistry() *Registry {
	list := []*models.ServiceDescriptor{
		{
			ID:            models.ServiceClaraCore,
			DisplayName:   "ClaraCore",
			DefaultMode:   models.ModeLocal,
			LocalPort:     8091,
			RemotePort:    5890,
			HealthPath:    "/health",
			ContainerName: "clara_core",
			BinaryName:    "claracore",
		},
		{
			ID:            models.ServicePythonBackend,
			DisplayName:   "Python Backend",
			DefaultMode:   models.ModeDocker,
			LocalPort:     5001,
			RemotePort:    5001,
			HealthPath:    "/health",
			ContainerName: "clara_python",
			BinaryName:    "clara-backend",
		},
		{
			ID:            models.ServiceN8N,
			DisplayName:   "N8N",
			DefaultMode:   models.ModeDocker,
			LocalPort:     5678,
			RemotePort:    5678,
			HealthPath:    "/healthz",
			ContainerName: "clara_n8n",
		},
		{
			ID:            models.ServiceComfyUI,
			DisplayName:   "ComfyUI",
			DefaultMode:   models.ModeDocker,
			LocalPort:     8188,
			RemotePort:    8188,
			HealthPath:    "/system_stats",
			ContainerName: "clara_comfyui",
		},
	}
	reg := &Registry{descriptors: make(map[string]*models.ServiceDescriptor)}
	for _, d := range list {
		reg.descriptors[d.ID] = d
		reg.order = append(reg.order, d.ID)
	}
	return reg
}

// Get returns the descriptor for a service, nil when unknown.
func (r *Registry) Get(serviceID string) *models.ServiceDescriptor {
	return r.descriptors[serviceID]
}

// All returns descriptors in stable registration order.
func (r *Registry) All() []*models.ServiceDescriptor {
	out := make([]*models.ServiceDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.descriptors[id])
	}
	return out
}

/**
 * Service manager: registry plus the action dispatcher
 * @description
 * - Resolves the configured mode and delegates start/stop/restart to the
 *   mode's control surface (local binary or Docker container)
 * - Refuses lifecycle actions for remote-mode services with a user-facing
 *   notice
 * - Schedules staggered follow-up health checks (+2s, +5s) after an action
 *   so slow-starting services get reflected without blocking the caller
 */
type ServiceManager struct {
	reg     *Registry
	store   *config.ServiceStore
	docker  DockerControl
	proc    ProcessControl
	monitor *HealthMonitor

	// recheckDelays is variable for tests.
	recheckDelays []time.Duration
}

func NewServiceManager(reg *Registry, store *config.ServiceStore, docker DockerControl, proc ProcessControl, monitor *HealthMonitor) *ServiceManager {
	if docker == nil {
		docker = dockerUnavailable{err: fmt.Errorf("docker engine unavailable")}
	}
	return &ServiceManager{
		reg:           reg,
		store:         store,
		docker:        docker,
		proc:          proc,
		monitor:       monitor,
		recheckDelays: []time.Duration{2 * time.Second, 5 * time.Second},
	}
}

// Registry exposes the descriptor set to controllers.
func (sm *ServiceManager) Registry() *Registry {
	return sm.reg
}

// GetDetail builds the API view of one service, with a fresh status check.
func (sm *ServiceManager) GetDetail(ctx context.Context, serviceID string) (*models.ServiceDetail, error) {
	desc := sm.reg.Get(serviceID)
	if desc == nil {
		return nil, fmt.Errorf("%w: %s", config.ErrServiceNotFound, serviceID)
	}
	cfg := sm.store.GetConfig(serviceID)
	return &models.ServiceDetail{
		ID:             desc.ID,
		DisplayName:    desc.DisplayName,
		Mode:           cfg.Mode,
		URL:            cfg.URL,
		SupportedModes: desc.SupportedModes(runtime.GOOS),
		Status:         sm.monitor.CheckStatus(ctx, serviceID),
	}, nil
}

/**
 * Execute a lifecycle action for a service in its configured mode
 * @param {context.Context} ctx - Action context
 * @param {string} serviceID - Service identifier
 * @param {ServiceAction} action - start/stop/restart
 * @returns {error} ErrRemoteUnmanaged for remote mode; control errors otherwise
 */
func (sm *ServiceManager) PerformAction(ctx context.Context, serviceID string, action ServiceAction) error {
	desc := sm.reg.Get(serviceID)
	if desc == nil {
		return fmt.Errorf("%w: %s", config.ErrServiceNotFound, serviceID)
	}
	cfg := sm.store.GetConfig(serviceID)

	var err error
	switch cfg.Mode {
	case models.ModeRemote:
		logger.Warnf("Refused %s for remote-mode service [%s]", action, serviceID)
		return ErrRemoteUnmanaged
	case models.ModeManual:
		return fmt.Errorf("service %s is manually configured; manage the process where it runs", serviceID)
	case models.ModeLocal:
		err = sm.localAction(ctx, desc, action)
	case models.ModeDocker:
		err = sm.dockerAction(ctx, desc, action)
	default:
		return fmt.Errorf("service %s has unknown mode %s", serviceID, cfg.Mode)
	}
	if err != nil {
		logger.Errorf("Action %s on [%s] failed: %v", action, serviceID, err)
		return err
	}

	logger.Infof("Action %s on [%s] dispatched (mode %s)", action, serviceID, cfg.Mode)
	sm.scheduleRechecks(serviceID)
	return nil
}

func (sm *ServiceManager) localAction(ctx context.Context, desc *models.ServiceDescriptor, action ServiceAction) error {
	switch action {
	case ActionStart:
		return sm.proc.Start(ctx, desc)
	case ActionStop:
		return sm.proc.Stop(desc.ID)
	case ActionRestart:
		if err := sm.proc.Stop(desc.ID); err != nil {
			return err
		}
		return sm.proc.Start(ctx, desc)
	}
	return fmt.Errorf("unknown action %s", action)
}

func (sm *ServiceManager) dockerAction(ctx context.Context, desc *models.ServiceDescriptor, action ServiceAction) error {
	switch action {
	case ActionStart:
		return sm.startContainer(ctx, desc)
	case ActionStop:
		return sm.docker.Stop(ctx, desc.ContainerName)
	case ActionRestart:
		return sm.docker.Restart(ctx, desc.ContainerName)
	}
	return fmt.Errorf("unknown action %s", action)
}

// startContainer starts the service container, creating it first when it
// does not exist yet. Only the ClaraCore image is keeper-provisioned; the
// other containers are created by the desktop app installer.
func (sm *ServiceManager) startContainer(ctx context.Context, desc *models.ServiceDescriptor) error {
	state, err := sm.docker.State(ctx, desc.ContainerName)
	if err != nil {
		return err
	}
	if state != "" {
		return sm.docker.Start(ctx, desc.ContainerName)
	}
	if desc.ID != models.ServiceClaraCore {
		return fmt.Errorf("container %s not found; reinstall the service from the desktop app", desc.ContainerName)
	}

	runner := sshx.NewLocalRunner()
	defer runner.Close()
	hw := DetectHardware(ctx, runner)
	if !hw.Deployable() {
		return fmt.Errorf("no deployable hardware for a local ClaraCore container: %s%s", hw.UnsupportedReason, hw.Error)
	}

	image := imageRef(hw.Detected)
	logger.Infof("Provisioning container %s from %s", desc.ContainerName, image)
	if err := sm.docker.Pull(ctx, image); err != nil {
		return err
	}
	return sm.docker.Run(ctx, desc.ContainerName, image, desc.LocalPort, 8091,
		map[string]string{"managed-by": "clara-keeper"})
}

// StopDeployment stops whatever is running for the given mode, used by the
// mode switcher before a transition. Remote and manual deployments have no
// local control surface and are left alone.
func (sm *ServiceManager) StopDeployment(ctx context.Context, serviceID string, mode models.DeployMode) error {
	desc := sm.reg.Get(serviceID)
	if desc == nil {
		return fmt.Errorf("%w: %s", config.ErrServiceNotFound, serviceID)
	}
	switch mode {
	case models.ModeLocal:
		return sm.proc.Stop(serviceID)
	case models.ModeDocker:
		return sm.docker.Stop(ctx, desc.ContainerName)
	}
	return nil
}

// StartDeployment starts the given mode's deployment, used by the mode
// switcher after persisting a claracore transition.
func (sm *ServiceManager) StartDeployment(ctx context.Context, serviceID string, mode models.DeployMode) error {
	desc := sm.reg.Get(serviceID)
	if desc == nil {
		return fmt.Errorf("%w: %s", config.ErrServiceNotFound, serviceID)
	}
	switch mode {
	case models.ModeLocal:
		return sm.proc.Start(ctx, desc)
	case models.ModeDocker:
		return sm.startContainer(ctx, desc)
	}
	return nil
}

func (sm *ServiceManager) scheduleRechecks(serviceID string) {
	for _, delay := range sm.recheckDelays {
		time.AfterFunc(delay, func() {
			// The triggering request is long gone by now; the delayed check
			// must not inherit its canceled context.
			sm.monitor.CheckStatus(context.Background(), serviceID)
		})
	}
}
