package models

import "time"

// DeployMode selects how a service is run and reached.
type DeployMode string

const (
	ModeLocal  DeployMode = "local"
	ModeDocker DeployMode = "docker"
	ModeManual DeployMode = "manual"
	ModeRemote DeployMode = "remote"
)

// Well-known service identifiers.
const (
	ServiceClaraCore     = "claracore"
	ServicePythonBackend = "python-backend"
	ServiceN8N           = "n8n"
	ServiceComfyUI       = "comfyui"
)

/**
 * Service descriptor
 * @property {string} id - Service identifier (claracore/python-backend/n8n/comfyui)
 * @property {string} displayName - Human readable name
 * @property {DeployMode} defaultMode - Mode seeded on first load
 * @property {int} localPort - Default port for local/docker deployments
 * @property {int} remotePort - Port the remote-deployed container listens on
 * @property {string} healthPath - HTTP health endpoint path
 * @property {string} containerName - Docker container name for docker mode
 */
type ServiceDescriptor struct {
	ID            string     `json:"id"`
	DisplayName   string     `json:"displayName"`
	DefaultMode   DeployMode `json:"defaultMode"`
	LocalPort     int        `json:"localPort"`
	RemotePort    int        `json:"remotePort"`
	HealthPath    string     `json:"healthPath"`
	ContainerName string     `json:"containerName"`
	BinaryName    string     `json:"binaryName,omitempty"`
}

// SupportedModes returns the deployment modes this service may use on the
// given OS. Docker-mode ComfyUI ships Windows-only images; docker-mode
// ClaraCore is unsupported on macOS.
func (d *ServiceDescriptor) SupportedModes(goos string) []DeployMode {
	modes := []DeployMode{ModeLocal, ModeDocker, ModeManual, ModeRemote}
	switch d.ID {
	case ServiceComfyUI:
		if goos != "windows" {
			modes = []DeployMode{ModeLocal, ModeManual, ModeRemote}
		}
	case ServiceClaraCore:
		if goos == "darwin" {
			modes = []DeployMode{ModeLocal, ModeManual, ModeRemote}
		}
	}
	return modes
}

// Supports reports whether mode is allowed for this service on goos.
func (d *ServiceDescriptor) Supports(mode DeployMode, goos string) bool {
	for _, m := range d.SupportedModes(goos) {
		if m == mode {
			return true
		}
	}
	return false
}

/**
 * Persisted per-service configuration
 * @property {DeployMode} mode - Active deployment mode
 * @property {string} url - Resolved connection endpoint, empty if unset
 */
type ServiceConfig struct {
	Mode DeployMode `json:"mode"`
	URL  string     `json:"url"`
}

// ServiceStatus is recomputed on every poll and never persisted.
type ServiceStatus struct {
	Running    bool       `json:"running"`
	ServiceURL string     `json:"serviceUrl,omitempty"`
	Error      string     `json:"error,omitempty"`
	Mode       DeployMode `json:"mode"`
	CheckedAt  time.Time  `json:"checkedAt"`
}

// ServiceDetail is the API view of one managed service.
type ServiceDetail struct {
	ID             string        `json:"id"`
	DisplayName    string        `json:"displayName"`
	Mode           DeployMode    `json:"mode"`
	URL            string        `json:"url,omitempty"`
	SupportedModes []DeployMode  `json:"supportedModes"`
	Status         ServiceStatus `json:"status"`
}
