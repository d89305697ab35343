package models

import "time"

// DeploymentPhase is the state of one remote setup session. Transitions are
// validated in the orchestrator; the phase value itself is just a tag.
type DeploymentPhase string

const (
	PhaseIdle        DeploymentPhase = "idle"
	PhaseTesting     DeploymentPhase = "testing"
	PhaseTestSuccess DeploymentPhase = "test-success"
	PhaseTestFailed  DeploymentPhase = "test-failed"
	PhaseDeploying   DeploymentPhase = "deploying"
	PhaseDeployed    DeploymentPhase = "deployed"
	PhaseError       DeploymentPhase = "error"
)

// LogType tags a deployment log entry for the UI.
type LogType string

const (
	LogInfo    LogType = "info"
	LogSuccess LogType = "success"
	LogError   LogType = "error"
	LogWarning LogType = "warning"
)

// DeploymentStep names the current phase of a deploy run. Consumers treat a
// step transition as "mark previous step complete".
type DeploymentStep string

const (
	StepConnecting     DeploymentStep = "connecting"
	StepCheckingDocker DeploymentStep = "checking-docker"
	StepPullingImages  DeploymentStep = "pulling-images"
	StepDeploying      DeploymentStep = "deploying"
	StepVerifying      DeploymentStep = "verifying"
	StepComplete       DeploymentStep = "complete"
)

/**
 * Structured log entry emitted by the remote deployment orchestrator
 * @property {time.Time} timestamp - Entry time
 * @property {LogType} type - info/success/error/warning
 * @property {string} message - Human readable message
 * @property {DeploymentStep} step - Current phase, optional
 */
type DeploymentLogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      LogType        `json:"type"`
	Message   string         `json:"message"`
	Step      DeploymentStep `json:"step,omitempty"`
}

// DeploymentSessionState is the API view of a remote setup session.
type DeploymentSessionState struct {
	SessionID string                   `json:"sessionId,omitempty"`
	Phase     DeploymentPhase          `json:"phase"`
	Hardware  *HardwareDetectionResult `json:"hardware,omitempty"`
	Logs      []DeploymentLogEntry     `json:"logs"`
}

// TestResult is returned by the orchestrator's connection test. Success
// refers to the SSH connection only; deployability is judged from Hardware.
type TestResult struct {
	Success  bool                    `json:"success"`
	Hardware HardwareDetectionResult `json:"hardware"`
	Message  string                  `json:"message,omitempty"`
}

// DeployResult is returned after a deploy run.
type DeployResult struct {
	Success      bool         `json:"success"`
	ServiceURL   string       `json:"serviceUrl,omitempty"`
	HardwareType HardwareType `json:"hardwareType,omitempty"`
	Message      string       `json:"message,omitempty"`
}
