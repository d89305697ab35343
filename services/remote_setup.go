package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"clara-keeper/internal/config"
	"clara-keeper/internal/logger"
	"clara-keeper/internal/models"
	"clara-keeper/internal/sshx"

	"github.com/google/uuid"
)

// DialFunc opens a command runner against a remote host. The default is
// sshx.Dial; tests substitute a fake.
type DialFunc func(ctx context.Context, creds models.SSHCredentials) (sshx.CommandRunner, error)

// legalTransitions encodes the session state machine:
// idle → testing → {test-success | test-failed} → deploying → {deployed | error}.
// A new testing run may only begin from idle or a terminal state.
var legalTransitions = map[models.DeploymentPhase][]models.DeploymentPhase{
	models.PhaseIdle:        {models.PhaseTesting},
	models.PhaseTesting:     {models.PhaseTestSuccess, models.PhaseTestFailed},
	models.PhaseTestSuccess: {models.PhaseDeploying, models.PhaseTesting},
	models.PhaseTestFailed:  {models.PhaseTesting},
	models.PhaseDeploying:   {models.PhaseDeployed, models.PhaseError},
	models.PhaseDeployed:    {models.PhaseTesting},
	models.PhaseError:       {models.PhaseTesting},
}

/**
 * Remote deployment orchestrator
 * @description
 * Drives one SSH session per run against a remote host: test connectivity
 * and hardware first, then pull and run the hardware-specific ClaraCore
 * container and verify it answers. Emits an ordered, timestamped log
 * stream the UI renders as step progress. All I/O failures surface as log
 * entries plus a phase change; nothing fails silently.
 */
type RemoteSetup struct {
	dial DialFunc
	reg  *Registry

	mu       sync.Mutex
	session  string
	phase    models.DeploymentPhase
	hardware *models.HardwareDetectionResult
	logs     []models.DeploymentLogEntry

	// verifyWait bounds the post-run reachability check. Variable for tests.
	verifyWait time.Duration
}

func NewRemoteSetup(reg *Registry, dial DialFunc) *RemoteSetup {
	if dial == nil {
		dial = func(ctx context.Context, creds models.SSHCredentials) (sshx.CommandRunner, error) {
			return sshx.Dial(ctx, creds)
		}
	}
	if reg == nil {
		reg = NewRegistry()
	}
	return &RemoteSetup{
		dial:       dial,
		reg:        reg,
		phase:      models.PhaseIdle,
		verifyWait: 30 * time.Second,
	}
}

// Phase returns the current session phase.
func (rs *RemoteSetup) Phase() models.DeploymentPhase {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.phase
}

// State snapshots the session for the API.
func (rs *RemoteSetup) State() models.DeploymentSessionState {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	logs := make([]models.DeploymentLogEntry, len(rs.logs))
	copy(logs, rs.logs)
	return models.DeploymentSessionState{
		SessionID: rs.session,
		Phase:     rs.phase,
		Hardware:  rs.hardware,
		Logs:      logs,
	}
}

func (rs *RemoteSetup) transition(to models.DeploymentPhase) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, allowed := range legalTransitions[rs.phase] {
		if allowed == to {
			logger.Debugf("Remote setup: %s -> %s", rs.phase, to)
			rs.phase = to
			return nil
		}
	}
	return fmt.Errorf("illegal deployment transition %s -> %s", rs.phase, to)
}

func (rs *RemoteSetup) log(t models.LogType, step models.DeploymentStep, format string, args ...interface{}) {
	entry := models.DeploymentLogEntry{
		Timestamp: time.Now(),
		Type:      t,
		Message:   fmt.Sprintf(format, args...),
		Step:      step,
	}
	rs.mu.Lock()
	rs.logs = append(rs.logs, entry)
	rs.mu.Unlock()

	switch t {
	case models.LogError:
		logger.Errorf("Remote setup: %s", entry.Message)
	case models.LogWarning:
		logger.Warnf("Remote setup: %s", entry.Message)
	default:
		logger.Infof("Remote setup: %s", entry.Message)
	}
}

/**
 * Test SSH connectivity and detect hardware
 * @param {context.Context} ctx - Run context
 * @param {models.SSHCredentials} creds - Target host
 * @returns {(*models.TestResult, error)} Result; error only for illegal
 * phase transitions
 * @description Connection success and deployability are orthogonal: an
 * unsupported (non-x86_64) host still reports Success=true for the
 * connection, but the session lands in test-failed so deploy stays
 * unreachable.
 */
func (rs *RemoteSetup) TestSetup(ctx context.Context, creds models.SSHCredentials) (*models.TestResult, error) {
	if err := rs.transition(models.PhaseTesting); err != nil {
		return nil, err
	}
	rs.mu.Lock()
	rs.session = uuid.NewString()
	rs.logs = nil
	rs.hardware = nil
	rs.mu.Unlock()

	rs.log(models.LogInfo, models.StepConnecting, "Connecting to %s as %s...", creds.Addr(), creds.Username)
	runner, err := rs.dial(ctx, creds)
	if err != nil {
		rs.log(models.LogError, models.StepConnecting, "Connection failed: %v", err)
		rs.transition(models.PhaseTestFailed)
		return &models.TestResult{
			Success: false,
			Message: fmt.Sprintf("SSH connection failed: %v", err),
		}, nil
	}
	defer runner.Close()
	rs.log(models.LogSuccess, models.StepConnecting, "SSH connection established")

	result := DetectHardware(ctx, runner)
	rs.mu.Lock()
	rs.hardware = &result
	rs.mu.Unlock()

	if result.Error != "" {
		rs.log(models.LogError, models.StepCheckingDocker, "Hardware detection failed: %s", result.Error)
		rs.transition(models.PhaseTestFailed)
		return &models.TestResult{Success: false, Hardware: result, Message: result.Error}, nil
	}

	rs.log(models.LogInfo, models.StepCheckingDocker, "Architecture: %s", result.Details.Architecture)
	if result.Detected == models.HardwareUnsupported {
		// The connection itself worked; only deployability failed.
		rs.log(models.LogError, models.StepCheckingDocker, "Host not deployable: %s", result.UnsupportedReason)
		rs.transition(models.PhaseTestFailed)
		return &models.TestResult{
			Success:  true,
			Hardware: result,
			Message:  result.UnsupportedReason,
		}, nil
	}

	if result.Details.DockerPresent {
		rs.log(models.LogSuccess, models.StepCheckingDocker, "Docker %s found", result.Details.DockerVersion)
	} else {
		rs.log(models.LogWarning, models.StepCheckingDocker, "Docker not found; it will be installed during deployment")
	}

	switch result.Detected {
	case models.HardwareCUDA:
		rs.log(models.LogSuccess, models.StepCheckingDocker, "NVIDIA GPU detected: %s", result.Details.GPUName)
	case models.HardwareROCm:
		rs.log(models.LogSuccess, models.StepCheckingDocker, "AMD ROCm GPU detected: %s", result.Details.GPUName)
	case models.HardwareStrix:
		rs.log(models.LogSuccess, models.StepCheckingDocker, "Strix Halo APU detected: %s", result.Details.CPUModel)
	default:
		rs.log(models.LogInfo, models.StepCheckingDocker, "No GPU accelerator found, CPU image will be used")
	}
	rs.log(models.LogSuccess, models.StepComplete, "Recommended image: %s (confidence: %s)",
		imageRef(result.Detected), result.Confidence)

	if err := rs.transition(models.PhaseTestSuccess); err != nil {
		return nil, err
	}
	return &models.TestResult{Success: true, Hardware: result}, nil
}

/**
 * Deploy the ClaraCore container to the tested host
 * @param {context.Context} ctx - Run context
 * @param {models.SSHCredentials} creds - Target host
 * @param {models.HardwareType} override - Optional user override of the
 * detected hardware type, "" to use the detection result
 * @returns {(*models.DeployResult, error)} Result; error when called
 * outside test-success
 * @description Steps run strictly in order and each failure halts the rest;
 * retries are a user-initiated re-run of the whole flow. Re-deploying over
 * an existing same-named container stops and recreates it.
 */
func (rs *RemoteSetup) Deploy(ctx context.Context, creds models.SSHCredentials, override models.HardwareType) (*models.DeployResult, error) {
	rs.mu.Lock()
	hardware := rs.hardware
	rs.mu.Unlock()

	if err := rs.transition(models.PhaseDeploying); err != nil {
		recordRemoteDeployment(false)
		return nil, fmt.Errorf("deploy is only available after a successful test: %w", err)
	}

	hwType := override
	if hwType == "" && hardware != nil {
		hwType = hardware.Detected
	}
	if hwType == "" || hwType == models.HardwareUnsupported {
		rs.fail(models.StepDeploying, "No deployable hardware type for this host")
		return &models.DeployResult{Success: false, Message: "no deployable hardware type"}, nil
	}

	rs.log(models.LogInfo, models.StepConnecting, "Connecting to %s...", creds.Addr())
	runner, err := rs.dial(ctx, creds)
	if err != nil {
		rs.fail(models.StepConnecting, "Connection failed: %v", err)
		return &models.DeployResult{Success: false, Message: err.Error()}, nil
	}
	defer runner.Close()
	rs.log(models.LogSuccess, models.StepConnecting, "SSH connection established")

	if err := rs.ensureDocker(ctx, runner, hardware); err != nil {
		rs.fail(models.StepCheckingDocker, "Docker installation failed: %v", err)
		return &models.DeployResult{Success: false, Message: err.Error()}, nil
	}

	image := imageRef(hwType)
	rs.log(models.LogInfo, models.StepPullingImages, "Pulling %s...", image)
	if out, err := runner.Run(ctx, "docker pull "+image); err != nil {
		rs.fail(models.StepPullingImages, "Image pull failed: %v (%s)", err, strings.TrimSpace(out))
		return &models.DeployResult{Success: false, Message: err.Error()}, nil
	}
	rs.log(models.LogSuccess, models.StepPullingImages, "Image %s pulled", image)

	core := rs.reg.Get(models.ServiceClaraCore)
	port := core.RemotePort
	rs.log(models.LogInfo, models.StepDeploying, "Starting ClaraCore container on port %d...", port)
	// Stop+recreate any previous deployment of the same name: deterministic,
	// and a re-run never duplicates containers.
	runner.Run(ctx, "docker rm -f claracore 2>/dev/null || true")
	runCmd := fmt.Sprintf(
		"docker run -d --name claracore --restart unless-stopped %s-p %d:%d %s",
		gpuRunFlags(hwType), port, core.LocalPort, image)
	if out, err := runner.Run(ctx, runCmd); err != nil {
		rs.fail(models.StepDeploying, "Container start failed: %v (%s)", err, strings.TrimSpace(out))
		return &models.DeployResult{Success: false, Message: err.Error()}, nil
	}
	rs.log(models.LogSuccess, models.StepDeploying, "Container started")

	rs.log(models.LogInfo, models.StepVerifying, "Verifying service on port %d...", port)
	if err := rs.verify(ctx, runner, port); err != nil {
		rs.fail(models.StepVerifying, "Service verification failed: %v", err)
		return &models.DeployResult{Success: false, Message: err.Error()}, nil
	}

	serviceURL := fmt.Sprintf("http://%s:%d", creds.Host, port)
	rs.log(models.LogSuccess, models.StepComplete, "ClaraCore deployed at %s", serviceURL)

	if err := rs.transition(models.PhaseDeployed); err != nil {
		return nil, err
	}
	recordRemoteDeployment(true)
	rs.persist(creds, serviceURL, hwType, port)
	return &models.DeployResult{
		Success:      true,
		ServiceURL:   serviceURL,
		HardwareType: hwType,
	}, nil
}

// ensureDocker verifies Docker is usable, installing it when missing. A
// missing engine is a remediation step, not an abort.
func (rs *RemoteSetup) ensureDocker(ctx context.Context, runner sshx.CommandRunner, hardware *models.HardwareDetectionResult) error {
	rs.log(models.LogInfo, models.StepCheckingDocker, "Checking Docker...")
	if hardware != nil && hardware.Details.DockerPresent {
		rs.log(models.LogSuccess, models.StepCheckingDocker, "Docker %s present", hardware.Details.DockerVersion)
		return nil
	}
	if out, err := runner.Run(ctx, "docker version --format '{{.Server.Version}}' 2>/dev/null"); err == nil && strings.TrimSpace(out) != "" {
		rs.log(models.LogSuccess, models.StepCheckingDocker, "Docker %s present", strings.TrimSpace(out))
		return nil
	}

	rs.log(models.LogWarning, models.StepCheckingDocker, "Docker missing, installing...")
	if out, err := runner.Run(ctx, "curl -fsSL https://get.docker.com | sh"); err != nil {
		return fmt.Errorf("install script failed: %v (%s)", err, strings.TrimSpace(out))
	}
	if _, err := runner.Run(ctx, "docker version --format '{{.Server.Version}}'"); err != nil {
		return fmt.Errorf("docker still unusable after install: %v", err)
	}
	rs.log(models.LogSuccess, models.StepCheckingDocker, "Docker installed")
	return nil
}

func (rs *RemoteSetup) verify(ctx context.Context, runner sshx.CommandRunner, port int) error {
	deadline := time.Now().Add(rs.verifyWait)
	for time.Now().Before(deadline) {
		out, err := runner.Run(ctx, fmt.Sprintf("curl -s -o /dev/null -w '%%{http_code}' http://localhost:%d/health", port))
		if err == nil {
			code := strings.TrimSpace(out)
			if strings.HasPrefix(code, "2") {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return fmt.Errorf("service did not answer on port %d within %s", port, rs.verifyWait)
}

// persist records the deployment outcome so other components (mode switcher,
// health monitor) can find the remote ClaraCore after a restart. Persistence
// failures are logged but do not undo an otherwise successful deployment.
func (rs *RemoteSetup) persist(creds models.SSHCredentials, serviceURL string, hwType models.HardwareType, port int) {
	if err := config.SaveClaraCoreRemoteConfig(&models.ClaraCoreRemoteConfig{
		Host:         creds.Host,
		Port:         port,
		URL:          serviceURL,
		HardwareType: hwType,
		Deployed:     true,
	}); err != nil {
		logger.Warnf("Remote setup: save claracore remote config failed: %v", err)
	}

	serverCfg, err := config.LoadRemoteServerConfig()
	if err != nil {
		logger.Warnf("Remote setup: load remote server config failed: %v", err)
		return
	}
	serverCfg.Host = creds.Host
	if creds.Port != 0 {
		serverCfg.Port = creds.Port
	}
	serverCfg.Username = creds.Username
	serverCfg.Password = creds.Password
	serverCfg.IsConnected = true
	serverCfg.Services[models.ServiceClaraCore] = models.RemoteServiceEntry{URL: serviceURL}
	if err := config.SaveRemoteServerConfig(serverCfg); err != nil {
		logger.Warnf("Remote setup: save remote server config failed: %v", err)
	}
}

func (rs *RemoteSetup) fail(step models.DeploymentStep, format string, args ...interface{}) {
	rs.log(models.LogError, step, format, args...)
	rs.transition(models.PhaseError)
	recordRemoteDeployment(false)
}

// imageRef names the deployment artifact for a hardware type. The naming
// convention must match the existing image repository exactly.
func imageRef(hw models.HardwareType) string {
	return fmt.Sprintf("%s/claracore:%s", config.Config.Registry.Namespace, hw)
}

// gpuRunFlags returns the extra docker run flags a hardware type needs.
func gpuRunFlags(hw models.HardwareType) string {
	switch hw {
	case models.HardwareCUDA:
		return "--gpus all "
	case models.HardwareROCm, models.HardwareStrix:
		return "--device=/dev/kfd --device=/dev/dri "
	}
	return ""
}
