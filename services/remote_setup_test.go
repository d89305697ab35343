package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"clara-keeper/internal/config"
	"clara-keeper/internal/env"
	"clara-keeper/internal/models"
	"clara-keeper/internal/sshx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCreds() models.SSHCredentials {
	return models.SSHCredentials{Host: "192.168.1.100", Username: "ubuntu", Password: "secret"}
}

func dialTo(runner sshx.CommandRunner, err error) DialFunc {
	return func(ctx context.Context, creds models.SSHCredentials) (sshx.CommandRunner, error) {
		return runner, err
	}
}

// cudaHostRunner answers like an x86_64 host with docker and an NVIDIA GPU.
func cudaHostRunner() *fakeRunner {
	return (&fakeRunner{}).
		on("uname -m", "x86_64\n").
		on("docker version", `{"Server":{"Version":"27.1.1"}}`).
		on("nvidia-smi", "NVIDIA GeForce RTX 4090, 550.54.15\n").
		on("nvcc", "release 12.4\n").
		on("docker pull", "").
		on("docker rm -f", "").
		on("docker run", "8c7a1b\n").
		on("curl -s -o /dev/null", "200")
}

func TestDeployRejectedBeforeTest(t *testing.T) {
	rs := NewRemoteSetup(nil, dialTo(&fakeRunner{}, nil))

	_, err := rs.Deploy(context.Background(), testCreds(), "")

	require.Error(t, err)
	assert.Equal(t, models.PhaseIdle, rs.Phase())
}

func TestTestSetupSuccess(t *testing.T) {
	runner := cudaHostRunner()
	rs := NewRemoteSetup(nil, dialTo(runner, nil))

	result, err := rs.TestSetup(context.Background(), testCreds())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.HardwareCUDA, result.Hardware.Detected)
	assert.Equal(t, models.PhaseTestSuccess, rs.Phase())
	assert.True(t, runner.closed)

	state := rs.State()
	assert.NotEmpty(t, state.SessionID)
	assert.NotEmpty(t, state.Logs)
}

func TestTestSetupConnectionFailure(t *testing.T) {
	rs := NewRemoteSetup(nil, dialTo(nil, fmt.Errorf("dial tcp: i/o timeout")))

	result, err := rs.TestSetup(context.Background(), testCreds())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.PhaseTestFailed, rs.Phase())
}

func TestTestSetupARMHostConnectsButNotDeployable(t *testing.T) {
	runner := (&fakeRunner{}).on("uname -m", "aarch64\n")
	rs := NewRemoteSetup(nil, dialTo(runner, nil))

	result, err := rs.TestSetup(context.Background(), testCreds())

	require.NoError(t, err)
	// The SSH connection itself worked, so Success stays true, but the
	// session must land in test-failed: deploy stays unreachable.
	assert.True(t, result.Success)
	assert.Equal(t, models.HardwareUnsupported, result.Hardware.Detected)
	assert.Equal(t, models.PhaseTestFailed, rs.Phase())

	_, err = rs.Deploy(context.Background(), testCreds(), "")
	require.Error(t, err)
}

func TestDeploySuccess(t *testing.T) {
	env.ClaraDir = t.TempDir()
	runner := cudaHostRunner()
	rs := NewRemoteSetup(nil, dialTo(runner, nil))
	rs.verifyWait = 3 * time.Second

	_, err := rs.TestSetup(context.Background(), testCreds())
	require.NoError(t, err)

	result, err := rs.Deploy(context.Background(), testCreds(), "")

	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, models.PhaseDeployed, rs.Phase())
	assert.Equal(t, "http://192.168.1.100:5890", result.ServiceURL)
	assert.Equal(t, models.HardwareCUDA, result.HardwareType)

	// Re-deploying must replace, never duplicate: the old container is
	// removed before docker run.
	assert.True(t, runner.ran("docker rm -f claracore"))
	assert.Less(t,
		commandIndex(runner, "docker rm -f"),
		commandIndex(runner, "docker run"))
	assert.True(t, runner.ran(config.Config.Registry.Namespace+"/claracore:cuda"))

	core, err := config.LoadClaraCoreRemoteConfig()
	require.NoError(t, err)
	assert.True(t, core.Deployed)
	assert.Equal(t, "http://192.168.1.100:5890", core.URL)
	assert.Equal(t, models.HardwareCUDA, core.HardwareType)

	server, err := config.LoadRemoteServerConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.100:5890", server.Services[models.ServiceClaraCore].URL)
}

func TestDeployInstallsDockerBeforePull(t *testing.T) {
	env.ClaraDir = t.TempDir()
	runner := (&fakeRunner{}).
		on("uname -m", "x86_64\n").
		onErr("nvidia-smi", fmt.Errorf("not found")).
		onErr("rocm-smi", fmt.Errorf("not found")).
		on("/proc/cpuinfo", "model name\t: Intel Core i9\n").
		on("get.docker.com", "").
		on("docker version", "").
		on("docker pull", "").
		on("docker rm -f", "").
		on("docker run", "8c7a1b\n").
		on("curl -s -o /dev/null", "200")
	rs := NewRemoteSetup(nil, dialTo(runner, nil))
	rs.verifyWait = 3 * time.Second

	_, err := rs.TestSetup(context.Background(), testCreds())
	require.NoError(t, err)

	result, err := rs.Deploy(context.Background(), testCreds(), "")

	require.NoError(t, err)
	require.True(t, result.Success, "deploy logs: %v", rs.State().Logs)
	assert.True(t, runner.ran("get.docker.com"))
	assert.Less(t,
		commandIndex(runner, "get.docker.com"),
		commandIndex(runner, "docker pull"))
}

func TestDeployVerifyFailureEntersErrorState(t *testing.T) {
	runner := cudaHostRunner()
	runner.rules = append([]runnerRule{{match: "curl -s -o /dev/null", out: "000"}}, runner.rules...)
	rs := NewRemoteSetup(nil, dialTo(runner, nil))
	rs.verifyWait = 10 * time.Millisecond

	_, err := rs.TestSetup(context.Background(), testCreds())
	require.NoError(t, err)

	result, err := rs.Deploy(context.Background(), testCreds(), "")

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.PhaseError, rs.Phase())

	// The error state halts everything until a fresh test run.
	_, err = rs.Deploy(context.Background(), testCreds(), "")
	require.Error(t, err)
	_, err = rs.TestSetup(context.Background(), testCreds())
	require.NoError(t, err)
}

func TestDeployPortsFollowRegistry(t *testing.T) {
	env.ClaraDir = t.TempDir()
	reg := NewRegistry()
	core := reg.Get(models.ServiceClaraCore)
	core.RemotePort = 6001
	core.LocalPort = 9001

	runner := cudaHostRunner()
	rs := NewRemoteSetup(reg, dialTo(runner, nil))
	rs.verifyWait = 3 * time.Second

	_, err := rs.TestSetup(context.Background(), testCreds())
	require.NoError(t, err)

	result, err := rs.Deploy(context.Background(), testCreds(), "")

	require.NoError(t, err)
	require.True(t, result.Success)
	// The run mapping and the published URL both come from the descriptor,
	// not from their own constants.
	assert.True(t, runner.ran("-p 6001:9001"))
	assert.Equal(t, "http://192.168.1.100:6001", result.ServiceURL)
}

func TestDeployHardwareOverride(t *testing.T) {
	env.ClaraDir = t.TempDir()
	runner := cudaHostRunner()
	rs := NewRemoteSetup(nil, dialTo(runner, nil))
	rs.verifyWait = 3 * time.Second

	_, err := rs.TestSetup(context.Background(), testCreds())
	require.NoError(t, err)

	result, err := rs.Deploy(context.Background(), testCreds(), models.HardwareCPU)

	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, models.HardwareCPU, result.HardwareType)
	assert.True(t, runner.ran("/claracore:cpu"))
}

func commandIndex(runner *fakeRunner, match string) int {
	runner.mu.Lock()
	defer runner.mu.Unlock()
	for i, c := range runner.commands {
		if strings.Contains(c, match) {
			return i
		}
	}
	return -1
}
