package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSupportedModesPlatformGates(t *testing.T) {
	comfy := &ServiceDescriptor{ID: ServiceComfyUI}
	// ComfyUI docker images ship for Windows only.
	assert.True(t, comfy.Supports(ModeDocker, "windows"))
	assert.False(t, comfy.Supports(ModeDocker, "linux"))
	assert.False(t, comfy.Supports(ModeDocker, "darwin"))
	assert.True(t, comfy.Supports(ModeRemote, "linux"))

	core := &ServiceDescriptor{ID: ServiceClaraCore}
	// Docker-mode ClaraCore is unsupported on macOS.
	assert.False(t, core.Supports(ModeDocker, "darwin"))
	assert.True(t, core.Supports(ModeDocker, "linux"))
	assert.True(t, core.Supports(ModeLocal, "darwin"))

	n8n := &ServiceDescriptor{ID: ServiceN8N}
	for _, mode := range []DeployMode{ModeLocal, ModeDocker, ModeManual, ModeRemote} {
		assert.True(t, n8n.Supports(mode, "linux"))
	}
}

func TestSSHCredentialsAddrDefaultsPort(t *testing.T) {
	creds := SSHCredentials{Host: "10.0.0.9"}
	assert.Equal(t, "10.0.0.9:22", creds.Addr())

	creds.Port = 2222
	assert.Equal(t, "10.0.0.9:2222", creds.Addr())
}

func TestHardwareDetectionResultDeployable(t *testing.T) {
	assert.True(t, (&HardwareDetectionResult{Detected: HardwareCPU}).Deployable())
	assert.False(t, (&HardwareDetectionResult{Detected: HardwareUnsupported}).Deployable())
	assert.False(t, (&HardwareDetectionResult{}).Deployable())
	assert.False(t, (&HardwareDetectionResult{Detected: HardwareCUDA, Error: "boom"}).Deployable())
}
