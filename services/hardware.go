package services

import (
	"context"
	"fmt"
	"strings"

	"clara-keeper/internal/logger"
	"clara-keeper/internal/models"
	"clara-keeper/internal/sshx"

	"github.com/tidwall/gjson"
)

/**
 * Probe a target machine for deployable hardware
 * @param {context.Context} ctx - Context bounding each probe command
 * @param {sshx.CommandRunner} runner - SSH client or local runner
 * @returns {models.HardwareDetectionResult} Classification with confidence
 * @description
 * Priority order, first match wins:
 * - Architecture gate: anything but x86_64/amd64 is "unsupported" and
 *   short-circuits every later probe
 * - Docker: recorded when present; absence is non-fatal, it gets installed
 *   during deployment, not during detection
 * - NVIDIA: driver found via nvidia-smi; "high" confidence when the CUDA
 *   toolkit is also present, "medium" on driver alone
 * - AMD ROCm: rocm-smi / rocminfo
 * - Strix Halo APU: CPU model string match
 * - CPU: by elimination, "low" confidence
 * A runner failure on the first command surfaces as Error with Detected
 * unset; callers must treat that distinctly from "unsupported".
 */
func DetectHardware(ctx context.Context, runner sshx.CommandRunner) models.HardwareDetectionResult {
	result := models.HardwareDetectionResult{}

	arch, err := runner.Run(ctx, "uname -m")
	if err != nil {
		result.Error = fmt.Sprintf("connection failed: %v", err)
		return result
	}
	arch = strings.TrimSpace(arch)
	result.Details.Architecture = arch

	if arch != "x86_64" && arch != "amd64" {
		result.Detected = models.HardwareUnsupported
		result.UnsupportedReason = fmt.Sprintf("architecture %s is not supported, only x86_64/amd64 hosts can run ClaraCore containers", arch)
		logger.Warnf("Hardware probe: unsupported architecture %s", arch)
		return result
	}

	probeDocker(ctx, runner, &result.Details)

	if probeNvidia(ctx, runner, &result) {
		return result
	}
	if probeROCm(ctx, runner, &result) {
		return result
	}
	if probeStrix(ctx, runner, &result) {
		return result
	}

	// Nothing matched; CPU by elimination.
	result.Detected = models.HardwareCPU
	result.Confidence = models.ConfidenceLow
	logger.Infof("Hardware probe: no accelerator found, falling back to CPU")
	return result
}

func probeDocker(ctx context.Context, runner sshx.CommandRunner, details *models.HardwareDetails) {
	out, err := runner.Run(ctx, "docker version --format '{{json .}}' 2>/dev/null")
	if err != nil {
		logger.Debugf("Hardware probe: docker not present: %v", err)
		return
	}
	version := gjson.Get(out, "Server.Version").String()
	if version == "" {
		version = gjson.Get(out, "Client.Version").String()
	}
	if version == "" {
		return
	}
	details.DockerPresent = true
	details.DockerVersion = version
}

func probeNvidia(ctx context.Context, runner sshx.CommandRunner, result *models.HardwareDetectionResult) bool {
	out, err := runner.Run(ctx, "nvidia-smi --query-gpu=name,driver_version --format=csv,noheader 2>/dev/null")
	if err != nil || strings.TrimSpace(out) == "" {
		return false
	}
	line := strings.SplitN(strings.TrimSpace(out), "\n", 2)[0]
	fields := strings.SplitN(line, ",", 2)
	result.Details.GPUName = strings.TrimSpace(fields[0])
	if len(fields) > 1 {
		result.Details.DriverVersion = strings.TrimSpace(fields[1])
	}

	result.Detected = models.HardwareCUDA
	result.Confidence = models.ConfidenceMedium

	// Toolkit presence upgrades the confidence.
	if cuda, err := runner.Run(ctx, "nvcc --version 2>/dev/null | grep release"); err == nil && strings.TrimSpace(cuda) != "" {
		result.Details.CUDAVersion = strings.TrimSpace(cuda)
		result.Confidence = models.ConfidenceHigh
	}
	logger.Infof("Hardware probe: NVIDIA GPU %q (confidence %s)", result.Details.GPUName, result.Confidence)
	return true
}

func probeROCm(ctx context.Context, runner sshx.CommandRunner, result *models.HardwareDetectionResult) bool {
	out, err := runner.Run(ctx, "rocm-smi --showproductname 2>/dev/null || rocminfo 2>/dev/null | grep -m1 'Marketing Name'")
	if err != nil || strings.TrimSpace(out) == "" {
		return false
	}
	result.Details.GPUName = strings.TrimSpace(strings.SplitN(strings.TrimSpace(out), "\n", 2)[0])
	if ver, err := runner.Run(ctx, "cat /opt/rocm/.info/version 2>/dev/null"); err == nil {
		result.Details.ROCmVersion = strings.TrimSpace(ver)
	}
	result.Detected = models.HardwareROCm
	result.Confidence = models.ConfidenceHigh
	logger.Infof("Hardware probe: AMD ROCm GPU %q", result.Details.GPUName)
	return true
}

func probeStrix(ctx context.Context, runner sshx.CommandRunner, result *models.HardwareDetectionResult) bool {
	out, err := runner.Run(ctx, "grep -m1 'model name' /proc/cpuinfo")
	if err != nil {
		return false
	}
	model := strings.TrimSpace(out)
	if idx := strings.Index(model, ":"); idx >= 0 {
		model = strings.TrimSpace(model[idx+1:])
	}
	result.Details.CPUModel = model
	if !strings.Contains(strings.ToLower(model), "strix") &&
		!strings.Contains(model, "Ryzen AI Max") {
		return false
	}
	result.Detected = models.HardwareStrix
	result.Confidence = models.ConfidenceMedium
	logger.Infof("Hardware probe: Strix Halo APU %q", model)
	return true
}
