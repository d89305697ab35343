package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"clara-keeper/internal/env"
	"clara-keeper/internal/logger"
	"clara-keeper/internal/models"
	"clara-keeper/internal/utils"
)

// ProcessControl is the local-binary capability consumed by the dispatcher
// and the health monitor.
type ProcessControl interface {
	Start(ctx context.Context, desc *models.ServiceDescriptor) error
	Stop(serviceID string) error
	Status(serviceID string) (bool, int)
}

/**
 * ProcessInstance 进程实例信息
 * @property {string} title - Display title
 * @property {string} processName - Name shown in the process list; name+pid identifies a process
 * @property {string} command - Executable path
 * @property {[]string} args - Command arguments
 * @property {int} pid - Process ID, 0 when not running
 */
type ProcessInstance struct {
	Title       string      `json:"title"`
	ProcessName string      `json:"processName"`
	Command     string      `json:"command"`
	Args        []string    `json:"args"`
	Pid         int         `json:"pid"`
	StartTime   string      `json:"startTime"`
	process     *os.Process `json:"-"`
	mutex       sync.Mutex  `json:"-"`
}

// ProcessManager owns the local binary deployments (claracore and the
// python backend run as plain processes in local mode).
type ProcessManager struct {
	mu        sync.Mutex
	processes map[string]*ProcessInstance
	cacheDir  string
}

var processManager *ProcessManager

func GetProcessManager() *ProcessManager {
	if processManager != nil {
		return processManager
	}
	processManager = &ProcessManager{
		processes: make(map[string]*ProcessInstance),
		cacheDir:  filepath.Join(env.ClaraDir, "cache", "processes"),
	}
	return processManager
}

func binaryPath(desc *models.ServiceDescriptor) (string, string) {
	name := desc.BinaryName
	if name == "" {
		name = desc.ID
	}
	if runtime.GOOS == "windows" {
		name = name + ".exe"
	}
	return name, filepath.Join(env.ClaraDir, "bin", name)
}

/**
 * Start a service's local binary
 * @param {context.Context} ctx - Start context
 * @param {*models.ServiceDescriptor} desc - Service to start
 * @returns {error} Start failure
 * @description
 * - Launches <claraDir>/bin/<binary> with --port <localPort>
 * - Child runs in its own process group and survives keeper restarts
 * - PID is cached so a restarted keeper can reattach
 */
func (pm *ProcessManager) Start(ctx context.Context, desc *models.ServiceDescriptor) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pi, ok := pm.processes[desc.ID]; ok && pi.alive() {
		return nil
	}

	name, path := binaryPath(desc)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("binary for %s not installed at %s", desc.ID, path)
	}
	if !utils.CheckPortAvailable(desc.LocalPort) {
		return fmt.Errorf("port %d is already in use, another deployment of %s may still be running", desc.LocalPort, desc.ID)
	}

	command, args, err := utils.GetCommandLine("{{.Command}}", []string{"--port", "{{.Port}}"}, map[string]interface{}{
		"Command": path,
		"Port":    desc.LocalPort,
	})
	if err != nil {
		return fmt.Errorf("build command line for %s: %w", desc.ID, err)
	}

	pi := &ProcessInstance{
		Title:       "service " + desc.ID,
		ProcessName: name,
		Command:     command,
		Args:        args,
	}

	cmd := exec.CommandContext(ctx, pi.Command, pi.Args...)
	utils.SetNewPG(cmd)
	if err := cmd.Start(); err != nil {
		logger.Errorf("Failed to start process '%s': %v", pi.Title, err)
		return err
	}
	pi.process = cmd.Process
	pi.Pid = cmd.Process.Pid
	pi.StartTime = time.Now().Format(time.RFC3339)

	pm.processes[desc.ID] = pi
	pm.save(desc.ID, pi)
	logger.Infof("Process '%s' started (PID: %d)", pi.Title, pi.Pid)

	// Reap the child when it exits on its own.
	go func() {
		cmd.Wait()
	}()
	go func() {
		if utils.WaitPortConnectable(desc.LocalPort, 30*time.Second) {
			logger.Infof("Process '%s' answering on port %d", pi.Title, desc.LocalPort)
		} else {
			logger.Warnf("Process '%s' not answering on port %d after 30s", pi.Title, desc.LocalPort)
		}
	}()
	return nil
}

/**
 * Stop a service's local binary
 * @param {string} serviceID - Service identifier
 * @returns {error} Kill failure, nil when not running
 */
func (pm *ProcessManager) Stop(serviceID string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pi, ok := pm.processes[serviceID]
	if !ok {
		pi = pm.load(serviceID)
		if pi == nil {
			return nil
		}
	}
	if pi.Pid == 0 {
		return nil
	}
	proc, err := utils.FindProcess(pi.ProcessName, pi.Pid)
	if err != nil {
		// Already gone or PID reused by someone else.
		logger.Debugf("Process for %s (PID %d) not found: %v", serviceID, pi.Pid, err)
	} else if err := proc.Kill(); err != nil {
		logger.Errorf("Failed to kill process '%s' (PID: %d): %v", pi.Title, pi.Pid, err)
		return err
	}
	logger.Infof("Process '%s' (PID: %d) stopped", pi.Title, pi.Pid)
	pi.Pid = 0
	pi.process = nil
	pm.processes[serviceID] = pi
	pm.save(serviceID, pi)
	return nil
}

/**
 * Get the status of a service's local binary
 * @param {string} serviceID - Service identifier
 * @returns {(bool, int)} Running flag and PID; reattaches from the PID cache
 * after a keeper restart
 */
func (pm *ProcessManager) Status(serviceID string) (bool, int) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pi, ok := pm.processes[serviceID]
	if !ok {
		pi = pm.load(serviceID)
		if pi == nil {
			return false, 0
		}
		pm.processes[serviceID] = pi
	}
	if pi.Pid == 0 {
		return false, 0
	}
	if _, err := utils.FindProcess(pi.ProcessName, pi.Pid); err != nil {
		pi.Pid = 0
		pm.save(serviceID, pi)
		return false, 0
	}
	return true, pi.Pid
}

func (pi *ProcessInstance) alive() bool {
	if pi.Pid == 0 {
		return false
	}
	running, err := utils.IsProcessRunning(pi.Pid)
	return err == nil && running
}

func (pm *ProcessManager) save(serviceID string, pi *ProcessInstance) {
	if err := os.MkdirAll(pm.cacheDir, 0755); err != nil {
		logger.Errorf("Process [%s] save info failed, error: %v", serviceID, err)
		return
	}
	jsonData, err := json.MarshalIndent(pi, "", "  ")
	if err != nil {
		logger.Errorf("Process [%s] save info failed, error: %v", serviceID, err)
		return
	}
	cacheFile := filepath.Join(pm.cacheDir, serviceID+".json")
	if err := os.WriteFile(cacheFile, jsonData, 0644); err != nil {
		logger.Errorf("Process [%s] save info failed, error: %v", serviceID, err)
	}
}

func (pm *ProcessManager) load(serviceID string) *ProcessInstance {
	cacheFile := filepath.Join(pm.cacheDir, serviceID+".json")
	jsonData, err := os.ReadFile(cacheFile)
	if err != nil {
		return nil
	}
	var pi ProcessInstance
	if err := json.Unmarshal(jsonData, &pi); err != nil {
		logger.Warnf("Process cache for %s unreadable: %v", serviceID, err)
		return nil
	}
	return &pi
}
