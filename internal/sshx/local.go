package sshx

import (
	"context"
	"os/exec"
	"runtime"
)

// LocalRunner executes commands on the local machine through the system
// shell, so the hardware prober can inspect "local" the same way it inspects
// an SSH target.
type LocalRunner struct{}

func NewLocalRunner() *LocalRunner {
	return &LocalRunner{}
}

func (r *LocalRunner) Run(ctx context.Context, command string) (string, error) {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	}
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func (r *LocalRunner) Close() error {
	return nil
}
