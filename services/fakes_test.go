package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"clara-keeper/internal/config"
	"clara-keeper/internal/models"
)

// fakeRunner answers canned output per command substring, in declaration
// order (first match wins), and records every command it saw.
type fakeRunner struct {
	mu       sync.Mutex
	rules    []runnerRule
	commands []string
	closed   bool
}

type runnerRule struct {
	match string
	out   string
	err   error
}

func (f *fakeRunner) on(match, out string) *fakeRunner {
	f.rules = append(f.rules, runnerRule{match: match, out: out})
	return f
}

func (f *fakeRunner) onErr(match string, err error) *fakeRunner {
	f.rules = append(f.rules, runnerRule{match: match, err: err})
	return f
}

func (f *fakeRunner) Run(ctx context.Context, command string) (string, error) {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	f.mu.Unlock()
	for _, r := range f.rules {
		if strings.Contains(command, r.match) {
			return r.out, r.err
		}
	}
	return "", fmt.Errorf("command not found: %s", command)
}

func (f *fakeRunner) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeRunner) ran(match string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.commands {
		if strings.Contains(c, match) {
			return true
		}
	}
	return false
}

// fakeDocker tracks container states in memory.
type fakeDocker struct {
	mu     sync.Mutex
	states map[string]string
	calls  []string
	errs   map[string]error
}

func newFakeDocker() *fakeDocker {
	return &fakeDocker{states: make(map[string]string), errs: make(map[string]error)}
}

func (f *fakeDocker) record(op, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+":"+name)
	return f.errs[op]
}

func (f *fakeDocker) Ping(ctx context.Context) error { return nil }

func (f *fakeDocker) State(ctx context.Context, name string) (string, error) {
	if err := f.record("state", name); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[name], nil
}

func (f *fakeDocker) Start(ctx context.Context, name string) error {
	if err := f.record("start", name); err != nil {
		return err
	}
	f.mu.Lock()
	f.states[name] = "running"
	f.mu.Unlock()
	return nil
}

func (f *fakeDocker) Stop(ctx context.Context, name string) error {
	if err := f.record("stop", name); err != nil {
		return err
	}
	f.mu.Lock()
	f.states[name] = "exited"
	f.mu.Unlock()
	return nil
}

func (f *fakeDocker) Restart(ctx context.Context, name string) error {
	return f.record("restart", name)
}

func (f *fakeDocker) Pull(ctx context.Context, ref string) error {
	return f.record("pull", ref)
}

func (f *fakeDocker) Run(ctx context.Context, name, ref string, hostPort, containerPort int, labels map[string]string) error {
	if err := f.record("run", name); err != nil {
		return err
	}
	f.mu.Lock()
	f.states[name] = "running"
	f.mu.Unlock()
	return nil
}

func (f *fakeDocker) Remove(ctx context.Context, name string) error {
	return f.record("remove", name)
}

func (f *fakeDocker) called(op, name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == op+":"+name {
			return true
		}
	}
	return false
}

// fakeProc tracks local-binary state in memory.
type fakeProc struct {
	mu      sync.Mutex
	running map[string]bool
	calls   []string
	errs    map[string]error
}

func newFakeProc() *fakeProc {
	return &fakeProc{running: make(map[string]bool), errs: make(map[string]error)}
}

func (f *fakeProc) Start(ctx context.Context, desc *models.ServiceDescriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "start:"+desc.ID)
	if err := f.errs["start"]; err != nil {
		return err
	}
	f.running[desc.ID] = true
	return nil
}

func (f *fakeProc) Stop(serviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "stop:"+serviceID)
	if err := f.errs["stop"]; err != nil {
		return err
	}
	f.running[serviceID] = false
	return nil
}

func (f *fakeProc) Status(serviceID string) (bool, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running[serviceID] {
		return true, 1234
	}
	return false, 0
}

func (f *fakeProc) called(op, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == op+":"+id {
			return true
		}
	}
	return false
}

// newTestStore builds a store rooted in a per-test temp directory.
func newTestStore(t *testing.T) *config.ServiceStore {
	t.Helper()
	store, err := config.NewServiceStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}
