package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clara-keeper/internal/config"
	"clara-keeper/internal/env"
	"clara-keeper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type switcherHarness struct {
	store    *config.ServiceStore
	docker   *fakeDocker
	proc     *fakeProc
	switcher *ModeSwitcher
	prompted *bool
}

func newSwitcherHarness(t *testing.T, confirm bool) *switcherHarness {
	t.Helper()
	env.ClaraDir = t.TempDir()

	store := newTestStore(t)
	docker := newFakeDocker()
	proc := newFakeProc()
	reg := NewRegistry()
	monitor := NewHealthMonitor(store, reg, docker, proc)
	sm := NewServiceManager(reg, store, docker, proc, monitor)

	prompted := false
	prompt := ConfirmFunc(func(message string) bool {
		prompted = true
		return confirm
	})
	switcher := NewModeSwitcher(store, sm, monitor, prompt, NewProviderRegistry())
	switcher.settleDelay = 0
	switcher.repollDelay = time.Millisecond

	return &switcherHarness{
		store:    store,
		docker:   docker,
		proc:     proc,
		switcher: switcher,
		prompted: &prompted,
	}
}

func TestSwitchModeDeclinedAborts(t *testing.T) {
	h := newSwitcherHarness(t, false)

	// claracore defaults to local; a real mode change triggers the prompt.
	err := h.switcher.SwitchMode(context.Background(), models.ServiceClaraCore, models.ModeDocker, "")

	require.ErrorIs(t, err, ErrSwitchDeclined)
	assert.True(t, *h.prompted)
	// Nothing was stopped or persisted.
	assert.False(t, h.proc.called("stop", models.ServiceClaraCore))
	assert.Equal(t, models.ModeLocal, h.store.GetConfig(models.ServiceClaraCore).Mode)
}

func TestSwitchModeClaraCoreStopPersistStart(t *testing.T) {
	h := newSwitcherHarness(t, true)
	h.docker.states["clara_core"] = "exited"

	err := h.switcher.SwitchMode(context.Background(), models.ServiceClaraCore, models.ModeDocker, "")

	require.NoError(t, err)
	// Old local deployment stopped, new docker deployment started.
	assert.True(t, h.proc.called("stop", models.ServiceClaraCore))
	assert.True(t, h.docker.called("start", "clara_core"))
	assert.Equal(t, models.ModeDocker, h.store.GetConfig(models.ServiceClaraCore).Mode)
}

func TestSwitchModeOtherServicesPersistOnly(t *testing.T) {
	h := newSwitcherHarness(t, true)

	err := h.switcher.SwitchMode(context.Background(), models.ServiceN8N, models.ModeManual, "http://10.0.0.5:5678")

	require.NoError(t, err)
	// N8N is not the always-on service: the switch persists configuration
	// but never restarts anything, and no confirmation is asked.
	assert.False(t, *h.prompted)
	assert.False(t, h.docker.called("stop", "clara_n8n"))
	assert.False(t, h.docker.called("start", "clara_n8n"))

	cfg := h.store.GetConfig(models.ServiceN8N)
	assert.Equal(t, models.ModeManual, cfg.Mode)
	assert.Equal(t, "http://10.0.0.5:5678", cfg.URL)
}

func TestSwitchModeNoOpWhenUnchanged(t *testing.T) {
	h := newSwitcherHarness(t, true)
	require.NoError(t, h.store.SetConfig(models.ServiceComfyUI, models.ModeDocker, ""))

	err := h.switcher.SwitchMode(context.Background(), models.ServiceComfyUI, models.ModeDocker, "")

	require.NoError(t, err)
	assert.False(t, h.docker.called("stop", "clara_comfyui"))
}

func TestSwitchModeURLOnlyChangeSkipsRestart(t *testing.T) {
	h := newSwitcherHarness(t, true)
	require.NoError(t, h.store.SetConfig(models.ServiceClaraCore, models.ModeRemote, "http://old:5890"))

	err := h.switcher.SwitchMode(context.Background(), models.ServiceClaraCore, models.ModeRemote, "http://new:5890")

	require.NoError(t, err)
	// Same mode, new URL: no confirmation, no stop/start, config updated.
	assert.False(t, *h.prompted)
	assert.False(t, h.proc.called("stop", models.ServiceClaraCore))
	assert.Equal(t, "http://new:5890", h.store.GetConfig(models.ServiceClaraCore).URL)
}

func TestSwitchModePropagatesClaraCoreProviderURL(t *testing.T) {
	h := newSwitcherHarness(t, true)
	registryPath := filepath.Join(env.ClaraDir, "providers.json")
	seed := `[{"id":"p1","type":"claracore","baseUrl":"http://localhost:8091/v1"},{"id":"p2","type":"openai","baseUrl":"https://api.openai.com/v1"}]`
	require.NoError(t, os.WriteFile(registryPath, []byte(seed), 0644))

	err := h.switcher.SwitchMode(context.Background(), models.ServiceClaraCore, models.ModeRemote, "http://192.168.1.100:5890")

	require.NoError(t, err)
	raw, err := os.ReadFile(registryPath)
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.100:5890/v1", gjson.GetBytes(raw, "0.baseUrl").String())
	// Foreign providers stay untouched.
	assert.Equal(t, "https://api.openai.com/v1", gjson.GetBytes(raw, "1.baseUrl").String())
}
