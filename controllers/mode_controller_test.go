package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"clara-keeper/internal/config"
	"clara-keeper/internal/env"
	"clara-keeper/internal/models"
	"clara-keeper/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeeper(t *testing.T) *services.Keeper {
	t.Helper()
	env.ClaraDir = t.TempDir()
	store, err := config.NewServiceStore(filepath.Join(env.ClaraDir, "cache", "services"))
	require.NoError(t, err)

	reg := services.NewRegistry()
	proc := services.GetProcessManager()
	monitor := services.NewHealthMonitor(store, reg, nil, proc)
	manager := services.NewServiceManager(reg, store, nil, proc, monitor)
	switcher := services.NewModeSwitcher(store, manager, monitor,
		services.ConfirmFunc(func(string) bool { return true }), services.NewProviderRegistry())

	return &services.Keeper{
		Store:    store,
		Registry: reg,
		Manager:  manager,
		Monitor:  monitor,
		Switcher: switcher,
		Remote:   services.NewRemoteSetup(reg, nil),
	}
}

func newModeRouter(t *testing.T) (*gin.Engine, *services.Keeper) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	keeper := newTestKeeper(t)
	NewModeController(keeper).RegisterRoutes(router)
	return router, keeper
}

func TestSwitchModeRemoteNotDeployedRefused(t *testing.T) {
	router, keeper := newModeRouter(t)

	// No remote deployment exists in this fresh home directory.
	req := httptest.NewRequest(http.MethodPost, "/clara/api/v1/services/claracore/mode",
		strings.NewReader(`{"mode":"remote","confirmed":true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "mode.remote_not_deployed", resp.Code)

	// The refusal must leave the stored mode untouched.
	cfg := keeper.Store.GetConfig(models.ServiceClaraCore)
	assert.Equal(t, models.ModeLocal, cfg.Mode)
}

func TestSwitchModeRemoteUsesDeployedURL(t *testing.T) {
	router, keeper := newModeRouter(t)

	require.NoError(t, config.SaveClaraCoreRemoteConfig(&models.ClaraCoreRemoteConfig{
		Host:     "192.168.1.50",
		Port:     5890,
		URL:      "http://192.168.1.50:5890",
		Deployed: true,
	}))

	req := httptest.NewRequest(http.MethodPost, "/clara/api/v1/services/claracore/mode",
		strings.NewReader(`{"mode":"remote","confirmed":true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	cfg := keeper.Store.GetConfig(models.ServiceClaraCore)
	assert.Equal(t, models.ModeRemote, cfg.Mode)
	assert.Equal(t, "http://192.168.1.50:5890", cfg.URL)
}

func TestSwitchModeClaraCoreRequiresConfirmation(t *testing.T) {
	router, keeper := newModeRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/clara/api/v1/services/claracore/mode",
		strings.NewReader(`{"mode":"manual","url":"http://10.0.0.2:8091"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "mode.confirmation_required", resp.Code)
	assert.Equal(t, models.ModeLocal, keeper.Store.GetConfig(models.ServiceClaraCore).Mode)
}
