package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"clara-keeper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreDefaultsPerService(t *testing.T) {
	store, err := NewServiceStore(t.TempDir())
	require.NoError(t, err)

	// ClaraCore ships as a local binary; everything else defaults to docker.
	assert.Equal(t, models.ModeLocal, store.GetConfig(models.ServiceClaraCore).Mode)
	assert.Equal(t, models.ModeDocker, store.GetConfig(models.ServicePythonBackend).Mode)
	assert.Equal(t, models.ModeDocker, store.GetConfig(models.ServiceN8N).Mode)
	assert.Equal(t, models.ModeDocker, store.GetConfig(models.ServiceComfyUI).Mode)

	// Defaults never invent an endpoint.
	assert.Empty(t, store.GetConfig(models.ServiceClaraCore).URL)
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewServiceStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.SetConfig(models.ServiceN8N, models.ModeManual, "http://10.0.0.5:5678"))

	// The write is visible to a fresh store instance, not just the cache.
	fresh, err := NewServiceStore(dir)
	require.NoError(t, err)
	cfg := fresh.GetConfig(models.ServiceN8N)
	assert.Equal(t, models.ModeManual, cfg.Mode)
	assert.Equal(t, "http://10.0.0.5:5678", cfg.URL)
}

func TestStoreNormalizesLegacyCurrentMode(t *testing.T) {
	dir := t.TempDir()
	legacy := `{"currentMode":"manual","url":"http://192.168.1.7:8188"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, models.ServiceComfyUI+".json"), []byte(legacy), 0644))

	store, err := NewServiceStore(dir)
	require.NoError(t, err)

	cfg := store.GetConfig(models.ServiceComfyUI)
	assert.Equal(t, models.ModeManual, cfg.Mode)
	assert.Equal(t, "http://192.168.1.7:8188", cfg.URL)
}

func TestStoreCorruptRecordFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, models.ServiceN8N+".json"), []byte("{not json"), 0644))

	store, err := NewServiceStore(dir)
	require.NoError(t, err)

	assert.Equal(t, models.ModeDocker, store.GetConfig(models.ServiceN8N).Mode)
}

func TestStoreReloadDropsCachedRecord(t *testing.T) {
	dir := t.TempDir()
	store, err := NewServiceStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SetConfig(models.ServiceClaraCore, models.ModeLocal, ""))

	// Another process rewrites the record behind our back.
	edited := `{"mode":"remote","url":"http://192.168.1.100:5890"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, models.ServiceClaraCore+".json"), []byte(edited), 0644))

	// Cached value still served until a reload.
	assert.Equal(t, models.ModeLocal, store.GetConfig(models.ServiceClaraCore).Mode)

	store.Reload(models.ServiceClaraCore)
	cfg := store.GetConfig(models.ServiceClaraCore)
	assert.Equal(t, models.ModeRemote, cfg.Mode)
	assert.Equal(t, "http://192.168.1.100:5890", cfg.URL)
}

func TestStoreWatchReloadsExternalEdits(t *testing.T) {
	dir := t.TempDir()
	store, err := NewServiceStore(dir)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.SetConfig(models.ServiceN8N, models.ModeDocker, ""))

	changed := make(chan string, 4)
	require.NoError(t, store.Watch(func(serviceID string) {
		changed <- serviceID
	}))

	edited := `{"mode":"manual","url":"http://10.1.1.1:5678"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, models.ServiceN8N+".json"), []byte(edited), 0644))

	select {
	case id := <-changed:
		assert.Equal(t, models.ServiceN8N, id)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never fired for the external edit")
	}

	assert.Eventually(t, func() bool {
		return store.GetConfig(models.ServiceN8N).Mode == models.ModeManual
	}, 2*time.Second, 10*time.Millisecond)
}
