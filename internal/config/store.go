package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"clara-keeper/internal/logger"
	"clara-keeper/internal/models"

	"github.com/fsnotify/fsnotify"
)

/**
 * Service configuration store
 * @description
 * - One JSON file per service under <dir> (default ~/.clara/cache/services)
 * - Records hold the active deployment mode and the resolved URL
 * - Reads normalize the legacy "currentMode" field to "mode"
 * - Writes complete before the call returns; no optimistic-only state
 * - A directory watcher reloads records edited by other processes
 */
type ServiceStore struct {
	dir     string
	mu      sync.RWMutex
	records map[string]models.ServiceConfig
	watcher *fsnotify.Watcher
}

// storedRecord accepts both the current and the legacy on-disk shape.
type storedRecord struct {
	Mode        models.DeployMode `json:"mode,omitempty"`
	CurrentMode models.DeployMode `json:"currentMode,omitempty"`
	URL         string            `json:"url,omitempty"`
}

// DefaultMode is the mode a service starts with before anyone configures it.
func DefaultMode(serviceID string) models.DeployMode {
	if serviceID == models.ServiceClaraCore {
		return models.ModeLocal
	}
	return models.ModeDocker
}

func NewServiceStore(dir string) (*ServiceStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create service store directory: %w", err)
	}
	return &ServiceStore{
		dir:     dir,
		records: make(map[string]models.ServiceConfig),
	}, nil
}

/**
 * Get configuration for a service
 * @param {string} serviceID - Service identifier
 * @returns {models.ServiceConfig} Current config; a default record is seeded
 * on first load (local for claracore, docker otherwise)
 */
func (s *ServiceStore) GetConfig(serviceID string) models.ServiceConfig {
	s.mu.RLock()
	if cfg, ok := s.records[serviceID]; ok {
		s.mu.RUnlock()
		return cfg
	}
	s.mu.RUnlock()

	cfg, err := s.load(serviceID)
	if err != nil {
		cfg = models.ServiceConfig{Mode: DefaultMode(serviceID)}
	}

	s.mu.Lock()
	s.records[serviceID] = cfg
	s.mu.Unlock()
	return cfg
}

/**
 * Persist configuration for a service
 * @param {string} serviceID - Service identifier
 * @param {models.DeployMode} mode - New deployment mode
 * @param {string} url - Resolved endpoint, may be empty (e.g. manual mode
 * before the user enters a URL)
 * @returns {error} Write error; on failure callers must reload from the
 * store rather than trust their local mutation
 */
func (s *ServiceStore) SetConfig(serviceID string, mode models.DeployMode, url string) error {
	cfg := models.ServiceConfig{Mode: mode, URL: url}

	jsonData, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal service config [%s]: %w", serviceID, err)
	}
	if err := os.WriteFile(s.path(serviceID), jsonData, 0644); err != nil {
		return fmt.Errorf("write service config [%s]: %w", serviceID, err)
	}

	s.mu.Lock()
	s.records[serviceID] = cfg
	s.mu.Unlock()

	logger.Infof("Service [%s] config saved: mode=%s url=%s", serviceID, mode, url)
	return nil
}

// Reload drops the in-memory record so the next read hits disk.
func (s *ServiceStore) Reload(serviceID string) {
	s.mu.Lock()
	delete(s.records, serviceID)
	s.mu.Unlock()
}

func (s *ServiceStore) path(serviceID string) string {
	return filepath.Join(s.dir, serviceID+".json")
}

func (s *ServiceStore) load(serviceID string) (models.ServiceConfig, error) {
	jsonData, err := os.ReadFile(s.path(serviceID))
	if err != nil {
		return models.ServiceConfig{}, err
	}

	var raw storedRecord
	if err := json.Unmarshal(jsonData, &raw); err != nil {
		logger.Errorf("Service [%s] config unreadable, using defaults: %v", serviceID, err)
		return models.ServiceConfig{}, err
	}

	// 兼容历史记录：旧版记录用currentMode字段
	mode := raw.Mode
	if mode == "" {
		mode = raw.CurrentMode
	}
	if mode == "" {
		mode = DefaultMode(serviceID)
	}
	return models.ServiceConfig{Mode: mode, URL: raw.URL}, nil
}

/**
 * Watch the store directory for external edits
 * @param {func} onChange - Called with the service ID after a record is
 * reloaded; the Electron UI writes the same files
 * @returns {error} Watcher setup error
 */
func (s *ServiceStore) Watch(onChange func(serviceID string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create store watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}
	s.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				name := filepath.Base(event.Name)
				if !strings.HasSuffix(name, ".json") {
					continue
				}
				serviceID := strings.TrimSuffix(name, ".json")
				s.Reload(serviceID)
				logger.Debugf("Service [%s] config reloaded after external edit", serviceID)
				if onChange != nil {
					onChange(serviceID)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnf("Store watcher error: %v", err)
			}
		}
	}()
	return nil
}

// Close stops the directory watcher if one was started.
func (s *ServiceStore) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
