package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"clara-keeper/internal/env"
	"clara-keeper/internal/models"
)

const (
	remoteServerFile    = "remote-server.json"
	claraCoreRemoteFile = "claracore-remote.json"
)

/**
 * Load the persisted remote server configuration
 * @returns {(*models.RemoteServerConfig, error)} Record from
 * ~/.clara/remote-server.json; a zero record (not an error) when the file
 * does not exist yet
 */
func LoadRemoteServerConfig() (*models.RemoteServerConfig, error) {
	cfg := &models.RemoteServerConfig{
		Port:     22,
		Services: make(map[string]models.RemoteServiceEntry),
	}
	jsonData, err := os.ReadFile(filepath.Join(env.ClaraDir, remoteServerFile))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read remote server config: %w", err)
	}
	if err := json.Unmarshal(jsonData, cfg); err != nil {
		return nil, fmt.Errorf("parse remote server config: %w", err)
	}
	if cfg.Services == nil {
		cfg.Services = make(map[string]models.RemoteServiceEntry)
	}
	return cfg, nil
}

func SaveRemoteServerConfig(cfg *models.RemoteServerConfig) error {
	return writeRecord(remoteServerFile, cfg)
}

/**
 * Load the persisted ClaraCore remote deployment record
 * @returns {(*models.ClaraCoreRemoteConfig, error)} Record from
 * ~/.clara/claracore-remote.json; zero record when absent
 */
func LoadClaraCoreRemoteConfig() (*models.ClaraCoreRemoteConfig, error) {
	cfg := &models.ClaraCoreRemoteConfig{}
	jsonData, err := os.ReadFile(filepath.Join(env.ClaraDir, claraCoreRemoteFile))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read claracore remote config: %w", err)
	}
	if err := json.Unmarshal(jsonData, cfg); err != nil {
		return nil, fmt.Errorf("parse claracore remote config: %w", err)
	}
	return cfg, nil
}

func SaveClaraCoreRemoteConfig(cfg *models.ClaraCoreRemoteConfig) error {
	return writeRecord(claraCoreRemoteFile, cfg)
}

func writeRecord(name string, v interface{}) error {
	if err := os.MkdirAll(env.ClaraDir, 0755); err != nil {
		return fmt.Errorf("create clara directory: %w", err)
	}
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(env.ClaraDir, name), jsonData, 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
