package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clara-keeper/internal/env"
	"clara-keeper/internal/logger"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ProviderRegistry patches the persisted LLM provider registry when the
// ClaraCore endpoint moves. The registry file is owned by the desktop app;
// the keeper only rewrites baseUrl fields, preserving everything else.
type ProviderRegistry struct {
	path string
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{path: filepath.Join(env.ClaraDir, "providers.json")}
}

/**
 * Point every claracore provider at a new base URL
 * @param {string} baseURL - Service URL; providers get "<url>/v1"
 * @returns {error} Read/write failure; a missing registry file is not an error
 */
func (pr *ProviderRegistry) UpdateClaraCoreBaseURL(baseURL string) error {
	raw, err := os.ReadFile(pr.path)
	if os.IsNotExist(err) {
		logger.Debugf("Provider registry absent, nothing to update")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read provider registry: %w", err)
	}

	apiBase := strings.TrimRight(baseURL, "/") + "/v1"
	doc := string(raw)
	updated := false

	providers := gjson.Parse(doc).Array()
	for i, p := range providers {
		if p.Get("type").String() != "claracore" {
			continue
		}
		doc, err = sjson.Set(doc, fmt.Sprintf("%d.baseUrl", i), apiBase)
		if err != nil {
			return fmt.Errorf("patch provider registry: %w", err)
		}
		updated = true
	}
	if !updated {
		return nil
	}

	if err := os.WriteFile(pr.path, []byte(doc), 0644); err != nil {
		return fmt.Errorf("write provider registry: %w", err)
	}
	logger.Infof("Provider registry updated, claracore base URL -> %s", apiBase)
	return nil
}
