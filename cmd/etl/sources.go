package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"red-subcontinent/config"
	"red-subcontinent/providers"
	"red-subcontinent/providers/dataset"
	"red-subcontinent/providers/wikipedia"
)

// Sources ist die Quellenliste eines ETL-Laufs.
//
//	wikipedia:
//	  enabled: true
//	  pages:
//	    - https://en.wikipedia.org/wiki/List_of_wars_involving_India
//	datasets:
//	  - data/academic/ucdp_south_asia.csv
type Sources struct {
	Wikipedia struct {
		Enabled *bool    `yaml:"enabled"`
		Pages   []string `yaml:"pages"`
	} `yaml:"wikipedia"`
	Datasets []string `yaml:"datasets"`
}

// WikipediaEnabled ist ohne Angabe wahr.
func (s *Sources) WikipediaEnabled() bool {
	return s.Wikipedia.Enabled == nil || *s.Wikipedia.Enabled
}

// LoadSources liest eine Quellenliste. Ohne Pfad gelten die Standardseiten.
// Relative Datensatzpfade beziehen sich auf das Verzeichnis der Datei.
func LoadSources(path string) (*Sources, error) {
	var s Sources
	if path == "" {
		return &s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i, d := range s.Datasets {
		if !filepath.IsAbs(d) {
			s.Datasets[i] = filepath.Join(dir, d)
		}
	}
	return &s, nil
}

// Providers baut die Provider der Quellenliste.
func (s *Sources) Providers(cfg *config.Config, log *zap.Logger) []providers.Provider {
	var out []providers.Provider
	if s.WikipediaEnabled() {
		out = append(out, wikipedia.NewWikipediaProvider(s.Wikipedia.Pages, wikipedia.Config{
			UserAgent:    cfg.ETLUserAgent,
			RequestDelay: cfg.ETLRequestDelay,
			MaxRetries:   cfg.ETLMaxRetries,
			RetryDelay:   cfg.ETLRetryDelay,
			Timeout:      cfg.ETLTimeout,
			CacheDir:     cfg.ETLCacheDir,
		}, log.Named("wikipedia")))
	}
	if len(s.Datasets) > 0 {
		out = append(out, dataset.NewDatasetProvider(s.Datasets, log.Named("dataset")))
	}
	return out
}
