package cfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Sources describes optional per-deployment overrides for the upstream
// feeds. Values left empty keep the defaults from flags/environment.
type Sources struct {
	Forum struct {
		URL     string `yaml:"url"`
		Timeout int    `yaml:"timeout"` // seconds
	} `yaml:"forum"`
	Calendar struct {
		URL     string `yaml:"url"`
		Timeout int    `yaml:"timeout"` // seconds
	} `yaml:"calendar"`
	UserAgent string `yaml:"user_agent"`
}

func applySources(cfg *Cfg, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var sources Sources
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	if sources.Forum.URL != "" {
		cfg.ForumURL = sources.Forum.URL
	}
	if sources.Calendar.URL != "" {
		cfg.CalendarURL = sources.Calendar.URL
	}
	if sources.Forum.Timeout > 0 {
		cfg.FetchTimeout = sources.Forum.Timeout
	}
	if sources.UserAgent != "" {
		cfg.UserAgent = sources.UserAgent
	}

	if cfg.FetchTimeout < 0 {
		return fmt.Errorf("fetch timeout must be non-negative")
	}

	return nil
}
