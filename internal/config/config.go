// Package config loads and saves wyrd's local configuration: a global
// file merged with a repository-local override, both plain JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds every configurable section of a wyrd installation.
type Config struct {
	User     UserConfig     `json:"user"`
	Core     CoreConfig     `json:"core"`
	Register RegisterConfig `json:"register"`
	Archive  ArchiveConfig  `json:"archive"`
}

// UserConfig holds the user's name and email, read by GetAuthor.
type UserConfig struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CoreConfig holds core CLI settings.
type CoreConfig struct {
	Editor string `json:"editor,omitempty"`
	Pager  string `json:"pager,omitempty"`
	Color  bool   `json:"color"`
}

// RegisterConfig points `wyrdctl pull/push/sync` at a register endpoint.
type RegisterConfig struct {
	Endpoint    string `json:"endpoint,omitempty"`
	Token       string `json:"token,omitempty"`
	RetryBudget int    `json:"retry_budget,omitempty"`
}

// ArchiveConfig selects and configures the content archive backend:
// memory, file, or an S3-compatible object store.
type ArchiveConfig struct {
	Backend string `json:"backend,omitempty"` // "memory", "file", or "s3"
	Path    string `json:"path,omitempty"`    // file backend root
	Bucket  string `json:"bucket,omitempty"`  // s3 backend
	Prefix  string `json:"prefix,omitempty"`
	Region  string `json:"region,omitempty"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		User: UserConfig{},
		Core: CoreConfig{
			Editor: os.Getenv("EDITOR"),
			Pager:  os.Getenv("PAGER"),
			Color:  true,
		},
		Register: RegisterConfig{
			RetryBudget: 8,
		},
		Archive: ArchiveConfig{
			Backend: "file",
			Path:    ".wyrd/archive",
		},
	}
}

func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".wyrdconfig"), nil
}

func repoConfigPath() string {
	return filepath.Join(".wyrd", "config")
}

// LoadConfig loads configuration from both the global and repository
// config files; repository config takes precedence over global.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if globalPath, err := globalConfigPath(); err == nil {
		if data, err := os.ReadFile(globalPath); err == nil {
			var globalCfg Config
			if err := json.Unmarshal(data, &globalCfg); err == nil {
				mergeConfig(cfg, &globalCfg)
			}
		}
	}

	if data, err := os.ReadFile(repoConfigPath()); err == nil {
		var repoCfg Config
		if err := json.Unmarshal(data, &repoCfg); err == nil {
			mergeConfig(cfg, &repoCfg)
		}
	}

	return cfg, nil
}

// SaveGlobalConfig saves configuration to the global config file.
func SaveGlobalConfig(cfg *Config) error {
	globalPath, err := globalConfigPath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(globalPath, data, 0644)
}

// SaveRepoConfig saves configuration to the repository config file.
func SaveRepoConfig(cfg *Config) error {
	repoPath := repoConfigPath()
	if err := os.MkdirAll(filepath.Dir(repoPath), 0755); err != nil {
		return fmt.Errorf("failed to create .wyrd directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(repoPath, data, 0644)
}

// GetValue retrieves a configuration value by "section.field" key.
func GetValue(key string) (string, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return "", err
	}

	section, field, err := splitKey(key)
	if err != nil {
		return "", err
	}

	switch section {
	case "user":
		switch field {
		case "name":
			return cfg.User.Name, nil
		case "email":
			return cfg.User.Email, nil
		}
	case "core":
		switch field {
		case "editor":
			return cfg.Core.Editor, nil
		case "pager":
			return cfg.Core.Pager, nil
		case "color":
			return fmt.Sprintf("%t", cfg.Core.Color), nil
		}
	case "register":
		switch field {
		case "endpoint":
			return cfg.Register.Endpoint, nil
		case "token":
			return cfg.Register.Token, nil
		case "retry_budget":
			return fmt.Sprintf("%d", cfg.Register.RetryBudget), nil
		}
	case "archive":
		switch field {
		case "backend":
			return cfg.Archive.Backend, nil
		case "path":
			return cfg.Archive.Path, nil
		case "bucket":
			return cfg.Archive.Bucket, nil
		case "prefix":
			return cfg.Archive.Prefix, nil
		case "region":
			return cfg.Archive.Region, nil
		}
	}
	return "", fmt.Errorf("unknown config key: %s", key)
}

// SetValue sets a configuration value by "section.field" key.
func SetValue(key, value string, global bool) error {
	var cfg *Config
	var path string
	if global {
		path, _ = globalConfigPath()
	} else {
		path = repoConfigPath()
	}
	if data, err := os.ReadFile(path); err == nil {
		cfg = &Config{}
		if err := json.Unmarshal(data, cfg); err != nil {
			cfg = DefaultConfig()
		}
	} else {
		cfg = DefaultConfig()
	}

	section, field, err := splitKey(key)
	if err != nil {
		return err
	}

	switch section {
	case "user":
		switch field {
		case "name":
			cfg.User.Name = value
		case "email":
			cfg.User.Email = value
		default:
			return fmt.Errorf("unknown user config field: %s", field)
		}
	case "core":
		switch field {
		case "editor":
			cfg.Core.Editor = value
		case "pager":
			cfg.Core.Pager = value
		case "color":
			cfg.Core.Color = value == "true"
		default:
			return fmt.Errorf("unknown core config field: %s", field)
		}
	case "register":
		switch field {
		case "endpoint":
			cfg.Register.Endpoint = value
		case "token":
			cfg.Register.Token = value
		default:
			return fmt.Errorf("unknown register config field: %s", field)
		}
	case "archive":
		switch field {
		case "backend":
			cfg.Archive.Backend = value
		case "path":
			cfg.Archive.Path = value
		case "bucket":
			cfg.Archive.Bucket = value
		case "prefix":
			cfg.Archive.Prefix = value
		case "region":
			cfg.Archive.Region = value
		default:
			return fmt.Errorf("unknown archive config field: %s", field)
		}
	default:
		return fmt.Errorf("unknown config section: %s", section)
	}

	if global {
		return SaveGlobalConfig(cfg)
	}
	return SaveRepoConfig(cfg)
}

// GetAuthor returns the configured user as "Name <email>".
func GetAuthor() (string, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return "", err
	}
	if cfg.User.Name == "" || cfg.User.Email == "" {
		return "", fmt.Errorf("user.name and user.email not configured. Run: wyrdctl config user.name \"Your Name\" && wyrdctl config user.email \"you@example.com\"")
	}
	return fmt.Sprintf("%s <%s>", cfg.User.Name, cfg.User.Email), nil
}

func splitKey(key string) (section, field string, err error) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid config key: %s (expected format: section.key)", key)
	}
	return parts[0], parts[1], nil
}

// mergeConfig merges src into dst; non-empty/non-zero src fields win,
// except core.color, which is always taken from src.
func mergeConfig(dst, src *Config) {
	if src.User.Name != "" {
		dst.User.Name = src.User.Name
	}
	if src.User.Email != "" {
		dst.User.Email = src.User.Email
	}
	if src.Core.Editor != "" {
		dst.Core.Editor = src.Core.Editor
	}
	if src.Core.Pager != "" {
		dst.Core.Pager = src.Core.Pager
	}
	dst.Core.Color = src.Core.Color

	if src.Register.Endpoint != "" {
		dst.Register.Endpoint = src.Register.Endpoint
	}
	if src.Register.Token != "" {
		dst.Register.Token = src.Register.Token
	}
	if src.Register.RetryBudget != 0 {
		dst.Register.RetryBudget = src.Register.RetryBudget
	}

	if src.Archive.Backend != "" {
		dst.Archive.Backend = src.Archive.Backend
	}
	if src.Archive.Path != "" {
		dst.Archive.Path = src.Archive.Path
	}
	if src.Archive.Bucket != "" {
		dst.Archive.Bucket = src.Archive.Bucket
	}
	if src.Archive.Prefix != "" {
		dst.Archive.Prefix = src.Archive.Prefix
	}
	if src.Archive.Region != "" {
		dst.Archive.Region = src.Archive.Region
	}
}
