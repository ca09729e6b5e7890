package provbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Defaults for the provisioning invocation. These mirror the layout baked
// into the job container images: the inventory and playbook sit in the
// working directory the entrypoint starts in.
const (
	DefaultInventoryPath = "inventory/hosts.ini"
	DefaultPlaybookPath  = "site.yml"
	DefaultAnsibleBinary = "ansible-playbook"
)

// Environment variables that override the corresponding config fields.
// They take precedence over the config file but not over explicit flags.
const (
	EnvInventory  = "PROVBOX_INVENTORY"
	EnvPlaybook   = "PROVBOX_PLAYBOOK"
	EnvAnsibleBin = "PROVBOX_ANSIBLE_BIN"
)

// Config holds global configuration for provbox
type Config struct {
	// InventoryPath is the Ansible inventory passed to the provisioning run
	InventoryPath string `yaml:"inventory_path"`

	// PlaybookPath is the playbook executed by the provisioning run
	PlaybookPath string `yaml:"playbook_path"`

	// AnsibleBinary is the provisioning tool binary (default: ansible-playbook)
	AnsibleBinary string `yaml:"ansible_binary"`

	// Runtime selects the container runtime for monitoring: "auto"|"docker"|"podman"
	Runtime string `yaml:"runtime"`

	// JobPrefix is the container name prefix that identifies job containers
	JobPrefix string `yaml:"job_prefix"`

	// WindowHours is the monitor look-back window in hours
	WindowHours float64 `yaml:"window_hours"`

	// DataDir is the path to provbox's data directory (default: ~/.config/provbox)
	DataDir string `yaml:"data_dir"`
}

// LoadConfig loads the global provbox configuration from
// ~/.config/provbox/config.yaml, creating the directory if needed. Returns
// sensible defaults if the config file doesn't exist. PROVBOX_* environment
// variables override file values.
func LoadConfig() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	config := &Config{
		InventoryPath: DefaultInventoryPath,
		PlaybookPath:  DefaultPlaybookPath,
		AnsibleBinary: DefaultAnsibleBinary,
		Runtime:       "auto",
		JobPrefix:     "ansible",
		WindowHours:   24,
		DataDir:       filepath.Join(homeDir, ".config", "provbox"),
	}

	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create provbox data directory: %w", err)
	}

	configPath := filepath.Join(config.DataDir, "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			zlog.Debug("no config file found, using defaults",
				zap.String("config_path", configPath))
			applyEnvOverrides(config)
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.DataDir = expandPath(config.DataDir)
	applyEnvOverrides(config)

	zlog.Debug("loaded config",
		zap.String("config_path", configPath),
		zap.String("inventory", config.InventoryPath),
		zap.String("playbook", config.PlaybookPath),
		zap.String("ansible_binary", config.AnsibleBinary),
		zap.String("runtime", config.Runtime))

	return config, nil
}

// SaveConfig saves the global configuration to <DataDir>/config.yaml
func SaveConfig(config *Config) error {
	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create provbox data directory: %w", err)
	}

	configPath := filepath.Join(config.DataDir, "config.yaml")

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	zlog.Debug("saved config", zap.String("config_path", configPath))
	return nil
}

// applyEnvOverrides applies PROVBOX_* environment variables on top of
// whatever the config file (or the defaults) provided.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv(EnvInventory); v != "" {
		config.InventoryPath = v
	}
	if v := os.Getenv(EnvPlaybook); v != "" {
		config.PlaybookPath = v
	}
	if v := os.Getenv(EnvAnsibleBin); v != "" {
		config.AnsibleBinary = v
	}
}

// expandPath expands a leading ~ to the user's home directory
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return homeDir
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
