package config

import (
	"os"
	"path/filepath"
)

const configDirName = ".script-garden"

// ConfigEnvVar overrides the configuration file location.
const ConfigEnvVar = "GARDEN_CONFIG"

// GetConfigPath returns the configuration file path. It first checks the
// GARDEN_CONFIG environment variable, then falls back to
// ~/.script-garden/config.
func GetConfigPath() (string, error) {
	if configPath := os.Getenv(ConfigEnvVar); configPath != "" {
		return configPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, configDirName, "config"), nil
}

// EnsureConfigDir ensures that the configuration directory exists.
func EnsureConfigDir() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	return os.MkdirAll(filepath.Dir(configPath), 0755)
}
