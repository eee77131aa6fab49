// Package ocicfg loads ocictl's on-disk YAML configuration: default
// registry host/credentials, the local archive working directory, and
// logging verbosity.
package ocicfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "/etc/ocictl/config.yaml"

// envConfigPath, when set, overrides defaultConfigPath.
const envConfigPath = "OCICTL_CONFIG"

// Config is ocictl's top-level configuration document.
type Config struct {
	Registry RegistryConfig `yaml:"registry"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Log      LogConfig      `yaml:"log"`
}

// RegistryConfig names the default registry host and, optionally, static
// Basic-auth credentials. DockerHub tokens are always sourced from
// DOCKER_USERNAME/DOCKER_PASSWORD regardless of this file — see
// registry.DockerHubAuthFromEnv.
type RegistryConfig struct {
	Hostname string `yaml:"hostname"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	TTLSecs  int    `yaml:"ttlSeconds,omitempty"`
}

// ArchiveConfig holds the archive working directory. WorkDir is loaded
// and defaulted, but no ocictl command reads it: pull writes to the
// current directory when no output path is given.
type ArchiveConfig struct {
	WorkDir string `yaml:"workDir"`
}

// LogConfig controls the zap logger ocictl's main wires up. Debug selects
// zap's development config; Level is loaded and defaulted but the logger
// construction does not read it.
type LogConfig struct {
	Debug bool   `yaml:"debug,omitempty"`
	Level string `yaml:"level,omitempty"`
}

// Default returns a Config with every field at its documented default.
func Default() Config {
	return Config{
		Registry: RegistryConfig{
			Hostname: "https://registry-1.docker.io",
			TTLSecs:  60,
		},
		Archive: ArchiveConfig{
			WorkDir: "/var/lib/ocictl",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at OCICTL_CONFIG (or defaultConfigPath if
// unset), merging it over Default(). A missing file at the default path
// is not an error — callers proceed with defaults; an explicit
// OCICTL_CONFIG that can't be read is.
func Load() (Config, error) {
	path := defaultConfigPath
	explicit := false
	if v := os.Getenv(envConfigPath); v != "" {
		path = v
		explicit = true
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
