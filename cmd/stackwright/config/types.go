// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"time"
)

// Config describes one managed stack installation.
//
// The record is loaded once at startup and passed by value to the
// procedures that need it. Nothing in this package mutates a Config
// after Load returns it.
type Config struct {
	// InstallDir is the root of the managed installation.
	// Relative paths are resolved against the working directory at load time.
	InstallDir string `yaml:"install_dir" validate:"required"`

	// ReplacementRepo is the git URL cloned by the replacement procedure.
	ReplacementRepo string `yaml:"replacement_repo" validate:"required,url"`

	// ComposeFile is the compose manifest name inside InstallDir.
	ComposeFile string `yaml:"compose_file" validate:"required"`

	// EnvFile is the live environment file name inside InstallDir.
	EnvFile string `yaml:"env_file" validate:"required"`

	// EnvExampleFile is the template environment file the integration
	// procedure appends to.
	EnvExampleFile string `yaml:"env_example_file" validate:"required"`

	// Caddyfile is the reverse proxy configuration file name.
	Caddyfile string `yaml:"caddyfile" validate:"required"`

	// ProjectName is the compose project name, used as the prefix when
	// listing the stack's named volumes.
	ProjectName string `yaml:"project_name" validate:"required"`

	// BackupPaths are the paths (relative to InstallDir) preserved by the
	// replacement procedure. At runtime the list is unioned with existing
	// service data directories named by compose profiles.
	BackupPaths []string `yaml:"backup_paths" validate:"required,min=1"`

	// StopTimeoutSeconds bounds the graceful stack stop before the
	// procedure gives up on it.
	StopTimeoutSeconds int `yaml:"stop_timeout_seconds" validate:"gte=0"`

	// CloneTimeoutSeconds bounds git clone subprocesses.
	CloneTimeoutSeconds int `yaml:"clone_timeout_seconds" validate:"gte=0"`
}

// StopTimeout returns the graceful stop bound as a duration.
func (c Config) StopTimeout() time.Duration {
	if c.StopTimeoutSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.StopTimeoutSeconds) * time.Second
}

// CloneTimeout returns the clone bound as a duration.
func (c Config) CloneTimeout() time.Duration {
	if c.CloneTimeoutSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.CloneTimeoutSeconds) * time.Second
}

// DefaultBackupPaths is the seed preservation list for a stock
// installation. Entries that don't exist at snapshot time are recorded
// as skipped, never treated as errors.
func DefaultBackupPaths() []string {
	return []string{
		".env",
		"shared",
		"n8n/backup",
		"searxng",
		"neo4j",
		"grafana",
		"prometheus",
		"python-runner",
		"paddlex",
		"Caddyfile",
	}
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() Config {
	return Config{
		InstallDir:          ".",
		ReplacementRepo:     "https://github.com/kossakovsky/n8n-installer",
		ComposeFile:         "docker-compose.yml",
		EnvFile:             ".env",
		EnvExampleFile:      ".env.example",
		Caddyfile:           "Caddyfile",
		ProjectName:         "localai",
		BackupPaths:         DefaultBackupPaths(),
		StopTimeoutSeconds:  120,
		CloneTimeoutSeconds: 600,
	}
}
