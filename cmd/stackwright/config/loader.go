// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath returns the per-user config location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".stackwright", "stackwright.yaml"), nil
}

// Load reads the config file at path and returns the parsed record.
//
// An empty path selects DefaultPath. If the file does not exist it is
// created with defaults first, so a fresh machine gets a working config
// on the first run. The returned Config is a value; callers own their
// copy and nothing here is shared or mutated later.
func Load(path string) (Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return Config{}, err
		}
	}

	// create it if it doesn't exist
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("First run detected, creating the config at %s\n", path)
		if err := createDefault(path); err != nil {
			return Config{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := DefaultConfig()
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}

	// Resolve the install dir so later chdirs can't change its meaning
	if !filepath.IsAbs(cfg.InstallDir) {
		abs, err := filepath.Abs(cfg.InstallDir)
		if err != nil {
			return Config{}, fmt.Errorf("failed to resolve install_dir: %w", err)
		}
		cfg.InstallDir = abs
	}

	if err := validate(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config at %s: %w", path, err)
	}
	return cfg, nil
}

// validate applies the struct-level validation tags.
func validate(cfg Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	return v.Struct(cfg)
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	defaultCfg := DefaultConfig()
	data, err := yaml.Marshal(defaultCfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
