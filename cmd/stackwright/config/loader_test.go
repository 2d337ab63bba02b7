// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_CreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stackwright.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}
	if cfg.ComposeFile != "docker-compose.yml" {
		t.Errorf("expected default compose file, got %q", cfg.ComposeFile)
	}
	if len(cfg.BackupPaths) == 0 {
		t.Error("expected seeded backup paths")
	}
}

func TestLoad_ParsesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stackwright.yaml")
	content := `install_dir: /opt/stack
replacement_repo: https://github.com/example/stack-repo
compose_file: compose.yaml
env_file: .env
env_example_file: .env.example
caddyfile: Caddyfile
project_name: mystack
backup_paths:
  - .env
  - shared
stop_timeout_seconds: 30
clone_timeout_seconds: 60
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.InstallDir != "/opt/stack" {
		t.Errorf("install_dir = %q", cfg.InstallDir)
	}
	if cfg.ComposeFile != "compose.yaml" {
		t.Errorf("compose_file = %q", cfg.ComposeFile)
	}
	if cfg.ProjectName != "mystack" {
		t.Errorf("project_name = %q", cfg.ProjectName)
	}
	if len(cfg.BackupPaths) != 2 {
		t.Errorf("backup_paths = %v", cfg.BackupPaths)
	}
}

func TestLoad_RejectsInvalidRepoURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stackwright.yaml")
	content := `install_dir: /opt/stack
replacement_repo: "not a url"
compose_file: docker-compose.yml
env_file: .env
env_example_file: .env.example
caddyfile: Caddyfile
project_name: mystack
backup_paths: [".env"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for malformed replacement_repo")
	}
}

func TestLoad_ResolvesRelativeInstallDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stackwright.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if !filepath.IsAbs(cfg.InstallDir) {
		t.Errorf("expected absolute install dir, got %q", cfg.InstallDir)
	}
}

func TestTimeoutDefaults(t *testing.T) {
	var cfg Config
	if cfg.StopTimeout() <= 0 {
		t.Error("zero config should still yield a positive stop timeout")
	}
	if cfg.CloneTimeout() <= 0 {
		t.Error("zero config should still yield a positive clone timeout")
	}
}
