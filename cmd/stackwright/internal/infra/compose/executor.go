// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package compose drives the docker compose CLI for a managed stack
installation.

The orchestrator is treated as an opaque subprocess: every operation
shells out through process.Manager, so tests substitute a mock and
verify the exact argument vectors without a container runtime present.
*/
package compose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/stackwright/stackwright/cmd/stackwright/internal/infra/process"
)

// ===== Errors =====

var (
	// ErrComposeNotFound indicates the compose manifest is missing from
	// the installation directory.
	ErrComposeNotFound = errors.New("compose manifest not found")

	// ErrInvalidConfig indicates the executor configuration is incomplete.
	ErrInvalidConfig = errors.New("invalid compose configuration")
)

// ===== Configuration =====

// Config configures the compose executor.
type Config struct {
	// InstallDir is the directory containing the compose manifest.
	InstallDir string

	// ComposeFile is the manifest file name inside InstallDir.
	// Default: docker-compose.yml
	ComposeFile string

	// ProjectName is passed as the compose project name and used as the
	// prefix when listing the stack's named volumes.
	ProjectName string

	// DefaultTimeout bounds each subprocess invocation.
	// Default: 2 minutes
	DefaultTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.ComposeFile == "" {
		c.ComposeFile = "docker-compose.yml"
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 2 * time.Minute
	}
}

func (c *Config) validate() error {
	if c.InstallDir == "" {
		return fmt.Errorf("%w: install dir is required", ErrInvalidConfig)
	}
	if c.ProjectName == "" {
		return fmt.Errorf("%w: project name is required", ErrInvalidConfig)
	}
	return nil
}

// ===== Types =====

// StopOptions configures a stack stop.
type StopOptions struct {
	// Timeout is the grace period passed to compose stop (-t).
	// Zero means the compose default.
	Timeout time.Duration
}

// StopResult reports the outcome of a stop attempt.
type StopResult struct {
	// Stopped is true when the stop command exited cleanly.
	Stopped bool

	// Output is the combined command output, kept for diagnostics.
	Output string
}

// LogsOptions configures log streaming.
type LogsOptions struct {
	// Service restricts output to one service. Empty means all.
	Service string

	// Follow streams logs until the context is cancelled.
	Follow bool

	// Tail limits the number of initial lines per container.
	// Zero means the compose default.
	Tail int
}

// ContainerStatus describes one container of the stack.
type ContainerStatus struct {
	Name    string `json:"Name"`
	Service string `json:"Service"`
	State   string `json:"State"`
	Status  string `json:"Status"`
}

// ===== Executor =====

// Executor runs compose operations against one installation.
type Executor interface {
	// ManifestPresent reports whether the compose manifest exists.
	// This is the precondition gate for mutating procedures.
	ManifestPresent() bool

	// Stop stops all running services of the stack.
	Stop(ctx context.Context, opts StopOptions) (StopResult, error)

	// Status returns the state of the stack's containers.
	Status(ctx context.Context) ([]ContainerStatus, error)

	// Logs streams service logs to the given writer.
	Logs(ctx context.Context, w io.Writer, opts LogsOptions) error

	// VolumeNames lists the names of the stack's named volumes,
	// identified by the compose project prefix.
	VolumeNames(ctx context.Context) ([]string, error)
}

// DefaultExecutor implements Executor using the docker CLI.
type DefaultExecutor struct {
	config Config
	proc   process.Manager

	// statFunc is swapped in tests to simulate manifest presence
	statFunc func(string) (os.FileInfo, error)
}

// NewExecutor creates an executor for the given installation.
func NewExecutor(config Config, proc process.Manager) (*DefaultExecutor, error) {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	if proc == nil {
		return nil, fmt.Errorf("%w: process manager is required", ErrInvalidConfig)
	}
	return &DefaultExecutor{
		config:   config,
		proc:     proc,
		statFunc: os.Stat,
	}, nil
}

// ManifestPath returns the absolute path of the compose manifest.
func (e *DefaultExecutor) ManifestPath() string {
	return filepath.Join(e.config.InstallDir, e.config.ComposeFile)
}

// ManifestPresent reports whether the compose manifest exists.
func (e *DefaultExecutor) ManifestPresent() bool {
	_, err := e.statFunc(e.ManifestPath())
	return err == nil
}

// Stop stops all running services of the stack.
//
// The stop is graceful: compose gets the configured grace period per
// container before the runtime escalates to SIGKILL on its own.
func (e *DefaultExecutor) Stop(ctx context.Context, opts StopOptions) (StopResult, error) {
	if !e.ManifestPresent() {
		return StopResult{}, fmt.Errorf("%w: %s", ErrComposeNotFound, e.ManifestPath())
	}

	args := e.baseArgs()
	args = append(args, "stop")
	if opts.Timeout > 0 {
		args = append(args, "-t", strconv.Itoa(int(opts.Timeout.Seconds())))
	}

	out, err := e.runCompose(ctx, args...)
	if err != nil {
		return StopResult{Stopped: false, Output: string(out)}, fmt.Errorf("compose stop failed: %w", err)
	}
	return StopResult{Stopped: true, Output: string(out)}, nil
}

// Status returns the state of the stack's containers.
func (e *DefaultExecutor) Status(ctx context.Context) ([]ContainerStatus, error) {
	if !e.ManifestPresent() {
		return nil, fmt.Errorf("%w: %s", ErrComposeNotFound, e.ManifestPath())
	}

	args := e.baseArgs()
	args = append(args, "ps", "--all", "--format", "json")

	out, err := e.runCompose(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("compose ps failed: %w", err)
	}
	return parseStatusOutput(out)
}

// Logs streams service logs to the given writer.
func (e *DefaultExecutor) Logs(ctx context.Context, w io.Writer, opts LogsOptions) error {
	if !e.ManifestPresent() {
		return fmt.Errorf("%w: %s", ErrComposeNotFound, e.ManifestPath())
	}

	args := e.baseArgs()
	args = append(args, "logs")
	if opts.Follow {
		args = append(args, "--follow")
	}
	if opts.Tail > 0 {
		args = append(args, "--tail", strconv.Itoa(opts.Tail))
	}
	if opts.Service != "" {
		args = append(args, opts.Service)
	}

	// Follow mode is caller-cancelled, so no timeout here
	return e.proc.RunStreaming(ctx, e.config.InstallDir, w, w, "docker", append([]string{"compose"}, args...)...)
}

// VolumeNames lists the names of the stack's named volumes.
//
// Compose names volumes {project}_{volume}, so a prefix filter on the
// project name recovers the stack's set.
func (e *DefaultExecutor) VolumeNames(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.DefaultTimeout)
	defer cancel()

	out, err := e.proc.Run(ctx, "docker", "volume", "ls", "--format", "{{.Name}}")
	if err != nil {
		return nil, fmt.Errorf("docker volume ls failed: %w", err)
	}

	prefix := e.config.ProjectName + "_"
	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		if strings.HasPrefix(name, prefix) || name == e.config.ProjectName {
			names = append(names, name)
		}
	}
	return names, nil
}

// baseArgs builds the common compose argument prefix.
func (e *DefaultExecutor) baseArgs() []string {
	return []string{
		"-p", e.config.ProjectName,
		"-f", e.config.ComposeFile,
	}
}

// runCompose executes a docker compose command with the default timeout.
func (e *DefaultExecutor) runCompose(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.DefaultTimeout)
	defer cancel()

	full := append([]string{"compose"}, args...)
	return e.proc.RunInDir(ctx, e.config.InstallDir, "docker", full...)
}

// parseStatusOutput handles both JSON array output and the NDJSON
// stream newer compose versions emit (one object per line).
func parseStatusOutput(out []byte) ([]ContainerStatus, error) {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var statuses []ContainerStatus
		if err := json.Unmarshal([]byte(trimmed), &statuses); err != nil {
			return nil, fmt.Errorf("failed to parse compose ps output: %w", err)
		}
		return statuses, nil
	}

	var statuses []ContainerStatus
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var status ContainerStatus
		if err := json.Unmarshal([]byte(line), &status); err != nil {
			return nil, fmt.Errorf("failed to parse compose ps line: %w", err)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Compile-time interface compliance check.
var _ Executor = (*DefaultExecutor)(nil)

// ===== Mock =====

// MockExecutor is a test double with scripted behavior.
type MockExecutor struct {
	ManifestPresentFunc func() bool
	StopFunc            func(ctx context.Context, opts StopOptions) (StopResult, error)
	StatusFunc          func(ctx context.Context) ([]ContainerStatus, error)
	LogsFunc            func(ctx context.Context, w io.Writer, opts LogsOptions) error
	VolumeNamesFunc     func(ctx context.Context) ([]string, error)

	Calls []string
}

var _ Executor = (*MockExecutor)(nil)

func (m *MockExecutor) ManifestPresent() bool {
	m.Calls = append(m.Calls, "ManifestPresent")
	if m.ManifestPresentFunc == nil {
		return true
	}
	return m.ManifestPresentFunc()
}

func (m *MockExecutor) Stop(ctx context.Context, opts StopOptions) (StopResult, error) {
	m.Calls = append(m.Calls, "Stop")
	if m.StopFunc == nil {
		return StopResult{Stopped: true}, nil
	}
	return m.StopFunc(ctx, opts)
}

func (m *MockExecutor) Status(ctx context.Context) ([]ContainerStatus, error) {
	m.Calls = append(m.Calls, "Status")
	if m.StatusFunc == nil {
		return nil, nil
	}
	return m.StatusFunc(ctx)
}

func (m *MockExecutor) Logs(ctx context.Context, w io.Writer, opts LogsOptions) error {
	m.Calls = append(m.Calls, "Logs")
	if m.LogsFunc == nil {
		return nil
	}
	return m.LogsFunc(ctx, w, opts)
}

func (m *MockExecutor) VolumeNames(ctx context.Context) ([]string, error) {
	m.Calls = append(m.Calls, "VolumeNames")
	if m.VolumeNamesFunc == nil {
		return nil, nil
	}
	return m.VolumeNamesFunc(ctx)
}

// Reset clears recorded calls.
func (m *MockExecutor) Reset() {
	m.Calls = nil
}
