// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compose

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stackwright/stackwright/cmd/stackwright/internal/infra/process"
)

// mockStatExists simulates a present compose manifest.
func mockStatExists(string) (os.FileInfo, error) {
	return nil, nil
}

// mockStatMissing simulates a missing compose manifest.
func mockStatMissing(string) (os.FileInfo, error) {
	return nil, os.ErrNotExist
}

func newTestExecutor(t *testing.T, proc process.Manager) *DefaultExecutor {
	t.Helper()
	e, err := NewExecutor(Config{
		InstallDir:  "/opt/stack",
		ProjectName: "localai",
	}, proc)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	e.statFunc = mockStatExists
	return e
}

// =============================================================================
// Configuration Tests
// =============================================================================

func TestNewExecutor_RequiresInstallDir(t *testing.T) {
	_, err := NewExecutor(Config{ProjectName: "x"}, &process.MockManager{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewExecutor_RequiresProjectName(t *testing.T) {
	_, err := NewExecutor(Config{InstallDir: "/opt/stack"}, &process.MockManager{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewExecutor_Defaults(t *testing.T) {
	e := newTestExecutor(t, &process.MockManager{})
	if e.config.ComposeFile != "docker-compose.yml" {
		t.Errorf("expected default compose file, got %q", e.config.ComposeFile)
	}
	if e.config.DefaultTimeout != 2*time.Minute {
		t.Errorf("expected default timeout, got %v", e.config.DefaultTimeout)
	}
}

// =============================================================================
// Stop Tests
// =============================================================================

func TestStop_BuildsExpectedArgs(t *testing.T) {
	mock := &process.MockManager{
		RunInDirFunc: func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
			return []byte("stopped"), nil
		},
	}
	e := newTestExecutor(t, mock)

	result, err := e.Stop(context.Background(), StopOptions{Timeout: 30 * time.Second})
	if err != nil {
		t.Fatalf("Stop() returned error: %v", err)
	}
	if !result.Stopped {
		t.Error("expected Stopped true")
	}

	calls := mock.GetCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	got := strings.Join(calls[0].Args, " ")
	want := "compose -p localai -f docker-compose.yml stop -t 30"
	if got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
	if calls[0].Dir != "/opt/stack" {
		t.Errorf("expected working dir /opt/stack, got %q", calls[0].Dir)
	}
}

func TestStop_MissingManifest(t *testing.T) {
	e := newTestExecutor(t, &process.MockManager{})
	e.statFunc = mockStatMissing

	_, err := e.Stop(context.Background(), StopOptions{})
	if !errors.Is(err, ErrComposeNotFound) {
		t.Errorf("expected ErrComposeNotFound, got %v", err)
	}
}

func TestStop_CommandFailure(t *testing.T) {
	mock := &process.MockManager{
		RunInDirFunc: func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
			return nil, errors.New("daemon not running")
		},
	}
	e := newTestExecutor(t, mock)

	result, err := e.Stop(context.Background(), StopOptions{})
	if err == nil {
		t.Fatal("expected error when stop fails")
	}
	if result.Stopped {
		t.Error("expected Stopped false on failure")
	}
}

// =============================================================================
// Status Tests
// =============================================================================

func TestStatus_ParsesNDJSON(t *testing.T) {
	output := `{"Name":"localai-n8n-1","Service":"n8n","State":"running","Status":"Up 2 hours"}
{"Name":"localai-caddy-1","Service":"caddy","State":"exited","Status":"Exited (0)"}`

	mock := &process.MockManager{
		RunInDirFunc: func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
			return []byte(output), nil
		},
	}
	e := newTestExecutor(t, mock)

	statuses, err := e.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() returned error: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Service != "n8n" || statuses[0].State != "running" {
		t.Errorf("unexpected first status: %+v", statuses[0])
	}
}

func TestStatus_ParsesJSONArray(t *testing.T) {
	output := `[{"Name":"localai-n8n-1","Service":"n8n","State":"running","Status":"Up"}]`

	mock := &process.MockManager{
		RunInDirFunc: func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
			return []byte(output), nil
		},
	}
	e := newTestExecutor(t, mock)

	statuses, err := e.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() returned error: %v", err)
	}
	if len(statuses) != 1 || statuses[0].Name != "localai-n8n-1" {
		t.Errorf("unexpected statuses: %+v", statuses)
	}
}

func TestStatus_EmptyStack(t *testing.T) {
	mock := &process.MockManager{
		RunInDirFunc: func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
			return []byte("\n"), nil
		},
	}
	e := newTestExecutor(t, mock)

	statuses, err := e.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() returned error: %v", err)
	}
	if len(statuses) != 0 {
		t.Errorf("expected no statuses, got %+v", statuses)
	}
}

// =============================================================================
// Logs Tests
// =============================================================================

func TestLogs_BuildsExpectedArgs(t *testing.T) {
	mock := &process.MockManager{
		RunStreamingFunc: func(ctx context.Context, dir string, stdout, stderr io.Writer, name string, args ...string) error {
			return nil
		},
	}
	e := newTestExecutor(t, mock)

	var buf bytes.Buffer
	err := e.Logs(context.Background(), &buf, LogsOptions{Service: "n8n", Follow: true, Tail: 50})
	if err != nil {
		t.Fatalf("Logs() returned error: %v", err)
	}

	calls := mock.GetCalls()
	got := strings.Join(calls[0].Args, " ")
	want := "compose -p localai -f docker-compose.yml logs --follow --tail 50 n8n"
	if got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
}

// =============================================================================
// VolumeNames Tests
// =============================================================================

func TestVolumeNames_FiltersByProjectPrefix(t *testing.T) {
	output := "localai_n8n_storage\nlocalai_caddy-data\nother_volume\n\n"

	mock := &process.MockManager{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte(output), nil
		},
	}
	e := newTestExecutor(t, mock)

	names, err := e.VolumeNames(context.Background())
	if err != nil {
		t.Fatalf("VolumeNames() returned error: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 volumes, got %v", names)
	}
	for _, name := range names {
		if !strings.HasPrefix(name, "localai_") {
			t.Errorf("unexpected volume %q", name)
		}
	}
}

func TestVolumeNames_CommandFailure(t *testing.T) {
	mock := &process.MockManager{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return nil, errors.New("docker not installed")
		},
	}
	e := newTestExecutor(t, mock)

	if _, err := e.VolumeNames(context.Background()); err == nil {
		t.Fatal("expected error when docker is unavailable")
	}
}
