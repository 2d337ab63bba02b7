// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackwright/stackwright/cmd/stackwright/config"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/backup"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/infra/compose"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/infra/gitrepo"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/infra/process"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/util"
	"github.com/stackwright/stackwright/pkg/logging"
)

// replaceFixture builds a fake installation and a fully mocked
// ReplaceManager around it.
type replaceFixture struct {
	installDir string
	cfg        config.Config
	executor   *compose.MockExecutor
	proc       *process.MockManager
	prompter   *util.MockPrompter
	mgr        *ReplaceManager
}

func newReplaceFixture(t *testing.T) *replaceFixture {
	t.Helper()

	parent := t.TempDir()
	installDir := filepath.Join(parent, "stack")
	require.NoError(t, os.MkdirAll(installDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(installDir, "docker-compose.yml"),
		[]byte("services:\n  n8n:\n    image: n8nio/n8n\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(installDir, ".env"),
		[]byte("N8N_HOSTNAME=n8n.example.com\n"), 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(installDir, "shared"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(installDir, "shared", "data.txt"),
		[]byte("keep me\n"), 0644))

	cfg := config.DefaultConfig()
	cfg.InstallDir = installDir
	cfg.BackupPaths = []string{".env", "shared", "grafana"}

	f := &replaceFixture{
		installDir: installDir,
		cfg:        cfg,
		executor:   &compose.MockExecutor{},
		prompter:   &util.MockPrompter{},
	}

	// The clone succeeds by materializing a fresh tree at the target.
	f.proc = &process.MockManager{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			dest := args[len(args)-1]
			if err := os.MkdirAll(dest, 0755); err != nil {
				return nil, err
			}
			return nil, os.WriteFile(filepath.Join(dest, "docker-compose.yml"),
				[]byte("services:\n  n8n:\n    image: n8nio/n8n:next\n"), 0644)
		},
	}

	logger := logging.New(logging.Config{Service: "test", Quiet: true})
	t.Cleanup(func() { logger.Close() })

	f.mgr = NewReplaceManager(cfg, f.executor,
		backup.NewManager(backup.DefaultConfig()),
		gitrepo.NewClient(f.proc), f.prompter, logger)
	f.mgr.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return f
}

// =============================================================================
// Run Tests
// =============================================================================

func TestReplace_HappyPath(t *testing.T) {
	f := newReplaceFixture(t)
	f.prompter.ConfirmFunc = func(string) (bool, error) { return true, nil }
	f.executor.VolumeNamesFunc = func(context.Context) ([]string, error) {
		return []string{"localai_n8n_storage"}, nil
	}

	result, err := f.mgr.Run(context.Background(), ReplaceOptions{})
	require.NoError(t, err)
	assert.False(t, result.Declined)
	assert.True(t, result.Stopped)

	// Old tree moved aside with the timestamp suffix
	assert.Equal(t, f.installDir+"-old-2025-06-01_120000", result.OldDir)
	assert.DirExists(t, result.OldDir)

	// Fresh clone in place with preserved data restored on top
	data, err := os.ReadFile(filepath.Join(f.installDir, "docker-compose.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "n8nio/n8n:next")

	env, err := os.ReadFile(filepath.Join(f.installDir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, "N8N_HOSTNAME=n8n.example.com\n", string(env))

	shared, err := os.ReadFile(filepath.Join(f.installDir, "shared", "data.txt"))
	require.NoError(t, err)
	assert.Equal(t, "keep me\n", string(shared))

	// grafana never existed; restored paths reflect that
	assert.ElementsMatch(t, []string{".env", "shared"}, result.Restored)
	assert.Contains(t, result.Skipped, "grafana")

	// Snapshot kept next to the installation with the volume names
	assert.DirExists(t, result.SnapshotDir)
	volumes, err := os.ReadFile(filepath.Join(result.SnapshotDir, "volumes.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(volumes), "localai_n8n_storage")
}

func TestReplace_DeclineLeavesEverythingUntouched(t *testing.T) {
	f := newReplaceFixture(t)
	f.prompter.ConfirmFunc = func(string) (bool, error) { return false, nil }

	result, err := f.mgr.Run(context.Background(), ReplaceOptions{})
	require.ErrorIs(t, err, ErrDeclined)
	assert.True(t, result.Declined)

	// Install dir still in place, no snapshot created, stack untouched
	assert.DirExists(t, f.installDir)
	entries, err := os.ReadDir(filepath.Dir(f.installDir))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.NotContains(t, f.executor.Calls, "Stop")
}

func TestReplace_MissingManifestFailsBeforePrompt(t *testing.T) {
	f := newReplaceFixture(t)
	f.executor.ManifestPresentFunc = func() bool { return false }

	_, err := f.mgr.Run(context.Background(), ReplaceOptions{})
	require.ErrorIs(t, err, ErrNoInstallation)
	assert.Empty(t, f.prompter.Calls, "prompt must not run when there is no installation")
}

func TestReplace_AssumeYesSkipsPrompt(t *testing.T) {
	f := newReplaceFixture(t)

	_, err := f.mgr.Run(context.Background(), ReplaceOptions{AssumeYes: true})
	require.NoError(t, err)
	assert.Empty(t, f.prompter.Calls)
}

func TestReplace_StopFailureIsNotFatal(t *testing.T) {
	f := newReplaceFixture(t)
	f.prompter.ConfirmFunc = func(string) (bool, error) { return true, nil }
	f.executor.StopFunc = func(context.Context, compose.StopOptions) (compose.StopResult, error) {
		return compose.StopResult{}, assert.AnError
	}

	result, err := f.mgr.Run(context.Background(), ReplaceOptions{})
	require.NoError(t, err)
	assert.False(t, result.Stopped)
	assert.DirExists(t, result.SnapshotDir)
}

func TestReplace_CloneFailureNamesTheRecoveryPath(t *testing.T) {
	f := newReplaceFixture(t)
	f.prompter.ConfirmFunc = func(string) (bool, error) { return true, nil }
	f.proc.RunFunc = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, assert.AnError
	}

	result, err := f.mgr.Run(context.Background(), ReplaceOptions{})
	require.Error(t, err)
	require.ErrorIs(t, err, gitrepo.ErrCloneFailed)

	// The old tree survives and the error says how to roll back
	assert.DirExists(t, result.OldDir)
	assert.Contains(t, err.Error(), "mv "+result.OldDir+" "+f.installDir)
	assert.NoDirExists(t, f.installDir)
}

func TestReplace_VolumeFailureIsNotFatal(t *testing.T) {
	f := newReplaceFixture(t)
	f.prompter.ConfirmFunc = func(string) (bool, error) { return true, nil }
	f.executor.VolumeNamesFunc = func(context.Context) ([]string, error) {
		return nil, assert.AnError
	}

	_, err := f.mgr.Run(context.Background(), ReplaceOptions{})
	require.NoError(t, err)
}

// =============================================================================
// Backup Path Augmentation Tests
// =============================================================================

func TestAugmentBackupPaths(t *testing.T) {
	installDir := t.TempDir()
	composePath := filepath.Join(installDir, "docker-compose.yml")
	require.NoError(t, os.WriteFile(composePath, []byte(`services:
  docmost:
    profiles: ["docmost"]
  flowise:
    profiles: ["flowise"]
`), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(installDir, "docmost"), 0755))
	// flowise has no data dir yet, so it must not be added

	paths := augmentBackupPaths(installDir, composePath, []string{".env", "shared"})
	assert.Equal(t, []string{".env", "shared", "docmost"}, paths)
}

func TestAugmentBackupPaths_NoComposeFile(t *testing.T) {
	installDir := t.TempDir()
	seed := []string{".env"}

	paths := augmentBackupPaths(installDir, filepath.Join(installDir, "missing.yml"), seed)
	assert.Equal(t, seed, paths)
}

func TestAugmentBackupPaths_NoDuplicates(t *testing.T) {
	installDir := t.TempDir()
	composePath := filepath.Join(installDir, "docker-compose.yml")
	require.NoError(t, os.WriteFile(composePath, []byte("    profiles: [\"shared\"]\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(installDir, "shared"), 0755))

	paths := augmentBackupPaths(installDir, composePath, []string{"shared"})
	assert.Equal(t, []string{"shared"}, paths)
}
