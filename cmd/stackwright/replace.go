// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Replacement orchestration.

ReplaceManager coordinates the full replacement sequence:

	1. ManifestPresent()        // precondition gate
	2. Confirm()                // operator consent
	3. Stop()                   // best effort
	4. Create() + RecordVolumes // snapshot, volumes best effort
	5. Rename()                 // point of no return
	6. CloneShallow()           // fresh tree
	7. Restore()                // data back in place

Steps 1, 4, 5, 6, and 7 are fatal on failure; steps 3 and the volume
recording half of 4 degrade to warnings. Once step 5 has succeeded the
old tree survives next to the installation, so every later failure is
recoverable by hand and the error says how.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/stackwright/stackwright/cmd/stackwright/config"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/backup"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/infra/compose"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/infra/gitrepo"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/util"
	"github.com/stackwright/stackwright/pkg/logging"
	"github.com/stackwright/stackwright/pkg/ux"
)

// ErrNoInstallation means the install dir has no compose manifest, so
// there is nothing to replace.
var ErrNoInstallation = errors.New("no installation found")

// oldDirTimeFormat names the moved-aside tree.
const oldDirTimeFormat = "2006-01-02_150405"

// ReplaceOptions adjusts a replacement run.
type ReplaceOptions struct {
	// AssumeYes skips the confirmation prompt.
	AssumeYes bool
}

// ReplaceResult reports what a replacement run did.
type ReplaceResult struct {
	Declined    bool
	Stopped     bool
	SnapshotDir string
	OldDir      string
	Restored    []string
	Skipped     []string
}

// ReplaceManager runs the replacement procedure. All side effects go
// through injected dependencies so the sequence is testable end to end.
type ReplaceManager struct {
	cfg       config.Config
	executor  compose.Executor
	snapshots *backup.Manager
	git       *gitrepo.Client
	prompter  util.UserPrompter
	logger    *logging.Logger

	// rename and now are swapped in tests
	rename func(oldPath, newPath string) error
	now    func() time.Time
}

// NewReplaceManager wires a manager from its dependencies.
func NewReplaceManager(
	cfg config.Config,
	executor compose.Executor,
	snapshots *backup.Manager,
	git *gitrepo.Client,
	prompter util.UserPrompter,
	logger *logging.Logger,
) *ReplaceManager {
	return &ReplaceManager{
		cfg:       cfg,
		executor:  executor,
		snapshots: snapshots,
		git:       git,
		prompter:  prompter,
		logger:    logger,
		rename:    os.Rename,
		now:       time.Now,
	}
}

// Run executes the replacement sequence.
//
// # Outputs
//
//   - ReplaceResult: What happened, including the snapshot and old
//     tree locations. Declined is set when the operator said no.
//   - error: Non-nil on fatal failure. After the rename step the error
//     text includes the manual recovery path.
func (m *ReplaceManager) Run(ctx context.Context, opts ReplaceOptions) (ReplaceResult, error) {
	result := ReplaceResult{}
	installDir := m.cfg.InstallDir

	// Step 1: precondition
	ux.Step(1, 7, "Checking installation")
	if !m.executor.ManifestPresent() {
		return result, fmt.Errorf("%w: %s has no %s",
			ErrNoInstallation, installDir, m.cfg.ComposeFile)
	}

	// Step 2: consent
	if !opts.AssumeYes {
		confirmed, err := m.prompter.Confirm(fmt.Sprintf(
			"Replace %s with a fresh clone of %s? Your data directories will be preserved.",
			installDir, m.cfg.ReplacementRepo))
		if err != nil {
			return result, err
		}
		if !confirmed {
			result.Declined = true
			ux.Info("Replacement cancelled, nothing was changed")
			return result, ErrDeclined
		}
	}

	// Step 3: best-effort stop
	ux.Step(2, 7, "Stopping the stack")
	stopCtx, cancel := context.WithTimeout(ctx, m.cfg.StopTimeout())
	stop, err := m.executor.Stop(stopCtx, compose.StopOptions{Timeout: m.cfg.StopTimeout()})
	cancel()
	if err != nil {
		m.logger.Warn("stack stop failed, continuing", "error", err)
		ux.Warning("Could not stop the stack cleanly, continuing anyway")
	} else {
		result.Stopped = stop.Stopped
	}

	// Step 4: snapshot
	ux.Step(3, 7, "Creating snapshot")
	paths := augmentBackupPaths(installDir, filepath.Join(installDir, m.cfg.ComposeFile), m.cfg.BackupPaths)
	snap, err := m.snapshots.Create(installDir, filepath.Dir(installDir), paths)
	if err != nil {
		return result, fmt.Errorf("snapshot failed, installation untouched: %w", err)
	}
	result.SnapshotDir = snap.Dir
	m.logger.Info("snapshot created", "dir", snap.Dir, "copied", snap.CopiedCount())

	// Volume names are advisory; losing them must not abort the run.
	ux.Step(4, 7, "Recording volume names")
	volumes, err := m.executor.VolumeNames(ctx)
	if err != nil {
		m.logger.Warn("volume listing failed", "error", err)
		ux.Warning("Could not record volume names")
	} else if snap, err = m.snapshots.RecordVolumes(snap, volumes); err != nil {
		m.logger.Warn("volume record failed", "error", err)
		ux.Warning("Could not record volume names")
	}

	// Step 5: move the old tree aside
	ux.Step(5, 7, "Moving the old installation aside")
	oldDir := fmt.Sprintf("%s-old-%s", installDir, m.now().Format(oldDirTimeFormat))
	if err := m.rename(installDir, oldDir); err != nil {
		return result, fmt.Errorf("could not move %s aside, installation untouched: %w", installDir, err)
	}
	result.OldDir = oldDir

	// Step 6: fresh clone
	ux.Step(6, 7, "Cloning the replacement repository")
	cloneCtx, cancel := context.WithTimeout(ctx, m.cfg.CloneTimeout())
	err = m.git.CloneShallow(cloneCtx, m.cfg.ReplacementRepo, installDir)
	cancel()
	if err != nil {
		return result, fmt.Errorf(
			"clone failed: %w\nthe previous installation is intact at %s; move it back with: mv %s %s",
			err, oldDir, oldDir, installDir)
	}

	// Step 7: restore preserved paths
	ux.Step(7, 7, "Restoring preserved data")
	restored, err := m.snapshots.Restore(snap, installDir)
	if err != nil {
		return result, fmt.Errorf(
			"restore failed: %w\nyour data is safe in %s and %s", err, snap.Dir, oldDir)
	}
	result.Restored = restored.Restored
	result.Skipped = restored.Skipped

	m.logger.Info("replacement complete",
		"old_dir", oldDir, "snapshot", snap.Dir, "restored", len(restored.Restored))
	return result, nil
}

// profileNameRe finds profile names in the compose manifest.
var profileNameRe = regexp.MustCompile(`profiles:\s*\[\s*"([a-z0-9-]+)"`)

// augmentBackupPaths unions the configured preservation list with
// directories named after compose profiles that exist in the install
// dir. Services wired in by the integration procedure keep their data
// directories across a replacement without any config edit.
func augmentBackupPaths(installDir, composePath string, seed []string) []string {
	paths := make([]string, len(seed))
	copy(paths, seed)

	seen := map[string]bool{}
	for _, p := range paths {
		seen[p] = true
	}

	data, err := os.ReadFile(composePath)
	if err != nil {
		return paths
	}

	for _, m := range profileNameRe.FindAllStringSubmatch(string(data), -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		if info, err := os.Stat(filepath.Join(installDir, name)); err == nil && info.IsDir() {
			seen[name] = true
			paths = append(paths, name)
		}
	}
	return paths
}
