// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stackwright/stackwright/cmd/stackwright/internal/backup"
	"github.com/stackwright/stackwright/pkg/ux"
)

func runSnapshotList(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		ux.Error(err.Error())
		os.Exit(CLIExitError)
	}

	mgr := backup.NewManager(backup.DefaultConfig())
	snapshots, err := mgr.List(filepath.Dir(cfg.InstallDir))
	if err != nil {
		ux.Error(fmt.Sprintf("Could not list snapshots: %v", err))
		os.Exit(CLIExitError)
	}

	if len(snapshots) == 0 {
		ux.Info("No snapshots found")
		return
	}
	for _, s := range snapshots {
		ux.KeyValue(s.Name(), fmt.Sprintf("%s, %d paths, %d bytes",
			s.Manifest.CreatedAt.Format("2006-01-02 15:04:05"),
			s.CopiedCount(), s.TotalSize()))
	}
}

func runSnapshotRestore(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		ux.Error(err.Error())
		os.Exit(CLIExitError)
	}

	mgr := backup.NewManager(backup.DefaultConfig())
	snap, err := mgr.Open(filepath.Dir(cfg.InstallDir), args[0])
	if err != nil {
		ux.Error(err.Error())
		os.Exit(CLIExitError)
	}

	result, err := mgr.Restore(snap, cfg.InstallDir)
	if err != nil {
		ux.Error(fmt.Sprintf("Restore failed: %v", err))
		os.Exit(CLIExitError)
	}

	ux.Success(fmt.Sprintf("Restored %d paths from %s", len(result.Restored), snap.Name()))
	for _, p := range result.Skipped {
		ux.Muted(fmt.Sprintf("skipped %s (not in snapshot)", p))
	}
}

func runSnapshotPrune(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		ux.Error(err.Error())
		os.Exit(CLIExitError)
	}

	mgr := backup.NewManager(backup.DefaultConfig())
	removed, err := mgr.Prune(filepath.Dir(cfg.InstallDir), pruneKeep)
	if err != nil {
		ux.Error(fmt.Sprintf("Prune failed: %v", err))
		os.Exit(CLIExitError)
	}

	if len(removed) == 0 {
		ux.Info("Nothing to prune")
		return
	}
	for _, name := range removed {
		ux.Muted(fmt.Sprintf("removed %s", name))
	}
	ux.Success(fmt.Sprintf("Pruned %d snapshots, kept %d", len(removed), pruneKeep))
}
