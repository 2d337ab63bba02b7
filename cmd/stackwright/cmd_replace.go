// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackwright/stackwright/cmd/stackwright/internal/backup"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/infra/compose"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/infra/gitrepo"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/infra/process"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/util"
	"github.com/stackwright/stackwright/pkg/logging"
	"github.com/stackwright/stackwright/pkg/ux"
)

func runReplace(cmd *cobra.Command, args []string) {
	os.Exit(replaceMain())
}

// replaceMain is split out so the exit code has one source.
func replaceMain() int {
	logger := logging.Default()
	defer logger.Close()

	cfg, err := loadConfig()
	if err != nil {
		ux.Error(fmt.Sprintf("Configuration error: %v", err))
		return CLIExitError
	}

	// Only one mutating stackwright may run at a time.
	lock := process.NewLock(process.DefaultLockConfig())
	if err := lock.Acquire(); err != nil {
		ux.Error(err.Error())
		return CLIExitError
	}
	defer lock.Release()

	proc := process.NewDefaultManager()
	executor, err := compose.NewExecutor(compose.Config{
		InstallDir:     cfg.InstallDir,
		ComposeFile:    cfg.ComposeFile,
		ProjectName:    cfg.ProjectName,
		DefaultTimeout: cfg.StopTimeout(),
	}, proc)
	if err != nil {
		ux.Error(err.Error())
		return CLIExitError
	}

	mgr := NewReplaceManager(
		cfg,
		executor,
		backup.NewManager(backup.DefaultConfig()),
		gitrepo.NewClient(proc),
		util.NewInteractivePrompter(),
		logger,
	)

	ux.Title("Repository Replacement")
	result, err := mgr.Run(context.Background(), ReplaceOptions{AssumeYes: assumeYes})
	if err != nil && !errors.Is(err, ErrDeclined) {
		logger.Error("replacement failed", "error", err)
		ux.Error(err.Error())
		return exitCode(err)
	}
	if result.Declined {
		return CLIExitSuccess
	}

	ux.Success("Replacement complete")
	ux.KeyValue("snapshot", result.SnapshotDir)
	ux.KeyValue("old_tree", result.OldDir)

	ux.Checklist("Manual follow-ups", []string{
		fmt.Sprintf("Compare your preserved .env against the new %s template", cfg.EnvExampleFile),
		"Review the new docker-compose.yml for renamed or added services",
		"Re-apply any local patches you carried in the old tree",
		"Start the stack and verify your workflows still run",
		fmt.Sprintf("Delete %s once you are satisfied", result.OldDir),
	})
	return CLIExitSuccess
}
