// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stackwright/stackwright/cmd/stackwright/internal/infra/compose"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/infra/process"
	"github.com/stackwright/stackwright/pkg/ux"
)

// stackExecutor builds the compose executor for the configured
// installation.
func stackExecutor() (compose.Executor, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return compose.NewExecutor(compose.Config{
		InstallDir:     cfg.InstallDir,
		ComposeFile:    cfg.ComposeFile,
		ProjectName:    cfg.ProjectName,
		DefaultTimeout: cfg.StopTimeout(),
	}, process.NewDefaultManager())
}

func runStackStop(cmd *cobra.Command, args []string) {
	executor, err := stackExecutor()
	if err != nil {
		ux.Error(err.Error())
		os.Exit(CLIExitError)
	}

	err = ux.WithSpinner("Stopping the stack", func() error {
		_, err := executor.Stop(context.Background(), compose.StopOptions{})
		return err
	})
	if err != nil {
		ux.Error(fmt.Sprintf("Stop failed: %v", err))
		os.Exit(CLIExitError)
	}
	ux.Success("Stack stopped")
}

func runStackStatus(cmd *cobra.Command, args []string) {
	executor, err := stackExecutor()
	if err != nil {
		ux.Error(err.Error())
		os.Exit(CLIExitError)
	}

	statuses, err := executor.Status(context.Background())
	if err != nil {
		ux.Error(fmt.Sprintf("Status failed: %v", err))
		os.Exit(CLIExitError)
	}

	if jsonOutput {
		result := CommandResult{
			APIVersion: "1.0",
			Command:    "stack status",
			Timestamp:  time.Now(),
			Success:    true,
			Data:       statuses,
		}
		if err := OutputJSON(result); err != nil {
			ux.Error(fmt.Sprintf("Failed to encode JSON: %v", err))
			os.Exit(CLIExitError)
		}
		return
	}

	if len(statuses) == 0 {
		ux.Info("No containers are running")
		return
	}
	for _, s := range statuses {
		ux.KeyValue(s.Service, fmt.Sprintf("%s (%s)", s.State, s.Status))
	}
}

func runStackLogs(cmd *cobra.Command, args []string) {
	executor, err := stackExecutor()
	if err != nil {
		ux.Error(err.Error())
		os.Exit(CLIExitError)
	}

	opts := compose.LogsOptions{Follow: followLogs, Tail: tailLines}
	if len(args) > 0 {
		opts.Service = args[0]
	}

	if err := executor.Logs(context.Background(), os.Stdout, opts); err != nil {
		ux.Error(fmt.Sprintf("Logs failed: %v", err))
		os.Exit(CLIExitError)
	}
}
