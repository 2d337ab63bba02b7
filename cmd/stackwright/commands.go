// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"

	"github.com/stackwright/stackwright/pkg/ux"
)

// --- Global Command Variables ---
var (
	configPath       string
	personalityLevel string // UX personality level (full/standard/minimal/machine)

	assumeYes bool // replace: skip the confirmation prompt

	autoConfirm  bool   // integrate: accept all detected defaults
	overrideName string // integrate: service name override

	pruneKeep int // snapshot prune: snapshots to retain

	followLogs bool // stack logs: stream until interrupted
	tailLines  int  // stack logs: lines of history per service

	jsonOutput bool // stack status: machine-readable output

	rootCmd = &cobra.Command{
		Use:   "stackwright",
		Short: "Operations toolkit for a self-hosted n8n automation stack",
		Long: `Stackwright manages the lifecycle of a docker-compose based n8n
installation: replacing the installation with a fresh upstream clone
while preserving its data, and wiring new services into the stack.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if personalityLevel != "" {
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
			} else {
				ux.InitPersonality()
			}
		},
	}

	// --- Repository Replacement ---
	replaceCmd = &cobra.Command{
		Use:   "replace",
		Short: "Replace the installation with a fresh upstream clone, preserving data",
		Long: `Replace stops the stack, snapshots the preserved paths, moves the
current installation aside, clones the replacement repository in its
place, and restores the snapshot into the new tree. The old tree is
kept next to the installation until you delete it yourself.`,
		Run: runReplace, // Defined in cmd_replace.go
	}

	// --- Service Integration ---
	integrateCmd = &cobra.Command{
		Use:   "integrate [github_url]",
		Short: "Analyze a repository and wire its service into the stack",
		Args:  cobra.ExactArgs(1),
		Run:   runIntegrate, // Defined in cmd_integrate.go
	}

	// --- Snapshots ---
	snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Manage replacement snapshots",
	}
	snapshotListCmd = &cobra.Command{
		Use:   "list",
		Short: "List snapshots next to the installation",
		Run:   runSnapshotList, // Defined in cmd_snapshot.go
	}
	snapshotRestoreCmd = &cobra.Command{
		Use:   "restore [snapshot_name]",
		Short: "Restore a snapshot into the installation",
		Args:  cobra.ExactArgs(1),
		Run:   runSnapshotRestore, // Defined in cmd_snapshot.go
	}
	snapshotPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Delete old snapshots, keeping the most recent ones",
		Run:   runSnapshotPrune, // Defined in cmd_snapshot.go
	}

	// --- Stack Management ---
	stackCmd = &cobra.Command{
		Use:   "stack",
		Short: "Operate the stack's containers",
	}
	stackStopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop all services of the stack",
		Run:   runStackStop, // Defined in cmd_stack.go
	}
	stackStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the state of the stack's containers",
		Run:   runStackStatus, // Defined in cmd_stack.go
	}
	stackLogsCmd = &cobra.Command{
		Use:   "logs [service_name]",
		Short: "Show logs from the stack's containers",
		Args:  cobra.MaximumNArgs(1),
		Run:   runStackLogs, // Defined in cmd_stack.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to the stackwright config file")
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"output personality: full, standard, minimal, machine")

	replaceCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false,
		"proceed without the confirmation prompt")

	integrateCmd.Flags().BoolVar(&autoConfirm, "auto", false,
		"accept all detected values without prompting")
	integrateCmd.Flags().StringVar(&overrideName, "name", "",
		"service name to use instead of the derived one")

	snapshotPruneCmd.Flags().IntVar(&pruneKeep, "keep", 3,
		"number of snapshots to retain")

	stackLogsCmd.Flags().BoolVarP(&followLogs, "follow", "f", false,
		"stream logs until interrupted")
	stackLogsCmd.Flags().IntVar(&tailLines, "tail", 0,
		"lines of log history per service (0 for all)")

	stackStatusCmd.Flags().BoolVar(&jsonOutput, "json", false,
		"emit container status as JSON")

	snapshotCmd.AddCommand(snapshotListCmd, snapshotRestoreCmd, snapshotPruneCmd)
	stackCmd.AddCommand(stackStopCmd, stackStatusCmd, stackLogsCmd)
	rootCmd.AddCommand(replaceCmd, integrateCmd, snapshotCmd, stackCmd)
}
