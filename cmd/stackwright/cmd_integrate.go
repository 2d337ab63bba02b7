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
	"strings"

	"github.com/spf13/cobra"

	"github.com/stackwright/stackwright/cmd/stackwright/internal/infra/gitrepo"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/infra/process"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/integrate"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/util"
	"github.com/stackwright/stackwright/pkg/logging"
	"github.com/stackwright/stackwright/pkg/ux"
)

func runIntegrate(cmd *cobra.Command, args []string) {
	os.Exit(integrateMain(args[0]))
}

func integrateMain(repoURL string) int {
	logger := logging.Default()
	defer logger.Close()

	cfg, err := loadConfig()
	if err != nil {
		ux.Error(fmt.Sprintf("Configuration error: %v", err))
		return CLIExitError
	}

	lock := process.NewLock(process.DefaultLockConfig())
	if err := lock.Acquire(); err != nil {
		ux.Error(err.Error())
		return CLIExitError
	}
	defer lock.Release()

	runner := NewIntegrationRunner(
		cfg,
		gitrepo.NewClient(process.NewDefaultManager()),
		util.NewInteractivePrompter(),
		logger,
	)

	ux.Title("Service Integration")
	result, err := runner.Run(context.Background(), IntegrationOptions{
		RepoURL:      repoURL,
		Auto:         autoConfirm,
		NameOverride: overrideName,
	})
	if err != nil && !errors.Is(err, ErrDeclined) {
		logger.Error("integration failed", "error", err)
		ux.Error(err.Error())
		return exitCode(err)
	}
	if result.Declined {
		return CLIExitSuccess
	}

	d := result.Descriptor
	ux.Success(fmt.Sprintf("Integrated %s", d.Name))

	ux.Checklist("Manual follow-ups", []string{
		"Review changes: git diff",
		envFollowUp(d, cfg.EnvFile),
		"Add the service to your setup wizard and secret generation scripts",
		"Update README.md",
	})
	ux.Info(fmt.Sprintf("Test with: docker compose --profile %s up -d", d.Name))
	return CLIExitSuccess
}

// envFollowUp names the env entries the integration left empty: the
// hostname plus every secret placeholder the env block wrote.
func envFollowUp(d integrate.ServiceDescriptor, envFile string) string {
	names := []string{d.EnvPrefix() + "_HOSTNAME"}
	for _, secret := range d.Secrets {
		names = append(names, d.EnvPrefix()+"_"+secret)
	}
	return fmt.Sprintf("Set %s in %s", strings.Join(names, ", "), envFile)
}
