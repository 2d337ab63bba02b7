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
	"path/filepath"
	"strings"

	"github.com/stackwright/stackwright/cmd/stackwright/config"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/analyze"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/infra/gitrepo"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/integrate"
	"github.com/stackwright/stackwright/cmd/stackwright/internal/util"
	"github.com/stackwright/stackwright/pkg/logging"
	"github.com/stackwright/stackwright/pkg/ux"
)

// ErrNoContainerSupport means the target repository ships neither a
// compose manifest nor a Dockerfile, so there is nothing to integrate.
var ErrNoContainerSupport = errors.New("repository has no container support")

// IntegrationOptions adjusts an integration run.
type IntegrationOptions struct {
	// RepoURL is the repository to analyze and integrate.
	RepoURL string

	// Auto accepts every detected value without prompting.
	Auto bool

	// NameOverride replaces the derived service name.
	NameOverride string
}

// IntegrationResult reports what an integration run did.
type IntegrationResult struct {
	Declined   bool
	Analysis   analyze.Analysis
	Descriptor integrate.ServiceDescriptor
	Applied    integrate.Result
}

// IntegrationRunner clones, analyzes, confirms, and applies.
type IntegrationRunner struct {
	cfg      config.Config
	git      *gitrepo.Client
	prompter util.UserPrompter
	logger   *logging.Logger

	// mkTemp is swapped in tests to control the clone destination
	mkTemp func() (string, error)
}

// NewIntegrationRunner wires a runner from its dependencies.
func NewIntegrationRunner(
	cfg config.Config,
	git *gitrepo.Client,
	prompter util.UserPrompter,
	logger *logging.Logger,
) *IntegrationRunner {
	return &IntegrationRunner{
		cfg:      cfg,
		git:      git,
		prompter: prompter,
		logger:   logger,
		mkTemp: func() (string, error) {
			return os.MkdirTemp("", "stackwright-integrate-*")
		},
	}
}

// Run executes the integration sequence. The clone lives in a
// temporary directory that is removed before returning.
func (r *IntegrationRunner) Run(ctx context.Context, opts IntegrationOptions) (IntegrationResult, error) {
	result := IntegrationResult{}

	tempDir, err := r.mkTemp()
	if err != nil {
		return result, fmt.Errorf("could not create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	ux.Info(fmt.Sprintf("Analyzing %s", opts.RepoURL))
	cloneCtx, cancel := context.WithTimeout(ctx, r.cfg.CloneTimeout())
	err = r.git.CloneShallow(cloneCtx, opts.RepoURL, tempDir)
	cancel()
	if err != nil {
		return result, err
	}

	analysis := analyze.Analyze(tempDir, opts.RepoURL)
	result.Analysis = analysis
	r.printAnalysis(analysis)

	if analysis.ComposeParse == analyze.SourceNone {
		if _, err := os.Stat(filepath.Join(tempDir, "Dockerfile")); os.IsNotExist(err) {
			return result, fmt.Errorf("%w: %s", ErrNoContainerSupport, opts.RepoURL)
		}
	}

	descriptor, err := r.confirmDescriptor(analysis, opts)
	if err != nil {
		return result, err
	}
	result.Descriptor = descriptor

	r.printSummary(descriptor)
	if !opts.Auto {
		confirmed, err := r.prompter.Confirm("Proceed with the integration?")
		if err != nil {
			return result, err
		}
		if !confirmed {
			result.Declined = true
			ux.Info("Integration cancelled, nothing was changed")
			return result, ErrDeclined
		}
	}

	applicator := integrate.NewApplicator(r.targets())
	applied, err := applicator.Apply(descriptor)
	if err != nil {
		return result, err
	}
	result.Applied = applied

	r.logger.Info("service integrated",
		"service", descriptor.Name, "image", descriptor.Image, "port", descriptor.Port)
	return result, nil
}

// targets maps the configuration onto the three files the applicator
// edits.
func (r *IntegrationRunner) targets() integrate.Targets {
	return integrate.Targets{
		ComposeFile: filepath.Join(r.cfg.InstallDir, r.cfg.ComposeFile),
		EnvFile:     filepath.Join(r.cfg.InstallDir, r.cfg.EnvExampleFile),
		Caddyfile:   filepath.Join(r.cfg.InstallDir, r.cfg.Caddyfile),
	}
}

// confirmDescriptor turns the analysis into an operator-approved
// descriptor, prompting per field unless running with Auto.
func (r *IntegrationRunner) confirmDescriptor(analysis analyze.Analysis, opts IntegrationOptions) (integrate.ServiceDescriptor, error) {
	d := integrate.FromAnalysis(analysis, opts.RepoURL)
	if opts.NameOverride != "" {
		d.Name = integrate.SanitizeName(opts.NameOverride)
		d.Hostname = d.Name
	}

	if !opts.Auto {
		fields := []struct {
			label string
			value *string
		}{
			{"Service name", &d.Name},
			{"Display name", &d.DisplayName},
			{"Description", &d.Description},
			{"Internal port", &d.Port},
			{"Docker image", &d.Image},
			{"Hostname subdomain", &d.Hostname},
		}
		for _, f := range fields {
			answer, err := r.prompter.Input(f.label, *f.value)
			if err != nil {
				return d, err
			}
			*f.value = answer
		}
		d.Name = integrate.SanitizeName(d.Name)

		secrets, err := r.prompter.Input("Secret names (comma-separated)", strings.Join(d.Secrets, ", "))
		if err != nil {
			return d, err
		}
		d.Secrets = parseSecretList(secrets)
	}

	if err := d.Validate(); err != nil {
		return d, err
	}
	return d, nil
}

// parseSecretList splits an operator-entered secrets answer into the
// uppercase names the env block renders. Empty entries are dropped.
func parseSecretList(answer string) []string {
	var secrets []string
	for _, part := range strings.Split(answer, ",") {
		name := strings.ToUpper(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		secrets = append(secrets, name)
	}
	return secrets
}

// printAnalysis shows the detection results with their provenance so
// the operator can weigh structured values against pattern guesses.
func (r *IntegrationRunner) printAnalysis(a analyze.Analysis) {
	ux.Title("Analysis Results")
	ux.KeyValue("repository", a.RepoName)
	ux.KeyValue("compose_parse", string(a.ComposeParse))
	printDetection("image", a.Image)
	printDetection("port", a.Port)
	printDetection("title", a.Title)
	printDetection("description", a.Description)
	ux.KeyValue("needs_postgres", fmt.Sprintf("%t", a.NeedsPostgres))
	ux.KeyValue("needs_redis", fmt.Sprintf("%t", a.NeedsRedis))
	ux.KeyValue("needs_mysql", fmt.Sprintf("%t", a.NeedsMySQL))
	if len(a.EnvVars) > 0 {
		ux.KeyValue("env_vars", strings.Join(a.EnvVars, ", "))
	}
}

func printDetection(key string, d analyze.Detection) {
	if !d.Found() {
		ux.KeyValue(key, "(not detected)")
		return
	}
	ux.KeyValue(key, fmt.Sprintf("%s  [%s]", d.Value, d.Source))
}

// printSummary shows the final descriptor before the confirmation.
func (r *IntegrationRunner) printSummary(d integrate.ServiceDescriptor) {
	ux.Title("Service Configuration")
	ux.KeyValue("name", d.Name)
	ux.KeyValue("display_name", d.DisplayName)
	ux.KeyValue("description", d.Description)
	ux.KeyValue("port", d.Port)
	ux.KeyValue("image", d.Image)
	ux.KeyValue("hostname", d.Hostname+".yourdomain.com")
	ux.KeyValue("secrets", strings.Join(d.Secrets, ", "))
	ux.KeyValue("needs_postgres", fmt.Sprintf("%t", d.NeedsPostgres))
	ux.KeyValue("needs_redis", fmt.Sprintf("%t", d.NeedsRedis))
}
