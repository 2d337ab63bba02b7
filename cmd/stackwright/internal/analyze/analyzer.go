// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analyze

import (
	"strings"
)

// Analyze inspects the repository checked out at dir.
//
// repoURL is only used to derive the repository name; dir is expected
// to hold a fresh shallow clone. Detection never fails: missing files
// simply leave their fields at SourceNone.
func Analyze(dir, repoURL string) Analysis {
	analysis := Analysis{
		RepoName: RepoNameFromURL(repoURL),
	}

	compose := scanCompose(dir)
	analysis.Image = compose.Image
	analysis.Port = compose.Port
	analysis.EnvVars = compose.EnvVars
	analysis.NeedsPostgres = compose.NeedsPostgres
	analysis.NeedsRedis = compose.NeedsRedis
	analysis.NeedsMySQL = compose.NeedsMySQL
	analysis.ComposeParse = compose.Source

	dockerfile := scanDockerfile(dir)
	if !analysis.Port.Found() && len(dockerfile.Ports) > 0 {
		analysis.Port = Detection{Value: dockerfile.Ports[0], Source: SourceHeuristic}
	}
	for _, name := range dockerfile.EnvVars {
		if !containsString(analysis.EnvVars, name) {
			analysis.EnvVars = append(analysis.EnvVars, name)
		}
	}

	readme := scanReadme(dir)
	analysis.Title = readme.Title
	analysis.Description = readme.Description

	// package.json fills whatever the README left open
	pkg := scanPackageJSON(dir)
	if !analysis.Title.Found() {
		analysis.Title = pkg.Title
	}
	if !analysis.Description.Found() {
		analysis.Description = pkg.Description
	}

	return analysis
}

// RepoNameFromURL derives the repository base name from a git URL.
//
//	https://github.com/docmost/docmost     -> docmost
//	git@github.com:owner/repo.git          -> repo
func RepoNameFromURL(repoURL string) string {
	name := strings.TrimSuffix(repoURL, "/")
	if idx := strings.LastIndexAny(name, "/:"); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.TrimSuffix(name, ".git")
	return name
}

// OwnerRepoFromURL derives "owner/repo" from a git URL, used for the
// default image reference. Returns "" when the URL has no owner part.
func OwnerRepoFromURL(repoURL string) string {
	cleaned := strings.TrimSuffix(strings.TrimSuffix(repoURL, "/"), ".git")
	cleaned = strings.TrimPrefix(cleaned, "git@")
	cleaned = strings.ReplaceAll(cleaned, ":", "/")
	parts := strings.Split(cleaned, "/")
	if len(parts) < 2 {
		return ""
	}
	owner, repo := parts[len(parts)-2], parts[len(parts)-1]
	if owner == "" || repo == "" || strings.Contains(owner, ".") {
		// The second-to-last segment being a host means there is no owner
		return ""
	}
	return owner + "/" + repo
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
