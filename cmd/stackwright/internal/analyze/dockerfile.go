// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analyze

import (
	"os"
	"path/filepath"
	"regexp"
)

var (
	exposeRe = regexp.MustCompile(`(?im)^\s*EXPOSE\s+(\d+)`)
	envDefRe = regexp.MustCompile(`(?im)^\s*ENV\s+([A-Z_][A-Z0-9_]*)`)
)

// dockerfileResult carries ports and env names from a Dockerfile.
type dockerfileResult struct {
	Ports   []string
	EnvVars []string
}

// scanDockerfile reads the repository's Dockerfile, if any.
//
// EXPOSE ports back up the compose port detection, and ENV names feed
// the environment variable summary shown to the operator.
func scanDockerfile(dir string) dockerfileResult {
	data, err := os.ReadFile(filepath.Join(dir, "Dockerfile"))
	if err != nil {
		return dockerfileResult{}
	}

	var result dockerfileResult
	for _, m := range exposeRe.FindAllSubmatch(data, -1) {
		result.Ports = append(result.Ports, string(m[1]))
	}

	seen := map[string]bool{}
	for _, m := range envDefRe.FindAllSubmatch(data, -1) {
		name := string(m[1])
		if !seen[name] {
			seen[name] = true
			result.EnvVars = append(result.EnvVars, name)
		}
	}
	return result
}
