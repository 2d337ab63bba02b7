// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analyze

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// readmeCandidates are probed in order; the first that exists wins.
var readmeCandidates = []string{"README.md", "readme.md", "README", "README.txt"}

// descriptionLimit caps the summary shown to the operator.
const descriptionLimit = 200

// readmeResult carries the project title and summary from the README.
type readmeResult struct {
	Title       Detection
	Description Detection
}

// scanReadme extracts a title from the first heading and a description
// from the first paragraph line near the top of the README.
func scanReadme(dir string) readmeResult {
	result := readmeResult{
		Title:       Detection{Source: SourceNone},
		Description: Detection{Source: SourceNone},
	}

	var data []byte
	for _, name := range readmeCandidates {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			data = b
			break
		}
	}
	if data == nil {
		return result
	}

	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if !result.Title.Found() && strings.HasPrefix(trimmed, "# ") {
			result.Title = Detection{
				Value:  strings.TrimSpace(strings.TrimPrefix(trimmed, "# ")),
				Source: SourceHeuristic,
			}
			continue
		}

		// First prose line in the top of the file serves as summary
		if !result.Description.Found() && i < 20 && !strings.HasPrefix(trimmed, "#") &&
			!strings.HasPrefix(trimmed, "!") && !strings.HasPrefix(trimmed, "[") {
			result.Description = Detection{
				Value:  truncate(trimmed, descriptionLimit),
				Source: SourceHeuristic,
			}
		}

		if result.Title.Found() && result.Description.Found() {
			break
		}
	}
	return result
}

// packageJSON is the subset of package.json used for Node projects.
type packageJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// scanPackageJSON reads name and description from package.json.
func scanPackageJSON(dir string) readmeResult {
	result := readmeResult{
		Title:       Detection{Source: SourceNone},
		Description: Detection{Source: SourceNone},
	}

	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return result
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return result
	}

	if pkg.Name != "" {
		result.Title = Detection{Value: pkg.Name, Source: SourceStructured}
	}
	if pkg.Description != "" {
		result.Description = Detection{
			Value:  truncate(pkg.Description, descriptionLimit),
			Source: SourceStructured,
		}
	}
	return result
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
