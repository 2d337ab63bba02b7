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
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// composeCandidates are the manifest names probed in the target repo.
var composeCandidates = []string{
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

// infraServices are compose service names that describe backing stores
// rather than the application itself.
var infraServices = map[string]bool{
	"postgres":   true,
	"postgresql": true,
	"db":         true,
	"database":   true,
	"redis":      true,
	"valkey":     true,
	"mysql":      true,
	"mariadb":    true,
	"cache":      true,
}

// composeResult carries everything learned from the target's compose
// manifest.
type composeResult struct {
	Image   Detection
	Port    Detection
	EnvVars []string
	Source  Source

	NeedsPostgres bool
	NeedsRedis    bool
	NeedsMySQL    bool
}

// scanCompose locates and inspects the repository's compose manifest.
//
// A structured YAML parse is attempted first; if the file is absent the
// result source is none, and if the parse fails the line-pattern
// fallback takes over. The chosen path is recorded so the operator can
// weigh the confidence of the values.
func scanCompose(dir string) composeResult {
	var data []byte
	for _, name := range composeCandidates {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			data = b
			break
		}
	}
	if data == nil {
		return composeResult{
			Image:  Detection{Source: SourceNone},
			Port:   Detection{Source: SourceNone},
			Source: SourceNone,
		}
	}

	result, ok := parseComposeStructured(data)
	if !ok {
		result = parseComposeHeuristic(data)
	}

	// Backing-store mentions are substring checks on the raw text, so
	// image names, depends_on entries, and env values all count.
	text := strings.ToLower(string(data))
	result.NeedsPostgres = strings.Contains(text, "postgres")
	result.NeedsRedis = strings.Contains(text, "redis")
	result.NeedsMySQL = strings.Contains(text, "mysql") || strings.Contains(text, "mariadb")

	return result
}

// ===== Structured path =====

type composeManifest struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Image       string   `yaml:"image"`
	Ports       []string `yaml:"ports"`
	Environment envBlock `yaml:"environment"`
}

// envBlock accepts both the mapping and the sequence form of a compose
// environment section.
type envBlock struct {
	names []string
}

func (e *envBlock) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(value.Content); i += 2 {
			e.names = append(e.names, value.Content[i].Value)
		}
	case yaml.SequenceNode:
		for _, item := range value.Content {
			name := item.Value
			if idx := strings.IndexAny(name, "=:"); idx > 0 {
				name = name[:idx]
			}
			name = strings.TrimSpace(name)
			if name != "" {
				e.names = append(e.names, name)
			}
		}
	}
	return nil
}

// parseComposeStructured decodes the manifest and picks the application
// service. Returns ok=false when the document doesn't decode into the
// expected shape, which sends the caller to the heuristic path.
func parseComposeStructured(data []byte) (composeResult, bool) {
	var manifest composeManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return composeResult{}, false
	}
	if len(manifest.Services) == 0 {
		return composeResult{}, false
	}

	// Map iteration is randomized; sorted names with infra services
	// pushed last makes the pick deterministic.
	names := make([]string, 0, len(manifest.Services))
	for name := range manifest.Services {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ii, ij := infraServices[strings.ToLower(names[i])], infraServices[strings.ToLower(names[j])]
		if ii != ij {
			return !ii
		}
		return names[i] < names[j]
	})

	result := composeResult{
		Image:  Detection{Source: SourceNone},
		Port:   Detection{Source: SourceNone},
		Source: SourceStructured,
	}

	for _, name := range names {
		svc := manifest.Services[name]
		if !result.Image.Found() && svc.Image != "" {
			result.Image = Detection{Value: svc.Image, Source: SourceStructured}
		}
		if !result.Port.Found() {
			for _, port := range svc.Ports {
				if host := hostPort(port); host != "" {
					result.Port = Detection{Value: host, Source: SourceStructured}
					break
				}
			}
		}
		if len(result.EnvVars) == 0 && !infraServices[strings.ToLower(name)] {
			result.EnvVars = append(result.EnvVars, svc.Environment.names...)
		}
	}
	return result, true
}

// hostPort extracts the host port from a compose port mapping.
//
//	"3000:3000"        -> "3000"
//	"127.0.0.1:8080:80" -> "8080"
//	"3000"             -> "3000"
func hostPort(mapping string) string {
	mapping = strings.Trim(mapping, `"' `)
	if idx := strings.Index(mapping, "/"); idx >= 0 {
		mapping = mapping[:idx]
	}
	parts := strings.Split(mapping, ":")
	var candidate string
	switch len(parts) {
	case 1:
		candidate = parts[0]
	case 2:
		candidate = parts[0]
	default:
		candidate = parts[len(parts)-2]
	}
	if candidate == "" || !isDigits(candidate) {
		return ""
	}
	return candidate
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ===== Heuristic path =====

var (
	imageLineRe = regexp.MustCompile(`^\s*image:\s*["']?([^"'\s]+)`)
	portLineRe  = regexp.MustCompile(`^\s*-\s*["']?(\d+):`)
	envLineRe   = regexp.MustCompile(`^\s*-\s*([A-Z_][A-Z0-9_]*)\s*[=:]`)
	envHeaderRe = regexp.MustCompile(`^(\s*)environment:\s*$`)
)

// parseComposeHeuristic recovers what it can with line patterns: the
// first image line, the first published port, and env names inside
// environment blocks.
func parseComposeHeuristic(data []byte) composeResult {
	result := composeResult{
		Image:  Detection{Source: SourceNone},
		Port:   Detection{Source: SourceNone},
		Source: SourceHeuristic,
	}

	inEnv := false
	envIndent := 0
	seen := map[string]bool{}

	for _, line := range strings.Split(string(data), "\n") {
		if m := envHeaderRe.FindStringSubmatch(line); m != nil {
			inEnv = true
			envIndent = len(m[1])
			continue
		}
		if inEnv {
			trimmed := strings.TrimLeft(line, " ")
			indent := len(line) - len(trimmed)
			if trimmed != "" && indent <= envIndent {
				inEnv = false
			} else if m := envLineRe.FindStringSubmatch(line); m != nil {
				if !seen[m[1]] {
					seen[m[1]] = true
					result.EnvVars = append(result.EnvVars, m[1])
				}
				continue
			}
		}

		if !result.Image.Found() {
			if m := imageLineRe.FindStringSubmatch(line); m != nil {
				result.Image = Detection{Value: m[1], Source: SourceHeuristic}
				continue
			}
		}
		if !result.Port.Found() {
			if m := portLineRe.FindStringSubmatch(line); m != nil {
				result.Port = Detection{Value: m[1], Source: SourceHeuristic}
			}
		}
	}
	return result
}
