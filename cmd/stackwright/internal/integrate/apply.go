// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package integrate

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrDuplicateService means the service is already wired into at
	// least one target file. Nothing is modified when this is returned.
	ErrDuplicateService = errors.New("service already integrated")

	// ErrComposeMissing means the stack's compose manifest does not
	// exist, so there is no stack to integrate into.
	ErrComposeMissing = errors.New("compose manifest not found")

	// ErrServicesNotLast means the manifest ends with a top-level
	// section other than services, so an appended stanza would land in
	// the wrong section. Nothing is modified when this is returned.
	ErrServicesNotLast = errors.New("compose services section must be the last in the manifest")
)

// =============================================================================
// Types
// =============================================================================

// Targets names the three files the integration edits.
type Targets struct {
	ComposeFile string
	EnvFile     string
	Caddyfile   string
}

// FileChange reports what happened to one target file.
type FileChange struct {
	Path    string
	Created bool
}

// Result summarizes a completed integration.
type Result struct {
	Service string
	Compose FileChange
	Env     FileChange
	Caddy   FileChange
}

// Applicator appends rendered blocks to the stack's configuration
// files. All edits are in place; every block is framed by markers so a
// second run for the same service is rejected instead of duplicated.
type Applicator struct {
	targets Targets
}

// NewApplicator returns an Applicator for the given target files.
func NewApplicator(targets Targets) *Applicator {
	return &Applicator{targets: targets}
}

// ===== Markers =====

func markerBegin(name string) string {
	return fmt.Sprintf("# >>> stackwright service: %s >>>", name)
}

func markerEnd(name string) string {
	return fmt.Sprintf("# <<< stackwright service: %s <<<", name)
}

// frame wraps a rendered body in begin and end markers with a leading
// blank line, ready to append.
func frame(name, body string) string {
	return "\n" + markerBegin(name) + "\n" + strings.TrimRight(body, "\n") + "\n" + markerEnd(name) + "\n"
}

// =============================================================================
// Applicator
// =============================================================================

// CheckDuplicate reports whether the service is already present in any
// target file, either by marker or by an existing compose service key.
func (a *Applicator) CheckDuplicate(d ServiceDescriptor) (bool, error) {
	marker := markerBegin(d.Name)
	for _, path := range []string{a.targets.ComposeFile, a.targets.EnvFile, a.targets.Caddyfile} {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("read %s: %w", path, err)
		}
		if strings.Contains(string(data), marker) {
			return true, nil
		}
	}

	// A hand-written service with the same key also counts.
	data, err := os.ReadFile(a.targets.ComposeFile)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", a.targets.ComposeFile, err)
	}
	serviceKeyRe := regexp.MustCompile(`(?m)^  ` + regexp.QuoteMeta(d.Name) + `:\s*$`)
	return serviceKeyRe.MatchString(string(data)), nil
}

// Apply validates the descriptor and appends the rendered blocks to
// all three targets.
//
// The compose manifest must already exist; the env example file and
// the Caddyfile are created when missing and the Result says which
// happened. On ErrDuplicateService no file has been touched.
func (a *Applicator) Apply(d ServiceDescriptor) (Result, error) {
	if err := d.Validate(); err != nil {
		return Result{}, err
	}

	if _, err := os.Stat(a.targets.ComposeFile); os.IsNotExist(err) {
		return Result{}, fmt.Errorf("%w: %s", ErrComposeMissing, a.targets.ComposeFile)
	} else if err != nil {
		return Result{}, fmt.Errorf("stat %s: %w", a.targets.ComposeFile, err)
	}

	dup, err := a.CheckDuplicate(d)
	if err != nil {
		return Result{}, err
	}
	if dup {
		return Result{}, fmt.Errorf("%w: %s", ErrDuplicateService, d.Name)
	}

	result := Result{Service: d.Name}

	if result.Compose, err = a.applyCompose(d); err != nil {
		return result, err
	}
	if result.Env, err = appendBlock(a.targets.EnvFile, frame(d.Name, EnvBlock(d))); err != nil {
		return result, err
	}
	if result.Caddy, err = appendBlock(a.targets.Caddyfile, frame(d.Name, CaddyBlock(d))); err != nil {
		return result, err
	}
	return result, nil
}

// topLevelVolumesRe matches an unindented volumes section header.
var topLevelVolumesRe = regexp.MustCompile(`(?m)^volumes:[ \t]*$`)

// topLevelKeyRe matches any unindented mapping key.
var topLevelKeyRe = regexp.MustCompile(`(?m)^([A-Za-z][A-Za-z0-9_-]*):`)

// applyCompose registers the data volume under the top-level volumes
// section and appends the service stanza at the end of the manifest.
//
// The stanza append relies on services being the last top-level
// section, which is why a missing volumes section is created at the
// top of the file rather than the bottom.
func (a *Applicator) applyCompose(d ServiceDescriptor) (FileChange, error) {
	path := a.targets.ComposeFile
	data, err := os.ReadFile(path)
	if err != nil {
		return FileChange{}, fmt.Errorf("read %s: %w", path, err)
	}

	content := string(data)

	// The stanza is appended at the end of the file, which only yields
	// valid YAML when the trailing top-level section is services.
	keys := topLevelKeyRe.FindAllStringSubmatch(content, -1)
	if len(keys) == 0 || keys[len(keys)-1][1] != "services" {
		return FileChange{}, fmt.Errorf("%w: %s", ErrServicesNotLast, path)
	}

	if loc := topLevelVolumesRe.FindStringIndex(content); loc != nil {
		content = content[:loc[1]] + "\n" + VolumeEntry(d) + strings.TrimPrefix(content[loc[1]:], "\n")
	} else {
		content = "volumes:\n" + VolumeEntry(d) + "\n" + content
	}
	content += frame(d.Name, ComposeStanza(d))

	if err := writeInPlace(path, content); err != nil {
		return FileChange{}, err
	}
	return FileChange{Path: path}, nil
}

// appendBlock appends the framed block to path, creating the file when
// it does not exist.
func appendBlock(path, block string) (FileChange, error) {
	_, err := os.Stat(path)
	created := os.IsNotExist(err)
	if err != nil && !created {
		return FileChange{}, fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return FileChange{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if created {
		block = strings.TrimPrefix(block, "\n")
	}
	if _, err := f.WriteString(block); err != nil {
		return FileChange{}, fmt.Errorf("write %s: %w", path, err)
	}
	return FileChange{Path: path, Created: created}, nil
}

// writeInPlace rewrites path preserving its permissions.
func writeInPlace(path, content string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
