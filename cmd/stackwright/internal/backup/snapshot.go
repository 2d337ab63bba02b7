// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package backup creates and restores snapshots of the preserved paths
of a stack installation.

A snapshot is a plain directory named backup-{timestamp} that mirrors
the preserved paths, plus a manifest.yaml recording what was copied and
what was absent. Keeping snapshots as ordinary directories means an
operator can always recover with cp even if this tool is gone.
*/
package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ===== Errors =====

var (
	// ErrSnapshotNotFound indicates no snapshot matches the given id.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrNoManifest indicates a snapshot directory without a readable
	// manifest, usually a partially written or foreign directory.
	ErrNoManifest = errors.New("snapshot manifest missing")
)

// ===== Types =====

// EntryStatus records whether a preserved path existed at snapshot time.
type EntryStatus string

const (
	// StatusCopied means the path existed and was preserved.
	StatusCopied EntryStatus = "copied"

	// StatusSkipped means the path was absent. Restores skip it too.
	StatusSkipped EntryStatus = "skipped"
)

// Entry describes one preserved path in a snapshot.
type Entry struct {
	// Path is relative to the installation directory.
	Path string `yaml:"path"`

	// Status is copied or skipped.
	Status EntryStatus `yaml:"status"`

	// Dir is true when the path was a directory.
	Dir bool `yaml:"dir,omitempty"`

	// Size is the number of bytes copied.
	Size int64 `yaml:"size,omitempty"`
}

// Manifest is the snapshot metadata written to manifest.yaml.
type Manifest struct {
	// ID uniquely identifies the snapshot.
	ID string `yaml:"id"`

	// CreatedAt is the snapshot creation time.
	CreatedAt time.Time `yaml:"created_at"`

	// InstallDir is the installation the snapshot was taken from.
	InstallDir string `yaml:"install_dir"`

	// Entries lists every preserved path with its outcome.
	Entries []Entry `yaml:"entries"`

	// Volumes holds the stack's named volumes at snapshot time.
	// Advisory only: volume contents are not copied.
	Volumes []string `yaml:"volumes,omitempty"`
}

// Snapshot pairs a snapshot directory with its parsed manifest.
type Snapshot struct {
	Dir      string
	Manifest Manifest
}

// Name returns the snapshot directory base name, used as its id in
// command output.
func (s Snapshot) Name() string {
	return filepath.Base(s.Dir)
}

// CopiedCount returns how many entries were actually preserved.
func (s Snapshot) CopiedCount() int {
	n := 0
	for _, e := range s.Manifest.Entries {
		if e.Status == StatusCopied {
			n++
		}
	}
	return n
}

// TotalSize returns the snapshot payload size in bytes.
func (s Snapshot) TotalSize() int64 {
	var total int64
	for _, e := range s.Manifest.Entries {
		total += e.Size
	}
	return total
}

// RestoreResult reports what a restore put back.
type RestoreResult struct {
	Restored []string
	Skipped  []string
}

// ===== Manager =====

// Config configures snapshot naming.
type Config struct {
	// Prefix is the snapshot directory name prefix.
	// Default: "backup-"
	Prefix string

	// TimeFormat renders the timestamp in snapshot directory names.
	// Default: 2006-01-02_150405
	TimeFormat string
}

// DefaultConfig returns the standard snapshot naming scheme.
func DefaultConfig() Config {
	return Config{
		Prefix:     "backup-",
		TimeFormat: "2006-01-02_150405",
	}
}

const manifestName = "manifest.yaml"

// Manager creates, restores, lists, and prunes snapshots.
//
// Snapshots live next to the installation directory, not inside it, so
// a directory rename or re-clone of the installation never touches them.
type Manager struct {
	config Config

	// now is swapped in tests for deterministic names
	now func() time.Time
}

// NewManager creates a snapshot manager.
func NewManager(config Config) *Manager {
	if config.Prefix == "" {
		config.Prefix = "backup-"
	}
	if config.TimeFormat == "" {
		config.TimeFormat = "2006-01-02_150405"
	}
	return &Manager{config: config, now: time.Now}
}

// Create copies each of paths (relative to installDir) into a new
// snapshot directory under parentDir.
//
// Absent paths are recorded as skipped and never produce an error.
// Any real I/O failure aborts the snapshot: a partial backup that looks
// complete is worse than a failed one.
func (m *Manager) Create(installDir, parentDir string, paths []string) (Snapshot, error) {
	ts := m.now().Format(m.config.TimeFormat)
	snapDir := filepath.Join(parentDir, m.config.Prefix+ts)

	if err := os.MkdirAll(snapDir, 0755); err != nil {
		return Snapshot{}, fmt.Errorf("failed to create snapshot dir %s: %w", snapDir, err)
	}

	manifest := Manifest{
		ID:         uuid.NewString(),
		CreatedAt:  m.now(),
		InstallDir: installDir,
	}

	for _, rel := range paths {
		src := filepath.Join(installDir, rel)
		dst := filepath.Join(snapDir, rel)

		outcome, err := CopyPath(src, dst)
		if err != nil {
			return Snapshot{}, fmt.Errorf("snapshot of %s failed: %w", rel, err)
		}

		entry := Entry{Path: rel, Status: StatusSkipped}
		if outcome.Found {
			entry.Status = StatusCopied
			entry.Dir = outcome.Dir
			entry.Size = outcome.Size
		}
		manifest.Entries = append(manifest.Entries, entry)
	}

	snap := Snapshot{Dir: snapDir, Manifest: manifest}
	if err := m.writeManifest(snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// RecordVolumes stores the stack's volume names in the snapshot, both
// in the manifest and as a plain volumes.txt for operators reading the
// snapshot by hand.
func (m *Manager) RecordVolumes(snap Snapshot, volumes []string) (Snapshot, error) {
	snap.Manifest.Volumes = volumes

	listing := strings.Join(volumes, "\n")
	if listing != "" {
		listing += "\n"
	}
	if err := os.WriteFile(filepath.Join(snap.Dir, "volumes.txt"), []byte(listing), 0644); err != nil {
		return snap, fmt.Errorf("failed to write volume listing: %w", err)
	}

	if err := m.writeManifest(snap); err != nil {
		return snap, err
	}
	return snap, nil
}

// Restore copies every copied entry of the snapshot back into
// installDir. Entries recorded as skipped are skipped again.
func (m *Manager) Restore(snap Snapshot, installDir string) (RestoreResult, error) {
	var result RestoreResult

	for _, entry := range snap.Manifest.Entries {
		if entry.Status != StatusCopied {
			result.Skipped = append(result.Skipped, entry.Path)
			continue
		}

		src := filepath.Join(snap.Dir, entry.Path)
		dst := filepath.Join(installDir, entry.Path)

		outcome, err := CopyPath(src, dst)
		if err != nil {
			return result, fmt.Errorf("restore of %s failed: %w", entry.Path, err)
		}
		if !outcome.Found {
			// Manifest says copied but payload is gone; surface it
			return result, fmt.Errorf("%w: snapshot payload missing for %s", ErrNoManifest, entry.Path)
		}
		result.Restored = append(result.Restored, entry.Path)
	}
	return result, nil
}

// Open loads the snapshot with the given directory name under parentDir.
func (m *Manager) Open(parentDir, name string) (Snapshot, error) {
	dir := filepath.Join(parentDir, name)
	manifest, err := m.readManifest(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		return Snapshot{}, err
	}
	return Snapshot{Dir: dir, Manifest: manifest}, nil
}

// List returns all snapshots under parentDir, newest first.
// Directories without a readable manifest are ignored.
func (m *Manager) List(parentDir string) ([]Snapshot, error) {
	entries, err := os.ReadDir(parentDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", parentDir, err)
	}

	var snaps []Snapshot
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), m.config.Prefix) {
			continue
		}
		dir := filepath.Join(parentDir, entry.Name())
		manifest, err := m.readManifest(dir)
		if err != nil {
			continue
		}
		snaps = append(snaps, Snapshot{Dir: dir, Manifest: manifest})
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].Manifest.CreatedAt.After(snaps[j].Manifest.CreatedAt)
	})
	return snaps, nil
}

// Prune deletes the oldest snapshots beyond keep and returns the
// directory names it removed.
func (m *Manager) Prune(parentDir string, keep int) ([]string, error) {
	if keep < 0 {
		keep = 0
	}

	snaps, err := m.List(parentDir)
	if err != nil {
		return nil, err
	}
	if len(snaps) <= keep {
		return nil, nil
	}

	var removed []string
	for _, snap := range snaps[keep:] {
		if err := os.RemoveAll(snap.Dir); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", snap.Dir, err)
		}
		removed = append(removed, snap.Name())
	}
	return removed, nil
}

func (m *Manager) writeManifest(snap Snapshot) error {
	data, err := yaml.Marshal(snap.Manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	path := filepath.Join(snap.Dir, manifestName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func (m *Manager) readManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return Manifest{}, err
	}
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrNoManifest, err)
	}
	return manifest, nil
}
