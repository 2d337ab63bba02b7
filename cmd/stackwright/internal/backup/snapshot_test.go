// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package backup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestInstall builds a minimal installation with a mix of present
// and absent preserved paths.
func newTestInstall(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("KEY=value\n"), 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "shared"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shared", "data.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Caddyfile"), []byte("n8n.example.com {\n}\n"), 0644))

	return dir
}

func TestCreate_CopiedAndSkippedEntries(t *testing.T) {
	install := newTestInstall(t)
	parent := t.TempDir()
	m := NewManager(DefaultConfig())

	snap, err := m.Create(install, parent, []string{".env", "shared", "grafana", "Caddyfile"})
	require.NoError(t, err)

	assert.NotEmpty(t, snap.Manifest.ID)
	assert.Equal(t, install, snap.Manifest.InstallDir)
	require.Len(t, snap.Manifest.Entries, 4)

	byPath := map[string]Entry{}
	for _, e := range snap.Manifest.Entries {
		byPath[e.Path] = e
	}
	assert.Equal(t, StatusCopied, byPath[".env"].Status)
	assert.Equal(t, StatusCopied, byPath["shared"].Status)
	assert.True(t, byPath["shared"].Dir)
	assert.Equal(t, StatusSkipped, byPath["grafana"].Status, "absent path must be skipped, not an error")
	assert.Equal(t, StatusCopied, byPath["Caddyfile"].Status)

	// Payload mirrors the install layout
	data, err := os.ReadFile(filepath.Join(snap.Dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, "KEY=value\n", string(data))

	// Manifest round-trips
	reopened, err := m.Open(parent, snap.Name())
	require.NoError(t, err)
	assert.Equal(t, snap.Manifest.ID, reopened.Manifest.ID)
}

func TestRestore_PutsContentBack(t *testing.T) {
	install := newTestInstall(t)
	parent := t.TempDir()
	m := NewManager(DefaultConfig())

	snap, err := m.Create(install, parent, []string{".env", "shared", "grafana"})
	require.NoError(t, err)

	// Fresh clone stands in for the replacement checkout
	fresh := t.TempDir()
	result, err := m.Restore(snap, fresh)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{".env", "shared"}, result.Restored)
	assert.Equal(t, []string{"grafana"}, result.Skipped)

	data, err := os.ReadFile(filepath.Join(fresh, ".env"))
	require.NoError(t, err)
	assert.Equal(t, "KEY=value\n", string(data), "restored content must be byte-identical")

	_, err = os.Stat(filepath.Join(fresh, "grafana"))
	assert.True(t, os.IsNotExist(err), "skipped entries must not be fabricated on restore")
}

func TestRecordVolumes(t *testing.T) {
	install := newTestInstall(t)
	parent := t.TempDir()
	m := NewManager(DefaultConfig())

	snap, err := m.Create(install, parent, []string{".env"})
	require.NoError(t, err)

	snap, err = m.RecordVolumes(snap, []string{"localai_n8n_storage", "localai_caddy-data"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(snap.Dir, "volumes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "localai_n8n_storage\nlocalai_caddy-data\n", string(data))

	reopened, err := m.Open(parent, snap.Name())
	require.NoError(t, err)
	assert.Equal(t, []string{"localai_n8n_storage", "localai_caddy-data"}, reopened.Manifest.Volumes)
}

func TestList_NewestFirst(t *testing.T) {
	install := newTestInstall(t)
	parent := t.TempDir()

	m := NewManager(DefaultConfig())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		stamp := base.Add(time.Duration(i) * time.Hour)
		m.now = func() time.Time { return stamp }
		_, err := m.Create(install, parent, []string{".env"})
		require.NoError(t, err)
	}

	snaps, err := m.List(parent)
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	assert.True(t, snaps[0].Manifest.CreatedAt.After(snaps[1].Manifest.CreatedAt))
	assert.True(t, snaps[1].Manifest.CreatedAt.After(snaps[2].Manifest.CreatedAt))
}

func TestList_IgnoresForeignDirs(t *testing.T) {
	parent := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(parent, "backup-bogus"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(parent, "unrelated"), 0755))

	m := NewManager(DefaultConfig())
	snaps, err := m.List(parent)
	require.NoError(t, err)
	assert.Empty(t, snaps, "dirs without manifests are not snapshots")
}

func TestPrune_KeepsNewest(t *testing.T) {
	install := newTestInstall(t)
	parent := t.TempDir()

	m := NewManager(DefaultConfig())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		stamp := base.Add(time.Duration(i) * time.Hour)
		m.now = func() time.Time { return stamp }
		_, err := m.Create(install, parent, []string{".env"})
		require.NoError(t, err)
	}

	removed, err := m.Prune(parent, 2)
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	snaps, err := m.List(parent)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, base.Add(3*time.Hour), snaps[0].Manifest.CreatedAt.UTC())
}

func TestOpen_NotFound(t *testing.T) {
	m := NewManager(DefaultConfig())
	_, err := m.Open(t.TempDir(), "backup-2025-01-01_000000")
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))
}

func TestSnapshotAccessors(t *testing.T) {
	snap := Snapshot{
		Dir: "/backups/backup-2025-06-01_120000",
		Manifest: Manifest{
			Entries: []Entry{
				{Path: ".env", Status: StatusCopied, Size: 10},
				{Path: "shared", Status: StatusCopied, Size: 20},
				{Path: "grafana", Status: StatusSkipped},
			},
		},
	}

	assert.Equal(t, "backup-2025-06-01_120000", snap.Name())
	assert.Equal(t, 2, snap.CopiedCount())
	assert.Equal(t, int64(30), snap.TotalSize())
}
