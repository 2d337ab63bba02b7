// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyOutcome reports what CopyPath actually did.
//
// A missing source is a normal outcome, not an error: preservation
// lists describe optional paths, and callers decide how to treat an
// absent one. Errors are reserved for real I/O failures.
type CopyOutcome struct {
	// Found is false when the source path did not exist.
	Found bool

	// Dir is true when the source was a directory.
	Dir bool

	// Size is the total number of bytes copied.
	Size int64
}

// CopyPath copies src to dst, handling both files and directories.
//
// Parent directories of dst are created as needed. Symlinks are
// recreated as links rather than followed, matching what a straight
// directory copy of a compose installation needs.
func CopyPath(src, dst string) (CopyOutcome, error) {
	info, err := os.Lstat(src)
	if os.IsNotExist(err) {
		return CopyOutcome{Found: false}, nil
	}
	if err != nil {
		return CopyOutcome{}, fmt.Errorf("failed to stat %s: %w", src, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return CopyOutcome{}, fmt.Errorf("failed to create parent of %s: %w", dst, err)
	}

	if info.IsDir() {
		size, err := copyDir(src, dst)
		if err != nil {
			return CopyOutcome{}, err
		}
		return CopyOutcome{Found: true, Dir: true, Size: size}, nil
	}

	size, err := copyFileOrLink(src, dst, info)
	if err != nil {
		return CopyOutcome{}, err
	}
	return CopyOutcome{Found: true, Size: size}, nil
}

// copyDir recursively copies a directory tree and returns total bytes.
func copyDir(src, dst string) (int64, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", src, err)
	}

	var total int64
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			size, err := copyDir(srcPath, dstPath)
			if err != nil {
				return total, err
			}
			total += size
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return total, fmt.Errorf("failed to stat %s: %w", srcPath, err)
		}
		size, err := copyFileOrLink(srcPath, dstPath, info)
		if err != nil {
			return total, err
		}
		total += size
	}
	return total, nil
}

// copyFileOrLink copies a single file, recreating symlinks as links.
func copyFileOrLink(src, dst string, info os.FileInfo) (int64, error) {
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return 0, fmt.Errorf("failed to read link %s: %w", src, err)
		}
		// Replace any stale link at the destination
		os.Remove(dst)
		if err := os.Symlink(target, dst); err != nil {
			return 0, fmt.Errorf("failed to create link %s: %w", dst, err)
		}
		return 0, nil
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	size, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return size, fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return size, fmt.Errorf("failed to close %s: %w", dst, err)
	}
	return size, nil
}
