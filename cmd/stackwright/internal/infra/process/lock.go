// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// Locker defines the interface for CLI instance locking.
//
// # Description
//
// Locker prevents multiple stackwright instances from mutating the same
// installation simultaneously. A replacement in one terminal while an
// integration appends files in another would corrupt the install dir;
// the lock turns that into a fast failure.
//
// # Thread Safety
//
// Implementations must be safe for use from a single goroutine. The lock
// itself provides inter-process synchronization, not intra-process.
type Locker interface {
	// Acquire attempts to get an exclusive lock.
	// Returns nil if lock acquired, error otherwise.
	Acquire() error

	// Release releases the lock if held.
	// Safe to call multiple times or if lock was never acquired.
	Release() error

	// IsHeld returns true if this instance currently holds the lock.
	IsHeld() bool

	// HolderPID returns the PID of the process holding the lock.
	// Returns 0 if no process holds the lock or if unable to determine.
	HolderPID() int
}

// LockConfig configures lock file location.
type LockConfig struct {
	// LockDir is the directory for lock files.
	// Default: system temp directory
	LockDir string

	// LockName is the base name for lock files.
	// Default: "stackwright"
	LockName string
}

// DefaultLockConfig returns sensible defaults: the system temp
// directory and "stackwright" as the lock name.
func DefaultLockConfig() LockConfig {
	return LockConfig{
		LockDir:  os.TempDir(),
		LockName: "stackwright",
	}
}

// Lock implements Locker using file-based locking.
//
// # Description
//
// Uses the flock(2) system call for advisory file locking:
//
//  1. Creates a lock file at {LockDir}/{LockName}.lock
//  2. Attempts exclusive flock on the file
//  3. Writes PID to {LockDir}/{LockName}.pid for debugging
//  4. On release, removes PID file and releases flock
//
// # Limitations
//
//   - Advisory lock only - other processes can ignore it if they don't check
//   - NFS and some network filesystems don't support flock properly
//   - Lock survives if process crashes without calling Release (OS releases flock)
type Lock struct {
	config   LockConfig
	lockPath string
	pidPath  string
	lockFile *os.File
	held     bool
}

// NewLock creates a new process lock. Does not acquire it.
func NewLock(config LockConfig) *Lock {
	if config.LockDir == "" {
		config.LockDir = os.TempDir()
	}
	if config.LockName == "" {
		config.LockName = "stackwright"
	}

	return &Lock{
		config:   config,
		lockPath: filepath.Join(config.LockDir, config.LockName+".lock"),
		pidPath:  filepath.Join(config.LockDir, config.LockName+".pid"),
	}
}

// Acquire attempts to get an exclusive lock.
//
// Uses a non-blocking flock. If another process holds the lock,
// returns immediately with an error containing the PID of the holder
// (if available).
func (p *Lock) Acquire() error {
	if p.held {
		return nil // Already held
	}

	f, err := os.OpenFile(p.lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock file %s: %w", p.lockPath, err)
	}

	// Try non-blocking exclusive lock
	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		f.Close()

		if err == syscall.EWOULDBLOCK {
			holderPID := p.readHolderPID()
			if holderPID > 0 {
				return fmt.Errorf("another stackwright instance is running (PID %d). "+
					"If this is stale, remove %s", holderPID, p.pidPath)
			}
			return fmt.Errorf("another stackwright instance is running. "+
				"Check: lsof %s", p.lockPath)
		}

		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	p.lockFile = f
	p.held = true

	// PID file is best-effort debugging aid, lock is already held
	_ = p.writePID()

	return nil
}

// Release releases the lock if held. Safe to call multiple times.
func (p *Lock) Release() error {
	if !p.held || p.lockFile == nil {
		return nil
	}

	// Remove PID file first
	os.Remove(p.pidPath)

	err := syscall.Flock(int(p.lockFile.Fd()), syscall.LOCK_UN)

	// Close file (also releases lock if flock failed)
	p.lockFile.Close()
	p.lockFile = nil
	p.held = false

	// Lock file is left in place for faster subsequent acquires

	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	return nil
}

// IsHeld returns true if this instance currently holds the lock.
// Checks local state only, does not verify the flock is still valid.
func (p *Lock) IsHeld() bool {
	return p.held
}

// HolderPID returns the PID of the process holding the lock, or 0 if
// unknown. May return a stale PID if the holder crashed without cleanup.
func (p *Lock) HolderPID() int {
	return p.readHolderPID()
}

// writePID writes the current process PID to the PID file.
func (p *Lock) writePID() error {
	pid := os.Getpid()
	content := fmt.Sprintf("%d\n", pid)
	return os.WriteFile(p.pidPath, []byte(content), 0644)
}

// readHolderPID reads the PID from the PID file.
func (p *Lock) readHolderPID() int {
	data, err := os.ReadFile(p.pidPath)
	if err != nil {
		return 0
	}

	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0
	}

	return pid
}

// LockPath returns the path to the lock file.
func (p *Lock) LockPath() string {
	return p.lockPath
}

// PIDPath returns the path to the PID file.
func (p *Lock) PIDPath() string {
	return p.pidPath
}

// Compile-time interface satisfaction check
var _ Locker = (*Lock)(nil)
