// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package process abstracts external process execution and inter-process
locking for the stackwright CLI.

All exec.Command calls in the procedure code go through the Manager
interface so unit tests can substitute MockManager and verify the exact
subprocess invocations without running real processes.
*/
package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// Manager handles external process operations.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use from multiple goroutines.
//
// # Context Handling
//
// All methods accept a context.Context for cancellation and timeout
// support. Long-running processes must respect context cancellation.
type Manager interface {
	// Run executes a command synchronously and returns its stdout.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - name: The executable name or path
	//   - args: Command arguments (variadic)
	//
	// # Outputs
	//
	//   - []byte: Captured stdout
	//   - error: Non-nil if the command fails or is cancelled. Stderr
	//     is folded into the error message for diagnostics.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunInDir executes a command synchronously with the given working
	// directory. Behaves like Run otherwise. Used for git and compose
	// invocations that must run inside the installation directory.
	RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error)

	// RunStreaming executes a command with stdout and stderr attached to
	// the given writers, for long-lived output such as compose logs -f.
	// Blocks until the command exits or the context is cancelled.
	RunStreaming(ctx context.Context, dir string, stdout, stderr io.Writer, name string, args ...string) error
}

// -----------------------------------------------------------------------------
// Implementation
// -----------------------------------------------------------------------------

// DefaultManager implements Manager using os/exec.
//
// This is the production implementation that executes real processes on
// the system. Use MockManager in tests instead.
type DefaultManager struct{}

// NewDefaultManager creates a Manager backed by os/exec.
func NewDefaultManager() *DefaultManager {
	return &DefaultManager{}
}

// Run executes a command synchronously and returns its stdout.
func (m *DefaultManager) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return m.RunInDir(ctx, "", name, args...)
}

// RunInDir executes a command synchronously in the given directory.
func (m *DefaultManager) RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Include stderr in error for debugging
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// RunStreaming executes a command with output attached to the writers.
func (m *DefaultManager) RunStreaming(ctx context.Context, dir string, stdout, stderr io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockManager is a test double for Manager.
//
// Configure the mock by setting function fields before use. If a
// function field is nil and the corresponding method is called, it
// will panic.
//
// # Examples
//
//	mock := &MockManager{
//	    RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
//	        if name == "docker" && args[0] == "volume" {
//	            return []byte("localai_n8n_storage\n"), nil
//	        }
//	        return nil, fmt.Errorf("unexpected command: %s", name)
//	    },
//	}
type MockManager struct {
	// RunFunc is called when Run is invoked
	RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunInDirFunc is called when RunInDir is invoked
	RunInDirFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

	// RunStreamingFunc is called when RunStreaming is invoked
	RunStreamingFunc func(ctx context.Context, dir string, stdout, stderr io.Writer, name string, args ...string) error

	// Calls records all method invocations for verification
	Calls []ManagerCall

	// mu protects Calls for concurrent access
	mu sync.Mutex
}

// ManagerCall records a single method invocation.
type ManagerCall struct {
	Method string
	Dir    string
	Name   string
	Args   []string
}

// Run delegates to RunFunc and records the call.
func (m *MockManager) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.record(ManagerCall{Method: "Run", Name: name, Args: args})
	if m.RunFunc == nil {
		panic("MockManager.RunFunc not set")
	}
	return m.RunFunc(ctx, name, args...)
}

// RunInDir delegates to RunInDirFunc and records the call.
func (m *MockManager) RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	m.record(ManagerCall{Method: "RunInDir", Dir: dir, Name: name, Args: args})
	if m.RunInDirFunc == nil {
		panic("MockManager.RunInDirFunc not set")
	}
	return m.RunInDirFunc(ctx, dir, name, args...)
}

// RunStreaming delegates to RunStreamingFunc and records the call.
func (m *MockManager) RunStreaming(ctx context.Context, dir string, stdout, stderr io.Writer, name string, args ...string) error {
	m.record(ManagerCall{Method: "RunStreaming", Dir: dir, Name: name, Args: args})
	if m.RunStreamingFunc == nil {
		panic("MockManager.RunStreamingFunc not set")
	}
	return m.RunStreamingFunc(ctx, dir, stdout, stderr, name, args...)
}

func (m *MockManager) record(call ManagerCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// Reset clears all recorded calls.
func (m *MockManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// GetCalls returns a copy of all recorded calls.
func (m *MockManager) GetCalls() []ManagerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ManagerCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// Compile-time interface compliance check.
var (
	_ Manager = (*DefaultManager)(nil)
	_ Manager = (*MockManager)(nil)
)
