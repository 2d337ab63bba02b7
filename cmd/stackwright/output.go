// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"errors"
	"os"
	"time"
)

// Exit codes for CLI commands. A declined confirmation is a normal
// outcome, not a failure, and exits zero.
const (
	CLIExitSuccess = 0
	CLIExitError   = 1
)

// ErrDeclined is returned by procedures when the operator answered no
// at a confirmation prompt. Nothing has been modified at that point.
var ErrDeclined = errors.New("declined by operator")

// CommandResult wraps JSON command output with metadata.
type CommandResult struct {
	APIVersion string      `json:"api_version"`
	Command    string      `json:"command"`
	Timestamp  time.Time   `json:"timestamp"`
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// OutputJSON writes structured data as indented JSON to stdout.
func OutputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// exitCode folds a procedure error into the process exit code. The
// message has already been printed by the command handler.
func exitCode(err error) int {
	if err == nil || errors.Is(err, ErrDeclined) {
		return CLIExitSuccess
	}
	return CLIExitError
}
