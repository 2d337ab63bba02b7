// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package util holds small shared helpers for the CLI, currently the
// interactive prompter.
package util

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

// =============================================================================
// Interface
// =============================================================================

// UserPrompter abstracts interactive terminal input so command logic
// can be tested without a terminal.
type UserPrompter interface {
	// Confirm asks a yes/no question and returns the answer.
	Confirm(prompt string) (bool, error)

	// Input asks for a single line of text, offering a default the
	// user can accept by submitting an empty value.
	Input(label, defaultValue string) (string, error)
}

// =============================================================================
// Interactive Implementation
// =============================================================================

// InteractivePrompter renders prompts on the controlling terminal.
type InteractivePrompter struct{}

// Compile-time interface check.
var _ UserPrompter = (*InteractivePrompter)(nil)

// NewInteractivePrompter creates a prompter that reads from the
// terminal.
func NewInteractivePrompter() *InteractivePrompter {
	return &InteractivePrompter{}
}

// Confirm asks a yes/no question.
//
// # Inputs
//
//   - prompt: The question shown to the user.
//
// # Outputs
//
//   - bool: True when the user confirmed.
//   - error: Non-nil when the prompt could not be rendered or was
//     aborted with ctrl-c.
func (p *InteractivePrompter) Confirm(prompt string) (bool, error) {
	var confirmed bool
	err := huh.NewConfirm().
		Title(prompt).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed).
		Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	return confirmed, nil
}

// Input asks for one line of text with a default.
func (p *InteractivePrompter) Input(label, defaultValue string) (string, error) {
	value := defaultValue
	err := huh.NewInput().
		Title(label).
		Placeholder(defaultValue).
		Value(&value).
		Run()
	if err != nil {
		return "", fmt.Errorf("input prompt failed: %w", err)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		value = defaultValue
	}
	return value, nil
}

// =============================================================================
// Mock Implementation
// =============================================================================

// PrompterCall records one invocation on the mock.
type PrompterCall struct {
	Method  string
	Prompt  string
	Default string
}

// MockPrompter is a test double with scripted answers.
type MockPrompter struct {
	ConfirmFunc func(prompt string) (bool, error)
	InputFunc   func(label, defaultValue string) (string, error)

	Calls []PrompterCall
}

var _ UserPrompter = (*MockPrompter)(nil)

func (m *MockPrompter) Confirm(prompt string) (bool, error) {
	m.Calls = append(m.Calls, PrompterCall{Method: "Confirm", Prompt: prompt})
	if m.ConfirmFunc == nil {
		panic("MockPrompter.Confirm called without ConfirmFunc")
	}
	return m.ConfirmFunc(prompt)
}

func (m *MockPrompter) Input(label, defaultValue string) (string, error) {
	m.Calls = append(m.Calls, PrompterCall{Method: "Input", Prompt: label, Default: defaultValue})
	if m.InputFunc == nil {
		// Accepting the default is the common scripted answer.
		return defaultValue, nil
	}
	return m.InputFunc(label, defaultValue)
}

// Reset clears recorded calls.
func (m *MockPrompter) Reset() {
	m.Calls = nil
}
