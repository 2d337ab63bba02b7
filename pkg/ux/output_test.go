// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"io"
	"os"
	"strings"
	"testing"
)

// captureStdout runs fn and returns everything it wrote to stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = orig

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("failed to read captured output: %v", err)
	}
	return string(out)
}

func TestIconRender_UnstyledPassthrough(t *testing.T) {
	// Icons without semantic styling render as-is
	if got := IconArrow.Render(); got != string(IconArrow) {
		t.Errorf("expected %q, got %q", string(IconArrow), got)
	}
	if got := IconBullet.Render(); got != string(IconBullet) {
		t.Errorf("expected %q, got %q", string(IconBullet), got)
	}
}

func TestSuccess_MachineMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)
	SetPersonalityLevel(PersonalityMachine)

	out := captureStdout(t, func() { Success("snapshot created") })

	if out != "OK: snapshot created\n" {
		t.Errorf("unexpected machine output: %q", out)
	}
}

func TestTitle_MachineModeSuppressed(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)
	SetPersonalityLevel(PersonalityMachine)

	out := captureStdout(t, func() { Title("Repository Replacement") })

	if out != "" {
		t.Errorf("expected no title output in machine mode, got %q", out)
	}
}

func TestStep_MachineMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)
	SetPersonalityLevel(PersonalityMachine)

	out := captureStdout(t, func() { Step(2, 7, "stopping stack") })

	if out != "STEP 2/7: stopping stack\n" {
		t.Errorf("unexpected step output: %q", out)
	}
}

func TestChecklist_MachineMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)
	SetPersonalityLevel(PersonalityMachine)

	out := captureStdout(t, func() {
		Checklist("After the swap", []string{"review .env", "start the stack"})
	})

	if !strings.Contains(out, "TODO: review .env") {
		t.Errorf("expected TODO lines, got %q", out)
	}
	if !strings.Contains(out, "TODO: start the stack") {
		t.Errorf("expected TODO lines, got %q", out)
	}
}

func TestKeyValue_MachineMode(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)
	SetPersonalityLevel(PersonalityMachine)

	out := captureStdout(t, func() { KeyValue("port", "3000") })

	if out != "port=3000\n" {
		t.Errorf("unexpected key/value output: %q", out)
	}
}
