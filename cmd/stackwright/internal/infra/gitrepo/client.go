// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gitrepo wraps the git CLI for repository cloning and
// inspection. Network operations always run under a caller-supplied
// context so a hung remote cannot stall a procedure indefinitely.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stackwright/stackwright/cmd/stackwright/internal/infra/process"
)

// ErrCloneFailed indicates git clone exited non-zero.
var ErrCloneFailed = errors.New("git clone failed")

// Client performs git operations via the git CLI.
type Client struct {
	proc process.Manager
}

// NewClient creates a git client using the given process manager.
func NewClient(proc process.Manager) *Client {
	return &Client{proc: proc}
}

// CloneShallow clones url into dest with depth 1.
//
// A shallow clone is all either procedure needs: the replacement
// procedure wants the tree, the integration procedure only reads files.
func (c *Client) CloneShallow(ctx context.Context, url, dest string) error {
	if url == "" {
		return fmt.Errorf("%w: empty repository url", ErrCloneFailed)
	}
	if _, err := c.proc.Run(ctx, "git", "clone", "--depth", "1", url, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCloneFailed, url, err)
	}
	return nil
}

// IsRepo reports whether dir is inside a git work tree.
func (c *Client) IsRepo(ctx context.Context, dir string) bool {
	_, err := c.proc.RunInDir(ctx, dir, "git", "rev-parse", "--git-dir")
	return err == nil
}

// RemoteURL returns the origin remote URL of the repository at dir.
func (c *Client) RemoteURL(ctx context.Context, dir string) (string, error) {
	out, err := c.proc.RunInDir(ctx, dir, "git", "remote", "get-url", "origin")
	if err != nil {
		return "", fmt.Errorf("failed to read origin url: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// HeadCommit returns the HEAD commit hash of the repository at dir.
func (c *Client) HeadCommit(ctx context.Context, dir string) (string, error) {
	out, err := c.proc.RunInDir(ctx, dir, "git", "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
