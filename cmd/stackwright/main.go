// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"

	"github.com/stackwright/stackwright/cmd/stackwright/config"
	"github.com/stackwright/stackwright/pkg/ux"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		ux.Error(err.Error())
		os.Exit(CLIExitError)
	}
}

// loadConfig resolves the configuration for the current invocation.
// The returned record is immutable; commands pass it down by value.
func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return config.Config{}, err
		}
	}
	return config.Load(path)
}
