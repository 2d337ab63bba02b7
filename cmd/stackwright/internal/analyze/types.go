// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package analyze inspects a cloned repository and infers the facts needed
to wire its service into the stack: image, port, environment variables,
backing-store dependencies, and a human-readable name.

Every inferred value carries its provenance. Detection is best-effort
throughout: a miss yields an empty value with SourceNone, never an
error, and the operator confirms or overrides everything downstream.
*/
package analyze

// Source records how a value was obtained.
type Source string

const (
	// SourceStructured means the value came from a successful YAML or
	// JSON parse of a project file.
	SourceStructured Source = "structured"

	// SourceHeuristic means the value came from line-pattern scanning
	// after structured parsing was impossible or failed.
	SourceHeuristic Source = "heuristic"

	// SourceNone means nothing usable was found.
	SourceNone Source = "none"
)

// Detection pairs a detected value with its provenance.
type Detection struct {
	Value  string
	Source Source
}

// Found reports whether the detection produced a value.
func (d Detection) Found() bool {
	return d.Source != SourceNone && d.Value != ""
}

// Analysis is everything learned about a target repository.
type Analysis struct {
	// RepoName is the repository base name, before sanitization.
	RepoName string

	// Title is the project's human name, from README or package.json.
	Title Detection

	// Description is a short project summary, truncated to 200 runes.
	Description Detection

	// Image is the container image reference from compose.
	Image Detection

	// Port is the first published host port found in compose or a
	// Dockerfile EXPOSE directive.
	Port Detection

	// EnvVars are environment variable names the service declares.
	EnvVars []string

	// NeedsPostgres, NeedsRedis, and NeedsMySQL record backing-store
	// mentions in the project's compose manifest.
	NeedsPostgres bool
	NeedsRedis    bool
	NeedsMySQL    bool

	// ComposeParse records which parsing path produced the compose
	// results, surfaced to the operator alongside the values.
	ComposeParse Source
}
