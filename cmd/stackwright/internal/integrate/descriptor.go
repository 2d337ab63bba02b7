// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package integrate turns an analyzed repository into concrete edits on
the stack's configuration files: a compose stanza, an environment
block, and a reverse-proxy site.

The flow is descriptor -> render -> apply. A ServiceDescriptor is built
from analysis results, corrected by the operator, validated, and then
rendered into marker-framed blocks that the Applicator appends exactly
once per service.
*/
package integrate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/stackwright/stackwright/cmd/stackwright/internal/analyze"
)

// fallbackPort is used when neither compose nor Dockerfile revealed a
// published port.
const fallbackPort = "3000"

// ServiceDescriptor is the operator-confirmed recipe for one service.
type ServiceDescriptor struct {
	// Name is the compose service key. Lowercase letters, digits, and
	// hyphens only; also used for the container name, the compose
	// profile, and the data volume.
	Name string `validate:"required,service_name"`

	// DisplayName labels the service in generated comments.
	DisplayName string `validate:"required"`

	// Description is a short summary carried into the env block.
	Description string

	// Port is the container port the reverse proxy forwards to.
	Port string `validate:"required,number"`

	// Image is the container image reference.
	Image string `validate:"required"`

	// Hostname is the subdomain prefix for the service's env entry.
	Hostname string `validate:"required"`

	// Secrets are the secret suffixes written as placeholders into the
	// env block, each rendered as <PREFIX>_<SECRET>=.
	Secrets []string `validate:"required,min=1,dive,required"`

	NeedsPostgres bool
	NeedsRedis    bool
	NeedsMySQL    bool
}

// serviceNameRe is the charset SanitizeName guarantees; validation
// enforces the same alphabet on names that bypassed sanitization.
var serviceNameRe = regexp.MustCompile(`^[a-z0-9-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation("service_name", func(fl validator.FieldLevel) bool {
		return serviceNameRe.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks the descriptor before any file is touched.
func (d ServiceDescriptor) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid service descriptor: %w", err)
	}
	return nil
}

// EnvPrefix is the descriptor's environment variable prefix, e.g.
// OPEN_WEBUI for the service "open-webui".
func (d ServiceDescriptor) EnvPrefix() string {
	return strings.ToUpper(strings.ReplaceAll(d.Name, "-", "_"))
}

// VolumeName is the compose volume reserved for the service's data.
func (d ServiceDescriptor) VolumeName() string {
	return d.Name + "_data"
}

// DefaultName derives the suggested service name from a repository
// name by lowering it and dropping separator characters.
func DefaultName(repoName string) string {
	name := strings.ToLower(repoName)
	name = strings.ReplaceAll(name, "-", "")
	name = strings.ReplaceAll(name, "_", "")
	return SanitizeName(name)
}

// SanitizeName strips everything but lowercase letters, digits, and
// hyphens from an operator-supplied service name.
func SanitizeName(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FromAnalysis seeds a descriptor with the detected values, falling
// back to conventional defaults for anything the analysis missed. The
// operator gets to adjust every field before it is applied.
func FromAnalysis(a analyze.Analysis, repoURL string) ServiceDescriptor {
	d := ServiceDescriptor{
		Name:          DefaultName(a.RepoName),
		DisplayName:   a.RepoName,
		Description:   a.Description.Value,
		Port:          fallbackPort,
		Secrets:       []string{"APP_SECRET"},
		NeedsPostgres: a.NeedsPostgres,
		NeedsRedis:    a.NeedsRedis,
		NeedsMySQL:    a.NeedsMySQL,
	}

	if a.Title.Found() {
		d.DisplayName = a.Title.Value
	}
	if a.Port.Found() {
		d.Port = a.Port.Value
	}

	if a.Image.Found() {
		d.Image = a.Image.Value
	} else if ownerRepo := analyze.OwnerRepoFromURL(repoURL); ownerRepo != "" {
		d.Image = ownerRepo + ":latest"
	} else {
		d.Image = d.Name + ":latest"
	}

	d.Hostname = d.Name
	return d
}
