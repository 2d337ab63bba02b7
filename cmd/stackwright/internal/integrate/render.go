// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package integrate

import (
	"fmt"
	"strings"
)

// envDescriptionLimit caps the description comment in the env block.
const envDescriptionLimit = 100

// ===== Block Renderers =====
//
// Each renderer produces the body of one marker-framed block. Bodies
// start and end without surrounding blank lines; the Applicator owns
// spacing and markers.

// ComposeStanza renders the service definition appended to the compose
// manifest.
//
// The service is gated behind a profile named after itself, so a plain
// `docker compose up` never starts it. APP_URL uses shell-style
// alternation: the scheme appears only when the hostname is set.
func ComposeStanza(d ServiceDescriptor) string {
	var b strings.Builder

	fmt.Fprintf(&b, "  %s:\n", d.Name)
	fmt.Fprintf(&b, "    image: %s\n", d.Image)
	fmt.Fprintf(&b, "    container_name: %s\n", d.Name)
	fmt.Fprintf(&b, "    profiles: [\"%s\"]\n", d.Name)
	b.WriteString("    restart: unless-stopped\n")
	b.WriteString("    environment:\n")
	fmt.Fprintf(&b, "      APP_URL: ${%[1]s_HOSTNAME:+https://}${%[1]s_HOSTNAME}\n", d.EnvPrefix())

	if d.NeedsPostgres || d.NeedsRedis {
		b.WriteString("    depends_on:\n")
		if d.NeedsPostgres {
			b.WriteString("      postgres:\n        condition: service_healthy\n")
		}
		if d.NeedsRedis {
			b.WriteString("      redis:\n        condition: service_healthy\n")
		}
	}

	fmt.Fprintf(&b, "    volumes:\n      - %s:/data\n", d.VolumeName())
	return b.String()
}

// VolumeEntry renders the top-level volume declaration backing the
// service's data mount.
func VolumeEntry(d ServiceDescriptor) string {
	return fmt.Sprintf("  %s:\n", d.VolumeName())
}

// EnvBlock renders the configuration section appended to the env
// example file. Secret placeholders stay empty; generating values is
// left to the operator's secret tooling.
func EnvBlock(d ServiceDescriptor) string {
	var b strings.Builder

	b.WriteString("############\n")
	fmt.Fprintf(&b, "# %s Configuration\n", d.DisplayName)
	if d.Description != "" {
		fmt.Fprintf(&b, "# %s\n", truncate(d.Description, envDescriptionLimit))
	}
	b.WriteString("############\n")
	fmt.Fprintf(&b, "%s_HOSTNAME=%s.yourdomain.com\n", d.EnvPrefix(), d.Hostname)
	for _, secret := range d.Secrets {
		fmt.Fprintf(&b, "%s_%s=\n", d.EnvPrefix(), secret)
	}
	return b.String()
}

// CaddyBlock renders the reverse-proxy site appended to the Caddyfile.
// The hostname comes from the environment at Caddy start, matching the
// env entry written by EnvBlock.
func CaddyBlock(d ServiceDescriptor) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n", d.DisplayName)
	fmt.Fprintf(&b, "{$%s_HOSTNAME} {\n", d.EnvPrefix())
	fmt.Fprintf(&b, "    reverse_proxy %s:%s\n", d.Name, d.Port)
	b.WriteString("}\n")
	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
