// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"crypto/tls"

	"github.com/tailscale/tscert"
)

// TLSConfig returns a *tls.Config whose GetCertificate pulls a Tailscale
// node certificate live from the local tailscaled, so -https works inside
// a tailnet without any manual cert/key files to manage.
func TLSConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: tscert.GetCertificate,
	}
}
