package discovery

import (
	"fmt"
	"strings"
	"time"
)

// Backend represents an admin backend found on the network
type Backend struct {
	// Instance is the advertised instance name (e.g., "adminkit-dev")
	Instance string

	// Hostname is the mDNS hostname (e.g., "laptop.local.")
	Hostname string

	// IP is the preferred address (IPv4 when available)
	IP string

	// Port is the HTTP port
	Port int

	// Metadata contains the mDNS TXT record data
	// Common fields: "path=/", "version=1.2.0", "scheme=https"
	Metadata map[string]string

	// DiscoveredAt is when the backend was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the backend
func (b *Backend) String() string {
	return fmt.Sprintf("%s (%s) at %s:%d", b.Instance, b.Hostname, b.IP, b.Port)
}

// BaseURL returns the HTTP base URL for the backend, honoring the "scheme"
// and "path" TXT keys
func (b *Backend) BaseURL() string {
	scheme := b.GetMetadata("scheme")
	if scheme == "" {
		scheme = "http"
	}
	host := b.IP
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	path := strings.TrimRight(b.GetMetadata("path"), "/")
	return fmt.Sprintf("%s://%s:%d%s", scheme, host, b.Port, path)
}

// Version returns the advertised backend version, if any
func (b *Backend) Version() string {
	return b.GetMetadata("version")
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (b *Backend) GetMetadata(key string) string {
	if b.Metadata == nil {
		return ""
	}
	return b.Metadata[key]
}
