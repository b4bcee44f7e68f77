package domain

import "net"

// DefaultPort is the authoritative server port used when a zone sets none.
const DefaultPort = "53"

// ZoneConfig holds the connection and signing parameters of one zone.
// Values are never modified after the registry that owns them is published.
type ZoneConfig struct {
	Name      string
	Address   string
	Port      string
	Secret    string
	Algorithm string
	// Extra keeps fields the engine does not interpret.
	Extra map[string]string
}

// Missing lists the configuration fields required before the zone can be used.
func (z ZoneConfig) Missing() []string {
	var missing []string
	if z.Address == "" {
		missing = append(missing, "ip")
	}
	if z.Secret == "" {
		missing = append(missing, "key")
	}
	if z.Algorithm == "" {
		missing = append(missing, "algorithm")
	}
	return missing
}

// Server returns the host:port of the zone's authoritative server.
func (z ZoneConfig) Server() string {
	port := z.Port
	if port == "" {
		port = DefaultPort
	}
	return net.JoinHostPort(z.Address, port)
}
