package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// ApexLabel is the owner name shown for records at the zone origin.
const ApexLabel = "@"

// CanonicalDNSName returns a DNS name in canonical form:
// - Lowercased
// - Trimmed of surrounding whitespace
// - No trailing dot
func CanonicalDNSName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

// ZoneKey returns the canonical key for a zone name. Internationalized labels
// are converted to their ASCII form so "bücher.example" and
// "xn--bcher-kva.example" address the same zone.
func ZoneKey(zone string) string {
	key := CanonicalDNSName(zone)
	if ascii, err := toASCII(key); err == nil {
		return ascii
	}
	return key
}

// Fqdn returns the absolute form of a canonical zone name.
func Fqdn(zone string) string {
	zone = CanonicalDNSName(zone)
	if zone == "" {
		return "."
	}
	return zone + "."
}

// NormalizeOwner lowercases an owner name and converts internationalized
// labels to ASCII. A trailing dot marks the name as absolute and is kept.
func NormalizeOwner(owner string) (string, error) {
	owner = strings.ToLower(strings.TrimSpace(owner))
	if owner == "" {
		return "", fmt.Errorf("owner name must not be empty")
	}
	if owner == ApexLabel {
		return owner, nil
	}
	absolute := strings.HasSuffix(owner, ".")
	name := strings.TrimSuffix(owner, ".")
	if name == "" || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid owner name %q", owner)
	}
	ascii, err := toASCII(name)
	if err != nil {
		return "", fmt.Errorf("invalid owner name %q: %w", owner, err)
	}
	if absolute {
		ascii += "."
	}
	return ascii, nil
}

// Qualify expands a normalized owner name against zone. "@" is the zone
// origin, names with a trailing dot are already absolute.
func Qualify(owner, zone string) string {
	origin := Fqdn(zone)
	switch {
	case owner == "" || owner == ApexLabel:
		return origin
	case strings.HasSuffix(owner, "."):
		return owner
	case origin == ".":
		return owner + "."
	default:
		return owner + "." + origin
	}
}

// Relativize returns name relative to zone, "@" for the origin itself.
// Names outside the zone are returned absolute.
func Relativize(name, zone string) string {
	name = strings.ToLower(name)
	if !strings.HasSuffix(name, ".") {
		name += "."
	}
	origin := Fqdn(zone)
	if name == origin {
		return ApexLabel
	}
	if origin != "." && strings.HasSuffix(name, "."+origin) {
		return strings.TrimSuffix(name, "."+origin)
	}
	return name
}

// toASCII converts labels containing non-ASCII runes to punycode. Pure ASCII
// input passes through untouched so underscore labels like _dmarc survive.
func toASCII(name string) (string, error) {
	for i := 0; i < len(name); i++ {
		if name[i] >= utf8.RuneSelf {
			return idna.Punycode.ToASCII(name)
		}
	}
	return name, nil
}
