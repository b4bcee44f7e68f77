// Package registry holds the per-zone connection and signing parameters.
//
// A Registry is built once from flattened "<field>.<zone>" entries and is
// read only afterwards. Reloading builds a new Registry and publishes it
// through a Store.
package registry

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/haukened/rr-zoned/internal/dns/common/tsig"
	"github.com/haukened/rr-zoned/internal/dns/common/utils"
	"github.com/haukened/rr-zoned/internal/dns/domain"
)

// Recognised entry fields. Anything else lands in ZoneConfig.Extra.
const (
	FieldAddress   = "ip"
	FieldSecret    = "key"
	FieldAlgorithm = "algorithm"
	FieldPort      = "port"
)

const (
	errUnknownAlgorithm = "unsupported signing algorithm %q"
	errMissingFields    = "missing %s"
)

var errZoneNotFound = errors.New("zone not found in configuration")

// Registry maps canonical zone names to their configuration.
type Registry struct {
	zones map[string]domain.ZoneConfig
}

// Build accumulates entries shaped "<field>.<zone>" into per-zone configs.
// The key is split at its first dot; keys without one are ignored. Entries
// may arrive in any order and completeness is not checked here.
func Build(entries map[string]string) *Registry {
	r := &Registry{zones: make(map[string]domain.ZoneConfig)}
	for key, value := range entries {
		field, zone, ok := strings.Cut(key, ".")
		if !ok || field == "" {
			continue
		}
		name := utils.ZoneKey(zone)
		if name == "" {
			continue
		}
		cfg, exists := r.zones[name]
		if !exists {
			cfg.Name = name
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(field) {
		case FieldAddress:
			cfg.Address = value
		case FieldSecret:
			cfg.Secret = value
		case FieldAlgorithm:
			cfg.Algorithm = value
		case FieldPort:
			cfg.Port = value
		default:
			if cfg.Extra == nil {
				cfg.Extra = make(map[string]string)
			}
			cfg.Extra[strings.ToLower(field)] = value
		}
		r.zones[name] = cfg
	}
	return r
}

// Lookup returns the configuration of zone. An absent zone fails with
// KindZoneNotConfigured, a zone lacking a required field with KindZoneIncomplete.
func (r *Registry) Lookup(zone string) (domain.ZoneConfig, error) {
	name := utils.ZoneKey(zone)
	cfg, ok := r.zones[name]
	if !ok {
		return domain.ZoneConfig{}, domain.NewError(domain.KindZoneNotConfigured, zone, errZoneNotFound)
	}
	if missing := cfg.Missing(); len(missing) > 0 {
		return domain.ZoneConfig{}, domain.Errorf(domain.KindZoneIncomplete, zone, errMissingFields, strings.Join(missing, ", "))
	}
	return cfg, nil
}

// Names returns the configured zone names in ascending order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.zones))
}

// Len returns the number of configured zones.
func (r *Registry) Len() int {
	return len(r.zones)
}

// Validate checks every zone eagerly: all required fields present and a
// supported signing algorithm. All problems are reported at once.
func (r *Registry) Validate() error {
	var errs []error
	for _, name := range r.Names() {
		cfg := r.zones[name]
		if missing := cfg.Missing(); len(missing) > 0 {
			errs = append(errs, domain.Errorf(domain.KindZoneIncomplete, name, errMissingFields, strings.Join(missing, ", ")))
			continue
		}
		if !tsig.Resolve(cfg.Algorithm).Valid() {
			errs = append(errs, domain.Errorf(domain.KindSigning, name, errUnknownAlgorithm, cfg.Algorithm))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid zone configuration: %w", errors.Join(errs...))
	}
	return nil
}
