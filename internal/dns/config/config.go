package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/miekg/dns"

	"github.com/haukened/rr-zoned/internal/dns/common/tsig"
	"github.com/haukened/rr-zoned/internal/dns/repos/registry"
)

// Delim separates key sections. Zone entries such as "ip.example.com"
// contain dots, so the dot cannot be used.
const Delim = "/"

// EnvPrefix selects the environment variables read by Load. A double
// underscore separates sections: ZONED_DNS__DEFAULT_TTL sets dns/default_ttl.
const EnvPrefix = "ZONED_"

// AppConfig holds the rr-zoned configuration.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env   string        `koanf:"env" validate:"required,oneof=dev prod"`
	Log   LoggingConfig `koanf:"log"`
	HTTP  HTTPConfig    `koanf:"http"`
	DNS   DNSConfig     `koanf:"dns"`
	Auth  AuthConfig    `koanf:"auth"`
	Audit AuditConfig   `koanf:"audit"`
}

type LoggingConfig struct {
	// Level controls log verbosity: "debug", "info", "warn", or "error".
	Level string `koanf:"level" validate:"required,oneof=debug info warn error"`
}

type HTTPConfig struct {
	Listen string `koanf:"listen" validate:"required,hostname_port"`
	Realm  string `koanf:"realm"`
}

type DNSConfig struct {
	DefaultZone   string   `koanf:"default_zone"`
	DefaultTTL    uint32   `koanf:"default_ttl" validate:"gte=1"`
	TypeDisplayed []string `koanf:"type_displayed" validate:"required,min=1,dive,rrtype"`
	TypeWritten   []string `koanf:"type_written" validate:"required,min=1,dive,rrtype"`
	// Timeout bounds each transfer and update. Zero waits forever.
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`
	// StrictZones validates every zone at load time instead of first use.
	StrictZones bool `koanf:"strict_zones"`
	// Zones is the flat "<field>.<zone>" map read by the zone registry.
	Zones map[string]string `koanf:"zones"`
}

type AuthConfig struct {
	Backend string     `koanf:"backend" validate:"required,oneof=none ldap"`
	LDAP    LDAPConfig `koanf:"ldap"`
}

type LDAPConfig struct {
	URI          string        `koanf:"uri"`
	BindDN       string        `koanf:"binddn"`
	BindPassword string        `koanf:"bindpassword"`
	UserDN       string        `koanf:"userdn"`
	UserFilter   string        `koanf:"user_filter"`
	GroupDN      string        `koanf:"groupdn"`
	GroupFilter  string        `koanf:"group_filter"`
	CA           string        `koanf:"ca"`
	StartTLS     bool          `koanf:"starttls"`
	CheckCert    bool          `koanf:"checkcert"`
	Timeout      time.Duration `koanf:"timeout" validate:"gte=0"`
	CacheSize    int           `koanf:"cache_size" validate:"gte=0"`
}

type AuditConfig struct {
	// Path of the journal database. Empty disables the journal.
	Path string `koanf:"path"`
}

// DEFAULT_APP_CONFIG defines the default application configuration.
var DEFAULT_APP_CONFIG = AppConfig{
	Env: "prod",
	Log: LoggingConfig{Level: "info"},
	HTTP: HTTPConfig{
		Listen: "127.0.0.1:8080",
		Realm:  "rr-zoned",
	},
	DNS: DNSConfig{
		DefaultTTL:    3600,
		TypeDisplayed: []string{"A", "AAAA", "CNAME", "MX", "NS", "PTR", "SRV", "TXT"},
		TypeWritten:   []string{"A", "AAAA", "CNAME", "MX", "PTR", "SRV", "TXT"},
	},
	Auth: AuthConfig{
		Backend: "none",
		LDAP: LDAPConfig{
			UserFilter: "(uid={login})",
			CheckCert:  true,
			Timeout:    10 * time.Second,
			CacheSize:  256,
		},
	},
}

// listKeys are split on spaces and commas when they come from the environment.
var listKeys = map[string]bool{
	"dns/type_displayed": true,
	"dns/type_written":   true,
}

// validRRType reports whether the field holds a record type mnemonic.
func validRRType(fl validator.FieldLevel) bool {
	_, ok := dns.StringToType[strings.ToUpper(fl.Field().String())]
	return ok
}

// validTSIGAlgorithm reports whether the field names a supported TSIG algorithm.
func validTSIGAlgorithm(fl validator.FieldLevel) bool {
	return tsig.Resolve(fl.Field().String()).Valid()
}

// validateDNS checks the zone table eagerly when strict zones are enabled.
func validateDNS(sl validator.StructLevel) {
	d := sl.Current().Interface().(DNSConfig)
	if !d.StrictZones {
		return
	}
	for key, value := range d.Zones {
		field, _, _ := strings.Cut(key, ".")
		if strings.EqualFold(field, registry.FieldAlgorithm) {
			if err := sl.Validator().Var(value, "tsigalg"); err != nil {
				sl.ReportError(value, "Zones["+key+"]", "Zones", "tsigalg", value)
			}
		}
	}
	if err := registry.Build(d.Zones).Validate(); err != nil {
		sl.ReportError(d.Zones, "Zones", "Zones", "zones", err.Error())
	}
}

// validateAuth requires the directory settings of the ldap backend.
func validateAuth(sl validator.StructLevel) {
	a := sl.Current().Interface().(AuthConfig)
	if a.Backend != "ldap" {
		return
	}
	if a.LDAP.URI == "" {
		sl.ReportError(a.LDAP.URI, "LDAP.URI", "URI", "required_ldap", "")
	}
	if a.LDAP.UserDN == "" {
		sl.ReportError(a.LDAP.UserDN, "LDAP.UserDN", "UserDN", "required_ldap", "")
	}
	if a.LDAP.GroupDN != "" && a.LDAP.GroupFilter == "" {
		sl.ReportError(a.LDAP.GroupFilter, "LDAP.GroupFilter", "GroupFilter", "required_with_groupdn", "")
	}
}

// defaultLoader loads DEFAULT_APP_CONFIG into k.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// fileLoader loads the configuration file at path, picking the parser from
// its extension. An empty path loads nothing.
var fileLoader = func(k *koanf.Koanf, path string) error {
	if path == "" {
		return nil
	}
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	default:
		return fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}
	return k.Load(file.Provider(path), parser)
}

// envLoader loads ZONED_ prefixed environment variables into k.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(Delim, env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			key = strings.ReplaceAll(key, "__", Delim)
			value = strings.TrimSpace(value)

			if listKeys[key] {
				return key, strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
			}
			return key, value
		},
	}), nil)
}

// registerValidation registers the custom validators with v.
var registerValidation = func(v *validator.Validate) error {
	if err := v.RegisterValidation("rrtype", validRRType); err != nil {
		return err
	}
	if err := v.RegisterValidation("tsigalg", validTSIGAlgorithm); err != nil {
		return err
	}
	v.RegisterStructValidation(validateDNS, DNSConfig{})
	v.RegisterStructValidation(validateAuth, AuthConfig{})
	return nil
}

// Load layers defaults, the file at path and the environment, then
// validates the result.
func Load(path string) (*AppConfig, error) {
	k := koanf.New(Delim)

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}
	if err := fileLoader(k, path); err != nil {
		return nil, fmt.Errorf("error loading config file: %w", err)
	}
	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	normalize(&cfg)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &cfg, nil
}

// normalize upper-cases type mnemonics so allow-lists match exactly.
func normalize(cfg *AppConfig) {
	cfg.DNS.TypeDisplayed = upper(cfg.DNS.TypeDisplayed)
	cfg.DNS.TypeWritten = upper(cfg.DNS.TypeWritten)
}

func upper(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, strings.ToUpper(strings.TrimSpace(t)))
	}
	return out
}
