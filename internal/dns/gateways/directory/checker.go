// Package directory verifies operator credentials against an LDAP directory
// using the bind, search, bind pattern with an optional group check.
package directory

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/haukened/rr-zoned/internal/dns/common/log"
)

// CredentialChecker reports whether username may log in with password.
type CredentialChecker interface {
	CheckCredentials(username, password string) bool
}

// Filter placeholders. Values are escaped before substitution.
const (
	PlaceholderLogin  = "{login}"
	PlaceholderUserDN = "{userdn}"
)

const (
	errURIRequired    = "ldap uri is required"
	errUserDNRequired = "ldap user base dn is required"
	errFilterRequired = "ldap user filter is required"
	errGroupFilter    = "ldap group filter is required when a group dn is set"
	errReadCA         = "read ldap ca %s: %w"
	errParseCA        = "no certificates found in %s"
)

// Conn is the part of *ldap.Conn the checker uses.
type Conn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	StartTLS(cfg *tls.Config) error
	Close() error
}

// DialFunc opens a directory connection to uri.
type DialFunc func(uri string, cfg *tls.Config, timeout time.Duration) (Conn, error)

// Options configures an LDAP Checker.
type Options struct {
	URI          string
	BindDN       string
	BindPassword string
	// UserDN is the search base for users, UserFilter the filter template
	// with a {login} placeholder.
	UserDN     string
	UserFilter string
	// GroupDN enables the group check; GroupFilter holds a {userdn} placeholder.
	GroupDN     string
	GroupFilter string
	CA          string
	StartTLS    bool
	CheckCert   bool
	Timeout     time.Duration
	// CacheSize bounds the login to DN cache. Zero disables it.
	CacheSize int
	// options to inject for testing purposes
	Dial   DialFunc
	Logger log.Logger
}

// Checker implements CredentialChecker with LDAP.
type Checker struct {
	opts   Options
	tls    *tls.Config
	dial   DialFunc
	cache  dnCache
	logger log.Logger
}

// NewChecker validates opts and returns a Checker.
func NewChecker(opts Options) (*Checker, error) {
	switch {
	case opts.URI == "":
		return nil, errors.New(errURIRequired)
	case opts.UserDN == "":
		return nil, errors.New(errUserDNRequired)
	case opts.UserFilter == "":
		return nil, errors.New(errFilterRequired)
	case opts.GroupDN != "" && opts.GroupFilter == "":
		return nil, errors.New(errGroupFilter)
	}
	tlsCfg, err := tlsConfig(opts)
	if err != nil {
		return nil, err
	}
	cache, err := newDNCache(opts.CacheSize)
	if err != nil {
		return nil, err
	}
	if opts.Dial == nil {
		opts.Dial = dialLDAP
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	return &Checker{
		opts:   opts,
		tls:    tlsCfg,
		dial:   opts.Dial,
		cache:  cache,
		logger: log.WithFields(opts.Logger, map[string]any{"component": "directory"}),
	}, nil
}

// CheckCredentials binds as the service account, finds the user, binds as
// the user and, when configured, checks group membership. Any directory
// failure denies the login.
func (c *Checker) CheckCredentials(username, password string) bool {
	// an empty password would be an anonymous bind, which most servers accept
	if username == "" || password == "" {
		return false
	}

	svc, err := c.open()
	if err != nil {
		c.logger.Error(map[string]any{"error": err, "uri": c.opts.URI}, "directory unavailable")
		return false
	}
	defer svc.Close()

	if err := svc.Bind(c.opts.BindDN, c.opts.BindPassword); err != nil {
		c.logger.Error(map[string]any{"error": err, "binddn": c.opts.BindDN}, "service bind failed")
		return false
	}

	dn, ok := c.userDN(svc, username)
	if !ok {
		return false
	}

	if !c.bindAs(dn, password) {
		c.cache.Remove(username)
		return false
	}

	if c.opts.GroupDN != "" && !c.inGroup(svc, dn) {
		c.logger.Info(map[string]any{"user": username, "group": c.opts.GroupDN}, "user not in required group")
		return false
	}

	hits, misses, evictions := c.cache.Stats()
	c.logger.Debug(map[string]any{
		"user":            username,
		"cache_entries":   c.cache.Len(),
		"cache_hits":      hits,
		"cache_misses":    misses,
		"cache_evictions": evictions,
	}, "login accepted")
	return true
}

func (c *Checker) open() (Conn, error) {
	conn, err := c.dial(c.opts.URI, c.tls, c.opts.Timeout)
	if err != nil {
		return nil, err
	}
	if c.opts.StartTLS {
		if err := conn.StartTLS(c.tls); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

func (c *Checker) userDN(svc Conn, username string) (string, bool) {
	if dn, ok := c.cache.Get(username); ok {
		return dn, true
	}
	filter := expand(c.opts.UserFilter, PlaceholderLogin, username)
	res, err := svc.Search(ldap.NewSearchRequest(
		c.opts.UserDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		filter, []string{"dn"}, nil,
	))
	if err != nil {
		c.logger.Error(map[string]any{"error": err, "filter": filter}, "user search failed")
		return "", false
	}
	if len(res.Entries) == 0 {
		c.logger.Debug(map[string]any{"user": username}, "user not found")
		return "", false
	}
	dn := res.Entries[0].DN
	c.cache.Put(username, dn)
	return dn, true
}

func (c *Checker) bindAs(dn, password string) bool {
	conn, err := c.open()
	if err != nil {
		c.logger.Error(map[string]any{"error": err, "uri": c.opts.URI}, "directory unavailable")
		return false
	}
	defer conn.Close()

	if err := conn.Bind(dn, password); err != nil {
		if !ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			c.logger.Error(map[string]any{"error": err, "dn": dn}, "user bind failed")
		}
		return false
	}
	return true
}

func (c *Checker) inGroup(svc Conn, dn string) bool {
	filter := expand(c.opts.GroupFilter, PlaceholderUserDN, dn)
	res, err := svc.Search(ldap.NewSearchRequest(
		c.opts.GroupDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		filter, []string{"dn"}, nil,
	))
	if err != nil {
		c.logger.Error(map[string]any{"error": err, "filter": filter}, "group search failed")
		return false
	}
	return len(res.Entries) > 0
}

// expand substitutes an escaped value for placeholder. The printf style
// "%(name)s" form is accepted as well.
func expand(tmpl, placeholder, value string) string {
	escaped := ldap.EscapeFilter(value)
	name := strings.Trim(placeholder, "{}")
	out := strings.ReplaceAll(tmpl, placeholder, escaped)
	return strings.ReplaceAll(out, "%("+name+")s", escaped)
}

func tlsConfig(opts Options) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !opts.CheckCert, //nolint:gosec // operator opt-out
	}
	if u, err := url.Parse(opts.URI); err == nil {
		if host, _, err := net.SplitHostPort(u.Host); err == nil {
			cfg.ServerName = host
		} else {
			cfg.ServerName = u.Host
		}
	}
	if opts.CA == "" {
		return cfg, nil
	}
	pem, err := os.ReadFile(opts.CA)
	if err != nil {
		return nil, fmt.Errorf(errReadCA, opts.CA, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf(errParseCA, opts.CA)
	}
	cfg.RootCAs = pool
	return cfg, nil
}

func dialLDAP(uri string, cfg *tls.Config, timeout time.Duration) (Conn, error) {
	if timeout <= 0 {
		timeout = ldap.DefaultTimeout
	}
	conn, err := ldap.DialURL(uri,
		ldap.DialWithTLSConfig(cfg),
		ldap.DialWithDialer(&net.Dialer{Timeout: timeout}),
	)
	if err != nil {
		return nil, err
	}
	conn.SetTimeout(timeout)
	return conn, nil
}

// Anonymous accepts every login. It backs the "none" auth backend.
type Anonymous struct{}

func (Anonymous) CheckCredentials(string, string) bool { return true }

var (
	_ CredentialChecker = (*Checker)(nil)
	_ CredentialChecker = Anonymous{}
	_ Conn              = (*ldap.Conn)(nil)
)
