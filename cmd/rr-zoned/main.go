package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haukened/rr-zoned/internal/api"
	"github.com/haukened/rr-zoned/internal/dns/common/clock"
	"github.com/haukened/rr-zoned/internal/dns/common/log"
	"github.com/haukened/rr-zoned/internal/dns/config"
	"github.com/haukened/rr-zoned/internal/dns/domain"
	"github.com/haukened/rr-zoned/internal/dns/gateways/directory"
	"github.com/haukened/rr-zoned/internal/dns/gateways/update"
	"github.com/haukened/rr-zoned/internal/dns/gateways/xfr"
	"github.com/haukened/rr-zoned/internal/dns/repos/audit"
	"github.com/haukened/rr-zoned/internal/dns/repos/registry"
	"github.com/haukened/rr-zoned/internal/dns/services/classifier"
	"github.com/haukened/rr-zoned/internal/dns/services/zones"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "rr-zoned"

	// configEnv names the config file when -config is not given.
	configEnv = "ZONED_CONFIG"

	defaultShutdownTimeout = 10 * time.Second
)

// loadConfig is replaced in tests.
var loadConfig = config.Load

// Application holds all the components of the zone editor.
type Application struct {
	config     *config.AppConfig
	configPath string
	store      *registry.Store
	service    *zones.Service
	classifier *classifier.Classifier
	journal    audit.Journal
	server     *api.Server
	logger     log.Logger
}

func main() {
	configPath := flag.String("config", os.Getenv(configEnv), "Path to TOML or YAML configuration file (or set "+configEnv+")")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Configure(cfg.Env, cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":      version,
		"env":          cfg.Env,
		"log_level":    cfg.Log.Level,
		"listen":       cfg.HTTP.Listen,
		"default_zone": cfg.DNS.DefaultZone,
		"auth":         cfg.Auth.Backend,
	}, "Starting "+appName)

	app, err := buildApplication(cfg, *configPath)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for sig := range sigChan {
			if sig == syscall.SIGHUP {
				if cl := app.Reload(); cl != nil {
					log.Warn(map[string]any{"error": cl.Message}, "Reload failed, keeping current zones")
				}
				continue
			}
			log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
			cancel()
			return
		}
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Server failed")
	}

	log.Info(nil, appName+" stopped gracefully")
}

// buildApplication constructs all components and wires them together.
func buildApplication(cfg *config.AppConfig, configPath string) (*Application, error) {
	clk := &clock.RealClock{}
	logger := log.GetLogger()

	zoneTable := registry.Build(cfg.DNS.Zones)
	store := registry.NewStore(zoneTable)
	log.Info(map[string]any{
		"zones":  zoneTable.Len(),
		"strict": cfg.DNS.StrictZones,
	}, "Zone registry initialized")

	reader, err := xfr.NewReader(xfr.Options{
		Registry:    store,
		DefaultZone: cfg.DNS.DefaultZone,
		Displayed:   cfg.DNS.TypeDisplayed,
		Timeout:     cfg.DNS.Timeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create zone reader: %w", err)
	}
	executor, err := update.NewExecutor(update.Options{
		Registry: store,
		Writable: cfg.DNS.TypeWritten,
		Timeout:  cfg.DNS.Timeout,
		Clock:    clk,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create update executor: %w", err)
	}

	journal, err := openJournal(cfg.Audit.Path)
	if err != nil {
		return nil, err
	}

	checker, err := buildChecker(cfg.Auth, logger)
	if err != nil {
		_ = journal.Close()
		return nil, err
	}

	cl := classifier.New(logger)
	service := zones.NewService(zones.Options{
		Reader:      reader,
		Updater:     executor,
		Store:       store,
		Classifier:  cl,
		Journal:     journal,
		Clock:       clk,
		Logger:      logger,
		DefaultZone: cfg.DNS.DefaultZone,
		DefaultTTL:  cfg.DNS.DefaultTTL,
		Writable:    cfg.DNS.TypeWritten,
		StrictZones: cfg.DNS.StrictZones,
	})

	app := &Application{
		config:     cfg,
		configPath: configPath,
		store:      store,
		service:    service,
		classifier: cl,
		journal:    journal,
		logger:     logger,
	}
	app.server = api.New(api.Options{
		Listen:     cfg.HTTP.Listen,
		Realm:      cfg.HTTP.Realm,
		Service:    service,
		Classifier: cl,
		Checker:    checker,
		Reload:     app.Reload,
		Logger:     logger,
	})
	return app, nil
}

func openJournal(path string) (audit.Journal, error) {
	if path == "" {
		log.Info(map[string]any{"disabled": true}, "Audit journal disabled")
		return audit.Nop{}, nil
	}
	journal, err := audit.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit journal: %w", err)
	}
	stats, err := journal.Stats()
	if err != nil {
		_ = journal.Close()
		return nil, fmt.Errorf("failed to read audit journal: %w", err)
	}
	log.Info(map[string]any{
		"path":    path,
		"zones":   stats.Zones,
		"entries": stats.Entries,
	}, "Audit journal opened")
	return journal, nil
}

func buildChecker(cfg config.AuthConfig, logger log.Logger) (directory.CredentialChecker, error) {
	if cfg.Backend != "ldap" {
		log.Warn(map[string]any{"backend": cfg.Backend}, "Authentication disabled, every login is accepted")
		return directory.Anonymous{}, nil
	}
	checker, err := directory.NewChecker(directory.Options{
		URI:          cfg.LDAP.URI,
		BindDN:       cfg.LDAP.BindDN,
		BindPassword: cfg.LDAP.BindPassword,
		UserDN:       cfg.LDAP.UserDN,
		UserFilter:   cfg.LDAP.UserFilter,
		GroupDN:      cfg.LDAP.GroupDN,
		GroupFilter:  cfg.LDAP.GroupFilter,
		CA:           cfg.LDAP.CA,
		StartTLS:     cfg.LDAP.StartTLS,
		CheckCert:    cfg.LDAP.CheckCert,
		Timeout:      cfg.LDAP.Timeout,
		CacheSize:    cfg.LDAP.CacheSize,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ldap checker: %w", err)
	}
	log.Info(map[string]any{"uri": cfg.LDAP.URI}, "LDAP authentication configured")
	return checker, nil
}

// Reload re-reads the configuration file and publishes its zone table.
// Other settings keep their startup values until restart.
func (app *Application) Reload() *classifier.Classification {
	cfg, err := loadConfig(app.configPath)
	if err != nil {
		return app.classifier.Classify(domain.NewError(domain.KindUnclassified, "", err), "")
	}
	return app.service.Reload(cfg.DNS.Zones)
}

// Run serves HTTP and blocks until ctx is cancelled, then shuts down.
func (app *Application) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		log.Info(map[string]any{"address": app.server.Addr()}, "HTTP server started")
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			_ = app.journal.Close()
			return fmt.Errorf("failed to serve HTTP: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info(nil, "Shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	var errs []error
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		log.Warn(map[string]any{"error": err}, "Error during HTTP shutdown")
		errs = append(errs, err)
	}
	if err := app.journal.Close(); err != nil {
		log.Warn(map[string]any{"error": err}, "Error closing audit journal")
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
