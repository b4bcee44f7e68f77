// Package api serves the rr-zoned REST API with gin.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haukened/rr-zoned/internal/api/handlers"
	"github.com/haukened/rr-zoned/internal/api/middleware"
	"github.com/haukened/rr-zoned/internal/dns/common/log"
	"github.com/haukened/rr-zoned/internal/dns/gateways/directory"
	"github.com/haukened/rr-zoned/internal/dns/services/classifier"
)

const defaultRealm = "rr-zoned"

// Options configures a Server.
type Options struct {
	Listen     string
	Realm      string
	Service    handlers.ZoneService
	Classifier *classifier.Classifier
	Checker    directory.CredentialChecker
	Reload     handlers.ReloadFunc
	Logger     log.Logger
}

// Server is the HTTP front end.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	if opts.Checker == nil {
		opts.Checker = directory.Anonymous{}
	}
	if opts.Realm == "" {
		opts.Realm = defaultRealm
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(opts.Logger))

	h := handlers.New(opts.Service, opts.Classifier, opts.Reload, opts.Logger)
	RegisterRoutes(engine, h, opts.Checker, opts.Realm)

	// no write timeout: transfers and updates wait on the DNS server, which
	// is bounded by dns.timeout when configured
	httpServer := &http.Server{
		Addr:              opts.Listen,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{engine: engine, httpServer: httpServer}
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
