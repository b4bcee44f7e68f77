// Package handlers implements the REST endpoints of rr-zoned.
//
// Endpoints:
//   - GET  /api/v1/health
//   - GET  /api/v1/zones
//   - GET  /api/v1/zones/:zone/records
//   - POST /api/v1/zones/:zone/records
//   - POST /api/v1/zones/:zone/records/delete
//   - GET  /api/v1/zones/:zone/history
//   - POST /api/v1/reload
//
// The zone path segment "_default" selects the configured default zone.
// Failures are answered with the classified status and body.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/haukened/rr-zoned/internal/api/middleware"
	"github.com/haukened/rr-zoned/internal/api/models"
	"github.com/haukened/rr-zoned/internal/dns/common/log"
	"github.com/haukened/rr-zoned/internal/dns/domain"
	"github.com/haukened/rr-zoned/internal/dns/services/classifier"
	"github.com/haukened/rr-zoned/internal/dns/services/zones"
)

// DefaultZoneParam stands for the configured default zone in paths.
const DefaultZoneParam = "_default"

// ZoneService is what the handlers need from the zone service.
type ZoneService interface {
	Records(ctx context.Context, zone string) (domain.RecordSet, *classifier.Classification)
	Add(ctx context.Context, user string, req domain.UpdateRequest) (domain.Record, *classifier.Classification)
	Delete(ctx context.Context, user, zone string, selections []zones.Selection) ([]domain.Record, *classifier.Classification)
	History(zone string, limit int) ([]domain.Change, *classifier.Classification)
	Zones() []string
	Settings() zones.Settings
	Zone(zone string) string
}

// ReloadFunc re-reads the configuration and publishes the new zone table.
type ReloadFunc func() *classifier.Classification

// Handler contains dependencies for API handlers.
type Handler struct {
	service    ZoneService
	classifier *classifier.Classifier
	reload     ReloadFunc
	logger     log.Logger
}

// New creates a Handler. reload may be nil, in which case /reload answers
// with the unclassified error.
func New(service ZoneService, cl *classifier.Classifier, reload ReloadFunc, logger log.Logger) *Handler {
	if logger == nil {
		logger = log.GetLogger()
	}
	if cl == nil {
		cl = classifier.New(logger)
	}
	return &Handler{service: service, classifier: cl, reload: reload, logger: logger}
}

func zoneParam(c *gin.Context) string {
	z := c.Param("zone")
	if z == DefaultZoneParam {
		return ""
	}
	return z
}

func user(c *gin.Context) string {
	return c.GetString(middleware.UserKey)
}

func abort(c *gin.Context, cl *classifier.Classification) {
	c.AbortWithStatusJSON(cl.Status, models.ErrorResponse{
		Status:   cl.Status,
		Severity: string(cl.Severity),
		Message:  cl.Message,
		Zone:     cl.Zone,
	})
}

// malformed classifies a request body that failed to bind.
func (h *Handler) malformed(c *gin.Context, zone string, err error) {
	abort(c, h.classifier.Classify(domain.NewError(domain.KindMalformedInput, zone, err), zone))
}
