// Package models defines request and response types for the rr-zoned API.
package models

import (
	"github.com/haukened/rr-zoned/internal/dns/domain"
	"github.com/haukened/rr-zoned/internal/dns/services/zones"
)

// ErrorResponse is a classified failure as returned to clients.
type ErrorResponse struct {
	Status   int    `json:"status"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Zone     string `json:"zone,omitempty"`
}

// StatusResponse represents a simple status response.
type StatusResponse struct {
	Status string `json:"status"`
}

// ZoneListResponse lists configured zones with the form defaults.
type ZoneListResponse struct {
	Zones    []string       `json:"zones"`
	Count    int            `json:"count"`
	Settings zones.Settings `json:"settings"`
}

// RecordsResponse carries the displayable records of a zone.
type RecordsResponse struct {
	Zone    string          `json:"zone"`
	Records []domain.Record `json:"records"`
	Count   int             `json:"count"`
}

// RecordCreateRequest adds one record. A zero TTL takes the configured default.
type RecordCreateRequest struct {
	Owner   string `json:"owner" binding:"required"`
	TTL     uint32 `json:"ttl"`
	Type    string `json:"type" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// RecordDeleteRequest selects the RRsets to remove.
type RecordDeleteRequest struct {
	Records []zones.Selection `json:"records" binding:"dive"`
}

// ChangeResponse echoes the records an update applied.
type ChangeResponse struct {
	Zone    string          `json:"zone"`
	Action  domain.Action   `json:"action"`
	Records []domain.Record `json:"records"`
}

// HistoryResponse lists journaled changes, newest first.
type HistoryResponse struct {
	Zone    string          `json:"zone"`
	Changes []domain.Change `json:"changes"`
}
