package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/haukened/rr-zoned/internal/api/models"
	"github.com/haukened/rr-zoned/internal/dns/domain"
)

const defaultHistoryLimit = 50

var (
	errReloadUnavailable = errors.New("reload is not available")
	errBadLimit          = errors.New("limit must be a non-negative integer")
)

// ListZones returns the configured zones and the form defaults.
func (h *Handler) ListZones(c *gin.Context) {
	names := h.service.Zones()
	c.JSON(http.StatusOK, models.ZoneListResponse{
		Zones:    names,
		Count:    len(names),
		Settings: h.service.Settings(),
	})
}

// GetRecords returns the displayable records of a zone ordered by type.
func (h *Handler) GetRecords(c *gin.Context) {
	zone := h.service.Zone(zoneParam(c))
	records, cl := h.service.Records(c.Request.Context(), zone)
	if cl != nil {
		abort(c, cl)
		return
	}
	if records == nil {
		records = domain.RecordSet{}
	}
	c.JSON(http.StatusOK, models.RecordsResponse{Zone: zone, Records: records, Count: len(records)})
}

// AddRecord creates one record in a zone.
func (h *Handler) AddRecord(c *gin.Context) {
	zone := h.service.Zone(zoneParam(c))
	var req models.RecordCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.malformed(c, zone, err)
		return
	}
	rec, cl := h.service.Add(c.Request.Context(), user(c), domain.UpdateRequest{
		Zone:    zone,
		Owner:   req.Owner,
		TTL:     req.TTL,
		Type:    req.Type,
		Content: req.Content,
		Action:  domain.ActionAdd,
	})
	if cl != nil {
		abort(c, cl)
		return
	}
	c.JSON(http.StatusCreated, models.ChangeResponse{
		Zone:    zone,
		Action:  domain.ActionAdd,
		Records: []domain.Record{rec},
	})
}

// DeleteRecords removes the RRsets of the selected records in order.
func (h *Handler) DeleteRecords(c *gin.Context) {
	zone := h.service.Zone(zoneParam(c))
	var req models.RecordDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.malformed(c, zone, err)
		return
	}
	deleted, cl := h.service.Delete(c.Request.Context(), user(c), zone, req.Records)
	if cl != nil {
		abort(c, cl)
		return
	}
	c.JSON(http.StatusOK, models.ChangeResponse{
		Zone:    zone,
		Action:  domain.ActionDelete,
		Records: deleted,
	})
}

// GetHistory returns the journaled changes of a zone, newest first. The
// optional "limit" query parameter caps the count; 0 returns everything.
func (h *Handler) GetHistory(c *gin.Context) {
	zone := h.service.Zone(zoneParam(c))
	limit := defaultHistoryLimit
	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.malformed(c, zone, errBadLimit)
			return
		}
		limit = n
	}
	changes, cl := h.service.History(zone, limit)
	if cl != nil {
		abort(c, cl)
		return
	}
	if changes == nil {
		changes = []domain.Change{}
	}
	c.JSON(http.StatusOK, models.HistoryResponse{Zone: zone, Changes: changes})
}
