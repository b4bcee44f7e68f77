package api

import (
	"github.com/gin-gonic/gin"

	"github.com/haukened/rr-zoned/internal/api/handlers"
	"github.com/haukened/rr-zoned/internal/api/middleware"
	"github.com/haukened/rr-zoned/internal/dns/gateways/directory"
)

// RegisterRoutes mounts the API under /api/v1. Everything but /health sits
// behind basic authentication against checker.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, checker directory.CredentialChecker, realm string) {
	v1 := r.Group("/api/v1")
	v1.GET("/health", h.Health)

	authed := v1.Group("")
	authed.Use(middleware.BasicAuth(checker, realm))

	authed.GET("/zones", h.ListZones)
	authed.GET("/zones/:zone/records", h.GetRecords)
	authed.POST("/zones/:zone/records", h.AddRecord)
	authed.POST("/zones/:zone/records/delete", h.DeleteRecords)
	authed.GET("/zones/:zone/history", h.GetHistory)

	authed.POST("/reload", h.Reload)
}
