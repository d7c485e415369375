package main

import (
	"context"
	"net/http"

	"recording-relay/internal/auth"
	"recording-relay/internal/config"
	"recording-relay/internal/documents"
	"recording-relay/internal/failurelog"
	"recording-relay/internal/httpapi"
	"recording-relay/internal/netwatch"
	"recording-relay/internal/rbac"
	"recording-relay/internal/telephony"
	"recording-relay/internal/uploads"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	cfg        config.Config
	authMW     gin.HandlerFunc
	session    *auth.Session
	policy     auth.Policy
	calls      telephony.CallSink
	network    *netwatch.Monitor
	failures   failurelog.Store
	journal    uploads.Journal
	documents  documents.Repository
	healthPing func(ctx context.Context) error
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if d.healthPing != nil {
			if err := d.healthPing(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connected": d.network.Connected()})
	})

	// Provider webhooks (public, signature-checked when a token is configured).
	r.POST("/webhooks/twilio/status", telephony.TwilioStatusHandler{
		Calls:     d.calls,
		AuthToken: d.cfg.Twilio.AuthToken,
		PublicURL: d.cfg.Twilio.PublicURL,
	}.Handle)

	h := httpapi.Handlers{
		Session:   d.session,
		Policy:    d.policy,
		Failures:  d.failures,
		Retrier:   d.network,
		Journal:   d.journal,
		Documents: d.documents,
	}

	// Refresh is public: the caller's access token may have expired.
	r.POST("/v1/session/refresh", h.RefreshSession)

	v1 := r.Group("/v1")
	v1.Use(d.authMW)

	device := v1.Group("")
	device.Use(rbac.RequireAnyRole(rbac.RoleDevice))
	{
		ev := telephony.EventHandlers{Calls: d.calls, Network: d.network}
		device.POST("/events/call-state", ev.CallState)
		device.POST("/events/connectivity", ev.Connectivity)

		device.POST("/session", h.SignIn)
		device.DELETE("/session", h.SignOut)
	}

	admin := v1.Group("/admin")
	admin.Use(rbac.RequireAnyRole(rbac.RoleOperator))
	{
		admin.GET("/failures", h.ListFailures)
		admin.POST("/failures/retry", h.RetryFailures)
		admin.GET("/uploads", h.ListUploads)
		admin.GET("/documents/:collection/:phone", h.GetDocument)
	}
}
