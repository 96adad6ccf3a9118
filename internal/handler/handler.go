package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/maxviazov/care-events-dashboard/internal/service"
)

// APIV1Prefix is the base path of the JSON API.
const APIV1Prefix = "/api/v1"

// Deps are the collaborators the routes are built from.
type Deps struct {
	Pinger Pinger
	Events service.EventService
	Logger zerolog.Logger
	// RenderWait bounds how long the HTML dashboard waits for its fetch before showing the loader.
	RenderWait time.Duration
}

// Register mounts all public routes on the given engine.
// The engine must already carry the dashboard templates (see NewRouter).
func Register(r *gin.Engine, d Deps) {
	h := NewHealthHandler(d.Pinger)

	// Health probes
	r.GET("/live", h.Liveness)
	r.GET("/ready", h.Readiness)

	RegisterDocs(r)

	NewDashboardHandler(d.Events, d.RenderWait, d.Logger).Register(r)

	api := r.Group(APIV1Prefix)
	{
		health := api.Group("/health")
		{
			health.GET("/live", h.Liveness)
			health.GET("/ready", h.Readiness)
		}
		NewEventHandler(d.Events).Register(api)
	}
}
