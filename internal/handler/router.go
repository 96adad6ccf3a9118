package handler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/maxviazov/care-events-dashboard/internal/dashboard"
)

// NewRouter builds the engine with recovery, request IDs, request logging, CORS and the page
// templates, then registers every route. An empty origins list allows any origin.
func NewRouter(d Deps, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(d.Logger))

	corsConfig := cors.DefaultConfig()
	if len(corsOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = corsOrigins
	}
	corsConfig.AddAllowHeaders(RequestIDHeader)
	corsConfig.AddExposeHeaders(RequestIDHeader)
	corsConfig.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsConfig))

	r.SetHTMLTemplate(dashboard.Templates())
	Register(r, d)
	return r
}
