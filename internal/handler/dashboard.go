package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/maxviazov/care-events-dashboard/internal/dashboard"
	"github.com/maxviazov/care-events-dashboard/internal/service"
	"github.com/maxviazov/care-events-dashboard/internal/store"
	"github.com/maxviazov/care-events-dashboard/pkg/response"
)

const defaultRenderWait = 1500 * time.Millisecond

// DashboardHandler serves the HTML screens. Every request gets its own screen and store.
type DashboardHandler struct {
	svc        service.EventService
	renderWait time.Duration
	log        zerolog.Logger
}

// NewDashboardHandler: renderWait < 0 renders immediately, 0 means the default wait.
func NewDashboardHandler(svc service.EventService, renderWait time.Duration, logger zerolog.Logger) *DashboardHandler {
	if renderWait == 0 {
		renderWait = defaultRenderWait
	}
	return &DashboardHandler{svc: svc, renderWait: renderWait, log: logger}
}

func (h *DashboardHandler) Register(r *gin.Engine) {
	r.GET(dashboard.DashboardPath, h.page)
	r.GET(dashboard.StreamPath, h.stream)
	r.GET(dashboard.DetailPath, h.detail)
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, dashboard.DashboardPath) })
}

// screenFor builds a screen over a fresh store and applies the page and limit the request carries.
func (h *DashboardHandler) screenFor(c *gin.Context) *dashboard.Screen {
	log := h.log.With().Str("request_id", c.GetString(response.RequestIDKey)).Logger()
	st := store.New(h.svc, log)
	s := dashboard.NewScreen(st, st, log)
	for _, field := range []string{dashboard.FieldPage, dashboard.FieldLimit} {
		if v, ok := c.GetQuery(field); ok {
			s.SetField(field, v)
		}
	}
	return s
}

func (h *DashboardHandler) page(c *gin.Context) {
	ctx := c.Request.Context()
	s := h.screenFor(c)
	done := s.Mount(ctx)
	h.await(ctx, done)
	c.HTML(http.StatusOK, dashboard.DashboardTemplate, dashboard.Collect(s))
}

func (h *DashboardHandler) await(ctx context.Context, done <-chan struct{}) {
	if h.renderWait < 0 {
		return
	}
	timer := time.NewTimer(h.renderWait)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	case <-ctx.Done():
	}
}

// stream pushes every state change of one screen as a server-sent "state" event carrying the
// view, until the initial fetch settles or the client goes away.
func (h *DashboardHandler) stream(c *gin.Context) {
	ctx := c.Request.Context()
	s := h.screenFor(c)

	states := make(chan dashboard.State, 16)
	unsubscribe := s.Subscribe(func(st dashboard.State) {
		select {
		case states <- st:
		default:
			// the client reads revisions, a skipped intermediate state is harmless
		}
	})
	defer unsubscribe()

	done := s.Mount(ctx)
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(_ io.Writer) bool {
		select {
		case st := <-states:
			c.SSEvent("state", dashboard.BuildView(st))
			return true
		case <-done:
			for {
				select {
				case st := <-states:
					c.SSEvent("state", dashboard.BuildView(st))
				default:
					return false
				}
			}
		case <-ctx.Done():
			return false
		}
	})
}

func (h *DashboardHandler) detail(c *gin.Context) {
	v := dashboard.BuildDetailView(c.Query(dashboard.StateParam))
	status := http.StatusOK
	if v.Error != "" {
		status = http.StatusBadRequest
		h.log.Debug().Str("error", v.Error).Msg("rejected detail state")
	}
	c.HTML(status, dashboard.DetailTemplate, v)
}
