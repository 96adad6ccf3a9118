package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/care-events-dashboard/internal/model"
	"github.com/maxviazov/care-events-dashboard/internal/service"
	"github.com/maxviazov/care-events-dashboard/pkg/response"
)

type EventHandler struct {
	svc service.EventService
}

func NewEventHandler(svc service.EventService) *EventHandler { return &EventHandler{svc: svc} }

func (h *EventHandler) Register(r *gin.RouterGroup) {
	g := r.Group("/events")
	{
		g.GET("", h.list)
		g.GET("/:id", h.getByID)
		g.POST("", h.create)
		g.POST("/batch", h.createBatch)
	}
}

type batchRequest struct {
	Events []model.Event `json:"events"`
}

type batchResponse struct {
	Items []model.Event `json:"items"`
	Count int           `json:"count"`
}

// bodyError reports an unreadable request body in the same shape as validation failures.
func bodyError(err error) error {
	return service.NewInvalidInputError([]service.FieldError{{Field: "body", Message: err.Error()}})
}

// paginationFromQuery keeps the raw strings; interpretation belongs to the service.
func paginationFromQuery(c *gin.Context) model.PaginationQuery {
	return model.PaginationQuery{Page: c.Query("page"), Limit: c.Query("limit")}
}

func (h *EventHandler) list(c *gin.Context) {
	page, err := h.svc.ListEvents(c.Request.Context(), paginationFromQuery(c))
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, page)
}

func (h *EventHandler) getByID(c *gin.Context) {
	e, err := h.svc.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, e)
}

func (h *EventHandler) create(c *gin.Context) {
	var req model.Event
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, bodyError(err))
		return
	}
	e, err := h.svc.RecordEvent(c.Request.Context(), req)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	c.Header("Location", APIV1Prefix+"/events/"+e.ID())
	response.WriteData(c, http.StatusCreated, e)
}

func (h *EventHandler) createBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, bodyError(err))
		return
	}
	saved, err := h.svc.RecordEvents(c.Request.Context(), req.Events)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusCreated, batchResponse{Items: saved, Count: len(saved)})
}
