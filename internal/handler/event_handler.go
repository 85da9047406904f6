package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/booking-calendar-api/internal/dto"
	"github.com/noah-isme/booking-calendar-api/internal/models"
	appErrors "github.com/noah-isme/booking-calendar-api/pkg/errors"
	"github.com/noah-isme/booking-calendar-api/pkg/response"
)

type eventService interface {
	List(ctx context.Context, ownerID string) ([]models.Event, error)
	Get(ctx context.Context, ownerID, id string) (*models.Event, bool, error)
	Create(ctx context.Context, caller models.Caller, form dto.EventForm) (*models.Event, error)
	Update(ctx context.Context, caller models.Caller, id string, form dto.EventForm) (*models.Event, error)
	Delete(ctx context.Context, caller models.Caller, id string) error
}

type exportService interface {
	Events(ctx context.Context, caller models.Caller, format dto.ExportFormat) (*dto.ExportFile, error)
}

var errEventNotFound = appErrors.Clone(appErrors.ErrNotFound, "event not found")

// EventHandler exposes the signed-in user's event management endpoints.
type EventHandler struct {
	events  eventService
	exports exportService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events eventService, exports exportService) *EventHandler {
	return &EventHandler{events: events, exports: exports}
}

// List godoc
// @Summary List my events
// @Description Events of the signed-in user ordered by name, case-insensitive.
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	caller := callerFromContext(c)
	events, err := h.events.List(c.Request.Context(), caller.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, map[string]interface{}{"total": len(events)})
}

// Get godoc
// @Summary Get one of my events
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	caller := callerFromContext(c)
	event, found, err := h.events.Get(c.Request.Context(), caller.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !found {
		response.Error(c, errEventNotFound)
		return
	}
	response.JSON(c, http.StatusOK, event)
}

// Create godoc
// @Summary Create an event
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.EventForm true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	var form dto.EventForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Error(c, invalidPayload(err, "invalid event payload"))
		return
	}
	event, err := h.events.Create(c.Request.Context(), callerFromContext(c), form)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Update godoc
// @Summary Update one of my events
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param payload body dto.EventForm true "Event payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	var form dto.EventForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Error(c, invalidPayload(err, "invalid event payload"))
		return
	}
	event, err := h.events.Update(c.Request.Context(), callerFromContext(c), c.Param("id"), form)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event)
}

// Delete godoc
// @Summary Delete one of my events
// @Tags Events
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	if err := h.events.Delete(c.Request.Context(), callerFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Download my events
// @Tags Events
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /events/export [get]
func (h *EventHandler) Export(c *gin.Context) {
	file, err := h.exports.Events(c.Request.Context(), callerFromContext(c), dto.ExportFormat(c.DefaultQuery("format", string(dto.ExportFormatCSV))))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
