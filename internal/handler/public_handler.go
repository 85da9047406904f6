package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/booking-calendar-api/internal/models"
	appErrors "github.com/noah-isme/booking-calendar-api/pkg/errors"
	"github.com/noah-isme/booking-calendar-api/pkg/response"
)

type publicEventService interface {
	ListPublic(ctx context.Context, ownerID string) ([]models.PublicEvent, error)
	GetPublic(ctx context.Context, ownerID, id string) (*models.PublicEvent, bool, error)
}

type availabilityFeed interface {
	Feed(ctx context.Context, ownerID string) ([]byte, bool, error)
}

// PublicHandler serves the anonymous booking pages.
type PublicHandler struct {
	events publicEventService
	feed   availabilityFeed
}

// NewPublicHandler constructs a PublicHandler.
func NewPublicHandler(events publicEventService, feed availabilityFeed) *PublicHandler {
	return &PublicHandler{events: events, feed: feed}
}

// ListEvents godoc
// @Summary List bookable events of a user
// @Tags Booking
// @Produce json
// @Param userId path string true "Owner user ID"
// @Success 200 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /book/{userId} [get]
func (h *PublicHandler) ListEvents(c *gin.Context) {
	events, err := h.events.ListPublic(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, map[string]interface{}{"total": len(events)})
}

// GetEvent godoc
// @Summary Get one bookable event
// @Tags Booking
// @Produce json
// @Param userId path string true "Owner user ID"
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /book/{userId}/{eventId} [get]
func (h *PublicHandler) GetEvent(c *gin.Context) {
	event, found, err := h.events.GetPublic(c.Request.Context(), c.Param("userId"), c.Param("eventId"))
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

// Availability godoc
// @Summary Weekly availability as iCalendar
// @Tags Booking
// @Produce text/calendar
// @Param userId path string true "Owner user ID"
// @Success 200 {string} string
// @Failure 404 {object} response.Envelope
// @Router /book/{userId}/availability.ics [get]
func (h *PublicHandler) Availability(c *gin.Context) {
	body, found, err := h.feed.Feed(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !found {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "schedule not found"))
		return
	}
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", body)
}
