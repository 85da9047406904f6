package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/booking-calendar-api/internal/dto"
	"github.com/noah-isme/booking-calendar-api/internal/models"
	"github.com/noah-isme/booking-calendar-api/pkg/response"
)

type scheduleService interface {
	Get(ctx context.Context, ownerID string) (*models.Schedule, bool, error)
	Save(ctx context.Context, caller models.Caller, form dto.ScheduleForm) (*models.Schedule, error)
}

// ScheduleHandler exposes the signed-in user's weekly availability.
type ScheduleHandler struct {
	schedules scheduleService
}

// NewScheduleHandler constructs a ScheduleHandler.
func NewScheduleHandler(schedules scheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// Get godoc
// @Summary Get my schedule
// @Description data is null until a schedule has been saved.
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /schedule [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, found, err := h.schedules.Get(c.Request.Context(), callerFromContext(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	var data interface{}
	if found {
		data = schedule
	}
	response.JSON(c, http.StatusOK, data, map[string]interface{}{"found": found})
}

// Save godoc
// @Summary Replace my schedule
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ScheduleForm true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedule [put]
func (h *ScheduleHandler) Save(c *gin.Context) {
	var form dto.ScheduleForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Error(c, invalidPayload(err, "invalid schedule payload"))
		return
	}
	schedule, err := h.schedules.Save(c.Request.Context(), callerFromContext(c), form)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule)
}
