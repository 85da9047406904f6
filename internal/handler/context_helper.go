package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/booking-calendar-api/internal/middleware"
	"github.com/noah-isme/booking-calendar-api/internal/models"
	appErrors "github.com/noah-isme/booking-calendar-api/pkg/errors"
)

func callerFromContext(c *gin.Context) models.Caller {
	return middleware.CallerFrom(c)
}

func invalidPayload(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}
