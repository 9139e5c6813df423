package app

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GET /api/get-events?date=YYYY-MM-DD
func (a *App) GetEventsHandler(c *gin.Context) {
	busy, err := a.BusySlots(c.Request.Context(), c.Query("date"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, busy)
}

// POST /api/create-event
func (a *App) CreateEventHandler(c *gin.Context) {
	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.respondError(c, &Error{
			Kind:    KindValidation,
			Code:    CodeValidation,
			Field:   "body",
			Message: "Request body must be JSON with date, slots (integer hours) and userData.",
			Err:     err,
		})
		return
	}

	booking, err := a.CreateBooking(c.Request.Context(), req)
	if err != nil {
		a.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   confirmationMessage(booking),
		"bookingId": booking.BookingID,
		"event":     booking.Event,
		"booking":   booking,
	})
}

// GET /api/month-availability?month=YYYY-MM
func (a *App) MonthAvailabilityHandler(c *gin.Context) {
	days, err := a.MonthAvailability(c.Request.Context(), c.Query("month"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"month":         c.Query("month"),
		"bookableHours": a.Studio.BookableHours,
		"days":          days,
	})
}

// GET /api/studio
func (a *App) StudioHandler(c *gin.Context) {
	c.JSON(http.StatusOK, a.Studio)
}

// GET /api/admin/config-check
func (a *App) ConfigCheckHandler(c *gin.Context) {
	d := a.Diagnose(c.Request.Context())
	status := http.StatusOK
	if d.Status != "success" {
		status = http.StatusInternalServerError
	}
	c.JSON(status, d)
}

// PreflightHandler answers OPTIONS requests that reach the router without
// being handled by the CORS middleware.
func PreflightHandler(c *gin.Context) {
	c.Status(http.StatusOK)
}

func MethodNotAllowedHandler(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"message": "Method Not Allowed"})
}

func confirmationMessage(b *Booking) string {
	msg := "Booking confirmed! Your session has been added to the studio calendar."
	if len(b.ImplicitSlots) == 0 {
		return msg
	}
	gaps := make([]string, len(b.ImplicitSlots))
	for i, h := range b.ImplicitSlots {
		gaps[i] = hourRange(h)
	}
	msg = fmt.Sprintf("%s Sessions are booked as one continuous block from %s to %s, so %s is included as well.",
		msg, b.Start.Format("15:04"), spanEnd(b.Start, b.End), strings.Join(gaps, ", "))
	if len(b.OverlappingSlots) > 0 {
		taken := make([]string, len(b.OverlappingSlots))
		for i, h := range b.OverlappingSlots {
			taken[i] = hourRange(h)
		}
		msg += fmt.Sprintf(" Note: %s was already taken by another session; the studio will contact you to confirm.",
			strings.Join(taken, ", "))
	}
	return msg
}

// respondError writes the caller-facing body for err. Upstream detail is only
// attached in development mode.
func (a *App) respondError(c *gin.Context, err error) {
	appErr := classify(err)

	body := gin.H{
		"message": appErr.Message,
		"code":    appErr.Code,
	}
	if appErr.Field != "" {
		body["field"] = appErr.Field
	}
	if len(appErr.Conflicts) > 0 {
		body["conflicts"] = appErr.Conflicts
	}
	if a.Debug && appErr.Err != nil {
		body["debug"] = gin.H{
			"originalError": appErr.Err.Error(),
			"timestamp":     time.Now().UTC().Format(time.RFC3339),
		}
	}

	if appErr.Kind == KindInternal {
		a.Logger.Error("request failed",
			zap.String("path", c.FullPath()), zap.String("code", appErr.Code), zap.Error(err))
	}
	c.JSON(appErr.Kind.Status(), body)
}
