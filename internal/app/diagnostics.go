package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Diagnostics is the operator view of whether the service can do its job.
type Diagnostics struct {
	Status          string            `json:"status"`
	Calendar        *CalendarInfo     `json:"calendar,omitempty"`
	StudioTimeZone  string            `json:"studioTimeZone"`
	StudioTime      string            `json:"studioTime"`
	Checks          map[string]string `json:"checks"`
	Recommendations []string          `json:"recommendations"`
	Error           string            `json:"error,omitempty"`
	CheckedAt       time.Time         `json:"checkedAt"`
}

const (
	checkOK      = "ok"
	checkWarning = "warning"
	checkFailed  = "failed"
)

// Diagnose reads the calendar metadata and compares it with the studio
// settings. It never returns an error: failures are part of the report.
func (a *App) Diagnose(ctx context.Context) Diagnostics {
	now := a.Now()
	d := Diagnostics{
		Status:          "success",
		StudioTimeZone:  a.Location.String(),
		StudioTime:      now.In(a.Location).Format("Monday, 02 January 2006 15:04"),
		Checks:          map[string]string{},
		Recommendations: []string{},
		CheckedAt:       now.UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()
	info, err := a.Calendar.Describe(ctx)
	if err != nil {
		appErr := classify(err)
		a.Logger.Error("calendar diagnostics failed", zap.String("code", appErr.Code), zap.Error(err))
		d.Status = "error"
		d.Error = appErr.Code
		d.Checks["calendarAccess"] = checkFailed
		d.Recommendations = append(d.Recommendations, accessHint(appErr.Code))
		a.studioRecommendations(&d)
		return d
	}
	d.Calendar = info
	d.Checks["calendarAccess"] = checkOK

	switch {
	case info.TimeZone == "":
		d.Checks["timezoneConsistency"] = checkWarning
	case info.TimeZone != a.Location.String():
		d.Checks["timezoneConsistency"] = checkWarning
		d.Recommendations = append(d.Recommendations, fmt.Sprintf(
			"Calendar timezone (%s) differs from studio timezone (%s). Events will still be written with the studio timezone.",
			info.TimeZone, a.Location))
	default:
		d.Checks["timezoneConsistency"] = checkOK
	}

	switch info.AccessRole {
	case "owner", "writer":
		d.Checks["calendarPermissions"] = checkOK
	case "":
		d.Checks["calendarPermissions"] = checkWarning
		d.Recommendations = append(d.Recommendations, "Access role unknown: the calendar is not in the service account's calendar list.")
	default:
		d.Status = "error"
		d.Checks["calendarPermissions"] = checkFailed
		d.Recommendations = append(d.Recommendations, fmt.Sprintf(
			"Service account has %q access. Grant \"Make changes to events\" on the calendar.", info.AccessRole))
	}

	a.studioRecommendations(&d)
	return d
}

func (a *App) studioRecommendations(d *Diagnostics) {
	if a.Studio.Address == "" {
		d.Recommendations = append(d.Recommendations, "Set STUDIO_ADDRESS to show the studio location.")
	}
	if a.Studio.Email == "" {
		d.Recommendations = append(d.Recommendations, "Set STUDIO_EMAIL to show a contact e-mail.")
	}
	if a.Studio.Phone == "" {
		d.Recommendations = append(d.Recommendations, "Set STUDIO_PHONE to show a contact phone.")
	}
}

func accessHint(code string) string {
	switch code {
	case CodeAuth:
		return "Verify GOOGLE_CLIENT_EMAIL and GOOGLE_PRIVATE_KEY belong to the same service account."
	case CodeCalendarNotFound:
		return "Verify GOOGLE_CALENDAR_ID and share the calendar with the service account."
	case CodePermission:
		return "Share the calendar with the service account and enable the Calendar API."
	case CodeRateLimit:
		return "Calendar API quota exceeded; retry later."
	case CodeTimeout:
		return "The Calendar API did not answer in time; check connectivity."
	}
	return "Check the service logs for the calendar error."
}
