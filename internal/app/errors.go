package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Kind is the caller-facing category of a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindConfiguration
	KindUpstreamTimeout
	KindUpstreamRateLimit
	KindUpstreamPermission
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindConfiguration:
		return "configuration"
	case KindUpstreamTimeout:
		return "upstream_timeout"
	case KindUpstreamRateLimit:
		return "upstream_rate_limit"
	case KindUpstreamPermission:
		return "upstream_permission"
	default:
		return "internal"
	}
}

// Status is the HTTP status a kind maps to.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case KindUpstreamRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeSlotConflict     = "SLOT_CONFLICT"
	CodeAuth             = "AUTH_ERROR"
	CodeCalendarNotFound = "CALENDAR_NOT_FOUND"
	CodePermission       = "PERMISSION_DENIED"
	CodeRateLimit        = "RATE_LIMIT_EXCEEDED"
	CodeTimeout          = "TIMEOUT_ERROR"
	CodeServiceInit      = "SERVICE_INIT_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
)

// Error is the single error type the HTTP layer understands. Message is safe
// to show to a customer; Err keeps the upstream cause for logs and debug
// output only.
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Field     string
	Conflicts []int
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func validationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Field: field, Message: message}
}

func conflictError(slots []int) *Error {
	ranges := make([]string, len(slots))
	for i, h := range slots {
		ranges[i] = hourRange(h)
	}
	noun := "slot is"
	if len(slots) > 1 {
		noun = "slots are"
	}
	return &Error{
		Kind:      KindConflict,
		Code:      CodeSlotConflict,
		Message:   fmt.Sprintf("The selected %s no longer available: %s. Please refresh and pick another time.", noun, strings.Join(ranges, ", ")),
		Conflicts: slots,
	}
}

// classify re-maps an error from the calendar service or the lock backend
// into the caller-facing taxonomy. Already classified errors pass through.
func classify(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return timeoutError(err)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &Error{Kind: KindConfiguration, Code: CodeAuth, Message: "Calendar authentication failed. Please contact the studio.", Err: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr, err)
	}

	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "Internal server error. Please try again.", Err: err}
}

func classifyAPIError(apiErr *googleapi.Error, err error) *Error {
	if isRateLimitReason(apiErr) {
		return rateLimitError(err)
	}
	switch apiErr.Code {
	case http.StatusBadRequest:
		if hasReason(apiErr, "timeRangeEmpty") {
			return &Error{Kind: KindInternal, Code: CodeInternal, Message: "Internal server error. Please try again.", Err: err}
		}
		return &Error{Kind: KindConfiguration, Code: CodeServiceInit, Message: "Calendar configuration error. Please contact the studio.", Err: err}
	case http.StatusUnauthorized:
		return &Error{Kind: KindConfiguration, Code: CodeAuth, Message: "Calendar authentication failed. Please contact the studio.", Err: err}
	case http.StatusForbidden:
		return &Error{Kind: KindUpstreamPermission, Code: CodePermission, Message: "The studio calendar is not accessible right now. Please contact the studio.", Err: err}
	case http.StatusNotFound:
		return &Error{Kind: KindConfiguration, Code: CodeCalendarNotFound, Message: "Calendar not found. Please contact the studio.", Err: err}
	case http.StatusConflict:
		return &Error{Kind: KindConflict, Code: CodeSlotConflict, Message: "One of the selected slots is no longer available. Please refresh and pick another time.", Err: err}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return timeoutError(err)
	case http.StatusTooManyRequests:
		return rateLimitError(err)
	}
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "Internal server error. Please try again.", Err: err}
}

func isRateLimitReason(apiErr *googleapi.Error) bool {
	return hasReason(apiErr, "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded", "dailyLimitExceeded")
}

func hasReason(apiErr *googleapi.Error, reasons ...string) bool {
	for _, item := range apiErr.Errors {
		for _, r := range reasons {
			if item.Reason == r {
				return true
			}
		}
	}
	return false
}

func timeoutError(err error) *Error {
	return &Error{Kind: KindUpstreamTimeout, Code: CodeTimeout, Message: "The calendar took too long to answer. Please try again.", Err: err}
}

func rateLimitError(err error) *Error {
	return &Error{Kind: KindUpstreamRateLimit, Code: CodeRateLimit, Message: "Too many requests to the calendar. Please try again in a few minutes.", Err: err}
}
