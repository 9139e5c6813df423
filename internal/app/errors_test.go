package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

type timeoutNetErr struct{}

func (timeoutNetErr) Error() string   { return "i/o timeout" }
func (timeoutNetErr) Timeout() bool   { return true }
func (timeoutNetErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		kind   Kind
		code   string
		status int
	}{
		{"deadline", fmt.Errorf("list: %w", context.DeadlineExceeded), KindUpstreamTimeout, CodeTimeout, http.StatusGatewayTimeout},
		{"net timeout", timeoutNetErr{}, KindUpstreamTimeout, CodeTimeout, http.StatusGatewayTimeout},
		{"oauth retrieve", &oauth2.RetrieveError{ErrorCode: "invalid_grant"}, KindConfiguration, CodeAuth, http.StatusInternalServerError},
		{"401", &googleapi.Error{Code: http.StatusUnauthorized}, KindConfiguration, CodeAuth, http.StatusInternalServerError},
		{"403", &googleapi.Error{Code: http.StatusForbidden}, KindUpstreamPermission, CodePermission, http.StatusInternalServerError},
		{"403 quota", &googleapi.Error{Code: http.StatusForbidden, Errors: []googleapi.ErrorItem{{Reason: "quotaExceeded"}}}, KindUpstreamRateLimit, CodeRateLimit, http.StatusTooManyRequests},
		{"404", &googleapi.Error{Code: http.StatusNotFound}, KindConfiguration, CodeCalendarNotFound, http.StatusInternalServerError},
		{"409", &googleapi.Error{Code: http.StatusConflict}, KindConflict, CodeSlotConflict, http.StatusConflict},
		{"429", &googleapi.Error{Code: http.StatusTooManyRequests}, KindUpstreamRateLimit, CodeRateLimit, http.StatusTooManyRequests},
		{"504", &googleapi.Error{Code: http.StatusGatewayTimeout}, KindUpstreamTimeout, CodeTimeout, http.StatusGatewayTimeout},
		{"500", &googleapi.Error{Code: http.StatusInternalServerError}, KindInternal, CodeInternal, http.StatusInternalServerError},
		{"plain", errors.New("boom"), KindInternal, CodeInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			if got.Kind != tc.kind || got.Code != tc.code || got.Kind.Status() != tc.status {
				t.Fatalf("classify(%v) = %v/%s/%d, want %v/%s/%d",
					tc.err, got.Kind, got.Code, got.Kind.Status(), tc.kind, tc.code, tc.status)
			}
			if !errors.Is(got, tc.err) {
				t.Fatal("classified error must unwrap to the cause")
			}
		})
	}

	t.Run("already classified passes through", func(t *testing.T) {
		in := validationError("date", "bad")
		if got := classify(fmt.Errorf("wrapped: %w", in)); got != in {
			t.Fatalf("classify = %v, want %v", got, in)
		}
	})

	t.Run("nil", func(t *testing.T) {
		if classify(nil) != nil {
			t.Fatal("classify(nil) must be nil")
		}
	})
}

func TestConflictErrorMessage(t *testing.T) {
	single := conflictError([]int{18})
	if single.Message != "The selected slot is no longer available: 18:00-19:00. Please refresh and pick another time." {
		t.Fatalf("message = %q", single.Message)
	}
	multi := conflictError([]int{9, 21})
	if multi.Message != "The selected slots are no longer available: 09:00-10:00, 21:00-22:00. Please refresh and pick another time." {
		t.Fatalf("message = %q", multi.Message)
	}
}
