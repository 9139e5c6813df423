package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"studio-booking/internal/config"
)

const (
	wallClockLayout = "2006-01-02T15:04:05"
	listPageSize    = 250
)

// NewCalendar builds the calendar backend selected by cfg.
func NewCalendar(ctx context.Context, cfg config.Config) (Calendar, error) {
	switch cfg.CalendarBackend {
	case config.BackendMemory:
		return NewMemoryCalendar(cfg.Location()), nil
	case config.BackendGoogle:
		return NewGoogleCalendar(ctx, cfg.Google.ClientEmail, cfg.Google.PrivateKey, cfg.Google.CalendarID, cfg.Location())
	}
	return nil, fmt.Errorf("unknown calendar backend %q", cfg.CalendarBackend)
}

// GoogleCalendar talks to one Google calendar as a service account.
type GoogleCalendar struct {
	srv        *calendar.Service
	calendarID string
	loc        *time.Location
}

// NewGoogleCalendar authenticates with the service account key. Extra client
// options are appended after the credentials, so tests can point the client
// at another endpoint.
func NewGoogleCalendar(ctx context.Context, clientEmail, privateKey, calendarID string, loc *time.Location, opts ...option.ClientOption) (*GoogleCalendar, error) {
	conf := &jwt.Config{
		Email:      clientEmail,
		PrivateKey: []byte(privateKey),
		Scopes: []string{
			calendar.CalendarScope,
			calendar.CalendarEventsScope,
		},
		TokenURL: google.JWTTokenURL,
	}

	clientOpts := append([]option.ClientOption{option.WithHTTPClient(conf.Client(ctx))}, opts...)
	srv, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return NewGoogleCalendarFromService(srv, calendarID, loc), nil
}

func NewGoogleCalendarFromService(srv *calendar.Service, calendarID string, loc *time.Location) *GoogleCalendar {
	return &GoogleCalendar{srv: srv, calendarID: calendarID, loc: loc}
}

func (g *GoogleCalendar) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	call := g.srv.Events.List(g.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		TimeZone(g.loc.String()).
		SingleEvents(true).
		ShowDeleted(false).
		OrderBy("startTime").
		MaxResults(listPageSize)

	var out []Event
	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			if item.Status == "cancelled" {
				continue
			}
			ev, err := g.toEvent(item)
			if err != nil {
				return err
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *GoogleCalendar) toEvent(item *calendar.Event) (Event, error) {
	ev := Event{ID: item.Id, Summary: item.Summary, Status: item.Status}
	if item.Start == nil || item.End == nil {
		return ev, fmt.Errorf("event %s has no start or end", item.Id)
	}

	if item.Start.DateTime == "" {
		ev.AllDay = true
		ev.StartDate = item.Start.Date
		ev.EndDate = item.End.Date
		return ev, nil
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return ev, fmt.Errorf("event %s start %q: %w", item.Id, item.Start.DateTime, err)
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return ev, fmt.Errorf("event %s end %q: %w", item.Id, item.End.DateTime, err)
	}
	ev.Start = start.In(g.loc)
	ev.End = end.In(g.loc)
	return ev, nil
}

func (g *GoogleCalendar) CreateEvent(ctx context.Context, ev NewEvent) (*CreatedEvent, error) {
	body := &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start.Format(wallClockLayout),
			TimeZone: ev.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End.Format(wallClockLayout),
			TimeZone: ev.TimeZone,
		},
		// service accounts cannot invite attendees without domain-wide
		// delegation, so the customer lives in the description and properties
		Reminders: &calendar.EventReminders{
			UseDefault:      false,
			ForceSendFields: []string{"UseDefault"},
		},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: ev.Properties,
		},
	}

	created, err := g.srv.Events.Insert(g.calendarID, body).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	out := &CreatedEvent{
		ID:       created.Id,
		HTMLLink: created.HtmlLink,
		Summary:  created.Summary,
		Start:    ev.Start,
		End:      ev.End,
	}
	if parsed, err := g.toEvent(created); err == nil && !parsed.AllDay {
		out.Start, out.End = parsed.Start, parsed.End
	}
	return out, nil
}

// Describe prefers the calendar list entry because it carries the caller's
// access role. A service account that was shared the calendar but never
// subscribed to it gets a 404 there, so fall back to the calendar resource.
func (g *GoogleCalendar) Describe(ctx context.Context) (*CalendarInfo, error) {
	entry, err := g.srv.CalendarList.Get(g.calendarID).Context(ctx).Do()
	if err == nil {
		return &CalendarInfo{
			ID:         entry.Id,
			Summary:    entry.Summary,
			TimeZone:   entry.TimeZone,
			AccessRole: entry.AccessRole,
		}, nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		return nil, err
	}

	cal, err := g.srv.Calendars.Get(g.calendarID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return &CalendarInfo{ID: cal.Id, Summary: cal.Summary, TimeZone: cal.TimeZone}, nil
}
