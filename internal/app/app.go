package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"studio-booking/internal/config"
)

const defaultCalendarTimeout = 10 * time.Second

// Calendar is the capability the booking workflow needs from the external
// calendar service.
type Calendar interface {
	// ListEvents returns the non-cancelled events overlapping [from, to],
	// with recurring events expanded to single instances.
	ListEvents(ctx context.Context, from, to time.Time) ([]Event, error)
	// CreateEvent writes one event without notifying anyone.
	CreateEvent(ctx context.Context, ev NewEvent) (*CreatedEvent, error)
	// Describe reports the calendar's own metadata for diagnostics.
	Describe(ctx context.Context) (*CalendarInfo, error)
}

// App holds everything a request needs. It is built once at startup and
// never mutated afterwards; requests share no other state.
type App struct {
	Calendar Calendar
	Locker   DateLocker
	Logger   *zap.Logger
	Studio   config.Studio
	Location *time.Location
	Timeout  time.Duration
	// Debug exposes upstream error detail in responses.
	Debug bool

	Now          func() time.Time
	NewBookingID func(time.Time) string
}

func New(cal Calendar, cfg config.Config, locker DateLocker, logger *zap.Logger) *App {
	if locker == nil {
		locker = NoopLocker{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.CalendarTimeout
	if timeout <= 0 {
		timeout = defaultCalendarTimeout
	}
	return &App{
		Calendar:     cal,
		Locker:       locker,
		Logger:       logger,
		Studio:       cfg.Studio,
		Location:     cfg.Location(),
		Timeout:      timeout,
		Debug:        cfg.IsDevelopment(),
		Now:          time.Now,
		NewBookingID: NewBookingID,
	}
}
