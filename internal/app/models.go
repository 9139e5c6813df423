package app

import "time"

// Event is a calendar entry as seen by the availability query. Timed events
// carry Start/End instants; all-day events carry date-only bounds with
// EndDate exclusive, as the calendar service reports them.
type Event struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	Status    string    `json:"status"`
	Start     time.Time `json:"start,omitempty"`
	End       time.Time `json:"end,omitempty"`
	AllDay    bool      `json:"all_day,omitempty"`
	StartDate string    `json:"start_date,omitempty"`
	EndDate   string    `json:"end_date,omitempty"`
}

// NewEvent is the body handed to the calendar for a booking. Start and End
// are wall-clock values in TimeZone; the calendar service does the UTC
// conversion.
type NewEvent struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Properties  map[string]string
}

type CreatedEvent struct {
	ID       string    `json:"id"`
	HTMLLink string    `json:"htmlLink"`
	Summary  string    `json:"summary"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// CalendarInfo is what the diagnostics report about the target calendar.
type CalendarInfo struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	TimeZone   string `json:"timeZone"`
	AccessRole string `json:"accessRole,omitempty"`
}

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// BookingRequest is the booking endpoint payload. Services and Observations
// are opaque pass-through metadata.
type BookingRequest struct {
	Date         string   `json:"date"`
	Slots        []int    `json:"slots"`
	UserData     Customer `json:"userData"`
	Services     []string `json:"services,omitempty"`
	Observations string   `json:"observations,omitempty"`
}

// Booking is the confirmation returned after the event was written.
// OverlappingSlots are implicit hours another event already occupied when the
// booking was written.
type Booking struct {
	BookingID        string       `json:"bookingId"`
	Date             string       `json:"date"`
	RequestedSlots   []int        `json:"requestedSlots"`
	BookedSlots      []int        `json:"bookedSlots"`
	ImplicitSlots    []int        `json:"implicitSlots"`
	OverlappingSlots []int        `json:"overlappingSlots"`
	Start            time.Time    `json:"start"`
	End              time.Time    `json:"end"`
	Event            CreatedEvent `json:"event"`
}

// DayAvailability is one entry of the month overview.
type DayAvailability struct {
	Date        string `json:"date"`
	Busy        []int  `json:"busy"`
	FullyBooked bool   `json:"fullyBooked"`
}
