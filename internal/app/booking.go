package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	bookingIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	bookingIDSuffix   = 4
	// calendar private properties are capped at 1024 bytes per value
	maxPropertyValue = 1024
)

// NewBookingID returns SB-<unix millis>-<4 random [A-Z0-9]>. Uniqueness is
// not checked against existing bookings.
func NewBookingID(now time.Time) string {
	suffix, err := bookingSuffix(rand.Reader)
	if err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return fmt.Sprintf("SB-%d-%s", now.UnixMilli(), suffix)
}

// bookingSuffix draws bookingIDSuffix characters from the alphabet. Bytes at
// or above the largest multiple of the alphabet size are discarded so every
// character is equally likely.
func bookingSuffix(r io.Reader) (string, error) {
	limit := 256 - 256%len(bookingIDAlphabet)
	out := make([]byte, 0, bookingIDSuffix)
	buf := make([]byte, bookingIDSuffix)
	for len(out) < bookingIDSuffix {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit || len(out) == bookingIDSuffix {
				continue
			}
			out = append(out, bookingIDAlphabet[int(b)%len(bookingIDAlphabet)])
		}
	}
	return string(out), nil
}

// CreateBooking re-checks availability for the requested slots and writes one
// event spanning min(slots) to max(slots)+1.
//
// The re-check and the write are separate calls against the calendar. Unless
// a Locker other than NoopLocker is configured, two concurrent requests for
// the same hour can both pass the re-check and both be written.
func (a *App) CreateBooking(ctx context.Context, req BookingRequest) (*Booking, error) {
	day, slots, err := a.validateBooking(&req)
	if err != nil {
		return nil, err
	}
	first, last := slots[0], slots[len(slots)-1]
	start := localTime(day, first, a.Location)
	end := localTime(day, last+1, a.Location)
	if !end.After(start) {
		return nil, validationError("slots", "The selected hours do not exist on this date because of a clock change.")
	}
	log := a.Logger.With(zap.String("date", req.Date), zap.Ints("slots", slots))

	unlock, err := a.Locker.Lock(ctx, req.Date)
	if err != nil {
		appErr := classify(err)
		log.Error("booking lock failed", zap.Error(err))
		return nil, appErr
	}
	defer unlock()

	busy, err := a.BusySlots(ctx, req.Date)
	if err != nil {
		return nil, err
	}
	if conflicts := intersect(slots, busy); len(conflicts) > 0 {
		log.Info("booking rejected by availability re-check", zap.Ints("conflicts", conflicts))
		return nil, conflictError(conflicts)
	}

	now := a.Now()
	bookingID := a.NewBookingID(now)
	ev := a.buildEvent(req, slots, start, end, bookingID, now)

	writeCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()
	created, err := a.Calendar.CreateEvent(writeCtx, ev)
	if err != nil {
		appErr := classify(err)
		if appErr.Kind == KindConflict {
			// same answer as the re-check, but operators need to see the race
			log.Warn("calendar rejected booking write with conflict", zap.String("booking_id", bookingID), zap.Error(err))
			race := conflictError(slots)
			race.Err = err
			return nil, race
		}
		log.Error("calendar booking write failed",
			zap.String("booking_id", bookingID), zap.String("code", appErr.Code), zap.Error(err))
		return nil, appErr
	}

	requested := make(map[int]bool, len(slots))
	for _, h := range slots {
		requested[h] = true
	}
	booked := make([]int, 0, last-first+1)
	implicit := []int{}
	for h := first; h <= last; h++ {
		booked = append(booked, h)
		if !requested[h] {
			implicit = append(implicit, h)
		}
	}
	overlapping := intersect(implicit, busy)
	if len(overlapping) > 0 {
		log.Warn("booking span covers hours already taken",
			zap.String("booking_id", bookingID), zap.Ints("overlapping", overlapping))
	}

	log.Info("booking created",
		zap.String("booking_id", bookingID), zap.String("event_id", created.ID), zap.Ints("implicit", implicit))

	return &Booking{
		BookingID:        bookingID,
		Date:             req.Date,
		RequestedSlots:   slots,
		BookedSlots:      booked,
		ImplicitSlots:    implicit,
		OverlappingSlots: overlapping,
		Start:            start,
		End:              end,
		Event:            *created,
	}, nil
}

// validateBooking rejects malformed requests before any external call. It
// trims the customer fields in place and returns the calendar date plus the
// sorted, distinct slots.
func (a *App) validateBooking(req *BookingRequest) (time.Time, []int, error) {
	if req.Date == "" {
		return time.Time{}, nil, validationError("date", "Date is required.")
	}
	day, err := a.parseDate(req.Date)
	if err != nil {
		return time.Time{}, nil, err
	}

	if len(req.Slots) == 0 {
		return time.Time{}, nil, validationError("slots", "Slots are required and must be a non-empty array.")
	}
	for _, s := range req.Slots {
		if s < 0 || s > 23 {
			return time.Time{}, nil, validationError("slots", "All slots must be valid hour numbers (0-23).")
		}
	}

	req.UserData.Name = strings.TrimSpace(req.UserData.Name)
	req.UserData.Email = strings.TrimSpace(req.UserData.Email)
	req.UserData.Phone = strings.TrimSpace(req.UserData.Phone)
	switch {
	case req.UserData.Name == "":
		return time.Time{}, nil, validationError("userData.name", "Customer name is required.")
	case req.UserData.Email == "":
		return time.Time{}, nil, validationError("userData.email", "Customer email is required.")
	case req.UserData.Phone == "":
		return time.Time{}, nil, validationError("userData.phone", "Customer phone is required.")
	}

	return day, normalizeSlots(req.Slots), nil
}

func (a *App) buildEvent(req BookingRequest, slots []int, start, end time.Time, bookingID string, now time.Time) NewEvent {
	ranges := make([]string, len(slots))
	raw := make([]string, len(slots))
	for i, h := range slots {
		ranges[i] = hourRange(h)
		raw[i] = strconv.Itoa(h)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s BOOKING\n\n", strings.ToUpper(a.Studio.Name))
	b.WriteString("CUSTOMER\n")
	fmt.Fprintf(&b, "Name: %s\n", req.UserData.Name)
	fmt.Fprintf(&b, "Email: %s\n", req.UserData.Email)
	fmt.Fprintf(&b, "Phone: %s\n\n", req.UserData.Phone)
	b.WriteString("BOOKING\n")
	fmt.Fprintf(&b, "Date: %s\n", req.Date)
	fmt.Fprintf(&b, "Requested slots: %s\n", strings.Join(ranges, ", "))
	fmt.Fprintf(&b, "Booked span: %s-%s\n", start.Format("15:04"), spanEnd(start, end))
	fmt.Fprintf(&b, "Booking ID: %s\n", bookingID)
	if len(req.Services) > 0 {
		fmt.Fprintf(&b, "Services: %s\n", strings.Join(req.Services, ", "))
	}
	if obs := strings.TrimSpace(req.Observations); obs != "" {
		fmt.Fprintf(&b, "Observations: %s\n", obs)
	}
	fmt.Fprintf(&b, "\nGenerated: %s", now.In(a.Location).Format("2006-01-02 15:04:05 MST"))

	props := map[string]string{
		"bookingId":      bookingID,
		"requestedSlots": strings.Join(raw, ","),
		"customerName":   truncate(req.UserData.Name),
		"customerEmail":  truncate(req.UserData.Email),
		"customerPhone":  truncate(req.UserData.Phone),
	}
	if len(req.Services) > 0 {
		props["services"] = truncate(strings.Join(req.Services, ","))
	}
	if obs := strings.TrimSpace(req.Observations); obs != "" {
		props["observations"] = truncate(obs)
	}

	return NewEvent{
		Summary:     fmt.Sprintf("%s booking - %s", a.Studio.Name, req.UserData.Name),
		Description: b.String(),
		Start:       start,
		End:         end,
		TimeZone:    a.Location.String(),
		Properties:  props,
	}
}

// spanEnd prints the exclusive end hour; a span ending at midnight reads 24:00.
func spanEnd(start, end time.Time) string {
	if end.Day() != start.Day() {
		return "24:00"
	}
	return end.Format("15:04")
}

// truncate caps s at maxPropertyValue bytes without splitting a rune.
func truncate(s string) string {
	if len(s) <= maxPropertyValue {
		return s
	}
	cut := maxPropertyValue
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
