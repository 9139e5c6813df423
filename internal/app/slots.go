package app

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"go.uber.org/zap"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
	hoursPerDay = 24
)

var (
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

// BusySlots returns the occupied hours of date in the studio timezone,
// ascending and distinct. Any calendar failure fails the whole query so a
// slot is never shown open because the read did not complete.
func (a *App) BusySlots(ctx context.Context, date string) ([]int, error) {
	day, err := a.parseDate(date)
	if err != nil {
		return nil, err
	}

	from, to := dayBounds(day, a.Location)
	events, err := a.listEvents(ctx, from, to.Add(-time.Second))
	if err != nil {
		return nil, err
	}
	busy := busyHours(events, day, a.Location)

	a.Logger.Debug("availability computed",
		zap.String("date", date), zap.Int("events", len(events)), zap.Ints("busy", busy))
	return busy, nil
}

// MonthAvailability computes the busy hours of every day of month (YYYY-MM)
// from a single calendar read and flags days whose bookable hours are all
// taken.
func (a *App) MonthAvailability(ctx context.Context, month string) ([]DayAvailability, error) {
	if !monthPattern.MatchString(month) {
		return nil, validationError("month", "Month must be in YYYY-MM format.")
	}
	first, err := time.Parse(monthLayout, month)
	if err != nil {
		return nil, validationError("month", "Month must be a valid calendar month.")
	}
	next := first.AddDate(0, 1, 0)

	events, err := a.listEvents(ctx, localTime(first, 0, a.Location), localTime(next, 0, a.Location).Add(-time.Second))
	if err != nil {
		return nil, err
	}

	var days []DayAvailability
	for day := first; day.Before(next); day = day.AddDate(0, 0, 1) {
		busy := busyHours(events, day, a.Location)
		days = append(days, DayAvailability{
			Date:        day.Format(dateLayout),
			Busy:        busy,
			FullyBooked: containsAll(busy, a.Studio.BookableHours),
		})
	}
	return days, nil
}

func (a *App) listEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	events, err := a.Calendar.ListEvents(ctx, from, to)
	if err != nil {
		appErr := classify(err)
		a.Logger.Error("calendar list failed",
			zap.Time("from", from), zap.Time("to", to),
			zap.String("code", appErr.Code), zap.Error(err))
		return nil, appErr
	}
	return events, nil
}

// parseDate validates a YYYY-MM-DD string and returns it as midnight UTC.
// The result names a calendar date only; localTime and dayBounds place it in
// the studio timezone.
func (a *App) parseDate(date string) (time.Time, error) {
	if date == "" {
		return time.Time{}, validationError("date", "Date parameter is required.")
	}
	if !datePattern.MatchString(date) {
		return time.Time{}, validationError("date", "Date must be in YYYY-MM-DD format.")
	}
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Time{}, validationError("date", "Date must be a valid calendar date.")
	}
	return day, nil
}

// localTime returns the instant the wall clock in loc reads hour:00 on the
// calendar date of day. Hour 24 is midnight of the following date. A wall
// time skipped by a forward clock change resolves to the first instant after
// the jump, so a day whose midnight does not exist starts at the transition.
func localTime(day time.Time, hour int, loc *time.Location) time.Time {
	y, m, d := day.Date()
	t := time.Date(y, m, d, hour, 0, 0, 0, loc)
	want := time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
	got := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	if got.Before(want) {
		t = t.Add(want.Sub(got))
	}
	return t
}

// dayBounds returns [start, end) of the calendar date day in loc.
func dayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	return localTime(day, 0, loc), localTime(day.AddDate(0, 0, 1), 0, loc)
}

// busyHours maps events onto the wall-clock hours of the calendar date day
// in loc.
//
// A timed event occupies every hour in [startHour, endHour); an end with a
// non-zero minute or second also occupies endHour. Events are clipped to the
// day first, so one that started yesterday occupies hours from 0. All-day
// events occupy all 24 hours.
func busyHours(events []Event, day time.Time, loc *time.Location) []int {
	dayStart, dayEnd := dayBounds(day, loc)
	date := day.Format(dateLayout)
	var busy [hoursPerDay]bool

	for _, ev := range events {
		if ev.Status == "cancelled" {
			continue
		}

		if ev.AllDay {
			if allDayCovers(ev, date) {
				for h := range busy {
					busy[h] = true
				}
			}
			continue
		}

		if !ev.Start.Before(dayEnd) || !ev.End.After(dayStart) {
			continue
		}
		start := ev.Start
		if start.Before(dayStart) {
			start = dayStart
		}
		end := ev.End
		if end.After(dayEnd) {
			end = dayEnd
		}
		start = start.In(loc)
		end = end.In(loc)

		startHour := start.Hour()
		endHour := hoursPerDay
		if end.Before(dayEnd) {
			endHour = end.Hour()
		}
		for h := startHour; h < endHour; h++ {
			busy[h] = true
		}
		if endHour < hoursPerDay && (end.Minute() > 0 || end.Second() > 0) {
			busy[endHour] = true
		}
	}

	out := make([]int, 0, hoursPerDay)
	for h, b := range busy {
		if b {
			out = append(out, h)
		}
	}
	return out
}

func allDayCovers(ev Event, date string) bool {
	if ev.StartDate == "" {
		return false
	}
	if ev.EndDate == "" || ev.EndDate <= ev.StartDate {
		return date == ev.StartDate
	}
	return ev.StartDate <= date && date < ev.EndDate
}

// normalizeSlots sorts and deduplicates a slot list.
func normalizeSlots(slots []int) []int {
	seen := make(map[int]struct{}, len(slots))
	out := make([]int, 0, len(slots))
	for _, s := range slots {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

func intersect(a, b []int) []int {
	set := make(map[int]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	out := []int{}
	for _, v := range a {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

func containsAll(set, want []int) bool {
	return len(want) > 0 && len(intersect(want, set)) == len(want)
}

func hourRange(h int) string {
	return fmt.Sprintf("%02d:00-%02d:00", h, h+1)
}
