package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryCalendar is an in-process Calendar for local development and tests.
// Like the Google calendar it accepts overlapping events.
type MemoryCalendar struct {
	mu     sync.Mutex
	loc    *time.Location
	events []Event
	nextID int

	// ListErr and CreateErr, when set, are returned instead of doing work.
	ListErr   error
	CreateErr error
	// Created records every accepted write in order.
	Created []NewEvent
}

func NewMemoryCalendar(loc *time.Location, seed ...Event) *MemoryCalendar {
	m := &MemoryCalendar{loc: loc}
	m.events = append(m.events, seed...)
	return m
}

// Add inserts an event as if another client had written it.
func (m *MemoryCalendar) Add(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ID == "" {
		m.nextID++
		ev.ID = fmt.Sprintf("mem-%d", m.nextID)
	}
	if ev.Status == "" {
		ev.Status = "confirmed"
	}
	m.events = append(m.events, ev)
}

func (m *MemoryCalendar) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	fromDate := from.In(m.loc).Format(dateLayout)
	toDate := to.In(m.loc).Format(dateLayout)

	var out []Event
	for _, ev := range m.events {
		if ev.Status == "cancelled" {
			continue
		}
		if ev.AllDay {
			end := ev.EndDate
			if end <= ev.StartDate {
				end = nextDate(ev.StartDate)
			}
			if ev.StartDate <= toDate && end > fromDate {
				out = append(out, ev)
			}
			continue
		}
		if ev.Start.Before(to) && ev.End.After(from) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return eventSortKey(out[i], m.loc).Before(eventSortKey(out[j], m.loc)) })
	return out, nil
}

func nextDate(date string) string {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, 1).Format(dateLayout)
}

func eventSortKey(ev Event, loc *time.Location) time.Time {
	if ev.AllDay {
		t, _ := time.Parse(dateLayout, ev.StartDate)
		return localTime(t, 0, loc)
	}
	return ev.Start
}

func (m *MemoryCalendar) CreateEvent(ctx context.Context, ev NewEvent) (*CreatedEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}

	m.nextID++
	id := fmt.Sprintf("mem-%d", m.nextID)
	m.events = append(m.events, Event{
		ID:      id,
		Summary: ev.Summary,
		Status:  "confirmed",
		Start:   ev.Start,
		End:     ev.End,
	})
	m.Created = append(m.Created, ev)

	return &CreatedEvent{
		ID:       id,
		HTMLLink: "memory://events/" + id,
		Summary:  ev.Summary,
		Start:    ev.Start,
		End:      ev.End,
	}, nil
}

func (m *MemoryCalendar) Describe(ctx context.Context) (*CalendarInfo, error) {
	return &CalendarInfo{
		ID:         "memory",
		Summary:    "In-memory calendar",
		TimeZone:   m.loc.String(),
		AccessRole: "owner",
	}, nil
}
