package app

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"studio-booking/internal/config"
)

const studioTZ = "America/Santiago"

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}

func testConfig() config.Config {
	return config.Config{
		Env:             "production",
		CalendarBackend: config.BackendMemory,
		CalendarTimeout: 2 * time.Second,
		Studio: config.Studio{
			Name:          "SpinBook Studio",
			Address:       "Av. Siempre Viva 742",
			Email:         "studio@example.com",
			Phone:         "+56942713685",
			TimeZone:      studioTZ,
			BookableHours: []int{17, 18, 19, 20, 21},
		},
	}
}

// newTestApp returns an App over an empty MemoryCalendar with a fixed clock
// and an observed logger.
func newTestApp(t *testing.T) (*App, *MemoryCalendar, *observer.ObservedLogs) {
	t.Helper()
	cfg := testConfig()
	loc := mustLoc(t, studioTZ)
	cal := NewMemoryCalendar(loc)
	core, logs := observer.New(zap.DebugLevel)
	a := New(cal, cfg, nil, zap.New(core))
	a.Now = func() time.Time { return time.Date(2025, 3, 9, 12, 0, 0, 0, loc) }
	return a, cal, logs
}

func timedEvent(loc *time.Location, date string, startH, startM, endH, endM int) Event {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		panic(err)
	}
	return Event{
		Summary: "session",
		Status:  "confirmed",
		Start:   time.Date(day.Year(), day.Month(), day.Day(), startH, startM, 0, 0, loc),
		End:     time.Date(day.Year(), day.Month(), day.Day(), endH, endM, 0, 0, loc),
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
