package scan

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TradingWindow is the weekday time range scans run in, evaluated in a
// fixed location. Cycles outside the window are no-ops.
type TradingWindow struct {
	loc       *time.Location
	openHour  int
	openMin   int
	closeHour int
	closeMin  int
	interval  time.Duration
}

// NewTradingWindow builds a window from "HH:MM" bounds and a cycle
// interval. The interval is the width of a window-tag bucket.
func NewTradingWindow(timezone, open, close string, interval time.Duration) (*TradingWindow, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", timezone, err)
	}

	oh, om, err := parseClock(open)
	if err != nil {
		return nil, fmt.Errorf("window open: %w", err)
	}
	ch, cm, err := parseClock(close)
	if err != nil {
		return nil, fmt.Errorf("window close: %w", err)
	}

	if interval <= 0 {
		interval = 30 * time.Minute
	}

	return &TradingWindow{
		loc:       loc,
		openHour:  oh,
		openMin:   om,
		closeHour: ch,
		closeMin:  cm,
		interval:  interval,
	}, nil
}

// Contains reports whether t falls inside the window: a weekday, at or
// after open, strictly before close.
func (w *TradingWindow) Contains(t time.Time) bool {
	local := t.In(w.loc)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	minutes := local.Hour()*60 + local.Minute()
	open := w.openHour*60 + w.openMin
	close := w.closeHour*60 + w.closeMin

	return minutes >= open && minutes < close
}

// Tag returns the window tag for t: the calendar day plus the cycle
// bucket t falls in, e.g. "2026-03-02/15:00". Signals created in the
// same bucket share a tag, which is what same-day de-duplication keys
// on.
func (w *TradingWindow) Tag(t time.Time) string {
	local := t.In(w.loc)

	bucketMin := int(w.interval.Minutes())
	if bucketMin <= 0 {
		bucketMin = 30
	}
	minutes := (local.Hour()*60 + local.Minute()) / bucketMin * bucketMin

	return fmt.Sprintf("%s/%02d:%02d", local.Format("2006-01-02"), minutes/60, minutes%60)
}

// DayPrefix returns the calendar-day prefix of t's window tag, used to
// query all signals produced today.
func (w *TradingWindow) DayPrefix(t time.Time) string {
	return t.In(w.loc).Format("2006-01-02")
}

func parseClock(v string) (hour, min int, err error) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want HH:MM, got %q", v)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour in %q", v)
	}
	min, err = strconv.Atoi(parts[1])
	if err != nil || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("bad minute in %q", v)
	}
	return hour, min, nil
}
