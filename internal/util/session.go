package util

import "time"

// SessionClock maps bar timestamps onto trading days in a fixed timezone.
// The backtest uses it to detect session-close boundaries: two timestamps
// belong to the same session when they fall on the same calendar date in
// the clock's location.
type SessionClock struct {
	loc *time.Location
}

// NewSessionClock creates a SessionClock for the named IANA timezone
// (e.g. "America/New_York"). An empty name selects UTC.
func NewSessionClock(tzName string) (*SessionClock, error) {
	if tzName == "" {
		return &SessionClock{loc: time.UTC}, nil
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, err
	}
	return &SessionClock{loc: loc}, nil
}

// DateOf returns the trading date of t as YYYY-MM-DD in the clock's location.
func (sc *SessionClock) DateOf(t time.Time) string {
	return t.In(sc.loc).Format("2006-01-02")
}

// SameSession reports whether a and b fall on the same trading date.
func (sc *SessionClock) SameSession(a, b time.Time) bool {
	return sc.DateOf(a) == sc.DateOf(b)
}
