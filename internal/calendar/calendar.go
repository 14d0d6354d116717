// Package calendar models ordered trading sessions and the domain
// (calendar + instrument universe) that scopes a single engine run.
package calendar

import (
	"fmt"
	"time"
)

// Calendar is an ordered list of trading sessions. Sessions are compared by
// time.Time.Equal, so callers should normalize to a single location
// (typically midnight UTC).
type Calendar struct {
	sessions []time.Time
	index    map[time.Time]int
}

// New creates a calendar from strictly ascending sessions.
func New(sessions []time.Time) (*Calendar, error) {
	idx := make(map[time.Time]int, len(sessions))
	for i, s := range sessions {
		if i > 0 && !sessions[i-1].Before(s) {
			return nil, fmt.Errorf("calendar: sessions not strictly ascending at index %d (%s >= %s)",
				i, sessions[i-1].Format(time.DateOnly), s.Format(time.DateOnly))
		}
		idx[s] = i
	}
	return &Calendar{sessions: sessions, index: idx}, nil
}

// NewWeekdays builds a weekday-only calendar covering [first, last].
// Convenience for tests and the CLI; production calendars come from a
// metadata collaborator.
func NewWeekdays(first, last time.Time) (*Calendar, error) {
	var sessions []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			sessions = append(sessions, d)
		}
	}
	return New(sessions)
}

// Len returns the number of sessions.
func (c *Calendar) Len() int { return len(c.sessions) }

// Session returns the session at position i.
func (c *Calendar) Session(i int) time.Time { return c.sessions[i] }

// Sessions returns all sessions. The returned slice must not be mutated.
func (c *Calendar) Sessions() []time.Time { return c.sessions }

// IndexOf returns the position of the given session, or an error if it is
// not a trading session of this calendar.
func (c *Calendar) IndexOf(d time.Time) (int, error) {
	i, ok := c.index[d]
	if !ok {
		return 0, fmt.Errorf("calendar: %s is not a trading session", d.Format(time.DateOnly))
	}
	return i, nil
}

// SessionsInRange returns the sessions in [start, end]. Both bounds must be
// trading sessions and start must not be after end.
func (c *Calendar) SessionsInRange(start, end time.Time) ([]time.Time, error) {
	si, err := c.IndexOf(start)
	if err != nil {
		return nil, err
	}
	ei, err := c.IndexOf(end)
	if err != nil {
		return nil, err
	}
	if si > ei {
		return nil, fmt.Errorf("calendar: start %s after end %s",
			start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	return c.sessions[si : ei+1], nil
}

// ShiftBack returns the session n positions before d. It fails when the
// calendar does not extend far enough back, which surfaces as a planning
// error before any data is loaded.
func (c *Calendar) ShiftBack(d time.Time, n int) (time.Time, error) {
	i, err := c.IndexOf(d)
	if err != nil {
		return time.Time{}, err
	}
	if i-n < 0 {
		return time.Time{}, fmt.Errorf("calendar: cannot shift %s back %d sessions, only %d available",
			d.Format(time.DateOnly), n, i)
	}
	return c.sessions[i-n], nil
}

// Range is a contiguous [Start, End] slice of a calendar, both inclusive.
type Range struct {
	Start time.Time
	End   time.Time
}

// SplitRange splits [start, end] into consecutive sub-ranges of at most
// chunk sessions each, in ascending start order. chunk <= 0 yields the whole
// range as a single element.
func (c *Calendar) SplitRange(start, end time.Time, chunk int) ([]Range, error) {
	sessions, err := c.SessionsInRange(start, end)
	if err != nil {
		return nil, err
	}
	if chunk <= 0 {
		return []Range{{Start: start, End: end}}, nil
	}
	var out []Range
	for lo := 0; lo < len(sessions); lo += chunk {
		hi := lo + chunk
		if hi > len(sessions) {
			hi = len(sessions)
		}
		out = append(out, Range{Start: sessions[lo], End: sessions[hi-1]})
	}
	return out, nil
}
