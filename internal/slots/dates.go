package slots

import "time"

// NoClosedDay disables the closed weekday rule.
const NoClosedDay = -1

// Policy bounds which calendar dates may be booked.
type Policy struct {
	WindowDays    int
	ClosedWeekday int
	Location      *time.Location
}

// DefaultPolicy books tomorrow through 60 days ahead, closed on Sundays.
func DefaultPolicy() Policy {
	return Policy{WindowDays: 60, ClosedWeekday: int(time.Sunday), Location: time.UTC}
}

func (p Policy) loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// Day truncates t to a calendar date in loc, returned at midnight UTC so
// dates compare and format consistently.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

// BookableDate rejects today and earlier, the closed weekday, and anything
// past the booking window.
func BookableDate(date, now time.Time, p Policy) error {
	today := Day(now, p.loc())
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if !d.After(today) {
		return ErrDateNotFuture
	}
	if p.ClosedWeekday != NoClosedDay && int(d.Weekday()) == p.ClosedWeekday {
		return ErrDateClosed
	}
	if p.WindowDays > 0 && d.After(today.AddDate(0, 0, p.WindowDays)) {
		return ErrDateBeyondSpan
	}
	return nil
}

// BookableDates lists the dates offered by the date picker.
func BookableDates(now time.Time, p Policy) []time.Time {
	today := Day(now, p.loc())
	out := make([]time.Time, 0, p.WindowDays)
	for i := 1; i <= p.WindowDays; i++ {
		d := today.AddDate(0, 0, i)
		if p.ClosedWeekday != NoClosedDay && int(d.Weekday()) == p.ClosedWeekday {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Availability combines the date rule with candidate enumeration. A date
// that cannot be booked yields no candidates.
func Availability(all []TimeSlot, booked map[string]bool, services []Service, date, now time.Time, p Policy) []Candidate {
	if BookableDate(date, now, p) != nil {
		return nil
	}
	return Candidates(DaySlots(all, date), booked, RequiredSlots(services))
}
