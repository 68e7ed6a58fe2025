// Package slots maps a selection of salon services onto the fixed 30 minute
// time slot grid and decides which start times can still be booked.
package slots

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Minutes is the length of one grid cell.
const Minutes = 30

// Clock is a time of day in minutes since midnight.
type Clock int

// ParseClock accepts "HH:MM" or "HH:MM:SS".
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("slots: invalid clock %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("slots: invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("slots: invalid minute in %q", s)
	}
	return Clock(h*60 + m), nil
}

// MustClock is ParseClock for literals.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Service is the part of a catalog service the allocator cares about.
type Service struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"duration"`
}

// TimeSlot is one recurring cell of the weekly grid.
type TimeSlot struct {
	ID          string `json:"id"`
	StartTime   Clock  `json:"start_time"`
	EndTime     Clock  `json:"end_time"`
	DayOfWeek   int    `json:"day_of_week"`
	IsAvailable bool   `json:"is_available"`
}

// TotalDuration sums the durations of the selected services.
func TotalDuration(services []Service) int {
	total := 0
	for _, s := range services {
		total += s.DurationMinutes
	}
	return total
}

// TotalPrice sums the prices of the selected services.
func TotalPrice(services []Service) float64 {
	total := 0.0
	for _, s := range services {
		total += s.Price
	}
	return total
}

// RequiredSlots is ceil(total duration / 30).
func RequiredSlots(services []Service) int {
	return RequiredSlotsFor(TotalDuration(services))
}

// RequiredSlotsFor converts a duration in minutes to a slot count.
func RequiredSlotsFor(totalMinutes int) int {
	if totalMinutes <= 0 {
		return 0
	}
	return (totalMinutes + Minutes - 1) / Minutes
}

// DaySlots returns the available slots defined for the weekday of date,
// sorted by start time.
func DaySlots(all []TimeSlot, date time.Time) []TimeSlot {
	weekday := int(date.Weekday())
	out := make([]TimeSlot, 0, len(all))
	for _, s := range all {
		if s.DayOfWeek == weekday && s.IsAvailable {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime < out[j].StartTime
	})
	return out
}
