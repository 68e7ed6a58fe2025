package slots

import (
	"reflect"
	"testing"
	"time"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func grid(day int, starts ...string) []TimeSlot {
	out := make([]TimeSlot, 0, len(starts))
	for _, s := range starts {
		c := MustClock(s)
		out = append(out, TimeSlot{
			ID:          s,
			StartTime:   c,
			EndTime:     c + Minutes,
			DayOfWeek:   day,
			IsAvailable: true,
		})
	}
	return out
}

func startIDs(cands []Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Slot.ID)
	}
	return out
}

func TestRequiredSlots(t *testing.T) {
	cases := []struct {
		durations []int
		want      int
	}{
		{nil, 0},
		{[]int{30}, 1},
		{[]int{31}, 2},
		{[]int{45, 30}, 3},
		{[]int{60}, 2},
		{[]int{15, 15}, 1},
	}
	for _, tc := range cases {
		var services []Service
		for _, d := range tc.durations {
			services = append(services, Service{DurationMinutes: d})
		}
		if got := RequiredSlots(services); got != tc.want {
			t.Fatalf("RequiredSlots(%v) = %d, want %d", tc.durations, got, tc.want)
		}
	}
}

func TestTotalPrice(t *testing.T) {
	got := TotalPrice([]Service{{Price: 25}, {Price: 12.5}})
	if got != 37.5 {
		t.Fatalf("expected 37.5, got %v", got)
	}
}

func TestCandidatesRejectsRunCrossingBookedSlot(t *testing.T) {
	day := grid(1, "09:00", "09:30", "10:00", "10:30")
	booked := BookedSet([]string{"10:00"})

	got := Candidates(day, booked, RequiredSlotsFor(75))
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %v", startIDs(got))
	}

	_, err := Validate(day, booked, 3, "09:00")
	rej, ok := IsRejection(err)
	if !ok {
		t.Fatalf("expected rejection, got %v", err)
	}
	if rej.Reason != ReasonBooked {
		t.Fatalf("expected booked reason, got %s", rej.Reason)
	}
}

func TestCandidatesFreeGrid(t *testing.T) {
	day := grid(1, "09:00", "09:30", "10:00", "10:30", "11:00")

	got := startIDs(Candidates(day, nil, 3))
	want := []string{"09:00", "09:30", "10:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("candidates = %v, want %v", got, want)
	}

	run, err := Validate(day, nil, 3, "09:30")
	if err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	if !reflect.DeepEqual(run.RequiredSlotIDs, []string{"09:30", "10:00", "10:30"}) {
		t.Fatalf("unexpected run %v", run.RequiredSlotIDs)
	}
	if run.EndTime != MustClock("11:00") {
		t.Fatalf("expected run to end at 11:00, got %s", run.EndTime)
	}

	_, err = Validate(day, nil, 3, "10:30")
	rej, ok := IsRejection(err)
	if !ok || rej.Reason != ReasonNotEnoughTime {
		t.Fatalf("expected not-enough-time rejection, got %v", err)
	}
	if rej.Message != "This service requires 90 minutes. Please select a time slot with enough available time." {
		t.Fatalf("unexpected message %q", rej.Message)
	}
}

func TestCandidatesRequiresContiguity(t *testing.T) {
	// lunch gap between 11:30 and 13:00
	day := grid(1, "11:00", "11:30", "13:00", "13:30")

	got := startIDs(Candidates(day, nil, 2))
	want := []string{"11:00", "13:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("candidates = %v, want %v", got, want)
	}

	_, err := Validate(day, nil, 2, "11:30")
	if rej, ok := IsRejection(err); !ok || rej.Reason != ReasonNotConsecutive {
		t.Fatalf("expected not-consecutive rejection, got %v", err)
	}
}

func TestSingleSlotSkipsContiguity(t *testing.T) {
	day := grid(1, "09:00", "12:00", "15:30")
	got := startIDs(Candidates(day, BookedSet([]string{"12:00"}), 1))
	want := []string{"09:00", "15:30"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("candidates = %v, want %v", got, want)
	}
}

func TestCandidatesIsPure(t *testing.T) {
	day := grid(1, "09:00", "09:30", "10:00", "10:30", "11:00")
	booked := BookedSet([]string{"10:30"})
	first := Candidates(day, booked, 2)
	second := Candidates(day, booked, 2)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("candidates changed between calls: %v vs %v", first, second)
	}
	if len(booked) != 1 || len(day) != 5 {
		t.Fatal("inputs were mutated")
	}
}

func TestValidateUnknownSlotAndNoServices(t *testing.T) {
	day := grid(1, "09:00")
	if _, err := Validate(day, nil, 1, "nope"); err == nil {
		t.Fatal("expected unknown slot rejection")
	}
	_, err := Validate(day, nil, 0, "09:00")
	if rej, ok := IsRejection(err); !ok || rej.Reason != ReasonNoServices {
		t.Fatalf("expected no-services rejection, got %v", err)
	}
}

func TestDaySlotsFiltersAndSorts(t *testing.T) {
	all := append(grid(1, "10:00", "09:00"), grid(2, "08:00")...)
	all = append(all, TimeSlot{ID: "off", StartTime: MustClock("09:30"), DayOfWeek: 1})

	got := DaySlots(all, monday)
	if len(got) != 2 || got[0].ID != "09:00" || got[1].ID != "10:00" {
		t.Fatalf("unexpected day slots %+v", got)
	}
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != 570 || c.String() != "09:30" {
		t.Fatalf("unexpected clock %d %s", c, c)
	}
	for _, bad := range []string{"", "9", "25:00", "10:75", "ab:cd"} {
		if _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
