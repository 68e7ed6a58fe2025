package booking

import (
	"errors"
	"testing"

	"github.com/wolfman30/salon-booking/internal/slots"
)

func testRun() slots.Run {
	return slots.Run{
		StartSlotID:     "s1",
		RequiredSlotIDs: []string{"s1", "s2"},
		StartTime:       slots.MustClock("09:00"),
		EndTime:         slots.MustClock("10:00"),
	}
}

func draftAtConfirm(t *testing.T) *Draft {
	t.Helper()
	d := NewDraft("u1")
	if err := d.SelectServices([]string{"a"}); err != nil {
		t.Fatalf("select services: %v", err)
	}
	if err := d.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if err := d.SelectDate("2026-03-03"); err != nil {
		t.Fatalf("select date: %v", err)
	}
	if err := d.ChooseSlot(testRun(), d.Revision); err != nil {
		t.Fatalf("choose slot: %v", err)
	}
	if err := d.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	return d
}

func TestWizardGuards(t *testing.T) {
	d := NewDraft("u1")
	if err := d.Next(); !errors.Is(err, ErrNoServices) {
		t.Fatalf("expected ErrNoServices, got %v", err)
	}
	if err := d.SelectServices([]string{"a", " a ", "", "b"}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(d.ServiceIDs) != 2 {
		t.Fatalf("expected duplicates and blanks dropped, got %v", d.ServiceIDs)
	}
	if err := d.Next(); err != nil || d.Step != StepSelectingDateTime {
		t.Fatalf("expected selecting_datetime, got %s %v", d.Step, err)
	}
	if err := d.Next(); !errors.Is(err, ErrNoSlot) {
		t.Fatalf("expected ErrNoSlot, got %v", err)
	}
	if err := d.ChooseSlot(testRun(), d.Revision); !errors.Is(err, ErrNoDate) {
		t.Fatalf("expected ErrNoDate, got %v", err)
	}
}

func TestWizardHappyPath(t *testing.T) {
	d := draftAtConfirm(t)
	if d.Step != StepConfirming {
		t.Fatalf("expected confirming, got %s", d.Step)
	}
	if err := d.BeginSubmit(); err != nil {
		t.Fatalf("begin submit: %v", err)
	}
	if err := d.BeginSubmit(); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("second submit should be refused, got %v", err)
	}
	if err := d.Succeed("appt-1"); err != nil || d.Step != StepSucceeded || d.AppointmentID != "appt-1" {
		t.Fatalf("unexpected success state %+v %v", d, err)
	}
}

func TestWizardFailReturnsToConfirming(t *testing.T) {
	d := draftAtConfirm(t)
	_ = d.BeginSubmit()
	if err := d.Fail("write failed"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if d.Step != StepConfirming || d.Error != "write failed" || d.Run == nil {
		t.Fatalf("expected confirming with error and run kept, got %+v", d)
	}
}

func TestWizardReschedule(t *testing.T) {
	d := draftAtConfirm(t)
	rev := d.Revision
	if err := d.Reschedule("pick again", false); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if d.Step != StepSelectingDateTime || d.Run != nil || d.Date != "2026-03-03" || d.Error != "pick again" {
		t.Fatalf("expected slot selection with date kept, got %+v", d)
	}
	if d.Revision != rev+1 {
		t.Fatalf("expected revision bump, got %d", d.Revision)
	}
	if err := d.Reschedule("again", false); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("expected ErrWrongStep outside confirmation, got %v", err)
	}

	d = draftAtConfirm(t)
	if err := d.Reschedule("date gone", true); err != nil || d.Date != "" {
		t.Fatalf("expected date cleared, got %+v %v", d, err)
	}
}

func TestWizardBackKeepsSelection(t *testing.T) {
	d := draftAtConfirm(t)
	rev := d.Revision
	if err := d.Back(); err != nil || d.Step != StepSelectingDateTime {
		t.Fatalf("back: %s %v", d.Step, err)
	}
	if d.Run == nil || d.Revision != rev || d.Date != "2026-03-03" {
		t.Fatalf("back must not discard choices: %+v", d)
	}
	if err := d.Back(); err != nil || d.Step != StepSelectingServices {
		t.Fatalf("back: %s %v", d.Step, err)
	}
	if err := d.Back(); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("expected ErrWrongStep at first step, got %v", err)
	}
}

func TestChangingServicesInvalidatesSlot(t *testing.T) {
	d := draftAtConfirm(t)
	_ = d.Back()
	_ = d.Back()
	rev := d.Revision
	if err := d.SelectServices([]string{"a", "b"}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if d.Run != nil || d.Revision != rev+1 {
		t.Fatalf("expected slot reset and new revision, got %+v", d)
	}
}

func TestChangingDateInvalidatesSlot(t *testing.T) {
	d := draftAtConfirm(t)
	_ = d.Back()
	stale := d.Revision
	if err := d.SelectDate("2026-03-04"); err != nil {
		t.Fatalf("select date: %v", err)
	}
	if d.Run != nil {
		t.Fatal("expected chosen slot cleared")
	}
	if err := d.ChooseSlot(testRun(), stale); !errors.Is(err, ErrStaleAvailability) {
		t.Fatalf("expected ErrStaleAvailability, got %v", err)
	}
	if err := d.ChooseSlot(testRun(), d.Revision); err != nil {
		t.Fatalf("choose with fresh revision: %v", err)
	}
}

func TestSetNotes(t *testing.T) {
	d := NewDraft("u1")
	if err := d.SetNotes("  almond shape  "); err != nil || d.Notes != "almond shape" {
		t.Fatalf("unexpected notes %q %v", d.Notes, err)
	}
	long := make([]byte, 501)
	for i := range long {
		long[i] = 'x'
	}
	if err := d.SetNotes(string(long)); !errors.Is(err, ErrNotesTooLong) {
		t.Fatalf("expected ErrNotesTooLong, got %v", err)
	}
}
