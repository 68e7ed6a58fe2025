package slots

// Candidate is a start slot that can hold the whole run.
type Candidate struct {
	Slot    TimeSlot `json:"slot"`
	SlotIDs []string `json:"slot_ids"`
}

// Run is an accepted choice: the start slot plus every slot it consumes.
type Run struct {
	StartSlotID     string   `json:"start_slot_id"`
	RequiredSlotIDs []string `json:"required_slot_ids"`
	StartTime       Clock    `json:"start_time"`
	EndTime         Clock    `json:"end_time"`
}

// Candidates lists every start slot in daySlots whose run of required slots
// exists, is free and is contiguous. daySlots must already be sorted.
func Candidates(daySlots []TimeSlot, booked map[string]bool, required int) []Candidate {
	if required <= 0 {
		return nil
	}
	var out []Candidate
	for i := range daySlots {
		run, rej := check(daySlots, booked, required, i)
		if rej != nil {
			continue
		}
		out = append(out, Candidate{Slot: daySlots[i], SlotIDs: run.RequiredSlotIDs})
	}
	return out
}

// Validate checks a single chosen start slot. A refused choice comes back as
// a *Rejection.
func Validate(daySlots []TimeSlot, booked map[string]bool, required int, startID string) (Run, error) {
	if required <= 0 {
		return Run{}, reject(ReasonNoServices, startID, required)
	}
	idx := -1
	for i, s := range daySlots {
		if s.ID == startID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Run{}, reject(ReasonUnknownSlot, startID, required)
	}
	run, rej := check(daySlots, booked, required, idx)
	if rej != nil {
		return Run{}, rej
	}
	return run, nil
}

func check(daySlots []TimeSlot, booked map[string]bool, required, start int) (Run, *Rejection) {
	startID := daySlots[start].ID
	if start+required > len(daySlots) {
		return Run{}, reject(ReasonNotEnoughTime, startID, required)
	}
	window := daySlots[start : start+required]
	for _, s := range window {
		if booked[s.ID] {
			return Run{}, reject(ReasonBooked, startID, required)
		}
	}
	// a single slot is trivially contiguous
	if required > 1 {
		for i := 1; i < len(window); i++ {
			if window[i].StartTime != window[i-1].StartTime+Minutes {
				return Run{}, reject(ReasonNotConsecutive, startID, required)
			}
		}
	}
	ids := make([]string, len(window))
	for i, s := range window {
		ids[i] = s.ID
	}
	last := window[len(window)-1]
	end := last.EndTime
	if end <= last.StartTime {
		end = last.StartTime + Minutes
	}
	return Run{
		StartSlotID:     startID,
		RequiredSlotIDs: ids,
		StartTime:       window[0].StartTime,
		EndTime:         end,
	}, nil
}

// BookedSet turns a slice of slot ids into a lookup set.
func BookedSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
