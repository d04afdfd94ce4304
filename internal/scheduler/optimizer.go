package scheduler

import (
	"sort"
	"strings"

	"github.com/noah-isme/timetable-api/internal/models"
)

const defaultOptimizerAttempts = 500

// Optimizer relocates entries to resolve conflicts and then to improve spread.
// It never returns a schedule with more conflicts than its input.
type Optimizer struct {
	MaxAttempts int
}

// Optimization is the result of one optimizer run.
type Optimization struct {
	Entries   []models.ScheduleEntry
	Conflicts models.Conflicts
	Metadata  models.TimetableMetadata
	Moves     int
	Attempts  int
	Warnings  []Warning
}

type move struct {
	day  string
	slot Slot
	room string
}

// Optimize runs the conflict phase followed by the distribution phase.
func (o Optimizer) Optimize(m *Model, entries []models.ScheduleEntry) Optimization {
	budget := o.MaxAttempts
	if budget <= 0 {
		budget = defaultOptimizerAttempts
	}
	current := cloneEntries(entries)
	SortEntries(m.Grid, current)
	conflicts := Detect(m, current)
	result := Optimization{}

	// conflicts first
	exhausted := make(map[string]bool)
	for result.Attempts < budget && len(conflicts) > 0 {
		target := firstConflictTarget(conflicts, exhausted)
		if target == "" {
			break
		}
		idx := indexOf(current, target)
		if idx < 0 {
			exhausted[target] = true
			continue
		}
		currentKeys := conflictKeys(conflicts)
		accepted := false
		for _, mv := range o.candidates(m, current[idx]) {
			if result.Attempts >= budget {
				break
			}
			result.Attempts++
			candidate := relocate(current, idx, mv)
			candidateConflicts := Detect(m, candidate)
			if len(candidateConflicts) >= len(conflicts) || introducesConflict(candidateConflicts, currentKeys) {
				continue
			}
			current, conflicts = candidate, candidateConflicts
			result.Moves++
			accepted = true
			break
		}
		if !accepted {
			exhausted[target] = true
		}
	}

	// then distribution, holding the conflict set fixed
	penalty := distributionPenalty(m, current)
	for result.Attempts < budget && penalty > 0 {
		improved := false
		currentKeys := conflictKeys(conflicts)
		for idx := 0; idx < len(current) && !improved; idx++ {
			for _, mv := range o.candidates(m, current[idx]) {
				if result.Attempts >= budget {
					break
				}
				result.Attempts++
				candidate := relocate(current, idx, mv)
				candidateConflicts := Detect(m, candidate)
				if !sameConflictSet(candidateConflicts, currentKeys) {
					continue
				}
				if p := distributionPenalty(m, candidate); p < penalty {
					current, conflicts, penalty = candidate, candidateConflicts, p
					result.Moves++
					improved = true
					break
				}
			}
		}
		if !improved {
			break
		}
	}

	if result.Moves == 0 {
		current = cloneEntries(entries)
		SortEntries(m.Grid, current)
		conflicts = Detect(m, current)
		result.Warnings = append(result.Warnings, Warning{
			Code:    WarningOptimizationNoOp,
			Message: "optimizer found no improving relocation; schedule unchanged",
			Meta:    map[string]any{"attempts": result.Attempts},
		})
	} else {
		SortEntries(m.Grid, current)
	}
	result.Entries = current
	result.Conflicts = conflicts
	result.Metadata = CalculateMetrics(m.Grid, current, conflicts)
	return result
}

// candidates lists (day, slot, room) positions other than the entry's own, in grid
// order. Rooms come from the course's eligible list, or the current room for
// courses missing from the catalog.
func (o Optimizer) candidates(m *Model, entry models.ScheduleEntry) []move {
	rooms := []string{entry.RoomID}
	if cc, ok := m.Course(entry.CourseID); ok && len(cc.Rooms) > 0 {
		rooms = cc.Rooms
	}
	var moves []move
	for _, day := range m.Grid.Days {
		for _, slot := range m.Grid.Slots {
			for _, room := range rooms {
				if day == normalizeDay(entry.Day) && slot.Start == entry.StartTime && slot.End == entry.EndTime && room == entry.RoomID {
					continue
				}
				moves = append(moves, move{day: day, slot: slot, room: room})
			}
		}
	}
	return moves
}

func relocate(entries []models.ScheduleEntry, idx int, mv move) []models.ScheduleEntry {
	out := cloneEntries(entries)
	out[idx].Day = mv.day
	out[idx].StartTime = mv.slot.Start
	out[idx].EndTime = mv.slot.End
	out[idx].RoomID = mv.room
	return out
}

func firstConflictTarget(conflicts models.Conflicts, exhausted map[string]bool) string {
	for _, c := range conflicts {
		for _, id := range c.Entries {
			if !exhausted[id] {
				return id
			}
		}
	}
	return ""
}

func indexOf(entries []models.ScheduleEntry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func introducesConflict(candidate models.Conflicts, existing map[string]struct{}) bool {
	for _, c := range candidate {
		if _, ok := existing[conflictKey(c)]; !ok {
			return true
		}
	}
	return false
}

func sameConflictSet(candidate models.Conflicts, existing map[string]struct{}) bool {
	if len(candidate) != len(existing) {
		return false
	}
	return !introducesConflict(candidate, existing)
}

// distributionPenalty counts same-course sessions sharing a day, faculty runs
// longer than two consecutive slots and sessions placed in avoided slots. The
// break ends a run.
func distributionPenalty(m *Model, entries []models.ScheduleEntry) int {
	penalty := 0
	courseDays := make(map[string]int)
	facultySlots := make(map[string][]int)
	for _, e := range entries {
		courseDays[e.CourseID+"|"+normalizeDay(e.Day)]++
		if slot := m.Grid.SlotIndex(e.StartTime, e.EndTime); slot >= 0 {
			key := e.FacultyID + "|" + normalizeDay(e.Day)
			facultySlots[key] = append(facultySlots[key], slot)
		}
		if f, ok := m.Faculty(e.FacultyID); ok && avoids(f.AvoidTimeSlots, e) {
			penalty++
		}
	}
	for _, count := range courseDays {
		if count > 1 {
			penalty += count - 1
		}
	}
	for _, slots := range facultySlots {
		sort.Ints(slots)
		run := 1
		for i := 1; i < len(slots); i++ {
			if m.Grid.Consecutive(slots[i-1], slots[i]) {
				run++
			} else {
				run = 1
			}
			if run > 2 {
				penalty++
			}
		}
	}
	return penalty
}

// avoids matches tags such as "monday", "09:00", "09:00-10:00",
// "monday 09:00-10:00", "morning" or "afternoon".
func avoids(tags []string, e models.ScheduleEntry) bool {
	day := normalizeDay(e.Day)
	label := e.StartTime + "-" + e.EndTime
	for _, raw := range tags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		switch tag {
		case "":
			continue
		case day, e.StartTime, label, day + " " + label:
			return true
		case "morning":
			if e.StartTime < "12:00" {
				return true
			}
		case "afternoon":
			if e.StartTime >= "12:00" {
				return true
			}
		}
	}
	return false
}
