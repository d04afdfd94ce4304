package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Slot is one teaching period on the daily grid.
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Label renders the slot as "HH:MM-HH:MM".
func (s Slot) Label() string {
	return s.Start + "-" + s.End
}

// Grid is the fixed weekly layout every schedule is placed on.
type Grid struct {
	Days  []string
	Slots []Slot
	Break Slot
}

// DefaultGrid is the Monday to Friday, six period layout with a lunch break.
func DefaultGrid() Grid {
	return Grid{
		Days: []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
		Slots: []Slot{
			{Start: "09:00", End: "10:00"},
			{Start: "10:00", End: "11:00"},
			{Start: "11:15", End: "12:15"},
			{Start: "14:15", End: "15:15"},
			{Start: "15:15", End: "16:15"},
			{Start: "16:30", End: "17:30"},
		},
		Break: Slot{Start: "12:15", End: "13:15"},
	}
}

// Capacity is the number of assignable (day, slot) cells.
func (g Grid) Capacity() int {
	return len(g.Days) * len(g.Slots)
}

// DayIndex returns the position of day in the grid or -1.
func (g Grid) DayIndex(day string) int {
	day = normalizeDay(day)
	for i, d := range g.Days {
		if d == day {
			return i
		}
	}
	return -1
}

// SlotIndex returns the position of the slot exactly matching start/end or -1.
func (g Grid) SlotIndex(start, end string) int {
	for i, slot := range g.Slots {
		if slot.Start == start && slot.End == end {
			return i
		}
	}
	return -1
}

// Consecutive reports whether slot j directly follows slot i with no break between them.
func (g Grid) Consecutive(i, j int) bool {
	if i < 0 || j != i+1 || j >= len(g.Slots) {
		return false
	}
	if g.Break.Start == "" || g.Break.End == "" {
		return true
	}
	return !(g.Slots[i].End <= g.Break.Start && g.Break.End <= g.Slots[j].Start)
}

// OverlapsBreak reports whether [start, end) intersects the break window.
func (g Grid) OverlapsBreak(start, end string) bool {
	if g.Break.Start == "" || g.Break.End == "" {
		return false
	}
	return overlaps(start, end, g.Break.Start, g.Break.End)
}

func (g Grid) validate() error {
	if len(g.Days) == 0 || len(g.Slots) == 0 {
		return fmt.Errorf("grid requires at least one day and one slot")
	}
	for _, slot := range g.Slots {
		start, err := minutes(slot.Start)
		if err != nil {
			return err
		}
		end, err := minutes(slot.End)
		if err != nil {
			return err
		}
		if end <= start {
			return fmt.Errorf("slot %s ends before it starts", slot.Label())
		}
		if g.OverlapsBreak(slot.Start, slot.End) {
			return fmt.Errorf("slot %s overlaps the break window", slot.Label())
		}
	}
	return nil
}

func normalizeDay(day string) string {
	return strings.ToLower(strings.TrimSpace(day))
}

func minutes(hhmm string) (int, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", hhmm, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// overlaps treats both ranges as half-open. Unparseable ranges never overlap.
func overlaps(aStart, aEnd, bStart, bEnd string) bool {
	as, err1 := minutes(aStart)
	ae, err2 := minutes(aEnd)
	bs, err3 := minutes(bStart)
	be, err4 := minutes(bEnd)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return false
	}
	return as < be && bs < ae
}

// within reports whether [start, end) fits entirely inside one of the windows.
func within(windows []models.TimeWindow, start, end string) bool {
	s, err := minutes(start)
	if err != nil {
		return false
	}
	e, err := minutes(end)
	if err != nil {
		return false
	}
	for _, window := range windows {
		ws, err := minutes(window.Start)
		if err != nil {
			continue
		}
		we, err := minutes(window.End)
		if err != nil {
			continue
		}
		if ws <= s && e <= we {
			return true
		}
	}
	return false
}
