package scheduler

import (
	"context"

	"github.com/noah-isme/timetable-api/internal/models"
)

const (
	reasonNoFaculty   = "no eligible faculty"
	reasonNoRoom      = "no eligible room"
	reasonNoPlacement = "no free faculty and room combination within availability"
)

// DeterministicStrategy is a greedy first-fit placement. Identical models always
// yield identical proposals.
type DeterministicStrategy struct{}

// Name implements GenerationStrategy.
func (DeterministicStrategy) Name() string { return StrategyDeterministic }

// Generate implements GenerationStrategy.
func (DeterministicStrategy) Generate(_ context.Context, m *Model) (*Proposal, error) {
	state := newPlacementState(m)
	proposal := &Proposal{Entries: make([]models.ScheduleEntry, 0)}

	for _, cc := range m.Courses {
		for session := 1; session <= cc.Sessions; session++ {
			switch {
			case len(cc.Faculty) == 0:
				proposal.Unscheduled = append(proposal.Unscheduled, UnscheduledSession{CourseID: cc.Course.ID, Session: session, Reason: reasonNoFaculty})
				continue
			case len(cc.Rooms) == 0:
				proposal.Unscheduled = append(proposal.Unscheduled, UnscheduledSession{CourseID: cc.Course.ID, Session: session, Reason: reasonNoRoom})
				continue
			}
			entry, ok := state.place(cc, session, true)
			if !ok {
				entry, ok = state.place(cc, session, false)
			}
			if !ok {
				proposal.Unscheduled = append(proposal.Unscheduled, UnscheduledSession{CourseID: cc.Course.ID, Session: session, Reason: reasonNoPlacement})
				continue
			}
			proposal.Entries = append(proposal.Entries, entry)
		}
	}
	SortEntries(m.Grid, proposal.Entries)
	return proposal, nil
}

type cell struct {
	day  int
	slot int
}

type placementState struct {
	model         *Model
	facultyBusy   map[string]map[cell]bool
	roomBusy      map[string]map[cell]bool
	courseBusy    map[string]map[cell]bool
	courseDays    map[string]map[int]int
	facultyLoad   map[string]int
	courseFaculty map[string]string
}

func newPlacementState(m *Model) *placementState {
	return &placementState{
		model:         m,
		facultyBusy:   make(map[string]map[cell]bool),
		roomBusy:      make(map[string]map[cell]bool),
		courseBusy:    make(map[string]map[cell]bool),
		courseDays:    make(map[string]map[int]int),
		facultyLoad:   make(map[string]int),
		courseFaculty: make(map[string]string),
	}
}

// place scans day, slot, faculty then room order. With spread set, days the
// course already uses are skipped.
func (s *placementState) place(cc CourseConstraint, session int, spread bool) (models.ScheduleEntry, bool) {
	courseID := cc.Course.ID
	grid := s.model.Grid
	faculty := s.facultyOrder(cc)

	for d, day := range grid.Days {
		used := s.courseDays[courseID][d]
		if spread && used > 0 {
			continue
		}
		if s.model.MaxSessionsPerDay > 0 && used >= s.model.MaxSessionsPerDay {
			continue
		}
		for t, slot := range grid.Slots {
			at := cell{day: d, slot: t}
			if s.courseBusy[courseID][at] {
				continue
			}
			for _, facultyID := range faculty {
				if !s.facultyFree(facultyID, at, day, slot) {
					continue
				}
				for _, roomID := range cc.Rooms {
					if s.roomBusy[roomID][at] || !s.model.RoomAvailable(roomID, day, slot) {
						continue
					}
					s.reserve(courseID, facultyID, roomID, at)
					return models.ScheduleEntry{
						ID:        EntryID(courseID, session),
						CourseID:  courseID,
						FacultyID: facultyID,
						RoomID:    roomID,
						Day:       day,
						StartTime: slot.Start,
						EndTime:   slot.End,
					}, true
				}
			}
		}
	}
	return models.ScheduleEntry{}, false
}

func (s *placementState) facultyOrder(cc CourseConstraint) []string {
	assigned, ok := s.courseFaculty[cc.Course.ID]
	if !ok {
		return cc.Faculty
	}
	order := make([]string, 0, len(cc.Faculty))
	order = append(order, assigned)
	for _, id := range cc.Faculty {
		if id != assigned {
			order = append(order, id)
		}
	}
	return order
}

func (s *placementState) facultyFree(id string, at cell, day string, slot Slot) bool {
	if s.facultyBusy[id][at] {
		return false
	}
	f, ok := s.model.Faculty(id)
	if !ok {
		return false
	}
	if f.MaxHoursPerWeek > 0 && s.facultyLoad[id] >= f.MaxHoursPerWeek {
		return false
	}
	return s.model.FacultyAvailable(id, day, slot)
}

func (s *placementState) reserve(courseID, facultyID, roomID string, at cell) {
	mark(s.facultyBusy, facultyID, at)
	mark(s.roomBusy, roomID, at)
	mark(s.courseBusy, courseID, at)
	if s.courseDays[courseID] == nil {
		s.courseDays[courseID] = make(map[int]int)
	}
	s.courseDays[courseID][at.day]++
	s.facultyLoad[facultyID]++
	if _, ok := s.courseFaculty[courseID]; !ok {
		s.courseFaculty[courseID] = facultyID
	}
}

func mark(index map[string]map[cell]bool, key string, at cell) {
	if index[key] == nil {
		index[key] = make(map[cell]bool)
	}
	index[key][at] = true
}
