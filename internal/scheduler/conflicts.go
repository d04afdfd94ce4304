package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/timetable-api/internal/models"
)

var conflictRank = map[models.ConflictType]int{
	models.ConflictFacultyDoubleBooking: 0,
	models.ConflictRoomDoubleBooking:    1,
	models.ConflictFacultyUnavailable:   2,
	models.ConflictRoomUnavailable:      3,
	models.ConflictCapacityExceeded:     4,
	models.ConflictBreakOverlap:         5,
}

// Detect scans a schedule for double bookings, availability, capacity and break
// violations. It has no side effects and returns conflicts in a stable order.
func Detect(m *Model, entries []models.ScheduleEntry) models.Conflicts {
	conflicts := models.Conflicts{}

	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			a, b := entries[i], entries[j]
			if b.ID < a.ID {
				a, b = b, a
			}
			if normalizeDay(a.Day) != normalizeDay(b.Day) || !overlaps(a.StartTime, a.EndTime, b.StartTime, b.EndTime) {
				continue
			}
			if a.FacultyID == b.FacultyID {
				conflicts = append(conflicts, pairConflict(models.ConflictFacultyDoubleBooking,
					fmt.Sprintf("faculty %s is double-booked on %s %s-%s", a.FacultyID, a.Day, a.StartTime, a.EndTime), a, b))
			}
			if a.RoomID == b.RoomID {
				conflicts = append(conflicts, pairConflict(models.ConflictRoomDoubleBooking,
					fmt.Sprintf("room %s is double-booked on %s %s-%s", a.RoomID, a.Day, a.StartTime, a.EndTime), a, b))
			}
		}
	}

	for _, e := range entries {
		if f, ok := m.Faculty(e.FacultyID); ok && f.Availability.Declared() &&
			!within(f.Availability.Windows(e.Day), e.StartTime, e.EndTime) {
			conflicts = append(conflicts, models.Conflict{
				Type:    models.ConflictFacultyUnavailable,
				Message: fmt.Sprintf("faculty %s is not available on %s %s-%s", e.FacultyID, e.Day, e.StartTime, e.EndTime),
				Entries: []string{e.ID},
			})
		}
		room, roomKnown := m.Room(e.RoomID)
		if roomKnown && room.Availability.Declared() && !within(room.Availability.Windows(e.Day), e.StartTime, e.EndTime) {
			conflicts = append(conflicts, models.Conflict{
				Type:    models.ConflictRoomUnavailable,
				Message: fmt.Sprintf("room %s is not available on %s %s-%s", e.RoomID, e.Day, e.StartTime, e.EndTime),
				Entries: []string{e.ID},
			})
		}
		if cc, ok := m.Course(e.CourseID); ok && roomKnown && cc.Course.Capacity > room.Capacity {
			conflicts = append(conflicts, models.Conflict{
				Type:    models.ConflictCapacityExceeded,
				Message: fmt.Sprintf("course %s needs %d seats but room %s holds %d", e.CourseID, cc.Course.Capacity, e.RoomID, room.Capacity),
				Entries: []string{e.ID},
			})
		}
		if m.Grid.OverlapsBreak(e.StartTime, e.EndTime) {
			conflicts = append(conflicts, models.Conflict{
				Type:    models.ConflictBreakOverlap,
				Message: fmt.Sprintf("entry %s overlaps the %s break", e.ID, m.Grid.Break.Label()),
				Entries: []string{e.ID},
			})
		}
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if ra, rb := conflictRank[a.Type], conflictRank[b.Type]; ra != rb {
			return ra < rb
		}
		if ka, kb := strings.Join(a.Entries, ","), strings.Join(b.Entries, ","); ka != kb {
			return ka < kb
		}
		return a.Message < b.Message
	})
	return conflicts
}

func pairConflict(kind models.ConflictType, message string, a, b models.ScheduleEntry) models.Conflict {
	ids := []string{a.ID, b.ID}
	sort.Strings(ids)
	return models.Conflict{Type: kind, Message: message, Entries: ids}
}

func conflictKey(c models.Conflict) string {
	return string(c.Type) + "|" + strings.Join(c.Entries, ",")
}

func conflictKeys(conflicts models.Conflicts) map[string]struct{} {
	keys := make(map[string]struct{}, len(conflicts))
	for _, c := range conflicts {
		keys[conflictKey(c)] = struct{}{}
	}
	return keys
}
