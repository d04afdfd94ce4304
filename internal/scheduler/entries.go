package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/timetable-api/internal/models"
)

// EntryID builds the stable "<courseId>#<n>" identifier of a session.
func EntryID(courseID string, session int) string {
	return fmt.Sprintf("%s#%d", courseID, session)
}

// SortEntries orders entries by day, slot start, course and entry id.
func SortEntries(grid Grid, entries []models.ScheduleEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if da, db := grid.DayIndex(a.Day), grid.DayIndex(b.Day); da != db {
			return da < db
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.CourseID != b.CourseID {
			return a.CourseID < b.CourseID
		}
		return entryOrdinal(a.ID) < entryOrdinal(b.ID)
	})
}

func entryOrdinal(id string) int {
	idx := strings.LastIndex(id, "#")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(id[idx+1:])
	if err != nil {
		return 0
	}
	return n
}

func cloneEntries(entries []models.ScheduleEntry) []models.ScheduleEntry {
	out := make([]models.ScheduleEntry, len(entries))
	copy(out, entries)
	return out
}
