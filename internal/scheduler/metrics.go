package scheduler

import (
	"math"

	"github.com/noah-isme/timetable-api/internal/models"
)

// CalculateMetrics summarises a schedule. Every entry is a one hour session.
func CalculateMetrics(grid Grid, entries []models.ScheduleEntry, conflicts models.Conflicts) models.TimetableMetadata {
	meta := models.TimetableMetadata{
		TotalHours:    len(entries),
		ConflictCount: len(conflicts),
	}
	if capacity := grid.Capacity(); capacity > 0 {
		meta.UtilizationRate = int(math.Round(100 * float64(len(entries)) / float64(capacity)))
	}
	return meta
}
