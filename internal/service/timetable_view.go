package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	"github.com/noah-isme/timetable-api/pkg/export"
)

// catalogNames resolves entry ids to display names. Unknown ids resolve to themselves.
type catalogNames struct {
	courses map[string]models.Course
	faculty map[string]string
	rooms   map[string]string
}

func newCatalogNames(snapshot scheduler.Snapshot) catalogNames {
	names := catalogNames{
		courses: make(map[string]models.Course, len(snapshot.Courses)),
		faculty: make(map[string]string, len(snapshot.Faculty)),
		rooms:   make(map[string]string, len(snapshot.Rooms)),
	}
	for _, c := range snapshot.Courses {
		names.courses[c.ID] = c
	}
	for _, f := range snapshot.Faculty {
		names.faculty[f.ID] = f.Name
	}
	for _, r := range snapshot.Rooms {
		names.rooms[r.ID] = r.Name
	}
	return names
}

func (n catalogNames) course(id string) (code, name string) {
	if c, ok := n.courses[id]; ok {
		return c.Code, c.Name
	}
	return id, id
}

func (n catalogNames) lookup(index map[string]string, id string) string {
	if name, ok := index[id]; ok && name != "" {
		return name
	}
	return id
}

func (n catalogNames) view(entry models.ScheduleEntry) dto.TimetableEntryView {
	code, name := n.course(entry.CourseID)
	return dto.TimetableEntryView{
		ScheduleEntry: entry,
		CourseCode:    code,
		CourseName:    name,
		FacultyName:   n.lookup(n.faculty, entry.FacultyID),
		RoomName:      n.lookup(n.rooms, entry.RoomID),
		TimeSlot:      scheduler.Slot{Start: entry.StartTime, End: entry.EndTime}.Label(),
	}
}

func (n catalogNames) row(entry models.ScheduleEntry) export.TimetableRow {
	code, name := n.course(entry.CourseID)
	return export.TimetableRow{
		Day:        entry.Day,
		StartTime:  entry.StartTime,
		EndTime:    entry.EndTime,
		CourseCode: code,
		CourseName: name,
		Faculty:    n.lookup(n.faculty, entry.FacultyID),
		Room:       n.lookup(n.rooms, entry.RoomID),
		EntryID:    entry.ID,
	}
}

// loadNames fetches the catalog for a timetable. A catalog failure degrades to raw ids.
func loadNames(ctx context.Context, catalog catalogSnapshotter, timetable *models.Timetable, logger *zap.Logger) catalogNames {
	snapshot, err := catalog.Snapshot(ctx, timetable.Department, timetable.Semester)
	if err != nil {
		logger.Warn("catalog unavailable, using raw ids", zap.String("timetable_id", timetable.ID), zap.Error(err))
	}
	return newCatalogNames(snapshot)
}

// Detail returns a timetable with course, faculty and room names resolved.
func (s *TimetableService) Detail(ctx context.Context, id string) (*dto.TimetableDetail, error) {
	timetable, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	names := loadNames(ctx, s.catalog, timetable, s.logger)
	detail := &dto.TimetableDetail{Timetable: *timetable, Schedule: make([]dto.TimetableEntryView, 0, len(timetable.Schedule))}
	for _, entry := range timetable.Schedule {
		detail.Schedule = append(detail.Schedule, names.view(entry))
	}
	return detail, nil
}
