package scheduler

import (
	"github.com/noah-isme/timetable-api/internal/models"
)

func csSnapshot() Snapshot {
	return Snapshot{
		Courses: []models.Course{
			{ID: "c-alg", Code: "CS201", Name: "Algorithms", Department: "CS", Semester: 3, Credits: 3, Type: models.CourseTypeLecture, HoursPerWeek: 2, Capacity: 30},
			{ID: "c-db", Code: "CS202", Name: "Databases", Department: "CS", Semester: 3, Credits: 3, Type: models.CourseTypeLecture, HoursPerWeek: 2, Capacity: 30},
		},
		Faculty: []models.Faculty{
			{ID: "f-1", Name: "Ada", Department: "CS", Specializations: []string{"Algorithms"}},
			{ID: "f-2", Name: "Edgar", Department: "CS", Specializations: []string{"databases"}},
			{ID: "f-3", Name: "Homer", Department: "CS", Specializations: []string{"Poetry"}},
		},
		Rooms: []models.Room{
			{ID: "r-1", Name: "Hall A", Capacity: 40, Type: models.RoomTypeLectureHall},
			{ID: "r-2", Name: "Hall B", Capacity: 60, Type: models.RoomTypeLectureHall},
		},
	}
}

func limitedSnapshot() Snapshot {
	return Snapshot{
		Courses: []models.Course{
			{ID: "c-net", Name: "Networks", Department: "CS", Credits: 3, Type: models.CourseTypeLecture, HoursPerWeek: 3, Capacity: 20},
		},
		Faculty: []models.Faculty{
			{
				ID:              "f-net",
				Name:            "Vint",
				Specializations: []string{"networks"},
				Availability: models.WeeklyAvailability{
					"monday":  {{Start: "09:00", End: "10:00"}},
					"tuesday": {{Start: "09:00", End: "10:00"}},
				},
			},
		},
		Rooms: []models.Room{
			{ID: "r-1", Capacity: 30, Type: models.RoomTypeLectureHall},
			{ID: "r-2", Capacity: 30, Type: models.RoomTypeAuditorium},
		},
	}
}

func mustModel(snapshot Snapshot, opts Options) *Model {
	m, err := BuildModel(snapshot, opts)
	if err != nil {
		panic(err)
	}
	return m
}

func entry(id, course, faculty, room, day, start, end string) models.ScheduleEntry {
	return models.ScheduleEntry{ID: id, CourseID: course, FacultyID: faculty, RoomID: room, Day: day, StartTime: start, EndTime: end}
}
