package scheduler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func TestWeeklySessions(t *testing.T) {
	cases := []struct {
		name   string
		course models.Course
		want   int
	}{
		{name: "total hours round up", course: models.Course{TotalHours: 40}, want: 4},
		{name: "total hours exact", course: models.Course{TotalHours: 39}, want: 3},
		{name: "total hours wins over weekly", course: models.Course{TotalHours: 13, HoursPerWeek: 4}, want: 1},
		{name: "hours per week", course: models.Course{HoursPerWeek: 2}, want: 2},
		{name: "default", course: models.Course{}, want: 3},
		{name: "course duration overrides term", course: models.Course{TotalHours: 40, DurationWeeks: 10}, want: 4},
		{name: "course duration rounds up", course: models.Course{TotalHours: 40, DurationWeeks: 16}, want: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, WeeklySessions(tc.course, 13, 3))
		})
	}
}

func TestBuildModelInsufficientData(t *testing.T) {
	noFaculty := csSnapshot()
	noFaculty.Faculty = nil
	noRooms := csSnapshot()
	noRooms.Rooms = nil
	noCourses := csSnapshot()
	noCourses.Courses = nil
	noMatch := csSnapshot()
	noMatch.Faculty = []models.Faculty{{ID: "f-9", Specializations: []string{"Sculpture"}}}

	for name, snapshot := range map[string]Snapshot{
		"no faculty": noFaculty,
		"no rooms":   noRooms,
		"no courses": noCourses,
		"no match":   noMatch,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := BuildModel(snapshot, Options{})
			var insufficient *InsufficientDataError
			require.True(t, errors.As(err, &insufficient), "got %v", err)
		})
	}
}

func TestBuildModelOrdersCoursesAndEligibility(t *testing.T) {
	snapshot := Snapshot{
		Courses: []models.Course{
			{ID: "c-b", Name: "Data Structures", Credits: 3, Type: models.CourseTypeLecture, Capacity: 25},
			{ID: "c-a", Name: "Operating Systems", Credits: 4, Type: models.CourseTypeLab, Capacity: 20, RequiredEquipment: []string{"Workstations"}},
			{ID: "c-c", Name: "Compilers", Credits: 2, Priority: 5, Type: models.CourseTypeSeminar, Capacity: 10},
		},
		Faculty: []models.Faculty{
			{ID: "f-3", Specializations: []string{"structures and algorithms"}},
			{ID: "f-2", Specializations: []string{"Data Structures"}},
			{ID: "f-1", Specializations: []string{"data"}},
			{ID: "f-4", Specializations: []string{"operating"}},
			{ID: "f-5", Specializations: []string{"compiler design"}},
		},
		Rooms: []models.Room{
			{ID: "r-big", Capacity: 200, Type: models.RoomTypeAuditorium},
			{ID: "r-hall", Capacity: 30, Type: models.RoomTypeLectureHall},
			{ID: "r-lab", Capacity: 20, Type: models.RoomTypeLab, Equipment: []string{"workstations"}},
			{ID: "r-lab2", Capacity: 40, Type: models.RoomTypeLab},
			{ID: "r-sem", Capacity: 12, Type: models.RoomTypeSeminarRoom},
		},
	}
	m, err := BuildModel(snapshot, Options{})
	require.NoError(t, err)

	order := make([]string, 0, len(m.Courses))
	for _, cc := range m.Courses {
		order = append(order, cc.Course.ID)
	}
	assert.Equal(t, []string{"c-c", "c-a", "c-b"}, order)

	ds, ok := m.Course("c-b")
	require.True(t, ok)
	assert.Equal(t, []string{"f-2", "f-1", "f-3"}, ds.Faculty)
	assert.Equal(t, []string{"r-hall", "r-big"}, ds.Rooms)

	osCourse, _ := m.Course("c-a")
	assert.Equal(t, []string{"f-4"}, osCourse.Faculty)
	assert.Equal(t, []string{"r-lab"}, osCourse.Rooms)

	compilers, _ := m.Course("c-c")
	assert.Equal(t, []string{"f-5"}, compilers.Faculty)
	assert.Equal(t, []string{"r-sem", "r-hall"}, compilers.Rooms)
}

func TestRequiredRoomTypeOverridesCourseType(t *testing.T) {
	course := models.Course{Type: models.CourseTypeLecture, RequiredRoomType: "lab"}
	assert.True(t, roomTypeCompatible(course, models.Room{Type: models.RoomTypeLab}))
	assert.False(t, roomTypeCompatible(course, models.Room{Type: models.RoomTypeLectureHall}))
}

func TestAvailabilityUndeclaredMeansAlwaysAvailable(t *testing.T) {
	m := mustModel(limitedSnapshot(), Options{})
	slot := m.Grid.Slots[0]

	assert.True(t, m.RoomAvailable("r-1", "friday", slot))
	assert.True(t, m.FacultyAvailable("f-net", "monday", slot))
	assert.False(t, m.FacultyAvailable("f-net", "monday", m.Grid.Slots[1]))
	assert.False(t, m.FacultyAvailable("f-net", "wednesday", slot))
	assert.False(t, m.FacultyAvailable("unknown", "monday", slot))
}

func TestEligibleRoomsPreferSmallestSufficientCapacity(t *testing.T) {
	course := models.Course{Type: models.CourseTypeLecture, Capacity: 30}
	rooms := []models.Room{
		{ID: "r-c", Capacity: 40, Type: models.RoomTypeLectureHall},
		{ID: "r-b", Capacity: 40, Type: models.RoomTypeLectureHall},
		{ID: "r-a", Capacity: 120, Type: models.RoomTypeLectureHall},
		{ID: "r-small", Capacity: 20, Type: models.RoomTypeLectureHall},
	}
	assert.Equal(t, []string{"r-b", "r-c", "r-a"}, eligibleRooms(course, rooms))
}
