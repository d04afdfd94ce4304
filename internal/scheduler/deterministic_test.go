package scheduler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func TestDeterministicScenarioTwoCourses(t *testing.T) {
	m := mustModel(csSnapshot(), Options{})

	proposal, err := DeterministicStrategy{}.Generate(context.Background(), m)
	require.NoError(t, err)

	assert.Empty(t, proposal.Unscheduled)
	assert.Equal(t, []models.ScheduleEntry{
		entry("c-alg#1", "c-alg", "f-1", "r-1", "monday", "09:00", "10:00"),
		entry("c-db#1", "c-db", "f-2", "r-2", "monday", "09:00", "10:00"),
		entry("c-alg#2", "c-alg", "f-1", "r-1", "tuesday", "09:00", "10:00"),
		entry("c-db#2", "c-db", "f-2", "r-2", "tuesday", "09:00", "10:00"),
	}, proposal.Entries)
	assert.Empty(t, Detect(m, proposal.Entries))
}

func TestDeterministicIsReproducible(t *testing.T) {
	first, err := DeterministicStrategy{}.Generate(context.Background(), mustModel(csSnapshot(), Options{}))
	require.NoError(t, err)
	second, err := DeterministicStrategy{}.Generate(context.Background(), mustModel(csSnapshot(), Options{}))
	require.NoError(t, err)

	a, err := json.Marshal(first.Entries)
	require.NoError(t, err)
	b, err := json.Marshal(second.Entries)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestDeterministicReportsShortfall(t *testing.T) {
	m := mustModel(limitedSnapshot(), Options{})

	proposal, err := DeterministicStrategy{}.Generate(context.Background(), m)
	require.NoError(t, err)

	require.Len(t, proposal.Entries, 2)
	assert.Equal(t, "monday", proposal.Entries[0].Day)
	assert.Equal(t, "tuesday", proposal.Entries[1].Day)
	assert.Equal(t, []UnscheduledSession{{CourseID: "c-net", Session: 3, Reason: reasonNoPlacement}}, proposal.Unscheduled)
}

func TestDeterministicRespectsWeeklyLoadAndSharedFaculty(t *testing.T) {
	snapshot := Snapshot{
		Courses: []models.Course{
			{ID: "c-1", Name: "Physics I", Type: models.CourseTypeLecture, HoursPerWeek: 3, Capacity: 10},
			{ID: "c-2", Name: "Physics II", Type: models.CourseTypeLecture, HoursPerWeek: 3, Capacity: 10},
		},
		Faculty: []models.Faculty{{ID: "f-1", Specializations: []string{"physics"}, MaxHoursPerWeek: 4}},
		Rooms:   []models.Room{{ID: "r-1", Capacity: 10, Type: models.RoomTypeLectureHall}},
	}
	m := mustModel(snapshot, Options{})

	proposal, err := DeterministicStrategy{}.Generate(context.Background(), m)
	require.NoError(t, err)

	assert.Len(t, proposal.Entries, 4)
	assert.Len(t, proposal.Unscheduled, 2)
	assert.Empty(t, Detect(m, proposal.Entries))
}

func TestDeterministicSpreadsAndCapsPerDay(t *testing.T) {
	snapshot := Snapshot{
		Courses: []models.Course{{ID: "c-1", Name: "Calculus", Type: models.CourseTypeLecture, HoursPerWeek: 7, Capacity: 10}},
		Faculty: []models.Faculty{{ID: "f-1", Specializations: []string{"calculus"}}},
		Rooms:   []models.Room{{ID: "r-1", Capacity: 10, Type: models.RoomTypeLectureHall}},
	}
	m := mustModel(snapshot, Options{MaxSessionsPerDay: 1})

	proposal, err := DeterministicStrategy{}.Generate(context.Background(), m)
	require.NoError(t, err)

	days := map[string]int{}
	for _, e := range proposal.Entries {
		days[e.Day]++
	}
	assert.Len(t, proposal.Entries, 5)
	for day, count := range days {
		assert.Equal(t, 1, count, day)
	}
	assert.Len(t, proposal.Unscheduled, 2)
}

func TestDeterministicUnscheduledWithoutRooms(t *testing.T) {
	snapshot := csSnapshot()
	snapshot.Courses = append(snapshot.Courses, models.Course{ID: "c-lab", Name: "Algorithms Lab", Type: models.CourseTypeLab, HoursPerWeek: 1, Capacity: 10})
	m := mustModel(snapshot, Options{})

	proposal, err := DeterministicStrategy{}.Generate(context.Background(), m)
	require.NoError(t, err)

	assert.Len(t, proposal.Entries, 4)
	assert.Equal(t, []UnscheduledSession{{CourseID: "c-lab", Session: 1, Reason: reasonNoRoom}}, proposal.Unscheduled)
}

func TestGeneratedSchedulesHonourInvariants(t *testing.T) {
	snapshot := Snapshot{}
	for i, name := range []string{"Algebra", "Geometry", "Statistics", "Topology", "Number Theory", "Logic"} {
		snapshot.Courses = append(snapshot.Courses, models.Course{
			ID: string(rune('a'+i)) + "-course", Name: name, Type: models.CourseTypeLecture, HoursPerWeek: 4, Capacity: 15, Credits: i % 3,
		})
	}
	snapshot.Faculty = []models.Faculty{
		{ID: "f-1", Specializations: []string{"algebra", "logic", "number"}},
		{ID: "f-2", Specializations: []string{"geometry", "topology"}},
		{ID: "f-3", Specializations: []string{"statistics", "algebra"}, MaxHoursPerWeek: 6},
	}
	snapshot.Rooms = []models.Room{
		{ID: "r-1", Capacity: 15, Type: models.RoomTypeLectureHall},
		{ID: "r-2", Capacity: 30, Type: models.RoomTypeAuditorium, Availability: models.WeeklyAvailability{"monday": {{Start: "09:00", End: "12:15"}}}},
	}
	m := mustModel(snapshot, Options{})

	proposal, err := DeterministicStrategy{}.Generate(context.Background(), m)
	require.NoError(t, err)

	assert.Empty(t, Detect(m, proposal.Entries))
	for _, e := range proposal.Entries {
		assert.False(t, m.Grid.OverlapsBreak(e.StartTime, e.EndTime))
	}
	assert.Equal(t, 24, len(proposal.Entries)+len(proposal.Unscheduled))
}
