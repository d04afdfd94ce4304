package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func TestOptimizerResolvesDoubleBooking(t *testing.T) {
	m := mustModel(csSnapshot(), Options{})
	entries := []models.ScheduleEntry{
		entry("c-alg#1", "c-alg", "f-1", "r-1", "monday", "09:00", "10:00"),
		entry("c-alg#2", "c-alg", "f-1", "r-1", "tuesday", "09:00", "10:00"),
		entry("c-db#1", "c-db", "f-2", "r-1", "monday", "09:00", "10:00"),
		entry("c-db#2", "c-db", "f-2", "r-2", "wednesday", "09:00", "10:00"),
	}
	require.Len(t, Detect(m, entries), 1)

	result := Optimizer{MaxAttempts: 200}.Optimize(m, entries)

	assert.Empty(t, result.Conflicts)
	assert.Positive(t, result.Moves)
	assert.Empty(t, result.Warnings)
	assert.Len(t, result.Entries, 4)
	assert.Equal(t, 0, result.Metadata.ConflictCount)

	ids := map[string]bool{}
	for _, e := range result.Entries {
		ids[e.ID] = true
	}
	assert.Equal(t, map[string]bool{"c-alg#1": true, "c-alg#2": true, "c-db#1": true, "c-db#2": true}, ids)
}

func TestOptimizerReturnsOriginalWhenNothingImproves(t *testing.T) {
	m := mustModel(csSnapshot(), Options{})
	entries := []models.ScheduleEntry{
		entry("c-alg#1", "c-alg", "f-1", "r-1", "monday", "09:00", "10:00"),
		entry("c-alg#2", "c-alg", "f-1", "r-1", "tuesday", "09:00", "10:00"),
	}

	result := Optimizer{MaxAttempts: 50}.Optimize(m, entries)

	assert.Equal(t, entries, result.Entries)
	assert.Zero(t, result.Moves)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarningOptimizationNoOp, result.Warnings[0].Code)
}

func TestOptimizerSpreadsSameDaySessions(t *testing.T) {
	m := mustModel(csSnapshot(), Options{})
	entries := []models.ScheduleEntry{
		entry("c-alg#1", "c-alg", "f-1", "r-1", "monday", "09:00", "10:00"),
		entry("c-alg#2", "c-alg", "f-1", "r-1", "monday", "10:00", "11:00"),
	}
	require.Equal(t, 1, distributionPenalty(m, entries))

	result := Optimizer{MaxAttempts: 100}.Optimize(m, entries)

	assert.Equal(t, 0, distributionPenalty(m, result.Entries))
	assert.Empty(t, result.Conflicts)
	assert.NotEqual(t, result.Entries[0].Day, result.Entries[1].Day)
}

func TestOptimizerNeverRegresses(t *testing.T) {
	snapshot := csSnapshot()
	snapshot.Rooms = snapshot.Rooms[:1]
	snapshot.Faculty[0].Availability = models.WeeklyAvailability{"monday": {{Start: "09:00", End: "10:00"}}}
	m := mustModel(snapshot, Options{})

	inputs := [][]models.ScheduleEntry{
		{
			entry("c-alg#1", "c-alg", "f-1", "r-1", "monday", "09:00", "10:00"),
			entry("c-alg#2", "c-alg", "f-1", "r-1", "monday", "09:00", "10:00"),
		},
		{
			entry("c-alg#1", "c-alg", "f-1", "r-1", "friday", "16:30", "17:30"),
			entry("c-db#1", "c-db", "f-2", "r-1", "friday", "16:30", "17:30"),
			entry("c-db#2", "c-db", "f-2", "r-1", "friday", "12:00", "13:00"),
		},
	}
	for _, input := range inputs {
		before := len(Detect(m, input))
		for _, budget := range []int{1, 5, 500} {
			result := Optimizer{MaxAttempts: budget}.Optimize(m, input)
			assert.LessOrEqual(t, len(result.Conflicts), before)
			assert.LessOrEqual(t, result.Attempts, budget)
			assert.Equal(t, len(Detect(m, result.Entries)), result.Metadata.ConflictCount)
		}
	}
}

func TestAvoidedSlotsAddPenalty(t *testing.T) {
	e := entry("c-alg#1", "c-alg", "f-1", "r-1", "monday", "09:00", "10:00")
	assert.True(t, avoids([]string{"Monday"}, e))
	assert.True(t, avoids([]string{"09:00-10:00"}, e))
	assert.True(t, avoids([]string{"monday 09:00-10:00"}, e))
	assert.True(t, avoids([]string{"morning"}, e))
	assert.False(t, avoids([]string{"afternoon", "friday"}, e))
}

func TestDistributionPenaltyRunsStopAtBreak(t *testing.T) {
	m := mustModel(csSnapshot(), Options{})

	acrossBreak := []models.ScheduleEntry{
		entry("c-alg#1", "c-alg", "f-1", "r-1", "monday", "11:15", "12:15"),
		entry("c-db#1", "c-db", "f-1", "r-1", "monday", "14:15", "15:15"),
		entry("c-os#1", "c-os", "f-1", "r-1", "monday", "15:15", "16:15"),
	}
	assert.Equal(t, 0, distributionPenalty(m, acrossBreak))

	morning := []models.ScheduleEntry{
		entry("c-alg#1", "c-alg", "f-1", "r-1", "monday", "09:00", "10:00"),
		entry("c-db#1", "c-db", "f-1", "r-1", "monday", "10:00", "11:00"),
		entry("c-os#1", "c-os", "f-1", "r-1", "monday", "11:15", "12:15"),
	}
	assert.Equal(t, 1, distributionPenalty(m, morning))
}

func TestGridConsecutive(t *testing.T) {
	g := DefaultGrid()
	assert.True(t, g.Consecutive(0, 1))
	assert.True(t, g.Consecutive(1, 2))
	assert.False(t, g.Consecutive(2, 3), "break separates 11:15 and 14:15")
	assert.True(t, g.Consecutive(3, 4))
	assert.False(t, g.Consecutive(0, 2))
	assert.False(t, g.Consecutive(5, 6))

	g.Break = Slot{}
	assert.True(t, g.Consecutive(2, 3))
}
