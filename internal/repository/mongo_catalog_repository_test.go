package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/noah-isme/timetable-api/internal/models"
)

func TestMongoCatalogRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("list courses maps documents", func(mt *mtest.T) {
		repo := NewMongoCatalogRepository(mt.DB)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, "timetable.courses", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: oid},
				{Key: "name", Value: "Algorithms"},
				{Key: "code", Value: "CS201"},
				{Key: "department", Value: "CS"},
				{Key: "semester", Value: 3},
				{Key: "credits", Value: 4},
				{Key: "type", Value: "lecture"},
				{Key: "hoursPerWeek", Value: 3},
				{Key: "duration", Value: 10},
				{Key: "prerequisites", Value: bson.A{"CS101"}},
			}),
			mtest.CreateCursorResponse(0, "timetable.courses", mtest.NextBatch),
		)

		courses, err := repo.ListCourses(context.Background(), "cs", 3)
		require.NoError(mt, err)
		require.Len(mt, courses, 1)
		assert.Equal(mt, oid.Hex(), courses[0].ID)
		assert.Equal(mt, models.CourseTypeLecture, courses[0].Type)
		assert.Equal(mt, 3, courses[0].HoursPerWeek)
		assert.Equal(mt, 10, courses[0].DurationWeeks)
		assert.Equal(mt, []string{"CS101"}, []string(courses[0].Prerequisites))
	})

	mt.Run("list faculty maps availability and preferences", func(mt *mtest.T) {
		repo := NewMongoCatalogRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, "timetable.faculties", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "f-1"},
				{Key: "name", Value: "Ada"},
				{Key: "department", Value: "CS"},
				{Key: "specialization", Value: bson.A{"Algorithms"}},
				{Key: "availability", Value: bson.D{
					{Key: "Monday", Value: bson.A{bson.D{{Key: "start", Value: "09:00"}, {Key: "end", Value: "12:00"}}}},
					{Key: "tuesday", Value: bson.A{}},
				}},
				{Key: "maxHoursPerWeek", Value: 10},
				{Key: "preferences", Value: bson.D{{Key: "avoidTimeSlots", Value: bson.A{"friday"}}}},
			}),
			mtest.CreateCursorResponse(0, "timetable.faculties", mtest.NextBatch),
		)

		faculty, err := repo.ListFaculty(context.Background(), "CS")
		require.NoError(mt, err)
		require.Len(mt, faculty, 1)
		assert.Equal(mt, "f-1", faculty[0].ID)
		assert.Equal(mt, []models.TimeWindow{{Start: "09:00", End: "12:00"}}, faculty[0].Availability.Windows("monday"))
		assert.Empty(mt, faculty[0].Availability.Windows("tuesday"))
		assert.Equal(mt, []string{"friday"}, []string(faculty[0].AvoidTimeSlots))
	})

	mt.Run("list rooms surfaces driver errors", func(mt *mtest.T) {
		repo := NewMongoCatalogRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Message: "unauthorized"}))

		_, err := repo.ListRooms(context.Background())
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "list rooms")
	})
}
