package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Collection names follow the documents written by the catalog management app.
const (
	coursesCollection = "courses"
	facultyCollection = "faculties"
	roomsCollection   = "rooms"
)

type courseDocument struct {
	ID                interface{} `bson:"_id"`
	Code              string      `bson:"code"`
	Name              string      `bson:"name"`
	Department        string      `bson:"department"`
	Semester          int         `bson:"semester"`
	Year              int         `bson:"year"`
	Credits           int         `bson:"credits"`
	Type              string      `bson:"type"`
	HoursPerWeek      int         `bson:"hoursPerWeek"`
	TotalHours        int         `bson:"totalHours"`
	Duration          int         `bson:"duration"`
	Capacity          int         `bson:"capacity"`
	RequiredRoomType  string      `bson:"requiredRoomType"`
	RequiredEquipment []string    `bson:"requiredEquipment"`
	Prerequisites     []string    `bson:"prerequisites"`
	Priority          int         `bson:"priority"`
	CreatedAt         time.Time   `bson:"createdAt"`
	UpdatedAt         time.Time   `bson:"updatedAt"`
}

type facultyDocument struct {
	ID              interface{}                    `bson:"_id"`
	Name            string                         `bson:"name"`
	Email           string                         `bson:"email"`
	Department      string                         `bson:"department"`
	Specialization  []string                       `bson:"specialization"`
	Availability    map[string][]models.TimeWindow `bson:"availability"`
	MaxHoursPerWeek int                            `bson:"maxHoursPerWeek"`
	Preferences     struct {
		PreferredTimeSlots []string `bson:"preferredTimeSlots"`
		AvoidTimeSlots     []string `bson:"avoidTimeSlots"`
	} `bson:"preferences"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type roomDocument struct {
	ID           interface{}                    `bson:"_id"`
	Name         string                         `bson:"name"`
	Building     string                         `bson:"building"`
	Floor        int                            `bson:"floor"`
	Capacity     int                            `bson:"capacity"`
	Type         string                         `bson:"type"`
	Equipment    []string                       `bson:"equipment"`
	Availability map[string][]models.TimeWindow `bson:"availability"`
	CreatedAt    time.Time                      `bson:"createdAt"`
	UpdatedAt    time.Time                      `bson:"updatedAt"`
}

// MongoCatalogRepository reads the catalog from MongoDB collections.
type MongoCatalogRepository struct {
	courses *mongo.Collection
	faculty *mongo.Collection
	rooms   *mongo.Collection
}

// NewMongoCatalogRepository constructs a MongoCatalogRepository.
func NewMongoCatalogRepository(db *mongo.Database) *MongoCatalogRepository {
	return &MongoCatalogRepository{
		courses: db.Collection(coursesCollection),
		faculty: db.Collection(facultyCollection),
		rooms:   db.Collection(roomsCollection),
	}
}

// ListCourses returns the courses a department offers in a semester.
func (r *MongoCatalogRepository) ListCourses(ctx context.Context, department string, semester int) ([]models.Course, error) {
	filter := bson.M{"department": equalFold(department), "semester": semester}
	var docs []courseDocument
	if err := findAll(ctx, r.courses, filter, &docs); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	courses := make([]models.Course, 0, len(docs))
	for _, doc := range docs {
		courses = append(courses, models.Course{
			ID:                documentID(doc.ID),
			Code:              doc.Code,
			Name:              doc.Name,
			Department:        doc.Department,
			Semester:          doc.Semester,
			Year:              doc.Year,
			Credits:           doc.Credits,
			Type:              models.CourseType(doc.Type),
			HoursPerWeek:      doc.HoursPerWeek,
			TotalHours:        doc.TotalHours,
			DurationWeeks:     doc.Duration,
			Capacity:          doc.Capacity,
			RequiredRoomType:  doc.RequiredRoomType,
			RequiredEquipment: doc.RequiredEquipment,
			Prerequisites:     doc.Prerequisites,
			Priority:          doc.Priority,
			CreatedAt:         doc.CreatedAt,
			UpdatedAt:         doc.UpdatedAt,
		})
	}
	return courses, nil
}

// ListFaculty returns the faculty of a department.
func (r *MongoCatalogRepository) ListFaculty(ctx context.Context, department string) ([]models.Faculty, error) {
	var docs []facultyDocument
	if err := findAll(ctx, r.faculty, bson.M{"department": equalFold(department)}, &docs); err != nil {
		return nil, fmt.Errorf("list faculty: %w", err)
	}
	faculty := make([]models.Faculty, 0, len(docs))
	for _, doc := range docs {
		faculty = append(faculty, models.Faculty{
			ID:                 documentID(doc.ID),
			Name:               doc.Name,
			Email:              doc.Email,
			Department:         doc.Department,
			Specializations:    doc.Specialization,
			Availability:       availability(doc.Availability),
			MaxHoursPerWeek:    doc.MaxHoursPerWeek,
			PreferredTimeSlots: doc.Preferences.PreferredTimeSlots,
			AvoidTimeSlots:     doc.Preferences.AvoidTimeSlots,
			CreatedAt:          doc.CreatedAt,
			UpdatedAt:          doc.UpdatedAt,
		})
	}
	return faculty, nil
}

// ListRooms returns every room.
func (r *MongoCatalogRepository) ListRooms(ctx context.Context) ([]models.Room, error) {
	var docs []roomDocument
	if err := findAll(ctx, r.rooms, bson.M{}, &docs); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	rooms := make([]models.Room, 0, len(docs))
	for _, doc := range docs {
		rooms = append(rooms, models.Room{
			ID:           documentID(doc.ID),
			Name:         doc.Name,
			Building:     doc.Building,
			Floor:        doc.Floor,
			Capacity:     doc.Capacity,
			Type:         models.RoomType(doc.Type),
			Equipment:    doc.Equipment,
			Availability: availability(doc.Availability),
			CreatedAt:    doc.CreatedAt,
			UpdatedAt:    doc.UpdatedAt,
		})
	}
	return rooms, nil
}

func findAll(ctx context.Context, coll *mongo.Collection, filter interface{}, dest interface{}) error {
	cursor, err := coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, dest)
}

func equalFold(value string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(value) + "$", Options: "i"}
}

func documentID(id interface{}) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func availability(raw map[string][]models.TimeWindow) models.WeeklyAvailability {
	if len(raw) == 0 {
		return nil
	}
	out := make(models.WeeklyAvailability, len(raw))
	for day, windows := range raw {
		if len(windows) > 0 {
			out[models.NormalizeDay(day)] = windows
		}
	}
	return out
}
