package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

const (
	courseColumns  = `id, code, name, department, semester, year, credits, type, hours_per_week, total_hours, COALESCE(duration_weeks, 0) AS duration_weeks, capacity, COALESCE(required_room_type, '') AS required_room_type, required_equipment, prerequisites, priority, created_at, updated_at`
	facultyColumns = `id, name, email, department, specializations, availability, max_hours_per_week, preferred_time_slots, avoid_time_slots, created_at, updated_at`
	roomColumns    = `id, name, building, floor, capacity, type, equipment, availability, created_at, updated_at`
)

// CatalogRepository reads courses, faculty and rooms from Postgres.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs a CatalogRepository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListCourses returns the courses a department offers in a semester.
func (r *CatalogRepository) ListCourses(ctx context.Context, department string, semester int) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE LOWER(department) = LOWER($1) AND semester = $2 ORDER BY id`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, department, semester); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ListFaculty returns the faculty of a department.
func (r *CatalogRepository) ListFaculty(ctx context.Context, department string) ([]models.Faculty, error) {
	query := `SELECT ` + facultyColumns + ` FROM faculty WHERE LOWER(department) = LOWER($1) ORDER BY id`
	var faculty []models.Faculty
	if err := r.db.SelectContext(ctx, &faculty, query, department); err != nil {
		return nil, fmt.Errorf("list faculty: %w", err)
	}
	return faculty, nil
}

// ListRooms returns every room.
func (r *CatalogRepository) ListRooms(ctx context.Context) ([]models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms ORDER BY id`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}
