package models

import (
	"time"

	"github.com/lib/pq"
)

// CourseType classifies how a course is taught.
type CourseType string

const (
	CourseTypeLecture  CourseType = "lecture"
	CourseTypeLab      CourseType = "lab"
	CourseTypeSeminar  CourseType = "seminar"
	CourseTypeTutorial CourseType = "tutorial"
)

// Course is a catalog course offered by a department in a semester.
type Course struct {
	ID                string         `db:"id" json:"id"`
	Code              string         `db:"code" json:"code"`
	Name              string         `db:"name" json:"name"`
	Department        string         `db:"department" json:"department"`
	Semester          int            `db:"semester" json:"semester"`
	Year              int            `db:"year" json:"year"`
	Credits           int            `db:"credits" json:"credits"`
	Type              CourseType     `db:"type" json:"type"`
	HoursPerWeek      int            `db:"hours_per_week" json:"hours_per_week"`
	TotalHours        int            `db:"total_hours" json:"total_hours"`
	DurationWeeks     int            `db:"duration_weeks" json:"duration_weeks,omitempty"`
	Capacity          int            `db:"capacity" json:"capacity"`
	RequiredRoomType  string         `db:"required_room_type" json:"required_room_type,omitempty"`
	RequiredEquipment pq.StringArray `db:"required_equipment" json:"required_equipment,omitempty"`
	Prerequisites     pq.StringArray `db:"prerequisites" json:"prerequisites,omitempty"`
	Priority          int            `db:"priority" json:"priority"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}
