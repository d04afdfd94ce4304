package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TimetableStatus represents lifecycle phases for generated timetables.
type TimetableStatus string

const (
	TimetableStatusDraft     TimetableStatus = "draft"
	TimetableStatusPublished TimetableStatus = "published"
	TimetableStatusArchived  TimetableStatus = "archived"
)

// ConflictType enumerates the violations reported by conflict detection.
type ConflictType string

const (
	ConflictFacultyDoubleBooking ConflictType = "FACULTY_DOUBLE_BOOKING"
	ConflictRoomDoubleBooking    ConflictType = "ROOM_DOUBLE_BOOKING"
	ConflictFacultyUnavailable   ConflictType = "FACULTY_UNAVAILABLE"
	ConflictRoomUnavailable      ConflictType = "ROOM_UNAVAILABLE"
	ConflictCapacityExceeded     ConflictType = "CAPACITY_EXCEEDED"
	ConflictBreakOverlap         ConflictType = "BREAK_OVERLAP"
)

// ScheduleEntry is one scheduled session of a course.
type ScheduleEntry struct {
	ID          string `db:"entry_key" json:"id"`
	TimetableID string `db:"timetable_id" json:"-"`
	Position    int    `db:"position" json:"-"`
	CourseID    string `db:"course_id" json:"course_id"`
	FacultyID   string `db:"faculty_id" json:"faculty_id"`
	RoomID      string `db:"room_id" json:"room_id"`
	Day         string `db:"day" json:"day"`
	StartTime   string `db:"start_time" json:"start_time"`
	EndTime     string `db:"end_time" json:"end_time"`
}

// Conflict describes a violation found in a schedule.
type Conflict struct {
	Type    ConflictType `json:"type"`
	Message string       `json:"message"`
	Entries []string     `json:"entries"`
}

// Conflicts is stored as a JSONB array on the timetable row.
type Conflicts []Conflict

// Value encodes conflicts for JSONB columns.
func (c Conflicts) Value() (driver.Value, error) {
	if c == nil {
		return []byte(`[]`), nil
	}
	return json.Marshal(c)
}

// Scan decodes a JSONB column.
func (c *Conflicts) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = Conflicts{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported conflicts type %T", src)
	}
	decoded := Conflicts{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return fmt.Errorf("decode conflicts: %w", err)
		}
	}
	*c = decoded
	return nil
}

// TimetableMetadata summarises a schedule.
type TimetableMetadata struct {
	TotalHours      int `db:"total_hours" json:"total_hours"`
	UtilizationRate int `db:"utilization_rate" json:"utilization_rate"`
	ConflictCount   int `db:"conflict_count" json:"conflict_count"`
}

// Timetable is a persisted generation result for a department/semester/year.
type Timetable struct {
	ID         string            `db:"id" json:"id"`
	Name       string            `db:"name" json:"name"`
	Department string            `db:"department" json:"department"`
	Semester   int               `db:"semester" json:"semester"`
	Year       int               `db:"year" json:"year"`
	Schedule   []ScheduleEntry   `db:"-" json:"schedule"`
	Conflicts  Conflicts         `db:"conflicts" json:"conflicts"`
	Status     TimetableStatus   `db:"status" json:"status"`
	Metadata   TimetableMetadata `db:"metadata" json:"metadata"`
	Version    int               `db:"version" json:"version"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}

// TimetableFilter narrows timetable listings.
type TimetableFilter struct {
	Department string
	Semester   int
	Year       int
	Status     TimetableStatus
	Page       int
	PageSize   int
}

// TimetableName renders the display name used for generated timetables.
func TimetableName(department string, semester, year int) string {
	return fmt.Sprintf("%s - Semester %d %d", department, semester, year)
}
