package dto

import (
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
)

// GenerationConstraints overrides generation behaviour for one request.
type GenerationConstraints struct {
	Strategy string `json:"strategy" validate:"omitempty,oneof=deterministic oracle"`
	// AllowPartial defaults to true; false rejects results with unscheduled sessions.
	AllowPartial      *bool `json:"allowPartial"`
	MaxSessionsPerDay int   `json:"maxSessionsPerDay" validate:"omitempty,min=0,max=6"`
}

// GenerateTimetableRequest asks for a new draft timetable.
type GenerateTimetableRequest struct {
	Department   string                 `json:"department" validate:"required,max=64"`
	Semester     int                    `json:"semester" validate:"required,min=1,max=12"`
	AcademicYear int                    `json:"academicYear" validate:"required,min=2000,max=2100"`
	Constraints  *GenerationConstraints `json:"constraints"`
}

// PartialAllowed resolves the allowPartial override.
func (r GenerateTimetableRequest) PartialAllowed() bool {
	if r.Constraints == nil || r.Constraints.AllowPartial == nil {
		return true
	}
	return *r.Constraints.AllowPartial
}

// GenerateTimetableResponse is returned after a successful generation.
type GenerateTimetableResponse struct {
	Timetable *models.Timetable   `json:"timetable"`
	Warnings  []scheduler.Warning `json:"warnings"`
	Strategy  string              `json:"strategy"`
}

// OptimizeTimetableResponse is returned after an optimization run.
type OptimizeTimetableResponse struct {
	Timetable *models.Timetable   `json:"timetable"`
	Warnings  []scheduler.Warning `json:"warnings"`
	Moves     int                 `json:"moves"`
}

// TimetableQuery filters timetable listings.
type TimetableQuery struct {
	Department string `form:"department"`
	Semester   int    `form:"semester" validate:"omitempty,min=1,max=12"`
	Year       int    `form:"year" validate:"omitempty,min=2000,max=2100"`
	Status     string `form:"status" validate:"omitempty,oneof=draft published archived"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"page_size" validate:"omitempty,min=1,max=100"`
}

// TimetableEntryView is a schedule entry with catalog names resolved.
type TimetableEntryView struct {
	models.ScheduleEntry
	CourseCode  string `json:"course_code"`
	CourseName  string `json:"course_name"`
	FacultyName string `json:"faculty_name"`
	RoomName    string `json:"room_name"`
	TimeSlot    string `json:"time_slot"`
}

// TimetableDetail is a timetable whose schedule carries resolved names.
type TimetableDetail struct {
	models.Timetable
	Schedule []TimetableEntryView `json:"schedule"`
}

// NotificationQuery filters notification listings.
type NotificationQuery struct {
	Unread bool `form:"unread"`
	Limit  int  `form:"limit" validate:"omitempty,min=1,max=200"`
}
