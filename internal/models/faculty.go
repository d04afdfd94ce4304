package models

import (
	"time"

	"github.com/lib/pq"
)

// Faculty is a teaching staff member.
type Faculty struct {
	ID                 string             `db:"id" json:"id"`
	Name               string             `db:"name" json:"name"`
	Email              string             `db:"email" json:"email"`
	Department         string             `db:"department" json:"department"`
	Specializations    pq.StringArray     `db:"specializations" json:"specializations"`
	Availability       WeeklyAvailability `db:"availability" json:"availability"`
	MaxHoursPerWeek    int                `db:"max_hours_per_week" json:"max_hours_per_week"`
	PreferredTimeSlots pq.StringArray     `db:"preferred_time_slots" json:"preferred_time_slots,omitempty"`
	AvoidTimeSlots     pq.StringArray     `db:"avoid_time_slots" json:"avoid_time_slots,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}
