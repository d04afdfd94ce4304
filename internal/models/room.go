package models

import (
	"time"

	"github.com/lib/pq"
)

// RoomType classifies teaching spaces.
type RoomType string

const (
	RoomTypeLectureHall RoomType = "lecture_hall"
	RoomTypeLab         RoomType = "lab"
	RoomTypeSeminarRoom RoomType = "seminar_room"
	RoomTypeAuditorium  RoomType = "auditorium"
)

// Room is a bookable teaching space.
type Room struct {
	ID           string             `db:"id" json:"id"`
	Name         string             `db:"name" json:"name"`
	Building     string             `db:"building" json:"building"`
	Floor        int                `db:"floor" json:"floor"`
	Capacity     int                `db:"capacity" json:"capacity"`
	Type         RoomType           `db:"type" json:"type"`
	Equipment    pq.StringArray     `db:"equipment" json:"equipment,omitempty"`
	Availability WeeklyAvailability `db:"availability" json:"availability"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}
