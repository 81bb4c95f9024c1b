package models

import "time"

// RoomKind distinguishes ordinary classrooms from laboratories.
type RoomKind string

const (
	RoomKindClass RoomKind = "Class"
	RoomKindLab   RoomKind = "Lab"
)

// Room is a bookable teaching space.
type Room struct {
	ID        string    `db:"id" json:"id" validate:"required"`
	Number    string    `db:"number" json:"number"`
	Kind      RoomKind  `db:"kind" json:"kind" validate:"required,oneof=Class Lab"`
	Capacity  int       `db:"capacity" json:"capacity" validate:"min=0"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
