package models

import "time"

// CourseKind distinguishes lecture courses from laboratory courses.
type CourseKind string

const (
	CourseKindTheory CourseKind = "Theory"
	CourseKindLab    CourseKind = "Lab"
)

// Course is a catalogue course taught by an assigned teacher.
type Course struct {
	ID           string     `db:"id" json:"id" validate:"required"`
	Code         string     `db:"code" json:"code"`
	Title        string     `db:"title" json:"title"`
	Kind         CourseKind `db:"kind" json:"kind" validate:"required,oneof=Theory Lab"`
	Credits      float64    `db:"credits" json:"credits"`
	ContactHours int        `db:"contact_hours" json:"contact_hours" validate:"min=0"`
	Marks        int        `db:"marks" json:"marks"`
	TeacherID    *string    `db:"teacher_id" json:"teacher_id,omitempty"`
	Year         int        `db:"year" json:"year"`
	Semester     int        `db:"semester" json:"semester"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// IsLab reports whether the course requires a laboratory room.
func (c Course) IsLab() bool {
	return c.Kind == CourseKindLab
}
