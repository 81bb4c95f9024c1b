package models

import (
	"time"

	"github.com/lib/pq"
)

// Teacher represents an instructor record.
type Teacher struct {
	ID           string         `db:"id" json:"id" validate:"required"`
	Name         string         `db:"name" json:"name" validate:"required"`
	ShortName    string         `db:"short_name" json:"short_name"`
	Email        string         `db:"email" json:"email"`
	Availability pq.StringArray `db:"availability" json:"availability"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Label returns the short display name, falling back to the full name.
func (t Teacher) Label() string {
	if t.ShortName != "" {
		return t.ShortName
	}
	return t.Name
}
