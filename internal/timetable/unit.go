package timetable

import (
	"strings"

	"github.com/noah-isme/timetable-api/internal/models"
)

// SessionUnit is one weekly occurrence of a batch-course pairing, or one lab group of it.
type SessionUnit struct {
	Batch             models.Batch
	Course            models.Course
	Teacher           models.Teacher
	Availability      []string
	Occurrence        int
	WeeklyOccurrences int
	IsLab             bool
	Group             string
	GroupSize         int
}

// GroupLabel returns the group name or "none".
func (u SessionUnit) GroupLabel() string {
	if u.Group == "" {
		return "none"
	}
	return u.Group
}

// AvailableOn reports whether the unit's teacher works on the given day.
func (u SessionUnit) AvailableOn(day string) bool {
	for _, d := range u.Availability {
		if strings.EqualFold(d, day) {
			return true
		}
	}
	return false
}

// resolveAvailability falls back to the whole week when the teacher lists no days.
func resolveAvailability(teacher models.Teacher, days []string) []string {
	result := make([]string, 0, len(teacher.Availability))
	seen := make(map[string]struct{}, len(teacher.Availability))
	for _, raw := range teacher.Availability {
		day := strings.TrimSpace(raw)
		key := strings.ToLower(day)
		if day == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, day)
	}
	if len(result) == 0 {
		return append([]string(nil), days...)
	}
	return result
}
