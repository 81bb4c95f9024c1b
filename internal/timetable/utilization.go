package timetable

import (
	"math"

	"github.com/noah-isme/timetable-api/internal/models"
)

// RoomUtilization counts the teachable cells each room occupies in entries.
// Rooms are reported in reference order; entries for unknown rooms are ignored.
func RoomUtilization(entries []models.TimetableEntry, rooms []models.Room, opts Options) []models.RoomUtilization {
	total := len(opts.Days) * opts.TeachableSlots()
	used := make(map[string]map[string]struct{}, len(rooms))
	for _, entry := range entries {
		if entry.TimeSlot == opts.LunchSlot {
			continue
		}
		cells, ok := used[entry.RoomID]
		if !ok {
			cells = make(map[string]struct{})
			used[entry.RoomID] = cells
		}
		cells[entry.Day+"|"+entry.TimeSlot] = struct{}{}
	}

	report := make([]models.RoomUtilization, 0, len(rooms))
	for _, room := range rooms {
		count := len(used[room.ID])
		pct := 0.0
		if total > 0 {
			pct = math.Round(float64(count)/float64(total)*1000) / 10
		}
		report = append(report, models.RoomUtilization{
			RoomID:     room.ID,
			RoomNumber: room.Number,
			Kind:       room.Kind,
			UsedSlots:  count,
			TotalSlots: total,
			Percentage: pct,
		})
	}
	return report
}
