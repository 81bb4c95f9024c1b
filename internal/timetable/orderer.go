package timetable

import "sort"

// Order returns a copy of units sorted so harder units are attempted first:
// lab units before theory units, then teachers with fewer available days first.
// The sort is stable so equal units keep their expansion order.
func Order(units []SessionUnit) []SessionUnit {
	ordered := make([]SessionUnit, len(units))
	copy(ordered, units)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].IsLab != ordered[j].IsLab {
			return ordered[i].IsLab
		}
		return len(ordered[i].Availability) < len(ordered[j].Availability)
	})
	return ordered
}
