package timetable

import "github.com/noah-isme/timetable-api/internal/models"

type labGroup struct {
	name string
	size int
}

// WeeklyOccurrences converts total term contact hours into sessions per week, rounding up.
func WeeklyOccurrences(contactHours, termWeeks int) int {
	if contactHours <= 0 || termWeeks <= 0 {
		return 0
	}
	return (contactHours + termWeeks - 1) / termWeeks
}

func splitGroups(isLab bool, students, threshold int) []labGroup {
	if isLab && students > threshold {
		return []labGroup{
			{name: "G1", size: (students + 1) / 2},
			{name: "G2", size: students / 2},
		}
	}
	return []labGroup{{size: students}}
}

// Expand turns every resolvable batch-course assignment into session units.
// Assignments whose batch, course or teacher cannot be resolved contribute nothing.
func Expand(s Snapshot, opts Options) []SessionUnit {
	idx := newReferenceIndex(s)
	units := make([]SessionUnit, 0, len(s.Assignments))
	for _, assignment := range s.Assignments {
		batch, ok := idx.batches[assignment.BatchID]
		if !ok {
			continue
		}
		course, ok := idx.courses[assignment.CourseID]
		if !ok || course.TeacherID == nil {
			continue
		}
		teacher, ok := idx.teachers[*course.TeacherID]
		if !ok {
			continue
		}

		weekly := WeeklyOccurrences(course.ContactHours, opts.TermWeeks)
		isLab := course.IsLab()
		availability := resolveAvailability(teacher, opts.Days)
		groups := splitGroups(isLab, batch.StudentCount, opts.LabSplitThreshold)
		for i := 0; i < weekly; i++ {
			for _, group := range groups {
				units = append(units, SessionUnit{
					Batch:             batch,
					Course:            course,
					Teacher:           teacher,
					Availability:      availability,
					Occurrence:        i + 1,
					WeeklyOccurrences: weekly,
					IsLab:             isLab,
					Group:             group.name,
					GroupSize:         group.size,
				})
			}
		}
	}
	return units
}

type referenceIndex struct {
	courses  map[string]models.Course
	teachers map[string]models.Teacher
	batches  map[string]models.Batch
}

// newReferenceIndex keeps the first record seen for a duplicated id.
func newReferenceIndex(s Snapshot) referenceIndex {
	idx := referenceIndex{
		courses:  make(map[string]models.Course, len(s.Courses)),
		teachers: make(map[string]models.Teacher, len(s.Teachers)),
		batches:  make(map[string]models.Batch, len(s.Batches)),
	}
	for _, c := range s.Courses {
		if _, ok := idx.courses[c.ID]; !ok {
			idx.courses[c.ID] = c
		}
	}
	for _, t := range s.Teachers {
		if _, ok := idx.teachers[t.ID]; !ok {
			idx.teachers[t.ID] = t
		}
	}
	for _, b := range s.Batches {
		if _, ok := idx.batches[b.ID]; !ok {
			idx.batches[b.ID] = b
		}
	}
	return idx
}
