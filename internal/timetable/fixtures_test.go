package timetable

import (
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-api/internal/models"
)

func strPtr(s string) *string { return &s }

func theoryCourse(id, teacherID string, hours int) models.Course {
	return models.Course{ID: id, Code: "CSE-" + id, Title: "Course " + id, Kind: models.CourseKindTheory, ContactHours: hours, TeacherID: strPtr(teacherID)}
}

func labCourse(id, teacherID string, hours int) models.Course {
	c := theoryCourse(id, teacherID, hours)
	c.Kind = models.CourseKindLab
	return c
}

func teacher(id string, days ...string) models.Teacher {
	return models.Teacher{ID: id, Name: "Teacher " + id, ShortName: "T" + id, Availability: pq.StringArray(days)}
}

func classRoom(id string, capacity int) models.Room {
	return models.Room{ID: id, Number: "R-" + id, Kind: models.RoomKindClass, Capacity: capacity}
}

func labRoom(id string, capacity int) models.Room {
	return models.Room{ID: id, Number: "L-" + id, Kind: models.RoomKindLab, Capacity: capacity}
}

func batch(id string, students int) models.Batch {
	return models.Batch{ID: id, Code: "B-" + id, StudentCount: students}
}

func link(batchID, courseID string) models.BatchCourse {
	return models.BatchCourse{ID: batchID + "-" + courseID, BatchID: batchID, CourseID: courseID}
}

func mustEngine(opts Options) *Engine {
	e, err := New(opts)
	if err != nil {
		panic(err)
	}
	return e
}
