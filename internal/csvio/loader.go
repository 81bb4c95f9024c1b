// Package csvio reads a reference snapshot from a directory of CSV files and
// loads the optional YAML generation policy used by the offline CLI.
package csvio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/timetable"
)

// File names expected inside a snapshot directory.
const (
	CoursesFile      = "courses.csv"
	TeachersFile     = "teachers.csv"
	RoomsFile        = "rooms.csv"
	BatchesFile      = "batches.csv"
	BatchCoursesFile = "batch_courses.csv"
)

type courseRow struct {
	ID           string  `csv:"id"`
	Code         string  `csv:"code"`
	Title        string  `csv:"title"`
	Kind         string  `csv:"kind"`
	Credits      float64 `csv:"credits"`
	ContactHours int     `csv:"contact_hours"`
	Marks        int     `csv:"marks"`
	TeacherID    string  `csv:"teacher_id"`
	Year         int     `csv:"year"`
	Semester     int     `csv:"semester"`
}

type teacherRow struct {
	ID        string `csv:"id"`
	Name      string `csv:"name"`
	ShortName string `csv:"short_name"`
	Email     string `csv:"email"`
	// Availability lists day names separated by "|". Empty means every day.
	Availability string `csv:"availability"`
}

type roomRow struct {
	ID       string `csv:"id"`
	Number   string `csv:"number"`
	Kind     string `csv:"kind"`
	Capacity int    `csv:"capacity"`
}

type batchRow struct {
	ID           string `csv:"id"`
	Code         string `csv:"batch_code"`
	Year         int    `csv:"year"`
	Semester     int    `csv:"semester"`
	StudentCount int    `csv:"student_count"`
}

type batchCourseRow struct {
	BatchID  string `csv:"batch_id"`
	CourseID string `csv:"course_id"`
}

// LoadSnapshot reads every reference collection from dir.
func LoadSnapshot(dir string) (timetable.Snapshot, error) {
	var (
		snap         timetable.Snapshot
		courses      []*courseRow
		teachers     []*teacherRow
		rooms        []*roomRow
		batches      []*batchRow
		batchCourses []*batchCourseRow
	)

	files := []struct {
		name string
		dest interface{}
	}{
		{CoursesFile, &courses},
		{TeachersFile, &teachers},
		{RoomsFile, &rooms},
		{BatchesFile, &batches},
		{BatchCoursesFile, &batchCourses},
	}
	for _, f := range files {
		if err := unmarshalFile(filepath.Join(dir, f.name), f.dest); err != nil {
			return snap, err
		}
	}

	for _, row := range courses {
		course := models.Course{
			ID:           row.ID,
			Code:         row.Code,
			Title:        row.Title,
			Kind:         models.CourseKind(row.Kind),
			Credits:      row.Credits,
			ContactHours: row.ContactHours,
			Marks:        row.Marks,
			Year:         row.Year,
			Semester:     row.Semester,
		}
		if id := strings.TrimSpace(row.TeacherID); id != "" {
			course.TeacherID = &id
		}
		snap.Courses = append(snap.Courses, course)
	}
	for _, row := range teachers {
		snap.Teachers = append(snap.Teachers, models.Teacher{
			ID:           row.ID,
			Name:         row.Name,
			ShortName:    row.ShortName,
			Email:        row.Email,
			Availability: splitDays(row.Availability),
		})
	}
	for _, row := range rooms {
		snap.Rooms = append(snap.Rooms, models.Room{
			ID:       row.ID,
			Number:   row.Number,
			Kind:     models.RoomKind(row.Kind),
			Capacity: row.Capacity,
		})
	}
	for _, row := range batches {
		snap.Batches = append(snap.Batches, models.Batch{
			ID:           row.ID,
			Code:         row.Code,
			Year:         row.Year,
			Semester:     row.Semester,
			StudentCount: row.StudentCount,
		})
	}
	for _, row := range batchCourses {
		snap.Assignments = append(snap.Assignments, models.BatchCourse{BatchID: row.BatchID, CourseID: row.CourseID})
	}
	return snap, nil
}

func unmarshalFile(path string, dest interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	if err := gocsv.UnmarshalFile(file, dest); err != nil {
		// A zero-byte file is a valid empty collection.
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil
		}
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func splitDays(raw string) pq.StringArray {
	var days pq.StringArray
	for _, part := range strings.Split(raw, "|") {
		if day := strings.TrimSpace(part); day != "" {
			days = append(days, day)
		}
	}
	return days
}
