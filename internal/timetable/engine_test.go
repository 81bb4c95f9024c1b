package timetable

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func singleCourseSnapshot(hours int) Snapshot {
	return Snapshot{
		Courses:     []models.Course{theoryCourse("c1", "t1", hours)},
		Teachers:    []models.Teacher{teacher("t1")},
		Rooms:       []models.Room{classRoom("r1", 40)},
		Batches:     []models.Batch{batch("b1", 30)},
		Assignments: []models.BatchCourse{link("b1", "c1")},
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Days = nil
	_, err := New(opts)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	opts = DefaultOptions()
	opts.TimeSlots = []string{DefaultLunchSlot}
	_, err = New(opts)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	opts = DefaultOptions()
	opts.BatchPolicy = "shared"
	_, err = New(opts)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	opts = DefaultOptions()
	opts.BatchPolicy = ""
	e, err := New(opts)
	require.NoError(t, err)
	assert.Equal(t, BatchExclusive, e.Options().BatchPolicy)
}

func TestGenerateAbortsWithoutPrerequisites(t *testing.T) {
	s := singleCourseSnapshot(20)
	s.Batches = nil
	res, err := mustEngine(DefaultOptions()).Generate(s)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrMissingPrerequisites))
	assert.Contains(t, err.Error(), "batches")

	res, err = mustEngine(DefaultOptions()).Generate(Snapshot{})
	assert.Nil(t, res)
	assert.ErrorContains(t, err, "batches, courses, rooms")
}

func TestGeneratePlacesFirstUnitAtSecondMorningSlot(t *testing.T) {
	res, err := mustEngine(DefaultOptions()).Generate(singleCourseSnapshot(20))
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Timetable, 1)

	entry := res.Timetable[0]
	assert.Equal(t, "Sunday", entry.Day)
	assert.Equal(t, "9:40-10:30", entry.TimeSlot)
	assert.Equal(t, "tt-Sunday-9:40-10:30-b1-c1-none", entry.ID)
	assert.Nil(t, entry.Group)
	assert.Equal(t, "r1", entry.RoomID)
	assert.Equal(t, "R-r1", entry.RoomNumber)
	assert.Equal(t, "Tt1", entry.TeacherName)
	assert.Equal(t, "B-b1", entry.BatchName)
	assert.Equal(t, "Course c1", entry.CourseName)
	assert.Equal(t, "CSE-c1", entry.CourseCode)
	assert.Equal(t, 30, entry.GroupSize)
	assert.Zero(t, res.FailedAssignmentsCount)
}

func TestGenerateRepeatedSessionsAvoidLongRuns(t *testing.T) {
	res, err := mustEngine(DefaultOptions()).Generate(singleCourseSnapshot(60))
	require.NoError(t, err)
	require.Len(t, res.Timetable, 3)

	slots := []string{res.Timetable[0].TimeSlot, res.Timetable[1].TimeSlot, res.Timetable[2].TimeSlot}
	// the third session would form a three-in-a-row run before lunch, so it goes after lunch
	assert.Equal(t, []string{"9:40-10:30", "10:35-11:25", "2:00-2:50"}, slots)
	for _, entry := range res.Timetable {
		assert.Equal(t, "Sunday", entry.Day)
	}
}

func TestGenerateTieBreakPicksEarliestCell(t *testing.T) {
	opts := DefaultOptions()
	opts.Weights = CostWeights{}
	res, err := mustEngine(opts).Generate(singleCourseSnapshot(20))
	require.NoError(t, err)
	require.Len(t, res.Timetable, 1)
	assert.Equal(t, "Sunday", res.Timetable[0].Day)
	assert.Equal(t, "8:45-9:35", res.Timetable[0].TimeSlot)
}

func TestGenerateBacklogWhenNoLabRooms(t *testing.T) {
	s := Snapshot{
		Courses:     []models.Course{labCourse("lab", "t1", 40), theoryCourse("th", "t2", 20)},
		Teachers:    []models.Teacher{teacher("t1"), teacher("t2")},
		Rooms:       []models.Room{classRoom("r1", 60)},
		Batches:     []models.Batch{batch("b1", 30)},
		Assignments: []models.BatchCourse{link("b1", "lab"), link("b1", "th")},
	}
	res, err := mustEngine(DefaultOptions()).Generate(s)
	require.NoError(t, err)
	assert.True(t, res.Success, "infeasible units do not fail the run")
	assert.Equal(t, 4, res.FailedAssignmentsCount)
	assert.Len(t, res.Backlog, 4)
	require.Len(t, res.Timetable, 1)
	assert.Equal(t, "th", res.Timetable[0].CourseID)
	assert.Equal(t, 5, res.TotalUnits)
}

func TestGenerateSplitLabGroups(t *testing.T) {
	s := Snapshot{
		Courses:     []models.Course{labCourse("lab", "t1", 20)},
		Teachers:    []models.Teacher{teacher("t1")},
		Rooms:       []models.Room{labRoom("l1", 20), labRoom("l2", 20), labRoom("l3", 20)},
		Batches:     []models.Batch{batch("b1", 31)},
		Assignments: []models.BatchCourse{link("b1", "lab")},
	}
	res, err := mustEngine(DefaultOptions()).Generate(s)
	require.NoError(t, err)
	require.Len(t, res.Timetable, 2)
	g1, g2 := res.Timetable[0], res.Timetable[1]
	require.NotNil(t, g1.Group)
	require.NotNil(t, g2.Group)
	assert.Equal(t, "G1", *g1.Group)
	assert.Equal(t, 16, g1.GroupSize)
	assert.Equal(t, "G2", *g2.Group)
	assert.Equal(t, 15, g2.GroupSize)
	assert.Equal(t, "tt-Sunday-9:40-10:30-b1-lab-G1", g1.ID)
	assert.NotEqual(t, g1.TimeSlot, g2.TimeSlot)
}

func TestGenerateIsDeterministic(t *testing.T) {
	s := largeSnapshot()
	first, err := mustEngine(DefaultOptions()).Generate(s)
	require.NoError(t, err)
	second, err := mustEngine(DefaultOptions()).Generate(s)
	require.NoError(t, err)
	assert.Equal(t, first.Timetable, second.Timetable)
	assert.Equal(t, first.FailedAssignmentsCount, second.FailedAssignmentsCount)
}

func TestGenerateHonoursHardConstraints(t *testing.T) {
	s := largeSnapshot()
	opts := DefaultOptions()
	res, err := mustEngine(opts).Generate(s)
	require.NoError(t, err)
	require.NotEmpty(t, res.Timetable)

	rooms := make(map[string]models.Room, len(s.Rooms))
	for _, r := range s.Rooms {
		rooms[r.ID] = r
	}
	teachers := make(map[string]models.Teacher, len(s.Teachers))
	for _, tch := range s.Teachers {
		teachers[tch.ID] = tch
	}
	courses := make(map[string]models.Course, len(s.Courses))
	for _, c := range s.Courses {
		courses[c.ID] = c
	}

	seen := map[string]string{}
	claim := func(key, entryID string) {
		prev, dup := seen[key]
		assert.False(t, dup, "%s double booked by %s and %s", key, prev, entryID)
		seen[key] = entryID
	}
	for _, entry := range res.Timetable {
		cell := entry.Day + "|" + entry.TimeSlot
		assert.NotEqual(t, DefaultLunchSlot, entry.TimeSlot)
		claim("room:"+entry.RoomID+"@"+cell, entry.ID)
		claim("teacher:"+entry.TeacherID+"@"+cell, entry.ID)
		claim("batch:"+entry.BatchID+"@"+cell, entry.ID)

		unit := SessionUnit{Availability: resolveAvailability(teachers[entry.TeacherID], opts.Days)}
		assert.True(t, unit.AvailableOn(entry.Day), "%s outside teacher availability", entry.ID)

		room := rooms[entry.RoomID]
		assert.GreaterOrEqual(t, room.Capacity, entry.GroupSize)
		if courses[entry.CourseID].IsLab() {
			assert.Equal(t, models.RoomKindLab, room.Kind)
		}
	}
	assert.Equal(t, len(Expand(s, opts)), len(res.Timetable)+res.FailedAssignmentsCount)
	assert.Equal(t, res.TotalUnits, len(res.Timetable)+res.FailedAssignmentsCount)
}

func TestRoomUtilization(t *testing.T) {
	s := singleCourseSnapshot(60)
	s.Rooms = append(s.Rooms, classRoom("r2", 10))
	opts := DefaultOptions()
	res, err := mustEngine(opts).Generate(s)
	require.NoError(t, err)

	report := RoomUtilization(res.Timetable, s.Rooms, opts)
	require.Len(t, report, 2)
	assert.Equal(t, "r1", report[0].RoomID)
	assert.Equal(t, 3, report[0].UsedSlots)
	assert.Equal(t, 35, report[0].TotalSlots)
	assert.InDelta(t, 8.6, report[0].Percentage, 0.001)
	assert.Zero(t, report[1].UsedSlots)
	assert.Zero(t, report[1].Percentage)
}

func largeSnapshot() Snapshot {
	s := Snapshot{
		Rooms: []models.Room{
			classRoom("r101", 60), classRoom("r102", 45), classRoom("r103", 30),
			labRoom("lab1", 30), labRoom("lab2", 20),
		},
	}
	for i := 1; i <= 6; i++ {
		id := fmt.Sprintf("t%d", i)
		switch i % 3 {
		case 0:
			s.Teachers = append(s.Teachers, teacher(id, "Sunday", "Tuesday"))
		case 1:
			s.Teachers = append(s.Teachers, teacher(id))
		default:
			s.Teachers = append(s.Teachers, teacher(id, "Monday", "Wednesday", "Thursday"))
		}
	}
	for i := 1; i <= 8; i++ {
		id := fmt.Sprintf("c%d", i)
		tch := fmt.Sprintf("t%d", (i%6)+1)
		if i%3 == 0 {
			s.Courses = append(s.Courses, labCourse(id, tch, 40))
		} else {
			s.Courses = append(s.Courses, theoryCourse(id, tch, 60))
		}
	}
	for i, size := range []int{40, 28, 22} {
		id := fmt.Sprintf("b%d", i+1)
		s.Batches = append(s.Batches, batch(id, size))
		for j := i; j < len(s.Courses); j += 2 {
			s.Assignments = append(s.Assignments, link(id, s.Courses[j].ID))
		}
	}
	return s
}

func TestGuardReportsInternalFailure(t *testing.T) {
	unit := SessionUnit{Teacher: teacher("t1"), Batch: batch("b1", 30)}

	result, err := guard(func() *Result {
		NewGrid(1, 1).Commit(3, 0, unit, "r1")
		return &Result{Success: true}
	})
	require.ErrorIs(t, err, ErrInternalFailure)
	assert.Contains(t, err.Error(), "commit outside grid")
	assert.Nil(t, result)

	result, err = guard(func() *Result { return &Result{Success: true} })
	require.NoError(t, err)
	assert.True(t, result.Success)
}
