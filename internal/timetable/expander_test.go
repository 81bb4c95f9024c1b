package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func TestWeeklyOccurrences(t *testing.T) {
	cases := map[int]int{0: 0, -5: 0, 1: 1, 20: 1, 21: 2, 40: 2, 72: 4}
	for hours, want := range cases {
		assert.Equal(t, want, WeeklyOccurrences(hours, DefaultTermWeeks), "hours=%d", hours)
	}
	assert.Equal(t, 0, WeeklyOccurrences(40, 0))
}

func TestExpandSplitsLargeLabBatches(t *testing.T) {
	s := Snapshot{
		Courses:     []models.Course{labCourse("lab", "t1", 72)},
		Teachers:    []models.Teacher{teacher("t1")},
		Batches:     []models.Batch{batch("b1", 30)},
		Assignments: []models.BatchCourse{link("b1", "lab")},
	}
	units := Expand(s, DefaultOptions())
	require.Len(t, units, 8)
	for i, unit := range units {
		assert.True(t, unit.IsLab)
		assert.Equal(t, 15, unit.GroupSize)
		if i%2 == 0 {
			assert.Equal(t, "G1", unit.Group)
		} else {
			assert.Equal(t, "G2", unit.Group)
		}
		assert.Equal(t, 4, unit.WeeklyOccurrences)
	}
}

func TestExpandOddLabBatch(t *testing.T) {
	s := Snapshot{
		Courses:     []models.Course{labCourse("lab", "t1", 20)},
		Teachers:    []models.Teacher{teacher("t1")},
		Batches:     []models.Batch{batch("b1", 31)},
		Assignments: []models.BatchCourse{link("b1", "lab")},
	}
	units := Expand(s, DefaultOptions())
	require.Len(t, units, 2)
	assert.Equal(t, 16, units[0].GroupSize)
	assert.Equal(t, 15, units[1].GroupSize)
}

func TestExpandDoesNotSplitAtThreshold(t *testing.T) {
	s := Snapshot{
		Courses:     []models.Course{labCourse("lab", "t1", 20), theoryCourse("th", "t1", 20)},
		Teachers:    []models.Teacher{teacher("t1")},
		Batches:     []models.Batch{batch("b1", 25), batch("b2", 60)},
		Assignments: []models.BatchCourse{link("b1", "lab"), link("b2", "th")},
	}
	units := Expand(s, DefaultOptions())
	require.Len(t, units, 2)
	assert.Empty(t, units[0].Group)
	assert.Equal(t, 25, units[0].GroupSize)
	assert.Equal(t, "none", units[0].GroupLabel())
	assert.Empty(t, units[1].Group, "theory courses never split")
	assert.Equal(t, 60, units[1].GroupSize)
}

func TestExpandSkipsUnresolvedReferences(t *testing.T) {
	noTeacher := theoryCourse("orphan", "t1", 20)
	noTeacher.TeacherID = nil
	s := Snapshot{
		Courses:  []models.Course{theoryCourse("ok", "t1", 20), theoryCourse("ghost", "missing", 20), noTeacher},
		Teachers: []models.Teacher{teacher("t1")},
		Batches:  []models.Batch{batch("b1", 20)},
		Assignments: []models.BatchCourse{
			link("b1", "ok"),
			link("b1", "ghost"),
			link("b1", "orphan"),
			link("b1", "unknown-course"),
			link("unknown-batch", "ok"),
		},
	}
	units := Expand(s, DefaultOptions())
	require.Len(t, units, 1)
	assert.Equal(t, "ok", units[0].Course.ID)
}

func TestExpandResolvesAvailability(t *testing.T) {
	s := Snapshot{
		Courses:     []models.Course{theoryCourse("a", "t1", 20), theoryCourse("b", "t2", 20)},
		Teachers:    []models.Teacher{teacher("t1"), teacher("t2", " Monday ", "monday", "", "Tuesday")},
		Batches:     []models.Batch{batch("b1", 20)},
		Assignments: []models.BatchCourse{link("b1", "a"), link("b1", "b")},
	}
	units := Expand(s, DefaultOptions())
	require.Len(t, units, 2)
	assert.Equal(t, DefaultDays(), units[0].Availability)
	assert.Equal(t, []string{"Monday", "Tuesday"}, units[1].Availability)
	assert.True(t, units[1].AvailableOn("MONDAY"))
	assert.False(t, units[1].AvailableOn("Sunday"))
}
