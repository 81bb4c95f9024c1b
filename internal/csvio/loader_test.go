package csvio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/timetable"
)

func writeSnapshotDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func validFiles() map[string]string {
	return map[string]string{
		CoursesFile: "id,code,title,kind,credits,contact_hours,marks,teacher_id,year,semester\n" +
			"c-1,CS101,Programming,Theory,3,40,100,t-1,1,1\n" +
			"c-2,CS101L,Programming Lab,Lab,1,20,50,,1,1\n",
		TeachersFile: "id,name,short_name,email,availability\n" +
			"t-1,Ada Lovelace,AL,ada@example.com,\n" +
			"t-2,Alan Turing,AT,alan@example.com,Sunday|Monday\n",
		RoomsFile:        "id,number,kind,capacity\nr-1,101,Class,40\nr-2,L1,Lab,20\n",
		BatchesFile:      "id,batch_code,year,semester,student_count\nb-1,CSE-21,1,1,30\n",
		BatchCoursesFile: "batch_id,course_id\nb-1,c-1\nb-1,c-2\n",
	}
}

func TestLoadSnapshot(t *testing.T) {
	dir := writeSnapshotDir(t, validFiles())

	snap, err := LoadSnapshot(dir)
	require.NoError(t, err)

	require.Len(t, snap.Courses, 2)
	require.NotNil(t, snap.Courses[0].TeacherID)
	assert.Equal(t, "t-1", *snap.Courses[0].TeacherID)
	assert.Nil(t, snap.Courses[1].TeacherID)
	assert.True(t, snap.Courses[1].IsLab())
	assert.Equal(t, 40, snap.Courses[0].ContactHours)

	require.Len(t, snap.Teachers, 2)
	assert.Empty(t, snap.Teachers[0].Availability)
	assert.Equal(t, []string{"Sunday", "Monday"}, []string(snap.Teachers[1].Availability))

	require.Len(t, snap.Rooms, 2)
	assert.Equal(t, models.RoomKindLab, snap.Rooms[1].Kind)
	assert.Equal(t, 30, snap.Batches[0].StudentCount)
	assert.Len(t, snap.Assignments, 2)
	assert.NoError(t, snap.Validate())
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	files := validFiles()
	delete(files, RoomsFile)
	dir := writeSnapshotDir(t, files)

	_, err := LoadSnapshot(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), RoomsFile)
}

func TestLoadSnapshotRejectsMalformedNumbers(t *testing.T) {
	files := validFiles()
	files[RoomsFile] = "id,number,kind,capacity\nr-1,101,Class,forty\n"
	dir := writeSnapshotDir(t, files)

	_, err := LoadSnapshot(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse rooms.csv")
}

func TestLoadSnapshotFeedsEngine(t *testing.T) {
	snap, err := LoadSnapshot(writeSnapshotDir(t, validFiles()))
	require.NoError(t, err)

	engine, err := timetable.New(timetable.DefaultOptions())
	require.NoError(t, err)
	result, err := engine.Generate(snap)
	require.NoError(t, err)
	assert.Greater(t, result.TotalUnits, 0)
	assert.Equal(t, result.TotalUnits, len(result.Timetable)+result.FailedAssignmentsCount)
}

func TestLoadPolicy(t *testing.T) {
	base := timetable.DefaultOptions()

	opts, err := LoadPolicy("", base)
	require.NoError(t, err)
	assert.Equal(t, base, opts)

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch_policy: parallel_lab_groups\nlab_split_threshold: 30\nweights:\n  continuous_class: 12\n"), 0o644))

	opts, err = LoadPolicy(path, base)
	require.NoError(t, err)
	assert.Equal(t, timetable.ParallelLabGroups, opts.BatchPolicy)
	assert.Equal(t, 30, opts.LabSplitThreshold)
	assert.Equal(t, 12, opts.Weights.ContinuousClass)
	assert.Equal(t, base.Weights.ScarceResource, opts.Weights.ScarceResource)
	assert.Equal(t, base.Days, opts.Days)
}

func TestLoadPolicyRejectsInvalidOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("days: []\n"), 0o644))

	_, err := LoadPolicy(path, timetable.DefaultOptions())
	require.ErrorIs(t, err, timetable.ErrInvalidOptions)
}
