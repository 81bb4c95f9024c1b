// Package timetable implements the greedy weekly timetable generator.
package timetable

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/timetable-api/internal/models"
)

var (
	// ErrMissingPrerequisites aborts a run when the snapshot lacks batches, courses or rooms.
	ErrMissingPrerequisites = errors.New("missing batches, courses, or rooms data")
	// ErrInternalFailure wraps unexpected failures raised while generating.
	ErrInternalFailure = errors.New("timetable generation failed")
)

// Snapshot is the reference data one run reads.
type Snapshot struct {
	Courses     []models.Course
	Teachers    []models.Teacher
	Rooms       []models.Room
	Batches     []models.Batch
	Assignments []models.BatchCourse
}

// Validate reports which prerequisite collections are empty.
func (s Snapshot) Validate() error {
	var missing []string
	if len(s.Batches) == 0 {
		missing = append(missing, "batches")
	}
	if len(s.Courses) == 0 {
		missing = append(missing, "courses")
	}
	if len(s.Rooms) == 0 {
		missing = append(missing, "rooms")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: no %s", ErrMissingPrerequisites, strings.Join(missing, ", "))
	}
	return nil
}

// Engine runs generations under a fixed policy. It holds no per-run state.
type Engine struct {
	opts Options
}

// New validates opts and returns an engine.
func New(opts Options) (*Engine, error) {
	if opts.BatchPolicy == "" {
		opts.BatchPolicy = BatchExclusive
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Engine{opts: opts}, nil
}

// Options returns the policy the engine was built with.
func (e *Engine) Options() Options {
	return e.opts
}

// Generate expands, orders and places every unit of the snapshot on a fresh grid.
// On failure no partial timetable is returned.
func (e *Engine) Generate(s Snapshot) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return guard(func() *Result {
		grid := NewGrid(len(e.opts.Days), len(e.opts.TimeSlots))
		assigner := NewAssigner(grid, s.Rooms, e.opts)
		builder := NewResultBuilder(e.opts)

		for _, unit := range Order(Expand(s, e.opts)) {
			if placed, ok := assigner.Place(unit); ok {
				builder.Placed(placed)
				continue
			}
			builder.Deferred(unit)
		}
		return builder.Build()
	})
}

// guard turns a panic raised by run into ErrInternalFailure and drops any
// partial result.
func guard(run func() *Result) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: %v", ErrInternalFailure, r)
		}
	}()
	return run(), nil
}
