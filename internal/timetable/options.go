package timetable

import (
	"errors"
	"fmt"
	"strings"
)

// BatchPolicy controls whether units of one batch may share a grid cell.
type BatchPolicy string

const (
	// BatchExclusive forbids any two units of the same batch in one cell, split lab groups included.
	BatchExclusive BatchPolicy = "exclusive"
	// ParallelLabGroups lets distinct lab groups of a batch meet in the same cell in different rooms.
	ParallelLabGroups BatchPolicy = "parallel_lab_groups"
)

const (
	DefaultTermWeeks           = 20
	DefaultLabSplitThreshold   = 25
	DefaultScarceRoomThreshold = 2
	DefaultContinuityWindow    = 2
	DefaultLunchSlot           = "LUNCH"
)

// ErrInvalidOptions is returned by Options.Validate.
var ErrInvalidOptions = errors.New("invalid timetable options")

// DefaultDays is the canonical working week.
func DefaultDays() []string {
	return []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday"}
}

// DefaultTimeSlots is the canonical daily grid, lunch included.
func DefaultTimeSlots() []string {
	return []string{
		"8:45-9:35",
		"9:40-10:30",
		"10:35-11:25",
		"11:30-12:20",
		DefaultLunchSlot,
		"2:00-2:50",
		"2:55-3:45",
		"3:50-4:40",
	}
}

// CostWeights are the soft penalty weights used to rank feasible cells.
type CostWeights struct {
	Base                 int `json:"base" yaml:"base"`
	ContinuousClass      int `json:"continuousClass" yaml:"continuous_class"`
	UndesirableTime      int `json:"undesirableTime" yaml:"undesirable_time"`
	LateDayGap           int `json:"lateDayGap" yaml:"late_day_gap"`
	LateDayGapMultiplier int `json:"lateDayGapMultiplier" yaml:"late_day_gap_multiplier"`
	ScarceResource       int `json:"scarceResource" yaml:"scarce_resource"`
}

// DefaultCostWeights returns the production weight table.
func DefaultCostWeights() CostWeights {
	return CostWeights{
		Base:                 1,
		ContinuousClass:      10,
		UndesirableTime:      2,
		LateDayGap:           4,
		LateDayGapMultiplier: 2,
		ScarceResource:       5,
	}
}

// Options is the generation policy. Slot indices refer to positions in TimeSlots, lunch included.
type Options struct {
	Days                []string    `json:"days" yaml:"days"`
	TimeSlots           []string    `json:"timeSlots" yaml:"time_slots"`
	LunchSlot           string      `json:"lunchSlot" yaml:"lunch_slot"`
	TermWeeks           int         `json:"termWeeks" yaml:"term_weeks"`
	LabSplitThreshold   int         `json:"labSplitThreshold" yaml:"lab_split_threshold"`
	ScarceRoomThreshold int         `json:"scarceRoomThreshold" yaml:"scarce_room_threshold"`
	ContinuityWindow    int         `json:"continuityWindow" yaml:"continuity_window"`
	EarlySlotIndex      int         `json:"earlySlotIndex" yaml:"early_slot_index"`
	LateSlotFrom        int         `json:"lateSlotFrom" yaml:"late_slot_from"`
	LateStartFrom       int         `json:"lateStartFrom" yaml:"late_start_from"`
	BatchPolicy         BatchPolicy `json:"batchPolicy" yaml:"batch_policy"`
	Weights             CostWeights `json:"weights" yaml:"weights"`
}

// DefaultOptions returns the policy the generator runs with unless configured otherwise.
func DefaultOptions() Options {
	return Options{
		Days:                DefaultDays(),
		TimeSlots:           DefaultTimeSlots(),
		LunchSlot:           DefaultLunchSlot,
		TermWeeks:           DefaultTermWeeks,
		LabSplitThreshold:   DefaultLabSplitThreshold,
		ScarceRoomThreshold: DefaultScarceRoomThreshold,
		ContinuityWindow:    DefaultContinuityWindow,
		EarlySlotIndex:      0,
		LateSlotFrom:        6,
		LateStartFrom:       5,
		BatchPolicy:         BatchExclusive,
		Weights:             DefaultCostWeights(),
	}
}

// Validate rejects policies the engine cannot run with.
func (o Options) Validate() error {
	if len(o.Days) == 0 {
		return fmt.Errorf("%w: at least one day is required", ErrInvalidOptions)
	}
	seen := make(map[string]struct{}, len(o.Days))
	for _, day := range o.Days {
		key := strings.ToLower(strings.TrimSpace(day))
		if key == "" {
			return fmt.Errorf("%w: day names must not be blank", ErrInvalidOptions)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate day %q", ErrInvalidOptions, day)
		}
		seen[key] = struct{}{}
	}
	teachable := 0
	for _, slot := range o.TimeSlots {
		if slot != o.LunchSlot {
			teachable++
		}
	}
	if teachable == 0 {
		return fmt.Errorf("%w: at least one non-lunch time slot is required", ErrInvalidOptions)
	}
	if o.TermWeeks <= 0 {
		return fmt.Errorf("%w: term weeks must be positive", ErrInvalidOptions)
	}
	if o.LabSplitThreshold < 0 || o.ScarceRoomThreshold < 0 || o.ContinuityWindow < 0 {
		return fmt.Errorf("%w: thresholds must not be negative", ErrInvalidOptions)
	}
	switch o.BatchPolicy {
	case "", BatchExclusive, ParallelLabGroups:
	default:
		return fmt.Errorf("%w: unknown batch policy %q", ErrInvalidOptions, o.BatchPolicy)
	}
	return nil
}

func (o Options) isLunch(slot int) bool {
	return o.TimeSlots[slot] == o.LunchSlot
}

// TeachableSlots returns the number of non-lunch slots per day.
func (o Options) TeachableSlots() int {
	count := 0
	for i := range o.TimeSlots {
		if !o.isLunch(i) {
			count++
		}
	}
	return count
}
