package domain

import (
	"strings"
	"time"
)

// GeoPosition is a WGS84 coordinate pair.
type GeoPosition struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ActivityMode is the motion classification reported by the activity monitor.
type ActivityMode int

const (
	ActivityUnknown ActivityMode = iota
	ActivityIdle
	ActivityStationary
	ActivityMoving
	ActivityWalking
	ActivityRunning
	ActivityBiking
	ActivityMovingInVehicle
)

var activityModeNames = map[ActivityMode]string{
	ActivityUnknown:         "Unknown",
	ActivityIdle:            "Idle",
	ActivityStationary:      "Stationary",
	ActivityMoving:          "Moving",
	ActivityWalking:         "Walking",
	ActivityRunning:         "Running",
	ActivityBiking:          "Biking",
	ActivityMovingInVehicle: "MovingInVehicle",
}

func (m ActivityMode) String() string {
	if name, ok := activityModeNames[m]; ok {
		return name
	}
	return "Unknown"
}

// ParseActivityMode converts a mode name to an ActivityMode, case-insensitively.
// Unrecognized names map to ActivityUnknown.
func ParseActivityMode(s string) ActivityMode {
	for mode, name := range activityModeNames {
		if strings.EqualFold(name, s) {
			return mode
		}
	}
	return ActivityUnknown
}

// PlaceKind classifies a known place.
type PlaceKind int

const (
	PlaceUnknown PlaceKind = iota
	PlaceHome
	PlaceWork
	PlaceFrequent
	PlaceKnown
)

var placeKindNames = map[PlaceKind]string{
	PlaceUnknown:  "Unknown",
	PlaceHome:     "Home",
	PlaceWork:     "Work",
	PlaceFrequent: "Frequent",
	PlaceKnown:    "Known",
}

func (k PlaceKind) String() string {
	if name, ok := placeKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// ParsePlaceKind converts a kind name to a PlaceKind, case-insensitively.
func ParsePlaceKind(s string) PlaceKind {
	for kind, name := range placeKindNames {
		if strings.EqualFold(name, s) {
			return kind
		}
	}
	return PlaceUnknown
}

// ActivityReading is one entry of the activity monitor history.
type ActivityReading struct {
	Timestamp time.Time    `json:"timestamp"`
	Mode      ActivityMode `json:"mode"`
}

// StepReading is an immutable snapshot from the step counter history.
type StepReading struct {
	Timestamp        time.Time     `json:"timestamp"`
	WalkingStepCount uint32        `json:"walking_step_count"`
	WalkTime         time.Duration `json:"walk_time"`
	RunningStepCount uint32        `json:"running_step_count"`
	RunTime          time.Duration `json:"run_time"`
}

// SameCounters reports whether both readings carry identical counter and time
// fields. The timestamp is not compared.
func (r StepReading) SameCounters(other StepReading) bool {
	return r.WalkingStepCount == other.WalkingStepCount &&
		r.WalkTime == other.WalkTime &&
		r.RunningStepCount == other.RunningStepCount &&
		r.RunTime == other.RunTime
}

// Place is a location the place monitor has learned.
type Place struct {
	ID       int         `json:"id"`
	Kind     PlaceKind   `json:"kind"`
	Position GeoPosition `json:"position"`
	Radius   float64     `json:"radius"`
}

// TrackPoint is a recorded stop on the user's route.
type TrackPoint struct {
	Timestamp    time.Time     `json:"timestamp"`
	LengthOfStay time.Duration `json:"length_of_stay"`
	Position     GeoPosition   `json:"position"`
	Radius       float64       `json:"radius"`
}
