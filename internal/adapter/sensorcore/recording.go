package sensorcore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
)

// Recording file names inside the recordings directory.
const (
	ActivityRecordingFile   = "activity_4_minutes_walk_stationary_idle.yaml"
	StepRecordingFile       = "steps_132_minutes_running.yaml"
	TrackPointRecordingFile = "trackpoints_90_minutes_cycling.yaml"
	PlacesFile              = "places.yaml"
)

// Recording is a recorded sensor session. Offsets are relative to the moment
// the simulator is seeded.
type Recording struct {
	Name        string            `yaml:"name"`
	Activity    []activityEntry   `yaml:"activity"`
	Steps       []stepEntry       `yaml:"steps"`
	TrackPoints []trackPointEntry `yaml:"track_points"`
}

type activityEntry struct {
	Offset string `yaml:"offset"`
	Mode   string `yaml:"mode"`
}

type stepEntry struct {
	Offset       string `yaml:"offset"`
	WalkingSteps uint32 `yaml:"walking_steps"`
	WalkTime     string `yaml:"walk_time"`
	RunningSteps uint32 `yaml:"running_steps"`
	RunTime      string `yaml:"run_time"`
}

type trackPointEntry struct {
	Offset       string  `yaml:"offset"`
	LengthOfStay string  `yaml:"length_of_stay"`
	Latitude     float64 `yaml:"latitude"`
	Longitude    float64 `yaml:"longitude"`
	Radius       float64 `yaml:"radius"`
}

type placesDocument struct {
	Places []placeEntry `yaml:"places"`
}

type placeEntry struct {
	ID        int     `yaml:"id"`
	Kind      string  `yaml:"kind"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Radius    float64 `yaml:"radius"`
}

// LoadRecording reads and validates a recording file.
func LoadRecording(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRecordingNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}

	var rec Recording
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse recording %s: %w", path, err)
	}
	if _, err := rec.activity(time.Time{}); err != nil {
		return nil, fmt.Errorf("recording %s: %w", path, err)
	}
	if _, err := rec.steps(time.Time{}); err != nil {
		return nil, fmt.Errorf("recording %s: %w", path, err)
	}
	if _, err := rec.trackPoints(time.Time{}); err != nil {
		return nil, fmt.Errorf("recording %s: %w", path, err)
	}
	return &rec, nil
}

// LoadPlaces reads a places file. A missing file yields no places.
func LoadPlaces(path string) ([]domain.Place, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read places: %w", err)
	}

	var doc placesDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse places %s: %w", path, err)
	}

	places := make([]domain.Place, 0, len(doc.Places))
	for _, p := range doc.Places {
		places = append(places, domain.Place{
			ID:       p.ID,
			Kind:     domain.ParsePlaceKind(p.Kind),
			Position: domain.GeoPosition{Latitude: p.Latitude, Longitude: p.Longitude},
			Radius:   p.Radius,
		})
	}
	return places, nil
}

// activity anchors the recorded activity readings at seed, ordered by time.
func (r *Recording) activity(seed time.Time) ([]domain.ActivityReading, error) {
	out := make([]domain.ActivityReading, 0, len(r.Activity))
	for i, e := range r.Activity {
		offset, err := parseDuration(e.Offset, "activity", i, "offset")
		if err != nil {
			return nil, err
		}
		out = append(out, domain.ActivityReading{
			Timestamp: seed.Add(offset),
			Mode:      domain.ParseActivityMode(e.Mode),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *Recording) steps(seed time.Time) ([]domain.StepReading, error) {
	out := make([]domain.StepReading, 0, len(r.Steps))
	for i, e := range r.Steps {
		offset, err := parseDuration(e.Offset, "steps", i, "offset")
		if err != nil {
			return nil, err
		}
		walkTime, err := parseDuration(e.WalkTime, "steps", i, "walk_time")
		if err != nil {
			return nil, err
		}
		runTime, err := parseDuration(e.RunTime, "steps", i, "run_time")
		if err != nil {
			return nil, err
		}
		out = append(out, domain.StepReading{
			Timestamp:        seed.Add(offset),
			WalkingStepCount: e.WalkingSteps,
			WalkTime:         walkTime,
			RunningStepCount: e.RunningSteps,
			RunTime:          runTime,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *Recording) trackPoints(seed time.Time) ([]domain.TrackPoint, error) {
	out := make([]domain.TrackPoint, 0, len(r.TrackPoints))
	for i, e := range r.TrackPoints {
		offset, err := parseDuration(e.Offset, "track_points", i, "offset")
		if err != nil {
			return nil, err
		}
		stay, err := parseDuration(e.LengthOfStay, "track_points", i, "length_of_stay")
		if err != nil {
			return nil, err
		}
		out = append(out, domain.TrackPoint{
			Timestamp:    seed.Add(offset),
			LengthOfStay: stay,
			Position:     domain.GeoPosition{Latitude: e.Latitude, Longitude: e.Longitude},
			Radius:       e.Radius,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// parseDuration parses a Go duration string; empty means zero.
func parseDuration(s, section string, index int, field string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s[%d].%s: %w", section, index, field, err)
	}
	return d, nil
}
