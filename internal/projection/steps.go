package projection

import (
	"strconv"

	"github.com/tompaana/sensorcore-explorer/internal/domain"
)

// StepResult is the outcome of projecting a step history.
type StepResult struct {
	Records []domain.DisplayRecord
	// Duplicates counts readings skipped because their counters matched the
	// previously emitted reading. Input left unread after the cap is not counted.
	Duplicates int
}

// Steps projects a chronologically ordered step history.
//
// A reading whose walking/running counts and times all equal those of the last
// emitted reading is skipped, whatever its timestamp. Each emitted reading is
// classified as walking when it has walking steps and as running otherwise,
// and only that category's count and time are shown. At most limit records are
// emitted (DefaultMaxRecords when limit <= 0).
func Steps(readings []domain.StepReading, limit int) StepResult {
	limit = effectiveLimit(limit)

	res := StepResult{Records: make([]domain.DisplayRecord, 0, min(limit, len(readings)))}
	var (
		previous domain.StepReading
		emitted  bool
	)
	for _, r := range readings {
		if len(res.Records) >= limit {
			break
		}
		if emitted && r.SameCounters(previous) {
			res.Duplicates++
			continue
		}
		previous, emitted = r, true
		res.Records = append(res.Records, StepRecord(r))
	}
	return res
}

// StepCategory classifies a reading as walking or running.
func StepCategory(r domain.StepReading) string {
	if r.WalkingStepCount > 0 {
		return domain.CategoryWalking
	}
	return domain.CategoryRunning
}

// StepRecord projects a single step reading without deduplication.
func StepRecord(r domain.StepReading) domain.DisplayRecord {
	category := StepCategory(r)

	count, spent := r.RunningStepCount, r.RunTime
	title := "Running step, "
	if category == domain.CategoryWalking {
		count, spent = r.WalkingStepCount, r.WalkTime
		title = "Walking step, "
	}

	return domain.DisplayRecord{
		Title:    title + FormatTimestamp(r.Timestamp),
		Category: category,
		Fields: []domain.Field{
			{Label: LabelCount, Value: strconv.FormatUint(uint64(count), 10)},
			{Label: LabelTime, Value: FormatDuration(spent)},
		},
	}
}
