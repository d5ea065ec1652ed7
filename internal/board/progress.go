package board

import (
	"math"
	"time"
)

// Status is the operator-facing bucket a slot falls into.
type Status string

const (
	StatusFree        Status = "free"
	StatusRoasting    Status = "roasting"
	StatusAlmostReady Status = "almost_ready"
	StatusReady       Status = "ready"
)

// AlmostReadyPercent is the progress at which a roasting slot is flagged as almost ready.
const AlmostReadyPercent = 80.0

// Progress describes how far a cook has advanced at a given instant.
type Progress struct {
	ElapsedMinutes   int     `json:"elapsedMinutes"`
	RemainingMinutes int     `json:"remainingMinutes"`
	Percent          float64 `json:"percent"`
}

// ComputeProgress derives the progress of a cook that started at startedAt
// and is planned to take estimatedMinutes. Only whole elapsed minutes count.
func ComputeProgress(startedAt time.Time, estimatedMinutes int, now time.Time) Progress {
	// Duration division truncates toward zero.
	elapsed := int(now.Sub(startedAt) / time.Minute)
	if elapsed < 0 {
		elapsed = 0
	}

	remaining := estimatedMinutes - elapsed
	if remaining < 0 {
		remaining = 0
	}

	percent := 100.0
	if estimatedMinutes > 0 {
		percent = math.Min(100, float64(elapsed)/float64(estimatedMinutes)*100)
	}

	return Progress{
		ElapsedMinutes:   elapsed,
		RemainingMinutes: remaining,
		Percent:          percent,
	}
}

// Classify maps occupancy and progress to a status.
func Classify(occupied bool, percent float64) Status {
	switch {
	case !occupied:
		return StatusFree
	case percent >= 100:
		return StatusReady
	case percent >= AlmostReadyPercent:
		return StatusAlmostReady
	default:
		return StatusRoasting
	}
}
