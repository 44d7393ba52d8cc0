// Package sm2 implements the SM-2 spaced repetition algorithm used to
// schedule vocabulary and grammar reviews.
package sm2

import "time"

// Quality bounds for a review rating.
const (
	MinQuality = 0
	MaxQuality = 5

	// PassThreshold is the lowest quality counted as a successful recall.
	PassThreshold = 3

	// MinEase is the floor for the ease factor.
	MinEase = 1.3

	// DefaultEase is the starting ease factor for new items.
	DefaultEase = 2.5
)

// State is the scheduling state of a single reviewed item.
type State struct {
	Ease         float64
	Repetitions  int
	IntervalDays int
}

// NewState returns the state for an item that has never been reviewed.
func NewState() State {
	return State{Ease: DefaultEase}
}

// Schedule applies one review with the given quality (0-5) to prev and
// returns the next state.
//
// A failed recall (quality < 3) resets the repetition streak and schedules
// the item for tomorrow; the ease factor is left as is so the growth rate
// recovers once the item is relearned. Successful recalls walk the fixed
// 1-day and 6-day steps, then grow the interval by the ease factor. The
// ease adjustment applies only on the growth step: adjusting it during the
// fixed steps would bake rating noise into the factor before the interval
// ever depends on it.
func Schedule(quality int, prev State) State {
	if quality < MinQuality {
		quality = MinQuality
	}
	if quality > MaxQuality {
		quality = MaxQuality
	}

	next := prev
	if next.Ease == 0 {
		next.Ease = DefaultEase
	}

	if quality < PassThreshold {
		next.Repetitions = 0
		next.IntervalDays = 1
		return next
	}

	next.Repetitions = prev.Repetitions + 1
	switch {
	case next.Repetitions == 1:
		next.IntervalDays = 1
	case next.Repetitions == 2:
		next.IntervalDays = 6
	default:
		next.Ease = adjustEase(next.Ease, quality)
		next.IntervalDays = int(float64(prev.IntervalDays) * next.Ease)
	}
	if next.IntervalDays < 1 {
		next.IntervalDays = 1
	}

	return next
}

// NextReview returns the next review time for a state scheduled at now.
func NextReview(now time.Time, s State) time.Time {
	days := s.IntervalDays
	if days < 1 {
		days = 1
	}
	return now.AddDate(0, 0, days)
}

// adjustEase applies the standard SM-2 ease update and clamps at the floor.
func adjustEase(ease float64, quality int) float64 {
	q := float64(quality)
	ease += 0.1 - (5-q)*(0.08+(5-q)*0.02)
	if ease < MinEase {
		ease = MinEase
	}
	return ease
}
