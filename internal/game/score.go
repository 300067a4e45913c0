package game

import (
	"math"

	"trivia-room-service/internal/domain"
)

// Score maps a submission to the points it earns. Incorrect answers always
// score zero. For correct answers, elapsed is clamped into [0, timeLimit]
// and the ratio r = elapsed/timeLimit drives a decay multiplier:
//
//	linear:      1 - 0.5*r        (full points instantly, half at the buzzer)
//	exponential: e^(-0.7*r)       (~0.497 at the buzzer, steeper early drop)
//
// The result is math.Round(maxPoints * multiplier), i.e. half rounds away
// from zero, so scores are reproducible across runs.
func Score(isCorrect bool, elapsed, timeLimit float64, maxPoints int, decay domain.DecayMode) int {
	if !isCorrect {
		return 0
	}
	if timeLimit <= 0 {
		return 0
	}

	clamped := math.Min(math.Max(elapsed, 0), timeLimit)
	ratio := clamped / timeLimit

	var multiplier float64
	if decay == domain.DecayExponential {
		multiplier = math.Exp(-0.7 * ratio)
	} else {
		multiplier = 1 - 0.5*ratio
	}

	return int(math.Round(float64(maxPoints) * multiplier))
}
