package scheduler

import "math"

// Reward shapes the scheduler's learning signal from one review outcome:
//
//	reward = correctness ± 1 + speed bonus [0,1] − difficulty penalty [0,1]
//
// Every term is bounded, so the total always lies in [-2, 2]. That bound is
// an invariant the update path relies on, not an incidental property.
func Reward(correct bool, latencySec float64, difficulty, streak int) float64 {
	correctness := -1.0
	if correct {
		correctness = 1.0
	}
	return correctness + speedBonus(latencySec) - difficultyPenalty(difficulty, streak)
}

// speedBonus rewards faster responses: 1.0 at or under 2s, falling linearly
// to 0 at 10s and beyond. Monotonically non-increasing in latency.
func speedBonus(latencySec float64) float64 {
	if latencySec <= 2.0 {
		return 1.0
	}
	if latencySec >= 10.0 {
		return 0.0
	}
	return (10.0 - latencySec) / 8.0
}

// difficultyPenalty penalizes mismatch between the current difficulty and
// the recent success streak: serving easy items during a long correct
// streak, or hard items during a long incorrect streak, both score the full
// penalty. Bounded to [0,1].
func difficultyPenalty(difficulty, streak int) float64 {
	d := clampInt(difficulty, 1, 3)
	s := clampInt(streak, 0, MaxStreakBin)
	return math.Abs(float64(d-1)/2.0 - float64(s)/float64(MaxStreakBin))
}
