package planner

import (
	"math"

	"meal-planner/internal/recipe"
)

// DefaultTolerance is the relative calorie window around a meal target.
const DefaultTolerance = 0.15

// WithinTolerance reports whether rec lies within tolerance*target calories of target.
func WithinTolerance(rec recipe.Recipe, target, tolerance float64) bool {
	return math.Abs(rec.Calories-target) <= target*tolerance
}

// BestMatch returns the candidate whose calories are closest to target.
// Ties go to the earliest candidate. ok is false only when candidates is empty.
//
// The tolerance window never rejects a candidate: the closest recipe is
// returned even when it falls outside it.
func BestMatch(candidates []recipe.Recipe, target, tolerance float64) (best recipe.Recipe, ok bool) {
	if len(candidates) == 0 {
		return recipe.Recipe{}, false
	}

	bestIdx := 0
	bestDiff := math.Abs(candidates[0].Calories - target)
	for i := 1; i < len(candidates); i++ {
		if diff := math.Abs(candidates[i].Calories - target); diff < bestDiff {
			bestIdx, bestDiff = i, diff
		}
	}

	best = candidates[bestIdx]
	if WithinTolerance(best, target, tolerance) {
		return best, true
	}
	// TODO: decide whether out-of-window matches should leave the slot empty instead.
	return best, true
}
