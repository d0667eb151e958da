package planner

import (
	"math"

	"meal-planner/internal/recipe"
)

const (
	weightLossDeficit = 500
	muscleGainSurplus = 300
)

// Share of the daily target assigned to each meal slot.
const (
	breakfastShare = 0.30
	lunchShare     = 0.35
	dinnerShare    = 0.30
	snackShare     = 0.05
)

// MealTargets holds the calorie target of each meal slot.
type MealTargets struct {
	Breakfast float64 `json:"breakfast"`
	Lunch     float64 `json:"lunch"`
	Dinner    float64 `json:"dinner"`
	Snack     float64 `json:"snack"`
}

// For returns the target for a meal type, zero for unknown types.
func (t MealTargets) For(mt recipe.MealType) float64 {
	switch mt {
	case recipe.Breakfast:
		return t.Breakfast
	case recipe.Lunch:
		return t.Lunch
	case recipe.Dinner:
		return t.Dinner
	case recipe.Snack:
		return t.Snack
	}
	return 0
}

// TargetCalories adjusts the TDEE baseline for the goal.
// Maintenance and unset goals return the baseline untouched.
func TargetCalories(tdee float64, goal recipe.Goal) float64 {
	switch goal {
	case recipe.WeightLoss:
		return round(tdee - weightLossDeficit)
	case recipe.MuscleGain:
		return round(tdee + muscleGainSurplus)
	}
	return tdee
}

// SplitMeals divides the daily target across meal slots. Each slot is rounded
// on its own, so the slots may not add up exactly to target.
func SplitMeals(target float64) MealTargets {
	return MealTargets{
		Breakfast: round(target * breakfastShare),
		Lunch:     round(target * lunchShare),
		Dinner:    round(target * dinnerShare),
		Snack:     round(target * snackShare),
	}
}

// round rounds to the nearest integer with halves going up, also for negatives.
func round(x float64) float64 {
	return math.Floor(x + 0.5)
}
