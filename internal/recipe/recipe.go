package recipe

import "fmt"

// MealType is the slot of the day a recipe is meant for.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

// MealTypes lists every meal slot in the order they are served during a day.
var MealTypes = [...]MealType{Breakfast, Lunch, Dinner, Snack}

// DietType distinguishes vegetarian from non-vegetarian recipes.
type DietType string

const (
	Veg    DietType = "veg"
	NonVeg DietType = "non-veg"
)

// Goal is the fitness goal a recipe (or a plan) is tailored to.
type Goal string

const (
	MuscleGain  Goal = "muscle-gain"
	WeightLoss  Goal = "weight-loss"
	Maintenance Goal = "maintenance"
)

// Recipe is a stored recipe with its macro-nutrient profile.
type Recipe struct {
	ID       string   `json:"_id" bson:"_id"`
	Name     string   `json:"name" bson:"name"`
	MealType MealType `json:"mealType" bson:"mealType"`
	DietType DietType `json:"dietType" bson:"dietType"`
	Goal     Goal     `json:"goal,omitempty" bson:"goal,omitempty"`
	Calories float64  `json:"calories" bson:"calories"`
	Protein  float64  `json:"protein" bson:"protein"`
	Carbs    float64  `json:"carbs" bson:"carbs"`
	Fats     float64  `json:"fats" bson:"fats"`
}

// Filter narrows a recipe query. Empty fields do not constrain the result.
type Filter struct {
	DietType DietType
	Goal     Goal
}

// Matches reports whether rec satisfies the filter.
func (f Filter) Matches(rec Recipe) bool {
	if f.DietType != "" && rec.DietType != f.DietType {
		return false
	}
	if f.Goal != "" && rec.Goal != f.Goal {
		return false
	}
	return true
}

// ParseMealType validates a meal type string.
func ParseMealType(s string) (MealType, error) {
	for _, mt := range MealTypes {
		if string(mt) == s {
			return mt, nil
		}
	}
	return "", fmt.Errorf("unknown meal type %q", s)
}

// ParseDietType validates a diet type string. The empty string is accepted as "any".
func ParseDietType(s string) (DietType, error) {
	switch DietType(s) {
	case "", Veg, NonVeg:
		return DietType(s), nil
	}
	return "", fmt.Errorf("unknown diet type %q", s)
}

// ParseGoal validates a goal string. The empty string is accepted as "unset".
func ParseGoal(s string) (Goal, error) {
	switch Goal(s) {
	case "", MuscleGain, WeightLoss, Maintenance:
		return Goal(s), nil
	}
	return "", fmt.Errorf("unknown goal %q", s)
}

// Validate checks that the recipe can be stored and planned with.
func (r Recipe) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("recipe id is empty")
	}
	if _, err := ParseMealType(string(r.MealType)); err != nil {
		return fmt.Errorf("recipe %s: %w", r.ID, err)
	}
	if _, err := ParseDietType(string(r.DietType)); err != nil {
		return fmt.Errorf("recipe %s: %w", r.ID, err)
	}
	if _, err := ParseGoal(string(r.Goal)); err != nil {
		return fmt.Errorf("recipe %s: %w", r.ID, err)
	}
	if r.Calories < 0 || r.Protein < 0 || r.Carbs < 0 || r.Fats < 0 {
		return fmt.Errorf("recipe %s: negative nutrient value", r.ID)
	}
	return nil
}
