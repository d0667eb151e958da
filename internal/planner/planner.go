package planner

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"meal-planner/internal/recipe"
	"meal-planner/internal/tdee"
)

const (
	// DefaultDays is the plan length used when a request does not set one.
	DefaultDays = 7
	// RotationThreshold is the group size above which recently used recipes
	// are skipped for a meal type.
	RotationThreshold = 3
)

var (
	// ErrTDEENotFound is returned when the user has no TDEE baseline yet.
	ErrTDEENotFound = errors.New("tdee not found")
	// ErrNoRecipes is returned when the recipe filter matches nothing.
	ErrNoRecipes = errors.New("no recipes match filter")
)

// RecipeSource queries stored recipes.
type RecipeSource interface {
	Find(ctx context.Context, f recipe.Filter) ([]recipe.Recipe, error)
}

// TDEESource looks up a user's TDEE record. A nil record with a nil error
// means the user has none.
type TDEESource interface {
	FindByUserID(ctx context.Context, userID string) (*tdee.UserTDEE, error)
}

// Request holds the user-selectable planning options.
type Request struct {
	DietType recipe.DietType
	Goal     recipe.Goal
	Days     int
}

// Meals holds the recipe chosen for each slot of a day. Empty slots stay nil.
type Meals struct {
	Breakfast *recipe.Recipe `json:"breakfast,omitempty"`
	Lunch     *recipe.Recipe `json:"lunch,omitempty"`
	Dinner    *recipe.Recipe `json:"dinner,omitempty"`
	Snack     *recipe.Recipe `json:"snack,omitempty"`
}

// Get returns the recipe in the slot for mt.
func (m *Meals) Get(mt recipe.MealType) *recipe.Recipe {
	if slot := m.slot(mt); slot != nil {
		return *slot
	}
	return nil
}

// Set places rec in the slot for mt.
func (m *Meals) Set(mt recipe.MealType, rec recipe.Recipe) {
	if slot := m.slot(mt); slot != nil {
		*slot = &rec
	}
}

func (m *Meals) slot(mt recipe.MealType) **recipe.Recipe {
	switch mt {
	case recipe.Breakfast:
		return &m.Breakfast
	case recipe.Lunch:
		return &m.Lunch
	case recipe.Dinner:
		return &m.Dinner
	case recipe.Snack:
		return &m.Snack
	}
	return nil
}

// Totals sums the nutrients of the filled slots.
func (m *Meals) Totals() Totals {
	var cal, protein, carbs, fats float64
	for _, mt := range recipe.MealTypes {
		rec := m.Get(mt)
		if rec == nil {
			continue
		}
		cal += rec.Calories
		protein += rec.Protein
		carbs += rec.Carbs
		fats += rec.Fats
	}
	return Totals{
		TotalCalories: int(round(cal)),
		TotalProtein:  int(round(protein)),
		TotalCarbs:    int(round(carbs)),
		TotalFats:     int(round(fats)),
	}
}

// Totals is the nutrient sum of a single day.
type Totals struct {
	TotalCalories int `json:"totalCalories"`
	TotalProtein  int `json:"totalProtein"`
	TotalCarbs    int `json:"totalCarbs"`
	TotalFats     int `json:"totalFats"`
}

// DayPlan is the selection for one day of the plan. Day is 1-based.
type DayPlan struct {
	Day            int     `json:"day"`
	Meals          Meals   `json:"meals"`
	TargetCalories float64 `json:"targetCalories"`
	Totals         Totals  `json:"totals"`
}

// AverageTotals are the per-day totals averaged over the plan.
type AverageTotals struct {
	AvgCalories int `json:"avgCalories"`
	AvgProtein  int `json:"avgProtein"`
	AvgCarbs    int `json:"avgCarbs"`
	AvgFats     int `json:"avgFats"`
}

// Summary describes the plan as a whole.
type Summary struct {
	BaseTDEE           float64         `json:"baseTDEE"`
	TargetCalories     float64         `json:"targetCalories"`
	Goal               recipe.Goal     `json:"goal,omitempty"`
	DietType           recipe.DietType `json:"dietType,omitempty"`
	Days               int             `json:"days"`
	AverageDailyTotals AverageTotals   `json:"averageDailyTotals"`
}

// MealPlan is a generated multi-day plan. It is never persisted.
type MealPlan struct {
	Days        []DayPlan `json:"mealPlan"`
	Summary     Summary   `json:"summary"`
	RecipeCount int       `json:"-"`
}

// Planner generates meal plans from stored recipes and TDEE baselines.
type Planner struct {
	recipes RecipeSource
	tdees   TDEESource
}

// NewPlanner creates a new Planner instance.
func NewPlanner(recipes RecipeSource, tdees TDEESource) *Planner {
	return &Planner{
		recipes: recipes,
		tdees:   tdees,
	}
}

// Generate builds a plan for userID. It returns ErrTDEENotFound or
// ErrNoRecipes for the two expected failures; any other error comes from the
// stores.
func (p *Planner) Generate(ctx context.Context, userID string, req Request) (*MealPlan, error) {
	days := req.Days
	if days <= 0 {
		days = DefaultDays
	}

	baseline, err := p.tdees.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tdee: %w", err)
	}
	if baseline == nil {
		return nil, ErrTDEENotFound
	}

	target := TargetCalories(baseline.CalculatedTDEE, req.Goal)
	mealTargets := SplitMeals(target)

	recipes, err := p.recipes.Find(ctx, recipe.Filter{DietType: req.DietType, Goal: req.Goal})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recipes: %w", err)
	}
	if len(recipes) == 0 {
		return nil, ErrNoRecipes
	}

	plan := Assemble(recipes, mealTargets, target, days)
	return &MealPlan{
		Days: plan,
		Summary: Summary{
			BaseTDEE:           baseline.CalculatedTDEE,
			TargetCalories:     target,
			Goal:               req.Goal,
			DietType:           req.DietType,
			Days:               days,
			AverageDailyTotals: Average(plan),
		},
		RecipeCount: len(recipes),
	}, nil
}

// Assemble picks one recipe per meal slot per day.
//
// For a meal type with more than RotationThreshold recipes, the recipes used
// since the last reset are skipped; once all of them have been used the
// rotation for that meal type starts over. Smaller groups may repeat freely.
func Assemble(recipes []recipe.Recipe, targets MealTargets, target float64, days int) []DayPlan {
	grouped := groupByMealType(recipes)
	used := make(map[recipe.MealType][]string, len(recipe.MealTypes))

	plan := make([]DayPlan, 0, days)
	for day := 0; day < days; day++ {
		dp := DayPlan{Day: day + 1, TargetCalories: target}

		for _, mt := range recipe.MealTypes {
			group := grouped[mt]
			if len(group) == 0 {
				continue
			}

			available := group
			if len(group) > RotationThreshold {
				available = excluding(group, used[mt])
				if len(available) == 0 {
					available = group
					used[mt] = nil
				}
			}

			selected, ok := BestMatch(available, targets.For(mt), DefaultTolerance)
			if !ok {
				continue
			}
			dp.Meals.Set(mt, selected)
			used[mt] = append(used[mt], selected.ID)
		}

		dp.Totals = dp.Meals.Totals()
		plan = append(plan, dp)
	}
	return plan
}

// Average returns the mean of each daily total, zero for an empty plan.
func Average(plan []DayPlan) AverageTotals {
	if len(plan) == 0 {
		return AverageTotals{}
	}
	var cal, protein, carbs, fats int
	for _, dp := range plan {
		cal += dp.Totals.TotalCalories
		protein += dp.Totals.TotalProtein
		carbs += dp.Totals.TotalCarbs
		fats += dp.Totals.TotalFats
	}
	n := float64(len(plan))
	return AverageTotals{
		AvgCalories: int(round(float64(cal) / n)),
		AvgProtein:  int(round(float64(protein) / n)),
		AvgCarbs:    int(round(float64(carbs) / n)),
		AvgFats:     int(round(float64(fats) / n)),
	}
}

func groupByMealType(recipes []recipe.Recipe) map[recipe.MealType][]recipe.Recipe {
	grouped := make(map[recipe.MealType][]recipe.Recipe, len(recipe.MealTypes))
	for _, rec := range recipes {
		grouped[rec.MealType] = append(grouped[rec.MealType], rec)
	}
	return grouped
}

func excluding(group []recipe.Recipe, ids []string) []recipe.Recipe {
	out := make([]recipe.Recipe, 0, len(group))
	for _, rec := range group {
		if !slices.Contains(ids, rec.ID) {
			out = append(out, rec)
		}
	}
	return out
}
