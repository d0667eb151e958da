package app

import (
	"context"
	"fmt"
	"io"

	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"
	"meal-planner/internal/storage"
	"meal-planner/internal/tdee"

	"go.uber.org/zap"
)

// RecipeSaver persists recipes into the configured store.
type RecipeSaver interface {
	Save(ctx context.Context, rec recipe.Recipe) error
}

// TDEESaver persists TDEE baselines into the configured store.
type TDEESaver interface {
	Save(ctx context.Context, rec tdee.UserTDEE) error
}

// Generator produces meal plans.
type Generator interface {
	Generate(ctx context.Context, userID string, req planner.Request) (*planner.MealPlan, error)
}

// SeedResult counts what Seed wrote.
type SeedResult struct {
	Recipes int
	TDEE    int
}

// App holds the application's dependencies for the CLI commands.
type App struct {
	recipes RecipeSaver
	tdees   TDEESaver
	planner Generator
	log     *zap.SugaredLogger
	out     io.Writer
}

// NewApp creates and initializes a new App instance.
func NewApp(recipes RecipeSaver, tdees TDEESaver, gen Generator, log *zap.SugaredLogger, out io.Writer) *App {
	return &App{
		recipes: recipes,
		tdees:   tdees,
		planner: gen,
		log:     log,
		out:     out,
	}
}

// Seed loads the fixtures under dir and saves them into the store.
// Loading is all-or-nothing; a save failure stops the run.
func (a *App) Seed(ctx context.Context, dir string) (SeedResult, error) {
	var res SeedResult

	store, err := storage.NewRecipeStore(dir)
	if err != nil {
		return res, err
	}
	recipes, err := store.LoadRecipes()
	if err != nil {
		return res, fmt.Errorf("failed to load recipe fixtures: %w", err)
	}
	baselines, err := store.LoadTDEE()
	if err != nil {
		return res, fmt.Errorf("failed to load tdee fixtures: %w", err)
	}
	a.log.Infow("Loaded fixtures", "dir", dir, "recipes", len(recipes), "tdee", len(baselines))

	for _, rec := range recipes {
		if err := a.recipes.Save(ctx, rec); err != nil {
			return res, fmt.Errorf("failed to save recipe %s: %w", rec.ID, err)
		}
		res.Recipes++
	}
	for _, b := range baselines {
		if err := a.tdees.Save(ctx, b); err != nil {
			return res, fmt.Errorf("failed to save tdee for user %s: %w", b.UserID, err)
		}
		res.TDEE++
	}

	a.log.Infow("Seeding complete", "recipes", res.Recipes, "tdee", res.TDEE)
	return res, nil
}

// PrintMealPlan generates a plan for userID and writes it as text.
func (a *App) PrintMealPlan(ctx context.Context, userID string, req planner.Request) error {
	plan, err := a.planner.Generate(ctx, userID, req)
	if err != nil {
		return fmt.Errorf("failed to generate plan: %w", err)
	}

	s := plan.Summary
	fmt.Fprintf(a.out, "=== MEAL PLAN (%d days) ===\n", s.Days)
	fmt.Fprintf(a.out, "TDEE: %.0f kcal  Target: %.0f kcal", s.BaseTDEE, s.TargetCalories)
	if s.Goal != "" {
		fmt.Fprintf(a.out, "  Goal: %s", s.Goal)
	}
	if s.DietType != "" {
		fmt.Fprintf(a.out, "  Diet: %s", s.DietType)
	}
	fmt.Fprintln(a.out)

	for _, dp := range plan.Days {
		fmt.Fprintf(a.out, "\nDay %d\n", dp.Day)
		for _, mt := range recipe.MealTypes {
			rec := dp.Meals.Get(mt)
			if rec == nil {
				fmt.Fprintf(a.out, "  %-10s -\n", mt)
				continue
			}
			fmt.Fprintf(a.out, "  %-10s %s (%.0f kcal)\n", mt, rec.Name, rec.Calories)
		}
		t := dp.Totals
		fmt.Fprintf(a.out, "  Totals: %d kcal, P %dg, C %dg, F %dg\n", t.TotalCalories, t.TotalProtein, t.TotalCarbs, t.TotalFats)
	}

	avg := s.AverageDailyTotals
	fmt.Fprintf(a.out, "\nDaily average: %d kcal, P %dg, C %dg, F %dg\n", avg.AvgCalories, avg.AvgProtein, avg.AvgCarbs, avg.AvgFats)
	return nil
}
