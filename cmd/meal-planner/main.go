package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meal-planner/internal/api"
	"meal-planner/internal/app"
	"meal-planner/internal/auth"
	"meal-planner/internal/config"
	"meal-planner/internal/logger"
	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"
	"meal-planner/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// env is populated before any subcommand runs.
type env struct {
	cfg *config.Config
	log *zap.SugaredLogger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "meal-planner",
		Short:         "TDEE-based meal plan generator",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewFromEnv()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			e.cfg = cfg
			e.log = logger.New(cfg.LogLevel)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
	}

	root.AddCommand(
		newServeCmd(e),
		newSeedCmd(e),
		newGenerateCmd(e),
		newTokenCmd(e),
		newMetricsCleanupCmd(e),
	)
	return root
}

func newServeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.cfg.RequireJWTSecret(); err != nil {
				return err
			}
			ctx := cmd.Context()
			backend, err := store.Open(ctx, e.cfg, e.log)
			if err != nil {
				return err
			}
			defer backend.Close(context.Background())

			mealPlanner := planner.NewPlanner(backend.Recipes, backend.TDEEs)
			handler := api.NewHandler(mealPlanner, backend.Metrics, e.cfg.MaxPlanDays, e.log)
			router := api.NewRouter(api.RouterConfig{
				Handler:   handler,
				Store:     backend,
				JWTSecret: []byte(e.cfg.JWTSecret),
				DataPath:  backend.DataPath,
				Logger:    e.log,
			})
			srv := api.NewServer(e.cfg.Port, router, e.log)

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case sig := <-quit:
				e.log.Infow("Shutting down server", "signal", sig.String())
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), e.cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			e.log.Info("Server exiting")
			return nil
		},
	}
}

func newSeedCmd(e *env) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load recipe and TDEE fixtures into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backend, err := store.Open(ctx, e.cfg, e.log)
			if err != nil {
				return err
			}
			defer backend.Close(context.Background())

			a := app.NewApp(backend.Recipes, backend.TDEEs, nil, e.log, cmd.OutOrStdout())
			res, err := a.Seed(ctx, dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d recipes and %d TDEE records.\n", res.Recipes, res.TDEE)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "fixtures", "fixture directory containing recipes/ and tdee/")
	return cmd
}

func newGenerateCmd(e *env) *cobra.Command {
	var userID, goal, diet string
	var days int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a meal plan and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := recipe.ParseGoal(goal)
			if err != nil {
				return err
			}
			d, err := recipe.ParseDietType(diet)
			if err != nil {
				return err
			}
			if days < 1 || days > e.cfg.MaxPlanDays {
				return fmt.Errorf("days must be between 1 and %d", e.cfg.MaxPlanDays)
			}

			ctx := cmd.Context()
			backend, err := store.Open(ctx, e.cfg, e.log)
			if err != nil {
				return err
			}
			defer backend.Close(context.Background())

			mealPlanner := planner.NewPlanner(backend.Recipes, backend.TDEEs)
			a := app.NewApp(backend.Recipes, backend.TDEEs, mealPlanner, e.log, cmd.OutOrStdout())
			return a.PrintMealPlan(ctx, userID, planner.Request{DietType: d, Goal: g, Days: days})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID whose TDEE is used")
	cmd.Flags().StringVar(&goal, "goal", "", "weight-loss, muscle-gain or maintenance")
	cmd.Flags().StringVar(&diet, "diet", "", "veg or non-veg")
	cmd.Flags().IntVar(&days, "days", planner.DefaultDays, "number of days to plan")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newTokenCmd(e *env) *cobra.Command {
	var userID string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.cfg.RequireJWTSecret(); err != nil {
				return err
			}
			token, err := auth.IssueToken([]byte(e.cfg.JWTSecret), userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID to embed in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newMetricsCleanupCmd(e *env) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "metrics-cleanup",
		Short: "Remove old metric records",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backend, err := store.Open(ctx, e.cfg, e.log)
			if err != nil {
				return err
			}
			defer backend.Close(context.Background())

			affected, err := backend.Metrics.Cleanup(ctx, days)
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully removed %d old metric records.\n", affected)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "keep records for the last N days")
	return cmd
}
