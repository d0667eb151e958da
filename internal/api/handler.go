package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"meal-planner/internal/auth"
	"meal-planner/internal/metrics"
	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"

	"go.uber.org/zap"
)

// Messages returned for the two expected not-found conditions.
const (
	MsgTDEENotFound = "TDEE data not found. Please calculate your TDEE first."
	MsgNoRecipes    = "No recipes found matching your preferences. Please try different filters."
)

// Generator produces meal plans.
type Generator interface {
	Generate(ctx context.Context, userID string, req planner.Request) (*planner.MealPlan, error)
}

// MetricsRecorder persists generation metrics.
type MetricsRecorder interface {
	Record(ctx context.Context, m metrics.GenerationMetric) error
}

// generateRequest is the body of POST /generate. Every field is optional.
// Diet type and goal are used as filters verbatim; values no recipe carries
// end in a 404.
type generateRequest struct {
	DietType recipe.DietType `json:"dietType"`
	Goal     recipe.Goal     `json:"goal"`
	Days     *int            `json:"days"`
}

// Handler serves the meal plan endpoints.
type Handler struct {
	planner     Generator
	metrics     MetricsRecorder
	maxPlanDays int
	log         *zap.SugaredLogger
}

// NewHandler creates a Handler. rec may be nil to skip metrics.
func NewHandler(gen Generator, rec MetricsRecorder, maxPlanDays int, log *zap.SugaredLogger) *Handler {
	return &Handler{
		planner:     gen,
		metrics:     rec,
		maxPlanDays: maxPlanDays,
		log:         log,
	}
}

// Generate handles POST /generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	req, err := h.decodeRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	start := time.Now()
	plan, err := h.planner.Generate(r.Context(), userID, req)
	switch {
	case errors.Is(err, planner.ErrTDEENotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": MsgTDEENotFound})
		return
	case errors.Is(err, planner.ErrNoRecipes):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": MsgNoRecipes})
		return
	case err != nil:
		h.log.Errorw("generate meal plan error", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
		return
	}

	h.recordMetric(r.Context(), userID, req, plan, time.Since(start))
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) decodeRequest(r *http.Request) (planner.Request, error) {
	var body generateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return planner.Request{}, fmt.Errorf("invalid request body: %w", err)
	}

	days := planner.DefaultDays
	if body.Days != nil {
		days = *body.Days
		if days < 1 || days > h.maxPlanDays {
			return planner.Request{}, fmt.Errorf("days must be between 1 and %d", h.maxPlanDays)
		}
	}

	return planner.Request{DietType: body.DietType, Goal: body.Goal, Days: days}, nil
}

func (h *Handler) recordMetric(ctx context.Context, userID string, req planner.Request, plan *planner.MealPlan, latency time.Duration) {
	if h.metrics == nil {
		return
	}
	err := h.metrics.Record(ctx, metrics.GenerationMetric{
		UserID:      userID,
		Goal:        string(req.Goal),
		DietType:    string(req.DietType),
		Days:        len(plan.Days),
		RecipeCount: plan.RecipeCount,
		LatencyMS:   latency.Milliseconds(),
	})
	if err != nil {
		h.log.Warnw("failed to record generation metric", "user_id", userID, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
