package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GenerationMetric records metadata for a single plan generation.
type GenerationMetric struct {
	UserID      string
	Goal        string
	DietType    string
	Days        int
	RecipeCount int
	LatencyMS   int64
	Timestamp   time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m GenerationMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generation_metrics (user_id, goal, diet_type, days, recipe_count, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.UserID, m.Goal, m.DietType, m.Days, m.RecipeCount, m.LatencyMS, ts.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record generation metric: %w", err)
	}
	return nil
}

// DailyUsage represents generation totals for a single day.
type DailyUsage struct {
	Date             string
	TotalGenerations int
	TotalDays        int
	AvgLatencyMS     int64
}

// GetDailyUsage retrieves usage for the last N days, most recent first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx, `
		SELECT days, latency_ms, timestamp FROM generation_metrics
		WHERE timestamp >= ? ORDER BY timestamp DESC`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var (
		results []DailyUsage
		latency int64
	)
	for rows.Next() {
		var planDays int
		var latencyMS, ts int64
		if err := rows.Scan(&planDays, &latencyMS, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan metric row: %w", err)
		}

		date := time.UnixMilli(ts).UTC().Format("2006-01-02")
		if len(results) == 0 || results[len(results)-1].Date != date {
			closeDay(results, latency)
			results = append(results, DailyUsage{Date: date})
			latency = 0
		}
		u := &results[len(results)-1]
		u.TotalGenerations++
		u.TotalDays += planDays
		latency += latencyMS
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metric rows: %w", err)
	}
	closeDay(results, latency)
	return results, nil
}

func closeDay(results []DailyUsage, latency int64) {
	if len(results) == 0 {
		return
	}
	u := &results[len(results)-1]
	u.AvgLatencyMS = latency / int64(u.TotalGenerations)
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	res, err := s.db.ExecContext(ctx, `DELETE FROM generation_metrics WHERE timestamp < ?`, threshold.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up metrics: %w", err)
	}
	return res.RowsAffected()
}
