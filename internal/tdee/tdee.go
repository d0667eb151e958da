package tdee

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UserTDEE is the energy expenditure baseline computed for a user elsewhere.
type UserTDEE struct {
	UserID         string    `json:"userId" bson:"userId"`
	CalculatedTDEE float64   `json:"calculatedTDEE" bson:"calculatedTDEE"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Repository is a database-backed repository for TDEE records, one per user.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save inserts or replaces the record for rec.UserID.
func (r *Repository) Save(ctx context.Context, rec UserTDEE) error {
	if rec.UserID == "" {
		return fmt.Errorf("tdee record has no user id")
	}
	if rec.CalculatedTDEE <= 0 {
		return fmt.Errorf("tdee for user %s must be positive, got %v", rec.UserID, rec.CalculatedTDEE)
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_tdee (user_id, calculated_tdee, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			calculated_tdee = excluded.calculated_tdee,
			updated_at = excluded.updated_at`,
		rec.UserID, rec.CalculatedTDEE, updatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save tdee for user %s: %w", rec.UserID, err)
	}
	return nil
}

// FindByUserID returns the user's record, or nil when none has been computed yet.
func (r *Repository) FindByUserID(ctx context.Context, userID string) (*UserTDEE, error) {
	var (
		rec       = UserTDEE{UserID: userID}
		updatedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT calculated_tdee, updated_at FROM user_tdee WHERE user_id = ?`, userID,
	).Scan(&rec.CalculatedTDEE, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tdee for user %s: %w", userID, err)
	}
	rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &rec, nil
}
