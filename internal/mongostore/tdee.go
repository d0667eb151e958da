package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meal-planner/internal/tdee"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TDEECollection is the collection TDEE documents live in.
const TDEECollection = "usertdees"

// TDEERepository reads and writes per-user TDEE documents.
type TDEERepository struct {
	coll *mongo.Collection
}

// NewTDEERepository creates a TDEERepository on db.
func NewTDEERepository(db *mongo.Database) *TDEERepository {
	return &TDEERepository{coll: db.Collection(TDEECollection)}
}

// FindByUserID returns the user's record, or nil when there is none.
// Records written by other services may key the user by ObjectId, so a hex
// user ID matches either form.
func (r *TDEERepository) FindByUserID(ctx context.Context, userID string) (*tdee.UserTDEE, error) {
	var doc struct {
		UserID         any       `bson:"userId"`
		CalculatedTDEE float64   `bson:"calculatedTDEE"`
		UpdatedAt      time.Time `bson:"updatedAt"`
	}
	err := r.coll.FindOne(ctx, userFilter(userID)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tdee for user %s: %w", userID, err)
	}
	return &tdee.UserTDEE{
		UserID:         userID,
		CalculatedTDEE: doc.CalculatedTDEE,
		UpdatedAt:      doc.UpdatedAt,
	}, nil
}

// Save upserts the record for rec.UserID.
func (r *TDEERepository) Save(ctx context.Context, rec tdee.UserTDEE) error {
	if rec.UserID == "" {
		return fmt.Errorf("tdee record has no user id")
	}
	if rec.CalculatedTDEE <= 0 {
		return fmt.Errorf("tdee for user %s must be positive, got %v", rec.UserID, rec.CalculatedTDEE)
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"userId": rec.UserID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save tdee for user %s: %w", rec.UserID, err)
	}
	return nil
}

func userFilter(userID string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(userID); err == nil {
		return bson.M{"userId": bson.M{"$in": bson.A{oid, userID}}}
	}
	return bson.M{"userId": userID}
}
