package mongostore

import (
	"context"
	"fmt"

	"meal-planner/internal/recipe"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RecipesCollection is the collection recipe documents live in.
const RecipesCollection = "recipes"

// RecipeRepository reads and writes recipe documents.
type RecipeRepository struct {
	coll *mongo.Collection
}

// NewRecipeRepository creates a RecipeRepository on db.
func NewRecipeRepository(db *mongo.Database) *RecipeRepository {
	return &RecipeRepository{coll: db.Collection(RecipesCollection)}
}

// Find returns every recipe matching the filter in natural order.
func (r *RecipeRepository) Find(ctx context.Context, f recipe.Filter) ([]recipe.Recipe, error) {
	cur, err := r.coll.Find(ctx, filterDoc(f))
	if err != nil {
		return nil, fmt.Errorf("failed to query recipes: %w", err)
	}

	var recipes []recipe.Recipe
	if err := cur.All(ctx, &recipes); err != nil {
		return nil, fmt.Errorf("failed to decode recipes: %w", err)
	}
	return recipes, nil
}

// Save inserts or replaces the recipe document with rec.ID.
func (r *RecipeRepository) Save(ctx context.Context, rec recipe.Recipe) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save recipe %s: %w", rec.ID, err)
	}
	return nil
}

func filterDoc(f recipe.Filter) bson.M {
	doc := bson.M{}
	if f.DietType != "" {
		doc["dietType"] = string(f.DietType)
	}
	if f.Goal != "" {
		doc["goal"] = string(f.Goal)
	}
	return doc
}
