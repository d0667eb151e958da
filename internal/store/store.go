// Package store opens the backend selected by STORE_DRIVER.
package store

import (
	"context"
	"fmt"
	"path/filepath"

	"meal-planner/internal/config"
	"meal-planner/internal/database"
	"meal-planner/internal/metrics"
	"meal-planner/internal/mongostore"
	"meal-planner/internal/recipe"
	"meal-planner/internal/tdee"

	"go.uber.org/zap"
)

// Recipes reads and writes recipes.
type Recipes interface {
	Find(ctx context.Context, f recipe.Filter) ([]recipe.Recipe, error)
	Save(ctx context.Context, rec recipe.Recipe) error
}

// TDEEs reads and writes TDEE baselines.
type TDEEs interface {
	FindByUserID(ctx context.Context, userID string) (*tdee.UserTDEE, error)
	Save(ctx context.Context, rec tdee.UserTDEE) error
}

// Backend bundles the repositories of one store driver. Metrics always live
// in the local SQLite database, whichever driver holds recipes.
type Backend struct {
	Recipes Recipes
	TDEEs   TDEEs
	Metrics *metrics.Store
	// DataPath is the local data directory.
	DataPath string

	db    *database.DB
	mongo *mongostore.Client
}

// Open connects the backend described by cfg.
func Open(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*Backend, error) {
	db, err := database.NewDB(cfg.DatabasePath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	b := &Backend{
		Metrics:  metrics.NewStore(db.SQL),
		DataPath: filepath.Dir(cfg.DatabasePath),
		db:       db,
	}

	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			db.Close()
			return nil, err
		}
		b.mongo = client
		b.Recipes = mongostore.NewRecipeRepository(client.DB)
		b.TDEEs = mongostore.NewTDEERepository(client.DB)
		log.Infow("Using mongo store", "database", cfg.MongoDatabase)
	default:
		b.Recipes = recipe.NewRepository(db.SQL)
		b.TDEEs = tdee.NewRepository(db.SQL)
		log.Infow("Using sqlite store", "path", cfg.DatabasePath)
	}
	return b, nil
}

// Ping checks the store holding recipes.
func (b *Backend) Ping(ctx context.Context) error {
	if b.mongo != nil {
		return b.mongo.Ping(ctx)
	}
	return b.db.Ping(ctx)
}

// Close releases every connection.
func (b *Backend) Close(ctx context.Context) error {
	var mongoErr error
	if b.mongo != nil {
		mongoErr = b.mongo.Close(ctx)
	}
	if err := b.db.Close(); err != nil {
		return err
	}
	return mongoErr
}
