package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"meal-planner/internal/recipe"
	"meal-planner/internal/tdee"

	"github.com/google/uuid"
)

// Subdirectories of a fixture directory.
const (
	recipesDir = "recipes"
	tdeeDir    = "tdee"
)

// RecipeStore reads seed fixtures from a directory laid out as
//
//	<base>/recipes/*.json  arrays of recipes
//	<base>/tdee/*.json     arrays of TDEE records
//
// Either subdirectory may be missing.
type RecipeStore struct {
	basePath string
}

// NewRecipeStore creates a new RecipeStore rooted at basePath.
func NewRecipeStore(basePath string) (*RecipeStore, error) {
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture directory %s: %w", basePath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fixture path %s is not a directory", basePath)
	}
	return &RecipeStore{basePath: basePath}, nil
}

// LoadRecipes reads every recipe fixture. Recipes without an ID get one
// derived from their file and name, so reloading yields the same IDs.
func (s *RecipeStore) LoadRecipes() ([]recipe.Recipe, error) {
	var all []recipe.Recipe
	err := s.each(recipesDir, func(path string, data []byte) error {
		var recs []recipe.Recipe
		if err := json.Unmarshal(data, &recs); err != nil {
			return fmt.Errorf("failed to unmarshal recipes in %s: %w", path, err)
		}
		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return fmt.Errorf("failed to resolve fixture path %s: %w", path, err)
		}
		for i := range recs {
			if recs[i].ID == "" {
				recs[i].ID = fixtureID(filepath.ToSlash(rel), i, recs[i].Name)
			}
			if err := recs[i].Validate(); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		all = append(all, recs...)
		return nil
	})
	return all, err
}

// fixtureID names a recipe by its fixture file and name. Unnamed recipes fall
// back to their position in the file.
func fixtureID(rel string, index int, name string) string {
	key := name
	if key == "" {
		key = "#" + strconv.Itoa(index)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(rel+"/"+key)).String()
}

// LoadTDEE reads every TDEE fixture.
func (s *RecipeStore) LoadTDEE() ([]tdee.UserTDEE, error) {
	var all []tdee.UserTDEE
	err := s.each(tdeeDir, func(path string, data []byte) error {
		var recs []tdee.UserTDEE
		if err := json.Unmarshal(data, &recs); err != nil {
			return fmt.Errorf("failed to unmarshal tdee records in %s: %w", path, err)
		}
		all = append(all, recs...)
		return nil
	})
	return all, err
}

// each calls fn for every JSON file in dir, in lexical order.
func (s *RecipeStore) each(dir string, fn func(path string, data []byte) error) error {
	matches, err := filepath.Glob(filepath.Join(s.basePath, dir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to glob fixture files: %w", err)
	}
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read fixture file: %w", err)
		}
		if err := fn(path, data); err != nil {
			return err
		}
	}
	return nil
}
