package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFixture(t *testing.T, base, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(base, dir), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRecipeStore(t *testing.T) {
	tempDir := t.TempDir()

	writeFixture(t, tempDir, "recipes", "a.json", `[
		{"_id": "oats", "name": "Oats", "mealType": "breakfast", "dietType": "veg", "calories": 350},
		{"name": "Paneer Wrap", "mealType": "lunch", "dietType": "veg", "goal": "muscle-gain", "calories": 650, "protein": 30}
	]`)
	writeFixture(t, tempDir, "recipes", "b.json", `[
		{"_id": "chicken", "name": "Chicken", "mealType": "dinner", "dietType": "non-veg", "calories": 600}
	]`)
	writeFixture(t, tempDir, "recipes", "notes.txt", `ignored`)
	writeFixture(t, tempDir, "tdee", "users.json", `[{"userId": "u1", "calculatedTDEE": 2200}]`)

	store, err := NewRecipeStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create RecipeStore: %v", err)
	}

	t.Run("LoadRecipes", func(t *testing.T) {
		recs, err := store.LoadRecipes()
		if err != nil {
			t.Fatalf("LoadRecipes failed: %v", err)
		}
		if len(recs) != 3 {
			t.Fatalf("Expected 3 recipes, got %d", len(recs))
		}
		if recs[0].ID != "oats" || recs[2].ID != "chicken" {
			t.Errorf("Expected files in lexical order, got %s..%s", recs[0].ID, recs[2].ID)
		}
		if len(recs[1].ID) != 36 {
			t.Errorf("Expected generated UUID for recipe without id, got %q", recs[1].ID)
		}
		if recs[1].Protein != 30 {
			t.Errorf("Expected protein 30, got %v", recs[1].Protein)
		}
	})

	t.Run("StableGeneratedIDs", func(t *testing.T) {
		first, err := store.LoadRecipes()
		if err != nil {
			t.Fatal(err)
		}
		second, err := store.LoadRecipes()
		if err != nil {
			t.Fatal(err)
		}
		if first[1].ID != second[1].ID {
			t.Errorf("Expected generated ID to be stable across loads, got %s and %s", first[1].ID, second[1].ID)
		}

		// The ID depends on the path inside the fixture directory, not its location.
		moved := t.TempDir()
		for _, name := range []string{"a.json", "b.json"} {
			data, err := os.ReadFile(filepath.Join(tempDir, "recipes", name))
			if err != nil {
				t.Fatal(err)
			}
			writeFixture(t, moved, "recipes", name, string(data))
		}
		other, _ := NewRecipeStore(moved)
		third, err := other.LoadRecipes()
		if err != nil {
			t.Fatal(err)
		}
		if third[1].ID != first[1].ID {
			t.Errorf("Expected same ID from a copied fixture directory, got %s and %s", third[1].ID, first[1].ID)
		}
	})

	t.Run("DistinctGeneratedIDs", func(t *testing.T) {
		dir := t.TempDir()
		writeFixture(t, dir, "recipes", "snacks.json", `[
			{"name": "Nuts", "mealType": "snack", "dietType": "veg", "calories": 150},
			{"name": "Fruit", "mealType": "snack", "dietType": "veg", "calories": 90},
			{"mealType": "snack", "dietType": "veg", "calories": 50},
			{"mealType": "snack", "dietType": "veg", "calories": 60}
		]`)
		s, _ := NewRecipeStore(dir)
		recs, err := s.LoadRecipes()
		if err != nil {
			t.Fatal(err)
		}
		seen := map[string]bool{}
		for _, rec := range recs {
			if seen[rec.ID] {
				t.Errorf("Duplicate generated ID %s", rec.ID)
			}
			seen[rec.ID] = true
		}
	})

	t.Run("LoadTDEE", func(t *testing.T) {
		recs, err := store.LoadTDEE()
		if err != nil {
			t.Fatalf("LoadTDEE failed: %v", err)
		}
		if len(recs) != 1 || recs[0].UserID != "u1" || recs[0].CalculatedTDEE != 2200 {
			t.Errorf("Unexpected TDEE records: %+v", recs)
		}
	})

	t.Run("InvalidRecipe", func(t *testing.T) {
		bad := t.TempDir()
		writeFixture(t, bad, "recipes", "bad.json", `[{"_id": "x", "mealType": "brunch", "dietType": "veg"}]`)
		s, _ := NewRecipeStore(bad)
		_, err := s.LoadRecipes()
		if err == nil || !strings.Contains(err.Error(), "brunch") {
			t.Errorf("Expected meal type validation error, got %v", err)
		}
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		bad := t.TempDir()
		writeFixture(t, bad, "tdee", "bad.json", `{`)
		s, _ := NewRecipeStore(bad)
		if _, err := s.LoadTDEE(); err == nil {
			t.Error("Expected unmarshal error")
		}
	})

	t.Run("MissingSubdirectories", func(t *testing.T) {
		s, _ := NewRecipeStore(t.TempDir())
		recs, err := s.LoadRecipes()
		if err != nil || len(recs) != 0 {
			t.Errorf("Expected no recipes and no error, got %d, %v", len(recs), err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := NewRecipeStore(filepath.Join(tempDir, "missing")); err == nil {
			t.Fatal("Expected an error for missing directory, got nil")
		}
	})
}
