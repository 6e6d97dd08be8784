package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecipes struct {
	byID map[int]*RecipeInformation
	err  error
}

func (f *fakeRecipes) Information(_ context.Context, id int) (*RecipeInformation, error) {
	if f.err != nil {
		return nil, f.err
	}
	info, ok := f.byID[id]
	if !ok {
		return nil, errors.New("recipe not found")
	}
	return info, nil
}

func TestResolveIngredientSource(t *testing.T) {
	t.Run("linked recipe wins", func(t *testing.T) {
		src := resolveIngredientSource(Meal{SpoonacularID: 716429, Ingredients: []string{"stored"}, Category: "pasta"})
		assert.Equal(t, sourceProvider, src.kind)
		assert.Equal(t, 716429, src.providerID)
	})
	t.Run("stored ingredients next", func(t *testing.T) {
		src := resolveIngredientSource(Meal{Ingredients: []string{"rice", "beans"}, Category: "pasta"})
		assert.Equal(t, sourceStored, src.kind)
		assert.Equal(t, []string{"rice", "beans"}, src.stored)
	})
	t.Run("category default last", func(t *testing.T) {
		src := resolveIngredientSource(Meal{Category: "soup"})
		assert.Equal(t, sourceCategoryDefault, src.kind)
		assert.Equal(t, "soup", src.category)
	})
}

func TestIngredientSource_Ingredients(t *testing.T) {
	recipes := &fakeRecipes{byID: map[int]*RecipeInformation{
		716429: {Title: "Pasta", Ingredients: []string{"penne", "garlic", "olive oil"}},
	}}

	t.Run("from provider", func(t *testing.T) {
		got, err := resolveIngredientSource(Meal{SpoonacularID: 716429}).ingredients(context.Background(), recipes)
		require.NoError(t, err)
		assert.Equal(t, []string{"penne", "garlic", "olive oil"}, got)
	})

	t.Run("provider error surfaces", func(t *testing.T) {
		_, err := resolveIngredientSource(Meal{SpoonacularID: 999}).ingredients(context.Background(), recipes)
		assert.Error(t, err)
	})

	t.Run("provider nil with linked recipe", func(t *testing.T) {
		_, err := resolveIngredientSource(Meal{SpoonacularID: 716429}).ingredients(context.Background(), nil)
		assert.Error(t, err)
	})

	t.Run("stored list passes through", func(t *testing.T) {
		got, err := resolveIngredientSource(Meal{Ingredients: []string{"rice"}}).ingredients(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"rice"}, got)
	})

	t.Run("known category default", func(t *testing.T) {
		got, err := resolveIngredientSource(Meal{Category: "Breakfast"}).ingredients(context.Background(), nil)
		require.NoError(t, err)
		assert.Contains(t, got, "eggs")
	})

	t.Run("unknown category falls back to staples", func(t *testing.T) {
		got, err := resolveIngredientSource(Meal{Category: "fusion"}).ingredients(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"staple groceries"}, got)
	})
}

func TestMealPlanRequestValidate(t *testing.T) {
	valid := MealPlanRequest{
		PlanDate: "2025-08-01",
		MealTime: "lunch",
		MealID:   "7b4f3c1e-0c2a-4d8e-9f6b-2a1d3e5c7f90",
	}
	_, fields := valid.validate()
	assert.Empty(t, fields)

	tests := []struct {
		name   string
		mutate func(*MealPlanRequest)
	}{
		{"bad date", func(r *MealPlanRequest) { r.PlanDate = "01/08/2025" }},
		{"bad meal time", func(r *MealPlanRequest) { r.MealTime = "brunch" }},
		{"bad meal id", func(r *MealPlanRequest) { r.MealID = "42" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, fields := req.validate()
			assert.NotEmpty(t, fields)
		})
	}
}
