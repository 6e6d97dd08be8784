package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Meal struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	SpoonacularID int      `json:"spoonacular_id,omitempty"`
	Ingredients   []string `json:"ingredients"`
}

var mealTimes = map[string]bool{"breakfast": true, "lunch": true, "dinner": true}

func (a *App) HandleListMeals(w http.ResponseWriter, r *http.Request) {
	rows, err := a.DB.Query(r.Context(), `
    SELECT id, name, COALESCE(category,''), COALESCE(spoonacular_id,0), COALESCE(ingredients,'{}')
    FROM meals
    WHERE user_id = $1
    ORDER BY name;
  `, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("list meals: %v", err)})
		return
	}
	defer rows.Close()
	meals := []Meal{}
	for rows.Next() {
		var m Meal
		if err := rows.Scan(&m.ID, &m.Name, &m.Category, &m.SpoonacularID, &m.Ingredients); err != nil {
			writeJSON(w, 500, map[string]any{"error": "scan meals"})
			return
		}
		meals = append(meals, m)
	}
	writeJSON(w, 200, meals)
}

func (a *App) getMeal(ctx context.Context, owner, id string) (*Meal, error) {
	var m Meal
	err := a.DB.QueryRow(ctx, `
    SELECT id, name, COALESCE(category,''), COALESCE(spoonacular_id,0), COALESCE(ingredients,'{}')
    FROM meals
    WHERE id = $1 AND user_id = $2;
  `, id, owner).Scan(&m.ID, &m.Name, &m.Category, &m.SpoonacularID, &m.Ingredients)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (a *App) HandleGetMeal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	m, err := a.getMeal(r.Context(), userID(r), id)
	if err != nil {
		writeJSON(w, 404, map[string]any{"error": "meal not found"})
		return
	}
	writeJSON(w, 200, m)
}

type MealRequest struct {
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	SpoonacularID int      `json:"spoonacular_id"`
	Ingredients   []string `json:"ingredients"`
}

func (a *App) HandleCreateMeal(w http.ResponseWriter, r *http.Request) {
	var req MealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, 400, map[string]any{"error": "name required"})
		return
	}
	var id string
	err := a.DB.QueryRow(r.Context(), `
    INSERT INTO meals (user_id, name, category, spoonacular_id, ingredients)
    VALUES ($1,$2,$3,NULLIF($4,0),$5) RETURNING id;
  `, userID(r), strings.TrimSpace(req.Name), req.Category, req.SpoonacularID, req.Ingredients).Scan(&id)
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("insert meal: %v", err)})
		return
	}
	writeJSON(w, 201, map[string]any{"ok": true, "id": id})
}

func (a *App) HandleUpdateMeal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	var req MealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, 400, map[string]any{"error": "name required"})
		return
	}
	ct, err := a.DB.Exec(r.Context(), `
    UPDATE meals
    SET name = $1, category = $2, spoonacular_id = NULLIF($3,0), ingredients = $4
    WHERE id = $5 AND user_id = $6;
  `, strings.TrimSpace(req.Name), req.Category, req.SpoonacularID, req.Ingredients, id, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("update meal: %v", err)})
		return
	}
	if ct.RowsAffected() == 0 {
		writeJSON(w, 404, map[string]any{"error": "meal not found"})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *App) HandleDeleteMeal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	ct, err := a.DB.Exec(r.Context(),
		`DELETE FROM meals WHERE id = $1 AND user_id = $2;`, id, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("delete meal: %v", err)})
		return
	}
	if ct.RowsAffected() == 0 {
		writeJSON(w, 404, map[string]any{"error": "meal not found"})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *App) HandleGetMealRecipe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	m, err := a.getMeal(r.Context(), userID(r), id)
	if err != nil {
		writeJSON(w, 404, map[string]any{"error": "meal not found"})
		return
	}
	if m.SpoonacularID == 0 {
		writeJSON(w, 400, map[string]any{"error": "meal has no linked recipe"})
		return
	}
	if a.Recipes == nil {
		writeJSON(w, 500, map[string]any{"error": "recipe provider not configured"})
		return
	}
	info, err := a.Recipes.Information(r.Context(), m.SpoonacularID)
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("fetch recipe: %v", err)})
		return
	}
	writeJSON(w, 200, info)
}

// ── Ingredient source resolution ──────────────────────────────────────────────

type sourceKind int

const (
	sourceProvider sourceKind = iota
	sourceStored
	sourceCategoryDefault
)

// ingredientSource is resolved once per meal: a linked provider recipe wins,
// then stored ingredients, then the category fallback.
type ingredientSource struct {
	kind       sourceKind
	providerID int
	stored     []string
	category   string
}

func resolveIngredientSource(m Meal) ingredientSource {
	switch {
	case m.SpoonacularID != 0:
		return ingredientSource{kind: sourceProvider, providerID: m.SpoonacularID}
	case len(m.Ingredients) > 0:
		return ingredientSource{kind: sourceStored, stored: m.Ingredients}
	default:
		return ingredientSource{kind: sourceCategoryDefault, category: m.Category}
	}
}

var categoryDefaults = map[string][]string{
	"breakfast": {"eggs", "bread", "butter", "milk"},
	"soup":      {"broth", "carrots", "celery", "onion"},
	"salad":     {"lettuce", "tomatoes", "cucumber", "dressing"},
	"pasta":     {"pasta", "tomato sauce", "parmesan"},
}

func (s ingredientSource) ingredients(ctx context.Context, recipes RecipeProvider) ([]string, error) {
	switch s.kind {
	case sourceProvider:
		if recipes == nil {
			return nil, fmt.Errorf("recipe provider not configured")
		}
		info, err := recipes.Information(ctx, s.providerID)
		if err != nil {
			return nil, err
		}
		return info.Ingredients, nil
	case sourceStored:
		return s.stored, nil
	default:
		if defaults, ok := categoryDefaults[strings.ToLower(s.category)]; ok {
			return defaults, nil
		}
		return []string{"staple groceries"}, nil
	}
}

// ── Grocery generation ────────────────────────────────────────────────────────

type GenerateGroceryRequest struct {
	MealIDs []string `json:"meal_ids"`
}

// HandleGenerateGrocery builds grocery items from the selected meals. One bad
// meal never aborts the rest; the response reports aggregate counts.
func (a *App) HandleGenerateGrocery(w http.ResponseWriter, r *http.Request) {
	var req GenerateGroceryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	if len(req.MealIDs) == 0 {
		writeJSON(w, 400, map[string]any{"error": "meal_ids required"})
		return
	}
	ctx := r.Context()
	owner := userID(r)
	added, failed := 0, 0
	for _, mealID := range req.MealIDs {
		m, err := a.getMeal(ctx, owner, mealID)
		if err != nil {
			failed++
			continue
		}
		names, err := resolveIngredientSource(*m).ingredients(ctx, a.Recipes)
		if err != nil {
			failed++
			continue
		}
		for _, name := range names {
			_, err := a.DB.Exec(ctx, `
        INSERT INTO grocery_items (user_id, name, quantity, unit, category, bought)
        VALUES ($1,$2,1,'',$3,false);
      `, owner, name, m.Category)
			if err != nil {
				failed++
				continue
			}
			added++
		}
	}
	writeJSON(w, 200, map[string]any{"ok": true, "added": added, "failed": failed})
}

// ── Meal plans ────────────────────────────────────────────────────────────────

type MealPlan struct {
	ID       string `json:"id"`
	PlanDate string `json:"plan_date"`
	MealTime string `json:"meal_time"`
	MealID   string `json:"meal_id"`
	MealName string `json:"meal_name"`
}

func (a *App) HandleListMealPlans(w http.ResponseWriter, r *http.Request) {
	rows, err := a.DB.Query(r.Context(), `
    SELECT mp.id, mp.plan_date, mp.meal_time, mp.meal_id, m.name
    FROM meal_plans mp
    JOIN meals m ON m.id = mp.meal_id
    WHERE mp.user_id = $1
    ORDER BY mp.plan_date, mp.meal_time;
  `, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("list meal plans: %v", err)})
		return
	}
	defer rows.Close()
	plans := []MealPlan{}
	for rows.Next() {
		var p MealPlan
		var planDate time.Time
		if err := rows.Scan(&p.ID, &planDate, &p.MealTime, &p.MealID, &p.MealName); err != nil {
			writeJSON(w, 500, map[string]any{"error": "scan meal plans"})
			return
		}
		p.PlanDate = planDate.Format("2006-01-02")
		plans = append(plans, p)
	}
	writeJSON(w, 200, plans)
}

type MealPlanRequest struct {
	PlanDate string `json:"plan_date"`
	MealTime string `json:"meal_time"`
	MealID   string `json:"meal_id"`
}

func (req *MealPlanRequest) validate() (time.Time, []string) {
	var fields []string
	planDate, err := time.Parse("2006-01-02", req.PlanDate)
	if err != nil {
		fields = append(fields, "plan_date must be YYYY-MM-DD")
	}
	if !mealTimes[req.MealTime] {
		fields = append(fields, "meal_time must be breakfast, lunch or dinner")
	}
	if _, err := uuid.Parse(req.MealID); err != nil {
		fields = append(fields, "meal_id must be a valid id")
	}
	return planDate, fields
}

func (a *App) HandleCreateMealPlan(w http.ResponseWriter, r *http.Request) {
	var req MealPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	planDate, fields := req.validate()
	if len(fields) > 0 {
		writeJSON(w, 400, map[string]any{"error": "validation failed", "fields": fields})
		return
	}
	// The meal must belong to the caller.
	if _, err := a.getMeal(r.Context(), userID(r), req.MealID); err != nil {
		writeJSON(w, 404, map[string]any{"error": "meal not found"})
		return
	}
	var id string
	err := a.DB.QueryRow(r.Context(), `
    INSERT INTO meal_plans (user_id, plan_date, meal_time, meal_id)
    VALUES ($1,$2,$3,$4) RETURNING id;
  `, userID(r), planDate, req.MealTime, req.MealID).Scan(&id)
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("insert meal plan: %v", err)})
		return
	}
	writeJSON(w, 201, map[string]any{"ok": true, "id": id})
}

func (a *App) HandleUpdateMealPlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	var req MealPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	planDate, fields := req.validate()
	if len(fields) > 0 {
		writeJSON(w, 400, map[string]any{"error": "validation failed", "fields": fields})
		return
	}
	ct, err := a.DB.Exec(r.Context(), `
    UPDATE meal_plans
    SET plan_date = $1, meal_time = $2, meal_id = $3
    WHERE id = $4 AND user_id = $5;
  `, planDate, req.MealTime, req.MealID, id, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("update meal plan: %v", err)})
		return
	}
	if ct.RowsAffected() == 0 {
		writeJSON(w, 404, map[string]any{"error": "meal plan not found"})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *App) HandleDeleteMealPlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	ct, err := a.DB.Exec(r.Context(),
		`DELETE FROM meal_plans WHERE id = $1 AND user_id = $2;`, id, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("delete meal plan: %v", err)})
		return
	}
	if ct.RowsAffected() == 0 {
		writeJSON(w, 404, map[string]any{"error": "meal plan not found"})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}
