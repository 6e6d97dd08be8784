package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type GroceryItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Category string  `json:"category"`
	Bought   bool    `json:"bought"`
}

func (a *App) HandleListGrocery(w http.ResponseWriter, r *http.Request) {
	rows, err := a.DB.Query(r.Context(), `
    SELECT id, name, quantity, COALESCE(unit,''), COALESCE(category,''), bought
    FROM grocery_items
    WHERE user_id = $1
    ORDER BY bought, name;
  `, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("list grocery: %v", err)})
		return
	}
	defer rows.Close()
	items := []GroceryItem{}
	for rows.Next() {
		var it GroceryItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Quantity, &it.Unit, &it.Category, &it.Bought); err != nil {
			writeJSON(w, 500, map[string]any{"error": "scan grocery"})
			return
		}
		items = append(items, it)
	}
	writeJSON(w, 200, items)
}

type GroceryItemRequest struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Category string  `json:"category"`
	Bought   bool    `json:"bought"`
}

func (req *GroceryItemRequest) validate() []string {
	var fields []string
	if strings.TrimSpace(req.Name) == "" {
		fields = append(fields, "name required")
	}
	if req.Quantity < 0 {
		fields = append(fields, "quantity must not be negative")
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	return fields
}

func (a *App) HandleCreateGroceryItem(w http.ResponseWriter, r *http.Request) {
	var req GroceryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		writeJSON(w, 400, map[string]any{"error": "validation failed", "fields": fields})
		return
	}
	var id string
	err := a.DB.QueryRow(r.Context(), `
    INSERT INTO grocery_items (user_id, name, quantity, unit, category, bought)
    VALUES ($1,$2,$3,$4,$5,$6) RETURNING id;
  `, userID(r), strings.TrimSpace(req.Name), req.Quantity, req.Unit, req.Category, req.Bought).Scan(&id)
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("insert grocery item: %v", err)})
		return
	}
	writeJSON(w, 201, map[string]any{"ok": true, "id": id})
}

func (a *App) HandleUpdateGroceryItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	var req GroceryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		writeJSON(w, 400, map[string]any{"error": "validation failed", "fields": fields})
		return
	}
	ct, err := a.DB.Exec(r.Context(), `
    UPDATE grocery_items
    SET name = $1, quantity = $2, unit = $3, category = $4, bought = $5
    WHERE id = $6 AND user_id = $7;
  `, strings.TrimSpace(req.Name), req.Quantity, req.Unit, req.Category, req.Bought, id, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("update grocery item: %v", err)})
		return
	}
	if ct.RowsAffected() == 0 {
		writeJSON(w, 404, map[string]any{"error": "grocery item not found"})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *App) HandleDeleteGroceryItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	ct, err := a.DB.Exec(r.Context(),
		`DELETE FROM grocery_items WHERE id = $1 AND user_id = $2;`, id, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("delete grocery item: %v", err)})
		return
	}
	if ct.RowsAffected() == 0 {
		writeJSON(w, 404, map[string]any{"error": "grocery item not found"})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}
