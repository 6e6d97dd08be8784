package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Topic struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Notes string `json:"notes"`
}

func (a *App) HandleListTopics(w http.ResponseWriter, r *http.Request) {
	rows, err := a.DB.Query(r.Context(), `
    SELECT id, title, COALESCE(notes,'')
    FROM topics
    WHERE user_id = $1
    ORDER BY title;
  `, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("list topics: %v", err)})
		return
	}
	defer rows.Close()
	topics := []Topic{}
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.Title, &t.Notes); err != nil {
			writeJSON(w, 500, map[string]any{"error": "scan topics"})
			return
		}
		topics = append(topics, t)
	}
	writeJSON(w, 200, topics)
}

type TopicRequest struct {
	Title string `json:"title"`
	Notes string `json:"notes"`
}

func (a *App) HandleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req TopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeJSON(w, 400, map[string]any{"error": "title required"})
		return
	}
	var id string
	err := a.DB.QueryRow(r.Context(), `
    INSERT INTO topics (user_id, title, notes) VALUES ($1,$2,$3) RETURNING id;
  `, userID(r), strings.TrimSpace(req.Title), req.Notes).Scan(&id)
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("insert topic: %v", err)})
		return
	}
	writeJSON(w, 201, map[string]any{"ok": true, "id": id})
}

func (a *App) HandleUpdateTopic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	var req TopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeJSON(w, 400, map[string]any{"error": "title required"})
		return
	}
	ct, err := a.DB.Exec(r.Context(), `
    UPDATE topics SET title = $1, notes = $2 WHERE id = $3 AND user_id = $4;
  `, strings.TrimSpace(req.Title), req.Notes, id, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("update topic: %v", err)})
		return
	}
	if ct.RowsAffected() == 0 {
		writeJSON(w, 404, map[string]any{"error": "topic not found"})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *App) HandleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	ct, err := a.DB.Exec(r.Context(),
		`DELETE FROM topics WHERE id = $1 AND user_id = $2;`, id, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("delete topic: %v", err)})
		return
	}
	if ct.RowsAffected() == 0 {
		writeJSON(w, 404, map[string]any{"error": "topic not found"})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}
