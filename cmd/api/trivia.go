package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type TriviaQuestion struct {
	ID       string   `json:"id"`
	TopicID  string   `json:"topic_id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// HandleListTrivia lists the questions of one topic. Topic ownership is
// enforced by the join.
func (a *App) HandleListTrivia(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(topicID); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	rows, err := a.DB.Query(r.Context(), `
    SELECT tq.id, tq.topic_id, tq.question, tq.options, tq.answer
    FROM trivia_questions tq
    JOIN topics t ON t.id = tq.topic_id
    WHERE tq.topic_id = $1 AND t.user_id = $2
    ORDER BY tq.created_at;
  `, topicID, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("list trivia: %v", err)})
		return
	}
	defer rows.Close()
	questions := []TriviaQuestion{}
	for rows.Next() {
		var q TriviaQuestion
		if err := rows.Scan(&q.ID, &q.TopicID, &q.Question, &q.Options, &q.Answer); err != nil {
			writeJSON(w, 500, map[string]any{"error": "scan trivia"})
			return
		}
		questions = append(questions, q)
	}
	writeJSON(w, 200, questions)
}

type TriviaRequest struct {
	TopicID  string   `json:"topic_id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

func (req *TriviaRequest) validate() []string {
	var fields []string
	if _, err := uuid.Parse(req.TopicID); err != nil {
		fields = append(fields, "topic_id must be a valid id")
	}
	if strings.TrimSpace(req.Question) == "" {
		fields = append(fields, "question required")
	}
	if len(req.Options) < 2 {
		fields = append(fields, "at least two options required")
	}
	if req.Answer == "" || !slices.Contains(req.Options, req.Answer) {
		fields = append(fields, "answer must be one of the options")
	}
	return fields
}

func (a *App) HandleCreateTrivia(w http.ResponseWriter, r *http.Request) {
	var req TriviaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		writeJSON(w, 400, map[string]any{"error": "validation failed", "fields": fields})
		return
	}
	var owns bool
	if err := a.DB.QueryRow(r.Context(),
		`SELECT EXISTS(SELECT 1 FROM topics WHERE id = $1 AND user_id = $2);`,
		req.TopicID, userID(r)).Scan(&owns); err != nil || !owns {
		writeJSON(w, 404, map[string]any{"error": "topic not found"})
		return
	}
	var id string
	err := a.DB.QueryRow(r.Context(), `
    INSERT INTO trivia_questions (topic_id, question, options, answer)
    VALUES ($1,$2,$3,$4) RETURNING id;
  `, req.TopicID, strings.TrimSpace(req.Question), req.Options, req.Answer).Scan(&id)
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("insert trivia: %v", err)})
		return
	}
	writeJSON(w, 201, map[string]any{"ok": true, "id": id})
}

func (a *App) HandleUpdateTrivia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	var req TriviaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		writeJSON(w, 400, map[string]any{"error": "validation failed", "fields": fields})
		return
	}
	ct, err := a.DB.Exec(r.Context(), `
    UPDATE trivia_questions tq
    SET question = $1, options = $2, answer = $3
    FROM topics t
    WHERE tq.id = $4 AND tq.topic_id = $5 AND t.id = tq.topic_id AND t.user_id = $6;
  `, strings.TrimSpace(req.Question), req.Options, req.Answer, id, req.TopicID, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("update trivia: %v", err)})
		return
	}
	if ct.RowsAffected() == 0 {
		writeJSON(w, 404, map[string]any{"error": "trivia question not found"})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *App) HandleDeleteTrivia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	ct, err := a.DB.Exec(r.Context(), `
    DELETE FROM trivia_questions tq
    USING topics t
    WHERE tq.id = $1 AND t.id = tq.topic_id AND t.user_id = $2;
  `, id, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("delete trivia: %v", err)})
		return
	}
	if ct.RowsAffected() == 0 {
		writeJSON(w, 404, map[string]any{"error": "trivia question not found"})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}
