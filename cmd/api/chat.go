package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ChatRequest struct {
	Message string     `json:"message"`
	History []ChatTurn `json:"history"`
}

// HandleChat proxies a single conversational turn to the generative-text
// provider. One attempt, no retries.
func (a *App) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, 400, map[string]any{"error": "message required"})
		return
	}
	if a.AI == nil {
		writeJSON(w, 500, map[string]any{"error": "chat provider not configured"})
		return
	}
	reply, err := a.AI.Generate(r.Context(), req.Message, req.History)
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("generate reply: %v", err)})
		return
	}
	writeJSON(w, 200, map[string]any{"reply": reply})
}
