package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Caretaker is the designated contact notified during an SOS event.
// One row per user.
type Caretaker struct {
	UserID       string `json:"user_id"`
	TelegramName string `json:"telegram_name"`
	ChatID       int64  `json:"chat_id"`
}

func (a *App) HandleGetCaretaker(w http.ResponseWriter, r *http.Request) {
	var c Caretaker
	err := a.DB.QueryRow(r.Context(), `
    SELECT user_id, telegram_name, chat_id
    FROM caretakers
    WHERE user_id = $1;
  `, userID(r)).Scan(&c.UserID, &c.TelegramName, &c.ChatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, 404, map[string]any{"error": "caretaker not found"})
			return
		}
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("query caretaker: %v", err)})
		return
	}
	writeJSON(w, 200, c)
}

type CaretakerRequest struct {
	TelegramName string `json:"telegram_name"`
	ChatID       int64  `json:"chat_id"`
}

func (req *CaretakerRequest) validate() []string {
	var fields []string
	if strings.TrimSpace(req.TelegramName) == "" {
		fields = append(fields, "telegram_name required")
	}
	if req.ChatID == 0 {
		fields = append(fields, "chat_id required")
	}
	return fields
}

func (a *App) HandleCreateCaretaker(w http.ResponseWriter, r *http.Request) {
	var req CaretakerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		writeJSON(w, 400, map[string]any{"error": "validation failed", "fields": fields})
		return
	}
	_, err := a.DB.Exec(r.Context(), `
    INSERT INTO caretakers (user_id, telegram_name, chat_id)
    VALUES ($1,$2,$3);
  `, userID(r), strings.TrimSpace(req.TelegramName), req.ChatID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, 400, map[string]any{"error": "caretaker already set, use update"})
			return
		}
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("insert caretaker: %v", err)})
		return
	}
	writeJSON(w, 201, map[string]any{"ok": true})
}

func (a *App) HandleUpdateCaretaker(w http.ResponseWriter, r *http.Request) {
	var req CaretakerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		writeJSON(w, 400, map[string]any{"error": "validation failed", "fields": fields})
		return
	}
	ct, err := a.DB.Exec(r.Context(), `
    UPDATE caretakers SET telegram_name = $1, chat_id = $2 WHERE user_id = $3;
  `, strings.TrimSpace(req.TelegramName), req.ChatID, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("update caretaker: %v", err)})
		return
	}
	if ct.RowsAffected() == 0 {
		writeJSON(w, 404, map[string]any{"error": "caretaker not found"})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *App) HandleDeleteCaretaker(w http.ResponseWriter, r *http.Request) {
	ct, err := a.DB.Exec(r.Context(), `DELETE FROM caretakers WHERE user_id = $1;`, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("delete caretaker: %v", err)})
		return
	}
	if ct.RowsAffected() == 0 {
		writeJSON(w, 404, map[string]any{"error": "caretaker not found"})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

// ── SOS flow ──────────────────────────────────────────────────────────────────

type ConvertAddressRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (a *App) HandleConvertAddress(w http.ResponseWriter, r *http.Request) {
	var req ConvertAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		writeJSON(w, 400, map[string]any{"error": "latitude/longitude out of range"})
		return
	}
	if a.Geo == nil {
		writeJSON(w, 500, map[string]any{"error": "geocoding provider not configured"})
		return
	}
	address, err := a.Geo.ReverseGeocode(r.Context(), req.Latitude, req.Longitude)
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("reverse geocode: %v", err)})
		return
	}
	writeJSON(w, 200, map[string]any{"address": address})
}

type CaretakerMessageRequest struct {
	ChatID  int64  `json:"chat_id"`
	Address string `json:"address"`
	Name    string `json:"name"`
}

func sosAlertText(name, address string) string {
	if name == "" {
		name = "Your care recipient"
	}
	return fmt.Sprintf("SOS ALERT: %s needs help!\nLast known location: %s\nPlease check on them immediately.", name, address)
}

func (a *App) HandleSendCaretakerMessage(w http.ResponseWriter, r *http.Request) {
	var req CaretakerMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	if req.ChatID == 0 || req.Address == "" {
		writeJSON(w, 400, map[string]any{"error": "chat_id and address required"})
		return
	}
	if a.Bot == nil {
		writeJSON(w, 500, map[string]any{"success": false, "error": "bot provider not configured"})
		return
	}
	if err := a.Bot.Send(req.ChatID, sosAlertText(req.Name, req.Address)); err != nil {
		writeJSON(w, 500, map[string]any{"success": false, "error": fmt.Sprintf("send alert: %v", err)})
		return
	}
	writeJSON(w, 200, map[string]any{"success": true})
}
