package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Appointment struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

func (a *App) HandleListAppointments(w http.ResponseWriter, r *http.Request) {
	rows, err := a.DB.Query(r.Context(), `
    SELECT id, title, appt_date, COALESCE(appt_time,''), COALESCE(location,''), COALESCE(notes,'')
    FROM appointments
    WHERE user_id = $1
    ORDER BY appt_date, appt_time;
  `, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("list appointments: %v", err)})
		return
	}
	defer rows.Close()
	appts := []Appointment{}
	for rows.Next() {
		var ap Appointment
		var apptDate time.Time
		if err := rows.Scan(&ap.ID, &ap.Title, &apptDate, &ap.Time, &ap.Location, &ap.Notes); err != nil {
			writeJSON(w, 500, map[string]any{"error": "scan appointments"})
			return
		}
		ap.Date = apptDate.Format("2006-01-02")
		appts = append(appts, ap)
	}
	writeJSON(w, 200, appts)
}

type AppointmentRequest struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
	// Optional phone for the confirmation message; its failure is soft.
	Phone string `json:"phone"`
}

func (a *App) validateAppointment(req *AppointmentRequest) (time.Time, []string) {
	var fields []string
	if strings.TrimSpace(req.Title) == "" {
		fields = append(fields, "title required")
	}
	apptDate, err := time.ParseInLocation("2006-01-02", req.Date, a.Loc)
	if err != nil {
		fields = append(fields, "date must be YYYY-MM-DD")
	} else {
		now := a.now()
		todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.Loc)
		if apptDate.Before(todayStart) {
			fields = append(fields, "date must not be in the past")
		}
	}
	if req.Phone != "" && !phonePattern.MatchString(req.Phone) {
		fields = append(fields, "phone must be digits with optional leading +")
	}
	return apptDate, fields
}

func (a *App) HandleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	apptDate, fields := a.validateAppointment(&req)
	if len(fields) > 0 {
		writeJSON(w, 400, map[string]any{"error": "validation failed", "fields": fields})
		return
	}
	var id string
	err := a.DB.QueryRow(r.Context(), `
    INSERT INTO appointments (user_id, title, appt_date, appt_time, location, notes)
    VALUES ($1,$2,$3,$4,$5,$6) RETURNING id;
  `, userID(r), strings.TrimSpace(req.Title), apptDate, req.Time, req.Location, req.Notes).Scan(&id)
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("insert appointment: %v", err)})
		return
	}

	// Confirmation SMS is best-effort: the appointment is already created and
	// stays created if the message fails.
	notificationSent := false
	if req.Phone != "" {
		body := fmt.Sprintf("Appointment confirmed: %s on %s %s.", strings.TrimSpace(req.Title), req.Date, req.Time)
		if _, err := a.sendSMS(r.Context(), req.Phone, strings.TrimSpace(body)); err != nil {
			log.Printf("appointment %s: confirmation sms failed: %v", id, err)
		} else {
			notificationSent = true
		}
	}
	writeJSON(w, 201, map[string]any{"ok": true, "id": id, "notification_sent": notificationSent})
}

func (a *App) HandleUpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	var req AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	apptDate, fields := a.validateAppointment(&req)
	if len(fields) > 0 {
		writeJSON(w, 400, map[string]any{"error": "validation failed", "fields": fields})
		return
	}
	ct, err := a.DB.Exec(r.Context(), `
    UPDATE appointments
    SET title = $1, appt_date = $2, appt_time = $3, location = $4, notes = $5
    WHERE id = $6 AND user_id = $7;
  `, strings.TrimSpace(req.Title), apptDate, req.Time, req.Location, req.Notes, id, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("update appointment: %v", err)})
		return
	}
	if ct.RowsAffected() == 0 {
		writeJSON(w, 404, map[string]any{"error": "appointment not found"})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *App) HandleDeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	ct, err := a.DB.Exec(r.Context(),
		`DELETE FROM appointments WHERE id = $1 AND user_id = $2;`, id, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("delete appointment: %v", err)})
		return
	}
	if ct.RowsAffected() == 0 {
		writeJSON(w, 404, map[string]any{"error": "appointment not found"})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}
