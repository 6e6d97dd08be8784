package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

func (a *App) HandleListBirthdays(w http.ResponseWriter, r *http.Request) {
	records, err := a.listBirthdays(r.Context(), userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("list birthdays: %v", err)})
		return
	}
	writeJSON(w, 200, records)
}

func (a *App) listBirthdays(ctx context.Context, owner string) ([]BirthdayRecord, error) {
	rows, err := a.DB.Query(ctx, `
    SELECT id, first_name, COALESCE(last_name,''), birth_date,
           COALESCE(relationship,''), COALESCE(notes,''), COALESCE(phone,'')
    FROM birthdays
    WHERE user_id = $1
    ORDER BY first_name, last_name;
  `, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []BirthdayRecord{}
	for rows.Next() {
		var rec BirthdayRecord
		if err := rows.Scan(&rec.ID, &rec.FirstName, &rec.LastName, &rec.BirthDate,
			&rec.Relationship, &rec.Notes, &rec.Phone); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// listBirthdaysWithPhone feeds the daily sweep: every stored birthday across
// all users that has a phone number to message.
func (a *App) listBirthdaysWithPhone(ctx context.Context) ([]BirthdayRecord, error) {
	rows, err := a.DB.Query(ctx, `
    SELECT id, first_name, COALESCE(last_name,''), birth_date, phone
    FROM birthdays
    WHERE phone IS NOT NULL AND phone <> '';
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []BirthdayRecord{}
	for rows.Next() {
		var rec BirthdayRecord
		if err := rows.Scan(&rec.ID, &rec.FirstName, &rec.LastName, &rec.BirthDate, &rec.Phone); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (a *App) HandleBirthdayDashboard(w http.ResponseWriter, r *http.Request) {
	records, err := a.listBirthdays(r.Context(), userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("dashboard query: %v", err)})
		return
	}
	writeJSON(w, 200, classifyBirthdays(a.now(), records))
}

type BirthdayRequest struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	BirthDate    string `json:"birth_date"`
	Relationship string `json:"relationship"`
	Notes        string `json:"notes"`
	Phone        string `json:"phone"`
}

func (req *BirthdayRequest) validate() (time.Time, []string) {
	var fields []string
	if strings.TrimSpace(req.FirstName) == "" {
		fields = append(fields, "first_name required")
	}
	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		fields = append(fields, "birth_date must be YYYY-MM-DD")
	}
	if req.Phone != "" && !phonePattern.MatchString(req.Phone) {
		fields = append(fields, "phone must be digits with optional leading +")
	}
	return birthDate, fields
}

func (a *App) HandleCreateBirthday(w http.ResponseWriter, r *http.Request) {
	var req BirthdayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	birthDate, fields := req.validate()
	if len(fields) > 0 {
		writeJSON(w, 400, map[string]any{"error": "validation failed", "fields": fields})
		return
	}
	var id string
	err := a.DB.QueryRow(r.Context(), `
    INSERT INTO birthdays (user_id, first_name, last_name, birth_date, relationship, notes, phone)
    VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id;
  `, userID(r), strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName),
		birthDate, req.Relationship, req.Notes, req.Phone).Scan(&id)
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("insert birthday: %v", err)})
		return
	}
	writeJSON(w, 201, map[string]any{"ok": true, "id": id})
}

func (a *App) HandleUpdateBirthday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	var req BirthdayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	birthDate, fields := req.validate()
	if len(fields) > 0 {
		writeJSON(w, 400, map[string]any{"error": "validation failed", "fields": fields})
		return
	}
	ct, err := a.DB.Exec(r.Context(), `
    UPDATE birthdays
    SET first_name = $1, last_name = $2, birth_date = $3,
        relationship = $4, notes = $5, phone = $6
    WHERE id = $7 AND user_id = $8;
  `, strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName), birthDate,
		req.Relationship, req.Notes, req.Phone, id, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("update birthday: %v", err)})
		return
	}
	if ct.RowsAffected() == 0 {
		writeJSON(w, 404, map[string]any{"error": "birthday not found"})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *App) HandleDeleteBirthday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	ct, err := a.DB.Exec(r.Context(),
		`DELETE FROM birthdays WHERE id = $1 AND user_id = $2;`, id, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("delete birthday: %v", err)})
		return
	}
	if ct.RowsAffected() == 0 {
		writeJSON(w, 404, map[string]any{"error": "birthday not found"})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

type SendBirthdaySMSRequest struct {
	ToPhone   string `json:"to_phone"`
	Name      string `json:"name"`
	DaysUntil int    `json:"days_until"`
}

func (a *App) HandleSendBirthdaySMS(w http.ResponseWriter, r *http.Request) {
	var req SendBirthdaySMSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	var fields []string
	if !phonePattern.MatchString(req.ToPhone) {
		fields = append(fields, "to_phone must be digits with optional leading +")
	}
	if strings.TrimSpace(req.Name) == "" {
		fields = append(fields, "name required")
	}
	if len(fields) > 0 {
		writeJSON(w, 400, map[string]any{"error": "validation failed", "fields": fields})
		return
	}
	sid, err := a.sendSMS(r.Context(), req.ToPhone, birthdayMessage(req.Name, req.DaysUntil))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("send sms: %v", err)})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "message_id": sid})
}

func (a *App) sendSMS(ctx context.Context, to, body string) (string, error) {
	if a.SMS == nil {
		return "", fmt.Errorf("sms provider not configured")
	}
	return a.SMS.Send(ctx, to, body)
}
