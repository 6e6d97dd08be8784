package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Photo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	UploadedAt string `json:"uploaded_at"`
}

func (a *App) HandleListPhotos(w http.ResponseWriter, r *http.Request) {
	rows, err := a.DB.Query(r.Context(), `
    SELECT id, COALESCE(title,''), url, uploaded_at
    FROM photos
    WHERE user_id = $1
    ORDER BY uploaded_at DESC;
  `, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("list photos: %v", err)})
		return
	}
	defer rows.Close()
	photos := []Photo{}
	for rows.Next() {
		var p Photo
		var uploadedAt time.Time
		if err := rows.Scan(&p.ID, &p.Title, &p.URL, &uploadedAt); err != nil {
			writeJSON(w, 500, map[string]any{"error": "scan photos"})
			return
		}
		p.UploadedAt = uploadedAt.Format(time.RFC3339)
		photos = append(photos, p)
	}
	writeJSON(w, 200, photos)
}

func (a *App) HandleGetPhoto(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	var p Photo
	var uploadedAt time.Time
	err := a.DB.QueryRow(r.Context(), `
    SELECT id, COALESCE(title,''), url, uploaded_at
    FROM photos
    WHERE id = $1 AND user_id = $2;
  `, id, userID(r)).Scan(&p.ID, &p.Title, &p.URL, &uploadedAt)
	if err != nil {
		writeJSON(w, 404, map[string]any{"error": "photo not found"})
		return
	}
	p.UploadedAt = uploadedAt.Format(time.RFC3339)
	writeJSON(w, 200, p)
}

type UploadPhotoRequest struct {
	Title       string `json:"title"`
	ImageBase64 string `json:"image_base64"`
}

func (a *App) HandleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	var req UploadPhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	if req.ImageBase64 == "" {
		writeJSON(w, 400, map[string]any{"error": "image_base64 required"})
		return
	}
	if _, err := base64.StdEncoding.DecodeString(req.ImageBase64); err != nil {
		writeJSON(w, 400, map[string]any{"error": "image_base64 is not valid base64"})
		return
	}
	if a.Images == nil {
		writeJSON(w, 500, map[string]any{"error": "image host not configured"})
		return
	}
	url, deleteURL, err := a.Images.Upload(r.Context(), req.ImageBase64)
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("upload image: %v", err)})
		return
	}
	var id string
	err = a.DB.QueryRow(r.Context(), `
    INSERT INTO photos (user_id, title, url, delete_url)
    VALUES ($1,$2,$3,$4) RETURNING id;
  `, userID(r), strings.TrimSpace(req.Title), url, deleteURL).Scan(&id)
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("insert photo: %v", err)})
		return
	}
	writeJSON(w, 201, map[string]any{"ok": true, "id": id, "url": url})
}

// HandleDeletePhoto removes the gallery record only; the hosted image stays
// reachable through its delete URL if manual cleanup is ever needed.
func (a *App) HandleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid id"})
		return
	}
	ct, err := a.DB.Exec(r.Context(),
		`DELETE FROM photos WHERE id = $1 AND user_id = $2;`, id, userID(r))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("delete photo: %v", err)})
		return
	}
	if ct.RowsAffected() == 0 {
		writeJSON(w, 404, map[string]any{"error": "photo not found"})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}
