package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// LoginLimiter counts failed login attempts per client key within a window.
// The in-memory implementation below is per-instance only; a multi-instance
// deployment needs an implementation backed by a shared store.
type LoginLimiter interface {
	Allow(key string) bool
	Fail(key string)
	Reset(key string)
}

type MemoryLoginLimiter struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	max    int
	window time.Duration
	fails  map[string][]time.Time
}

func NewMemoryLoginLimiter(clock clockwork.Clock, max int, window time.Duration) *MemoryLoginLimiter {
	return &MemoryLoginLimiter{
		clock:  clock,
		max:    max,
		window: window,
		fails:  map[string][]time.Time{},
	}
}

func (l *MemoryLoginLimiter) prune(key string, now time.Time) []time.Time {
	kept := l.fails[key][:0]
	for _, t := range l.fails[key] {
		if now.Sub(t) < l.window {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.fails, key)
		return nil
	}
	l.fails[key] = kept
	return kept
}

func (l *MemoryLoginLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(key, l.clock.Now())) < l.max
}

func (l *MemoryLoginLimiter) Fail(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	l.fails[key] = append(l.prune(key, now), now)
}

func (l *MemoryLoginLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.fails, key)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ── Signup / Login ────────────────────────────────────────────────────────────

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *App) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	var fields []string
	if strings.TrimSpace(req.Name) == "" {
		fields = append(fields, "name required")
	}
	if !strings.Contains(req.Email, "@") {
		fields = append(fields, "valid email required")
	}
	if len(req.Password) < 8 {
		fields = append(fields, "password must be at least 8 characters")
	}
	if len(fields) > 0 {
		writeJSON(w, 400, map[string]any{"error": "validation failed", "fields": fields})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": "hash password"})
		return
	}
	var id string
	err = a.DB.QueryRow(r.Context(), `
    INSERT INTO users (name, email, password_hash)
    VALUES ($1, lower($2), $3) RETURNING id;
  `, strings.TrimSpace(req.Name), req.Email, string(hash)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, 400, map[string]any{"error": "email already registered"})
			return
		}
		writeJSON(w, 500, map[string]any{"error": fmt.Sprintf("insert user: %v", err)})
		return
	}
	writeJSON(w, 201, map[string]any{"ok": true, "id": id})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *App) HandleLogin(w http.ResponseWriter, r *http.Request) {
	key := clientIP(r)
	if !a.Logins.Allow(key) {
		writeJSON(w, 429, map[string]any{"error": "too many failed attempts, try again later"})
		return
	}
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, map[string]any{"error": "invalid json"})
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, 400, map[string]any{"error": "email and password required"})
		return
	}

	var id, hash string
	err := a.DB.QueryRow(r.Context(),
		`SELECT id, password_hash FROM users WHERE email = lower($1);`, req.Email,
	).Scan(&id, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			a.Logins.Fail(key)
			writeJSON(w, 401, map[string]any{"error": "invalid credentials"})
			return
		}
		writeJSON(w, 500, map[string]any{"error": "query user"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		a.Logins.Fail(key)
		writeJSON(w, 401, map[string]any{"error": "invalid credentials"})
		return
	}
	a.Logins.Reset(key)

	token, err := a.issueToken(id)
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": "sign token"})
		return
	}
	writeJSON(w, 200, map[string]any{"token": token})
}

func (a *App) issueToken(userID string) (string, error) {
	now := a.Clock.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(24 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.JWTSecret)
}

func (a *App) parseToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return a.JWTSecret, nil
	}, jwt.WithTimeFunc(a.Clock.Now))
	if err != nil {
		return "", err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token missing subject")
	}
	return sub, nil
}

func (a *App) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeJSON(w, 401, map[string]any{"error": "missing bearer token"})
			return
		}
		sub, err := a.parseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeJSON(w, 401, map[string]any{"error": "invalid token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, sub)))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}
