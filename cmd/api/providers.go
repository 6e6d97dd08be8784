package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Each outbound integration sits behind a one- or two-method interface so
// handlers and the sweep can be tested against fakes. One attempt per call,
// no retries.

type SMSSender interface {
	Send(ctx context.Context, to, body string) (sid string, err error)
}

type BotSender interface {
	Send(chatID int64, text string) error
}

type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (address string, err error)
}

type RecipeInformation struct {
	Title          string   `json:"title"`
	Image          string   `json:"image"`
	ReadyInMinutes int      `json:"ready_in_minutes"`
	Servings       int      `json:"servings"`
	Instructions   string   `json:"instructions"`
	Ingredients    []string `json:"ingredients"`
}

type RecipeProvider interface {
	Information(ctx context.Context, id int) (*RecipeInformation, error)
}

type ImageHost interface {
	Upload(ctx context.Context, imageBase64 string) (url, deleteURL string, err error)
}

type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type ChatProvider interface {
	Generate(ctx context.Context, message string, history []ChatTurn) (string, error)
}

// ── Twilio ────────────────────────────────────────────────────────────────────

type TwilioClient struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	client     *http.Client
}

func NewTwilioClient(accountSID, authToken, fromNumber string) *TwilioClient {
	return &TwilioClient{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    "https://api.twilio.com/2010-04-01",
		client:     &http.Client{},
	}
}

func (t *TwilioClient) Send(ctx context.Context, to, body string) (string, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.fromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("twilio response: %w", err)
	}
	var out struct {
		SID     string `json:"sid"`
		Message string `json:"message"`
		Code    int    `json:"code"`
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Error bodies are usually JSON, but a proxy can hand back HTML.
		if json.Unmarshal(raw, &out) == nil && out.Message != "" {
			return "", fmt.Errorf("twilio error %d: %s", out.Code, out.Message)
		}
		return "", fmt.Errorf("twilio error: status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("twilio response: %w", err)
	}
	return out.SID, nil
}

// ── Telegram ──────────────────────────────────────────────────────────────────

type TelegramSender struct {
	Bot *tgbotapi.BotAPI
}

func (t *TelegramSender) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := t.Bot.Send(msg)
	return err
}

// ── OpenCage ──────────────────────────────────────────────────────────────────

type OpenCageClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewOpenCageClient(apiKey string) *OpenCageClient {
	return &OpenCageClient{
		apiKey:  apiKey,
		baseURL: "https://api.opencagedata.com/geocode/v1/json",
		client:  &http.Client{},
	}
}

func (o *OpenCageClient) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	endpoint := fmt.Sprintf("%s?q=%f+%f&key=%s&no_annotations=1&limit=1",
		o.baseURL, lat, lng, url.QueryEscape(o.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Results []struct {
			Formatted string `json:"formatted"`
		} `json:"results"`
		Status struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("geocode response: %w", err)
	}
	if out.Status.Code != 200 {
		return "", fmt.Errorf("geocode error %d: %s", out.Status.Code, out.Status.Message)
	}
	if len(out.Results) == 0 || out.Results[0].Formatted == "" {
		return "", fmt.Errorf("no address found for %f,%f", lat, lng)
	}
	return out.Results[0].Formatted, nil
}

// ── Spoonacular ───────────────────────────────────────────────────────────────

type SpoonacularClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewSpoonacularClient(apiKey string) *SpoonacularClient {
	return &SpoonacularClient{
		apiKey:  apiKey,
		baseURL: "https://api.spoonacular.com",
		client:  &http.Client{},
	}
}

func (s *SpoonacularClient) Information(ctx context.Context, id int) (*RecipeInformation, error) {
	endpoint := fmt.Sprintf("%s/recipes/%d/information?apiKey=%s", s.baseURL, id, url.QueryEscape(s.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spoonacular request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("spoonacular error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var out struct {
		Title               string `json:"title"`
		Image               string `json:"image"`
		ReadyInMinutes      int    `json:"readyInMinutes"`
		Servings            int    `json:"servings"`
		Instructions        string `json:"instructions"`
		ExtendedIngredients []struct {
			Original string `json:"original"`
		} `json:"extendedIngredients"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("spoonacular response: %w", err)
	}
	info := &RecipeInformation{
		Title:          out.Title,
		Image:          out.Image,
		ReadyInMinutes: out.ReadyInMinutes,
		Servings:       out.Servings,
		Instructions:   out.Instructions,
	}
	for _, ing := range out.ExtendedIngredients {
		if ing.Original != "" {
			info.Ingredients = append(info.Ingredients, ing.Original)
		}
	}
	return info, nil
}

// ── imgbb ─────────────────────────────────────────────────────────────────────

type ImgbbClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewImgbbClient(apiKey string) *ImgbbClient {
	return &ImgbbClient{
		apiKey:  apiKey,
		baseURL: "https://api.imgbb.com/1/upload",
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (i *ImgbbClient) Upload(ctx context.Context, imageBase64 string) (string, string, error) {
	form := url.Values{}
	form.Set("image", imageBase64)

	endpoint := fmt.Sprintf("%s?key=%s", i.baseURL, url.QueryEscape(i.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := i.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("imgbb request: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Success bool `json:"success"`
		Data    struct {
			URL       string `json:"url"`
			DeleteURL string `json:"delete_url"`
		} `json:"data"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("imgbb response: %w", err)
	}
	if !out.Success || out.Data.URL == "" {
		msg := out.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", "", fmt.Errorf("imgbb upload failed: %s", msg)
	}
	return out.Data.URL, out.Data.DeleteURL, nil
}

// ── Gemini ────────────────────────────────────────────────────────────────────

type GeminiClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		baseURL: "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent",
		client:  &http.Client{},
	}
}

func (g *GeminiClient) Generate(ctx context.Context, message string, history []ChatTurn) (string, error) {
	var contents []geminiContent
	for _, turn := range history {
		role := "user"
		if turn.Role == "model" || turn.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: turn.Text}}})
	}
	contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: message}}})

	payload, err := json.Marshal(geminiRequest{Contents: contents})
	if err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s?key=%s", g.baseURL, url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("gemini response: %w", err)
	}
	var out geminiResponse
	if resp.StatusCode != 200 {
		if json.Unmarshal(raw, &out) == nil && out.Error.Message != "" {
			return "", fmt.Errorf("gemini error %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("gemini error: status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("gemini response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
