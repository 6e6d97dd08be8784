package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	reply   string
	err     error
	gotMsg  string
	gotHist []ChatTurn
}

func (f *fakeChat) Generate(_ context.Context, message string, history []ChatTurn) (string, error) {
	f.gotMsg = message
	f.gotHist = history
	return f.reply, f.err
}

func TestHandleChat(t *testing.T) {
	chat := &fakeChat{reply: "Soup sounds lovely."}
	app := &App{AI: chat}

	body := `{"message": "How about lunch?", "history": [{"role": "user", "text": "Hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	app.HandleChat(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "Soup sounds lovely.")
	assert.Equal(t, "How about lunch?", chat.gotMsg)
	require.Len(t, chat.gotHist, 1)
	assert.Equal(t, "Hello", chat.gotHist[0].Text)
}

func TestHandleChat_Failures(t *testing.T) {
	t.Run("blank message", func(t *testing.T) {
		app := &App{AI: &fakeChat{}}
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message": "  "}`))
		rec := httptest.NewRecorder()
		app.HandleChat(rec, req)
		assert.Equal(t, 400, rec.Code)
	})

	t.Run("provider error", func(t *testing.T) {
		app := &App{AI: &fakeChat{err: errors.New("model overloaded")}}
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message": "hi"}`))
		rec := httptest.NewRecorder()
		app.HandleChat(rec, req)
		assert.Equal(t, 500, rec.Code)
	})

	t.Run("provider not configured", func(t *testing.T) {
		app := &App{}
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message": "hi"}`))
		rec := httptest.NewRecorder()
		app.HandleChat(rec, req)
		assert.Equal(t, 500, rec.Code)
	})
}
