package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwilioClientSend(t *testing.T) {
	var gotTo, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotTo = r.PostFormValue("To")
		gotBody = r.PostFormValue("Body")
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		w.WriteHeader(201)
		w.Write([]byte(`{"sid":"SM987"}`))
	}))
	defer srv.Close()

	client := NewTwilioClient("AC123", "token", "+15550000")
	client.baseURL = srv.URL

	sid, err := client.Send(context.Background(), "+15550100", "hello")
	require.NoError(t, err)
	assert.Equal(t, "SM987", sid)
	assert.Equal(t, "+15550100", gotTo)
	assert.Equal(t, "hello", gotBody)
}

func TestTwilioClientSend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	client := NewTwilioClient("AC123", "token", "+15550000")
	client.baseURL = srv.URL

	_, err := client.Send(context.Background(), "bogus", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "21211")
}

func TestTwilioClientSend_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(502)
		w.Write([]byte("<html>Bad Gateway</html>"))
	}))
	defer srv.Close()

	client := NewTwilioClient("AC123", "token", "+15550000")
	client.baseURL = srv.URL

	_, err := client.Send(context.Background(), "+15550100", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestOpenCageReverseGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "key=k")
		w.Write([]byte(`{"results":[{"formatted":"Champ de Mars, Paris"}],"status":{"code":200,"message":"OK"}}`))
	}))
	defer srv.Close()

	client := NewOpenCageClient("k")
	client.baseURL = srv.URL

	addr, err := client.ReverseGeocode(context.Background(), 48.858, 2.294)
	require.NoError(t, err)
	assert.Equal(t, "Champ de Mars, Paris", addr)
}

func TestOpenCageReverseGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[],"status":{"code":200,"message":"OK"}}`))
	}))
	defer srv.Close()

	client := NewOpenCageClient("k")
	client.baseURL = srv.URL

	_, err := client.ReverseGeocode(context.Background(), 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no address found")
}

func TestSpoonacularInformation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recipes/716429/information", r.URL.Path)
		w.Write([]byte(`{
      "title": "Pasta with Garlic",
      "readyInMinutes": 45,
      "servings": 2,
      "instructions": "Boil, toss, serve.",
      "extendedIngredients": [
        {"original": "1 lb penne"},
        {"original": "3 cloves garlic"},
        {"original": ""}
      ]
    }`))
	}))
	defer srv.Close()

	client := NewSpoonacularClient("k")
	client.baseURL = srv.URL

	info, err := client.Information(context.Background(), 716429)
	require.NoError(t, err)
	assert.Equal(t, "Pasta with Garlic", info.Title)
	assert.Equal(t, 45, info.ReadyInMinutes)
	// Blank ingredient lines are dropped.
	assert.Equal(t, []string{"1 lb penne", "3 cloves garlic"}, info.Ingredients)
}

func TestImgbbUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "aGVsbG8=", r.PostFormValue("image"))
		w.Write([]byte(`{"success":true,"data":{"url":"https://i.ibb.co/x/img.png","delete_url":"https://ibb.co/x/del"}}`))
	}))
	defer srv.Close()

	client := NewImgbbClient("k")
	client.baseURL = srv.URL

	url, deleteURL, err := client.Upload(context.Background(), "aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "https://i.ibb.co/x/img.png", url)
	assert.Equal(t, "https://ibb.co/x/del", deleteURL)
}

func TestImgbbUpload_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		w.Write([]byte(`{"success":false,"error":{"message":"Invalid API key"}}`))
	}))
	defer srv.Close()

	client := NewImgbbClient("k")
	client.baseURL = srv.URL

	_, _, err := client.Upload(context.Background(), "aGVsbG8=")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestGeminiGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		// History turns precede the new message, with roles normalized.
		require.Len(t, req.Contents, 3)
		assert.Equal(t, "user", req.Contents[0].Role)
		assert.Equal(t, "model", req.Contents[1].Role)
		assert.Equal(t, "user", req.Contents[2].Role)
		assert.Equal(t, "How about lunch?", req.Contents[2].Parts[0].Text)
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Soup sounds lovely."}]}}]}`))
	}))
	defer srv.Close()

	client := NewGeminiClient("k")
	client.baseURL = srv.URL

	reply, err := client.Generate(context.Background(), "How about lunch?", []ChatTurn{
		{Role: "user", Text: "Hello"},
		{Role: "assistant", Text: "Hi there!"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Soup sounds lovely.", reply)
}

func TestGeminiGenerate_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(503)
		w.Write([]byte("<html>Service Unavailable</html>"))
	}))
	defer srv.Close()

	client := NewGeminiClient("k")
	client.baseURL = srv.URL

	_, err := client.Generate(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestGeminiGenerate_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	client := NewGeminiClient("k")
	client.baseURL = srv.URL

	_, err := client.Generate(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}
