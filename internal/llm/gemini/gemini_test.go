package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func reply(w http.ResponseWriter, texts ...string) {
	parts := make([]map[string]string, len(texts))
	for i, t := range texts {
		parts[i] = map[string]string{"text": t}
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"candidates": []map[string]interface{}{
			{"content": map[string]interface{}{"role": "model", "parts": parts}},
		},
	})
}

func TestClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.5-flash:generateContent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Error("Missing API key header")
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 1 || req.Contents[0].Parts[0].Text != "hola" {
			t.Errorf("contents = %+v, want one text part", req.Contents)
		}

		reply(w, `{"intencion":`, ` "otro"}`)
	}))
	defer server.Close()

	client := New("test-key", "gemini-2.5-flash", WithBaseURL(server.URL))

	got, err := client.Complete(context.Background(), "hola")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != `{"intencion": "otro"}` {
		t.Errorf("Complete() = %q", got)
	}
}

func TestClient_Complete_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	client := New("test-key", "gemini-2.5-flash", WithBaseURL(server.URL))
	if _, err := client.Complete(context.Background(), "hola"); !errors.Is(err, ErrEmptyReply) {
		t.Errorf("Complete() error = %v, want ErrEmptyReply", err)
	}
}

func TestClient_Complete_Blocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"promptFeedback": {"blockReason": "SAFETY"}}`))
	}))
	defer server.Close()

	client := New("test-key", "gemini-2.5-flash", WithBaseURL(server.URL))
	if _, err := client.Complete(context.Background(), "hola"); err == nil {
		t.Error("Complete() should error on blocked prompt")
	}
}

func TestClient_Complete_Retry(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		reply(w, "ok")
	}))
	defer server.Close()

	client := New("test-key", "gemini-2.5-flash", WithBaseURL(server.URL), WithRetries(2))
	if _, err := client.Complete(context.Background(), "hola"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestClient_Transcribe(t *testing.T) {
	audio := []byte("OggS fake voice note")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		parts := req.Contents[0].Parts
		if len(parts) != 2 {
			t.Fatalf("parts = %d, want 2", len(parts))
		}
		if parts[0].Text == "" {
			t.Error("first part should carry the transcription instruction")
		}
		inline := parts[1].InlineData
		if inline == nil {
			t.Fatal("second part should carry inline audio")
		}
		if inline.MimeType != "audio/ogg" {
			t.Errorf("mimeType = %q, want audio/ogg", inline.MimeType)
		}
		decoded, err := base64.StdEncoding.DecodeString(inline.Data)
		if err != nil || string(decoded) != string(audio) {
			t.Errorf("inline data = %q, want the original audio", decoded)
		}

		reply(w, "  Agenda una reunión mañana a las 15:00\n")
	}))
	defer server.Close()

	client := New("test-key", "gemini-2.5-flash", WithBaseURL(server.URL))

	got, err := client.Transcribe(context.Background(), audio, "audio/ogg")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got != "Agenda una reunión mañana a las 15:00" {
		t.Errorf("Transcribe() = %q", got)
	}
}

func TestClient_Transcribe_NoAudio(t *testing.T) {
	client := New("test-key", "gemini-2.5-flash", WithBaseURL("http://127.0.0.1:1"))
	if _, err := client.Transcribe(context.Background(), nil, "audio/ogg"); err == nil {
		t.Error("Transcribe() should error without audio")
	}
}
