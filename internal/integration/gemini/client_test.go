package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/refereat/refereat-server/internal/model"
)

func TestMain(m *testing.M) {
	os.Setenv("AWS_XRAY_SDK_DISABLED", "TRUE")
	os.Exit(m.Run())
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(context.Background(), Config{
		APIKey:   "test-key",
		Model:    "gemini-1.5-pro",
		Endpoint: server.URL,
		Timeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

// sentRequest はテストサーバーが受け取ったgenerateContentのリクエストです
type sentRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text       string `json:"text"`
			InlineData *struct {
				MimeType string `json:"mimeType"`
				Data     string `json:"data"`
			} `json:"inlineData"`
		} `json:"parts"`
	} `json:"contents"`
}

func respondText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
}

func TestClient_ExtractBooking(t *testing.T) {
	var gotPath, gotKey string
	var gotReq sentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&gotReq)
		respondText(w, "```json\n{\"guestName\":\"Mario Rossi\",\"bookingDate\":\"2024-05-01\",\"covers\":4,\"totalSpend\":120}\n```")
	})

	got, err := client.ExtractBooking(context.Background(), Input{Image: []byte("\x89PNG\r\n\x1a\nfake"), MimeType: "image/png"})
	if err != nil {
		t.Fatalf("ExtractBooking() error = %v", err)
	}
	if got.GuestName != "Mario Rossi" || got.Covers != 4 {
		t.Errorf("ExtractBooking() = %+v", got)
	}
	if gotPath != "/v1beta/models/gemini-1.5-pro:generateContent" {
		t.Errorf("path = %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if len(gotReq.Contents) != 1 || len(gotReq.Contents[0].Parts) != 2 {
		t.Fatalf("request contents = %+v", gotReq.Contents)
	}
	if inline := gotReq.Contents[0].Parts[1].InlineData; inline == nil || inline.MimeType != "image/png" {
		t.Errorf("inline data = %+v", inline)
	}
}

func TestClient_ExtractBookingText(t *testing.T) {
	var gotReq sentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		respondText(w, `{"guestName":"Anna","bookingDate":"2024-05-02","covers":2}`)
	})

	got, err := client.ExtractBooking(context.Background(), Input{Text: "Anna, 2 guests, May 2nd"})
	if err != nil {
		t.Fatalf("ExtractBooking() error = %v", err)
	}
	if got.GuestName != "Anna" {
		t.Errorf("GuestName = %q", got.GuestName)
	}
	if len(gotReq.Contents) != 1 || len(gotReq.Contents[0].Parts) != 2 {
		t.Fatalf("request contents = %+v", gotReq.Contents)
	}
	if gotReq.Contents[0].Parts[1].Text != "Anna, 2 guests, May 2nd" {
		t.Errorf("text part = %+v", gotReq.Contents[0].Parts[1])
	}
}

func TestClient_ExtractBookingFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		input   Input
	}{
		{
			name:    "エラーステータス",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
			},
			input:   Input{Text: "x"},
		},
		{
			name:    "不正なJSON応答",
			handler: func(w http.ResponseWriter, r *http.Request) { respondText(w, "sorry, I cannot help") },
			input:   Input{Text: "x"},
		},
		{
			name:    "候補なし",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"candidates":[]}`))
			},
			input:   Input{Text: "x"},
		},
		{
			name:    "入力なし",
			handler: func(w http.ResponseWriter, r *http.Request) { t.Error("no request expected") },
			input:   Input{Text: "   "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.ExtractBooking(context.Background(), tt.input)
			if !errors.Is(err, model.ErrExtractionFailed) {
				t.Errorf("ExtractBooking() error = %v, want ErrExtractionFailed", err)
			}
		})
	}
}

func TestClient_MissingAPIKey(t *testing.T) {
	client, err := NewClient(context.Background(), Config{Model: "m", Endpoint: "http://127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	_, err = client.ExtractBooking(context.Background(), Input{Text: "x"})
	if !errors.Is(err, model.ErrExtractionFailed) || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("ExtractBooking() error = %v", err)
	}
}
