package aimeta_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"darkroom/internal/aimeta"
	"darkroom/internal/config"
)

func TestHTTPProviderParsesChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["model"] != "gpt-4o-mini" {
			t.Errorf("unexpected model %v", body["model"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"content": `{"tags":["dog","park"],"short_description":"a dog in a park","long_description":"A golden retriever running.","detected_objects":["dog"],"confidence":0.92}`,
				},
			}},
		})
	}))
	defer server.Close()

	provider := aimeta.NewHTTPProvider(config.AIProvider{
		Name:    "openai",
		BaseURL: server.URL,
		APIKey:  "secret",
		Model:   "gpt-4o-mini",
	})

	analysis, err := provider.Analyze(context.Background(), aimeta.Request{
		Data:     []byte{0x1, 0x2},
		MIMEType: "image/jpeg",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis.ShortDescription != "a dog in a park" {
		t.Fatalf("unexpected description %q", analysis.ShortDescription)
	}
	if len(analysis.Tags) != 2 || analysis.Tags[0] != "dog" {
		t.Fatalf("unexpected tags %v", analysis.Tags)
	}
	if analysis.Confidence != 0.92 {
		t.Fatalf("unexpected confidence %f", analysis.Confidence)
	}
}

func TestHTTPProviderRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := aimeta.NewHTTPProvider(config.AIProvider{Name: "openai", BaseURL: server.URL})
	if _, err := provider.Analyze(context.Background(), aimeta.Request{MIMEType: "image/jpeg"}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
