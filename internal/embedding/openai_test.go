package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIEmbed(t *testing.T) {
	var gotAuth string
	var gotReq embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3}}},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", "text-embedding-3-large")
	c.endpoint = srv.URL

	vec, err := c.Embed(context.Background(), "pass 1 narrative")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("embedding length = %d, want 3", len(vec))
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "text-embedding-3-large" {
		t.Errorf("model = %q, want configured override", gotReq.Model)
	}
	if gotReq.Input != "pass 1 narrative" {
		t.Errorf("input = %q", gotReq.Input)
	}
}

func TestOpenAIClientDefaultsModel(t *testing.T) {
	c := NewOpenAIClient("k", "")
	if c.model != DefaultModel {
		t.Errorf("model = %q, want %q", c.model, DefaultModel)
	}
}

func TestOpenAIEmbedUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", "")
	c.endpoint = srv.URL

	if _, err := c.Embed(context.Background(), "narrative"); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestOpenAIEmbedEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", "")
	c.endpoint = srv.URL

	if _, err := c.Embed(context.Background(), "narrative"); err == nil {
		t.Fatal("expected error for empty data")
	}
}
