package embed

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseFlag(t *testing.T) {
	tests := []struct {
		name     string
		flag     string
		wantErr  bool
		provider string
		model    string
	}{
		{"ollama basic", "ollama/nomic-embed-text", false, "ollama", "nomic-embed-text"},
		{"model with slashes", "openrouter/sentence-transformers/all-MiniLM-L6-v2", false, "openrouter", "sentence-transformers/all-MiniLM-L6-v2"},
		{"empty", "", true, "", ""},
		{"no slash", "ollama", true, "", ""},
		{"empty model", "ollama/", true, "", ""},
		{"unknown provider", "banana/model", true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseFlag(tt.flag)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.flag)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Provider != tt.provider {
				t.Errorf("provider = %q, want %q", cfg.Provider, tt.provider)
			}
			if cfg.Model != tt.model {
				t.Errorf("model = %q, want %q", cfg.Model, tt.model)
			}
		})
	}
}

func TestClientEmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		resp := response{}
		for i := range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{float32(i), 1}, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client, err := NewClient(&Config{
		Provider: "test", Model: "m", Endpoint: srv.URL,
		MaxRetries: 1, TimeoutSecs: 5,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	vectors, err := client.EmbedBatch(context.Background(), []string{"a", "", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	if vectors[1] != nil {
		t.Errorf("empty text should yield nil vector")
	}
	if len(vectors[0]) != 2 || len(vectors[2]) != 2 {
		t.Errorf("non-empty texts should yield vectors")
	}
	if client.Dimensions() != 2 {
		t.Errorf("Dimensions = %d, want 2", client.Dimensions())
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 1}, []float32{1, 0, 1}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"empty", nil, []float32{1}, 0},
		{"mismatched", []float32{1, 2}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestDistanceClamped(t *testing.T) {
	if d := Distance([]float32{1, 0}, []float32{1, 0}); d != 0 {
		t.Errorf("identical vectors should have distance 0, got %f", d)
	}
	if d := Distance([]float32{1, 0}, []float32{0, 1}); math.Abs(d-1) > 1e-9 {
		t.Errorf("orthogonal vectors should have distance 1, got %f", d)
	}
}
