package rerank

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestClient_Score(t *testing.T) {
	var gotReq rerankRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rerank" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		// Scores arrive sorted by relevance, not input order.
		_ = json.NewEncoder(w).Encode([]rerankResult{
			{Index: 2, Score: 0.95},
			{Index: 0, Score: 0.40},
			{Index: 1, Score: 0.10},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	scores, err := c.Score(context.Background(), "revenue growth", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if gotReq.Query != "revenue growth" || len(gotReq.Texts) != 3 {
		t.Errorf("unexpected request payload: %+v", gotReq)
	}
	want := []float64{0.40, 0.10, 0.95}
	if !reflect.DeepEqual(scores, want) {
		t.Errorf("scores = %v, want %v (input order)", scores, want)
	}
}

func TestClient_Score_EmptyTexts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty texts")
	}))
	defer srv.Close()

	scores, err := NewClient(srv.URL, time.Second).Score(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("scores = %v, want empty", scores)
	}
}

func TestClient_Score_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Score(context.Background(), "q", []string{"a"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestClient_Score_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := NewClient(srv.URL, time.Second).Score(context.Background(), "q", []string{"a"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestClient_Score_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]rerankResult{{Index: 0, Score: 0.5}})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Score(context.Background(), "q", []string{"a", "b"})
	if err == nil {
		t.Error("expected error for score count mismatch")
	}
}

func TestClient_Score_BadIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]rerankResult{
			{Index: 0, Score: 0.5},
			{Index: 0, Score: 0.4}, // duplicate
		})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Score(context.Background(), "q", []string{"a", "b"})
	if err == nil {
		t.Error("expected error for duplicate index")
	}
}

func TestTopIndices(t *testing.T) {
	scores := []float64{0.2, 0.9, 0.5, 0.9, 0.1}

	got := TopIndices(scores, 3)
	// Equal scores keep input order: index 1 before index 3.
	want := []int{1, 3, 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopIndices = %v, want %v", got, want)
	}

	if got := TopIndices(scores, 10); len(got) != len(scores) {
		t.Errorf("n beyond len should return all indices, got %v", got)
	}
}
