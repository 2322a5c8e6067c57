package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ent0n29/hibiki/internal/reliability"
)

func newTestClient(url string) *Client {
	return NewClient(url, "llama3", 2*time.Second, time.Second)
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["model"] != "llama3" {
			t.Errorf("model = %v", req["model"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "こんにちは", "done": true})
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "こんにちは" {
		t.Fatalf("Generate() = %q", got)
	}
}

func TestGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, frag := range []string{"ab", "cd", "ef"} {
			fmt.Fprintf(w, `{"response":%q,"done":false}`+"\n", frag)
		}
		fmt.Fprintln(w, `{"response":"","done":true}`)
	}))
	defer srv.Close()

	var deltas []string
	got, err := newTestClient(srv.URL).GenerateStream(context.Background(), "hi", func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateStream() error = %v", err)
	}
	if got != "abcdef" {
		t.Fatalf("accumulated = %q, want abcdef", got)
	}
	if len(deltas) != 3 {
		t.Fatalf("deltas = %v, want 3 fragments", deltas)
	}
}

func TestGenerateTimeoutClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "llama3", 50*time.Millisecond, time.Second)
	_, err := c.Generate(context.Background(), "slow")
	if err == nil {
		t.Fatalf("Generate() should time out")
	}
	if got := reliability.Classify(err); got != reliability.ReasonTimeout {
		t.Fatalf("reason = %q, want %q", got, reliability.ReasonTimeout)
	}
}

func TestGenerateUnavailableClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	_, err := newTestClient(srv.URL).Generate(context.Background(), "hi")
	if err == nil {
		t.Fatalf("Generate() should fail against closed server")
	}
	if got := reliability.Classify(err); got != reliability.ReasonUnavailable {
		t.Fatalf("reason = %q, want %q", got, reliability.ReasonUnavailable)
	}
}

func TestGenerateBadResponseClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), "hi")
	if err == nil {
		t.Fatalf("Generate() should fail on 500")
	}
	if got := reliability.Classify(err); got != reliability.ReasonBadResponse {
		t.Fatalf("reason = %q, want %q", got, reliability.ReasonBadResponse)
	}
}

func TestHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(tagsResponse{})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if !c.Healthy(context.Background()) {
		t.Fatalf("Healthy() = false, want true")
	}

	srv.Close()
	if c.Healthy(context.Background()) {
		t.Fatalf("Healthy() = true against closed server")
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(tagsResponse{Models: []ModelInfo{
			{Name: "llama3:latest"},
			{Name: "llava:13b"},
		}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 || models[0].Name != "llama3:latest" {
		t.Fatalf("models = %+v", models)
	}
	if !c.VisionAvailable(context.Background()) {
		t.Fatalf("VisionAvailable() = false with llava installed")
	}
}

func TestAnalyzeImageSendsBase64(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "llava" {
			t.Errorf("model = %q, want llava", req.Model)
		}
		if len(req.Images) != 1 || !strings.HasPrefix(req.Images[0], "iVBO") {
			t.Errorf("images = %v", req.Images)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "a cat"})
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).AnalyzeImage(context.Background(), []byte{0x89, 0x50, 0x4E, 0x47}, "describe")
	if err != nil {
		t.Fatalf("AnalyzeImage() error = %v", err)
	}
	if got != "a cat" {
		t.Fatalf("AnalyzeImage() = %q", got)
	}
}
